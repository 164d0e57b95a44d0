package wm

import (
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
)

// Window is one managed surface.
type Window struct {
	ID      int
	Title   string
	Content any
	Z       int

	X, Y, W, H int

	// Snapped is the coarse snap state; maximize is stored as top.
	Snapped snap.Kind
	// Zone is the exact zone the window is snapped to.
	Zone snap.Zone
	// Prev is the geometry restored on unsnap. It is not touched while
	// the window stays snapped.
	Prev platform.Rect

	Minimized bool
}

// Rect returns the current geometry.
func (w Window) Rect() platform.Rect {
	return platform.Rect{X: w.X, Y: w.Y, Width: w.W, Height: w.H}
}

func (w *Window) setRect(r platform.Rect) {
	w.X, w.Y, w.W, w.H = r.X, r.Y, r.Width, r.Height
}

// IsSnapped reports whether the window is in any snap zone.
func (w *Window) IsSnapped() bool {
	return w.Zone != snap.ZoneNone
}

func (w *Window) clearSnap() {
	w.Snapped = snap.KindNone
	w.Zone = snap.ZoneNone
}

// Info is the read-only projection of a window handed to observers.
type Info struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Z         int       `json:"z"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	W         int       `json:"w"`
	H         int       `json:"h"`
	Snapped   snap.Kind `json:"snapped,omitempty"`
	Zone      snap.Zone `json:"zone,omitempty"`
	Minimized bool      `json:"minimized,omitempty"`
}

func (w *Window) info() Info {
	return Info{
		ID:        w.ID,
		Title:     w.Title,
		Z:         w.Z,
		X:         w.X,
		Y:         w.Y,
		W:         w.W,
		H:         w.H,
		Snapped:   w.Snapped,
		Zone:      w.Zone,
		Minimized: w.Minimized,
	}
}

// Rect returns the geometry carried by the projection.
func (i Info) Rect() platform.Rect {
	return platform.Rect{X: i.X, Y: i.Y, Width: i.W, Height: i.H}
}

// Snapshot is the full observer view of the registry.
type Snapshot struct {
	Windows  []Info         `json:"windows"`
	ActiveID int            `json:"active_id"`
	Bounds   platform.Rect  `json:"bounds"`
	Preview  *platform.Rect `json:"preview,omitempty"`
}

// Window returns the entry for id.
func (s Snapshot) Window(id int) (Info, bool) {
	for _, w := range s.Windows {
		if w.ID == id {
			return w, true
		}
	}
	return Info{}, false
}

// Placement assigns a rectangle to a window in a bulk update.
type Placement struct {
	ID   int           `json:"id"`
	Rect platform.Rect `json:"rect"`
}
