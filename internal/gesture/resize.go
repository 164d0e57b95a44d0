package gesture

import (
	"strings"

	"github.com/1broseidon/snaptile/internal/platform"
)

// Edge is a set of window edges controlled by one resize handle.
type Edge uint8

const (
	EdgeNorth Edge = 1 << iota
	EdgeSouth
	EdgeEast
	EdgeWest
)

var edgeLetters = []struct {
	edge   Edge
	letter byte
}{
	{EdgeNorth, 'n'},
	{EdgeSouth, 's'},
	{EdgeEast, 'e'},
	{EdgeWest, 'w'},
}

// ParseEdge parses a handle name such as "e" or "nw".
func ParseEdge(s string) (Edge, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > 2 {
		return 0, false
	}
	var e Edge
	for i := 0; i < len(s); i++ {
		found := false
		for _, el := range edgeLetters {
			if s[i] == el.letter {
				if e&el.edge != 0 {
					return 0, false
				}
				e |= el.edge
				found = true
			}
		}
		if !found {
			return 0, false
		}
	}
	if e&EdgeNorth != 0 && e&EdgeSouth != 0 || e&EdgeEast != 0 && e&EdgeWest != 0 {
		return 0, false
	}
	return e, true
}

// String returns the handle name, vertical edge first.
func (e Edge) String() string {
	var b strings.Builder
	for _, el := range edgeLetters {
		if e&el.edge != 0 {
			b.WriteByte(el.letter)
		}
	}
	return b.String()
}

// Resize changes the size of one window from a single handle. Resizing
// never snaps.
type Resize struct {
	windows Windows
	phase   Phase
	id      int
	edge    Edge

	start     platform.Point
	startRect platform.Rect

	pending bool
	pointer platform.Point
}

// NewResize returns an idle resize controller.
func NewResize(windows Windows) *Resize {
	return &Resize{windows: windows}
}

// Phase returns the current phase.
func (r *Resize) Phase() Phase { return r.phase }

// WindowID returns the window being resized, or 0.
func (r *Resize) WindowID() int { return r.id }

// Begin starts resizing id from handle edge at pointer p. A snapped window
// leaves its snapped state in place, keeping its current rect.
func (r *Resize) Begin(id int, edge Edge, p platform.Point) bool {
	if r.phase != PhaseIdle {
		r.End()
	}
	if edge == 0 {
		return false
	}
	if _, ok := r.windows.Get(id); !ok {
		return false
	}

	r.windows.Focus(id)
	r.windows.Unsnap(id, false)

	w, _ := r.windows.Get(id)
	r.phase = PhaseResizing
	r.id = id
	r.edge = edge
	r.start = p
	r.startRect = w.Rect()
	r.pending = false
	return true
}

// Move records the latest pointer position.
func (r *Resize) Move(p platform.Point) {
	if r.phase != PhaseResizing {
		return
	}
	r.pointer = p
	r.pending = true
}

// Pending reports whether a recorded move is waiting for Flush.
func (r *Resize) Pending() bool { return r.pending }

// Flush applies the latest recorded move.
func (r *Resize) Flush() {
	if r.phase != PhaseResizing || !r.pending {
		return
	}
	r.pending = false
	minW, minH := r.windows.MinSize()
	rect := resizeRect(r.startRect, r.edge, r.pointer.X-r.start.X, r.pointer.Y-r.start.Y, r.windows.Bounds(), minW, minH)
	r.windows.SetGeometry(r.id, rect)
}

// End applies the pending move and stops the gesture.
func (r *Resize) End() {
	if r.phase != PhaseResizing {
		return
	}
	r.Flush()
	*r = Resize{windows: r.windows}
}

// resizeRect computes the new geometry for a handle moved by (dx, dy).
// Floors apply before the origin shift, so a north or west handle keeps the
// opposite edge in place. The result is clamped into bounds and its size is
// capped to the extent left from the clamped origin.
func resizeRect(start platform.Rect, edge Edge, dx, dy int, bounds platform.Rect, minW, minH int) platform.Rect {
	out := start

	if edge&EdgeEast != 0 {
		out.Width = max(minW, start.Width+dx)
	}
	if edge&EdgeSouth != 0 {
		out.Height = max(minH, start.Height+dy)
	}
	if edge&EdgeWest != 0 {
		out.Width = max(minW, start.Width-dx)
		out.X = start.Right() - out.Width
	}
	if edge&EdgeNorth != 0 {
		out.Height = max(minH, start.Height-dy)
		out.Y = start.Bottom() - out.Height
	}

	if bounds.Empty() {
		return out
	}

	fitW := max(minW, min(out.Width, bounds.Width))
	fitH := max(minH, min(out.Height, bounds.Height))
	out.X = max(bounds.X, min(out.X, bounds.Right()-fitW))
	out.Y = max(bounds.Y, min(out.Y, bounds.Bottom()-fitH))

	out.Width = min(out.Width, max(minW, bounds.Right()-out.X))
	out.Height = min(out.Height, max(minH, bounds.Bottom()-out.Y))
	return out
}
