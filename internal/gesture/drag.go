package gesture

import (
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
)

// Drag moves one window with the pointer and snaps it on release.
//
// Pointer moves are buffered: Move only records the latest position and
// Flush applies it, so a burst of moves within one frame costs one registry
// update. End always flushes before committing.
type Drag struct {
	windows Windows
	phase   Phase
	id      int

	start  platform.Point
	origin platform.Point
	// begin is the geometry the window had when the drag started; it
	// becomes the restore geometry if the drag ends in a snap.
	begin platform.Rect

	pending  bool
	pointer  platform.Point
	suppress bool

	target snap.Result
}

// NewDrag returns an idle drag controller.
func NewDrag(windows Windows) *Drag {
	return &Drag{windows: windows}
}

// Phase returns the current phase.
func (d *Drag) Phase() Phase { return d.phase }

// WindowID returns the window being dragged, or 0.
func (d *Drag) WindowID() int { return d.id }

// Target returns the snap classification of the last applied move.
func (d *Drag) Target() snap.Result { return d.target }

// Begin starts dragging id from pointer p. The window is focused, and a
// snapped window is first restored to its remembered geometry. It reports
// false when id is unknown.
func (d *Drag) Begin(id int, p platform.Point) bool {
	if d.phase != PhaseIdle {
		d.End()
	}
	if _, ok := d.windows.Get(id); !ok {
		return false
	}

	d.windows.Focus(id)
	d.windows.Unsnap(id, true)

	w, _ := d.windows.Get(id)
	d.phase = PhaseDragging
	d.id = id
	d.start = p
	d.origin = platform.Point{X: w.X, Y: w.Y}
	d.begin = w.Rect()
	d.pending = false
	d.target = snap.Result{}
	return true
}

// Move records the latest pointer position. suppressSnap disables snap
// classification for this move, as when a modifier key is held.
func (d *Drag) Move(p platform.Point, suppressSnap bool) {
	if d.phase != PhaseDragging {
		return
	}
	d.pointer = p
	d.suppress = suppressSnap
	d.pending = true
}

// Pending reports whether a recorded move is waiting for Flush.
func (d *Drag) Pending() bool { return d.pending }

// Flush applies the latest recorded move.
func (d *Drag) Flush() {
	if d.phase != PhaseDragging || !d.pending {
		return
	}
	d.pending = false

	x := d.origin.X + d.pointer.X - d.start.X
	y := d.origin.Y + d.pointer.Y - d.start.Y
	d.windows.Move(d.id, x, y)

	if d.suppress {
		d.target = snap.Result{}
		d.windows.ClearPreview()
		return
	}
	d.target = snap.Classify(d.windows.Bounds(), d.pointer, d.windows.Thresholds())
	if d.target.OK() {
		d.windows.SetPreview(d.target.Rect)
	} else {
		d.windows.ClearPreview()
	}
}

// End finishes the drag. The pending move is applied first; if the pointer
// was over a snap zone the window is committed to it.
func (d *Drag) End() {
	if d.phase != PhaseDragging {
		return
	}
	d.Flush()
	if d.target.OK() {
		d.windows.Commit(d.id, d.target.Zone, d.begin)
	}
	d.windows.ClearPreview()
	d.reset()
}

func (d *Drag) reset() {
	*d = Drag{windows: d.windows}
}
