package gesture

import (
	"sort"

	"github.com/1broseidon/snaptile/internal/platform"
)

// Tracker routes pointer events to one gesture per pointer id, so several
// pointers can drag or resize different windows at once.
type Tracker struct {
	windows Windows
	drags   map[int]*Drag
	resizes map[int]*Resize
}

// NewTracker returns a tracker with no active gestures.
func NewTracker(windows Windows) *Tracker {
	return &Tracker{
		windows: windows,
		drags:   make(map[int]*Drag),
		resizes: make(map[int]*Resize),
	}
}

// Down starts a gesture on id for pointer. An edge of zero drags; any other
// edge resizes from that handle. A gesture still owned by pointer is ended
// first.
func (t *Tracker) Down(pointer, id int, edge Edge, p platform.Point) bool {
	t.Up(pointer)
	if edge == 0 {
		d := NewDrag(t.windows)
		if !d.Begin(id, p) {
			return false
		}
		t.drags[pointer] = d
		return true
	}
	r := NewResize(t.windows)
	if !r.Begin(id, edge, p) {
		return false
	}
	t.resizes[pointer] = r
	return true
}

// Move records a pointer move. Moves for pointers with no gesture are
// ignored.
func (t *Tracker) Move(pointer int, p platform.Point, suppressSnap bool) {
	if d, ok := t.drags[pointer]; ok {
		d.Move(p, suppressSnap)
		return
	}
	if r, ok := t.resizes[pointer]; ok {
		r.Move(p)
	}
}

// Up ends the gesture for pointer, applying its pending move first.
func (t *Tracker) Up(pointer int) {
	if d, ok := t.drags[pointer]; ok {
		d.End()
		delete(t.drags, pointer)
	}
	if r, ok := t.resizes[pointer]; ok {
		r.End()
		delete(t.resizes, pointer)
	}
}

// Flush applies the pending move of every gesture, in pointer id order.
func (t *Tracker) Flush() {
	for _, pointer := range t.pointers() {
		if d, ok := t.drags[pointer]; ok {
			d.Flush()
		}
		if r, ok := t.resizes[pointer]; ok {
			r.Flush()
		}
	}
}

// Pending reports whether any gesture has an unapplied move.
func (t *Tracker) Pending() bool {
	for _, d := range t.drags {
		if d.Pending() {
			return true
		}
	}
	for _, r := range t.resizes {
		if r.Pending() {
			return true
		}
	}
	return false
}

// Phase returns the phase of the gesture owned by pointer.
func (t *Tracker) Phase(pointer int) Phase {
	if d, ok := t.drags[pointer]; ok {
		return d.Phase()
	}
	if r, ok := t.resizes[pointer]; ok {
		return r.Phase()
	}
	return PhaseIdle
}

// Active returns the number of gestures in progress.
func (t *Tracker) Active() int {
	return len(t.drags) + len(t.resizes)
}

// DoubleClick toggles id between maximized and its remembered geometry.
func (t *Tracker) DoubleClick(id int) {
	t.windows.ToggleMaximize(id)
}

// Cancel ends every gesture.
func (t *Tracker) Cancel() {
	for _, pointer := range t.pointers() {
		t.Up(pointer)
	}
}

func (t *Tracker) pointers() []int {
	out := make([]int, 0, len(t.drags)+len(t.resizes))
	for p := range t.drags {
		out = append(out, p)
	}
	for p := range t.resizes {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
