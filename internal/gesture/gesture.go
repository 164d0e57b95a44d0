// Package gesture turns pointer events into window registry operations.
package gesture

import (
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
	"github.com/1broseidon/snaptile/internal/wm"
)

// Phase represents the current phase of a gesture
type Phase int

const (
	// PhaseIdle means no gesture is in progress
	PhaseIdle Phase = iota
	// PhaseDragging means a window is following the pointer
	PhaseDragging
	// PhaseResizing means a window edge is following the pointer
	PhaseResizing
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// Windows is the registry surface gestures drive. *wm.Manager implements it.
type Windows interface {
	Get(id int) (wm.Window, bool)
	Bounds() platform.Rect
	MinSize() (w, h int)
	Thresholds() snap.Thresholds

	Focus(id int)
	Move(id, x, y int)
	SetGeometry(id int, r platform.Rect)
	Unsnap(id int, restore bool)
	Commit(id int, zone snap.Zone, prev platform.Rect)
	ToggleMaximize(id int)

	SetPreview(r platform.Rect)
	ClearPreview()
}

var _ Windows = (*wm.Manager)(nil)
