package snap

import "github.com/1broseidon/snaptile/internal/platform"

const (
	DefaultThreshold           = 24
	DefaultCornerThreshold     = 48
	DefaultMaximizeBandPercent = 50
)

// Thresholds controls how close the pointer must be to an edge.
type Thresholds struct {
	Edge   int
	Corner int
	// MaximizeBandPercent is the width of the centred strip of the top edge
	// that maximizes; the rest of the top edge snaps to the top half.
	MaximizeBandPercent int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Edge:                DefaultThreshold,
		Corner:              DefaultCornerThreshold,
		MaximizeBandPercent: DefaultMaximizeBandPercent,
	}
}

// Result is the outcome of classifying a pointer position.
type Result struct {
	Kind Kind
	Zone Zone
	Rect platform.Rect
}

// OK reports whether the pointer is in any snap zone.
func (r Result) OK() bool { return r.Zone != ZoneNone }

// Classify maps a pointer position to a snap zone and its target rect.
// Corners win over edges; the maximize band wins over the plain edges.
func Classify(bounds platform.Rect, p platform.Point, t Thresholds) Result {
	if bounds.Empty() {
		return Result{}
	}
	if t.Corner < t.Edge {
		t.Corner = t.Edge
	}

	nearLeft := abs(p.X-bounds.X) <= t.Edge
	nearRight := abs(bounds.Right()-p.X) <= t.Edge
	nearTop := abs(p.Y-bounds.Y) <= t.Edge
	nearBottom := abs(bounds.Bottom()-p.Y) <= t.Edge

	cornerLeft := abs(p.X-bounds.X) <= t.Corner
	cornerRight := abs(bounds.Right()-p.X) <= t.Corner
	cornerTop := abs(p.Y-bounds.Y) <= t.Corner
	cornerBottom := abs(bounds.Bottom()-p.Y) <= t.Corner

	var zone Zone
	switch {
	case cornerLeft && cornerTop:
		zone = ZoneTopLeft
	case cornerRight && cornerTop:
		zone = ZoneTopRight
	case cornerLeft && cornerBottom:
		zone = ZoneBottomLeft
	case cornerRight && cornerBottom:
		zone = ZoneBottomRight
	case nearTop && inMaximizeBand(bounds, p.X, t.MaximizeBandPercent):
		zone = ZoneMaximize
	case nearLeft:
		zone = ZoneLeft
	case nearRight:
		zone = ZoneRight
	case nearTop:
		zone = ZoneTop
	case nearBottom:
		zone = ZoneBottom
	default:
		return Result{}
	}

	return Result{Kind: zone.Kind(), Zone: zone, Rect: zone.Rect(bounds)}
}

func inMaximizeBand(bounds platform.Rect, x, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	band := bounds.Width * percent / 100
	start := bounds.X + (bounds.Width-band)/2
	return x >= start && x < start+band
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
