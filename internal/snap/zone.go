package snap

import "github.com/1broseidon/snaptile/internal/platform"

// Kind is the coarse snap state a window records.
type Kind string

const (
	KindNone     Kind = ""
	KindLeft     Kind = "left"
	KindRight    Kind = "right"
	KindTop      Kind = "top"
	KindBottom   Kind = "bottom"
	KindMaximize Kind = "maximize"
)

// State maps a classification kind to the state stored on a window.
// Maximize is stored as top.
func (k Kind) State() Kind {
	if k == KindMaximize {
		return KindTop
	}
	return k
}

// Zone identifies the exact target of a snap.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneLeft
	ZoneRight
	ZoneTop
	ZoneBottom
	ZoneMaximize
	ZoneTopLeft
	ZoneTopRight
	ZoneBottomLeft
	ZoneBottomRight
)

var zoneNames = map[Zone]string{
	ZoneNone:        "none",
	ZoneLeft:        "left",
	ZoneRight:       "right",
	ZoneTop:         "top",
	ZoneBottom:      "bottom",
	ZoneMaximize:    "maximize",
	ZoneTopLeft:     "top-left",
	ZoneTopRight:    "top-right",
	ZoneBottomLeft:  "bottom-left",
	ZoneBottomRight: "bottom-right",
}

// String returns the string representation of the zone
func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return "unknown"
}

// ParseZone is the inverse of Zone.String.
func ParseZone(s string) (Zone, bool) {
	if s == "" {
		return ZoneNone, true
	}
	for z, name := range zoneNames {
		if name == s {
			return z, true
		}
	}
	return ZoneNone, false
}

// MarshalText implements encoding.TextMarshaler.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// as ZoneNone.
func (z *Zone) UnmarshalText(b []byte) error {
	parsed, _ := ParseZone(string(b))
	*z = parsed
	return nil
}

// Kind returns the snap kind reported for the zone. Quadrants report the
// kind of their vertical half.
func (z Zone) Kind() Kind {
	switch z {
	case ZoneLeft:
		return KindLeft
	case ZoneRight:
		return KindRight
	case ZoneTop, ZoneTopLeft, ZoneTopRight:
		return KindTop
	case ZoneBottom, ZoneBottomLeft, ZoneBottomRight:
		return KindBottom
	case ZoneMaximize:
		return KindMaximize
	default:
		return KindNone
	}
}

// ZoneForKind returns the canonical zone of a stored snap state.
func ZoneForKind(k Kind) Zone {
	switch k {
	case KindLeft:
		return ZoneLeft
	case KindRight:
		return ZoneRight
	case KindTop, KindMaximize:
		return ZoneMaximize
	case KindBottom:
		return ZoneBottom
	default:
		return ZoneNone
	}
}

// Rect returns the canonical rectangle of z inside bounds. Right and bottom
// parts absorb odd remainders so the parts tile bounds exactly.
func (z Zone) Rect(bounds platform.Rect) platform.Rect {
	halfW := bounds.Width / 2
	halfH := bounds.Height / 2
	left := platform.Rect{X: bounds.X, Y: bounds.Y, Width: halfW, Height: bounds.Height}
	right := platform.Rect{X: bounds.X + halfW, Y: bounds.Y, Width: bounds.Width - halfW, Height: bounds.Height}

	switch z {
	case ZoneLeft:
		return left
	case ZoneRight:
		return right
	case ZoneTop:
		return platform.Rect{X: bounds.X, Y: bounds.Y, Width: bounds.Width, Height: halfH}
	case ZoneBottom:
		return platform.Rect{X: bounds.X, Y: bounds.Y + halfH, Width: bounds.Width, Height: bounds.Height - halfH}
	case ZoneMaximize:
		return bounds
	case ZoneTopLeft:
		left.Height = halfH
		return left
	case ZoneTopRight:
		right.Height = halfH
		return right
	case ZoneBottomLeft:
		left.Y += halfH
		left.Height = bounds.Height - halfH
		return left
	case ZoneBottomRight:
		right.Y += halfH
		right.Height = bounds.Height - halfH
		return right
	default:
		return platform.Rect{}
	}
}
