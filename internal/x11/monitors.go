package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display and the part of it windows may use.
type Monitor struct {
	ID   int
	Name string
	Full Box
	Work Box
}

// Box is a half-open rectangle [X1,X2) x [Y1,Y2) in root coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Width returns the horizontal extent of b.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of b.
func (b Box) Height() int { return b.Y2 - b.Y1 }

func (b Box) empty() bool { return b.X2 <= b.X1 || b.Y2 <= b.Y1 }

func (b Box) intersect(o Box) Box {
	out := Box{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}
	if out.empty() {
		return Box{}
	}
	return out
}

func (b Box) containsPoint(x, y int) bool {
	return x >= b.X1 && x < b.X2 && y >= b.Y1 && y < b.Y2
}

// GetMonitors retrieves all active monitors using XRandR. Work areas are not
// applied; see ActiveMonitor.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTCs report a zero mode.
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		full := Box{
			X1: int(info.X),
			Y1: int(info.Y),
			X2: int(info.X) + int(info.Width),
			Y2: int(info.Y) + int(info.Height),
		}
		monitors = append(monitors, Monitor{ID: i, Name: name, Full: full, Work: full})
	}

	return monitors, nil
}

// ActiveMonitor returns the monitor holding the focused window, falling back
// to the one under the pointer and then the first monitor. Its Work box
// excludes dock struts, or the EWMH work area when no dock reserves space.
func (c *Connection) ActiveMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	active := c.monitorForActiveWindow(monitors)
	if active == nil {
		active = c.monitorForPointer(monitors)
	}
	if active == nil {
		active = &monitors[0]
	}

	if work, ok := c.strutWorkArea(active.Full); ok {
		active.Work = work
	} else if work, ok := c.ewmhWorkArea(active.Full); ok {
		active.Work = work
	}
	return active, nil
}

func (c *Connection) ewmhWorkArea(full Box) (Box, bool) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(areas) == 0 {
		return Box{}, false
	}
	idx := 0
	if desktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(desktop) < len(areas) {
		idx = int(desktop)
	}
	wa := areas[idx]
	work := full.intersect(Box{
		X1: wa.X,
		Y1: wa.Y,
		X2: wa.X + int(wa.Width),
		Y2: wa.Y + int(wa.Height),
	})
	if work.empty() {
		return Box{}, false
	}
	return work, true
}

// strutWorkArea shrinks full by the struts of every dock window that
// overlaps it.
func (c *Connection) strutWorkArea(full Box) (Box, bool) {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return Box{}, false
	}
	rootW, rootH := int(rootGeom.Width), int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return Box{}, false
	}

	var left, right, top, bottom int
	for _, win := range clients {
		if !isDock(c, win) {
			continue
		}
		sp, err := ewmh.WmStrutPartialGet(c.XUtil, win)
		if err != nil {
			// Some docks only set _NET_WM_STRUT.
			s, err := ewmh.WmStrutGet(c.XUtil, win)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftEndY: uint(rootH - 1), RightEndY: uint(rootH - 1),
				TopEndX: uint(rootW - 1), BottomEndX: uint(rootW - 1),
			}
		}

		if sp.Top > 0 {
			top = max(top, full.intersect(Box{int(sp.TopStartX), 0, int(sp.TopEndX) + 1, int(sp.Top)}).Height())
		}
		if sp.Bottom > 0 {
			bottom = max(bottom, full.intersect(Box{int(sp.BottomStartX), rootH - int(sp.Bottom), int(sp.BottomEndX) + 1, rootH}).Height())
		}
		if sp.Left > 0 {
			left = max(left, full.intersect(Box{0, int(sp.LeftStartY), int(sp.Left), int(sp.LeftEndY) + 1}).Width())
		}
		if sp.Right > 0 {
			right = max(right, full.intersect(Box{rootW - int(sp.Right), int(sp.RightStartY), rootW, int(sp.RightEndY) + 1}).Width())
		}
	}

	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return Box{}, false
	}
	work := Box{X1: full.X1 + left, Y1: full.Y1 + top, X2: full.X2 - right, Y2: full.Y2 - bottom}
	if work.Width() < 1 {
		work.X2 = work.X1 + 1
	}
	if work.Height() < 1 {
		work.Y2 = work.Y1 + 1
	}
	return work, true
}

func isDock(c *Connection, win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

func (c *Connection) monitorForActiveWindow(monitors []Monitor) *Monitor {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil || win == 0 {
		return nil
	}
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return nil
	}
	pos, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return nil
	}
	cx := int(pos.DstX) + int(geom.Width)/2
	cy := int(pos.DstY) + int(geom.Height)/2
	return monitorAt(monitors, cx, cy)
}

func (c *Connection) monitorForPointer(monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}
	return monitorAt(monitors, int(pointer.RootX), int(pointer.RootY))
}

func monitorAt(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		if monitors[i].Full.containsPoint(x, y) {
			return &monitors[i]
		}
	}
	return nil
}
