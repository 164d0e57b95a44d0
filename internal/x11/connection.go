// Package x11 reads monitor geometry from an X server and grabs keys on it.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection is one xgbutil connection plus the root window of its default
// screen.
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Display string
}

// NewConnection dials display. An empty display means $DISPLAY.
func NewConnection(display string) (*Connection, error) {
	dial := xgbutil.NewConn
	if display != "" {
		dial = func() (*xgbutil.XUtil, error) { return xgbutil.NewConnDisplay(display) }
	}
	xu, err := dial()
	if err != nil {
		if display == "" {
			display = "$DISPLAY"
		}
		return nil, fmt.Errorf("dial %s: %w", display, err)
	}
	return &Connection{XUtil: xu, Root: xu.RootWin(), Display: display}, nil
}

// Close disconnects. It is safe on a nil or closed connection.
func (c *Connection) Close() {
	if c == nil || c.XUtil == nil {
		return
	}
	c.XUtil.Conn().Close()
	c.XUtil = nil
}
