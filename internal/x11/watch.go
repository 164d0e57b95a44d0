package x11

import (
	"context"
	"fmt"

	"github.com/BurntSushi/xgb/randr"
)

// WatchScreenChanges calls onChange for every RandR screen, CRTC or output
// change. It blocks until ctx is done or the connection drops. Cancelling ctx
// closes the connection, so callers should give it a dedicated Connection.
func (c *Connection) WatchScreenChanges(ctx context.Context, onChange func()) error {
	conn := c.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		c.Close()
		return fmt.Errorf("randr init failed: %w", err)
	}

	mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
	if err := randr.SelectInputChecked(conn, c.Root, mask).Check(); err != nil {
		c.Close()
		return fmt.Errorf("randr select input failed: %w", err)
	}

	stop := context.AfterFunc(ctx, c.Close)
	defer func() {
		if stop() {
			c.Close()
		}
	}()

	for {
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("x11 connection closed")
		}
		if xerr != nil {
			continue
		}
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			onChange()
		}
	}
}
