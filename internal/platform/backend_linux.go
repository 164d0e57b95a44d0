//go:build linux

package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/1broseidon/snaptile/internal/x11"
)

// LinuxBackend answers display queries from an X11 connection.
type LinuxBackend struct {
	display string
	conn    *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewBackend opens an X11 connection to display ("" means $DISPLAY).
func NewBackend(display string) (Backend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{display: display, conn: conn}, nil
}

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Displays returns all active displays sorted by ID.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}
	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})
	return displays, nil
}

// ActiveDisplay returns the display holding the focused window.
func (b *LinuxBackend) ActiveDisplay() (Display, error) {
	conn, err := b.connection()
	if err != nil {
		return Display{}, err
	}

	active, err := conn.ActiveMonitor()
	if err != nil {
		return Display{}, err
	}
	return displayFromMonitor(*active), nil
}

// WatchDisplays listens for RandR notifications on a second connection so
// the query connection is never blocked.
func (b *LinuxBackend) WatchDisplays(ctx context.Context, onChange func()) error {
	watchConn, err := x11.NewConnection(b.display)
	if err != nil {
		return fmt.Errorf("failed to open watch connection: %w", err)
	}
	return watchConn.WatchScreenChanges(ctx, onChange)
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:     m.ID,
		Name:   m.Name,
		Bounds: rectFromBox(m.Full),
		Usable: rectFromBox(m.Work),
	}
}

func rectFromBox(b x11.Box) Rect {
	return Rect{X: b.X1, Y: b.Y1, Width: b.Width(), Height: b.Height()}
}
