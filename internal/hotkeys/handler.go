package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/snaptile/internal/x11"
)

// Handler grabs global X11 hotkeys on a dedicated connection and runs their
// callbacks from its event loop.
type Handler struct {
	conn   *x11.Connection
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler connects to display ("" means $DISPLAY) for key grabs.
func NewHandler(display string, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to open hotkey connection: %w", err)
	}
	keybind.Initialize(conn.XUtil)

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})

	return &Handler{conn: conn, logger: logger}, nil
}

// Register grabs every binding in km. A chord the server refuses is logged
// and skipped. It returns the number of grabbed chords.
func (h *Handler) Register(km *Keymap, dispatch func(command string)) int {
	grabbed := 0
	for _, b := range km.Bindings() {
		command := b.Command
		if err := h.RegisterFunc(b.Chord, func() { dispatch(command) }); err != nil {
			h.logger.Warn("failed to grab hotkey", "chord", b.Chord, "command", command, "error", err)
			continue
		}
		h.logger.Debug("hotkey grabbed", "chord", b.Chord, "command", command)
		grabbed++
	}
	return grabbed
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.conn.XUtil, h.conn.Root, keySequence, true)
}

// Run processes key events until ctx is done, then closes the connection.
func (h *Handler) Run(ctx context.Context) error {
	xu := h.conn.XUtil
	done := make(chan struct{})
	go func() {
		defer close(done)
		xevent.Main(xu)
	}()

	select {
	case <-ctx.Done():
		xevent.Quit(xu)
		// Closing the connection wakes the blocked event read.
		h.conn.Close()
		<-done
		return ctx.Err()
	case <-done:
		h.conn.Close()
		return fmt.Errorf("hotkey event loop exited")
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
