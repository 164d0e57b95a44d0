// Package desktop runs the window registry, gesture tracker and bounds
// provider together behind a single event loop.
package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/snaptile/internal/bounds"
	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/gesture"
	"github.com/1broseidon/snaptile/internal/hotkeys"
	"github.com/1broseidon/snaptile/internal/persist"
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/wm"
)

const loopBuffer = 256

// Options configures a Desktop.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Store backs geometry persistence. Nil disables persistence even when
	// the config enables it.
	Store persist.Store

	// OpenDisplay opens a display backend for the display bounds source.
	// Nil leaves the viewport as the only source.
	OpenDisplay bounds.OpenFunc
}

// Status summarizes the desktop for GET_STATUS.
type Status struct {
	Windows       int           `json:"windows"`
	ActiveID      int           `json:"active_id"`
	Bounds        platform.Rect `json:"bounds"`
	BoundsSource  string        `json:"bounds_source"`
	UsingFallback bool          `json:"using_fallback"`
	Gestures      int           `json:"gestures"`
	DefaultLayout string        `json:"default_layout"`
	Persistence   bool          `json:"persistence"`
	Uptime        string        `json:"uptime"`
}

// TileRequest selects a tiling operation. Columns wins over Rows/Cols,
// which win over Layout. An empty request applies the default layout.
type TileRequest struct {
	Layout  string `json:"layout,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Cols    int    `json:"cols,omitempty"`
}

// MaxTileDimension caps Columns, Rows and Cols of a TileRequest.
const MaxTileDimension = 64

// Validate rejects negative or oversized counts and a grid with only one of
// Rows and Cols set.
func (r TileRequest) Validate() error {
	for _, f := range []struct {
		name string
		n    int
	}{{"columns", r.Columns}, {"rows", r.Rows}, {"cols", r.Cols}} {
		if f.n < 0 || f.n > MaxTileDimension {
			return fmt.Errorf("%s must be between 0 and %d, got %d", f.name, MaxTileDimension, f.n)
		}
	}
	if (r.Rows > 0) != (r.Cols > 0) {
		return fmt.Errorf("rows and cols must be set together")
	}
	return nil
}

// Desktop owns one window registry. Its exported methods are safe for
// concurrent use; they run on the event loop.
type Desktop struct {
	logger   *slog.Logger
	loop     *Loop
	manager  *wm.Manager
	tracker  *gesture.Tracker
	provider *bounds.Provider
	viewport *bounds.ViewportSource
	display  *bounds.DisplaySource
	recorder *persist.Recorder
	started  time.Time

	// Loop-owned.
	cfg        *config.Config
	keymap     *hotkeys.Keymap
	frame      time.Duration
	frameTimer *time.Timer
}

// New builds a desktop from opts. Saved geometry and, when enabled, the
// saved session are loaded before it returns.
func New(ctx context.Context, opts Options) (*Desktop, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keymap, err := hotkeys.NewKeymap(cfg.Hotkeys.Bindings)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Desktop{
		logger:  logger,
		loop:    NewLoop(loopBuffer, logger),
		started: time.Now(),
		cfg:     cfg,
		keymap:  keymap,
		frame:   cfg.FrameInterval(),
	}

	d.viewport = bounds.NewViewportSource(platform.Rect{
		Width:  cfg.Bounds.ViewportWidth,
		Height: cfg.Bounds.ViewportHeight,
	})
	var primary bounds.Source = d.viewport
	providerOpts := []bounds.Option{
		bounds.WithDebounce(cfg.Debounce()),
		bounds.WithLogger(logger),
	}
	if cfg.Bounds.Source != config.BoundsSourceViewport {
		d.display = bounds.Detect(opts.OpenDisplay, cfg.Bounds.Display, logger)
		switch {
		case d.display != nil:
			primary = d.display
			providerOpts = append(providerOpts, bounds.WithFallback(d.viewport))
		case cfg.Bounds.Source == config.BoundsSourceDisplay:
			logger.Warn("display bounds unavailable, using viewport")
		}
	}
	d.provider = bounds.NewProvider(primary, providerOpts...)

	wmOpts := wm.OptionsFromConfig(cfg)
	wmOpts.Logger = logger
	var session persist.Session
	if cfg.Persistence.Enabled && opts.Store != nil {
		p := cfg.Persistence
		wmOpts.Geometry = persist.LoadGeometry(ctx, opts.Store, p.GeometryKey, logger)
		d.recorder = &persist.Recorder{
			Geometry: persist.NewWriter(opts.Store, p.GeometryKey, cfg.FrameInterval(), logger),
		}
		if p.RestoreSession {
			session = persist.LoadSession(ctx, opts.Store, p.SessionKey, logger)
			d.recorder.Session = persist.NewWriter(opts.Store, p.SessionKey, cfg.FrameInterval(), logger)
		}
		wmOpts.Recorder = d.recorder
	}

	d.manager = wm.NewManager(d.provider.Current(), wmOpts)
	if n := d.manager.RestoreSession(session); n > 0 {
		logger.Info("restored session", "windows", n)
	}
	d.tracker = gesture.NewTracker(d.manager)
	return d, nil
}

// Run drives the event loop and bounds watchers until ctx is done, then
// flushes persistence.
func (d *Desktop) Run(ctx context.Context) error {
	unsubscribe := d.provider.Subscribe(func(r platform.Rect) {
		d.loop.Post(func() { d.manager.SetBounds(r) })
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.loop.Run(gctx) })
	g.Go(func() error { return d.provider.Run(gctx) })
	err := g.Wait()

	if d.frameTimer != nil {
		d.frameTimer.Stop()
	}
	if cerr := d.recorder.Close(); cerr != nil {
		d.logger.Warn("failed to flush persistence", "error", cerr)
	}
	if d.display != nil {
		d.display.Close()
	}
	return err
}

// Done is closed once Run has stopped the event loop.
func (d *Desktop) Done() <-chan struct{} {
	return d.loop.Done()
}

// Snapshot returns the current observer view.
func (d *Desktop) Snapshot(ctx context.Context) (wm.Snapshot, error) {
	var s wm.Snapshot
	err := d.loop.Do(ctx, func() { s = d.manager.Snapshot() })
	return s, err
}

// CreateWindow opens a window and returns its projection. Zero sizes use
// the configured defaults.
func (d *Desktop) CreateWindow(ctx context.Context, title string, content any, w, h int) (wm.Info, error) {
	var info wm.Info
	err := d.loop.Do(ctx, func() {
		id := d.manager.Create(title, content, w, h)
		info, _ = d.manager.Snapshot().Window(id)
	})
	return info, err
}

// Focus raises id.
func (d *Desktop) Focus(ctx context.Context, id int) error {
	return d.loop.Do(ctx, func() { d.manager.Focus(id) })
}

// CloseWindow removes id.
func (d *Desktop) CloseWindow(ctx context.Context, id int) error {
	return d.loop.Do(ctx, func() { d.manager.Close(id) })
}

// Execute runs a named window command.
func (d *Desktop) Execute(ctx context.Context, name string) error {
	var cmdErr error
	if err := d.loop.Do(ctx, func() { cmdErr = d.manager.Execute(name) }); err != nil {
		return err
	}
	return cmdErr
}

// Key runs the command bound to chord and returns its name. An unbound
// chord returns "" and no error so the host can handle the key itself.
func (d *Desktop) Key(ctx context.Context, chord string) (string, error) {
	var (
		command string
		cmdErr  error
	)
	err := d.loop.Do(ctx, func() {
		var ok bool
		if command, ok = d.keymap.Lookup(chord); ok {
			cmdErr = d.manager.Execute(command)
		}
	})
	if err != nil {
		return "", err
	}
	return command, cmdErr
}

// Hotkeys returns the active key bindings.
func (d *Desktop) Hotkeys(ctx context.Context) ([]hotkeys.Binding, error) {
	var out []hotkeys.Binding
	err := d.loop.Do(ctx, func() { out = d.keymap.Bindings() })
	return out, err
}

// Tile runs the tiling operation selected by req.
func (d *Desktop) Tile(ctx context.Context, req TileRequest) error {
	var tileErr error
	err := d.loop.Do(ctx, func() {
		switch {
		case req.Columns > 0:
			d.manager.TileColumns(req.Columns)
		case req.Rows > 0 && req.Cols > 0:
			d.manager.TileGrid(req.Rows, req.Cols)
		default:
			tileErr = d.manager.TileLayout(req.Layout)
		}
	})
	if err != nil {
		return err
	}
	return tileErr
}

// Layouts returns the configured layout names and the default layout.
func (d *Desktop) Layouts(ctx context.Context) ([]string, string, error) {
	var names []string
	var def string
	err := d.loop.Do(ctx, func() { names, def = d.manager.Layouts() })
	return names, def, err
}

// PointerDown starts a drag (edge 0) or resize gesture on id for pointer.
// It reports whether a gesture started.
func (d *Desktop) PointerDown(ctx context.Context, pointer, id int, edge gesture.Edge, p platform.Point) (bool, error) {
	var started bool
	err := d.loop.Do(ctx, func() { started = d.tracker.Down(pointer, id, edge, p) })
	return started, err
}

// PointerMove records a pointer position. Moves are applied once per frame.
func (d *Desktop) PointerMove(pointer int, p platform.Point, suppressSnap bool) error {
	if !d.loop.Post(func() {
		d.tracker.Move(pointer, p, suppressSnap)
		d.scheduleFrame()
	}) {
		return ErrStopped
	}
	return nil
}

// PointerUp ends the gesture owned by pointer, applying its last move.
func (d *Desktop) PointerUp(ctx context.Context, pointer int) error {
	return d.loop.Do(ctx, func() { d.tracker.Up(pointer) })
}

// DoubleClick toggles id between maximized and its remembered geometry.
func (d *Desktop) DoubleClick(ctx context.Context, id int) error {
	return d.loop.Do(ctx, func() { d.tracker.DoubleClick(id) })
}

// Flush applies pending pointer moves now instead of at the next frame.
func (d *Desktop) Flush(ctx context.Context) error {
	return d.loop.Do(ctx, func() { d.flushFrame() })
}

// scheduleFrame arms the frame timer. Runs on the loop.
func (d *Desktop) scheduleFrame() {
	if d.frameTimer != nil || !d.tracker.Pending() {
		return
	}
	if d.frame <= 0 {
		d.tracker.Flush()
		return
	}
	d.frameTimer = time.AfterFunc(d.frame, func() {
		d.loop.Post(d.flushFrame)
	})
}

func (d *Desktop) flushFrame() {
	if d.frameTimer != nil {
		d.frameTimer.Stop()
		d.frameTimer = nil
	}
	d.tracker.Flush()
}

// SetViewport reports a new host viewport. It reports whether the viewport
// changed; bounds follow after the debounce interval.
func (d *Desktop) SetViewport(r platform.Rect) bool {
	return d.viewport.Set(r)
}

// Subscribe registers fn for every registry change. fn runs on the event
// loop and must not block; it is called once immediately.
func (d *Desktop) Subscribe(ctx context.Context, fn func(wm.Snapshot)) (unsubscribe func(), err error) {
	var unsub func()
	if err := d.loop.Do(ctx, func() { unsub = d.manager.Subscribe(fn) }); err != nil {
		return nil, err
	}
	return func() { d.loop.Post(unsub) }, nil
}

// ApplyConfig swaps in a reloaded config. Sizes, thresholds, layouts, key
// bindings and the frame interval apply immediately; bounds, persistence and
// global key grabs take effect on restart.
func (d *Desktop) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	keymap, err := hotkeys.NewKeymap(cfg.Hotkeys.Bindings)
	if err != nil {
		return err
	}
	return d.loop.Do(ctx, func() {
		if cfg.Bounds != d.cfg.Bounds || cfg.Persistence != d.cfg.Persistence {
			d.logger.Info("bounds and persistence settings apply after restart")
		}
		d.cfg = cfg
		d.keymap = keymap
		d.frame = cfg.FrameInterval()
		d.manager.Reconfigure(wm.OptionsFromConfig(cfg))
	})
}

// Status reports a summary of the desktop.
func (d *Desktop) Status(ctx context.Context) (Status, error) {
	var st Status
	err := d.loop.Do(ctx, func() {
		_, def := d.manager.Layouts()
		st = Status{
			Windows:       d.manager.Len(),
			ActiveID:      d.manager.ActiveID(),
			Bounds:        d.manager.Bounds(),
			BoundsSource:  d.boundsSource(),
			UsingFallback: d.provider.UsingFallback(),
			Gestures:      d.tracker.Active(),
			DefaultLayout: def,
			Persistence:   d.recorder != nil,
			Uptime:        time.Since(d.started).Round(time.Second).String(),
		}
	})
	return st, err
}

func (d *Desktop) boundsSource() string {
	if d.display == nil || d.provider.UsingFallback() {
		return string(config.BoundsSourceViewport)
	}
	return string(config.BoundsSourceDisplay)
}

// Reconcile re-queries bounds and flushes pending persistence writes. It
// catches display changes whose notifications were missed.
func (d *Desktop) Reconcile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.provider.Resolve()
	if d.recorder == nil {
		return nil
	}
	for _, w := range []*persist.Writer{d.recorder.Geometry, d.recorder.Session} {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush persistence: %w", err)
		}
	}
	return nil
}
