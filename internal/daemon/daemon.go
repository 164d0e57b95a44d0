// Package daemon wires the desktop, IPC server, config watcher, reconciler
// and global hotkeys into the long-running snaptile process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/snaptile/internal/bounds"
	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/hotkeys"
	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/persist"
	"github.com/1broseidon/snaptile/internal/platform"
)

// Options configures Run.
type Options struct {
	// ConfigPath defaults to config.DefaultConfigPath().
	ConfigPath string
	// SocketPath defaults to the runtime socket path.
	SocketPath string
	// ReconcileInterval defaults to DefaultReconcileInterval.
	ReconcileInterval time.Duration
	// OpenDisplay defaults to platform.NewBackend.
	OpenDisplay bounds.OpenFunc
	// Store overrides the file store built from the config.
	Store persist.Store
	// Signals enables SIGHUP reload and SIGINT/SIGTERM shutdown.
	Signals bool
	// Ready, when set, is called once the IPC server is listening.
	Ready func(socketPath string)
}

// Run starts the daemon and blocks until ctx is done or a shutdown signal
// arrives.
func Run(ctx context.Context, opts Options) error {
	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	logger.Info("configuration loaded", "path", path, "files", len(res.Files), "default_layout", cfg.DefaultLayout)

	open := opts.OpenDisplay
	if open == nil {
		open = platform.NewBackend
	}
	store := opts.Store
	if store == nil {
		store = newStore(cfg, logger)
	}

	desk, err := desktop.New(ctx, desktop.Options{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		OpenDisplay: open,
	})
	if err != nil {
		return fmt.Errorf("failed to create desktop: %w", err)
	}

	reloader := &Reloader{
		path:    path,
		target:  desk,
		level:   level,
		logger:  logger,
		current: cfg,
	}

	server, err := ipc.NewServer(ipc.ServerConfig{
		SocketPath: opts.SocketPath,
		Desktop:    desk,
		Reload:     reloader.Reload,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create IPC server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return desk.Run(gctx) })

	if err := server.Start(); err != nil {
		cancel()
		g.Wait()
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		server.Stop()
		return nil
	})

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: opts.ReconcileInterval,
		Logger:   logger,
	}, desk)
	g.Go(func() error { return reconciler.Run(gctx) })

	g.Go(func() error {
		if err := config.Watch(gctx, path, logger, func() { reloader.ReloadLogged(gctx, "file change") }); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
		return nil
	})

	if cfg.Hotkeys.Grab {
		g.Go(func() error {
			runHotkeys(gctx, cfg, desk, logger)
			return nil
		})
	}

	if opts.Signals {
		g.Go(func() error {
			handleSignals(gctx, cancel, reloader, logger)
			return nil
		})
	}

	logger.Info("snaptile daemon started", "socket", server.SocketPath())
	if opts.Ready != nil {
		opts.Ready(server.SocketPath())
	}

	err = g.Wait()
	logger.Info("snaptile daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runHotkeys grabs the configured bindings on the X display until ctx is
// done. A missing display only disables the grabs.
func runHotkeys(ctx context.Context, cfg *config.Config, desk *desktop.Desktop, logger *slog.Logger) {
	km, err := hotkeys.NewKeymap(cfg.Hotkeys.Bindings)
	if err != nil {
		logger.Warn("hotkeys disabled", "error", err)
		return
	}
	handler, err := hotkeys.NewHandler(cfg.Bounds.Display, logger)
	if err != nil {
		logger.Warn("hotkeys disabled", "error", err)
		return
	}
	n := handler.Register(km, func(command string) {
		logger.Debug("hotkey pressed", "command", command)
		if err := desk.Execute(ctx, command); err != nil {
			logger.Warn("hotkey command failed", "command", command, "error", err)
		}
	})
	logger.Info("hotkeys grabbed", "count", n)
	if err := handler.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("hotkey loop stopped", "error", err)
	}
}

func newStore(cfg *config.Config, logger *slog.Logger) persist.Store {
	files := persist.NewFileStore(cfg.Persistence.Dir)
	logger.Debug("persistence directory", "dir", files.Dir())
	return &persist.FallbackStore{
		Primary:   files,
		Secondary: persist.NewMemStore(),
		Logger:    logger,
	}
}

func handleSignals(ctx context.Context, shutdown context.CancelFunc, reloader *Reloader, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Info("received SIGHUP, reloading config")
				reloader.ReloadLogged(ctx, "SIGHUP")
			default:
				logger.Info("shutting down snaptile daemon", "signal", sig.String())
				shutdown()
				return
			}
		}
	}
}

// ConfigTarget receives reloaded configuration.
type ConfigTarget interface {
	ApplyConfig(ctx context.Context, cfg *config.Config) error
}

// Reloader re-reads the config file and applies it. A config that fails to
// load or validate is rejected and the running one is kept.
type Reloader struct {
	path   string
	target ConfigTarget
	level  *slog.LevelVar
	logger *slog.Logger

	mu      sync.Mutex
	current *config.Config
}

// NewReloader returns a reloader for path.
func NewReloader(path string, target ConfigTarget, level *slog.LevelVar, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{path: path, target: target, level: level, logger: logger}
}

// Reload loads and applies the config file.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := config.LoadFromPath(r.path)
	if err != nil {
		return err
	}
	if err := r.target.ApplyConfig(ctx, res.Config); err != nil {
		return err
	}
	if r.level != nil {
		r.level.Set(res.Config.SlogLevel())
	}
	r.current = res.Config
	r.logger.Info("config reloaded", "default_layout", res.Config.DefaultLayout)
	return nil
}

// ReloadLogged reloads and logs a failure instead of returning it.
func (r *Reloader) ReloadLogged(ctx context.Context, reason string) {
	if err := r.Reload(ctx); err != nil {
		r.logger.Warn("config reload failed", "reason", reason, "error", err)
	}
}

// Current returns the last applied config.
func (r *Reloader) Current() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
