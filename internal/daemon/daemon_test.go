package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/ipc"
	"github.com/1broseidon/snaptile/internal/persist"
	"github.com/1broseidon/snaptile/internal/platform"
)

func noDisplay(string) (platform.Backend, error) {
	return nil, errors.New("no display")
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestRun_ServesIPCAndReloads(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, cfgPath, "bounds:\n  source: viewport\n  viewport_width: 1000\n  viewport_height: 800\n")

	store := persist.NewMemStore()
	ready := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			ConfigPath:        cfgPath,
			SocketPath:        filepath.Join(dir, "d.sock"),
			ReconcileInterval: 10 * time.Millisecond,
			OpenDisplay:       noDisplay,
			Store:             store,
			Ready:             func(socket string) { ready <- socket },
		})
	}()

	var socket string
	select {
	case socket = <-ready:
	case err := <-done:
		t.Fatalf("daemon exited early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("daemon did not become ready")
	}

	client := ipc.NewClientWithSocket(socket)
	w, err := client.CreateWindow("Terminal", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.W != 640 {
		t.Fatalf("expected default width, got %d", w.W)
	}

	writeConfig(t, cfgPath, "bounds:\n  source: viewport\n  viewport_width: 1000\n  viewport_height: 800\nwindow:\n  min_width: 700\n  default_width: 700\n")
	if err := client.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snapshot, err := client.ListWindows()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got, _ := snapshot.Window(w.ID); got.W != 700 {
		t.Fatalf("expected reload to raise width to 700, got %d", got.W)
	}

	writeConfig(t, cfgPath, "window:\n  min_width: -1\n")
	if err := client.Reload(); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}

	// The reconciler flushes persistence on its next pass.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := store.ReadDocument(context.Background(), persist.DefaultGeometryKey); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("geometry was never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("daemon did not stop")
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, got %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, cfgPath, "log_level: loud\n")

	err := Run(context.Background(), Options{ConfigPath: cfgPath, OpenDisplay: noDisplay})
	if err == nil {
		t.Fatalf("expected config error")
	}
	var verr *config.ValidationError
	if !errors.As(err, &verr) || verr.Path != "log_level" {
		t.Fatalf("expected validation error for log_level, got %v", err)
	}
}

func TestRun_HotkeysWithoutDisplay(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, cfgPath, "bounds:\n  source: viewport\n  display: \":99\"\nhotkeys:\n  grab: true\n")

	ready := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			ConfigPath:  cfgPath,
			SocketPath:  filepath.Join(dir, "d.sock"),
			OpenDisplay: noDisplay,
			Store:       persist.NewMemStore(),
			Ready:       func(socket string) { ready <- socket },
		})
	}()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Errorf("daemon did not stop")
		}
	}()

	var socket string
	select {
	case socket = <-ready:
	case err := <-done:
		t.Fatalf("daemon exited early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("daemon did not become ready")
	}

	// Without a display the grabs are skipped but forwarded keys still work.
	client := ipc.NewClientWithSocket(socket)
	if _, err := client.CreateWindow("Terminal", 0, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := client.Key("Mod4-Up")
	if err != nil || data.Command != "maximize" {
		t.Fatalf("key = %+v, %v", data, err)
	}
}

func TestRun_UnknownHotkeyCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, cfgPath, "hotkeys:\n  bindings:\n    Mod4-x: explode\n")

	if err := Run(context.Background(), Options{ConfigPath: cfgPath, OpenDisplay: noDisplay}); err == nil {
		t.Fatalf("expected unknown hotkey command to fail startup")
	}
}

type recordingTarget struct {
	applied atomic.Int32
	fail    error
}

func (r *recordingTarget) ApplyConfig(context.Context, *config.Config) error {
	if r.fail != nil {
		return r.fail
	}
	r.applied.Add(1)
	return nil
}

func TestReloader_AppliesAndSetsLevel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, cfgPath, "log_level: debug\n")

	level := new(slog.LevelVar)
	target := &recordingTarget{}
	r := NewReloader(cfgPath, target, level, nil)

	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if target.applied.Load() != 1 || level.Level() != slog.LevelDebug {
		t.Fatalf("expected config applied at debug level, got %d %v", target.applied.Load(), level.Level())
	}
	if r.Current() == nil || r.Current().LogLevel != "debug" {
		t.Fatalf("expected current config to be tracked")
	}

	target.fail = errors.New("busy")
	writeConfig(t, cfgPath, "log_level: error\n")
	if err := r.Reload(context.Background()); err == nil {
		t.Fatalf("expected apply failure")
	}
	if level.Level() != slog.LevelDebug || r.Current().LogLevel != "debug" {
		t.Fatalf("expected failed reload to keep the running config")
	}
}

type countingTarget struct {
	calls atomic.Int32
	err   error
}

func (c *countingTarget) Reconcile(context.Context) error {
	c.calls.Add(1)
	if c.calls.Load() == 2 {
		panic("drift")
	}
	return c.err
}

func TestReconciler_RunsAndRecovers(t *testing.T) {
	target := &countingTarget{err: errors.New("disk full")}
	r := NewReconciler(ReconcilerConfig{Interval: 5 * time.Millisecond}, target)

	r.ReconcileNow(context.Background())
	if target.calls.Load() != 1 || r.failures != 1 {
		t.Fatalf("expected one failed pass, got calls=%d failures=%d", target.calls.Load(), r.failures)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for target.calls.Load() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("reconciler did not keep running after a panic")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
