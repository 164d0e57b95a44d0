package desktop

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/persist"
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
	"github.com/1broseidon/snaptile/internal/wm"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bounds.Source = config.BoundsSourceViewport
	cfg.Bounds.ViewportWidth = 1000
	cfg.Bounds.ViewportHeight = 800
	cfg.Bounds.DebounceMS = 0
	cfg.Persistence.FrameIntervalMS = 0
	return cfg
}

type running struct {
	*Desktop
	stop func() error
}

func start(t *testing.T, cfg *config.Config, store persist.Store) *running {
	t.Helper()
	d, err := New(context.Background(), Options{Config: cfg, Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatalf("desktop did not stop")
			return nil
		}
	}
	t.Cleanup(func() { _ = stop() })
	return &running{Desktop: d, stop: stop}
}

func TestDesktop_DragToLeftEdgePersistsSnap(t *testing.T) {
	store := persist.NewMemStore()
	d := start(t, testConfig(), store)
	ctx := context.Background()

	info, err := d.CreateWindow(ctx, "Notes", nil, 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := info.Rect(); got != (platform.Rect{X: 80, Y: 60, Width: 640, Height: 400}) {
		t.Fatalf("unexpected initial rect %+v", got)
	}

	started, err := d.PointerDown(ctx, 1, info.ID, 0, platform.Point{X: 400, Y: 70})
	if err != nil || !started {
		t.Fatalf("expected drag to start (err=%v)", err)
	}
	if err := d.PointerMove(1, platform.Point{X: 0, Y: 400}, false); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := d.PointerUp(ctx, 1); err != nil {
		t.Fatalf("up: %v", err)
	}

	snapshot, err := d.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, _ := snapshot.Window(info.ID)
	if got.Rect() != (platform.Rect{X: 0, Y: 0, Width: 500, Height: 800}) || got.Snapped != snap.KindLeft {
		t.Fatalf("expected left snap, got %+v", got)
	}
	if snapshot.Preview != nil {
		t.Fatalf("expected preview cleared after commit")
	}

	if err := d.stop(); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := store.ReadDocument(ctx, persist.DefaultGeometryKey)
	if err != nil {
		t.Fatalf("expected geometry document: %v", err)
	}
	var geometry persist.GeometryMap
	if err := json.Unmarshal(data, &geometry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	saved := geometry["Notes"]
	if saved.Snapped != snap.KindLeft || saved.Prev == nil || *saved.Prev != (platform.Rect{X: 80, Y: 60, Width: 640, Height: 400}) {
		t.Fatalf("unexpected saved geometry %+v", saved)
	}
}

func TestDesktop_UsesSavedGeometry(t *testing.T) {
	store := persist.NewMemStore()
	doc := `{"Editor": {"x": 100, "y": 120, "w": 500, "h": 300}}`
	if err := store.WriteDocument(context.Background(), persist.DefaultGeometryKey, []byte(doc)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := start(t, testConfig(), store)

	info, err := d.CreateWindow(context.Background(), "Editor", nil, 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := info.Rect(); got != (platform.Rect{X: 100, Y: 120, Width: 500, Height: 300}) {
		t.Fatalf("expected saved rect, got %+v", got)
	}
}

func TestDesktop_RestoresSession(t *testing.T) {
	store := persist.NewMemStore()
	session := persist.Session{Windows: []persist.SessionWindow{
		{ID: 3, Title: "Terminal", Z: 7, Geometry: persist.Geometry{X: 10, Y: 10, W: 400, H: 300}},
		{ID: 5, Title: "Files", Z: 9, Geometry: persist.Geometry{X: 200, Y: 100, W: 500, H: 400}},
	}}
	data, _ := json.Marshal(session)
	if err := store.WriteDocument(context.Background(), persist.DefaultSessionKey, data); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg := testConfig()
	cfg.Persistence.RestoreSession = true
	d := start(t, cfg, store)

	snapshot, err := d.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Windows) != 2 || snapshot.ActiveID != 5 {
		t.Fatalf("expected restored session with Files active, got %+v", snapshot)
	}

	info, err := d.CreateWindow(context.Background(), "New", nil, 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.ID != 6 || info.Z != 10 {
		t.Fatalf("expected id and z to resume, got id=%d z=%d", info.ID, info.Z)
	}
}

func TestDesktop_ViewportChangeReclampsWindows(t *testing.T) {
	d := start(t, testConfig(), nil)
	ctx := context.Background()

	info, _ := d.CreateWindow(ctx, "Wide", nil, 900, 700)

	updates := make(chan wm.Snapshot, 16)
	unsubscribe, err := d.Subscribe(ctx, func(s wm.Snapshot) {
		select {
		case updates <- s:
		default:
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	<-updates

	if !d.SetViewport(platform.Rect{Width: 800, Height: 600}) {
		t.Fatalf("expected viewport change")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-updates:
			if s.Bounds != (platform.Rect{Width: 800, Height: 600}) {
				continue
			}
			w, _ := s.Window(info.ID)
			if !s.Bounds.Contains(w.Rect()) {
				t.Fatalf("window escapes new bounds: %+v", w.Rect())
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for bounds update")
		}
	}
}

func TestDesktop_CommandsAndTiling(t *testing.T) {
	d := start(t, testConfig(), nil)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		if _, err := d.CreateWindow(ctx, title, nil, 0, 0); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := d.Execute(ctx, "not-a-command"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := d.Tile(ctx, TileRequest{Layout: "missing"}); err == nil {
		t.Fatalf("expected missing layout error")
	}

	if err := d.Tile(ctx, TileRequest{Columns: 2}); err != nil {
		t.Fatalf("tile: %v", err)
	}
	s, _ := d.Snapshot(ctx)
	for _, id := range []int{2, 3} {
		w, _ := s.Window(id)
		if w.W != 500 || w.H != 800 {
			t.Fatalf("window %d not in a column: %+v", id, w)
		}
	}

	if err := d.Execute(ctx, wm.CommandMaximize); err != nil {
		t.Fatalf("maximize: %v", err)
	}
	s, _ = d.Snapshot(ctx)
	w, _ := s.Window(s.ActiveID)
	if w.Rect() != (platform.Rect{Width: 1000, Height: 800}) {
		t.Fatalf("expected maximized active window, got %+v", w)
	}

	if err := d.DoubleClick(ctx, s.ActiveID); err != nil {
		t.Fatalf("double click: %v", err)
	}
	s, _ = d.Snapshot(ctx)
	if w, _ := s.Window(s.ActiveID); w.Snapped != snap.KindNone {
		t.Fatalf("expected double click to restore, got %+v", w)
	}

	st, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Windows != 3 || st.BoundsSource != "viewport" || st.Persistence {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestDesktop_ApplyConfigRaisesMinimum(t *testing.T) {
	d := start(t, testConfig(), nil)
	ctx := context.Background()
	info, _ := d.CreateWindow(ctx, "small", nil, 360, 220)

	cfg := testConfig()
	cfg.Window.MinWidth = 500
	cfg.Window.DefaultWidth = 640
	if err := d.ApplyConfig(ctx, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, _ := d.Snapshot(ctx)
	if w, _ := s.Window(info.ID); w.W != 500 {
		t.Fatalf("expected width raised to 500, got %d", w.W)
	}

	bad := testConfig()
	bad.LogLevel = "loud"
	if err := d.ApplyConfig(ctx, bad); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}
}

func TestDesktop_KeyRunsBoundCommand(t *testing.T) {
	d := start(t, testConfig(), nil)
	ctx := context.Background()
	info, _ := d.CreateWindow(ctx, "Editor", nil, 0, 0)

	command, err := d.Key(ctx, "super+left")
	if err != nil || command != wm.CommandSnapLeft {
		t.Fatalf("Key = %q, %v", command, err)
	}
	s, _ := d.Snapshot(ctx)
	if w, _ := s.Window(info.ID); w.Snapped != snap.KindLeft {
		t.Fatalf("expected snapped left, got %+v", w)
	}

	command, err = d.Key(ctx, "ctrl+q")
	if err != nil || command != "" {
		t.Fatalf("expected unbound chord to be ignored, got %q, %v", command, err)
	}

	cfg := testConfig()
	cfg.Hotkeys.Bindings = map[string]string{"ctrl+q": wm.CommandCloseActive}
	if err := d.ApplyConfig(ctx, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if command, _ := d.Key(ctx, "Control-q"); command != wm.CommandCloseActive {
		t.Fatalf("expected rebound chord, got %q", command)
	}
	if s, _ := d.Snapshot(ctx); len(s.Windows) != 0 {
		t.Fatalf("expected active window closed, got %+v", s.Windows)
	}
	bindings, err := d.Hotkeys(ctx)
	if err != nil || len(bindings) != 1 || bindings[0].Chord != "Control-q" {
		t.Fatalf("unexpected bindings %+v, %v", bindings, err)
	}

	bad := testConfig()
	bad.Hotkeys.Bindings = map[string]string{"Mod4-x": "explode"}
	if err := d.ApplyConfig(ctx, bad); err == nil {
		t.Fatalf("expected unknown hotkey command to be rejected")
	}
}

func TestDesktop_StoppedRejectsWork(t *testing.T) {
	d := start(t, testConfig(), nil)
	if err := d.stop(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := d.Snapshot(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := d.PointerMove(1, platform.Point{}, false); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped for move, got %v", err)
	}
}

func TestTileRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TileRequest
		wantErr bool
	}{
		{"empty", TileRequest{}, false},
		{"columns", TileRequest{Columns: 3}, false},
		{"grid at cap", TileRequest{Rows: MaxTileDimension, Cols: MaxTileDimension}, false},
		{"negative columns", TileRequest{Columns: -1}, true},
		{"oversized columns", TileRequest{Columns: MaxTileDimension + 1}, true},
		{"oversized grid", TileRequest{Rows: 1, Cols: 1 << 40}, true},
		{"rows without cols", TileRequest{Rows: 2}, true},
		{"cols without rows", TileRequest{Cols: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%+v) = %v, wantErr %v", tt.req, err, tt.wantErr)
			}
		})
	}
}
