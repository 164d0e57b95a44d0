package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/desktop"
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
)

func startServer(t *testing.T, reload func(context.Context) error) (*Server, *Client) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Bounds.Source = config.BoundsSourceViewport
	cfg.Bounds.ViewportWidth = 1000
	cfg.Bounds.ViewportHeight = 800
	cfg.Bounds.DebounceMS = 0
	cfg.Persistence.FrameIntervalMS = 0

	d, err := desktop.New(context.Background(), desktop.Options{Config: cfg})
	if err != nil {
		t.Fatalf("desktop: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	socket := filepath.Join(t.TempDir(), "s.sock")
	srv, err := NewServer(ServerConfig{SocketPath: socket, Desktop: d, Reload: reload})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		cancel()
		<-done
	})
	return srv, NewClientWithSocket(socket)
}

func TestServer_WindowLifecycle(t *testing.T) {
	_, client := startServer(t, nil)

	a, err := client.CreateWindow("alpha", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := client.CreateWindow("beta", 500, 300)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != 1 || b.ID != 2 || b.W != 500 {
		t.Fatalf("unexpected windows %+v %+v", a, b)
	}

	if err := client.Focus(a.ID); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if err := client.Command("snap-right"); err != nil {
		t.Fatalf("command: %v", err)
	}
	snapshot, err := client.ListWindows()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got, _ := snapshot.Window(a.ID)
	if snapshot.ActiveID != a.ID || got.Rect() != (platform.Rect{X: 500, Width: 500, Height: 800}) {
		t.Fatalf("expected alpha snapped right and active, got %+v", snapshot)
	}

	if err := client.Close(b.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Windows != 1 || !status.DaemonRunning || status.Bounds.Width != 1000 {
		t.Fatalf("unexpected status %+v", status)
	}

	layouts, err := client.ListLayouts()
	if err != nil {
		t.Fatalf("layouts: %v", err)
	}
	if layouts.DefaultLayout != config.DefaultBuiltinLayout || len(layouts.Layouts) == 0 {
		t.Fatalf("unexpected layouts %+v", layouts)
	}
}

func TestServer_PointerDragSnapsLeft(t *testing.T) {
	_, client := startServer(t, nil)

	w, err := client.CreateWindow("doc", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	started, err := client.PointerDown(PointerPayload{Pointer: 7, ID: w.ID, X: 400, Y: 70})
	if err != nil || !started {
		t.Fatalf("expected drag to start: %v", err)
	}
	if err := client.PointerMove(PointerPayload{Pointer: 7, X: 0, Y: 400}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := client.PointerUp(7); err != nil {
		t.Fatalf("up: %v", err)
	}

	snapshot, _ := client.ListWindows()
	got, _ := snapshot.Window(w.ID)
	if got.Snapped != snap.KindLeft || got.Rect() != (platform.Rect{Width: 500, Height: 800}) {
		t.Fatalf("expected left snap, got %+v", got)
	}

	if err := client.DoubleClick(w.ID); err != nil {
		t.Fatalf("double click: %v", err)
	}
	snapshot, _ = client.ListWindows()
	if got, _ := snapshot.Window(w.ID); got.Rect() != (platform.Rect{Width: 1000, Height: 800}) {
		t.Fatalf("expected maximize from double click, got %+v", got)
	}

	if _, err := client.PointerDown(PointerPayload{Pointer: 1, ID: w.ID, Edge: "ns"}); err == nil {
		t.Fatalf("expected invalid edge error")
	}
}

func TestServer_RejectsBadRequests(t *testing.T) {
	srv, client := startServer(t, nil)

	if err := client.Command("explode"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if err := client.Focus(0); err == nil {
		t.Fatalf("expected id validation error")
	}
	if err := client.Reload(); err == nil {
		t.Fatalf("expected reload to be unsupported without a handler")
	}
	if _, err := client.SetViewport(ViewportPayload{Width: 0, Height: 10}); err == nil {
		t.Fatalf("expected empty viewport error")
	}
	if err := client.Tile(desktop.TileRequest{Rows: 1, Cols: 1 << 40}); err == nil || !strings.Contains(err.Error(), "between 0 and") {
		t.Fatalf("expected oversized grid to be rejected, got %v", err)
	}
	if err := client.Tile(desktop.TileRequest{Rows: 2}); err == nil {
		t.Fatalf("expected rows without cols to be rejected")
	}

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)

	lines := []string{
		"not json",
		`{"command":"FLY"}`,
		`{"command":"FOCUS"}`,
		`{"command":"LIST_WINDOWS"}`,
	}
	for _, line := range lines {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var statuses []string
	for range lines {
		data, err := reader.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		statuses = append(statuses, resp.Status)
	}
	want := []string{StatusError, StatusError, StatusError, StatusOK}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("response %d: got %s, want %s", i, statuses[i], want[i])
		}
	}
}

func TestServer_KeyRunsBinding(t *testing.T) {
	_, client := startServer(t, nil)

	w, err := client.CreateWindow("doc", 0, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := client.Key("super+up")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if !data.Handled || data.Command != "maximize" {
		t.Fatalf("unexpected key result %+v", data)
	}
	snapshot, _ := client.ListWindows()
	if got, _ := snapshot.Window(w.ID); got.Rect() != (platform.Rect{Width: 1000, Height: 800}) {
		t.Fatalf("expected maximized window, got %+v", got)
	}

	data, err = client.Key("ctrl+q")
	if err != nil || data.Handled {
		t.Fatalf("expected unbound chord, got %+v, %v", data, err)
	}
	if _, err := client.Key("hyper+q"); err == nil {
		t.Fatalf("expected invalid chord error")
	}

	hk, err := client.ListHotkeys()
	if err != nil {
		t.Fatalf("hotkeys: %v", err)
	}
	if len(hk.Bindings) != len(config.DefaultBindings()) {
		t.Fatalf("unexpected bindings %+v", hk.Bindings)
	}
}

func TestServer_Reload(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool
	_, client := startServer(t, func(context.Context) error {
		calls.Add(1)
		if fail.Load() {
			return errors.New("bad yaml")
		}
		return nil
	})

	if err := client.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	fail.Store(true)
	if err := client.Reload(); err == nil || !strings.Contains(err.Error(), "bad yaml") {
		t.Fatalf("expected reload error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected two reloads, got %d", calls.Load())
	}
}

func TestServer_SubscribeStreamsLatestSnapshot(t *testing.T) {
	_, client := startServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan SnapshotEvent, 64)
	done := make(chan error, 1)
	go func() {
		done <- client.Subscribe(ctx, func(e SnapshotEvent) { events <- e })
	}()

	first := waitEvent(t, events)
	if first.Subscriber == "" || first.Seq != 1 || len(first.Snapshot.Windows) != 0 {
		t.Fatalf("unexpected initial event %+v", first)
	}

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Subscribers != 1 {
		t.Fatalf("expected one subscriber, got %d", status.Subscribers)
	}

	if _, err := client.CreateWindow("watched", 0, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	for {
		e := waitEvent(t, events)
		if e.Subscriber != first.Subscriber {
			t.Fatalf("subscriber id changed: %s != %s", e.Subscriber, first.Subscriber)
		}
		if len(e.Snapshot.Windows) == 1 && e.Snapshot.Windows[0].Title == "watched" {
			break
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscribe did not return after cancel")
	}
}

func waitEvent(t *testing.T, events <-chan SnapshotEvent) SnapshotEvent {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot event")
		return SnapshotEvent{}
	}
}
