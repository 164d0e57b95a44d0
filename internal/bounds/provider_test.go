package bounds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/snaptile/internal/platform"
)

type fakeSource struct {
	mu   sync.Mutex
	rect platform.Rect
	err  error
}

func (s *fakeSource) Bounds() (platform.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rect, s.err
}

func (s *fakeSource) set(r platform.Rect, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rect, s.err = r, err
}

type fakeBackend struct {
	display platform.Display
	err     error
	closed  bool
	watch   chan struct{}
}

func (b *fakeBackend) Displays() ([]platform.Display, error) {
	return []platform.Display{b.display}, b.err
}

func (b *fakeBackend) ActiveDisplay() (platform.Display, error) {
	return b.display, b.err
}

func (b *fakeBackend) WatchDisplays(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.watch:
			onChange()
		}
	}
}

func (b *fakeBackend) Close() { b.closed = true }

type rectRecorder struct {
	mu    sync.Mutex
	rects []platform.Rect
	ch    chan platform.Rect
}

func newRectRecorder() *rectRecorder {
	return &rectRecorder{ch: make(chan platform.Rect, 16)}
}

func (r *rectRecorder) record(rect platform.Rect) {
	r.mu.Lock()
	r.rects = append(r.rects, rect)
	r.mu.Unlock()
	r.ch <- rect
}

func (r *rectRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rects)
}

func (r *rectRecorder) wait(t *testing.T) platform.Rect {
	t.Helper()
	select {
	case rect := <-r.ch:
		return rect
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for bounds change")
		return platform.Rect{}
	}
}

var (
	viewportRect = platform.Rect{X: 0, Y: 0, Width: 1280, Height: 800}
	displayRect  = platform.Rect{X: 0, Y: 32, Width: 1920, Height: 1048}
)

func TestProvider_PrimaryThenSilentFallback(t *testing.T) {
	primary := &fakeSource{rect: displayRect}
	viewport := NewViewportSource(viewportRect)

	p := NewProvider(primary, WithFallback(viewport), WithDebounce(0))
	if p.Current() != displayRect || p.UsingFallback() {
		t.Fatalf("expected display bounds, got %+v (fallback=%v)", p.Current(), p.UsingFallback())
	}

	primary.set(platform.Rect{}, errors.New("no randr"))
	if got := p.Resolve(); got != viewportRect {
		t.Fatalf("expected viewport fallback, got %+v", got)
	}
	if !p.UsingFallback() {
		t.Fatalf("expected fallback flag")
	}

	primary.set(displayRect, nil)
	if got := p.Resolve(); got != displayRect || p.UsingFallback() {
		t.Fatalf("expected recovery to display bounds, got %+v", got)
	}
}

func TestProvider_KeepsLastBoundsWhenEverythingFails(t *testing.T) {
	primary := &fakeSource{rect: viewportRect}
	p := NewProvider(primary, WithDebounce(0))

	primary.set(platform.Rect{}, errors.New("gone"))
	if got := p.Resolve(); got != viewportRect {
		t.Fatalf("expected last bounds kept, got %+v", got)
	}
}

func TestProvider_SubscribeImmediateAndOnChange(t *testing.T) {
	primary := &fakeSource{rect: viewportRect}
	p := NewProvider(primary, WithDebounce(0))

	rec := newRectRecorder()
	unsubscribe := p.Subscribe(rec.record)
	if got := rec.wait(t); got != viewportRect {
		t.Fatalf("expected immediate delivery of %+v, got %+v", viewportRect, got)
	}

	p.Refresh()
	if rec.count() != 1 {
		t.Fatalf("expected no delivery for unchanged bounds")
	}

	primary.set(displayRect, nil)
	p.Refresh()
	if got := rec.wait(t); got != displayRect {
		t.Fatalf("expected %+v, got %+v", displayRect, got)
	}

	unsubscribe()
	primary.set(viewportRect, nil)
	p.Refresh()
	if rec.count() != 2 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", rec.count())
	}
}

func TestProvider_DebounceCoalescesBurst(t *testing.T) {
	primary := &fakeSource{rect: viewportRect}
	p := NewProvider(primary, WithDebounce(20*time.Millisecond))

	rec := newRectRecorder()
	p.Subscribe(rec.record)
	rec.wait(t)

	for i := 1; i <= 10; i++ {
		primary.set(platform.Rect{Width: 1000 + i, Height: 700}, nil)
		p.Refresh()
	}

	if got := rec.wait(t); got.Width != 1010 {
		t.Fatalf("expected the final size, got %+v", got)
	}
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 2 {
		t.Fatalf("expected one debounced delivery, got %d", rec.count()-1)
	}
}

func TestProvider_RunRefreshesOnViewportChange(t *testing.T) {
	viewport := NewViewportSource(viewportRect)
	p := NewProvider(viewport, WithDebounce(time.Millisecond))

	rec := newRectRecorder()
	p.Subscribe(rec.record)
	rec.wait(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	next := platform.Rect{Width: 800, Height: 600}
	if !viewport.Set(next) {
		t.Fatalf("expected viewport change")
	}
	if got := rec.wait(t); got != next {
		t.Fatalf("expected %+v, got %+v", next, got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestViewportSource_Set(t *testing.T) {
	s := NewViewportSource(viewportRect)
	if s.Set(viewportRect) {
		t.Fatalf("expected unchanged viewport to report false")
	}
	if s.Set(platform.Rect{Width: 0, Height: 10}) {
		t.Fatalf("expected empty viewport to be rejected")
	}
	if got, _ := s.Bounds(); got != viewportRect {
		t.Fatalf("expected viewport kept, got %+v", got)
	}
	if _, err := NewViewportSource(platform.Rect{}).Bounds(); err == nil {
		t.Fatalf("expected error for empty viewport")
	}
}

func TestDisplaySource_PrefersWorkArea(t *testing.T) {
	full := platform.Rect{Width: 1920, Height: 1080}
	backend := &fakeBackend{display: platform.Display{Name: "DP-1", Bounds: full, Usable: displayRect}}
	src := NewDisplaySource(backend)

	if got, err := src.Bounds(); err != nil || got != displayRect {
		t.Fatalf("expected work area, got %+v (%v)", got, err)
	}

	backend.display.Usable = platform.Rect{}
	if got, _ := src.Bounds(); got != full {
		t.Fatalf("expected full area without work area, got %+v", got)
	}

	backend.err = errors.New("randr missing")
	if _, err := src.Bounds(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDetect(t *testing.T) {
	failing := func(string) (platform.Backend, error) { return nil, errors.New("cannot open display") }
	if Detect(failing, "", nil) != nil {
		t.Fatalf("expected nil source when the backend cannot open")
	}
	if Detect(nil, "", nil) != nil {
		t.Fatalf("expected nil source without an opener")
	}

	empty := &fakeBackend{}
	if Detect(func(string) (platform.Backend, error) { return empty, nil }, ":9", nil) != nil {
		t.Fatalf("expected nil source for a display with no area")
	}
	if !empty.closed {
		t.Fatalf("expected unusable backend to be closed")
	}

	good := &fakeBackend{display: platform.Display{Usable: displayRect}}
	var opened string
	src := Detect(func(d string) (platform.Backend, error) { opened = d; return good, nil }, ":1", nil)
	if src == nil || opened != ":1" {
		t.Fatalf("expected display source for %q", opened)
	}
}
