// Package bounds resolves the usable layout rectangle and reports changes.
package bounds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/snaptile/internal/platform"
)

// Source reports the usable layout rectangle.
type Source interface {
	Bounds() (platform.Rect, error)
}

// Watcher is implemented by sources that can report changes. Watch blocks
// until ctx is done, calling onChange after each change.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// ViewportSource holds the viewport rectangle reported by the host.
type ViewportSource struct {
	mu      sync.Mutex
	rect    platform.Rect
	changed chan struct{}
}

var (
	_ Source  = (*ViewportSource)(nil)
	_ Watcher = (*ViewportSource)(nil)
)

// NewViewportSource returns a source holding r.
func NewViewportSource(r platform.Rect) *ViewportSource {
	return &ViewportSource{rect: r, changed: make(chan struct{}, 1)}
}

func (s *ViewportSource) Bounds() (platform.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rect.Empty() {
		return platform.Rect{}, fmt.Errorf("viewport is empty")
	}
	return s.rect, nil
}

// Set replaces the viewport. Empty rects are rejected. It reports whether
// the viewport changed.
func (s *ViewportSource) Set(r platform.Rect) bool {
	if r.Empty() {
		return false
	}
	s.mu.Lock()
	if s.rect == r {
		s.mu.Unlock()
		return false
	}
	s.rect = r
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
	return true
}

func (s *ViewportSource) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			onChange()
		}
	}
}

// DisplaySource reports the work area of the active display.
type DisplaySource struct {
	backend platform.Backend
}

var (
	_ Source  = (*DisplaySource)(nil)
	_ Watcher = (*DisplaySource)(nil)
)

// NewDisplaySource wraps an open backend.
func NewDisplaySource(backend platform.Backend) *DisplaySource {
	return &DisplaySource{backend: backend}
}

// Bounds returns the usable area of the active display, or its full area
// when no work area is known.
func (s *DisplaySource) Bounds() (platform.Rect, error) {
	display, err := s.backend.ActiveDisplay()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to query active display: %w", err)
	}
	r := display.Usable
	if r.Empty() {
		r = display.Bounds
	}
	if r.Empty() {
		return platform.Rect{}, fmt.Errorf("display %q has no usable area", display.Name)
	}
	return r, nil
}

func (s *DisplaySource) Watch(ctx context.Context, onChange func()) error {
	return s.backend.WatchDisplays(ctx, onChange)
}

// Close releases the backend.
func (s *DisplaySource) Close() {
	s.backend.Close()
}

// OpenFunc opens a display backend, as platform.NewBackend does.
type OpenFunc func(display string) (platform.Backend, error)

// Detect looks for a display backend. It returns nil when none is usable;
// that is an expected outcome on hosts without a display server and is only
// logged at debug level.
func Detect(open OpenFunc, display string, logger *slog.Logger) *DisplaySource {
	if logger == nil {
		logger = slog.Default()
	}
	if open == nil {
		return nil
	}
	backend, err := open(display)
	if err != nil {
		logger.Debug("display backend unavailable", "error", err)
		return nil
	}
	src := NewDisplaySource(backend)
	if _, err := src.Bounds(); err != nil {
		logger.Debug("display backend unusable", "error", err)
		backend.Close()
		return nil
	}
	return src
}
