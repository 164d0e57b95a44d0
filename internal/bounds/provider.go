package bounds

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/snaptile/internal/platform"
)

// DefaultDebounce is the trailing debounce applied to change bursts.
const DefaultDebounce = 50 * time.Millisecond

// Option configures a Provider.
type Option func(*Provider)

// WithDebounce sets the trailing debounce. Zero resolves synchronously.
func WithDebounce(d time.Duration) Option {
	return func(p *Provider) { p.debounce = d }
}

// WithFallback sets the source used when the primary source fails.
func WithFallback(src Source) Option {
	return func(p *Provider) { p.fallback = src }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

type subscriber struct {
	id int
	fn func(platform.Rect)
}

// Provider resolves bounds from a primary source, falling back silently to
// a secondary one, and notifies subscribers when the result changes.
type Provider struct {
	primary  Source
	fallback Source
	debounce time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	current       platform.Rect
	usingFallback bool
	timer         *time.Timer
	subs          []subscriber
	nextSub       int
}

// NewProvider returns a provider and resolves the initial bounds.
func NewProvider(primary Source, opts ...Option) *Provider {
	p := &Provider{
		primary:  primary,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.current, p.usingFallback, _ = p.query()
	return p
}

// Current returns the last resolved bounds.
func (p *Provider) Current() platform.Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// UsingFallback reports whether the last resolution came from the fallback
// source.
func (p *Provider) UsingFallback() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usingFallback
}

// Subscribe registers fn for every bounds change and calls it once with
// the current bounds. The returned func removes the subscription.
func (p *Provider) Subscribe(fn func(platform.Rect)) (unsubscribe func()) {
	p.mu.Lock()
	p.nextSub++
	id := p.nextSub
	p.subs = append(p.subs, subscriber{id: id, fn: fn})
	current := p.current
	p.mu.Unlock()

	fn(current)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// Refresh schedules a re-resolution after the debounce interval. Calls
// within the interval push it back, so a burst resolves once.
func (p *Provider) Refresh() {
	if p.debounce <= 0 {
		p.Resolve()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Reset(p.debounce)
		return
	}
	p.timer = time.AfterFunc(p.debounce, func() {
		p.mu.Lock()
		p.timer = nil
		p.mu.Unlock()
		p.Resolve()
	})
}

// Resolve queries the sources now and notifies subscribers on change.
func (p *Provider) Resolve() platform.Rect {
	r, fallback, ok := p.query()

	p.mu.Lock()
	if ok {
		p.usingFallback = fallback
	}
	if !ok || r == p.current {
		current := p.current
		p.mu.Unlock()
		return current
	}
	p.current = r
	p.usingFallback = fallback
	subs := append([]subscriber(nil), p.subs...)
	p.mu.Unlock()

	p.logger.Debug("bounds changed", "bounds", r, "fallback", fallback)
	for _, s := range subs {
		s.fn(r)
	}
	return r
}

func (p *Provider) query() (platform.Rect, bool, bool) {
	if p.primary != nil {
		r, err := p.primary.Bounds()
		if err == nil && !r.Empty() {
			return r, false, true
		}
		if p.fallback == nil {
			if err != nil {
				p.logger.Warn("failed to resolve bounds", "error", err)
			}
			return platform.Rect{}, false, false
		}
		p.logger.Debug("primary bounds source failed, using fallback", "error", err)
	}
	if p.fallback == nil {
		return platform.Rect{}, false, false
	}
	r, err := p.fallback.Bounds()
	if err != nil || r.Empty() {
		p.logger.Warn("failed to resolve fallback bounds", "error", err)
		return platform.Rect{}, true, false
	}
	return r, true, true
}

// Run watches every source that supports it and refreshes on change. It
// blocks until ctx is done. A watcher that fails is logged and dropped; the
// provider keeps serving its last bounds.
func (p *Provider) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range []Source{p.primary, p.fallback} {
		w, ok := src.(Watcher)
		if !ok || src == nil {
			continue
		}
		g.Go(func() error {
			if err := w.Watch(gctx, p.Refresh); err != nil && gctx.Err() == nil {
				p.logger.Warn("bounds watcher stopped", "error", err)
			}
			return nil
		})
	}
	<-ctx.Done()
	err := g.Wait()

	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	return err
}
