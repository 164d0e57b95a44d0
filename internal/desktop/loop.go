package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStopped is returned when work is submitted to a loop that has exited.
var ErrStopped = errors.New("desktop loop stopped")

// Loop runs queued closures on a single goroutine. Everything that touches
// the window registry or gesture state goes through it.
type Loop struct {
	funcs  chan func()
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewLoop returns a loop whose queue holds buffer closures before Post
// blocks.
func NewLoop(buffer int, logger *slog.Logger) *Loop {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		funcs:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run drains the queue until ctx is done. Closures still queued at that
// point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.funcs:
			l.call(fn)
		}
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("desktop loop task panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn without waiting for it to run. It reports false once the
// loop has exited.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.funcs <- fn:
		return true
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may have run just before exit.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return fmt.Errorf("waiting for desktop loop: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
