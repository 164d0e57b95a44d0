package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Writer coalesces document writes. At most one write is pending; each
// Schedule replaces its payload, and the payload is written once the frame
// interval elapses after the first trigger.
type Writer struct {
	store    Store
	key      string
	interval time.Duration
	logger   *slog.Logger

	// io serializes writes so they land in Schedule order.
	io sync.Mutex

	mu      sync.Mutex
	pending any
	dirty   bool
	timer   *time.Timer
	closed  bool
	writes  int
}

// NewWriter returns a Writer for key. interval <= 0 uses DefaultFrameInterval.
func NewWriter(store Store, key string, interval time.Duration, logger *slog.Logger) *Writer {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:    store,
		key:      key,
		interval: interval,
		logger:   logger,
	}
}

// Schedule queues v to be written. It never blocks on I/O.
func (w *Writer) Schedule(v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = v
	w.dirty = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.interval, w.flushTimer)
	}
}

func (w *Writer) flushTimer() {
	if err := w.Flush(); err != nil {
		w.logger.Warn("persist write failed", "key", w.key, "error", err)
	}
}

// Flush writes the pending payload, if any, synchronously.
func (w *Writer) Flush() error {
	w.io.Lock()
	defer w.io.Unlock()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if !w.dirty {
		w.mu.Unlock()
		return nil
	}
	payload := w.pending
	w.pending = nil
	w.dirty = false
	w.writes++
	w.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", w.key, err)
	}
	return w.store.WriteDocument(context.Background(), w.key, append(data, '\n'))
}

// Writes reports how many writes have been issued.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Close flushes any pending payload and rejects later schedules.
func (w *Writer) Close() error {
	err := w.Flush()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return err
}

// Recorder persists the geometry map and, optionally, the session document.
type Recorder struct {
	Geometry *Writer
	Session  *Writer
}

// Record schedules both documents.
func (r *Recorder) Record(geometry GeometryMap, session Session) {
	if r == nil {
		return
	}
	if r.Geometry != nil {
		r.Geometry.Schedule(geometry)
	}
	if r.Session != nil {
		r.Session.Schedule(session)
	}
}

// Close flushes both writers.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	var first error
	for _, w := range []*Writer{r.Geometry, r.Session} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
