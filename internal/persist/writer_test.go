package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingStore struct {
	mu     sync.Mutex
	writes [][]byte
	done   chan struct{}
}

func newCountingStore() *countingStore {
	return &countingStore{done: make(chan struct{}, 16)}
}

func (s *countingStore) ReadDocument(context.Context, string) ([]byte, error) {
	return nil, ErrNotFound
}

func (s *countingStore) WriteDocument(_ context.Context, _ string, data []byte) error {
	s.mu.Lock()
	s.writes = append(s.writes, append([]byte(nil), data...))
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *countingStore) snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

func TestWriter_CoalescesBurstIntoOneWrite(t *testing.T) {
	store := newCountingStore()
	w := NewWriter(store, "k", 10*time.Millisecond, nil)
	defer w.Close()

	for i := 0; i < 50; i++ {
		w.Schedule(map[string]int{"n": i})
	}

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for write")
	}
	// Allow a stray second timer to fire if coalescing were broken.
	time.Sleep(50 * time.Millisecond)

	writes := store.snapshot()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	if want := "{\n  \"n\": 49\n}\n"; string(writes[0]) != want {
		t.Fatalf("expected latest payload, got %q", writes[0])
	}
}

func TestWriter_FlushIsSynchronous(t *testing.T) {
	store := NewMemStore()
	w := NewWriter(store, "k", time.Hour, nil)

	if err := w.Flush(); err != nil {
		t.Fatalf("flush without pending: %v", err)
	}
	if w.Writes() != 0 {
		t.Fatalf("expected no writes")
	}

	w.Schedule([]int{1, 2})
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if w.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", w.Writes())
	}
	if _, err := store.ReadDocument(context.Background(), "k"); err != nil {
		t.Fatalf("expected document after flush: %v", err)
	}
}

func TestWriter_CloseFlushesAndRejectsLaterSchedules(t *testing.T) {
	store := NewMemStore()
	w := NewWriter(store, "k", time.Hour, nil)
	w.Schedule("first")

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	w.Schedule("second")
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	data, _ := store.ReadDocument(context.Background(), "k")
	if string(data) != "\"first\"\n" {
		t.Fatalf("expected first payload only, got %q", data)
	}
	if w.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", w.Writes())
	}
}

func TestWriter_ReportsStoreErrors(t *testing.T) {
	w := NewWriter(failingStore{err: errors.New("disk full")}, "k", time.Hour, nil)
	w.Schedule("x")
	if err := w.Flush(); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestRecorder_SchedulesBothDocuments(t *testing.T) {
	store := NewMemStore()
	rec := &Recorder{
		Geometry: NewWriter(store, DefaultGeometryKey, time.Hour, nil),
		Session:  NewWriter(store, DefaultSessionKey, time.Hour, nil),
	}
	rec.Record(GeometryMap{"A": {W: 400, H: 300}}, Session{Windows: []SessionWindow{{ID: 1, Title: "A"}}})
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ctx := context.Background()
	if g := LoadGeometry(ctx, store, DefaultGeometryKey, nil); g["A"].W != 400 {
		t.Fatalf("expected geometry document, got %v", g)
	}
	if s := LoadSession(ctx, store, DefaultSessionKey, nil); len(s.Windows) != 1 {
		t.Fatalf("expected session document, got %+v", s)
	}

	var nilRec *Recorder
	nilRec.Record(nil, Session{})
	if err := nilRec.Close(); err != nil {
		t.Fatalf("nil recorder close: %v", err)
	}
}
