package gesture

import (
	"testing"

	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
	"github.com/1broseidon/snaptile/internal/wm"
)

func newManager(t *testing.T) *wm.Manager {
	t.Helper()
	return wm.NewManager(platform.Rect{X: 0, Y: 0, Width: 1000, Height: 800}, wm.DefaultOptions())
}

func rectOf(t *testing.T, m *wm.Manager, id int) platform.Rect {
	t.Helper()
	w, ok := m.Get(id)
	if !ok {
		t.Fatalf("window %d not found", id)
	}
	return w.Rect()
}

func assertContained(t *testing.T, m *wm.Manager) {
	t.Helper()
	minW, minH := m.MinSize()
	for _, info := range m.Snapshot().Windows {
		if info.W < minW || info.H < minH {
			t.Fatalf("window %d below minimum: %dx%d", info.ID, info.W, info.H)
		}
		if !m.Bounds().Contains(info.Rect()) {
			t.Fatalf("window %d escapes bounds: %+v", info.ID, info.Rect())
		}
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		PhaseIdle:     "idle",
		PhaseDragging: "dragging",
		PhaseResizing: "resizing",
		Phase(42):     "unknown",
	}
	for p, want := range tests {
		if p.String() != want {
			t.Fatalf("Phase(%d).String() = %q, want %q", int(p), p.String(), want)
		}
	}
}

func TestDrag_ToLeftEdgeSnapsLeft(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	d := NewDrag(m)
	if !d.Begin(id, platform.Point{X: 400, Y: 70}) {
		t.Fatalf("expected drag to begin")
	}
	if d.Phase() != PhaseDragging {
		t.Fatalf("expected dragging, got %s", d.Phase())
	}
	d.Move(platform.Point{X: 0, Y: 400}, false)
	d.End()

	w, _ := m.Get(id)
	if got, want := w.Rect(), (platform.Rect{X: 0, Y: 0, Width: 500, Height: 800}); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if w.Snapped != snap.KindLeft {
		t.Fatalf("expected left, got %q", w.Snapped)
	}
	if want := (platform.Rect{X: 80, Y: 60, Width: 640, Height: 400}); w.Prev != want {
		t.Fatalf("expected prev %+v, got %+v", want, w.Prev)
	}
	if d.Phase() != PhaseIdle {
		t.Fatalf("expected idle after end")
	}
	if _, ok := m.Preview(); ok {
		t.Fatalf("expected preview cleared after end")
	}
}

func TestDoubleClick_TogglesMaximizeAndRestoresPreSnapGeometry(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	tr := NewTracker(m)
	tr.Down(1, id, 0, platform.Point{X: 400, Y: 70})
	tr.Move(1, platform.Point{X: 0, Y: 400}, false)
	tr.Up(1)

	tr.DoubleClick(id)
	w, _ := m.Get(id)
	if got, want := w.Rect(), (platform.Rect{X: 0, Y: 0, Width: 1000, Height: 800}); got != want {
		t.Fatalf("expected maximized %+v, got %+v", want, got)
	}
	if w.Snapped != snap.KindTop {
		t.Fatalf("expected top, got %q", w.Snapped)
	}

	tr.DoubleClick(id)
	w, _ = m.Get(id)
	if got, want := w.Rect(), (platform.Rect{X: 80, Y: 60, Width: 640, Height: 400}); got != want {
		t.Fatalf("expected restored %+v, got %+v", want, got)
	}
	if w.Snapped != snap.KindNone {
		t.Fatalf("expected unsnapped, got %q", w.Snapped)
	}
}

func TestDoubleClick_RestoresFromTopQuadrant(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	tr := NewTracker(m)
	tr.Down(1, id, 0, platform.Point{X: 400, Y: 70})
	tr.Move(1, platform.Point{X: 10, Y: 10}, false)
	tr.Up(1)

	w, _ := m.Get(id)
	if w.Zone != snap.ZoneTopLeft || w.Snapped != snap.KindTop {
		t.Fatalf("expected top-left quadrant, got %s/%q", w.Zone, w.Snapped)
	}
	if got, want := w.Rect(), (platform.Rect{X: 0, Y: 0, Width: 500, Height: 400}); got != want {
		t.Fatalf("expected quadrant %+v, got %+v", want, got)
	}

	tr.DoubleClick(id)
	w, _ = m.Get(id)
	if got, want := w.Rect(), (platform.Rect{X: 80, Y: 60, Width: 640, Height: 400}); got != want {
		t.Fatalf("expected restored %+v, got %+v", want, got)
	}
	if w.Snapped != snap.KindNone {
		t.Fatalf("expected unsnapped, got %q", w.Snapped)
	}
}

func TestDrag_MovesAreCoalescedUntilFlush(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	updates := 0
	m.Subscribe(func(wm.Snapshot) { updates++ })

	d := NewDrag(m)
	d.Begin(id, platform.Point{X: 100, Y: 100})
	updates = 0

	for i := 1; i <= 20; i++ {
		d.Move(platform.Point{X: 100 + i, Y: 100 + i}, false)
	}
	if got := rectOf(t, m, id); got.X != 80 || got.Y != 60 {
		t.Fatalf("expected no movement before flush, got %+v", got)
	}
	if updates != 0 {
		t.Fatalf("expected no updates before flush, got %d", updates)
	}
	if !d.Pending() {
		t.Fatalf("expected pending move")
	}

	d.Flush()
	if got := rectOf(t, m, id); got.X != 100 || got.Y != 80 {
		t.Fatalf("expected last move applied, got %+v", got)
	}
	if updates != 1 {
		t.Fatalf("expected one update per flush, got %d", updates)
	}

	d.Flush()
	if updates != 1 {
		t.Fatalf("expected empty flush to do nothing, got %d", updates)
	}
}

func TestDrag_EndFlushesPendingMoveBeforeCommit(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	d := NewDrag(m)
	d.Begin(id, platform.Point{X: 500, Y: 100})
	d.Move(platform.Point{X: 500, Y: 300}, false)
	d.Flush()
	if d.Target().OK() {
		t.Fatalf("expected no snap target in the middle of the screen")
	}
	d.Move(platform.Point{X: 995, Y: 400}, false)
	d.End()

	w, _ := m.Get(id)
	if w.Snapped != snap.KindRight {
		t.Fatalf("expected final move to decide the snap, got %q", w.Snapped)
	}
}

func TestDrag_SuppressedSnapLeavesWindowWhereDropped(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	d := NewDrag(m)
	d.Begin(id, platform.Point{X: 400, Y: 70})
	d.Move(platform.Point{X: 0, Y: 400}, true)
	d.Flush()
	if _, ok := m.Preview(); ok {
		t.Fatalf("expected no preview while snapping is suppressed")
	}
	d.End()

	w, _ := m.Get(id)
	if w.IsSnapped() {
		t.Fatalf("expected window to stay unsnapped")
	}
	if got, want := w.Rect(), (platform.Rect{X: 0, Y: 390, Width: 640, Height: 400}); got != want {
		t.Fatalf("expected clamped drop position %+v, got %+v", want, got)
	}
	assertContained(t, m)
}

func TestDrag_ShowsPreviewForRawPointer(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	d := NewDrag(m)
	d.Begin(id, platform.Point{X: 400, Y: 70})
	d.Move(platform.Point{X: 10, Y: 10}, false)
	d.Flush()

	preview, ok := m.Preview()
	if !ok {
		t.Fatalf("expected preview")
	}
	if want := (platform.Rect{X: 0, Y: 0, Width: 500, Height: 400}); preview != want {
		t.Fatalf("expected top-left quarter %+v, got %+v", want, preview)
	}
	if d.Target().Zone != snap.ZoneTopLeft {
		t.Fatalf("expected top-left target, got %s", d.Target().Zone)
	}

	d.Move(platform.Point{X: 500, Y: 400}, false)
	d.Flush()
	if _, ok := m.Preview(); ok {
		t.Fatalf("expected preview cleared away from edges")
	}
}

func TestDrag_BeginOnSnappedWindowRestoresFirst(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)
	original := rectOf(t, m, id)
	m.Snap(id, snap.ZoneRight)

	d := NewDrag(m)
	d.Begin(id, platform.Point{X: 700, Y: 10})

	w, _ := m.Get(id)
	if w.IsSnapped() {
		t.Fatalf("expected drag start to unsnap")
	}
	if w.Rect() != original {
		t.Fatalf("expected remembered geometry %+v, got %+v", original, w.Rect())
	}

	// Snapping again keeps the first restore point.
	d.Move(platform.Point{X: 0, Y: 400}, false)
	d.End()
	w, _ = m.Get(id)
	if w.Prev != original {
		t.Fatalf("expected prev %+v, got %+v", original, w.Prev)
	}
}

func TestDrag_UnknownWindow(t *testing.T) {
	m := newManager(t)
	d := NewDrag(m)
	if d.Begin(7, platform.Point{}) {
		t.Fatalf("expected begin on unknown window to fail")
	}
	d.Move(platform.Point{X: 1, Y: 1}, false)
	d.End()
	if d.Phase() != PhaseIdle {
		t.Fatalf("expected idle")
	}
}

func TestDrag_WindowClosedMidGesture(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	d := NewDrag(m)
	d.Begin(id, platform.Point{X: 400, Y: 70})
	m.Close(id)
	d.Move(platform.Point{X: 0, Y: 400}, false)
	d.End()

	if m.Len() != 0 {
		t.Fatalf("expected closed window to stay closed")
	}
	if _, ok := m.Preview(); ok {
		t.Fatalf("expected preview cleared")
	}
}

func TestResize_EastEdgeFloorsToMinimumWidth(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)

	r := NewResize(m)
	r.Begin(id, EdgeEast, platform.Point{X: 720, Y: 200})
	r.Move(platform.Point{X: 130, Y: 200})
	r.End()

	got := rectOf(t, m, id)
	if got.Width != 360 {
		t.Fatalf("expected width 360, got %d", got.Width)
	}
	if got.X != 80 || got.Y != 60 || got.Height != 400 {
		t.Fatalf("expected origin and height unchanged, got %+v", got)
	}
}

func TestResize_Handles(t *testing.T) {
	start := platform.Rect{X: 200, Y: 150, Width: 500, Height: 400}

	tests := []struct {
		name   string
		edge   string
		dx, dy int
		want   platform.Rect
	}{
		{"east grows", "e", 100, 0, platform.Rect{X: 200, Y: 150, Width: 600, Height: 400}},
		{"south grows", "s", 0, 50, platform.Rect{X: 200, Y: 150, Width: 500, Height: 450}},
		{"west keeps right edge", "w", 100, 0, platform.Rect{X: 300, Y: 150, Width: 400, Height: 400}},
		{"west floor keeps right edge", "w", 400, 0, platform.Rect{X: 340, Y: 150, Width: 360, Height: 400}},
		{"north keeps bottom edge", "n", 0, -100, platform.Rect{X: 200, Y: 50, Width: 500, Height: 500}},
		{"north floor keeps bottom edge", "n", 0, 300, platform.Rect{X: 200, Y: 330, Width: 500, Height: 220}},
		{"south-east beyond bounds", "se", 1000, 1000, platform.Rect{X: 0, Y: 0, Width: 1000, Height: 800}},
		{"north-west beyond origin", "nw", -300, -300, platform.Rect{X: 0, Y: 0, Width: 800, Height: 700}},
		{"south-west", "sw", -50, 20, platform.Rect{X: 150, Y: 150, Width: 550, Height: 420}},
		{"north-east", "ne", 20, 20, platform.Rect{X: 200, Y: 170, Width: 520, Height: 380}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t)
			id := m.Create("Doc", nil, 0, 0)
			m.SetGeometry(id, start)

			edge, ok := ParseEdge(tt.edge)
			if !ok {
				t.Fatalf("ParseEdge(%q) failed", tt.edge)
			}
			r := NewResize(m)
			p := platform.Point{X: 400, Y: 300}
			if !r.Begin(id, edge, p) {
				t.Fatalf("expected resize to begin")
			}
			r.Move(platform.Point{X: p.X + tt.dx, Y: p.Y + tt.dy})
			r.End()

			if got := rectOf(t, m, id); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
			assertContained(t, m)
		})
	}
}

func TestResize_SnappedWindowLeavesSnapWithoutRestoring(t *testing.T) {
	m := newManager(t)
	id := m.Create("Doc", nil, 0, 0)
	m.Snap(id, snap.ZoneLeft)

	r := NewResize(m)
	r.Begin(id, EdgeEast, platform.Point{X: 500, Y: 400})

	w, _ := m.Get(id)
	if w.IsSnapped() {
		t.Fatalf("expected resize to clear the snap")
	}
	if got, want := w.Rect(), (platform.Rect{X: 0, Y: 0, Width: 500, Height: 800}); got != want {
		t.Fatalf("expected snapped rect kept, got %+v", got)
	}

	r.Move(platform.Point{X: 300, Y: 400})
	r.End()
	if got := rectOf(t, m, id); got.Width != 360 {
		t.Fatalf("expected width floored to 360, got %d", got.Width)
	}
	if _, ok := m.Preview(); ok {
		t.Fatalf("resize must never show a snap preview")
	}
}

func TestParseEdge(t *testing.T) {
	valid := map[string]Edge{
		"n":  EdgeNorth,
		"S":  EdgeSouth,
		"e":  EdgeEast,
		"w":  EdgeWest,
		"ne": EdgeNorth | EdgeEast,
		"sw": EdgeSouth | EdgeWest,
		"en": EdgeNorth | EdgeEast,
	}
	for in, want := range valid {
		got, ok := ParseEdge(in)
		if !ok || got != want {
			t.Fatalf("ParseEdge(%q) = %v, %v", in, got, ok)
		}
	}
	for _, in := range []string{"", "x", "ns", "ew", "nn", "nes"} {
		if _, ok := ParseEdge(in); ok {
			t.Fatalf("expected ParseEdge(%q) to fail", in)
		}
	}
	if (EdgeSouth | EdgeEast).String() != "se" {
		t.Fatalf("expected se, got %s", (EdgeSouth | EdgeEast).String())
	}
}

func TestTracker_IndependentPointers(t *testing.T) {
	m := newManager(t)
	a := m.Create("A", nil, 0, 0)
	b := m.Create("B", nil, 0, 0)

	tr := NewTracker(m)
	if !tr.Down(1, a, 0, platform.Point{X: 100, Y: 70}) {
		t.Fatalf("expected drag on a")
	}
	if !tr.Down(2, b, EdgeSouth, platform.Point{X: 400, Y: 470}) {
		t.Fatalf("expected resize on b")
	}
	if tr.Active() != 2 {
		t.Fatalf("expected 2 gestures, got %d", tr.Active())
	}
	if tr.Phase(1) != PhaseDragging || tr.Phase(2) != PhaseResizing || tr.Phase(3) != PhaseIdle {
		t.Fatalf("unexpected phases: %s %s %s", tr.Phase(1), tr.Phase(2), tr.Phase(3))
	}

	tr.Move(1, platform.Point{X: 150, Y: 120}, false)
	tr.Move(2, platform.Point{X: 400, Y: 520}, false)
	tr.Move(9, platform.Point{X: 0, Y: 0}, false)
	if !tr.Pending() {
		t.Fatalf("expected pending moves")
	}
	tr.Flush()
	if tr.Pending() {
		t.Fatalf("expected flush to apply every pending move")
	}

	if got := rectOf(t, m, a); got.X != 130 || got.Y != 110 {
		t.Fatalf("expected a moved to (130,110), got %+v", got)
	}
	if got := rectOf(t, m, b); got.Height != 450 || got.X != 100 {
		t.Fatalf("expected b resized to height 450, got %+v", got)
	}

	tr.Up(1)
	tr.Cancel()
	if tr.Active() != 0 {
		t.Fatalf("expected no gestures, got %d", tr.Active())
	}
	assertContained(t, m)
}

func TestTracker_DownReplacesStaleGesture(t *testing.T) {
	m := newManager(t)
	a := m.Create("A", nil, 0, 0)
	b := m.Create("B", nil, 0, 0)

	tr := NewTracker(m)
	tr.Down(1, a, 0, platform.Point{X: 400, Y: 70})
	tr.Move(1, platform.Point{X: 0, Y: 400}, false)
	// Lost pointer-up: the next down on the same pointer ends the drag.
	tr.Down(1, b, 0, platform.Point{X: 400, Y: 80})

	w, _ := m.Get(a)
	if w.Snapped != snap.KindLeft {
		t.Fatalf("expected stale drag to commit, got %q", w.Snapped)
	}
	if tr.Active() != 1 {
		t.Fatalf("expected one gesture, got %d", tr.Active())
	}

	if tr.Down(2, 99, 0, platform.Point{}) {
		t.Fatalf("expected unknown window to be rejected")
	}
}
