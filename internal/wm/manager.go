package wm

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/persist"
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/snap"
	"github.com/1broseidon/snaptile/internal/tiling"
)

// Recorder receives the derived persistence documents after every change.
type Recorder interface {
	Record(geometry persist.GeometryMap, session persist.Session)
}

// Options configures a Manager.
type Options struct {
	MinWidth      int
	MinHeight     int
	DefaultWidth  int
	DefaultHeight int
	CascadeOrigin platform.Point
	CascadeStep   platform.Point
	Thresholds    snap.Thresholds

	// Geometry is the map loaded at startup, keyed by window title.
	Geometry persist.GeometryMap
	Recorder Recorder

	Layouts       map[string]config.Layout
	DefaultLayout string
	GapSize       int

	Logger *slog.Logger
}

// DefaultOptions returns the stock sizes and thresholds.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// OptionsFromConfig maps the effective config onto manager options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinWidth:      cfg.Window.MinWidth,
		MinHeight:     cfg.Window.MinHeight,
		DefaultWidth:  cfg.Window.DefaultWidth,
		DefaultHeight: cfg.Window.DefaultHeight,
		CascadeOrigin: platform.Point{X: cfg.Window.CascadeOriginX, Y: cfg.Window.CascadeOriginY},
		CascadeStep:   platform.Point{X: cfg.Window.CascadeStepX, Y: cfg.Window.CascadeStepY},
		Thresholds: snap.Thresholds{
			Edge:                cfg.Snap.Threshold,
			Corner:              cfg.Snap.CornerThreshold,
			MaximizeBandPercent: cfg.Snap.MaximizeBandPercent,
		},
		Layouts:       cfg.Layouts,
		DefaultLayout: cfg.DefaultLayout,
		GapSize:       cfg.GapSize,
	}
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Manager is the window registry. It owns the z counter and every window
// record; all mutation goes through its methods. It is not safe for
// concurrent use and must be driven from a single goroutine.
type Manager struct {
	opts   Options
	logger *slog.Logger

	bounds  platform.Rect
	windows map[int]*Window
	nextID  int
	topZ    int
	preview *platform.Rect

	geometry persist.GeometryMap

	subs    []subscriber
	nextSub int
}

// NewManager returns an empty registry laid out against bounds.
func NewManager(bounds platform.Rect, opts Options) *Manager {
	opts = withDefaults(opts)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	geometry := make(persist.GeometryMap, len(opts.Geometry))
	for title, g := range opts.Geometry {
		geometry[title] = g
	}

	return &Manager{
		opts:     opts,
		logger:   logger,
		bounds:   bounds,
		windows:  make(map[int]*Window),
		geometry: geometry,
	}
}

func withDefaults(opts Options) Options {
	defaults := DefaultOptions()
	if opts.MinWidth <= 0 {
		opts.MinWidth = defaults.MinWidth
	}
	if opts.MinHeight <= 0 {
		opts.MinHeight = defaults.MinHeight
	}
	if opts.DefaultWidth <= 0 {
		opts.DefaultWidth = defaults.DefaultWidth
	}
	if opts.DefaultHeight <= 0 {
		opts.DefaultHeight = defaults.DefaultHeight
	}
	if opts.Thresholds == (snap.Thresholds{}) {
		opts.Thresholds = defaults.Thresholds
	}
	if opts.Layouts == nil {
		opts.Layouts = defaults.Layouts
		opts.DefaultLayout = defaults.DefaultLayout
	}
	return opts
}

// Reconfigure replaces sizes, thresholds and layouts after a config reload.
// The geometry map, recorder and logger are kept. Windows are re-laid out
// against the new minimum size.
func (m *Manager) Reconfigure(opts Options) {
	opts.Geometry = nil
	opts.Recorder = m.opts.Recorder
	opts.Logger = m.opts.Logger
	m.opts = withDefaults(opts)

	for _, w := range m.windows {
		if w.IsSnapped() {
			w.setRect(m.snapRect(w.Zone))
			continue
		}
		w.setRect(m.clamp(w.Rect()))
	}
	m.changed()
}

// Layouts returns the configured layout names and the default layout.
func (m *Manager) Layouts() (names []string, defaultLayout string) {
	for name := range m.opts.Layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, m.opts.DefaultLayout
}

// Bounds returns the current layout rectangle.
func (m *Manager) Bounds() platform.Rect { return m.bounds }

// MinSize returns the minimum window dimensions.
func (m *Manager) MinSize() (w, h int) { return m.opts.MinWidth, m.opts.MinHeight }

// Thresholds returns the snap thresholds used for drag classification.
func (m *Manager) Thresholds() snap.Thresholds { return m.opts.Thresholds }

// Len returns the number of open windows.
func (m *Manager) Len() int { return len(m.windows) }

// Get returns a copy of the window record for id.
func (m *Manager) Get(id int) (Window, bool) {
	w, ok := m.windows[id]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// ActiveID returns the visible window with the highest z, or 0.
func (m *Manager) ActiveID() int {
	best := 0
	bestZ := math.MinInt
	for id, w := range m.windows {
		if w.Minimized {
			continue
		}
		if w.Z > bestZ {
			best, bestZ = id, w.Z
		}
	}
	return best
}

// Create opens a window and returns its id. A saved geometry for title is
// reused when present; otherwise the window is cascaded from the origin.
// Non-positive sizes use the configured defaults.
func (m *Manager) Create(title string, content any, w, h int) int {
	if w <= 0 {
		w = m.opts.DefaultWidth
	}
	if h <= 0 {
		h = m.opts.DefaultHeight
	}

	m.nextID++
	m.topZ++
	win := &Window{
		ID:      m.nextID,
		Title:   title,
		Content: content,
		Z:       m.topZ,
	}

	if saved, ok := m.geometry[title]; ok {
		m.applySaved(win, saved)
	} else {
		offset := win.ID - 1
		r := platform.Rect{
			X:      m.opts.CascadeOrigin.X + offset*m.opts.CascadeStep.X,
			Y:      m.opts.CascadeOrigin.Y + offset*m.opts.CascadeStep.Y,
			Width:  w,
			Height: h,
		}
		win.setRect(m.clamp(r))
		win.Prev = win.Rect()
	}

	m.windows[win.ID] = win
	m.logger.Debug("window created", "id", win.ID, "title", title, "rect", win.Rect())
	m.changed()
	return win.ID
}

func (m *Manager) applySaved(win *Window, g persist.Geometry) {
	if g.Prev != nil && !g.Prev.Empty() {
		win.Prev = m.clamp(*g.Prev)
	} else {
		win.Prev = m.clamp(g.Rect())
	}

	zone := g.Zone
	if zone == snap.ZoneNone {
		zone = snap.ZoneForKind(g.Snapped)
	}
	if zone != snap.ZoneNone {
		win.Zone = zone
		win.Snapped = zone.Kind().State()
		win.setRect(m.snapRect(zone))
		return
	}
	win.setRect(m.clamp(g.Rect()))
}

// Focus raises id to the top and un-minimizes it.
func (m *Manager) Focus(id int) {
	w, ok := m.windows[id]
	if !ok {
		return
	}
	m.topZ++
	w.Z = m.topZ
	w.Minimized = false
	m.changed()
}

// Close removes id. Its saved geometry stays in the geometry map.
func (m *Manager) Close(id int) {
	if _, ok := m.windows[id]; !ok {
		return
	}
	delete(m.windows, id)
	m.changed()
}

// Snapshot returns the observer view, windows sorted by z ascending.
func (m *Manager) Snapshot() Snapshot {
	out := Snapshot{
		Windows:  make([]Info, 0, len(m.windows)),
		ActiveID: m.ActiveID(),
		Bounds:   m.bounds,
	}
	for _, w := range m.byZ() {
		out.Windows = append(out.Windows, w.info())
	}
	if m.preview != nil {
		p := *m.preview
		out.Preview = &p
	}
	return out
}

// SetRects applies geometry in bulk and clears the snap state of every
// touched window. Rects are kept inside bounds but not raised to the
// minimum size.
func (m *Manager) SetRects(placements []Placement) {
	touched := false
	for _, p := range placements {
		w, ok := m.windows[p.ID]
		if !ok {
			continue
		}
		w.setRect(clampRect(p.Rect, m.bounds, 1, 1))
		w.clearSnap()
		w.Minimized = false
		touched = true
	}
	if touched {
		m.changed()
	}
}

// Move places id at (x, y), keeping its size. The result is clamped into
// bounds and leaves any snapped state.
func (m *Manager) Move(id, x, y int) {
	w, ok := m.windows[id]
	if !ok {
		return
	}
	r := m.clamp(platform.Rect{X: x, Y: y, Width: w.W, Height: w.H})
	if r == w.Rect() && !w.IsSnapped() {
		return
	}
	w.setRect(r)
	w.clearSnap()
	m.changed()
}

// SetGeometry replaces the geometry of id, clamped and floored to the
// minimum size. The snapped state is cleared without restoring.
func (m *Manager) SetGeometry(id int, r platform.Rect) {
	w, ok := m.windows[id]
	if !ok {
		return
	}
	w.setRect(m.clamp(r))
	w.clearSnap()
	m.changed()
}

// Snap moves id into zone. The restore geometry is stamped only when the
// window enters the snapped state, so snapping an already snapped window
// keeps the original restore point.
func (m *Manager) Snap(id int, zone snap.Zone) {
	w, ok := m.windows[id]
	if !ok || zone == snap.ZoneNone {
		return
	}
	if !w.IsSnapped() {
		w.Prev = w.Rect()
	}
	m.snapTo(w, zone)
	m.changed()
}

// Commit snaps id into zone with prev as the restore geometry. Drag
// release uses it to remember where the gesture started.
func (m *Manager) Commit(id int, zone snap.Zone, prev platform.Rect) {
	w, ok := m.windows[id]
	if !ok || zone == snap.ZoneNone {
		return
	}
	w.Prev = prev
	m.snapTo(w, zone)
	m.changed()
}

func (m *Manager) snapTo(w *Window, zone snap.Zone) {
	w.Zone = zone
	w.Snapped = zone.Kind().State()
	w.setRect(m.snapRect(zone))
	w.Minimized = false
}

// Unsnap leaves the snapped state. With restore the remembered geometry is
// applied; without it the current rect is kept. Unsnapped windows are left
// alone.
func (m *Manager) Unsnap(id int, restore bool) {
	w, ok := m.windows[id]
	if !ok || !w.IsSnapped() {
		return
	}
	if restore {
		w.setRect(m.restoreRect(w))
	}
	w.clearSnap()
	m.changed()
}

// Restore returns a snapped window to its remembered geometry.
func (m *Manager) Restore(id int) {
	m.Unsnap(id, true)
}

// ToggleMaximize maximizes id, or restores it from any top state: maximized,
// the top half or a top quadrant.
func (m *Manager) ToggleMaximize(id int) {
	w, ok := m.windows[id]
	if !ok {
		return
	}
	if w.Snapped == snap.KindTop {
		m.Restore(id)
		return
	}
	m.Snap(id, snap.ZoneMaximize)
}

// SetBounds replaces the layout rectangle. Snapped windows take their
// zone rect in the new bounds; the rest are clamped.
func (m *Manager) SetBounds(bounds platform.Rect) {
	if bounds == m.bounds {
		return
	}
	m.bounds = bounds
	m.preview = nil
	for _, w := range m.windows {
		if w.IsSnapped() {
			w.setRect(m.snapRect(w.Zone))
			continue
		}
		w.setRect(m.clamp(w.Rect()))
	}
	m.logger.Debug("bounds changed", "bounds", bounds)
	m.changed()
}

// SetPreview shows the snap preview overlay at r.
func (m *Manager) SetPreview(r platform.Rect) {
	if m.preview != nil && *m.preview == r {
		return
	}
	m.preview = &r
	m.notify()
}

// ClearPreview hides the snap preview overlay.
func (m *Manager) ClearPreview() {
	if m.preview == nil {
		return
	}
	m.preview = nil
	m.notify()
}

// Preview returns the current preview overlay, if any.
func (m *Manager) Preview() (platform.Rect, bool) {
	if m.preview == nil {
		return platform.Rect{}, false
	}
	return *m.preview, true
}

// Subscribe registers fn for every change and calls it once immediately.
// The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.deliver(fn, m.Snapshot())
	return func() {
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// CycleNext focuses the window above the active one in z order, wrapping
// to the bottom.
func (m *Manager) CycleNext() {
	ordered := m.byZ()
	if len(ordered) == 0 {
		return
	}
	active := m.ActiveID()
	idx := -1
	for i, w := range ordered {
		if w.ID == active {
			idx = i
			break
		}
	}
	next := ordered[(idx+1)%len(ordered)]
	m.Focus(next.ID)
}

// MinimizeAll hides every window.
func (m *Manager) MinimizeAll() {
	touched := false
	for _, w := range m.windows {
		if !w.Minimized {
			w.Minimized = true
			touched = true
		}
	}
	if touched {
		m.changed()
	}
}

// TileColumns lays the top n windows by z out in equal columns, the most
// recently focused rightmost.
func (m *Manager) TileColumns(n int) {
	if n <= 0 {
		return
	}
	selected := m.topN(min(n, max(m.bounds.Width, 1)))
	if len(selected) == 0 {
		return
	}
	m.place(selected, tiling.Columns(len(selected), m.bounds))
}

// TileGrid fills a rows x cols grid row-major with the top windows by z.
// Only the occupied cells are computed. Rows and columns beyond the bounds
// extent are dropped so every cell is at least one unit wide.
func (m *Manager) TileGrid(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}
	rows = min(rows, max(m.bounds.Height, 1))
	cols = min(cols, max(m.bounds.Width, 1))
	selected := m.topN(tiling.CellCount(rows, cols, len(m.windows)))
	if len(selected) == 0 {
		return
	}
	m.place(selected, tiling.GridCells(rows, cols, len(selected), m.bounds))
}

// TileLayout applies a named layout, or the default layout when name is
// empty, to the windows in z order, the active window first.
func (m *Manager) TileLayout(name string) error {
	if name == "" {
		name = m.opts.DefaultLayout
	}
	layout, ok := m.opts.Layouts[name]
	if !ok {
		return fmt.Errorf("layout %q not found", name)
	}

	ordered := m.byZ()
	if len(ordered) == 0 {
		return nil
	}
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	rects, err := tiling.CalculatePositionsWithLayout(len(ordered), m.bounds, &layout, m.opts.GapSize)
	if err != nil {
		return fmt.Errorf("failed to tile with layout %q: %w", name, err)
	}
	m.place(ordered, rects)
	return nil
}

func (m *Manager) place(windows []*Window, rects []platform.Rect) {
	placements := make([]Placement, 0, len(rects))
	for i, r := range rects {
		if i >= len(windows) {
			break
		}
		placements = append(placements, Placement{ID: windows[i].ID, Rect: r})
	}
	m.SetRects(placements)
}

// Execute runs a named command against the active window, or globally for
// tiling and minimize-all.
func (m *Manager) Execute(name string) error {
	active := m.ActiveID()
	switch name {
	case CommandSnapLeft:
		m.Snap(active, snap.ZoneLeft)
	case CommandSnapRight:
		m.Snap(active, snap.ZoneRight)
	case CommandSnapTop:
		m.Snap(active, snap.ZoneTop)
	case CommandSnapBottom:
		m.Snap(active, snap.ZoneBottom)
	case CommandMaximize:
		m.Snap(active, snap.ZoneMaximize)
	case CommandRestore:
		m.Restore(active)
	case CommandMinimizeAll:
		m.MinimizeAll()
	case CommandCycleNext:
		m.CycleNext()
	case CommandTile2Col:
		m.TileColumns(2)
	case CommandTile3Col:
		m.TileColumns(3)
	case CommandTile2x2:
		m.TileGrid(2, 2)
	case CommandTileAuto:
		return m.TileLayout("")
	case CommandCloseActive:
		m.Close(active)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
	return nil
}

// RestoreSession reopens the windows of a saved session. It only applies
// to an empty registry; ids and z order resume after the highest saved
// values.
func (m *Manager) RestoreSession(s persist.Session) int {
	if len(m.windows) > 0 || len(s.Windows) == 0 {
		return 0
	}
	restored := 0
	for _, sw := range s.Windows {
		if sw.ID <= 0 {
			continue
		}
		if _, dup := m.windows[sw.ID]; dup {
			continue
		}
		win := &Window{
			ID:        sw.ID,
			Title:     sw.Title,
			Z:         sw.Z,
			Minimized: sw.Minimized,
		}
		m.applySaved(win, sw.Geometry)
		m.windows[win.ID] = win
		m.nextID = max(m.nextID, win.ID)
		m.topZ = max(m.topZ, win.Z)
		restored++
	}
	if restored > 0 {
		m.logger.Info("session restored", "windows", restored)
		m.changed()
	}
	return restored
}

// GeometryMap returns a copy of the current geometry map.
func (m *Manager) GeometryMap() persist.GeometryMap {
	out := make(persist.GeometryMap, len(m.geometry))
	for title, g := range m.geometry {
		out[title] = g
	}
	return out
}

// Session returns the session document for the live window set.
func (m *Manager) Session() persist.Session {
	ids := make([]int, 0, len(m.windows))
	for id := range m.windows {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	s := persist.Session{Windows: make([]persist.SessionWindow, 0, len(ids))}
	for _, id := range ids {
		w := m.windows[id]
		s.Windows = append(s.Windows, persist.SessionWindow{
			ID:        w.ID,
			Title:     w.Title,
			Z:         w.Z,
			Geometry:  geometryOf(w),
			Minimized: w.Minimized,
		})
	}
	return s
}

func geometryOf(w *Window) persist.Geometry {
	prev := w.Prev
	return persist.Geometry{
		X:       w.X,
		Y:       w.Y,
		W:       w.W,
		H:       w.H,
		Snapped: w.Snapped,
		Zone:    w.Zone,
		Prev:    &prev,
	}
}

func (m *Manager) changed() {
	// Higher z wins when titles collide.
	for _, w := range m.byZ() {
		m.geometry[w.Title] = geometryOf(w)
	}
	if m.opts.Recorder != nil {
		m.opts.Recorder.Record(m.GeometryMap(), m.Session())
	}
	m.notify()
}

func (m *Manager) notify() {
	if len(m.subs) == 0 {
		return
	}
	snapshot := m.Snapshot()
	subs := append([]subscriber(nil), m.subs...)
	for _, s := range subs {
		m.deliver(s.fn, snapshot)
	}
}

func (m *Manager) deliver(fn func(Snapshot), s Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("window subscriber panicked", "panic", r)
		}
	}()
	fn(s)
}

func (m *Manager) byZ() []*Window {
	out := make([]*Window, 0, len(m.windows))
	for _, w := range m.windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// topN returns the n highest windows by z, lowest first.
func (m *Manager) topN(n int) []*Window {
	ordered := m.byZ()
	if len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

func (m *Manager) clamp(r platform.Rect) platform.Rect {
	return clampRect(r, m.bounds, m.opts.MinWidth, m.opts.MinHeight)
}

// snapRect is the zone rect floored to the minimum size. On bounds smaller
// than two minimum windows the floor would overhang, so the rect is pulled
// back inside.
func (m *Manager) snapRect(zone snap.Zone) platform.Rect {
	return m.clamp(zone.Rect(m.bounds))
}

// restoreRect returns the remembered geometry, or a centred fallback when
// none was recorded.
func (m *Manager) restoreRect(w *Window) platform.Rect {
	if !w.Prev.Empty() {
		return m.clamp(w.Prev)
	}
	b := m.bounds
	return m.clamp(platform.Rect{
		X:      b.X + round(float64(b.Width)*0.2),
		Y:      b.Y + round(float64(b.Height)*0.15),
		Width:  max(m.opts.MinWidth, round(float64(b.Width)*0.6)),
		Height: max(m.opts.MinHeight, round(float64(b.Height)*0.6)),
	})
}

// clampRect floors r to the minimum size, caps it to bounds and moves its
// origin so it lies inside bounds. Empty bounds only apply the floors.
func clampRect(r, bounds platform.Rect, minW, minH int) platform.Rect {
	r.Width = max(r.Width, minW)
	r.Height = max(r.Height, minH)
	if bounds.Empty() {
		return r
	}
	r.Width = min(r.Width, max(bounds.Width, minW))
	r.Height = min(r.Height, max(bounds.Height, minH))
	r.X = max(bounds.X, min(r.X, bounds.Right()-r.Width))
	r.Y = max(bounds.Y, min(r.Y, bounds.Bottom()-r.Height))
	return r
}

func round(v float64) int {
	return int(math.Round(v))
}
