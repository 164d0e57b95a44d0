package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/snaptile/internal/config"
)

// settingsFields holds the form-bound values. huh inputs bind to strings, so
// numbers are converted in apply.
type settingsFields struct {
	LogLevel        string
	MinWidth        string
	MinHeight       string
	DefaultWidth    string
	DefaultHeight   string
	Threshold       string
	CornerThreshold string
	MaximizeBand    string
	BoundsSource    string
	DebounceMS      string
	GapSize         string
	DefaultLayout   string
	Persist         bool
	RestoreSession  bool
	FrameIntervalMS string
}

func newSettingsFields(cfg *config.Config) *settingsFields {
	return &settingsFields{
		LogLevel:        cfg.LogLevel,
		MinWidth:        strconv.Itoa(cfg.Window.MinWidth),
		MinHeight:       strconv.Itoa(cfg.Window.MinHeight),
		DefaultWidth:    strconv.Itoa(cfg.Window.DefaultWidth),
		DefaultHeight:   strconv.Itoa(cfg.Window.DefaultHeight),
		Threshold:       strconv.Itoa(cfg.Snap.Threshold),
		CornerThreshold: strconv.Itoa(cfg.Snap.CornerThreshold),
		MaximizeBand:    strconv.Itoa(cfg.Snap.MaximizeBandPercent),
		BoundsSource:    string(cfg.Bounds.Source),
		DebounceMS:      strconv.Itoa(cfg.Bounds.DebounceMS),
		GapSize:         strconv.Itoa(cfg.GapSize),
		DefaultLayout:   cfg.DefaultLayout,
		Persist:         cfg.Persistence.Enabled,
		RestoreSession:  cfg.Persistence.RestoreSession,
		FrameIntervalMS: strconv.Itoa(cfg.Persistence.FrameIntervalMS),
	}
}

func atLeast(minimum int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a whole number")
		}
		if v < minimum {
			return fmt.Errorf("must be >= %d", minimum)
		}
		return nil
	}
}

func options(values ...string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		opts = append(opts, huh.NewOption(v, v))
	}
	return opts
}

func (f *settingsFields) form(layouts []string, width int) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Key("min_width").Title("Minimum Width").
				Description("Windows never shrink below this").
				Validate(atLeast(1)).Value(&f.MinWidth),
			huh.NewInput().Key("min_height").Title("Minimum Height").
				Validate(atLeast(1)).Value(&f.MinHeight),
			huh.NewInput().Key("default_width").Title("Default Width").
				Description("Size of a new window with no remembered geometry").
				Validate(atLeast(1)).Value(&f.DefaultWidth),
			huh.NewInput().Key("default_height").Title("Default Height").
				Validate(atLeast(1)).Value(&f.DefaultHeight),
		).Title("Windows"),
		huh.NewGroup(
			huh.NewInput().Key("threshold").Title("Edge Threshold").
				Description("Distance from an edge that arms a half snap").
				Validate(atLeast(0)).Value(&f.Threshold),
			huh.NewInput().Key("corner_threshold").Title("Corner Threshold").
				Description("Distance from a corner that arms a quarter snap").
				Validate(atLeast(0)).Value(&f.CornerThreshold),
			huh.NewInput().Key("maximize_band_percent").Title("Maximize Band %").
				Description("Middle share of the top edge that maximizes").
				Validate(atLeast(0)).Value(&f.MaximizeBand),
		).Title("Snapping"),
		huh.NewGroup(
			huh.NewSelect[string]().Key("source").Title("Bounds Source").
				Options(options(string(config.BoundsSourceAuto), string(config.BoundsSourceViewport), string(config.BoundsSourceDisplay))...).
				Value(&f.BoundsSource),
			huh.NewInput().Key("debounce_ms").Title("Resize Debounce (ms)").
				Validate(atLeast(0)).Value(&f.DebounceMS),
			huh.NewInput().Key("gap_size").Title("Tile Gap").
				Validate(atLeast(0)).Value(&f.GapSize),
			huh.NewSelect[string]().Key("default_layout").Title("Default Layout").
				Options(options(layouts...)...).
				Value(&f.DefaultLayout),
		).Title("Layout"),
		huh.NewGroup(
			huh.NewConfirm().Key("persist").Title("Remember Geometry").Value(&f.Persist),
			huh.NewConfirm().Key("restore_session").Title("Restore Session on Start").Value(&f.RestoreSession),
			huh.NewInput().Key("frame_interval_ms").Title("Write Interval (ms)").
				Description("Geometry writes during a drag are coalesced to this interval").
				Validate(atLeast(0)).Value(&f.FrameIntervalMS),
			huh.NewSelect[string]().Key("log_level").Title("Log Level").
				Options(options("debug", "info", "warning", "error")...).
				Value(&f.LogLevel),
		).Title("Daemon"),
	).WithWidth(max(width, 40)).WithShowHelp(true).WithShowErrors(true)
}

// apply copies the form values into cfg and validates the result.
func (f *settingsFields) apply(cfg *config.Config) error {
	ints := []struct {
		dst *int
		src string
	}{
		{&cfg.Window.MinWidth, f.MinWidth},
		{&cfg.Window.MinHeight, f.MinHeight},
		{&cfg.Window.DefaultWidth, f.DefaultWidth},
		{&cfg.Window.DefaultHeight, f.DefaultHeight},
		{&cfg.Snap.Threshold, f.Threshold},
		{&cfg.Snap.CornerThreshold, f.CornerThreshold},
		{&cfg.Snap.MaximizeBandPercent, f.MaximizeBand},
		{&cfg.Bounds.DebounceMS, f.DebounceMS},
		{&cfg.GapSize, f.GapSize},
		{&cfg.Persistence.FrameIntervalMS, f.FrameIntervalMS},
	}
	for _, in := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(in.src))
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", in.src, err)
		}
		*in.dst = v
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.BoundsSource != "" {
		cfg.Bounds.Source = config.BoundsSource(f.BoundsSource)
	}
	if f.DefaultLayout != "" {
		cfg.DefaultLayout = f.DefaultLayout
	}
	cfg.Persistence.Enabled = f.Persist
	cfg.Persistence.RestoreSession = f.RestoreSession
	return cfg.Validate()
}

// InitConfig runs the settings form on the terminal, seeded from base, and
// writes the result to path.
func InitConfig(path string, base *config.Config) (*config.Config, error) {
	if err := requireTTY(); err != nil {
		return nil, err
	}
	cfg := cloneConfig(base)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fields := newSettingsFields(cfg)
	if err := fields.form(cfg.LayoutNames(), 72).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, fmt.Errorf("config init cancelled")
		}
		return nil, err
	}
	if err := fields.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SettingsTab shows the effective config and edits it in place.
type SettingsTab struct {
	cfg *config.Config

	width  int
	height int

	editing bool
	fields  *settingsFields
	form    *huh.Form
	err     error
}

// NewSettingsTab creates a SettingsTab for cfg.
func NewSettingsTab(cfg *config.Config) SettingsTab {
	return SettingsTab{cfg: cfg}
}

// Update implements tea.Model.
func (s SettingsTab) Update(msg tea.Msg) (SettingsTab, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		s.width = ws.Width
		s.height = ws.Height
	}
	if !s.editing {
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "e" && s.cfg != nil {
			s.fields = newSettingsFields(s.cfg)
			s.form = s.fields.form(s.cfg.LayoutNames(), s.width-4)
			s.editing = true
			s.err = nil
			return s, s.form.Init()
		}
		return s, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		s.stopEditing()
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}
	switch s.form.State {
	case huh.StateCompleted:
		// Apply to a copy so an invalid combination leaves cfg untouched.
		next := cloneConfig(s.cfg)
		if err := s.fields.apply(next); err != nil {
			s.err = err
		} else {
			*s.cfg = *next
		}
		s.stopEditing()
		return s, nil
	case huh.StateAborted:
		s.stopEditing()
		return s, nil
	}
	return s, cmd
}

func (s *SettingsTab) stopEditing() {
	s.editing = false
	s.form = nil
	s.fields = nil
}

// View implements tea.Model.
func (s SettingsTab) View() string {
	style := lipgloss.NewStyle().Width(s.width).Height(s.height).Padding(1, 2)
	if s.editing && s.form != nil {
		header := lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true).Render("Editing Settings") +
			dimStyle.Render("  (esc to cancel)")
		return style.Render(header + "\n\n" + s.form.View())
	}
	if s.cfg == nil {
		return style.Foreground(lipgloss.Color("241")).Align(lipgloss.Center, lipgloss.Center).Render("No config loaded")
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(22).
		Align(lipgloss.Right).
		PaddingRight(2)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	c := s.cfg
	lines := []string{
		row("Minimum Size", fmt.Sprintf("%d×%d", c.Window.MinWidth, c.Window.MinHeight)),
		row("Default Size", fmt.Sprintf("%d×%d", c.Window.DefaultWidth, c.Window.DefaultHeight)),
		row("Cascade", fmt.Sprintf("(%d,%d) step (%d,%d)", c.Window.CascadeOriginX, c.Window.CascadeOriginY, c.Window.CascadeStepX, c.Window.CascadeStepY)),
		"",
		row("Snap Thresholds", fmt.Sprintf("edge %d • corner %d • band %d%%", c.Snap.Threshold, c.Snap.CornerThreshold, c.Snap.MaximizeBandPercent)),
		row("Bounds", fmt.Sprintf("%s • debounce %dms", c.Bounds.Source, c.Bounds.DebounceMS)),
		row("Default Layout", c.DefaultLayout),
		row("Tile Gap", strconv.Itoa(c.GapSize)),
		"",
		row("Persistence", persistenceSummary(c.Persistence)),
		row("Log Level", c.LogLevel),
		"",
	}
	if s.err != nil {
		lines = append(lines, errorStyle.Render("  "+s.err.Error()), "")
	}
	lines = append(lines, dimStyle.Render("  Press 'e' to edit, ctrl+s to save"))
	return style.Render(strings.Join(lines, "\n"))
}

func persistenceSummary(p config.PersistenceConfig) string {
	if !p.Enabled {
		return "off"
	}
	parts := []string{fmt.Sprintf("every %dms", p.FrameIntervalMS)}
	if p.RestoreSession {
		parts = append(parts, "restore session")
	}
	if p.Dir != "" {
		parts = append(parts, p.Dir)
	}
	return strings.Join(parts, " • ")
}
