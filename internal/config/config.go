package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LayoutMode defines how windows are arranged by a named layout.
type LayoutMode string

const (
	LayoutModeAuto        LayoutMode = "auto"         // Dynamic grid based on count.
	LayoutModeFixed       LayoutMode = "fixed"        // Specific rows × cols.
	LayoutModeVertical    LayoutMode = "vertical"     // Single column stack.
	LayoutModeHorizontal  LayoutMode = "horizontal"   // Single row side-by-side.
	LayoutModeMasterStack LayoutMode = "master-stack" // Master pane left, stack grid right.
)

// RegionType defines tile region presets.
type RegionType string

const (
	RegionFull       RegionType = "full"
	RegionLeftHalf   RegionType = "left-half"
	RegionRightHalf  RegionType = "right-half"
	RegionTopHalf    RegionType = "top-half"
	RegionBottomHalf RegionType = "bottom-half"
	RegionCustom     RegionType = "custom"
)

// TileRegion defines where inside the bounds to tile windows.
type TileRegion struct {
	Type          RegionType `yaml:"type"`
	XPercent      int        `yaml:"x_percent"`      // 0-100
	YPercent      int        `yaml:"y_percent"`      // 0-100
	WidthPercent  int        `yaml:"width_percent"`  // 0-100
	HeightPercent int        `yaml:"height_percent"` // 0-100
}

// FixedGrid defines specific grid dimensions.
type FixedGrid struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// MasterStack defines the master-stack layout parameters.
type MasterStack struct {
	MasterWidthPercent int `yaml:"master_width_percent"` // Width of master pane as percentage (10-90)
	MaxStackRows       int `yaml:"max_stack_rows"`       // Maximum rows in the stack grid (>= 1)
	MaxStackCols       int `yaml:"max_stack_cols"`       // Maximum columns in the stack grid (>= 1)
}

// Layout defines a tiling configuration.
type Layout struct {
	Mode            LayoutMode  `yaml:"mode"`
	TileRegion      TileRegion  `yaml:"tile_region"`
	FixedGrid       FixedGrid   `yaml:"fixed_grid,omitempty"`
	MasterStack     MasterStack `yaml:"master_stack,omitempty"`
	MaxWindowWidth  int         `yaml:"max_window_width"`  // 0 = unlimited
	MaxWindowHeight int         `yaml:"max_window_height"` // 0 = unlimited
	FlexibleLastRow bool        `yaml:"flexible_last_row"` // Last row windows expand to fill width (auto mode only)
}

// WindowConfig holds window sizing and placement defaults.
type WindowConfig struct {
	MinWidth       int `yaml:"min_width"`
	MinHeight      int `yaml:"min_height"`
	DefaultWidth   int `yaml:"default_width"`
	DefaultHeight  int `yaml:"default_height"`
	CascadeOriginX int `yaml:"cascade_origin_x"`
	CascadeOriginY int `yaml:"cascade_origin_y"`
	CascadeStepX   int `yaml:"cascade_step_x"`
	CascadeStepY   int `yaml:"cascade_step_y"`
}

// SnapConfig holds the snap zone thresholds in layout units.
type SnapConfig struct {
	Threshold           int `yaml:"threshold"`
	CornerThreshold     int `yaml:"corner_threshold"`
	MaximizeBandPercent int `yaml:"maximize_band_percent"`
}

// BoundsSource selects where the usable layout rectangle comes from.
type BoundsSource string

const (
	BoundsSourceAuto     BoundsSource = "auto"     // Display work area when available, else viewport.
	BoundsSourceViewport BoundsSource = "viewport" // Host-reported viewport only.
	BoundsSourceDisplay  BoundsSource = "display"  // Display work area, viewport on failure.
)

// BoundsConfig configures the bounds provider.
type BoundsConfig struct {
	Source         BoundsSource `yaml:"source"`
	DebounceMS     int          `yaml:"debounce_ms"`
	ViewportWidth  int          `yaml:"viewport_width"`
	ViewportHeight int          `yaml:"viewport_height"`

	// Display is the X display to query; empty means $DISPLAY.
	Display string `yaml:"display,omitempty"`
}

// PersistenceConfig configures geometry and session persistence.
type PersistenceConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Dir             string `yaml:"dir,omitempty"`
	GeometryKey     string `yaml:"geometry_key"`
	SessionKey      string `yaml:"session_key"`
	RestoreSession  bool   `yaml:"restore_session"`
	FrameIntervalMS int    `yaml:"frame_interval_ms"`
}

// HotkeysConfig maps key chords such as "Mod4-Left" to window commands.
type HotkeysConfig struct {
	// Grab registers the bindings as global X11 hotkeys when a display is
	// available. Bindings always apply to keys forwarded over IPC.
	Grab     bool              `yaml:"grab"`
	Bindings map[string]string `yaml:"bindings"`
}

type Config struct {
	LogLevel      string            `yaml:"log_level"`
	Window        WindowConfig      `yaml:"window"`
	Snap          SnapConfig        `yaml:"snap"`
	Bounds        BoundsConfig      `yaml:"bounds"`
	Persistence   PersistenceConfig `yaml:"persistence"`
	Hotkeys       HotkeysConfig     `yaml:"hotkeys"`
	GapSize       int               `yaml:"gap_size"`
	DefaultLayout string            `yaml:"default_layout"`
	Layouts       map[string]Layout `yaml:"layouts"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Window: WindowConfig{
			MinWidth:       360,
			MinHeight:      220,
			DefaultWidth:   640,
			DefaultHeight:  400,
			CascadeOriginX: 80,
			CascadeOriginY: 60,
			CascadeStepX:   20,
			CascadeStepY:   10,
		},
		Snap: SnapConfig{
			Threshold:           24,
			CornerThreshold:     48,
			MaximizeBandPercent: 50,
		},
		Bounds: BoundsConfig{
			Source:         BoundsSourceAuto,
			DebounceMS:     50,
			ViewportWidth:  1280,
			ViewportHeight: 800,
		},
		Persistence: PersistenceConfig{
			Enabled:         true,
			GeometryKey:     "geometry.v1",
			SessionKey:      "session.v1",
			RestoreSession:  false,
			FrameIntervalMS: 16,
		},
		Hotkeys: HotkeysConfig{
			Grab:     false,
			Bindings: DefaultBindings(),
		},
		GapSize:       0,
		DefaultLayout: DefaultBuiltinLayout,
		Layouts:       BuiltinLayouts(),
	}
}

// SlogLevel maps log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debounce returns the bounds debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Bounds.DebounceMS) * time.Millisecond
}

// FrameInterval returns the persistence coalescing interval.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Persistence.FrameIntervalMS) * time.Millisecond
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include/inherits structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	save := *c
	save.Layouts = layoutsForSave(c.Layouts)
	save.Hotkeys.Bindings = bindingsForSave(c.Hotkeys.Bindings)

	data, err := yaml.Marshal(&save)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// bindingsForSave writes unbound defaults as empty commands so they stay
// unbound after a reload.
func bindingsForSave(bindings map[string]string) map[string]string {
	out := make(map[string]string, len(bindings))
	for chord, command := range bindings {
		out[chord] = command
	}
	for chord := range DefaultBindings() {
		if _, ok := out[chord]; !ok {
			out[chord] = ""
		}
	}
	return out
}

func layoutsForSave(layouts map[string]Layout) map[string]Layout {
	builtin := BuiltinLayouts()
	out := make(map[string]Layout)
	for name, layout := range layouts {
		if base, ok := builtin[name]; ok && base == layout {
			continue
		}
		out[name] = layout
	}
	return out
}

// GetLayout retrieves a layout by name with validation.
func (c *Config) GetLayout(name string) (*Layout, error) {
	layout, ok := c.Layouts[name]
	if !ok {
		return nil, fmt.Errorf("layout %q not found", name)
	}

	if err := validateLayout(&layout); err != nil {
		return nil, fmt.Errorf("invalid layout %q: %w", name, err)
	}

	return &layout, nil
}

// GetDefaultLayout retrieves the default layout.
func (c *Config) GetDefaultLayout() (*Layout, error) {
	return c.GetLayout(c.DefaultLayout)
}

// LayoutNames returns the configured layout names in sorted order.
func (c *Config) LayoutNames() []string {
	return sortedKeys(c.Layouts)
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}

	w := c.Window
	if w.MinWidth < 1 {
		return &ValidationError{Path: "window.min_width", Err: fmt.Errorf("min_width must be >= 1")}
	}
	if w.MinHeight < 1 {
		return &ValidationError{Path: "window.min_height", Err: fmt.Errorf("min_height must be >= 1")}
	}
	if w.DefaultWidth < w.MinWidth {
		return &ValidationError{Path: "window.default_width", Err: fmt.Errorf("default_width must be >= min_width (%d)", w.MinWidth)}
	}
	if w.DefaultHeight < w.MinHeight {
		return &ValidationError{Path: "window.default_height", Err: fmt.Errorf("default_height must be >= min_height (%d)", w.MinHeight)}
	}
	if w.CascadeStepX < 0 || w.CascadeStepY < 0 {
		return &ValidationError{Path: "window.cascade_step_x", Err: fmt.Errorf("cascade steps must be >= 0")}
	}

	if c.Snap.Threshold < 0 {
		return &ValidationError{Path: "snap.threshold", Err: fmt.Errorf("threshold must be >= 0")}
	}
	if c.Snap.CornerThreshold < c.Snap.Threshold {
		return &ValidationError{Path: "snap.corner_threshold", Err: fmt.Errorf("corner_threshold must be >= threshold (%d)", c.Snap.Threshold)}
	}
	if c.Snap.MaximizeBandPercent < 0 || c.Snap.MaximizeBandPercent > 100 {
		return &ValidationError{Path: "snap.maximize_band_percent", Err: fmt.Errorf("maximize_band_percent must be between 0 and 100")}
	}

	switch c.Bounds.Source {
	case BoundsSourceAuto, BoundsSourceViewport, BoundsSourceDisplay:
	default:
		return &ValidationError{Path: "bounds.source", Err: fmt.Errorf("source must be one of: auto, viewport, display")}
	}
	if c.Bounds.DebounceMS < 0 {
		return &ValidationError{Path: "bounds.debounce_ms", Err: fmt.Errorf("debounce_ms must be >= 0")}
	}
	if c.Bounds.ViewportWidth < 1 || c.Bounds.ViewportHeight < 1 {
		return &ValidationError{Path: "bounds.viewport_width", Err: fmt.Errorf("viewport_width and viewport_height must be >= 1")}
	}

	if c.Persistence.GeometryKey == "" {
		return &ValidationError{Path: "persistence.geometry_key", Err: fmt.Errorf("geometry_key is required")}
	}
	if c.Persistence.SessionKey == "" {
		return &ValidationError{Path: "persistence.session_key", Err: fmt.Errorf("session_key is required")}
	}
	if c.Persistence.GeometryKey == c.Persistence.SessionKey {
		return &ValidationError{Path: "persistence.session_key", Err: fmt.Errorf("session_key must differ from geometry_key")}
	}
	if c.Persistence.FrameIntervalMS < 0 {
		return &ValidationError{Path: "persistence.frame_interval_ms", Err: fmt.Errorf("frame_interval_ms must be >= 0")}
	}

	for _, chord := range sortedKeys(c.Hotkeys.Bindings) {
		if strings.TrimSpace(chord) == "" {
			return &ValidationError{Path: "hotkeys.bindings", Err: fmt.Errorf("key chord must not be empty")}
		}
		if strings.TrimSpace(c.Hotkeys.Bindings[chord]) == "" {
			return &ValidationError{Path: "hotkeys.bindings." + chord, Err: fmt.Errorf("command must not be empty")}
		}
	}

	if c.GapSize < 0 {
		return &ValidationError{Path: "gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}

	if len(c.Layouts) == 0 {
		return &ValidationError{Path: "layouts", Err: fmt.Errorf("layouts must not be empty")}
	}
	if c.DefaultLayout == "" {
		return &ValidationError{Path: "default_layout", Err: fmt.Errorf("default_layout is required")}
	}
	if _, ok := c.Layouts[c.DefaultLayout]; !ok {
		return &ValidationError{Path: "default_layout", Err: fmt.Errorf("default_layout %q not found in layouts", c.DefaultLayout)}
	}

	for _, name := range sortedKeys(c.Layouts) {
		layout := c.Layouts[name]
		if err := validateLayout(&layout); err != nil {
			return &ValidationError{Path: "layouts." + name, Err: err}
		}
	}

	return nil
}

// validateLayout checks if a layout configuration is valid.
func validateLayout(layout *Layout) error {
	switch layout.Mode {
	case LayoutModeAuto, LayoutModeFixed, LayoutModeVertical, LayoutModeHorizontal, LayoutModeMasterStack:
	default:
		return fmt.Errorf("invalid mode %q", layout.Mode)
	}

	if layout.Mode == LayoutModeFixed {
		if layout.FixedGrid.Rows <= 0 || layout.FixedGrid.Cols <= 0 {
			return fmt.Errorf("fixed mode requires rows and cols to be positive")
		}
	}

	if layout.Mode == LayoutModeMasterStack {
		if layout.MasterStack.MasterWidthPercent < 10 || layout.MasterStack.MasterWidthPercent > 90 {
			return fmt.Errorf("master_stack.master_width_percent must be between 10 and 90")
		}
		if layout.MasterStack.MaxStackRows < 1 {
			return fmt.Errorf("master_stack.max_stack_rows must be >= 1")
		}
		if layout.MasterStack.MaxStackCols < 1 {
			return fmt.Errorf("master_stack.max_stack_cols must be >= 1")
		}
	}

	if layout.MaxWindowWidth < 0 || layout.MaxWindowHeight < 0 {
		return fmt.Errorf("max_window_width/height must be >= 0")
	}

	switch layout.TileRegion.Type {
	case RegionFull, RegionLeftHalf, RegionRightHalf, RegionTopHalf, RegionBottomHalf:
		// ok
	case RegionCustom:
		if layout.TileRegion.XPercent < 0 || layout.TileRegion.XPercent > 100 {
			return fmt.Errorf("x_percent must be between 0 and 100")
		}
		if layout.TileRegion.YPercent < 0 || layout.TileRegion.YPercent > 100 {
			return fmt.Errorf("y_percent must be between 0 and 100")
		}
		if layout.TileRegion.WidthPercent <= 0 || layout.TileRegion.WidthPercent > 100 {
			return fmt.Errorf("width_percent must be between 1 and 100")
		}
		if layout.TileRegion.HeightPercent <= 0 || layout.TileRegion.HeightPercent > 100 {
			return fmt.Errorf("height_percent must be between 1 and 100")
		}
		if layout.TileRegion.XPercent+layout.TileRegion.WidthPercent > 100 {
			return fmt.Errorf("x_percent + width_percent must be <= 100")
		}
		if layout.TileRegion.YPercent+layout.TileRegion.HeightPercent > 100 {
			return fmt.Errorf("y_percent + height_percent must be <= 100")
		}
	default:
		return fmt.Errorf("invalid region type %q", layout.TileRegion.Type)
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
