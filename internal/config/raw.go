package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawFixedGrid struct {
	Rows *int `yaml:"rows"`
	Cols *int `yaml:"cols"`
}

type RawMasterStack struct {
	MasterWidthPercent *int `yaml:"master_width_percent"`
	MaxStackRows       *int `yaml:"max_stack_rows"`
	MaxStackCols       *int `yaml:"max_stack_cols"`
}

type RawTileRegion struct {
	Type          *RegionType `yaml:"type"`
	XPercent      *int        `yaml:"x_percent"`
	YPercent      *int        `yaml:"y_percent"`
	WidthPercent  *int        `yaml:"width_percent"`
	HeightPercent *int        `yaml:"height_percent"`
}

type RawLayout struct {
	Inherits        *string         `yaml:"inherits"`
	Mode            *LayoutMode     `yaml:"mode"`
	TileRegion      *RawTileRegion  `yaml:"tile_region"`
	FixedGrid       *RawFixedGrid   `yaml:"fixed_grid"`
	MasterStack     *RawMasterStack `yaml:"master_stack"`
	MaxWindowWidth  *int            `yaml:"max_window_width"`
	MaxWindowHeight *int            `yaml:"max_window_height"`
	FlexibleLastRow *bool           `yaml:"flexible_last_row"`
}

type RawWindowConfig struct {
	MinWidth       *int `yaml:"min_width"`
	MinHeight      *int `yaml:"min_height"`
	DefaultWidth   *int `yaml:"default_width"`
	DefaultHeight  *int `yaml:"default_height"`
	CascadeOriginX *int `yaml:"cascade_origin_x"`
	CascadeOriginY *int `yaml:"cascade_origin_y"`
	CascadeStepX   *int `yaml:"cascade_step_x"`
	CascadeStepY   *int `yaml:"cascade_step_y"`
}

type RawSnapConfig struct {
	Threshold           *int `yaml:"threshold"`
	CornerThreshold     *int `yaml:"corner_threshold"`
	MaximizeBandPercent *int `yaml:"maximize_band_percent"`
}

type RawBoundsConfig struct {
	Source         *BoundsSource `yaml:"source"`
	DebounceMS     *int          `yaml:"debounce_ms"`
	ViewportWidth  *int          `yaml:"viewport_width"`
	ViewportHeight *int          `yaml:"viewport_height"`
	Display        *string       `yaml:"display"`
}

type RawPersistenceConfig struct {
	Enabled         *bool   `yaml:"enabled"`
	Dir             *string `yaml:"dir"`
	GeometryKey     *string `yaml:"geometry_key"`
	SessionKey      *string `yaml:"session_key"`
	RestoreSession  *bool   `yaml:"restore_session"`
	FrameIntervalMS *int    `yaml:"frame_interval_ms"`
}

type RawHotkeysConfig struct {
	Grab     *bool             `yaml:"grab"`
	Bindings map[string]string `yaml:"bindings"`
}

type RawConfig struct {
	Include       IncludeList           `yaml:"include"`
	LogLevel      *string               `yaml:"log_level"`
	Window        *RawWindowConfig      `yaml:"window"`
	Snap          *RawSnapConfig        `yaml:"snap"`
	Bounds        *RawBoundsConfig      `yaml:"bounds"`
	Persistence   *RawPersistenceConfig `yaml:"persistence"`
	Hotkeys       *RawHotkeysConfig     `yaml:"hotkeys"`
	GapSize       *int                  `yaml:"gap_size"`
	DefaultLayout *string               `yaml:"default_layout"`
	Layouts       map[string]RawLayout  `yaml:"layouts"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Window != nil {
		merged := mergeRawWindow(deref(out.Window), *overlay.Window)
		out.Window = &merged
	}
	if overlay.Snap != nil {
		merged := mergeRawSnap(deref(out.Snap), *overlay.Snap)
		out.Snap = &merged
	}
	if overlay.Bounds != nil {
		merged := mergeRawBounds(deref(out.Bounds), *overlay.Bounds)
		out.Bounds = &merged
	}
	if overlay.Persistence != nil {
		merged := mergeRawPersistence(deref(out.Persistence), *overlay.Persistence)
		out.Persistence = &merged
	}
	if overlay.Hotkeys != nil {
		merged := mergeRawHotkeys(deref(out.Hotkeys), *overlay.Hotkeys)
		out.Hotkeys = &merged
	}
	if overlay.GapSize != nil {
		out.GapSize = overlay.GapSize
	}
	if overlay.DefaultLayout != nil {
		out.DefaultLayout = overlay.DefaultLayout
	}
	if overlay.Layouts != nil {
		if out.Layouts == nil {
			out.Layouts = make(map[string]RawLayout)
		} else {
			copied := make(map[string]RawLayout, len(out.Layouts))
			for name, layout := range out.Layouts {
				copied[name] = layout
			}
			out.Layouts = copied
		}
		for name, layout := range overlay.Layouts {
			out.Layouts[name] = mergeRawLayout(out.Layouts[name], layout)
		}
	}

	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func pick[T any](base, overlay *T) *T {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergeRawWindow(base, overlay RawWindowConfig) RawWindowConfig {
	return RawWindowConfig{
		MinWidth:       pick(base.MinWidth, overlay.MinWidth),
		MinHeight:      pick(base.MinHeight, overlay.MinHeight),
		DefaultWidth:   pick(base.DefaultWidth, overlay.DefaultWidth),
		DefaultHeight:  pick(base.DefaultHeight, overlay.DefaultHeight),
		CascadeOriginX: pick(base.CascadeOriginX, overlay.CascadeOriginX),
		CascadeOriginY: pick(base.CascadeOriginY, overlay.CascadeOriginY),
		CascadeStepX:   pick(base.CascadeStepX, overlay.CascadeStepX),
		CascadeStepY:   pick(base.CascadeStepY, overlay.CascadeStepY),
	}
}

func mergeRawSnap(base, overlay RawSnapConfig) RawSnapConfig {
	return RawSnapConfig{
		Threshold:           pick(base.Threshold, overlay.Threshold),
		CornerThreshold:     pick(base.CornerThreshold, overlay.CornerThreshold),
		MaximizeBandPercent: pick(base.MaximizeBandPercent, overlay.MaximizeBandPercent),
	}
}

func mergeRawBounds(base, overlay RawBoundsConfig) RawBoundsConfig {
	return RawBoundsConfig{
		Source:         pick(base.Source, overlay.Source),
		DebounceMS:     pick(base.DebounceMS, overlay.DebounceMS),
		ViewportWidth:  pick(base.ViewportWidth, overlay.ViewportWidth),
		ViewportHeight: pick(base.ViewportHeight, overlay.ViewportHeight),
		Display:        pick(base.Display, overlay.Display),
	}
}

func mergeRawPersistence(base, overlay RawPersistenceConfig) RawPersistenceConfig {
	return RawPersistenceConfig{
		Enabled:         pick(base.Enabled, overlay.Enabled),
		Dir:             pick(base.Dir, overlay.Dir),
		GeometryKey:     pick(base.GeometryKey, overlay.GeometryKey),
		SessionKey:      pick(base.SessionKey, overlay.SessionKey),
		RestoreSession:  pick(base.RestoreSession, overlay.RestoreSession),
		FrameIntervalMS: pick(base.FrameIntervalMS, overlay.FrameIntervalMS),
	}
}

// mergeRawHotkeys merges bindings per chord. An empty command in the overlay
// unbinds the chord.
func mergeRawHotkeys(base, overlay RawHotkeysConfig) RawHotkeysConfig {
	out := RawHotkeysConfig{Grab: pick(base.Grab, overlay.Grab)}
	if base.Bindings == nil && overlay.Bindings == nil {
		return out
	}
	out.Bindings = make(map[string]string, len(base.Bindings)+len(overlay.Bindings))
	for chord, command := range base.Bindings {
		out.Bindings[chord] = command
	}
	for chord, command := range overlay.Bindings {
		out.Bindings[chord] = command
	}
	return out
}

func mergeRawTileRegion(base RawTileRegion, overlay RawTileRegion) RawTileRegion {
	out := base
	if overlay.Type != nil {
		out.Type = overlay.Type
	}
	if overlay.XPercent != nil {
		out.XPercent = overlay.XPercent
	}
	if overlay.YPercent != nil {
		out.YPercent = overlay.YPercent
	}
	if overlay.WidthPercent != nil {
		out.WidthPercent = overlay.WidthPercent
	}
	if overlay.HeightPercent != nil {
		out.HeightPercent = overlay.HeightPercent
	}
	return out
}

func mergeRawFixedGrid(base RawFixedGrid, overlay RawFixedGrid) RawFixedGrid {
	out := base
	if overlay.Rows != nil {
		out.Rows = overlay.Rows
	}
	if overlay.Cols != nil {
		out.Cols = overlay.Cols
	}
	return out
}

func mergeRawMasterStack(base RawMasterStack, overlay RawMasterStack) RawMasterStack {
	return RawMasterStack{
		MasterWidthPercent: pick(base.MasterWidthPercent, overlay.MasterWidthPercent),
		MaxStackRows:       pick(base.MaxStackRows, overlay.MaxStackRows),
		MaxStackCols:       pick(base.MaxStackCols, overlay.MaxStackCols),
	}
}

func mergeRawLayout(base RawLayout, overlay RawLayout) RawLayout {
	out := base
	if overlay.Inherits != nil {
		out.Inherits = overlay.Inherits
	}
	if overlay.Mode != nil {
		out.Mode = overlay.Mode
	}
	if overlay.TileRegion != nil {
		merged := mergeRawTileRegion(deref(out.TileRegion), *overlay.TileRegion)
		out.TileRegion = &merged
	}
	if overlay.FixedGrid != nil {
		merged := mergeRawFixedGrid(deref(out.FixedGrid), *overlay.FixedGrid)
		out.FixedGrid = &merged
	}
	if overlay.MasterStack != nil {
		merged := mergeRawMasterStack(deref(out.MasterStack), *overlay.MasterStack)
		out.MasterStack = &merged
	}
	if overlay.MaxWindowWidth != nil {
		out.MaxWindowWidth = overlay.MaxWindowWidth
	}
	if overlay.MaxWindowHeight != nil {
		out.MaxWindowHeight = overlay.MaxWindowHeight
	}
	if overlay.FlexibleLastRow != nil {
		out.FlexibleLastRow = overlay.FlexibleLastRow
	}
	return out
}
