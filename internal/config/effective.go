package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults and returns the
// effective config plus the builtin base of every layout.
func BuildEffectiveConfig(raw RawConfig) (*Config, map[string]string, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}

	if w := raw.Window; w != nil {
		cfg.Window.MinWidth = derefInt(w.MinWidth, cfg.Window.MinWidth)
		cfg.Window.MinHeight = derefInt(w.MinHeight, cfg.Window.MinHeight)
		cfg.Window.DefaultWidth = derefInt(w.DefaultWidth, cfg.Window.DefaultWidth)
		cfg.Window.DefaultHeight = derefInt(w.DefaultHeight, cfg.Window.DefaultHeight)
		cfg.Window.CascadeOriginX = derefInt(w.CascadeOriginX, cfg.Window.CascadeOriginX)
		cfg.Window.CascadeOriginY = derefInt(w.CascadeOriginY, cfg.Window.CascadeOriginY)
		cfg.Window.CascadeStepX = derefInt(w.CascadeStepX, cfg.Window.CascadeStepX)
		cfg.Window.CascadeStepY = derefInt(w.CascadeStepY, cfg.Window.CascadeStepY)
	}

	if s := raw.Snap; s != nil {
		cfg.Snap.Threshold = derefInt(s.Threshold, cfg.Snap.Threshold)
		cfg.Snap.CornerThreshold = derefInt(s.CornerThreshold, cfg.Snap.CornerThreshold)
		cfg.Snap.MaximizeBandPercent = derefInt(s.MaximizeBandPercent, cfg.Snap.MaximizeBandPercent)
	}

	if b := raw.Bounds; b != nil {
		if b.Source != nil {
			cfg.Bounds.Source = BoundsSource(strings.TrimSpace(string(*b.Source)))
		}
		cfg.Bounds.DebounceMS = derefInt(b.DebounceMS, cfg.Bounds.DebounceMS)
		cfg.Bounds.ViewportWidth = derefInt(b.ViewportWidth, cfg.Bounds.ViewportWidth)
		cfg.Bounds.ViewportHeight = derefInt(b.ViewportHeight, cfg.Bounds.ViewportHeight)
		if b.Display != nil {
			cfg.Bounds.Display = strings.TrimSpace(*b.Display)
		}
	}

	if p := raw.Persistence; p != nil {
		if p.Enabled != nil {
			cfg.Persistence.Enabled = *p.Enabled
		}
		if p.Dir != nil {
			cfg.Persistence.Dir = expandHome(strings.TrimSpace(*p.Dir))
		}
		if p.GeometryKey != nil {
			cfg.Persistence.GeometryKey = strings.TrimSpace(*p.GeometryKey)
		}
		if p.SessionKey != nil {
			cfg.Persistence.SessionKey = strings.TrimSpace(*p.SessionKey)
		}
		if p.RestoreSession != nil {
			cfg.Persistence.RestoreSession = *p.RestoreSession
		}
		cfg.Persistence.FrameIntervalMS = derefInt(p.FrameIntervalMS, cfg.Persistence.FrameIntervalMS)
	}

	if h := raw.Hotkeys; h != nil {
		if h.Grab != nil {
			cfg.Hotkeys.Grab = *h.Grab
		}
		for chord, command := range h.Bindings {
			chord = strings.TrimSpace(chord)
			command = strings.TrimSpace(command)
			if command == "" {
				delete(cfg.Hotkeys.Bindings, chord)
				continue
			}
			cfg.Hotkeys.Bindings[chord] = command
		}
	}

	cfg.GapSize = derefInt(raw.GapSize, cfg.GapSize)

	layoutBases, err := applyLayouts(cfg, raw)
	if err != nil {
		return nil, nil, err
	}

	if raw.DefaultLayout != nil {
		cfg.DefaultLayout = strings.TrimSpace(*raw.DefaultLayout)
	}

	return cfg, layoutBases, nil
}

func applyLayouts(cfg *Config, raw RawConfig) (map[string]string, error) {
	builtin := BuiltinLayouts()

	// Start with built-ins.
	cfg.Layouts = make(map[string]Layout, len(builtin))
	for name, layout := range builtin {
		cfg.Layouts[name] = layout
	}

	layoutBases := make(map[string]string)
	for name := range cfg.Layouts {
		layoutBases[name] = name
	}

	// Apply user layout patches in a stable order so errors are deterministic.
	for _, name := range sortedKeys(raw.Layouts) {
		patch := raw.Layouts[name]
		baseName, baseLayout, err := selectLayoutBase(name, patch, builtin)
		if err != nil {
			return nil, err
		}

		merged := mergeLayoutPatch(baseLayout, patch)
		if err := validateLayout(&merged); err != nil {
			return nil, &ValidationError{Path: "layouts." + name, Err: err}
		}

		cfg.Layouts[name] = merged
		layoutBases[name] = baseName
	}

	return layoutBases, nil
}

func selectLayoutBase(name string, patch RawLayout, builtin map[string]Layout) (string, Layout, error) {
	ref := ""
	if patch.Inherits != nil {
		ref = strings.TrimSpace(*patch.Inherits)
	}

	baseName := DefaultBuiltinLayout
	if _, ok := builtin[name]; ok {
		baseName = name
	}

	if ref != "" {
		const prefix = "builtin:"
		if !strings.HasPrefix(ref, prefix) {
			return "", Layout{}, &ValidationError{
				Path: "layouts." + name + ".inherits",
				Err:  fmt.Errorf("inherits must be %q-prefixed (builtin-only), got %q", prefix, ref),
			}
		}
		baseName = strings.TrimSpace(strings.TrimPrefix(ref, prefix))
	}

	baseLayout, ok := builtin[baseName]
	if !ok {
		return "", Layout{}, &ValidationError{
			Path: "layouts." + name + ".inherits",
			Err:  fmt.Errorf("unknown builtin layout %q", baseName),
		}
	}

	return baseName, baseLayout, nil
}

func mergeLayoutPatch(base Layout, patch RawLayout) Layout {
	out := base

	if patch.Mode != nil {
		out.Mode = *patch.Mode
	}
	if patch.TileRegion != nil {
		if patch.TileRegion.Type != nil {
			out.TileRegion.Type = *patch.TileRegion.Type
		}
		out.TileRegion.XPercent = derefInt(patch.TileRegion.XPercent, out.TileRegion.XPercent)
		out.TileRegion.YPercent = derefInt(patch.TileRegion.YPercent, out.TileRegion.YPercent)
		out.TileRegion.WidthPercent = derefInt(patch.TileRegion.WidthPercent, out.TileRegion.WidthPercent)
		out.TileRegion.HeightPercent = derefInt(patch.TileRegion.HeightPercent, out.TileRegion.HeightPercent)

		// Custom regions cover the full area on any axis left unset.
		if out.TileRegion.Type == RegionCustom {
			if patch.TileRegion.WidthPercent == nil && out.TileRegion.WidthPercent == 0 {
				out.TileRegion.WidthPercent = 100
			}
			if patch.TileRegion.HeightPercent == nil && out.TileRegion.HeightPercent == 0 {
				out.TileRegion.HeightPercent = 100
			}
		}
	}
	if patch.FixedGrid != nil {
		out.FixedGrid.Rows = derefInt(patch.FixedGrid.Rows, out.FixedGrid.Rows)
		out.FixedGrid.Cols = derefInt(patch.FixedGrid.Cols, out.FixedGrid.Cols)
	}
	if patch.MasterStack != nil {
		out.MasterStack.MasterWidthPercent = derefInt(patch.MasterStack.MasterWidthPercent, out.MasterStack.MasterWidthPercent)
		out.MasterStack.MaxStackRows = derefInt(patch.MasterStack.MaxStackRows, out.MasterStack.MaxStackRows)
		out.MasterStack.MaxStackCols = derefInt(patch.MasterStack.MaxStackCols, out.MasterStack.MaxStackCols)
	}
	out.MaxWindowWidth = derefInt(patch.MaxWindowWidth, out.MaxWindowWidth)
	out.MaxWindowHeight = derefInt(patch.MaxWindowHeight, out.MaxWindowHeight)
	if patch.FlexibleLastRow != nil {
		out.FlexibleLastRow = *patch.FlexibleLastRow
	}

	return out
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
