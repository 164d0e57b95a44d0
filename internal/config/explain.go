package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	gap_size
//	default_layout
//	window.min_width
//	snap.threshold
//	bounds.source
//	persistence.geometry_key
//	hotkeys.bindings.<chord>
//	layouts.<name>.mode
//	layouts.<name>.tile_region.type
//	layouts.<name>.fixed_grid.rows
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}

	// Otherwise infer from category.
	if strings.HasPrefix(path, "layouts.") {
		name := layoutNameFromPath(path)
		base := ""
		if name != "" {
			base = res.LayoutBases[name]
		}
		return value, Source{Kind: SourceBuiltin, Name: base}, nil
	}

	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func layoutNameFromPath(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return ""
	}
	if parts[0] != "layouts" {
		return ""
	}
	return parts[1]
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown path: %s", path)

	leaf := func(fields map[string]any) (any, error) {
		if len(parts) != 2 {
			return nil, unknown
		}
		v, ok := fields[parts[1]]
		if !ok {
			return nil, unknown
		}
		return v, nil
	}

	switch parts[0] {
	case "log_level":
		if len(parts) != 1 {
			return nil, unknown
		}
		return cfg.LogLevel, nil
	case "gap_size":
		if len(parts) != 1 {
			return nil, unknown
		}
		return cfg.GapSize, nil
	case "default_layout":
		if len(parts) != 1 {
			return nil, unknown
		}
		return cfg.DefaultLayout, nil
	case "window":
		if len(parts) == 1 {
			return cfg.Window, nil
		}
		w := cfg.Window
		return leaf(map[string]any{
			"min_width":        w.MinWidth,
			"min_height":       w.MinHeight,
			"default_width":    w.DefaultWidth,
			"default_height":   w.DefaultHeight,
			"cascade_origin_x": w.CascadeOriginX,
			"cascade_origin_y": w.CascadeOriginY,
			"cascade_step_x":   w.CascadeStepX,
			"cascade_step_y":   w.CascadeStepY,
		})
	case "snap":
		if len(parts) == 1 {
			return cfg.Snap, nil
		}
		return leaf(map[string]any{
			"threshold":             cfg.Snap.Threshold,
			"corner_threshold":      cfg.Snap.CornerThreshold,
			"maximize_band_percent": cfg.Snap.MaximizeBandPercent,
		})
	case "bounds":
		if len(parts) == 1 {
			return cfg.Bounds, nil
		}
		return leaf(map[string]any{
			"source":          cfg.Bounds.Source,
			"debounce_ms":     cfg.Bounds.DebounceMS,
			"viewport_width":  cfg.Bounds.ViewportWidth,
			"viewport_height": cfg.Bounds.ViewportHeight,
			"display":         cfg.Bounds.Display,
		})
	case "persistence":
		if len(parts) == 1 {
			return cfg.Persistence, nil
		}
		p := cfg.Persistence
		return leaf(map[string]any{
			"enabled":           p.Enabled,
			"dir":               p.Dir,
			"geometry_key":      p.GeometryKey,
			"session_key":       p.SessionKey,
			"restore_session":   p.RestoreSession,
			"frame_interval_ms": p.FrameIntervalMS,
		})
	case "hotkeys":
		if len(parts) == 1 {
			return cfg.Hotkeys, nil
		}
		switch parts[1] {
		case "grab":
			if len(parts) == 2 {
				return cfg.Hotkeys.Grab, nil
			}
		case "bindings":
			if len(parts) == 2 {
				return cfg.Hotkeys.Bindings, nil
			}
			if command, ok := cfg.Hotkeys.Bindings[strings.Join(parts[2:], ".")]; ok {
				return command, nil
			}
		}
		return nil, unknown
	case "layouts":
		if len(parts) == 1 {
			return cfg.LayoutNames(), nil
		}
		layout, ok := cfg.Layouts[parts[1]]
		if !ok {
			return nil, fmt.Errorf("layout %q not found", parts[1])
		}
		return lookupLayoutValue(layout, parts[2:], path)
	default:
		return nil, unknown
	}
}

func lookupLayoutValue(layout Layout, parts []string, path string) (any, error) {
	if len(parts) == 0 {
		return layout, nil
	}
	unknown := fmt.Errorf("unknown path: %s", path)

	switch parts[0] {
	case "mode":
		return layout.Mode, nil
	case "max_window_width":
		return layout.MaxWindowWidth, nil
	case "max_window_height":
		return layout.MaxWindowHeight, nil
	case "flexible_last_row":
		return layout.FlexibleLastRow, nil
	case "tile_region":
		if len(parts) == 1 {
			return layout.TileRegion, nil
		}
		switch parts[1] {
		case "type":
			return layout.TileRegion.Type, nil
		case "x_percent":
			return layout.TileRegion.XPercent, nil
		case "y_percent":
			return layout.TileRegion.YPercent, nil
		case "width_percent":
			return layout.TileRegion.WidthPercent, nil
		case "height_percent":
			return layout.TileRegion.HeightPercent, nil
		}
	case "fixed_grid":
		if len(parts) == 1 {
			return layout.FixedGrid, nil
		}
		switch parts[1] {
		case "rows":
			return layout.FixedGrid.Rows, nil
		case "cols":
			return layout.FixedGrid.Cols, nil
		}
	case "master_stack":
		if len(parts) == 1 {
			return layout.MasterStack, nil
		}
		switch parts[1] {
		case "master_width_percent":
			return layout.MasterStack.MasterWidthPercent, nil
		case "max_stack_rows":
			return layout.MasterStack.MaxStackRows, nil
		case "max_stack_cols":
			return layout.MasterStack.MaxStackCols, nil
		}
	}
	return nil, unknown
}
