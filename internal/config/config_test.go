package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_ValidAndHasBuiltinLayouts(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if _, ok := cfg.Layouts[DefaultBuiltinLayout]; !ok {
		t.Fatalf("expected builtin %q to exist in layouts", DefaultBuiltinLayout)
	}
	if cfg.Window.MinWidth != 360 || cfg.Window.MinHeight != 220 {
		t.Fatalf("expected min size 360x220, got %dx%d", cfg.Window.MinWidth, cfg.Window.MinHeight)
	}
	if cfg.Snap.Threshold != 24 || cfg.Snap.CornerThreshold != 48 {
		t.Fatalf("unexpected snap thresholds: %+v", cfg.Snap)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
	if res.Config.Persistence.GeometryKey != "geometry.v1" {
		t.Fatalf("expected default geometry key, got %q", res.Config.Persistence.GeometryKey)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.DefaultLayout != DefaultBuiltinLayout {
		t.Fatalf("expected default_layout %q, got %q", DefaultBuiltinLayout, res.Config.DefaultLayout)
	}
}

func TestLoadFromPath_SectionOverridesKeepOtherDefaults(t *testing.T) {
	data := strings.Join([]string{
		"window:",
		"  min_width: 400",
		"snap:",
		"  threshold: 10",
		"bounds:",
		"  source: viewport",
		"persistence:",
		"  restore_session: true",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Window.MinWidth != 400 {
		t.Fatalf("expected min_width 400, got %d", cfg.Window.MinWidth)
	}
	if cfg.Window.MinHeight != 220 {
		t.Fatalf("expected default min_height to survive, got %d", cfg.Window.MinHeight)
	}
	if cfg.Snap.Threshold != 10 || cfg.Snap.CornerThreshold != 48 {
		t.Fatalf("unexpected snap config: %+v", cfg.Snap)
	}
	if cfg.Bounds.Source != BoundsSourceViewport {
		t.Fatalf("expected viewport source, got %q", cfg.Bounds.Source)
	}
	if !cfg.Persistence.RestoreSession || !cfg.Persistence.Enabled {
		t.Fatalf("unexpected persistence config: %+v", cfg.Persistence)
	}

	val, src, err := Explain(res, "window.min_width")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 400 {
		t.Fatalf("expected explain 400, got %#v", val)
	}
	if src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("expected file source on line 2, got %#v", src)
	}

	_, src, err = Explain(res, "window.min_height")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceDefault {
		t.Fatalf("expected default source, got %#v", src)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	data := "snap:\n  threshold: 30\n  corner_threshold: 10\n"
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Path != "snap.corner_threshold" {
		t.Fatalf("expected path snap.corner_threshold, got %q", verr.Path)
	}
	if !strings.Contains(err.Error(), path+":3:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"min width", func(c *Config) { c.Window.MinWidth = 0 }, "window.min_width"},
		{"default below min", func(c *Config) { c.Window.DefaultWidth = 100 }, "window.default_width"},
		{"band", func(c *Config) { c.Snap.MaximizeBandPercent = 101 }, "snap.maximize_band_percent"},
		{"source", func(c *Config) { c.Bounds.Source = "screen" }, "bounds.source"},
		{"same keys", func(c *Config) { c.Persistence.SessionKey = c.Persistence.GeometryKey }, "persistence.session_key"},
		{"empty hotkey command", func(c *Config) { c.Hotkeys.Bindings["Mod4-x"] = " " }, "hotkeys.bindings.Mod4-x"},
		{"gap", func(c *Config) { c.GapSize = -1 }, "gap_size"},
		{"default layout", func(c *Config) { c.DefaultLayout = "nope" }, "default_layout"},
		{"layout", func(c *Config) { c.Layouts["bad"] = Layout{Mode: "spiral"} }, "layouts.bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, configD, "10-base.yaml", "gap_size: 5\nwindow:\n  cascade_step_x: 30\n")
	writeConfig(t, configD, "20-override.yaml", "gap_size: 6\n")

	// Main file overrides includes.
	main := strings.Join([]string{
		"include:",
		"  - config.d",
		"gap_size: 7",
		"",
	}, "\n")
	path := writeConfig(t, dir, "config.yaml", main)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.GapSize != 7 {
		t.Fatalf("expected gap_size to be 7, got %d", res.Config.GapSize)
	}
	if res.Config.Window.CascadeStepX != 30 {
		t.Fatalf("expected included cascade_step_x 30, got %d", res.Config.Window.CascadeStepX)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeGlobAndParentSource(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "keys-a.yaml", "hotkeys:\n  bindings:\n    Mod4-t: tile-auto\n")
	writeConfig(t, dir, "keys-b.yaml", "window:\n  cascade_step_y: -1\n")
	writeConfig(t, dir, "other.yml", "gap_size: 9\n")
	path := writeConfig(t, dir, "config.yaml", "include: keys-*.yaml\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// The error names cascade_step_x; the file only set its parent section.
	if verr.Path != "window.cascade_step_x" || verr.Source.Kind != SourceFile || !strings.HasSuffix(verr.Source.File, "keys-b.yaml") {
		t.Fatalf("expected source in keys-b.yaml, got %q %#v", verr.Path, verr.Source)
	}

	writeConfig(t, dir, "keys-b.yaml", "hotkeys:\n  grab: true\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Hotkeys.Bindings["Mod4-t"] != "tile-auto" || !res.Config.Hotkeys.Grab || res.Config.GapSize != 0 {
		t.Fatalf("unexpected merged config %+v", res.Config.Hotkeys)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}

	writeConfig(t, dir, "config.yaml", "include: nothing-*.yaml\n")
	if _, err := LoadFromPath(path); err == nil || !strings.Contains(err.Error(), "no files match") {
		t.Fatalf("expected empty glob error, got %v", err)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
	if !strings.Contains(err.Error(), path+":") {
		t.Fatalf("expected error to include file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_InheritsBuiltinAndExplainSource(t *testing.T) {
	data := `
layouts:
  dev:
    inherits: "builtin:grid"
    tile_region:
      type: "left-half"
`
	path := writeConfig(t, t.TempDir(), "config.yaml", strings.TrimSpace(data)+"\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	layout, ok := res.Config.Layouts["dev"]
	if !ok {
		t.Fatalf("expected dev layout")
	}
	if layout.Mode != LayoutModeAuto {
		t.Fatalf("expected inherited mode %q, got %q", LayoutModeAuto, layout.Mode)
	}
	if layout.TileRegion.Type != RegionLeftHalf {
		t.Fatalf("expected left-half region, got %q", layout.TileRegion.Type)
	}
	if res.LayoutBases["dev"] != "grid" {
		t.Fatalf("expected base grid, got %q", res.LayoutBases["dev"])
	}

	val, src, err := Explain(res, "layouts.dev.mode")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != LayoutModeAuto {
		t.Fatalf("expected explain value %q, got %#v", LayoutModeAuto, val)
	}
	if src.Kind != SourceBuiltin || src.Name != "grid" {
		t.Fatalf("expected builtin source grid, got %#v", src)
	}
}

func TestLoadFromPath_InheritsRequiresBuiltinPrefix(t *testing.T) {
	data := "layouts:\n  dev:\n    inherits: grid\n"
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	_, err := LoadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "builtin:") {
		t.Fatalf("expected builtin prefix error, got %v", err)
	}
}

func TestExplain_UnknownPath(t *testing.T) {
	res := &LoadResult{Config: DefaultConfig()}
	for _, path := range []string{"nope", "window.nope", "layouts.nope.mode", "log_level.extra"} {
		if _, _, err := Explain(res, path); err == nil {
			t.Fatalf("expected error for %q", path)
		}
	}
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaptile", "config.yaml")

	cfg := DefaultConfig()
	cfg.Snap.Threshold = 12
	cfg.Layouts["wide"] = Layout{
		Mode:       LayoutModeFixed,
		TileRegion: TileRegion{Type: RegionFull},
		FixedGrid:  FixedGrid{Rows: 1, Cols: 4},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Snap.Threshold != 12 {
		t.Fatalf("expected threshold 12, got %d", res.Config.Snap.Threshold)
	}
	if res.Config.Layouts["wide"].FixedGrid.Cols != 4 {
		t.Fatalf("expected custom layout to survive, got %+v", res.Config.Layouts["wide"])
	}
}

func TestDefaultConfigPath_UsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	want := filepath.Join(dir, "snaptile", "config.yaml")
	if path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
}

func TestWatch_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "config.yaml", "gap_size: 3\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected change notification")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("watch did not stop after cancel")
	}
}

func TestLoadFromPath_HotkeyBindingsMergeAndUnbind(t *testing.T) {
	data := strings.Join([]string{
		"hotkeys:",
		"  grab: true",
		"  bindings:",
		"    Mod4-t: tile-auto",
		"    Mod4-w: \"\"",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h := res.Config.Hotkeys
	if !h.Grab {
		t.Fatalf("expected grab enabled")
	}
	if h.Bindings["Mod4-t"] != "tile-auto" {
		t.Fatalf("expected new binding, got %v", h.Bindings)
	}
	if _, ok := h.Bindings["Mod4-w"]; ok {
		t.Fatalf("expected Mod4-w unbound, got %v", h.Bindings)
	}
	if h.Bindings["Mod4-Left"] != "snap-left" {
		t.Fatalf("expected default bindings to survive, got %v", h.Bindings)
	}

	val, _, err := Explain(res, "hotkeys.bindings.Mod4-t")
	if err != nil || val != "tile-auto" {
		t.Fatalf("explain = %#v, %v", val, err)
	}

	// Unbound defaults stay unbound after a save.
	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := res.Config.Save(out); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err = LoadFromPath(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := res.Config.Hotkeys.Bindings["Mod4-w"]; ok {
		t.Fatalf("expected Mod4-w to stay unbound, got %v", res.Config.Hotkeys.Bindings)
	}
}
