package config

const DefaultBuiltinLayout = "grid"

// BuiltinLayouts returns the built-in layout library.
//
// These are always available to users without needing to define them in YAML.
// Users can define additional custom layouts in their config file.
func BuiltinLayouts() map[string]Layout {
	return map[string]Layout{
		"grid": {
			Mode: LayoutModeAuto,
			TileRegion: TileRegion{
				Type: RegionFull,
			},
			FlexibleLastRow: true,
		},
		"columns": {
			Mode: LayoutModeHorizontal,
			TileRegion: TileRegion{
				Type: RegionFull,
			},
		},
		"rows": {
			Mode: LayoutModeVertical,
			TileRegion: TileRegion{
				Type: RegionFull,
			},
		},
		"columns-2": {
			Mode:       LayoutModeFixed,
			TileRegion: TileRegion{Type: RegionFull},
			FixedGrid:  FixedGrid{Rows: 1, Cols: 2},
		},
		"columns-3": {
			Mode:       LayoutModeFixed,
			TileRegion: TileRegion{Type: RegionFull},
			FixedGrid:  FixedGrid{Rows: 1, Cols: 3},
		},
		"grid-2x2": {
			Mode:       LayoutModeFixed,
			TileRegion: TileRegion{Type: RegionFull},
			FixedGrid:  FixedGrid{Rows: 2, Cols: 2},
		},
		"half-left": {
			Mode: LayoutModeAuto,
			TileRegion: TileRegion{
				Type: RegionLeftHalf,
			},
			FlexibleLastRow: true,
		},
		"half-right": {
			Mode: LayoutModeAuto,
			TileRegion: TileRegion{
				Type: RegionRightHalf,
			},
			FlexibleLastRow: true,
		},
		"master-stack": {
			Mode: LayoutModeMasterStack,
			TileRegion: TileRegion{
				Type: RegionFull,
			},
			MasterStack: MasterStack{
				MasterWidthPercent: 50,
				MaxStackRows:       3,
				MaxStackCols:       2,
			},
		},
	}
}

// DefaultBindings returns the built-in key chords. Command names match the
// window commands accepted over IPC.
func DefaultBindings() map[string]string {
	return map[string]string{
		"Mod4-Left":  "snap-left",
		"Mod4-Right": "snap-right",
		"Mod4-Up":    "maximize",
		"Mod4-Down":  "restore",
		"Mod4-m":     "minimize-all",
		"Mod4-w":     "close-active",
		"Mod1-Tab":   "cycle-next",
	}
}
