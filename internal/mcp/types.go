package mcp

import "github.com/1broseidon/snaptile/internal/wm"

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	IncludeMinimized bool `json:"include_minimized,omitempty" jsonschema:"When true, include minimized windows (default: false)"`
}

// WindowInfo describes a single window.
type WindowInfo struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Z         int    `json:"z"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Snapped   string `json:"snapped,omitempty"`
	Minimized bool   `json:"minimized,omitempty"`
	Active    bool   `json:"active"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	ActiveID int          `json:"active_id"`
	Bounds   BoundsInfo   `json:"bounds"`
	Windows  []WindowInfo `json:"windows"`
}

// BoundsInfo is the layout rectangle windows are clamped to.
type BoundsInfo struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CreateWindowInput is the input for the create_window tool.
type CreateWindowInput struct {
	Title  string `json:"title" jsonschema:"Window title; also the key its geometry is remembered under"`
	Width  int    `json:"width,omitempty" jsonschema:"Initial width (default: configured default width)"`
	Height int    `json:"height,omitempty" jsonschema:"Initial height (default: configured default height)"`
}

// WindowIDInput addresses one window.
type WindowIDInput struct {
	ID int `json:"id" jsonschema:"Window id from list_windows"`
}

// WindowCommandInput is the input for the window_command tool.
type WindowCommandInput struct {
	Command string `json:"command" jsonschema:"One of: snap-left, snap-right, snap-top, snap-bottom, maximize, restore, minimize-all, cycle-next, tile-2col, tile-3col, tile-2x2, tile-auto, close-active"`
}

// TileWindowsInput is the input for the tile_windows tool.
type TileWindowsInput struct {
	Layout  string `json:"layout,omitempty" jsonschema:"Named layout to apply (default: the configured default layout)"`
	Columns int    `json:"columns,omitempty" jsonschema:"Tile the top N windows into equal columns instead of a layout"`
	Rows    int    `json:"rows,omitempty" jsonschema:"Grid rows; use with cols instead of a layout"`
	Cols    int    `json:"cols,omitempty" jsonschema:"Grid columns; use with rows instead of a layout"`
}

// ListLayoutsInput is the input for the list_layouts tool.
type ListLayoutsInput struct{}

// ListLayoutsOutput is the output for the list_layouts tool.
type ListLayoutsOutput struct {
	Layouts       []string `json:"layouts"`
	DefaultLayout string   `json:"default_layout"`
}

// PressKeyInput is the input for the press_key tool.
type PressKeyInput struct {
	Chord string `json:"chord" jsonschema:"Key chord, e.g. super+left, Mod4-Up or alt+tab"`
}

// PressKeyOutput reports what a key chord did.
type PressKeyOutput struct {
	Handled  bool   `json:"handled"`
	Command  string `json:"command,omitempty"`
	ActiveID int    `json:"active_id"`
}

// ActionOutput reports the window state after a mutating tool.
type ActionOutput struct {
	OK       bool        `json:"ok"`
	ActiveID int         `json:"active_id"`
	Window   *WindowInfo `json:"window,omitempty"`
}

func windowInfo(w wm.Info, activeID int) WindowInfo {
	return WindowInfo{
		ID:        w.ID,
		Title:     w.Title,
		Z:         w.Z,
		X:         w.X,
		Y:         w.Y,
		Width:     w.W,
		Height:    w.H,
		Snapped:   string(w.Snapped),
		Minimized: w.Minimized,
		Active:    w.ID == activeID,
	}
}
