package tui

import (
	"fmt"
	"strings"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/platform"
	"github.com/1broseidon/snaptile/internal/tiling"
	"github.com/1broseidon/snaptile/internal/wm"
)

// summarizeLayout describes the tiles a layout produces for tileCount
// windows inside bounds.
func summarizeLayout(layout *config.Layout, tileCount, gapSize int, bounds platform.Rect) string {
	if layout == nil {
		return ""
	}
	if tileCount < 1 {
		tileCount = 1
	}
	if gapSize < 0 {
		gapSize = 0
	}

	rects, err := tiling.CalculatePositionsWithLayout(tileCount, bounds, layout, gapSize)
	if err != nil {
		return err.Error()
	}
	if len(rects) == 0 {
		return "no tiles"
	}

	minW, minH := rects[0].Width, rects[0].Height
	maxW, maxH := rects[0].Width, rects[0].Height
	for _, r := range rects[1:] {
		minW = min(minW, r.Width)
		minH = min(minH, r.Height)
		maxW = max(maxW, r.Width)
		maxH = max(maxH, r.Height)
	}

	if minW == maxW && minH == maxH {
		return fmt.Sprintf("%d tiles • %d×%d each", len(rects), minW, minH)
	}
	return fmt.Sprintf("%d tiles • min %d×%d • max %d×%d", len(rects), minW, minH, maxW, maxH)
}

// renderLayoutPreview draws the tiles a layout would produce on a
// character canvas.
func renderLayoutPreview(layout *config.Layout, tileCount, width, height int) []string {
	if layout == nil || width < 5 || height < 3 {
		return emptyCanvas(width, height)
	}

	canvas := newCanvas(width, height)

	// Terminal cells are roughly twice as tall as wide.
	area := platform.Rect{Width: width * 2, Height: height * 2}
	rects, err := tiling.CalculatePositionsWithLayout(tileCount, area, layout, 1)
	if err != nil {
		rows, cols := tiling.CalculateGrid(tileCount)
		rects = tiling.GridCells(rows, cols, tileCount, area)
	}
	for i, rect := range rects {
		drawTile(canvas, rect, fmt.Sprintf("%d", i+1), area, width, height)
	}

	drawBorder(canvas, width, height)
	return canvasLines(canvas)
}

// renderDesktopPreview draws the visible windows of a snapshot bottom to
// top so higher windows overdraw lower ones.
func renderDesktopPreview(s wm.Snapshot, width, height int) []string {
	if width < 5 || height < 3 || s.Bounds.Empty() {
		return emptyCanvas(width, height)
	}

	canvas := newCanvas(width, height)
	for _, w := range s.Windows {
		if w.Minimized {
			continue
		}
		r := w.Rect()
		r.X -= s.Bounds.X
		r.Y -= s.Bounds.Y
		label := fmt.Sprintf("%d", w.ID)
		if w.ID == s.ActiveID {
			label = "*" + label
		}
		clearTile(canvas, r, s.Bounds, width, height)
		drawTile(canvas, r, label, s.Bounds, width, height)
	}
	if s.Preview != nil {
		r := *s.Preview
		r.X -= s.Bounds.X
		r.Y -= s.Bounds.Y
		drawTile(canvas, r, "snap", s.Bounds, width, height)
	}

	drawBorder(canvas, width, height)
	return canvasLines(canvas)
}

func newCanvas(width, height int) [][]rune {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	return canvas
}

func canvasLines(canvas [][]rune) []string {
	lines := make([]string, len(canvas))
	for i, row := range canvas {
		lines[i] = string(row)
	}
	return lines
}

// project maps rect from area coordinates onto the canvas interior.
func project(rect, area platform.Rect, canvasW, canvasH int) (x1, y1, x2, y2 int, ok bool) {
	if area.Width <= 0 || area.Height <= 0 {
		return 0, 0, 0, 0, false
	}
	x1 = rect.X * canvasW / area.Width
	y1 = rect.Y * canvasH / area.Height
	x2 = (rect.X + rect.Width) * canvasW / area.Width
	y2 = (rect.Y + rect.Height) * canvasH / area.Height

	x1 = max(x1, 1)
	y1 = max(y1, 1)
	x2 = min(x2, canvasW-2)
	y2 = min(y2, canvasH-2)

	// Need at least 2x2 for a tile
	if x2 <= x1 || y2 <= y1 {
		return 0, 0, 0, 0, false
	}
	return x1, y1, x2, y2, true
}

func clearTile(canvas [][]rune, rect, area platform.Rect, canvasW, canvasH int) {
	x1, y1, x2, y2, ok := project(rect, area, canvasW, canvasH)
	if !ok {
		return
	}
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			canvas[y][x] = ' '
		}
	}
}

func drawTile(canvas [][]rune, rect platform.Rect, label string, area platform.Rect, canvasW, canvasH int) {
	x1, y1, x2, y2, ok := project(rect, area, canvasW, canvasH)
	if !ok {
		return
	}

	for x := x1; x <= x2; x++ {
		canvas[y1][x] = '─'
		canvas[y2][x] = '─'
	}
	for y := y1; y <= y2; y++ {
		canvas[y][x1] = '│'
		canvas[y][x2] = '│'
	}
	canvas[y1][x1] = '┌'
	canvas[y1][x2] = '┐'
	canvas[y2][x1] = '└'
	canvas[y2][x2] = '┘'

	centerY := (y1 + y2) / 2
	centerX := (x1 + x2) / 2
	if centerY > y1 && centerY < y2 && centerX > x1 && centerX < x2 {
		startX := centerX - len(label)/2
		for i, r := range label {
			if startX+i > x1 && startX+i < x2 {
				canvas[centerY][startX+i] = r
			}
		}
	}
}

func drawBorder(canvas [][]rune, width, height int) {
	for x := 0; x < width; x++ {
		canvas[0][x] = '═'
		canvas[height-1][x] = '═'
	}
	for y := 0; y < height; y++ {
		canvas[y][0] = '║'
		canvas[y][width-1] = '║'
	}
	canvas[0][0] = '╔'
	canvas[0][width-1] = '╗'
	canvas[height-1][0] = '╚'
	canvas[height-1][width-1] = '╝'
}

func emptyCanvas(width, height int) []string {
	if height < 0 {
		height = 0
	}
	lines := make([]string, height)
	empty := strings.Repeat(" ", max(width, 0))
	for i := range lines {
		lines[i] = empty
	}
	return lines
}
