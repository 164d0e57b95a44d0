package tiling

import (
	"fmt"
	"math"

	"github.com/1broseidon/snaptile/internal/config"
	"github.com/1broseidon/snaptile/internal/platform"
)

// CalculateGrid determines the optimal grid dimensions for the given number of windows
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows <= 0 {
		return 0, 0
	}

	// Calculate columns first (ceiling of square root)
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))

	// Calculate rows needed
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// Columns splits bounds into n full-height columns, left to right. The last
// column absorbs the integer-division remainder.
func Columns(n int, bounds platform.Rect) []platform.Rect {
	return GridCells(1, n, -1, bounds)
}

// Grid splits bounds into rows x cols cells in row-major order. The last row
// and column absorb remainders, so the cells partition bounds exactly.
func Grid(rows, cols int, bounds platform.Rect) []platform.Rect {
	return GridCells(rows, cols, -1, bounds)
}

// GridCells returns the first n cells of Grid (all of them when n < 0)
// without building the rest. Rows and columns are capped at the height and
// width of bounds, so no cell is narrower than one unit.
func GridCells(rows, cols, n int, bounds platform.Rect) []platform.Rect {
	rows = min(rows, max(bounds.Height, 1))
	cols = min(cols, max(bounds.Width, 1))
	return gridWithGap(rows, cols, n, bounds, 0)
}

// gridWithGap builds the first n cells of a rows x cols grid, or every cell
// when n < 0.
func gridWithGap(rows, cols, n int, bounds platform.Rect, gap int) []platform.Rect {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	n = CellCount(rows, cols, n)

	cells := make([]platform.Rect, n)
	for i := range cells {
		x := spanAt(bounds.X, bounds.Width, cols, gap, i%cols)
		y := spanAt(bounds.Y, bounds.Height, rows, gap, i/cols)
		cells[i] = platform.Rect{X: x.start, Y: y.start, Width: x.size, Height: y.size}
	}
	return cells
}

// CellCount caps n at rows*cols without overflowing. A negative n asks for
// every cell, which is zero when rows*cols does not fit an int.
func CellCount(rows, cols, n int) int {
	if rows <= 0 || cols <= 0 {
		return 0
	}
	if rows > math.MaxInt/cols {
		return max(n, 0)
	}
	if total := rows * cols; n < 0 || n > total {
		return total
	}
	return n
}

type span struct {
	start int
	size  int
}

// spanAt returns part i of extent divided into parts separated (and
// surrounded) by gap. The last part ends exactly gap before the far edge.
func spanAt(origin, extent, parts, gap, i int) span {
	cell := (extent - (parts+1)*gap) / parts
	sp := span{start: origin + gap + i*(cell+gap), size: cell}
	if i == parts-1 {
		sp.size = origin + extent - gap - sp.start
	}
	return sp
}

// CalculatePositionsWithLayout computes window positions using layout
// configuration. Fixed grids and master-stack cap the count at their capacity,
// so the result may be shorter than numWindows.
func CalculatePositionsWithLayout(
	numWindows int,
	bounds platform.Rect,
	layout *config.Layout,
	gapSize int,
) ([]platform.Rect, error) {
	if numWindows <= 0 {
		return nil, nil
	}
	if layout == nil {
		return nil, fmt.Errorf("layout is nil")
	}

	region := ApplyRegion(bounds, layout.TileRegion)

	var rows, cols int
	flexibleLastRow := layout.FlexibleLastRow

	switch layout.Mode {
	case config.LayoutModeAuto:
		rows, cols = CalculateGrid(numWindows)

	case config.LayoutModeFixed:
		rows = layout.FixedGrid.Rows
		cols = layout.FixedGrid.Cols
		numWindows = CellCount(rows, cols, numWindows)
		flexibleLastRow = false

	case config.LayoutModeVertical:
		rows = numWindows
		cols = 1
		flexibleLastRow = false

	case config.LayoutModeHorizontal:
		rows = 1
		cols = numWindows
		flexibleLastRow = false

	case config.LayoutModeMasterStack:
		return masterStack(numWindows, region, layout.MasterStack, gapSize)

	default:
		return nil, fmt.Errorf("unsupported layout mode: %q", layout.Mode)
	}

	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: rows=%d cols=%d", rows, cols)
	}

	slotWidth := (region.Width - (cols+1)*gapSize) / cols
	slotHeight := (region.Height - (rows+1)*gapSize) / rows
	if slotWidth <= 0 || slotHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for layout: region=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			region.Width, region.Height, rows, cols, gapSize, slotWidth, slotHeight,
		)
	}

	cells := gridWithGap(rows, cols, numWindows, region, gapSize)
	positions := cells[:numWindows]

	// Last row windows expand to fill the width.
	lastRowCount := numWindows - (rows-1)*cols
	if flexibleLastRow && lastRowCount > 0 && lastRowCount < cols {
		lastRow := cells[(rows-1)*cols]
		strip := platform.Rect{X: region.X, Y: lastRow.Y - gapSize, Width: region.Width, Height: lastRow.Height + 2*gapSize}
		copy(positions[(rows-1)*cols:], gridWithGap(1, lastRowCount, -1, strip, gapSize))
	}

	for i := range positions {
		positions[i] = capSize(positions[i], layout.MaxWindowWidth, layout.MaxWindowHeight)
	}

	return positions, nil
}

func masterStack(numWindows int, region platform.Rect, ms config.MasterStack, gapSize int) ([]platform.Rect, error) {
	// The master pane keeps its width regardless of window count.
	masterWidth := region.Width*ms.MasterWidthPercent/100 - gapSize
	stackHeight := region.Height - 2*gapSize

	master := platform.Rect{
		X:      region.X + gapSize,
		Y:      region.Y + gapSize,
		Width:  masterWidth,
		Height: stackHeight,
	}
	if masterWidth <= 0 || stackHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for master-stack layout: region=%dx%d masterWidth=%d gap=%d",
			region.Width, region.Height, masterWidth, gapSize,
		)
	}
	if numWindows == 1 {
		return []platform.Rect{master}, nil
	}

	if ms.MaxStackRows < 1 || ms.MaxStackCols < 1 {
		return nil, fmt.Errorf("master-stack requires max_stack_rows and max_stack_cols >= 1")
	}

	stackCount := numWindows - 1

	// cols = ceil(stackCount / MaxStackRows) capped at MaxStackCols
	stackCols := int(math.Ceil(float64(stackCount) / float64(ms.MaxStackRows)))
	stackCols = min(stackCols, ms.MaxStackCols)
	stackCols = max(stackCols, 1)
	stackRows := int(math.Ceil(float64(stackCount) / float64(stackCols)))
	stackRows = min(stackRows, ms.MaxStackRows)

	stackCount = min(stackCount, stackRows*stackCols)

	stackRegion := platform.Rect{
		X:      master.Right(),
		Y:      region.Y,
		Width:  region.Right() - master.Right(),
		Height: region.Height,
	}
	cells := gridWithGap(stackRows, stackCols, -1, stackRegion, gapSize)
	for _, cell := range cells {
		if cell.Width <= 0 || cell.Height <= 0 {
			return nil, fmt.Errorf(
				"insufficient space for master-stack layout: region=%dx%d cell=%dx%d gap=%d",
				region.Width, region.Height, cell.Width, cell.Height, gapSize,
			)
		}
	}

	positions := make([]platform.Rect, 0, stackCount+1)
	positions = append(positions, master)
	positions = append(positions, cells[:stackCount]...)
	return positions, nil
}

// capSize shrinks r to the max dimensions and centres it in its slot.
func capSize(r platform.Rect, maxWidth, maxHeight int) platform.Rect {
	if maxWidth > 0 && r.Width > maxWidth {
		r.X += (r.Width - maxWidth) / 2
		r.Width = maxWidth
	}
	if maxHeight > 0 && r.Height > maxHeight {
		r.Y += (r.Height - maxHeight) / 2
		r.Height = maxHeight
	}
	return r
}

// ApplyRegion applies the tile region to the bounds, returning the adjusted area
func ApplyRegion(bounds platform.Rect, region config.TileRegion) platform.Rect {
	adjusted := bounds

	switch region.Type {
	case config.RegionFull:
		// No change

	case config.RegionLeftHalf:
		adjusted.Width = bounds.Width / 2

	case config.RegionRightHalf:
		adjusted.X = bounds.X + bounds.Width/2
		adjusted.Width = bounds.Width - bounds.Width/2

	case config.RegionTopHalf:
		adjusted.Height = bounds.Height / 2

	case config.RegionBottomHalf:
		adjusted.Y = bounds.Y + bounds.Height/2
		adjusted.Height = bounds.Height - bounds.Height/2

	case config.RegionCustom:
		adjusted.X = bounds.X + (bounds.Width * region.XPercent / 100)
		adjusted.Y = bounds.Y + (bounds.Height * region.YPercent / 100)
		adjusted.Width = bounds.Width * region.WidthPercent / 100
		adjusted.Height = bounds.Height * region.HeightPercent / 100
	}

	if adjusted.Width < 1 {
		adjusted.Width = 1
	}
	if adjusted.Height < 1 {
		adjusted.Height = 1
	}

	return adjusted
}
