// Package spatial provides a uniform grid over the X/Z plane for
// broad-phase neighbor queries. The grid is rebuilt each tick from
// entity positions; cells reuse their backing arrays so steady-state
// operation allocates nothing.
package spatial

import "math"

// Grid hashes entities into fixed-size X/Z cells centered on the world
// origin. Returned candidates may lie outside the query radius; the
// caller performs the precise (narrow-phase) check.
type Grid struct {
	cellSize    float64
	invCellSize float64
	half        float64 // world half-extent; coordinates run [-half, half)
	cols        int
	cells       [][]int64
	scratch     []int64
}

// NewGrid creates a grid covering a square world of the given extent.
// cellSize should match the largest common query radius.
func NewGrid(worldExtent, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 16
	}
	cols := int(math.Ceil(worldExtent / cellSize))
	if cols < 1 {
		cols = 1
	}
	cells := make([][]int64, cols*cols)
	for i := range cells {
		cells[i] = make([]int64, 0, 4)
	}
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		half:        worldExtent / 2,
		cols:        cols,
		cells:       cells,
		scratch:     make([]int64, 0, 64),
	}
}

// Clear resets all cells, keeping capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity at world position (x, z).
func (g *Grid) Insert(id int64, x, z float64) {
	idx := g.cellIndex(x, z)
	g.cells[idx] = append(g.cells[idx], id)
}

func (g *Grid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) cellIndex(x, z float64) int {
	col := g.clampCol(int((x + g.half) * g.invCellSize))
	row := g.clampCol(int((z + g.half) * g.invCellSize))
	return row*g.cols + col
}

// QueryRadius returns ids potentially within radius of (cx, cz).
// The returned slice is reused by subsequent calls; copy to keep.
func (g *Grid) QueryRadius(cx, cz, radius float64) []int64 {
	g.scratch = g.scratch[:0]

	minCol := g.clampCol(int((cx - radius + g.half) * g.invCellSize))
	maxCol := g.clampCol(int((cx + radius + g.half) * g.invCellSize))
	minRow := g.clampCol(int((cz - radius + g.half) * g.invCellSize))
	maxRow := g.clampCol(int((cz + radius + g.half) * g.invCellSize))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}
