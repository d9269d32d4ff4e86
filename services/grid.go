package services

import (
	"strings"

	"flower-garden/models"
)

// Grid is the rendering cache of a garden. It is not safe for concurrent
// use; the owning Garden guards it.
type Grid struct {
	height int
	width  int
	cells  [][]rune
}

// NewGrid creates a grid filled with the background character
func NewGrid(height, width int) *Grid {
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = make([]rune, width)
	}
	g := &Grid{
		height: height,
		width:  width,
		cells:  cells,
	}
	g.Reset()
	return g
}

// Reset fills every cell with the background character
func (g *Grid) Reset() {
	for i := range g.cells {
		for j := range g.cells[i] {
			g.cells[i][j] = models.Background
		}
	}
}

// Set draws r at p
func (g *Grid) Set(p models.Position, r rune) {
	g.cells[p.Y][p.X] = r
}

// At returns the character at p
func (g *Grid) At(p models.Position) rune {
	return g.cells[p.Y][p.X]
}

// Rows returns the grid as one string per row
func (g *Grid) Rows() []string {
	rows := make([]string, g.height)
	for i, row := range g.cells {
		rows[i] = string(row)
	}
	return rows
}

// Cells returns a deep copy of the grid
func (g *Grid) Cells() [][]rune {
	out := make([][]rune, g.height)
	for i, row := range g.cells {
		out[i] = append([]rune(nil), row...)
	}
	return out
}

// String serializes the grid row-major, each row terminated by a newline
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(g.height * (g.width + 1))
	for _, row := range g.cells {
		for _, r := range row {
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
