package models

import "fmt"

// Position represents a cell on the garden grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NewPosition creates a new position
func NewPosition(x, y int) Position {
	return Position{X: x, Y: y}
}

// String formats the position as (x,y)
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
