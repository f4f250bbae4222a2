package world

import "errors"

// ErrSpaceNotFound is returned by space lookups for an id that does not exist.
var ErrSpaceNotFound = errors.New("space not found")

// Position is a cell on a space grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds are the dimensions of a space. Valid cells are [0,Width) x [0,Height).
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the bounds describe a non-empty grid.
func (b Bounds) Valid() bool { return b.Width > 0 && b.Height > 0 }

// Contains reports whether p lies on the grid.
func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// IntN is satisfied by *rand.Rand from math/rand/v2.
type IntN interface {
	IntN(n int) int
}

// Spawn draws a position uniformly from the grid. b must be Valid.
func Spawn(r IntN, b Bounds) Position {
	return Position{X: r.IntN(b.Width), Y: r.IntN(b.Height)}
}
