package core

import "fmt"

// Coordinate represents a position on a square board
type Coordinate struct {
	Row, Col int
}

// NewCoordinate creates a new coordinate with the given row and column
func NewCoordinate(row, col int) Coordinate {
	return Coordinate{Row: row, Col: col}
}

// FromIndex creates a coordinate from a board array index using row-major ordering
func FromIndex(idx, n int) Coordinate {
	return Coordinate{
		Row: idx / n,
		Col: idx % n,
	}
}

// IsValid checks if the coordinate is within an n×n board
func (c Coordinate) IsValid(n int) bool {
	return c.Row >= 0 && c.Row < n && c.Col >= 0 && c.Col < n
}

// ToIndex converts the coordinate to a board array index using row-major ordering
func (c Coordinate) ToIndex(n int) int {
	return c.Row*n + c.Col
}

// mooreOffsets lists the eight surrounding offsets, clockwise from north-west
var mooreOffsets = [8]Coordinate{
	{Row: -1, Col: -1}, {Row: -1, Col: 0}, {Row: -1, Col: 1},
	{Row: 0, Col: 1}, {Row: 1, Col: 1}, {Row: 1, Col: 0},
	{Row: 1, Col: -1}, {Row: 0, Col: -1},
}

// Neighbors returns the eight surrounding coordinates (Moore neighborhood)
func (c Coordinate) Neighbors() []Coordinate {
	out := make([]Coordinate, 0, len(mooreOffsets))
	for _, d := range mooreOffsets {
		out = append(out, c.Add(d))
	}
	return out
}

// ValidNeighbors returns only the neighbors inside an n×n board
func (c Coordinate) ValidNeighbors(n int) []Coordinate {
	valid := make([]Coordinate, 0, len(mooreOffsets))
	for _, nb := range c.Neighbors() {
		if nb.IsValid(n) {
			valid = append(valid, nb)
		}
	}
	return valid
}

// Add returns a new coordinate that is the sum of this coordinate and another
func (c Coordinate) Add(other Coordinate) Coordinate {
	return Coordinate{
		Row: c.Row + other.Row,
		Col: c.Col + other.Col,
	}
}

// Equal checks if two coordinates are equal
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Row == other.Row && c.Col == other.Col
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}
