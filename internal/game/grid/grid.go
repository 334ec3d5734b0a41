// Package grid models the arena floor: tiles, traversal costs and the
// breadth-first searches the combat engine and bots rely on.
package grid

import (
	"fmt"
	"strings"
)

// Position is a tile coordinate. X grows to the right, Y grows downwards.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by d.
func (p Position) Add(d Position) Position { return Position{X: p.X + d.X, Y: p.Y + d.Y} }

// Distance returns the Manhattan distance between p and o.
func (p Position) Distance(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// TileKind classifies a tile.
type TileKind int

const (
	Floor TileKind = iota
	Ice
	Wall
)

// Tile is one cell of the grid.
type Tile struct {
	Kind TileKind
	Cost int
}

// Walkable reports whether a player may stand on the tile.
func (t Tile) Walkable() bool { return t.Kind != Wall }

var directions = []Position{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// Grid is an immutable rectangular map.
type Grid struct {
	width  int
	height int
	tiles  []Tile
}

// Legend characters accepted by Parse.
const (
	FloorRune = '.'
	IceRune   = '~'
	WallRune  = '#'
	SpawnRune = 'S'
)

// Parse builds a grid from text rows. '.' is floor (cost 1), '~' is ice
// (cost 0), '#' is a wall and 'S' is a floor tile marking a spawn point.
// Spawn points are returned in reading order.
//
// Precondition: rows must be non-empty and rectangular.
func Parse(rows []string) (*Grid, []Position, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("grid: layout has no rows")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, nil, fmt.Errorf("grid: layout has an empty first row")
	}
	g := &Grid{width: width, height: len(rows), tiles: make([]Tile, 0, width*len(rows))}
	var spawns []Position
	for y, row := range rows {
		if len(row) != width {
			return nil, nil, fmt.Errorf("grid: row %d has width %d, want %d", y, len(row), width)
		}
		for x, r := range row {
			switch r {
			case FloorRune:
				g.tiles = append(g.tiles, Tile{Kind: Floor, Cost: 1})
			case SpawnRune:
				g.tiles = append(g.tiles, Tile{Kind: Floor, Cost: 1})
				spawns = append(spawns, Position{X: x, Y: y})
			case IceRune:
				g.tiles = append(g.tiles, Tile{Kind: Ice, Cost: 0})
			case WallRune:
				g.tiles = append(g.tiles, Tile{Kind: Wall})
			default:
				return nil, nil, fmt.Errorf("grid: unknown tile %q at %s", r, Position{X: x, Y: y})
			}
		}
	}
	return g, spawns, nil
}

// MustParse is Parse for layouts known to be valid, such as embedded defaults.
func MustParse(rows ...string) *Grid {
	g, _, err := Parse(rows)
	if err != nil {
		panic(err)
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// In reports whether p lies inside the grid.
func (g *Grid) In(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Tile returns the tile at p and whether p is inside the grid.
func (g *Grid) Tile(p Position) (Tile, bool) {
	if !g.In(p) {
		return Tile{}, false
	}
	return g.tiles[p.Y*g.width+p.X], true
}

// Walkable reports whether p is inside the grid and not a wall.
func (g *Grid) Walkable(p Position) bool {
	t, ok := g.Tile(p)
	return ok && t.Walkable()
}

// Cost returns the movement cost of entering p, or -1 when p cannot be entered.
func (g *Grid) Cost(p Position) int {
	t, ok := g.Tile(p)
	if !ok || !t.Walkable() {
		return -1
	}
	return t.Cost
}

// IsZeroCost reports whether p is a walkable tile with no traversal cost.
// Zero-cost tiles are the ice that debuffs fighters.
func (g *Grid) IsZeroCost(p Position) bool { return g.Cost(p) == 0 }

// Neighbors returns the walkable orthogonal neighbours of p.
func (g *Grid) Neighbors(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range directions {
		n := p.Add(d)
		if g.Walkable(n) {
			out = append(out, n)
		}
	}
	return out
}

// String renders the grid using the Parse legend, without spawn markers.
func (g *Grid) String() string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			switch g.tiles[y*g.width+x].Kind {
			case Ice:
				b.WriteRune(IceRune)
			case Wall:
				b.WriteRune(WallRune)
			default:
				b.WriteRune(FloorRune)
			}
		}
		if y < g.height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
