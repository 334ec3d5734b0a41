package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/grid"
)

func TestParse_LegendAndSpawns(t *testing.T) {
	g, spawns, err := grid.Parse([]string{
		"S.~",
		".#S",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Width())
	assert.Equal(t, 2, g.Height())
	assert.Equal(t, []grid.Position{{X: 0, Y: 0}, {X: 2, Y: 1}}, spawns)

	assert.Equal(t, 1, g.Cost(grid.Position{X: 1, Y: 0}))
	assert.Equal(t, 0, g.Cost(grid.Position{X: 2, Y: 0}))
	assert.Equal(t, -1, g.Cost(grid.Position{X: 1, Y: 1}))
	assert.Equal(t, -1, g.Cost(grid.Position{X: 9, Y: 9}))
	assert.True(t, g.IsZeroCost(grid.Position{X: 2, Y: 0}))
	assert.False(t, g.IsZeroCost(grid.Position{X: 1, Y: 1}), "walls are not ice")
	assert.Equal(t, "..~\n.#.", g.String())
}

func TestParse_Errors(t *testing.T) {
	_, _, err := grid.Parse(nil)
	assert.Error(t, err)
	_, _, err = grid.Parse([]string{"..", "."})
	assert.Error(t, err)
	_, _, err = grid.Parse([]string{".x"})
	assert.Error(t, err)
}

func TestNearestFree_ReturnsOriginWhenFree(t *testing.T) {
	g := grid.MustParse("...", "...")
	p, ok := g.NearestFree(grid.Position{X: 1, Y: 1}, func(grid.Position) bool { return false })
	require.True(t, ok)
	assert.Equal(t, grid.Position{X: 1, Y: 1}, p)
}

func TestNearestFree_SkipsBlockedAndWalls(t *testing.T) {
	g := grid.MustParse(
		".#.",
		"..#",
	)
	blocked := map[grid.Position]bool{{X: 0, Y: 0}: true, {X: 0, Y: 1}: true}
	p, ok := g.NearestFree(grid.Position{X: 0, Y: 0}, func(p grid.Position) bool { return blocked[p] })
	require.True(t, ok)
	assert.Equal(t, grid.Position{X: 1, Y: 1}, p)
}

func TestNearestFree_NothingReachable(t *testing.T) {
	g := grid.MustParse(".#.")
	_, ok := g.NearestFree(grid.Position{X: 0, Y: 0}, func(p grid.Position) bool { return p.X == 0 })
	assert.False(t, ok, "the tile behind the wall is not reachable")
}

func TestPath_AroundWall(t *testing.T) {
	g := grid.MustParse(
		"...",
		".#.",
		"...",
	)
	path, ok := g.Path(grid.Position{X: 0, Y: 1}, grid.Position{X: 2, Y: 1}, nil)
	require.True(t, ok)
	assert.Len(t, path, 4)
	assert.Equal(t, grid.Position{X: 2, Y: 1}, path[len(path)-1])
	assert.Equal(t, 4, g.PathCost(path))
}

func TestPath_IceIsFree(t *testing.T) {
	g := grid.MustParse(".~~.")
	path, ok := g.Path(grid.Position{X: 0, Y: 0}, grid.Position{X: 3, Y: 0}, nil)
	require.True(t, ok)
	assert.Equal(t, 1, g.PathCost(path))
}

func TestPath_BlockedGoalIsStillReached(t *testing.T) {
	g := grid.MustParse("...")
	goal := grid.Position{X: 2, Y: 0}
	path, ok := g.Path(grid.Position{X: 0, Y: 0}, goal, func(p grid.Position) bool { return p == goal })
	require.True(t, ok)
	assert.Equal(t, []grid.Position{{X: 1, Y: 0}, goal}, path)
}

func TestProperty_NearestFreeIsNeverBlocked(t *testing.T) {
	g := grid.MustParse(
		"......",
		".#..#.",
		"......",
		"..~~..",
	)
	rapid.Check(t, func(rt *rapid.T) {
		blocked := map[grid.Position]bool{}
		n := rapid.IntRange(0, 20).Draw(rt, "blocked")
		for i := 0; i < n; i++ {
			blocked[grid.Position{
				X: rapid.IntRange(0, 5).Draw(rt, "x"),
				Y: rapid.IntRange(0, 3).Draw(rt, "y"),
			}] = true
		}
		origin := grid.Position{X: 0, Y: 0}
		p, ok := g.NearestFree(origin, func(p grid.Position) bool { return blocked[p] })
		if !ok {
			return
		}
		if blocked[p] || !g.Walkable(p) {
			rt.Fatalf("nearest free tile %s is blocked or a wall", p)
		}
	})
}
