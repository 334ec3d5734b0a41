package grid

// NearestFree returns the walkable tile closest to origin, origin included,
// for which blocked reports false. The search expands breadth-first across
// walkable tiles, so the result is reachable from origin.
//
// Postcondition: ok is false when no reachable tile is free.
func (g *Grid) NearestFree(origin Position, blocked func(Position) bool) (Position, bool) {
	if !g.Walkable(origin) {
		return Position{}, false
	}
	seen := map[Position]bool{origin: true}
	queue := []Position{origin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if blocked == nil || !blocked(cur) {
			return cur, true
		}
		for _, n := range g.Neighbors(cur) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return Position{}, false
}

// Path returns the fewest-steps walkable path from 'from' to 'to', excluding
// 'from' and including 'to'. Tiles for which blocked reports true are never
// entered, except the destination itself, so callers can path up to an
// occupied tile and stop one step short.
func (g *Grid) Path(from, to Position, blocked func(Position) bool) ([]Position, bool) {
	if !g.Walkable(from) || !g.Walkable(to) {
		return nil, false
	}
	if from == to {
		return []Position{}, true
	}
	prev := map[Position]Position{}
	seen := map[Position]bool{from: true}
	queue := []Position{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(cur) {
			if seen[n] {
				continue
			}
			if n != to && blocked != nil && blocked(n) {
				continue
			}
			seen[n] = true
			prev[n] = cur
			if n == to {
				return unwind(prev, from, to), true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

// PathCost sums the entry cost of every tile in path.
func (g *Grid) PathCost(path []Position) int {
	total := 0
	for _, p := range path {
		total += g.Cost(p)
	}
	return total
}

func unwind(prev map[Position]Position, from, to Position) []Position {
	var rev []Position
	for cur := to; cur != from; cur = prev[cur] {
		rev = append(rev, cur)
	}
	out := make([]Position, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}
