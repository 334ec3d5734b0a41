package match

import "github.com/cory-johannsen/arena/internal/game/grid"

// Move walks p to dest along the shortest walkable path that avoids other
// players, spending speed equal to the path cost.
//
// Precondition: the caller has checked that p may act.
// Postcondition: on success p stands on dest and Speed is reduced by the
// path cost; on failure nothing changes.
func (g *Game) Move(p *Player, dest grid.Position) ([]grid.Position, bool) {
	if g.Grid == nil || !g.Grid.Walkable(dest) {
		return nil, false
	}
	if other := g.PlayerAt(dest); other != nil && other.ID != p.ID {
		return nil, false
	}
	path, ok := g.Grid.Path(p.Position, dest, func(pos grid.Position) bool {
		other := g.PlayerAt(pos)
		return other != nil && other.ID != p.ID
	})
	if !ok {
		return nil, false
	}
	cost := g.Grid.PathCost(path)
	if cost > p.Speed {
		return nil, false
	}
	p.Speed -= cost
	p.Position = dest
	return path, true
}

// Reachable returns the furthest tile along path that p can afford this turn
// without ending on another player. It returns p.Position when no step is
// affordable.
func (g *Game) Reachable(p *Player, path []grid.Position) grid.Position {
	best := p.Position
	spent := 0
	for _, step := range path {
		spent += g.Grid.Cost(step)
		if spent > p.Speed {
			break
		}
		if other := g.PlayerAt(step); other != nil && other.ID != p.ID {
			break
		}
		best = step
	}
	return best
}

// PlaceItem drops it on pos.
func (g *Game) PlaceItem(it *Item, pos grid.Position) {
	it.Position = pos
	g.Items[pos] = it
}

// TakeItem moves the floor item under p into p's inventory.
//
// Postcondition: returns false without mutation when there is no item under
// p or p already carries maxItems items.
func (g *Game) TakeItem(p *Player, maxItems int) (*Item, bool) {
	it, ok := g.Items[p.Position]
	if !ok {
		return nil, false
	}
	if len(p.Items) >= maxItems {
		return nil, false
	}
	delete(g.Items, p.Position)
	p.Items = append(p.Items, it)
	return it, true
}
