// Package match holds the per-match game model: the game, its players and the
// items lying on the floor. The turn/combat core mutates players in place.
package match

import (
	"slices"
	"strings"

	"github.com/cory-johannsen/arena/internal/game/grid"
)

// Team identifies a side. TeamNone is used by free-for-all games.
type Team string

const (
	TeamNone Team = "None"
	RedSide  Team = "RedSide"
	BlueSide Team = "BlueSide"
)

// Mode selects the victory rules of a game.
type Mode string

const (
	// ModeClassic is free-for-all: the first player to win enough fights wins.
	ModeClassic Mode = "classic"
	// ModeCaptureTheFlag is team play: bring the flag back to your spawn.
	ModeCaptureTheFlag Mode = "capture_the_flag"
)

// FlagItem is the catalog name of the capture-the-flag objective.
const FlagItem = "flag"

// Buffs are additive modifiers applied to attack and defense rolls.
type Buffs struct {
	AttackBuff  int `json:"attackBuff"`
	DefenseBuff int `json:"defenseBuff"`
}

// Item is an item instance, either on the floor or carried by a player.
type Item struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Position grid.Position `json:"position"`
}

// Player is one participant. All fields are guarded by the owning session lock.
type Player struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Team            Team          `json:"team"`
	Position        grid.Position `json:"position"`
	SpawnPosition   grid.Position `json:"spawnPosition"`
	Health          int           `json:"health"`
	MaxHealth       int           `json:"maxHealthPower"`
	AttackPower     int           `json:"attackPower"`
	DefensePower    int           `json:"defensePower"`
	Speed           int           `json:"speed"`
	MaxSpeed        int           `json:"maxSpeed"`
	ActionPoints    int           `json:"actionPoints"`
	MaxActionPoints int           `json:"maxActionPoints"`
	IsTurn          bool          `json:"isTurn"`
	IsCombatTurn    bool          `json:"isCombatTurn"`
	IsInCombat      bool          `json:"isInCombat"`
	EscapesAttempts int           `json:"escapesAttempts"`
	NbFightsWon     int           `json:"nbFightsWon"`
	IsWinner        bool          `json:"isWinner"`
	IsConnected     bool          `json:"isConnected"`
	IsBot           bool          `json:"isBot"`
	IsAggressive    bool          `json:"isAggressive"`
	Items           []*Item       `json:"items"`
	ActiveBuffs     []string      `json:"activeBuffs"`
	Buffs           Buffs         `json:"buffs"`
}

// CarriesFlag reports whether the player holds the flag item.
func (p *Player) CarriesFlag() bool {
	for _, it := range p.Items {
		if it.Name == FlagItem {
			return true
		}
	}
	return false
}

// OnSpawn reports whether the player stands exactly on their spawn tile.
func (p *Player) OnSpawn() bool { return p.Position == p.SpawnPosition }

// Heal restores the player to full health.
func (p *Player) Heal() { p.Health = p.MaxHealth }

// Damage reduces health by n, flooring at zero, and returns the damage applied.
func (p *Player) Damage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > p.Health {
		n = p.Health
	}
	p.Health -= n
	return n
}

// Restore raises health by n, capped at MaxHealth.
func (p *Player) Restore(n int) {
	if n <= 0 {
		return
	}
	p.Health = min(p.Health+n, p.MaxHealth)
}

// Game is one active match.
type Game struct {
	ID        string
	LeaderID  string
	Mode      Mode
	Players   []*Player
	Grid      *grid.Grid
	DebugMode bool
	Items     map[grid.Position]*Item
}

// Player returns the player with id, or nil.
func (g *Game) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerAt returns the player standing on pos, or nil.
func (g *Game) PlayerAt(pos grid.Position) *Player {
	for _, p := range g.Players {
		if p.Position == pos {
			return p
		}
	}
	return nil
}

// Occupied reports whether a player stands on pos or an item lies there.
func (g *Game) Occupied(pos grid.Position) bool {
	if g.PlayerAt(pos) != nil {
		return true
	}
	_, ok := g.Items[pos]
	return ok
}

// Opponents returns the players that p may fight: everyone else in a
// free-for-all, the other team otherwise.
func (g *Game) Opponents(p *Player) []*Player {
	var out []*Player
	for _, o := range g.Players {
		if o.ID == p.ID {
			continue
		}
		if p.Team != TeamNone && o.Team == p.Team {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ConnectedHumans counts connected players that are not bots.
func (g *Game) ConnectedHumans() int {
	n := 0
	for _, p := range g.Players {
		if p.IsConnected && !p.IsBot {
			n++
		}
	}
	return n
}

// Snapshot is the client-visible view of a game.
type Snapshot struct {
	ID        string    `json:"id"`
	LeaderID  string    `json:"leaderId"`
	Mode      Mode      `json:"mode"`
	DebugMode bool      `json:"debugMode"`
	Map       string    `json:"map"`
	Players   []*Player `json:"players"`
	Items     []*Item   `json:"items"`
}

// Snapshot copies the game into a value that is safe to serialise after the
// session lock is released.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{ID: g.ID, LeaderID: g.LeaderID, Mode: g.Mode, DebugMode: g.DebugMode}
	if g.Grid != nil {
		s.Map = g.Grid.String()
	}
	for _, p := range g.Players {
		cp := *p
		cp.Items = copyItems(p.Items)
		cp.ActiveBuffs = append([]string(nil), p.ActiveBuffs...)
		s.Players = append(s.Players, &cp)
	}
	for _, it := range g.Items {
		cp := *it
		s.Items = append(s.Items, &cp)
	}
	slices.SortFunc(s.Items, func(a, b *Item) int { return strings.Compare(a.ID, b.ID) })
	return s
}

func copyItems(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		cp := *it
		out = append(out, &cp)
	}
	return out
}
