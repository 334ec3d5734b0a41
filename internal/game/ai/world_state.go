package ai

import (
	"slices"

	"github.com/cory-johannsen/arena/internal/game/grid"
)

// PlayerState captures a participant's planning-relevant state.
type PlayerState struct {
	UID       string
	Name      string
	Team      string // "" in free-for-all
	Position  grid.Position
	Health    int
	MaxHealth int
	InCombat  bool
	Connected bool
}

// HealthPercent returns current health as a percentage of MaxHealth; 0 if
// MaxHealth == 0.
func (p *PlayerState) HealthPercent() float64 {
	if p.MaxHealth <= 0 {
		return 0
	}
	return float64(p.Health) / float64(p.MaxHealth) * 100
}

// ItemState is an item lying on the floor.
type ItemState struct {
	ID       string
	Name     string
	Position grid.Position
	IsFlag   bool
}

// WorldState is the snapshot passed to the HTN planner for one bot.
//
// Invariant: Bot must not be nil.
type WorldState struct {
	Bot        *PlayerState
	Home       grid.Position
	OpponentID string // set while the bot is fighting
	Players    []*PlayerState
	Items      []*ItemState
}

// Target is a resolved operator target.
type Target struct {
	ID       string
	Position grid.Position
}

// EnemiesOf returns every connected participant uid could start a fight
// with: not on uid's team (free-for-all has no team) and not already in a
// fight.
//
// Postcondition: the result never contains uid.
func (ws *WorldState) EnemiesOf(uid string) []*PlayerState {
	self := ws.player(uid)
	var out []*PlayerState
	for _, p := range ws.Players {
		if p.UID == uid || !p.Connected || p.InCombat {
			continue
		}
		if self != nil && self.Team != "" && p.Team == self.Team {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (ws *WorldState) player(uid string) *PlayerState {
	if ws.Bot != nil && ws.Bot.UID == uid {
		return ws.Bot
	}
	for _, p := range ws.Players {
		if p.UID == uid {
			return p
		}
	}
	return nil
}

// HasEnemies reports whether the bot has anyone to fight.
//
// Postcondition: equivalent to len(EnemiesOf(ws.Bot.UID)) > 0.
func (ws *WorldState) HasEnemies() bool {
	return len(ws.EnemiesOf(ws.Bot.UID)) > 0
}

// NearestEnemy returns the enemy closest to the bot by grid distance, or nil.
// Ties keep Players order.
func (ws *WorldState) NearestEnemy() *PlayerState {
	enemies := ws.EnemiesOf(ws.Bot.UID)
	if len(enemies) == 0 {
		return nil
	}
	return slices.MinFunc(enemies, func(a, b *PlayerState) int {
		return a.Position.Distance(ws.Bot.Position) - b.Position.Distance(ws.Bot.Position)
	})
}

// WeakestEnemy returns the enemy with the lowest health percentage, or nil.
// Ties keep Players order.
func (ws *WorldState) WeakestEnemy() *PlayerState {
	enemies := ws.EnemiesOf(ws.Bot.UID)
	if len(enemies) == 0 {
		return nil
	}
	weakest := enemies[0]
	for _, e := range enemies[1:] {
		if e.HealthPercent() < weakest.HealthPercent() {
			weakest = e
		}
	}
	return weakest
}

// NearestItem returns the closest non-flag floor item, or nil.
func (ws *WorldState) NearestItem() *ItemState {
	var best *ItemState
	for _, it := range ws.Items {
		if it.IsFlag {
			continue
		}
		if best == nil || it.Position.Distance(ws.Bot.Position) < best.Position.Distance(ws.Bot.Position) {
			best = it
		}
	}
	return best
}

// Flag returns the flag when it lies on the floor, or nil.
func (ws *WorldState) Flag() *ItemState {
	for _, it := range ws.Items {
		if it.IsFlag {
			return it
		}
	}
	return nil
}

// ResolveTarget maps a target token to a participant, item or tile:
//
//	nearest_enemy, weakest_enemy  an enemy player
//	opponent                      the player the bot is fighting
//	nearest_item, flag            a floor item
//	home                          the bot's spawn tile
//	self                          the bot
//
// Precondition: ws.Bot must not be nil.
// Postcondition: ok is false when the token names nothing present; unknown
// tokens resolve to themselves with the bot's position.
func (ws *WorldState) ResolveTarget(token string) (Target, bool) {
	switch token {
	case "nearest_enemy":
		return playerTarget(ws.NearestEnemy())
	case "weakest_enemy":
		return playerTarget(ws.WeakestEnemy())
	case "opponent":
		if ws.OpponentID == "" {
			return Target{}, false
		}
		return playerTarget(ws.player(ws.OpponentID))
	case "nearest_item":
		return itemTarget(ws.NearestItem())
	case "flag":
		return itemTarget(ws.Flag())
	case "home":
		return Target{ID: "home", Position: ws.Home}, true
	case "self", "":
		return Target{ID: ws.Bot.UID, Position: ws.Bot.Position}, true
	default:
		return Target{ID: token, Position: ws.Bot.Position}, true
	}
}

func playerTarget(p *PlayerState) (Target, bool) {
	if p == nil {
		return Target{}, false
	}
	return Target{ID: p.UID, Position: p.Position}, true
}

func itemTarget(it *ItemState) (Target, bool) {
	if it == nil {
		return Target{}, false
	}
	return Target{ID: it.ID, Position: it.Position}, true
}
