package ai

import (
	"github.com/cory-johannsen/arena/internal/game/match"
)

// BuildWorldState constructs a WorldState snapshot of g for bot. opponentID
// is the bot's current fight opponent, or "".
//
// Precondition: g and bot must not be nil.
// Postcondition: ws.Bot.UID == bot.ID; every other participant is listed in
// game order and every floor item in sorted id order.
func BuildWorldState(g *match.Game, bot *match.Player, opponentID string) *WorldState {
	ws := &WorldState{
		Bot:        playerState(bot),
		Home:       bot.SpawnPosition,
		OpponentID: opponentID,
	}
	for _, p := range g.Players {
		if p.ID == bot.ID {
			continue
		}
		ws.Players = append(ws.Players, playerState(p))
	}
	for _, it := range g.Snapshot().Items {
		ws.Items = append(ws.Items, &ItemState{
			ID:       it.ID,
			Name:     it.Name,
			Position: it.Position,
			IsFlag:   it.Name == match.FlagItem,
		})
	}
	return ws
}

func playerState(p *match.Player) *PlayerState {
	team := string(p.Team)
	if p.Team == match.TeamNone {
		team = ""
	}
	return &PlayerState{
		UID:       p.ID,
		Name:      p.Name,
		Team:      team,
		Position:  p.Position,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		InCombat:  p.IsInCombat,
		Connected: p.IsConnected,
	}
}
