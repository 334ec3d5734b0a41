// Package event defines the outbound notifications of the turn/combat core
// and the Broadcaster port they are published through.
package event

import "github.com/cory-johannsen/arena/internal/game/match"

// Name is the wire name of an outbound event.
type Name string

const (
	TurnChanged       Name = "turn-changed"
	TurnStart         Name = "turn-start"
	TurnTransition    Name = "turn-transition"
	TurnTimerPaused   Name = "turn-timer-paused"
	TimerTick         Name = "timer-tick"
	CombatStarted     Name = "combat-started"
	CombatTurnChanged Name = "combat-turn-changed"
	CombatTimerStart  Name = "combat-timer-start"
	CombatTimerTick   Name = "combat-timer-tick"
	CombatTimerEnd    Name = "combat-timer-end"
	ExecuteAutoAttack Name = "execute-auto-attack"
	PlayerAttacked    Name = "player-attacked"
	CombatEnded       Name = "combat-ended"
	PlayerEscaped     Name = "player-escaped"
	PlayerWonGame     Name = "player-won-game"
	TeamWon           Name = "team-won"

	Journal            Name = "journal"
	DebugModeChanged   Name = "debug-mode-changed"
	PlayerMoved        Name = "player-moved"
	ItemPickedUp       Name = "item-picked-up"
	PlayerDisconnected Name = "player-disconnected"
	GameState          Name = "game-state"
)

// Event is one notification addressed to every participant of a game.
type Event struct {
	Name    Name `json:"event"`
	Payload any  `json:"payload,omitempty"`
}

// Broadcaster delivers an event to every socket in a game's room.
//
// Broadcast is called with the session lock held. Implementations must not
// block and must finish reading the payload before returning.
type Broadcaster interface {
	Broadcast(gameID string, ev Event)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(gameID string, ev Event)

// Broadcast calls f.
func (f BroadcasterFunc) Broadcast(gameID string, ev Event) { f(gameID, ev) }

// Discard drops every event.
var Discard Broadcaster = BroadcasterFunc(func(string, Event) {})

// CombatStartedPayload announces a new fight.
type CombatStartedPayload struct {
	AttackerID         string `json:"attackerId"`
	TargetID           string `json:"targetId"`
	IsAttackerDebuffed bool   `json:"isAttackerDebuffed"`
	IsTargetDebuffed   bool   `json:"isTargetDebuffed"`
}

// CombatEndedPayload names the winner of a fight, or the player left behind
// when the opponent disconnected.
type CombatEndedPayload struct {
	WinnerID string `json:"winnerId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

// AttackState is the result of one resolved attack.
type AttackState struct {
	AttackerID         string `json:"attackerId"`
	TargetID           string `json:"targetId"`
	AttackValue        int    `json:"attackValue"`
	DefenseValue       int    `json:"defenseValue"`
	Damage             int    `json:"damage"`
	AttackerHealth     int    `json:"attackerHealth"`
	TargetHealth       int    `json:"targetHealth"`
	IsAttackerDebuffed bool   `json:"isAttackerDebuffed"`
	IsTargetDebuffed   bool   `json:"isTargetDebuffed"`
	IsAutoAttack       bool   `json:"isAutoAttack"`
	CombatFinished     bool   `json:"combatFinished"`
	WinnerID           string `json:"winnerId,omitempty"`
}

// JournalPayload is a line of narration.
type JournalPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PlayerMovedPayload reports a completed move.
type PlayerMovedPayload struct {
	PlayerID string     `json:"playerId"`
	Path     []PathStep `json:"path"`
	Speed    int        `json:"speed"`
}

// PathStep is one tile of a movement path.
type PathStep struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ItemPickedUpPayload reports an item moving from the floor to a player.
type ItemPickedUpPayload struct {
	PlayerID string `json:"playerId"`
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
}

// DebugModePayload reports the shared debug flag after a toggle.
type DebugModePayload struct {
	Enabled bool `json:"enabled"`
}

// GameStatePayload wraps a full client-visible snapshot.
type GameStatePayload struct {
	Game match.Snapshot `json:"game"`
}
