// Package journal narrates game events for the in-game chat log.
package journal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/observability"
)

// Kind classifies a journal entry so clients can style it.
type Kind string

const (
	KindTurn    Kind = "turn"
	KindCombat  Kind = "combat"
	KindAttack  Kind = "attack"
	KindEscape  Kind = "escape"
	KindDebug   Kind = "debug"
	KindVictory Kind = "victory"
)

// Notifier formats narration and emits it as journal events. It never fails
// and never blocks; it is a side-effect sink only.
type Notifier struct {
	bc     event.Broadcaster
	logger *zap.Logger
}

// NewNotifier returns a Notifier publishing through bc.
//
// Precondition: bc and logger must be non-nil.
func NewNotifier(bc event.Broadcaster, logger *zap.Logger) *Notifier {
	return &Notifier{bc: bc, logger: logger}
}

func (n *Notifier) emit(gameID string, kind Kind, msg string) {
	n.logger.Debug("journal",
		observability.Game(gameID),
		zap.String("kind", string(kind)),
		zap.String("message", msg),
	)
	n.bc.Broadcast(gameID, event.Event{
		Name:    event.Journal,
		Payload: event.JournalPayload{Kind: string(kind), Message: msg},
	})
}

// TurnStarting announces the player about to take the turn.
func (n *Notifier) TurnStarting(gameID string, p *match.Player) {
	n.emit(gameID, KindTurn, fmt.Sprintf("It is now %s's turn.", p.Name))
}

// CombatStarted announces a fight.
func (n *Notifier) CombatStarted(gameID string, attacker, target *match.Player) {
	n.emit(gameID, KindCombat, fmt.Sprintf("%s attacks %s!", attacker.Name, target.Name))
}

// CombatEnded announces the winner of a fight.
func (n *Notifier) CombatEnded(gameID string, winner, loser *match.Player) {
	n.emit(gameID, KindCombat, fmt.Sprintf("%s defeated %s.", winner.Name, loser.Name))
}

// Attack narrates one resolved attack.
func (n *Notifier) Attack(gameID string, attacker, target *match.Player, attack, defense, damage int) {
	if damage == 0 {
		n.emit(gameID, KindAttack, fmt.Sprintf("%s attacks %s (%d vs %d) but deals no damage.",
			attacker.Name, target.Name, attack, defense))
		return
	}
	n.emit(gameID, KindAttack, fmt.Sprintf("%s hits %s for %d damage (%d vs %d).",
		attacker.Name, target.Name, damage, attack, defense))
}

// EscapeAttempt narrates an escape attempt and its outcome.
func (n *Notifier) EscapeAttempt(gameID string, p *match.Player, success bool) {
	if success {
		n.emit(gameID, KindEscape, fmt.Sprintf("%s escaped the fight.", p.Name))
		return
	}
	n.emit(gameID, KindEscape, fmt.Sprintf("%s tried to escape and failed.", p.Name))
}

// TooManyAttempts narrates an escape refused because the cap is reached.
func (n *Notifier) TooManyAttempts(gameID string, p *match.Player) {
	n.emit(gameID, KindEscape, fmt.Sprintf("%s has no escape attempts left.", p.Name))
}

// DebugToggled narrates the leader flipping debug mode.
func (n *Notifier) DebugToggled(gameID string, leader *match.Player, enabled bool) {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	n.emit(gameID, KindDebug, fmt.Sprintf("%s %s debug mode.", leader.Name, state))
}

// PlayerVictory announces a free-for-all winner.
func (n *Notifier) PlayerVictory(gameID string, p *match.Player) {
	n.emit(gameID, KindVictory, fmt.Sprintf("%s won the game!", p.Name))
}

// TeamVictory announces a capture-the-flag winner.
func (n *Notifier) TeamVictory(gameID string, team match.Team) {
	n.emit(gameID, KindVictory, fmt.Sprintf("%s captured the flag and won the game!", team))
}
