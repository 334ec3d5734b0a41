// Package turn sequences whose turn it is in a game and runs the per-turn
// countdown.
package turn

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/journal"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/observability"
)

const tick = time.Second

// BotHook is notified when a bot's turn starts.
type BotHook interface {
	TurnStarted(s *session.Session, p *match.Player)
}

// VictoryHook is notified when a team brings the flag home.
type VictoryHook interface {
	TeamWon(s *session.Session, team match.Team)
}

// Clock is the Turn Clock. Every method assumes the session lock is held and
// silently ignores unknown players.
type Clock struct {
	rules   config.RulesConfig
	bc      event.Broadcaster
	journal *journal.Notifier
	bots    BotHook
	victory VictoryHook
	logger  *zap.Logger
}

// NewClock creates a Clock.
//
// Precondition: bc, notifier and logger must be non-nil; bots and victory may
// be nil, in which case the matching notifications are skipped.
func NewClock(rules config.RulesConfig, bc event.Broadcaster, notifier *journal.Notifier, bots BotHook, victory VictoryHook, logger *zap.Logger) *Clock {
	return &Clock{
		rules:   rules,
		bc:      bc,
		journal: notifier,
		bots:    bots,
		victory: victory,
		logger:  logger,
	}
}

func (c *Clock) emit(s *session.Session, name event.Name, payload any) {
	c.bc.Broadcast(s.ID(), event.Event{Name: name, Payload: payload})
}

// StartGame snapshots the players, points the turn index at player 0 with
// the countdown paused, and begins the transition to player 0.
//
// Postcondition: returns the snapshot, or nil for a game with no players.
func (c *Clock) StartGame(s *session.Session) []*match.Player {
	players := append([]*match.Player(nil), s.Game.Players...)
	if len(players) == 0 {
		return nil
	}
	s.Turn = session.TurnState{Index: 0, IndexSet: true, Started: true}
	c.PauseTurnTimer(s)
	c.transitionTo(s, players[0])
	s.Logger().Info("game started", zap.Int("players", len(players)))
	return players
}

// transitionTo narrates the upcoming turn and starts it after the
// transition delay, resuming the countdown. The previous turn's countdown
// and pending turn-start broadcast are dropped first so they cannot fire
// into the new turn.
func (c *Clock) transitionTo(s *session.Session, p *match.Player) {
	s.Cancel(session.SlotTurnTick)
	s.Cancel(session.SlotTurnStart)
	s.Phase = session.Transitioning(p.ID)
	c.journal.TurnStarting(s.ID(), p)
	c.emit(s, event.TurnTransition, p.ID)
	id := p.ID
	s.Schedule(session.SlotTransition, c.rules.TransitionDelay, func() {
		c.StartTurn(s, id, true)
		if s.Turn.Paused {
			c.ResumeTurnTimer(s)
		}
	})
}

// StartTurn hands the turn to playerID and restarts the countdown. With
// isFirstTurn the turn-start broadcast is delayed to let clients settle.
func (c *Clock) StartTurn(s *session.Session, playerID string, isFirstTurn bool) {
	p := s.Game.Player(playerID)
	if p == nil {
		return
	}
	for i, other := range s.Game.Players {
		other.IsTurn = other.ID == playerID
		if other.ID == playerID {
			s.Turn.Index = i
			s.Turn.IndexSet = true
		}
	}
	s.Phase = session.PlayerTurn(playerID)
	c.StartTimer(s)

	if isFirstTurn && c.rules.FirstTurnDelay > 0 {
		s.Schedule(session.SlotTurnStart, c.rules.FirstTurnDelay, func() {
			c.emit(s, event.TurnStart, playerID)
		})
	} else {
		c.emit(s, event.TurnStart, playerID)
	}
	s.Logger().Debug("turn started", observability.Player(playerID), zap.Bool("first", isFirstTurn))

	if p.IsBot && c.bots != nil {
		c.bots.TurnStarted(s, p)
	}
}

// EndTurn closes playerID's turn. A flag carrier standing on their own spawn
// wins the game for their team.
//
// Postcondition: the player's IsTurn is false and Speed and ActionPoints are
// back at their maximum.
func (c *Clock) EndTurn(s *session.Session, playerID string) {
	p := s.Game.Player(playerID)
	if p == nil {
		return
	}
	if p.Team != match.TeamNone && p.CarriesFlag() && p.OnSpawn() {
		for _, mate := range s.Game.Players {
			if mate.Team == p.Team {
				mate.IsWinner = true
			}
		}
		c.emit(s, event.TeamWon, p.Team)
		c.journal.TeamVictory(s.ID(), p.Team)
		s.Logger().Info("team captured the flag", zap.String("team", string(p.Team)), observability.Player(p.ID))
		if c.victory != nil {
			c.victory.TeamWon(s, p.Team)
		}
	}
	p.IsTurn = false
	p.Speed = p.MaxSpeed
	p.ActionPoints = p.MaxActionPoints
	if s.Phase.Kind == session.PhasePlayerTurn && s.Phase.PlayerID == playerID {
		s.Phase = session.Idle()
	}
}

// NextTurn ends the current turn and transitions to the next connected
// player in seating order. With no turn index yet, the first connected
// player is chosen without ending anyone's turn.
//
// Postcondition: returns the next player id, or "" when no player is
// connected or the game ended; the turn index is untouched in that case.
func (c *Clock) NextTurn(s *session.Session) string {
	players := s.Game.Players
	n := len(players)
	if n == 0 || !anyConnected(players) {
		return ""
	}

	if !s.Turn.IndexSet {
		for i, p := range players {
			if p.IsConnected {
				s.Turn.Index = i
				s.Turn.IndexSet = true
				c.transitionTo(s, p)
				return p.ID
			}
		}
		return ""
	}

	cur := s.Turn.Index
	if cur >= 0 && cur < n {
		c.EndTurn(s, players[cur].ID)
		if s.Destroyed() {
			return ""
		}
	}
	for step := 1; step <= n; step++ {
		j := ((cur+step)%n + n) % n
		if players[j].IsConnected {
			s.Turn.Index = j
			c.transitionTo(s, players[j])
			return players[j].ID
		}
	}
	return ""
}

// StartTimer restarts the turn countdown at the full turn duration, driven
// by a single self-rearming one-second task.
func (c *Clock) StartTimer(s *session.Session) {
	s.Cancel(session.SlotTurnTick)
	s.Turn.Seconds = int(c.rules.TurnDuration / time.Second)
	c.scheduleTick(s)
}

func (c *Clock) scheduleTick(s *session.Session) {
	s.Schedule(session.SlotTurnTick, tick, func() { c.onTick(s) })
}

func (c *Clock) onTick(s *session.Session) {
	if s.Turn.Paused {
		c.scheduleTick(s)
		return
	}
	s.Turn.Seconds--
	c.emit(s, event.TimerTick, s.Turn.Seconds)
	if s.Turn.Seconds > 0 {
		c.scheduleTick(s)
		return
	}
	s.Logger().Debug("turn timed out")
	if id := c.NextTurn(s); id != "" {
		c.emit(s, event.TurnChanged, id)
	}
}

// PauseTurnTimer freezes the countdown.
func (c *Clock) PauseTurnTimer(s *session.Session) {
	s.Turn.Paused = true
	c.emit(s, event.TurnTimerPaused, true)
}

// ResumeTurnTimer unfreezes the countdown.
func (c *Clock) ResumeTurnTimer(s *session.Session) {
	s.Turn.Paused = false
	c.emit(s, event.TurnTimerPaused, false)
}

// EndBotTurn advances past a bot that has nothing left to do.
func (c *Clock) EndBotTurn(s *session.Session) string {
	id := c.NextTurn(s)
	if id != "" {
		c.emit(s, event.TurnChanged, id)
	}
	return id
}

// CleanupGame cancels every turn task and forgets the turn cycle.
//
// Postcondition: returns the number of tasks cancelled; a second call
// returns 0.
func (c *Clock) CleanupGame(s *session.Session) int {
	n := 0
	for _, slot := range []session.Slot{session.SlotTurnTick, session.SlotTransition, session.SlotTurnStart} {
		if s.Cancel(slot) {
			n++
		}
	}
	s.Turn = session.TurnState{}
	return n
}

func anyConnected(players []*match.Player) bool {
	for _, p := range players {
		if p.IsConnected {
			return true
		}
	}
	return false
}
