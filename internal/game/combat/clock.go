// Package combat runs 1v1 fights: the combat turn clock that alternates the
// acting fighter, and the engine that resolves attacks and their aftermath.
package combat

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Attacker performs the attack of an on-turn bot when its combat timer runs
// out or its reaction delay elapses.
type Attacker interface {
	AutoAttack(s *session.Session, attackerID, targetID string)
}

// TurnPauser suspends and resumes the turn countdown around a fight.
type TurnPauser interface {
	PauseTurnTimer(s *session.Session)
	ResumeTurnTimer(s *session.Session)
}

// TurnClock is the Combat Clock. Every method assumes the session lock is
// held.
type TurnClock struct {
	rules    config.RulesConfig
	bc       event.Broadcaster
	src      dice.Source
	attacker Attacker
	pauser   TurnPauser
	logger   *zap.Logger
}

// NewTurnClock creates a TurnClock.
//
// Precondition: every argument must be non-nil.
func NewTurnClock(rules config.RulesConfig, bc event.Broadcaster, src dice.Source, attacker Attacker, pauser TurnPauser, logger *zap.Logger) *TurnClock {
	return &TurnClock{rules: rules, bc: bc, src: src, attacker: attacker, pauser: pauser, logger: logger}
}

func (c *TurnClock) emit(s *session.Session, name event.Name, payload any) {
	c.bc.Broadcast(s.ID(), event.Event{Name: name, Payload: payload})
}

// StartCombat opens a fight in which firstID acts first. The acting marker
// is seeded with secondID and the opening grace turn goes to the other
// participant.
//
// Postcondition: returns false without mutation when a fight is already
// running, the ids are equal, or either player is unknown.
func (c *TurnClock) StartCombat(s *session.Session, firstID, secondID string) bool {
	if s.Combat != nil || firstID == secondID {
		return false
	}
	first, second := s.Game.Player(firstID), s.Game.Player(secondID)
	if first == nil || second == nil {
		return false
	}
	s.Combat = &session.CombatState{First: firstID, Second: secondID, Current: secondID}
	first.IsInCombat = true
	second.IsInCombat = true
	c.pauser.PauseTurnTimer(s)
	s.Logger().Info("combat started", zap.String("first", firstID), zap.String("second", secondID))
	c.StartCombatTurn(s, s.Combat.Other(s.Combat.Current), true)
	return true
}

// StartCombatTurn gives the combat turn to playerID. A fighter with no
// escape attempts left gets the shorter turn.
func (c *TurnClock) StartCombatTurn(s *session.Session, playerID string, isFirstTurn bool) {
	cs := s.Combat
	if cs == nil || !cs.Involves(playerID) {
		return
	}
	p := s.Game.Player(playerID)
	if p == nil {
		return
	}
	duration := c.rules.CombatTurnDuration
	if p.EscapesAttempts >= c.rules.MaxEscapeAttempts {
		duration = c.rules.CombatTurnNoEscapeDuration
	}
	for _, id := range []string{cs.First, cs.Second} {
		if fighter := s.Game.Player(id); fighter != nil {
			fighter.IsCombatTurn = id == playerID
		}
	}
	cs.Current = playerID
	cs.Active = true
	s.Phase = session.InCombat(cs.First, cs.Second, playerID)
	c.StartCombatTimer(s, duration, isFirstTurn)
	c.emit(s, event.CombatTurnChanged, playerID)
}

// NextCombatTurn hands the combat turn to the other fighter.
func (c *TurnClock) NextCombatTurn(s *session.Session) {
	cs := s.Combat
	if cs == nil {
		return
	}
	next := cs.Other(cs.Current)
	if next == "" {
		return
	}
	c.StartCombatTurn(s, next, false)
}

// StartCombatTimer restarts the per-second combat countdown. Outside the
// grace turn an on-turn bot draws a reaction delay and attacks once it
// elapses, before the countdown would run out.
func (c *TurnClock) StartCombatTimer(s *session.Session, duration time.Duration, isFirstTurn bool) {
	cs := s.Combat
	if cs == nil {
		return
	}
	s.Cancel(session.SlotCombatTick)
	cs.Seconds = int(duration / time.Second)
	cs.Elapsed = 0
	cs.GraceTurn = isFirstTurn
	cs.ReactAfter = 0
	if p := s.Game.Player(cs.Current); p != nil && p.IsBot && p.IsCombatTurn && !isFirstTurn {
		cs.ReactAfter = c.reactionSeconds(cs.Seconds)
	}
	c.emit(s, event.CombatTimerStart, cs.Seconds)
	c.scheduleTick(s, cs)
}

// reactionSeconds draws a bot reaction delay in [1, ceil(fake_human_delay)]
// seconds, clamped to the turn length.
func (c *TurnClock) reactionSeconds(turnSeconds int) int {
	bound := int(math.Ceil(c.rules.FakeHumanDelay.Seconds()))
	if bound < 1 {
		bound = 1
	}
	return min(1+c.src.Intn(bound), max(turnSeconds, 1))
}

func (c *TurnClock) scheduleTick(s *session.Session, cs *session.CombatState) {
	s.Schedule(session.SlotCombatTick, time.Second, func() {
		if s.Combat != cs {
			return
		}
		cs.Seconds--
		cs.Elapsed++
		c.emit(s, event.CombatTimerTick, cs.Seconds)
		if cs.Seconds <= 0 || (cs.ReactAfter > 0 && cs.Elapsed >= cs.ReactAfter) {
			c.ExecuteAutoAttack(s)
			return
		}
		c.scheduleTick(s, cs)
	})
}

// ExecuteAutoAttack resolves the acting fighter's inaction: an on-turn bot
// attacks through the Attacker, a human's client is told to auto-attack and
// that fighter is recorded as owing one. The combat turn then advances unless
// the attack ended the fight.
func (c *TurnClock) ExecuteAutoAttack(s *session.Session) {
	cs := s.Combat
	if cs == nil {
		return
	}
	s.Cancel(session.SlotCombatTick)
	p := s.Game.Player(cs.Current)
	if p == nil {
		return
	}
	if p.IsBot && p.IsCombatTurn {
		c.attacker.AutoAttack(s, p.ID, cs.Other(p.ID))
	} else {
		cs.PendingAuto = p.ID
		c.emit(s, event.ExecuteAutoAttack, nil)
	}
	if s.Combat == cs && !s.Destroyed() {
		c.NextCombatTurn(s)
	}
}

// EndCombat closes the fight and resumes the turn countdown. It is a no-op
// without a fight, so the countdown resumes exactly once per fight.
func (c *TurnClock) EndCombat(s *session.Session) {
	cs := s.Combat
	if cs == nil {
		return
	}
	s.Cancel(session.SlotCombatTick)
	s.Combat = nil
	for _, p := range s.Game.Players {
		p.IsCombatTurn = false
		p.IsInCombat = false
	}
	if holder := s.TurnPlayer(); holder != nil && holder.IsTurn {
		s.Phase = session.PlayerTurn(holder.ID)
	} else {
		s.Phase = session.Idle()
	}
	c.pauser.ResumeTurnTimer(s)
	c.emit(s, event.CombatTimerEnd, nil)
	s.Logger().Info("combat ended", zap.String("first", cs.First), zap.String("second", cs.Second))
}

// CleanupGame drops any fight without resuming the turn countdown.
func (c *TurnClock) CleanupGame(s *session.Session) {
	s.Cancel(session.SlotCombatTick)
	s.Combat = nil
}

// IsCombatActive reports whether a fight is running.
func (c *TurnClock) IsCombatActive(s *session.Session) bool {
	return s.Combat != nil && s.Combat.Active
}

// CurrentCombatTurnPlayer returns the acting fighter's id, or "".
func (c *TurnClock) CurrentCombatTurnPlayer(s *session.Session) string {
	if s.Combat == nil {
		return ""
	}
	return s.Combat.Current
}

// Fighters returns both fighters of the running fight, or nils.
func Fighters(s *session.Session) (*match.Player, *match.Player) {
	if s.Combat == nil {
		return nil, nil
	}
	return s.Game.Player(s.Combat.First), s.Game.Player(s.Combat.Second)
}
