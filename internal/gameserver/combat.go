package gameserver

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/observability"
)

// StartCombat opens a fight between attackerID and targetID.
//
// Precondition: attackerID holds the turn and has an action point left.
// Postcondition: returns false without mutation when either player is
// unknown or disconnected, both share a team, either is already fighting, or
// the attacker is not on turn or has no action points.
func (s *Server) StartCombat(gameID, attackerID, targetID string) bool {
	started := false
	s.with(gameID, func(sess *session.Session) {
		started = s.StartCombatLocked(sess, attackerID, targetID)
	})
	return started
}

// StartCombatLocked is StartCombat for callers already holding the lock.
//
// Caller must hold the session lock.
func (s *Server) StartCombatLocked(sess *session.Session, attackerID, targetID string) bool {
	g := sess.Game
	attacker, target := g.Player(attackerID), g.Player(targetID)
	if attacker == nil || target == nil || attacker.ID == target.ID {
		return false
	}
	if !attacker.IsConnected || !target.IsConnected {
		return false
	}
	if attacker.Team != match.TeamNone && attacker.Team == target.Team {
		return false
	}
	if attacker.ActionPoints <= 0 || !attacker.IsTurn {
		return false
	}
	if sess.Combat != nil || attacker.IsInCombat || target.IsInCombat {
		return false
	}

	first, second := attacker, target
	if target.MaxSpeed > attacker.MaxSpeed {
		first, second = target, attacker
	}
	if !s.combat.StartCombat(sess, first.ID, second.ID) {
		return false
	}
	attacker.ActionPoints--
	s.items.ApplyCombatEffects(attacker)
	s.items.ApplyCombatEffects(target)
	s.journal.CombatStarted(g.ID, attacker, target)
	s.emit(sess, event.CombatStarted, event.CombatStartedPayload{
		AttackerID:         attacker.ID,
		TargetID:           target.ID,
		IsAttackerDebuffed: s.engine.IsDebuffed(g, attacker),
		IsTargetDebuffed:   s.engine.IsDebuffed(g, target),
	})
	return true
}

// PlayerAttack resolves one attack of attackerID against their opponent. A
// regular attack must come from the acting fighter and hands the combat turn
// over. An auto-attack answers an execute-auto-attack signal: it is accepted
// once from the fighter whose combat timer ran out, may arrive after the
// clock already moved on, and never advances it.
//
// Postcondition: returns false when no fight between the two is running, or
// for an auto-attack nobody asked attackerID to make.
func (s *Server) PlayerAttack(gameID, attackerID, targetID string, isAutoAttack bool) bool {
	ok := false
	s.with(gameID, func(sess *session.Session) {
		if isAutoAttack && !claimAutoAttack(sess, attackerID, targetID) {
			return
		}
		ok = s.playerAttackLocked(sess, attackerID, targetID, isAutoAttack)
	})
	return ok
}

// claimAutoAttack consumes the auto-attack owed by attackerID.
//
// Caller must hold the session lock.
func claimAutoAttack(sess *session.Session, attackerID, targetID string) bool {
	cs := sess.Combat
	if cs == nil || cs.PendingAuto == "" || cs.PendingAuto != attackerID || cs.Other(attackerID) != targetID {
		return false
	}
	cs.PendingAuto = ""
	return true
}

func (s *Server) playerAttackLocked(sess *session.Session, attackerID, targetID string, isAutoAttack bool) bool {
	cs := sess.Combat
	if cs == nil || !cs.Involves(attackerID) || cs.Other(attackerID) != targetID {
		return false
	}
	if !isAutoAttack && cs.Current != attackerID {
		return false
	}
	out := s.engine.ProcessAttack(sess.Game, attackerID, targetID)
	if out == nil {
		return false
	}
	s.emit(sess, event.PlayerAttacked, event.AttackState{
		AttackerID:         out.Attacker.ID,
		TargetID:           out.Target.ID,
		AttackValue:        out.AttackValue,
		DefenseValue:       out.DefenseValue,
		Damage:             out.Damage,
		AttackerHealth:     out.Attacker.Health,
		TargetHealth:       out.Target.Health,
		IsAttackerDebuffed: out.IsAttackerDebuffed,
		IsTargetDebuffed:   out.IsTargetDebuffed,
		IsAutoAttack:       isAutoAttack,
		CombatFinished:     out.CombatFinished,
		WinnerID:           out.WinnerID,
	})
	if !out.CombatFinished {
		if !isAutoAttack {
			s.combat.NextCombatTurn(sess)
		}
		return true
	}
	s.endCombatLocked(sess, event.CombatEndedPayload{WinnerID: out.WinnerID}, !out.GameWon)
	if out.GameWon {
		s.declareVictory(sess, out.Attacker, match.TeamNone)
	}
	return true
}

// AttemptEscape spends an escape attempt of the acting fighter. The combat
// turn is consumed whatever the outcome.
//
// Postcondition: returns true only when playerID got away.
func (s *Server) AttemptEscape(gameID, playerID string) bool {
	escaped := false
	s.with(gameID, func(sess *session.Session) {
		cs := sess.Combat
		if cs == nil || cs.Current != playerID {
			return
		}
		escaped = s.escapeLocked(sess, playerID)
		s.combat.NextCombatTurn(sess)
	})
	return escaped
}

// escapeLocked tries to get playerID out of the fight. It never advances the
// combat turn.
func (s *Server) escapeLocked(sess *session.Session, playerID string) bool {
	p := sess.Game.Player(playerID)
	if p == nil || !s.engine.TryToEscape(sess.Game, p) {
		return false
	}
	a, b := combat.Fighters(sess)
	for _, fighter := range []*match.Player{a, b} {
		if fighter != nil {
			fighter.Heal()
		}
	}
	s.emit(sess, event.PlayerEscaped, playerID)
	s.endCombatLocked(sess, event.CombatEndedPayload{PlayerID: playerID}, true)
	return true
}

// AutoAttack plays an on-turn bot's combat move when its timer or reaction
// delay runs out. The combat clock advances the turn afterwards.
//
// Caller must hold the session lock.
func (s *Server) AutoAttack(sess *session.Session, attackerID, targetID string) {
	p := sess.Game.Player(attackerID)
	if p == nil {
		return
	}
	switch s.bots.CombatAction(sess, p) {
	case ai.ActionEscape:
		s.escapeLocked(sess, attackerID)
	default:
		s.playerAttackLocked(sess, attackerID, targetID, true)
	}
}

// endCombatLocked stops the running fight and announces it. With
// releaseBot, a bot whose board turn led to the fight gives the turn up.
func (s *Server) endCombatLocked(sess *session.Session, payload event.CombatEndedPayload, releaseBot bool) {
	a, b := combat.Fighters(sess)
	if a == nil && b == nil {
		return
	}
	for _, fighter := range []*match.Player{a, b} {
		if fighter != nil {
			s.items.RemoveCombatBuffs(fighter)
		}
	}
	s.combat.EndCombat(sess)
	s.emit(sess, event.CombatEnded, payload)

	holder := sess.TurnPlayer()
	if !releaseBot || holder == nil || !holder.IsBot || !holder.IsTurn {
		return
	}
	if holder == a || holder == b {
		sess.Logger().Debug("bot turn ends after combat", observability.Player(holder.ID), zap.String("winner", payload.WinnerID))
		s.turns.EndBotTurn(sess)
	}
}
