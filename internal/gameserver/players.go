package gameserver

import (
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/observability"
)

// PlayerConnected marks playerID connected again and sends everyone a fresh
// snapshot.
func (s *Server) PlayerConnected(gameID, playerID string) bool {
	ok := false
	s.with(gameID, func(sess *session.Session) {
		p := sess.Game.Player(playerID)
		if p == nil {
			return
		}
		p.IsConnected = true
		ok = true
		s.emit(sess, event.GameState, event.GameStatePayload{Game: sess.Game.Snapshot()})
	})
	return ok
}

// PlayerDisconnected handles playerID leaving. A fight they were part of
// ends in favour of the opponent, a turn they held passes on, and the game is
// torn down once no human is left.
func (s *Server) PlayerDisconnected(gameID, playerID string) {
	s.with(gameID, func(sess *session.Session) {
		g := sess.Game
		p := g.Player(playerID)
		if p == nil || !p.IsConnected {
			return
		}
		holder := sess.TurnPlayer()
		heldTurn := holder != nil && holder.ID == playerID && holder.IsTurn

		p.IsConnected = false
		s.emit(sess, event.PlayerDisconnected, playerID)
		sess.Logger().Info("player disconnected", observability.Player(playerID))

		if cs := sess.Combat; cs != nil && cs.Involves(playerID) {
			remaining := g.Player(cs.Other(playerID))
			s.endCombatLocked(sess, event.CombatEndedPayload{PlayerID: remaining.ID}, true)
			if remaining.IsWinner {
				s.declareVictory(sess, remaining, match.TeamNone)
				return
			}
		}

		if g.ConnectedHumans() == 0 {
			s.cleanupLocked(sess)
			return
		}
		if heldTurn && !sess.Destroyed() {
			if id := s.turns.NextTurn(sess); id != "" {
				s.emit(sess, event.TurnChanged, id)
			}
		}
	})
}

// ToggleDebugMode flips the shared debug flag of gameID.
//
// Postcondition: returns false without mutation unless playerID is the game
// leader.
func (s *Server) ToggleDebugMode(gameID, playerID string) bool {
	ok := false
	s.with(gameID, func(sess *session.Session) {
		g := sess.Game
		leader := g.Player(playerID)
		if leader == nil || g.LeaderID != playerID {
			return
		}
		g.DebugMode = !g.DebugMode
		s.journal.DebugToggled(g.ID, leader, g.DebugMode)
		s.emit(sess, event.DebugModeChanged, event.DebugModePayload{Enabled: g.DebugMode})
		ok = true
	})
	return ok
}

// MovePlayer walks playerID to dest.
func (s *Server) MovePlayer(gameID, playerID string, dest grid.Position) bool {
	ok := false
	s.with(gameID, func(sess *session.Session) { ok = s.MoveLocked(sess, playerID, dest) })
	return ok
}

// MoveLocked is MovePlayer for callers already holding the lock.
//
// Caller must hold the session lock.
// Postcondition: returns false without mutation unless playerID holds the
// turn outside a fight and can afford the path.
func (s *Server) MoveLocked(sess *session.Session, playerID string, dest grid.Position) bool {
	p := s.actor(sess, playerID)
	if p == nil {
		return false
	}
	path, ok := sess.Game.Move(p, dest)
	if !ok {
		return false
	}
	steps := make([]event.PathStep, 0, len(path))
	for _, pos := range path {
		steps = append(steps, event.PathStep{X: pos.X, Y: pos.Y})
	}
	s.emit(sess, event.PlayerMoved, event.PlayerMovedPayload{PlayerID: p.ID, Path: steps, Speed: p.Speed})
	return true
}

// PickUpItem moves the floor item under playerID into their inventory.
func (s *Server) PickUpItem(gameID, playerID string) bool {
	ok := false
	s.with(gameID, func(sess *session.Session) { ok = s.PickUpLocked(sess, playerID) })
	return ok
}

// PickUpLocked is PickUpItem for callers already holding the lock.
//
// Caller must hold the session lock.
func (s *Server) PickUpLocked(sess *session.Session, playerID string) bool {
	p := s.actor(sess, playerID)
	if p == nil {
		return false
	}
	it, ok := sess.Game.TakeItem(p, s.rules.MaxItems)
	if !ok {
		return false
	}
	s.items.ApplyPassive(p, it)
	s.emit(sess, event.ItemPickedUp, event.ItemPickedUpPayload{PlayerID: p.ID, ItemID: it.ID, ItemName: it.Name})
	return true
}

// actor returns playerID when they may act on the board: connected, on turn
// and with no fight running.
func (s *Server) actor(sess *session.Session, playerID string) *match.Player {
	p := sess.Game.Player(playerID)
	if p == nil || !p.IsConnected || !p.IsTurn || sess.Combat != nil {
		return nil
	}
	return p
}
