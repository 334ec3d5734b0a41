package gameserver

import (
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// StartGame begins the turn cycle of gameID.
//
// Postcondition: returns false when the game is unknown, already started or
// has no players.
func (s *Server) StartGame(gameID string) bool {
	started := false
	s.with(gameID, func(sess *session.Session) {
		if sess.Turn.Started {
			return
		}
		if s.turns.StartGame(sess) == nil {
			return
		}
		s.emit(sess, event.GameState, event.GameStatePayload{Game: sess.Game.Snapshot()})
		started = true
	})
	return started
}

// StartTurn hands the turn of gameID to playerID.
func (s *Server) StartTurn(gameID, playerID string, isFirstTurn bool) {
	s.with(gameID, func(sess *session.Session) {
		s.turns.StartTurn(sess, playerID, isFirstTurn)
	})
}

// EndTurn closes playerID's turn and moves on to the next player.
//
// Postcondition: returns false without mutation unless playerID holds the
// turn outside a fight.
func (s *Server) EndTurn(gameID, playerID string) bool {
	ended := false
	s.with(gameID, func(sess *session.Session) {
		holder := sess.TurnPlayer()
		if holder == nil || holder.ID != playerID || !holder.IsTurn || sess.Combat != nil {
			return
		}
		ended = true
		if id := s.turns.NextTurn(sess); id != "" {
			s.emit(sess, event.TurnChanged, id)
		}
	})
	return ended
}

// NextTurn forces the turn of gameID on to the next connected player and
// returns that player's id, or "". It does nothing while a fight runs.
func (s *Server) NextTurn(gameID string) string {
	next := ""
	s.with(gameID, func(sess *session.Session) {
		if sess.Combat != nil {
			return
		}
		next = s.turns.NextTurn(sess)
		if next != "" {
			s.emit(sess, event.TurnChanged, next)
		}
	})
	return next
}

// EndBotTurnLocked advances past a bot that has finished its turn.
//
// Caller must hold the session lock.
func (s *Server) EndBotTurnLocked(sess *session.Session) {
	s.turns.EndBotTurn(sess)
}
