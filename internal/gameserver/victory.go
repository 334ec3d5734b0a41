package gameserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/observability"
)

// TeamWon ends the game after a flag capture. The turn clock has already
// announced the team.
//
// Caller must hold the session lock.
func (s *Server) TeamWon(sess *session.Session, team match.Team) {
	s.declareVictory(sess, nil, team)
}

// declareVictory is the single end of a won game: winner is set for a
// free-for-all win and team for a flag capture. The result is recorded off
// the lock and the session is torn down.
func (s *Server) declareVictory(sess *session.Session, winner *match.Player, team match.Team) {
	if winner != nil {
		s.journal.PlayerVictory(sess.ID(), winner)
		s.emit(sess, event.PlayerWonGame, winner.Name)
	}
	result := sess.Game.Result(team, s.now())
	sess.Logger().Info("game won",
		zap.String("team", string(team)),
		zap.Int("winners", len(result.Winners())),
	)
	s.record(result)
	s.cleanupLocked(sess)
}

func (s *Server) record(r match.Result) {
	if s.results == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.results.RecordResult(ctx, r); err != nil {
			s.logger.Error("recording match result", observability.Game(r.GameID), zap.Error(err))
		}
	}()
}

// CleanupGame tears gameID down, cancelling every timer it owns.
func (s *Server) CleanupGame(gameID string) {
	s.with(gameID, func(sess *session.Session) { s.cleanupLocked(sess) })
}

func (s *Server) cleanupLocked(sess *session.Session) {
	turnTasks := s.turns.CleanupGame(sess)
	s.combat.CleanupGame(sess)
	rest := sess.Destroy()
	s.sessions.Remove(sess.ID())
	s.games.Remove(sess.ID())
	sess.Logger().Info("game cleaned up", zap.Int("cancelled_tasks", turnTasks+rest))
}
