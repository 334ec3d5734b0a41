// Package gameserver is the Turn/Combat Gateway Façade: the only entry point
// network commands reach. It looks games up, takes the session lock and
// checks every precondition before delegating to the clocks and the engine.
package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/game/bot"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/items"
	"github.com/cory-johannsen/arena/internal/game/journal"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/turn"
	"github.com/cory-johannsen/arena/internal/observability"
)

const recordTimeout = 5 * time.Second

// ResultRecorder persists finished games.
type ResultRecorder interface {
	RecordResult(ctx context.Context, r match.Result) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Rules       config.RulesConfig
	Games       *match.Registry
	Sessions    *session.Registry
	Broadcaster event.Broadcaster
	Roller      *dice.Roller
	Items       *items.Service
	Planners    *ai.Registry
	Brain       *bot.Brain
	// Results may be nil, in which case finished games are not recorded.
	Results ResultRecorder
	Logger  *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the Façade.
type Server struct {
	rules    config.RulesConfig
	games    *match.Registry
	sessions *session.Registry
	bc       event.Broadcaster
	items    *items.Service
	journal  *journal.Notifier
	turns    *turn.Clock
	combat   *combat.TurnClock
	engine   *combat.Engine
	bots     *bot.Orchestrator
	results  ResultRecorder
	logger   *zap.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

// New wires the clocks, the engine and the bot orchestrator around a Server.
//
// Precondition: every Deps field except Results and Now must be non-nil.
// Postcondition: Returns a non-nil Server.
func New(d Deps) *Server {
	s := &Server{
		rules:    d.Rules,
		games:    d.Games,
		sessions: d.Sessions,
		bc:       d.Broadcaster,
		items:    d.Items,
		results:  d.Results,
		logger:   d.Logger,
		now:      d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	src := d.Roller.Source()
	s.journal = journal.NewNotifier(d.Broadcaster, d.Logger)
	s.bots = bot.New(d.Rules, d.Planners, d.Brain, src, s, d.Logger)
	s.turns = turn.NewClock(d.Rules, d.Broadcaster, s.journal, s.bots, s, d.Logger)
	s.combat = combat.NewTurnClock(d.Rules, d.Broadcaster, src, s, s.turns, d.Logger)
	s.engine = combat.NewEngine(d.Rules, d.Roller, d.Items, s.journal, d.Logger)
	return s
}

func (s *Server) emit(sess *session.Session, name event.Name, payload any) {
	s.bc.Broadcast(sess.ID(), event.Event{Name: name, Payload: payload})
}

// with runs fn under the lock of gameID's session. It reports false when the
// game is unknown or already torn down.
func (s *Server) with(gameID string, fn func(sess *session.Session)) bool {
	sess, ok := s.sessions.Get(gameID)
	if !ok {
		return false
	}
	return sess.Do(func() { fn(sess) })
}

// CreateGame builds a game from spec and opens its session.
//
// Postcondition: on success the game is registered in both registries and
// its snapshot is returned.
func (s *Server) CreateGame(spec match.GameSpec) (match.Snapshot, error) {
	g, err := s.games.Create(spec)
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("creating game: %w", err)
	}
	if _, err := s.sessions.Create(g); err != nil {
		s.games.Remove(g.ID)
		return match.Snapshot{}, fmt.Errorf("opening session: %w", err)
	}
	s.logger.Info("game created",
		observability.Game(g.ID),
		zap.String("mode", string(g.Mode)),
		zap.Int("players", len(g.Players)),
	)
	return g.Snapshot(), nil
}

// Snapshot returns the client-visible state of gameID.
func (s *Server) Snapshot(gameID string) (match.Snapshot, bool) {
	var snap match.Snapshot
	ok := s.with(gameID, func(sess *session.Session) { snap = sess.Game.Snapshot() })
	return snap, ok
}

// Games returns the number of live games.
func (s *Server) Games() int { return s.sessions.Len() }

// Wait blocks until every pending result write has finished.
func (s *Server) Wait() { s.pending.Wait() }

// Shutdown tears down every live game.
func (s *Server) Shutdown() {
	for _, sess := range s.sessions.All() {
		sess.Do(func() { s.cleanupLocked(sess) })
	}
	s.Wait()
}
