// Package session owns the per-game aggregate of the turn/combat core: the
// turn cycle, the combat record, the phase and every scheduled task.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/clock"
	"github.com/cory-johannsen/arena/internal/game/match"
)

// Slot names a scheduled task. A session holds at most one task per slot.
type Slot string

const (
	SlotTurnTick    Slot = "turn_tick"
	SlotTransition  Slot = "turn_transition"
	SlotTurnStart   Slot = "turn_start"
	SlotCombatTick  Slot = "combat_tick"
	SlotBotDecision Slot = "bot_decision"
)

// TurnState is the turn cycle of a game.
type TurnState struct {
	// Index is the position in Game.Players of the player holding the turn.
	// It is meaningful only when IndexSet is true.
	Index    int
	IndexSet bool
	Seconds  int
	Paused   bool
	Started  bool
}

// CombatState is the single active fight of a game.
type CombatState struct {
	First   string
	Second  string
	Current string
	Seconds int
	Active  bool
	// GraceTurn marks the opening combat turn, during which bots never take
	// their fast attack.
	GraceTurn bool
	// ReactAfter is the number of elapsed seconds after which an on-turn bot
	// attacks; zero disables the fast attack.
	ReactAfter int
	Elapsed    int
	// PendingAuto is the human fighter whose client was told to auto-attack
	// and has not answered yet. Only that fighter may send one auto-attack.
	PendingAuto string
}

// Other returns the participant that is not id, or "" when id is not part of
// the fight.
func (c *CombatState) Other(id string) string {
	switch id {
	case c.First:
		return c.Second
	case c.Second:
		return c.First
	default:
		return ""
	}
}

// Involves reports whether id is one of the two participants.
func (c *CombatState) Involves(id string) bool { return id == c.First || id == c.Second }

type scheduled struct {
	gen  uint64
	task clock.Task
}

// Session is the aggregate for one game.
//
// Every field is guarded by the session lock. Entry points acquire it through
// Do; scheduled callbacks acquire it themselves. Code below the gameserver
// façade assumes the lock is already held.
type Session struct {
	mu sync.Mutex

	Game   *match.Game
	Turn   TurnState
	Combat *CombatState
	Phase  Phase

	sched     clock.Scheduler
	logger    *zap.Logger
	tasks     map[Slot]scheduled
	gen       uint64
	destroyed bool
}

// New returns a session for g.
//
// Precondition: g, sched and logger must be non-nil.
func New(g *match.Game, sched clock.Scheduler, logger *zap.Logger) *Session {
	return &Session{
		Game:   g,
		Phase:  Idle(),
		sched:  sched,
		logger: logger,
		tasks:  make(map[Slot]scheduled),
	}
}

// ID returns the game id.
func (s *Session) ID() string { return s.Game.ID }

// Logger returns the session's game-scoped logger.
func (s *Session) Logger() *zap.Logger { return s.logger }

// Do runs fn under the session lock. It reports false, without running fn,
// once the session has been destroyed.
func (s *Session) Do(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return false
	}
	fn()
	return true
}

// Schedule runs fn under the session lock after delay, replacing any task
// already in slot. A replaced or cancelled task never runs, even when its
// timer has already fired and is waiting for the lock.
//
// Precondition: the session lock is held.
func (s *Session) Schedule(slot Slot, delay time.Duration, fn func()) {
	if s.destroyed {
		return
	}
	if prev, ok := s.tasks[slot]; ok {
		prev.task.Stop()
	}
	s.gen++
	gen := s.gen
	task := s.sched.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.tasks[slot]
		if s.destroyed || !ok || cur.gen != gen {
			return
		}
		delete(s.tasks, slot)
		fn()
	})
	s.tasks[slot] = scheduled{gen: gen, task: task}
}

// Cancel stops the task in slot and reports whether one was pending.
//
// Precondition: the session lock is held.
func (s *Session) Cancel(slot Slot) bool {
	prev, ok := s.tasks[slot]
	if !ok {
		return false
	}
	prev.task.Stop()
	delete(s.tasks, slot)
	return true
}

// Scheduled reports whether a task is pending in slot.
//
// Precondition: the session lock is held.
func (s *Session) Scheduled(slot Slot) bool {
	_, ok := s.tasks[slot]
	return ok
}

// Destroy cancels every task and marks the session dead. Later Do calls and
// pending callbacks become no-ops. Destroy is idempotent and returns the
// number of tasks it cancelled.
//
// Precondition: the session lock is held.
func (s *Session) Destroy() int {
	if s.destroyed {
		return 0
	}
	n := 0
	for slot := range s.tasks {
		if s.Cancel(slot) {
			n++
		}
	}
	s.destroyed = true
	s.Combat = nil
	s.Phase = Idle()
	return n
}

// Destroyed reports whether Destroy has run.
//
// Precondition: the session lock is held.
func (s *Session) Destroyed() bool { return s.destroyed }

// TurnPlayer returns the player the turn index points at, or nil.
//
// Precondition: the session lock is held.
func (s *Session) TurnPlayer() *match.Player {
	if !s.Turn.IndexSet || s.Turn.Index < 0 || s.Turn.Index >= len(s.Game.Players) {
		return nil
	}
	return s.Game.Players[s.Turn.Index]
}
