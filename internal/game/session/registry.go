package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/clock"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/observability"
)

// Registry indexes sessions by game id.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	sched    clock.Scheduler
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry whose sessions schedule on sched.
//
// Precondition: sched and logger must be non-nil.
func NewRegistry(sched clock.Scheduler, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		sched:    sched,
		logger:   logger,
	}
}

// Create registers a new session for g.
//
// Postcondition: returns an error when a session for g.ID already exists.
func (r *Registry) Create(g *match.Game) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[g.ID]; exists {
		return nil, fmt.Errorf("session for game %q already exists", g.ID)
	}
	s := New(g, r.sched, observability.ForGame(r.logger, g.ID))
	r.sessions[g.ID] = s
	return s, nil
}

// Get returns the session for gameID.
func (r *Registry) Get(gameID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// Remove forgets the session for gameID. It does not destroy the session.
func (r *Registry) Remove(gameID string) {
	r.mu.Lock()
	delete(r.sessions, gameID)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every registered session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
