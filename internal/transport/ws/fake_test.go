package ws_test

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/transport/ws"
)

// fakeGame records every façade call as a short string.
type fakeGame struct {
	mu     sync.Mutex
	bc     event.Broadcaster
	snap   match.Snapshot
	calls  []string
	accept bool
}

func newFakeGame(bc event.Broadcaster) *fakeGame {
	return &fakeGame{
		bc:     bc,
		accept: true,
		snap: match.Snapshot{
			ID: "g1",
			Players: []*match.Player{
				{ID: "p1", Name: "alice"},
				{ID: "p2", Name: "bob"},
				{ID: "b1", Name: "bot", IsBot: true},
			},
		},
	}
}

var _ ws.Game = (*fakeGame)(nil)

func (f *fakeGame) record(format string, args ...any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.accept
}

func (f *fakeGame) has(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, call)
}

func (f *fakeGame) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeGame) CreateGame(spec match.GameSpec) (match.Snapshot, error) {
	f.record("create %d", len(spec.Players))
	if len(spec.Players) == 0 {
		return match.Snapshot{}, errors.New("match: a game needs at least one player")
	}
	return f.snap, nil
}

func (f *fakeGame) Snapshot(gameID string) (match.Snapshot, bool) {
	return f.snap, gameID == f.snap.ID
}

func (f *fakeGame) StartGame(gameID string) bool { return f.record("start %s", gameID) }

func (f *fakeGame) EndTurn(_, playerID string) bool { return f.record("endTurn %s", playerID) }

func (f *fakeGame) MovePlayer(_, playerID string, dest grid.Position) bool {
	return f.record("move %s %s", playerID, dest)
}

func (f *fakeGame) PickUpItem(_, playerID string) bool { return f.record("pickUp %s", playerID) }

func (f *fakeGame) StartCombat(_, attackerID, targetID string) bool {
	return f.record("startCombat %s %s", attackerID, targetID)
}

func (f *fakeGame) PlayerAttack(_, attackerID, targetID string, isAutoAttack bool) bool {
	return f.record("attack %s %s %t", attackerID, targetID, isAutoAttack)
}

func (f *fakeGame) AttemptEscape(_, playerID string) bool { return f.record("escape %s", playerID) }

func (f *fakeGame) ToggleDebugMode(_, playerID string) bool { return f.record("debug %s", playerID) }

func (f *fakeGame) PlayerConnected(gameID, playerID string) bool {
	f.record("connected %s", playerID)
	f.bc.Broadcast(gameID, event.Event{Name: event.GameState, Payload: event.GameStatePayload{Game: f.snap}})
	return true
}

func (f *fakeGame) PlayerDisconnected(_, playerID string) { f.record("disconnected %s", playerID) }
