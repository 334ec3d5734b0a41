package turn_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/clock"
	"github.com/cory-johannsen/arena/internal/game/event"
	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/journal"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/turn"
)

type fakeBots struct{ started []string }

func (b *fakeBots) TurnStarted(_ *session.Session, p *match.Player) { b.started = append(b.started, p.ID) }

type fakeVictory struct{ teams []match.Team }

func (v *fakeVictory) TeamWon(_ *session.Session, team match.Team) { v.teams = append(v.teams, team) }

type fixture struct {
	s       *session.Session
	sched   *clock.Manual
	rec     *event.Recorder
	clock   *turn.Clock
	bots    *fakeBots
	victory *fakeVictory
}

func newFixture(t *testing.T, players ...*match.Player) *fixture {
	t.Helper()
	f := &fixture{
		sched:   clock.NewManual(),
		rec:     event.NewRecorder(),
		bots:    &fakeBots{},
		victory: &fakeVictory{},
	}
	g := &match.Game{ID: "g1", Players: players, Items: map[grid.Position]*match.Item{}}
	f.s = session.New(g, f.sched, zap.NewNop())
	f.clock = turn.NewClock(config.DefaultRules(), f.rec, journal.NewNotifier(f.rec, zap.NewNop()), f.bots, f.victory, zap.NewNop())
	return f
}

func (f *fixture) do(fn func()) { f.s.Do(fn) }

func players(ids ...string) []*match.Player {
	out := make([]*match.Player, len(ids))
	for i, id := range ids {
		out[i] = &match.Player{
			ID: id, Name: id, Team: match.TeamNone, IsConnected: true,
			MaxSpeed: 4, Speed: 4, MaxActionPoints: 1, ActionPoints: 1,
		}
	}
	return out
}

func turnHolders(ps []*match.Player) []string {
	var out []string
	for _, p := range ps {
		if p.IsTurn {
			out = append(out, p.ID)
		}
	}
	return out
}

func TestStartGame_TransitionsToFirstPlayer(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)

	var snap []*match.Player
	f.do(func() { snap = f.clock.StartGame(f.s) })
	require.Len(t, snap, 2)
	assert.Equal(t, []event.Name{event.TurnTimerPaused, event.Journal, event.TurnTransition}, f.rec.Names())
	last, _ := f.rec.Last(event.TurnTransition)
	assert.Equal(t, "a", last)
	assert.False(t, ps[0].IsTurn, "turn starts after the transition delay")

	f.sched.Advance(3 * time.Second)
	assert.True(t, ps[0].IsTurn)
	assert.Zero(t, f.rec.Count(event.TurnStart), "first turn-start is delayed")
	paused, _ := f.rec.Last(event.TurnTimerPaused)
	assert.Equal(t, false, paused)

	f.sched.Advance(500 * time.Millisecond)
	start, ok := f.rec.Last(event.TurnStart)
	require.True(t, ok)
	assert.Equal(t, "a", start)
}

func TestStartGame_EmptyGame(t *testing.T) {
	f := newFixture(t)
	f.do(func() { assert.Nil(t, f.clock.StartGame(f.s)) })
	assert.Empty(t, f.rec.Events())
}

func TestNextTurn_WrapsAround(t *testing.T) {
	ps := players("a", "b", "c")
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "c", false)
		require.Equal(t, 2, f.s.Turn.Index)
		f.rec.Reset()

		assert.Equal(t, "a", f.clock.NextTurn(f.s))
		assert.Equal(t, 0, f.s.Turn.Index)
	})
	last, ok := f.rec.Last(event.TurnTransition)
	require.True(t, ok)
	assert.Equal(t, "a", last)
	assert.False(t, ps[2].IsTurn)
}

func TestNextTurn_SkipsDisconnected(t *testing.T) {
	ps := players("a", "b", "c")
	ps[1].IsConnected = false
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "a", false)
		assert.Equal(t, "c", f.clock.NextTurn(f.s))
	})
}

func TestNextTurn_AllDisconnected(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "b", false)
		for _, p := range ps {
			p.IsConnected = false
		}
		assert.Equal(t, "", f.clock.NextTurn(f.s))
		assert.Equal(t, 1, f.s.Turn.Index)
		assert.True(t, f.s.Turn.IndexSet)
	})
}

func TestNextTurn_EmptyGame(t *testing.T) {
	f := newFixture(t)
	f.do(func() { assert.Equal(t, "", f.clock.NextTurn(f.s)) })
}

func TestNextTurn_UnsetIndexPicksFirstConnected(t *testing.T) {
	ps := players("a", "b")
	ps[0].IsConnected = false
	ps[0].Speed = 0
	f := newFixture(t, ps...)
	f.do(func() {
		assert.Equal(t, "b", f.clock.NextTurn(f.s))
		assert.Equal(t, 1, f.s.Turn.Index)
	})
	assert.Equal(t, 0, ps[0].Speed, "no EndTurn on the first pick")
}

func TestEndTurn_ResetsMovementBudget(t *testing.T) {
	ps := players("a")
	ps[0].Speed = 1
	ps[0].ActionPoints = 0
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "a", false)
		f.clock.EndTurn(f.s, "a")
	})
	assert.False(t, ps[0].IsTurn)
	assert.Equal(t, 4, ps[0].Speed)
	assert.Equal(t, 1, ps[0].ActionPoints)
	assert.Empty(t, f.victory.teams)
}

func TestEndTurn_FlagCarrierOnSpawnWins(t *testing.T) {
	ps := players("r1", "r2", "b1")
	ps[0].Team, ps[1].Team, ps[2].Team = match.RedSide, match.RedSide, match.BlueSide
	ps[0].Items = []*match.Item{{ID: "f", Name: match.FlagItem}}
	f := newFixture(t, ps...)

	f.do(func() { f.clock.EndTurn(f.s, "r1") })

	assert.True(t, ps[0].IsWinner)
	assert.True(t, ps[1].IsWinner)
	assert.False(t, ps[2].IsWinner)
	won, ok := f.rec.Last(event.TeamWon)
	require.True(t, ok)
	assert.Equal(t, match.RedSide, won)
	assert.Equal(t, []match.Team{match.RedSide}, f.victory.teams)
}

func TestEndTurn_FlagCarrierAwayFromSpawn(t *testing.T) {
	ps := players("r1")
	ps[0].Team = match.RedSide
	ps[0].Items = []*match.Item{{ID: "f", Name: match.FlagItem}}
	ps[0].Position = grid.Position{X: 1}
	f := newFixture(t, ps...)
	f.do(func() { f.clock.EndTurn(f.s, "r1") })
	assert.False(t, ps[0].IsWinner)
	assert.Zero(t, f.rec.Count(event.TeamWon))
}

func TestTimer_ExpiryAdvancesTurn(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() { f.clock.StartTurn(f.s, "a", false) })

	f.sched.Advance(29 * time.Second)
	assert.Equal(t, 29, f.rec.Count(event.TimerTick))
	assert.Zero(t, f.rec.Count(event.TurnChanged))

	f.sched.Advance(time.Second)
	assert.Equal(t, 30, f.rec.Count(event.TimerTick))
	changed, ok := f.rec.Last(event.TurnChanged)
	require.True(t, ok)
	assert.Equal(t, "b", changed)
	assert.Equal(t, 1, f.rec.Count(event.TurnChanged), "one countdown advances exactly once")
}

func TestNextTurn_DropsOldCountdown(t *testing.T) {
	ps := players("a", "b", "c")
	f := newFixture(t, ps...)
	f.do(func() { f.clock.StartTurn(f.s, "a", false) })
	f.sched.Advance(28 * time.Second)

	f.do(func() { assert.Equal(t, "b", f.clock.NextTurn(f.s)) })
	f.rec.Reset()
	f.sched.Advance(5 * time.Second)

	assert.Equal(t, []string{"b"}, turnHolders(ps))
	assert.Zero(t, f.rec.Count(event.TurnChanged))
	assert.Zero(t, f.rec.Count(event.TurnTransition))
	assert.Equal(t, []any{29, 28}, f.rec.Payloads(event.TimerTick), "only b's countdown ticks")
}

func TestTimer_SilentDuringTransition(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() { f.clock.StartTurn(f.s, "a", false) })
	f.sched.Advance(10 * time.Second)

	f.do(func() {
		f.clock.NextTurn(f.s)
		assert.False(t, f.s.Scheduled(session.SlotTurnTick))
	})
	f.rec.Reset()
	f.sched.Advance(2 * time.Second)
	assert.Zero(t, f.rec.Count(event.TimerTick))
}

// Property: however often a turn is ended early, every advance comes from
// either an explicit end or the current holder's own countdown.
func TestProperty_EarlyEndNeverDoubleAdvances(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 5).Draw(rt, "players")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		ps := players(ids...)
		f := newFixture(t, ps...)
		f.do(func() { f.clock.StartTurn(f.s, "a", false) })

		ends := rapid.IntRange(1, 8).Draw(rt, "ends")
		for i := 0; i < ends; i++ {
			f.sched.Advance(time.Duration(rapid.IntRange(4, 29).Draw(rt, "held")) * time.Second)
			var want string
			f.do(func() { want = f.clock.NextTurn(f.s) })
			f.rec.Reset()
			f.sched.Advance(3 * time.Second)
			var holders []string
			f.do(func() { holders = turnHolders(ps) })
			if len(holders) != 1 || holders[0] != want {
				rt.Fatalf("after ending turn %d want holder %s, got %v", i, want, holders)
			}
			if c := f.rec.Count(event.TurnChanged); c != 0 {
				rt.Fatalf("stale countdown advanced the turn %d times", c)
			}
		}
	})
}

func TestTimer_PausedTicksAreSilent(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "a", false)
		f.clock.PauseTurnTimer(f.s)
	})
	f.sched.Advance(2 * time.Minute)
	assert.Zero(t, f.rec.Count(event.TimerTick))
	f.do(func() {
		assert.Equal(t, 30, f.s.Turn.Seconds)
		f.clock.ResumeTurnTimer(f.s)
	})
	f.sched.Advance(time.Second)
	assert.Equal(t, []any{29}, f.rec.Payloads(event.TimerTick))
}

func TestStartTimer_RestartReplacesCountdown(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() { f.clock.StartTurn(f.s, "a", false) })
	f.sched.Advance(10 * time.Second)
	f.do(func() { f.clock.StartTimer(f.s) })
	f.sched.Advance(time.Second)
	assert.Equal(t, 29, f.rec.Payloads(event.TimerTick)[10])
	assert.Equal(t, 1, f.sched.Pending())
}

func TestStartTurn_UnknownPlayerIsNoop(t *testing.T) {
	f := newFixture(t, players("a")...)
	f.do(func() { f.clock.StartTurn(f.s, "ghost", false) })
	assert.Empty(t, f.rec.Events())
	assert.Zero(t, f.sched.Pending())
}

func TestStartTurn_NotifiesBots(t *testing.T) {
	ps := players("human", "bot")
	ps[1].IsBot = true
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "human", false)
		f.clock.StartTurn(f.s, "bot", false)
	})
	assert.Equal(t, []string{"bot"}, f.bots.started)
	assert.Equal(t, []string{"bot"}, turnHolders(ps))
}

func TestEndBotTurn_BroadcastsNextPlayer(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() {
		f.clock.StartTurn(f.s, "a", false)
		assert.Equal(t, "b", f.clock.EndBotTurn(f.s))
	})
	changed, _ := f.rec.Last(event.TurnChanged)
	assert.Equal(t, "b", changed)
}

func TestCleanupGame_Idempotent(t *testing.T) {
	ps := players("a", "b")
	f := newFixture(t, ps...)
	f.do(func() { f.clock.StartGame(f.s) })
	f.sched.Advance(3 * time.Second)

	f.do(func() {
		assert.Positive(t, f.clock.CleanupGame(f.s))
		assert.Zero(t, f.clock.CleanupGame(f.s))
	})
	f.rec.Reset()
	f.sched.Advance(time.Minute)
	assert.Empty(t, f.rec.Events(), "no task fires after cleanup")
}

func TestProperty_AtMostOneTurnHolder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "players")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		ps := players(ids...)
		f := newFixture(t, ps...)
		f.do(func() { f.clock.StartGame(f.s) })

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				f.do(func() { f.clock.NextTurn(f.s) })
			case 1:
				f.sched.Advance(time.Duration(rapid.IntRange(1, 40).Draw(rt, "secs")) * time.Second)
			case 2:
				idx := rapid.IntRange(0, n-1).Draw(rt, "who")
				f.do(func() { ps[idx].IsConnected = !ps[idx].IsConnected })
			case 3:
				idx := rapid.IntRange(0, n-1).Draw(rt, "who")
				f.do(func() { f.clock.StartTurn(f.s, ps[idx].ID, false) })
			}
			var holders []string
			f.do(func() { holders = turnHolders(ps) })
			if len(holders) > 1 {
				rt.Fatalf("several turn holders: %v", holders)
			}
		}
	})
}
