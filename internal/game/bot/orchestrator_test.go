package bot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/game/bot"
	"github.com/cory-johannsen/arena/internal/game/clock"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/scripting"
)

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

type fakeActions struct {
	moves       []grid.Position
	pickups     []string
	combats     [][2]string
	ended       int
	allowCombat bool
}

func (f *fakeActions) MoveLocked(s *session.Session, playerID string, dest grid.Position) bool {
	p := s.Game.Player(playerID)
	if _, ok := s.Game.Move(p, dest); !ok {
		return false
	}
	f.moves = append(f.moves, dest)
	return true
}

func (f *fakeActions) PickUpLocked(s *session.Session, playerID string) bool {
	it, ok := s.Game.TakeItem(s.Game.Player(playerID), 2)
	if ok {
		f.pickups = append(f.pickups, it.Name)
	}
	return ok
}

func (f *fakeActions) StartCombatLocked(_ *session.Session, attackerID, targetID string) bool {
	f.combats = append(f.combats, [2]string{attackerID, targetID})
	return f.allowCombat
}

func (f *fakeActions) EndBotTurnLocked(s *session.Session) {
	f.ended++
	for _, p := range s.Game.Players {
		p.IsTurn = false
	}
}

type fixture struct {
	s       *session.Session
	sched   *clock.Manual
	actions *fakeActions
	brain   *bot.Brain
	orch    *bot.Orchestrator
}

func newFixture(t *testing.T, delayMs int, players ...*match.Player) *fixture {
	t.Helper()
	brain := bot.NewBrain()
	mgr := scripting.NewManager(dice.NewLoggedRoller(fixedSrc{0}, zap.NewNop()), zap.NewNop())
	mgr.GetBot = brain.Lookup
	t.Cleanup(mgr.Close)
	planners, err := bot.LoadPlanners(mgr, config.BotsConfig{})
	require.NoError(t, err)

	f := &fixture{sched: clock.NewManual(), actions: &fakeActions{}, brain: brain}
	g := &match.Game{
		ID:      "g1",
		Players: players,
		Grid:    grid.MustParse("........", "........", "........"),
		Items:   map[grid.Position]*match.Item{},
	}
	f.s = session.New(g, f.sched, zap.NewNop())
	f.orch = bot.New(config.DefaultRules(), planners, brain, fixedSrc{delayMs}, f.actions, zap.NewNop())
	return f
}

func (f *fixture) do(fn func()) { f.s.Do(fn) }

func (f *fixture) playTurn(p *match.Player) {
	p.IsTurn = true
	f.do(func() { f.orch.TurnStarted(f.s, p) })
	f.sched.Advance(2 * time.Second)
}

func newPlayer(id string, x, y int) *match.Player {
	return &match.Player{
		ID: id, Name: id, Team: match.TeamNone, IsConnected: true,
		Position: grid.Position{X: x, Y: y}, SpawnPosition: grid.Position{X: x, Y: y},
		Health: 10, MaxHealth: 10, AttackPower: 6, DefensePower: 4,
		Speed: 4, MaxSpeed: 4, ActionPoints: 1, MaxActionPoints: 1,
	}
}

func newBot(id string, x, y int) *match.Player {
	p := newPlayer(id, x, y)
	p.IsBot = true
	return p
}

func TestTurnStarted_IgnoresHumans(t *testing.T) {
	human := newPlayer("h", 0, 0)
	f := newFixture(t, 0, human)
	f.do(func() {
		f.orch.TurnStarted(f.s, human)
		assert.False(t, f.s.Scheduled(session.SlotBotDecision))
	})
}

func TestBotTurn_WaitsForHumanLikeDelay(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	f := newFixture(t, 1500, b, h)
	b.IsTurn = true
	f.do(func() { f.orch.TurnStarted(f.s, b) })

	f.sched.Advance(1499 * time.Millisecond)
	assert.Empty(t, f.actions.combats)
	f.sched.Advance(time.Millisecond)
	assert.Len(t, f.actions.combats, 1)
}

func TestBotTurn_DelayStaysBelowBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := newBot("b", 0, 0)
		f := newFixture(t, rapid.IntRange(0, 10_000).Draw(rt, "draw"), b)
		b.IsTurn = true
		f.do(func() { f.orch.BotTurn(f.s, b) })
		f.sched.Advance(config.DefaultRules().FakeHumanDelay - time.Millisecond)
		if f.actions.ended != 1 {
			rt.Fatalf("bot decided %d times before the delay bound", f.actions.ended)
		}
	})
}

func TestDecide_HuntsAndEngages(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	f := newFixture(t, 0, b, h)
	f.actions.allowCombat = true

	f.playTurn(b)
	assert.Equal(t, []grid.Position{{X: 4, Y: 0}}, f.actions.moves)
	assert.Equal(t, [][2]string{{"b", "h"}}, f.actions.combats)
	assert.Zero(t, f.actions.ended, "the fight takes over the turn")
}

func TestDecide_RefusedFightEndsTurn(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	f := newFixture(t, 0, b, h)

	f.playTurn(b)
	assert.Len(t, f.actions.combats, 1)
	assert.Equal(t, 1, f.actions.ended)
}

func TestDecide_NoActionPointsIdles(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	b.ActionPoints = 0
	f := newFixture(t, 0, b, h)

	f.playTurn(b)
	assert.Empty(t, f.actions.moves)
	assert.Empty(t, f.actions.combats)
	assert.Equal(t, 1, f.actions.ended)
}

func TestDecide_CautiousBotGrabsItemFirst(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	f := newFixture(t, 0, b, h)
	f.s.Game.PlaceItem(&match.Item{ID: "i1", Name: "sword"}, grid.Position{X: 2, Y: 1})

	f.playTurn(b)
	assert.Equal(t, []string{"sword"}, f.actions.pickups)
	assert.Equal(t, grid.Position{X: 2, Y: 1}, b.Position)
	assert.Empty(t, f.actions.combats)
	assert.Equal(t, 1, f.actions.ended)
}

func TestDecide_AggressiveBotHuntsFirst(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	b.IsAggressive = true
	f := newFixture(t, 0, b, h)
	f.s.Game.PlaceItem(&match.Item{ID: "i1", Name: "sword"}, grid.Position{X: 2, Y: 1})

	f.playTurn(b)
	assert.Empty(t, f.actions.pickups)
	assert.Len(t, f.actions.combats, 1)
}

func TestDecide_FlagCarrierHeadsHome(t *testing.T) {
	b := newBot("b", 6, 0)
	b.Team = match.RedSide
	b.SpawnPosition = grid.Position{X: 0, Y: 0}
	b.Items = []*match.Item{{ID: "f", Name: match.FlagItem}}
	h := newPlayer("h", 7, 2)
	h.Team = match.BlueSide
	f := newFixture(t, 0, b, h)

	f.playTurn(b)
	assert.Equal(t, []grid.Position{{X: 2, Y: 0}}, f.actions.moves)
	assert.Empty(t, f.actions.combats)
	assert.Equal(t, 1, f.actions.ended)
}

func TestDecide_TeamBotSeeksFlag(t *testing.T) {
	b := newBot("b", 0, 0)
	b.Team = match.RedSide
	mate := newPlayer("m", 0, 2)
	mate.Team = match.RedSide
	f := newFixture(t, 0, b, mate)
	f.s.Game.PlaceItem(&match.Item{ID: "f", Name: match.FlagItem}, grid.Position{X: 3, Y: 0})

	f.playTurn(b)
	assert.Equal(t, []string{match.FlagItem}, f.actions.pickups)
}

func TestDecide_StaleDecisionIsDropped(t *testing.T) {
	b, h := newBot("b", 0, 0), newPlayer("h", 6, 0)
	f := newFixture(t, 1000, b, h)
	b.IsTurn = true
	f.do(func() {
		f.orch.TurnStarted(f.s, b)
		b.IsTurn = false
	})
	f.sched.Advance(2 * time.Second)
	assert.Empty(t, f.actions.combats)
	assert.Zero(t, f.actions.ended)
}

func TestCombatAction(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *match.Player)
		want   string
	}{
		{"healthy attacks", func(p *match.Player) {}, ai.ActionAttack},
		{"hurt cautious escapes", func(p *match.Player) { p.Health = 4 }, ai.ActionEscape},
		{"hurt aggressive attacks", func(p *match.Player) { p.Health = 4; p.IsAggressive = true }, ai.ActionAttack},
		{"no escapes left attacks", func(p *match.Player) { p.Health = 4; p.EscapesAttempts = 2 }, ai.ActionAttack},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, h := newBot("b", 0, 0), newPlayer("h", 1, 0)
			tc.mutate(b)
			f := newFixture(t, 0, b, h)
			f.do(func() {
				f.s.Combat = &session.CombatState{First: "b", Second: "h", Current: "b", Active: true}
				assert.Equal(t, tc.want, f.orch.CombatAction(f.s, b))
			})
			assert.Nil(t, f.brain.Lookup("b"), "planning state is dropped afterwards")
		})
	}
}

func TestLoadPlanners_CustomDirs(t *testing.T) {
	mgr := scripting.NewManager(dice.NewLoggedRoller(fixedSrc{0}, zap.NewNop()), zap.NewNop())
	t.Cleanup(mgr.Close)

	_, err := bot.LoadPlanners(mgr, config.BotsConfig{ScriptDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = bot.LoadPlanners(mgr, config.BotsConfig{DomainDir: empty})
	assert.ErrorContains(t, err, "no domains")

	domains := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(domains, "solo.yaml"), []byte(`
domain:
  id: cautious
  tasks: [{id: turn}]
  methods: [{task: turn, id: idle, subtasks: [end_turn]}]
  operators: [{id: end_turn, action: end_turn}]
`), 0600))
	reg, err := bot.LoadPlanners(mgr, config.BotsConfig{DomainDir: domains})
	require.NoError(t, err)
	assert.Equal(t, []string{"cautious"}, reg.IDs())
}
