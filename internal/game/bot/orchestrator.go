// Package bot drives server-controlled players through the same entry points
// humans use, after human-like random delays.
package bot

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// Actions are the game entry points a bot may use. Every method assumes the
// session lock is held.
type Actions interface {
	MoveLocked(s *session.Session, playerID string, dest grid.Position) bool
	PickUpLocked(s *session.Session, playerID string) bool
	StartCombatLocked(s *session.Session, attackerID, targetID string) bool
	EndBotTurnLocked(s *session.Session)
}

// Orchestrator is the Bot Orchestrator.
type Orchestrator struct {
	rules    config.RulesConfig
	planners *ai.Registry
	brain    *Brain
	src      dice.Source
	actions  Actions
	logger   *zap.Logger
}

// New creates an Orchestrator.
//
// Precondition: every argument must be non-nil; brain must be the GetBot
// source of the scripting manager behind planners.
func New(rules config.RulesConfig, planners *ai.Registry, brain *Brain, src dice.Source, actions Actions, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{rules: rules, planners: planners, brain: brain, src: src, actions: actions, logger: logger}
}

// TurnStarted hands a bot's turn to BotTurn. Humans are ignored.
func (o *Orchestrator) TurnStarted(s *session.Session, p *match.Player) {
	if p.IsBot {
		o.BotTurn(s, p)
	}
}

// BotTurn schedules the bot's decision after a random delay in
// [0, fake_human_delay).
func (o *Orchestrator) BotTurn(s *session.Session, p *match.Player) {
	delay := time.Duration(0)
	if ms := o.rules.FakeHumanDelay.Milliseconds(); ms > 0 {
		delay = time.Duration(o.src.Intn(int(ms))) * time.Millisecond
	}
	id := p.ID
	s.Schedule(session.SlotBotDecision, delay, func() { o.decide(s, id) })
}

// decide plans the bot's board turn and runs it. A turn ends with a fight
// or with EndBotTurn.
func (o *Orchestrator) decide(s *session.Session, botID string) {
	p := s.Game.Player(botID)
	if p == nil || !p.IsTurn || s.Combat != nil {
		return
	}
	plan := o.plan(s, p, ai.TaskTurn, "")
	for _, step := range plan {
		switch step.Action {
		case ai.ActionMove:
			o.approach(s, p, step.Target.Position)
		case ai.ActionCollect:
			o.approach(s, p, step.Target.Position)
			if p.Position == step.Target.Position {
				o.actions.PickUpLocked(s, p.ID)
			}
		case ai.ActionEngage:
			if o.actions.StartCombatLocked(s, p.ID, step.Target.ID) {
				return
			}
		case ai.ActionEndTurn:
			o.actions.EndBotTurnLocked(s)
			return
		}
		if s.Destroyed() || !p.IsTurn {
			return
		}
	}
	o.actions.EndBotTurnLocked(s)
}

// approach walks p towards dest as far as its speed allows this turn.
func (o *Orchestrator) approach(s *session.Session, p *match.Player, dest grid.Position) {
	g := s.Game
	if g.Grid == nil || p.Position == dest {
		return
	}
	path, ok := g.Grid.Path(p.Position, dest, func(pos grid.Position) bool {
		other := g.PlayerAt(pos)
		return other != nil && other.ID != p.ID
	})
	if !ok {
		return
	}
	if step := g.Reachable(p, path); step != p.Position {
		o.actions.MoveLocked(s, p.ID, step)
	}
}

// CombatAction picks the bot's move for its combat turn: "escape" or
// "attack".
func (o *Orchestrator) CombatAction(s *session.Session, p *match.Player) string {
	opponent := ""
	if s.Combat != nil {
		opponent = s.Combat.Other(p.ID)
	}
	for _, step := range o.plan(s, p, ai.TaskFight, opponent) {
		switch step.Action {
		case ai.ActionEscape, ai.ActionAttack:
			return step.Action
		}
	}
	if combat.ShouldEscape(p, o.rules.MaxEscapeAttempts) {
		return ai.ActionEscape
	}
	return ai.ActionAttack
}

func (o *Orchestrator) plan(s *session.Session, p *match.Player, root, opponent string) []ai.PlannedAction {
	planner, ok := o.planners.PlannerFor(domainFor(p))
	if !ok {
		return nil
	}
	ws := ai.BuildWorldState(s.Game, p, opponent)
	o.brain.remember(o.info(p, ws))
	defer o.brain.forget(p.ID)

	plan, err := planner.Plan(root, ws)
	if err != nil {
		s.Logger().Warn("bot planning failed", observability.Player(p.ID), zap.Error(err))
		return nil
	}
	ops := make([]string, len(plan))
	for i, step := range plan {
		ops[i] = step.Operator
	}
	s.Logger().Debug("bot plan",
		observability.Player(p.ID),
		zap.String("domain", planner.Domain().ID),
		zap.String("task", root),
		zap.Strings("operators", ops),
	)
	return plan
}

func (o *Orchestrator) info(p *match.Player, ws *ai.WorldState) scripting.BotInfo {
	floor := 0
	for _, it := range ws.Items {
		if !it.IsFlag {
			floor++
		}
	}
	return scripting.BotInfo{
		UID:               p.ID,
		Name:              p.Name,
		Team:              ws.Bot.Team,
		Health:            p.Health,
		MaxHealth:         p.MaxHealth,
		Speed:             p.Speed,
		ActionPoints:      p.ActionPoints,
		EscapesAttempts:   p.EscapesAttempts,
		MaxEscapeAttempts: o.rules.MaxEscapeAttempts,
		Items:             len(p.Items),
		MaxItems:          o.rules.MaxItems,
		Enemies:           len(ws.EnemiesOf(p.ID)),
		FloorItems:        floor,
		FlagOnFloor:       ws.Flag() != nil,
		CarriesFlag:       p.CarriesFlag(),
		OnSpawn:           p.OnSpawn(),
		InCombat:          p.IsInCombat,
		Aggressive:        p.IsAggressive,
	}
}

func domainFor(p *match.Player) string {
	if p.IsAggressive {
		return DomainAggressive
	}
	return DomainCautious
}
