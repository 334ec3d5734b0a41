package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/items"
	"github.com/cory-johannsen/arena/internal/game/journal"
	"github.com/cory-johannsen/arena/internal/game/match"
)

// AttackResult holds the outcome of a single attack.
//
// Invariant: Damage == max(0, AttackValue-DefenseValue) capped by the
// target's health before the attack.
type AttackResult struct {
	Attacker     *match.Player
	Target       *match.Player
	AttackValue  int
	DefenseValue int
	Damage       int
}

// AttackOutcome is an AttackResult in the context of the fight it belongs to.
type AttackOutcome struct {
	AttackResult
	IsAttackerDebuffed bool
	IsTargetDebuffed   bool
	CombatFinished     bool
	// WinnerID and GameWon are set only when CombatFinished.
	WinnerID string
	GameWon  bool
}

// Engine is the combat resolution engine. It assumes the session lock is
// held and never schedules anything itself.
type Engine struct {
	rules   config.RulesConfig
	roller  *dice.Roller
	items   *items.Service
	journal *journal.Notifier
	logger  *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: every argument must be non-nil.
func NewEngine(rules config.RulesConfig, roller *dice.Roller, itemSvc *items.Service, notifier *journal.Notifier, logger *zap.Logger) *Engine {
	return &Engine{rules: rules, roller: roller, items: itemSvc, journal: notifier, logger: logger}
}

// ExecuteAttack rolls one attack of attacker against target:
//
//	attack  = base + 1d(attackPower)  + attackBuff  - (penalty if debuffed)
//	defense = base + 1d(defensePower) + defenseBuff - (penalty if debuffed)
//
// Postcondition: target health is reduced by max(0, attack-defense) and
// never drops below 0.
func (e *Engine) ExecuteAttack(attacker, target *match.Player, isAttackerDebuffed, isTargetDebuffed bool) AttackResult {
	attack := e.rules.BasePower + e.roller.Roll(dice.Die(attacker.AttackPower)).Total() + attacker.Buffs.AttackBuff
	if isAttackerDebuffed {
		attack -= e.rules.DebuffPenalty
	}
	defense := e.rules.BasePower + e.roller.Roll(dice.Die(target.DefensePower)).Total() + target.Buffs.DefenseBuff
	if isTargetDebuffed {
		defense -= e.rules.DebuffPenalty
	}
	return e.apply(attacker, target, attack, defense)
}

// ExecuteDebugAttack is the deterministic attack used in debug mode: attack
// is base + attackPower and defense is base + 1, with no roll and no buffs.
func (e *Engine) ExecuteDebugAttack(attacker, target *match.Player) AttackResult {
	return e.apply(attacker, target, e.rules.BasePower+attacker.AttackPower, e.rules.BasePower+1)
}

func (e *Engine) apply(attacker, target *match.Player, attack, defense int) AttackResult {
	dealt := target.Damage(max(0, attack-defense))
	return AttackResult{Attacker: attacker, Target: target, AttackValue: attack, DefenseValue: defense, Damage: dealt}
}

// IsDebuffed reports whether p fights at a penalty: standing on ice outside
// debug mode.
func (e *Engine) IsDebuffed(g *match.Game, p *match.Player) bool {
	if g.DebugMode || g.Grid == nil {
		return false
	}
	return g.Grid.IsZeroCost(p.Position)
}

// ProcessAttack resolves one attack between two players of g, applies the
// target's on-hit items, narrates it, and runs the end of the fight when the
// target falls.
//
// Postcondition: returns nil when either id is unknown.
func (e *Engine) ProcessAttack(g *match.Game, attackerID, targetID string) *AttackOutcome {
	attacker, target := g.Player(attackerID), g.Player(targetID)
	if attacker == nil || target == nil {
		return nil
	}
	out := &AttackOutcome{
		IsAttackerDebuffed: e.IsDebuffed(g, attacker),
		IsTargetDebuffed:   e.IsDebuffed(g, target),
	}
	if g.DebugMode {
		out.AttackResult = e.ExecuteDebugAttack(attacker, target)
	} else {
		out.AttackResult = e.ExecuteAttack(attacker, target, out.IsAttackerDebuffed, out.IsTargetDebuffed)
	}
	e.items.ApplyOnHit(target, attacker)
	e.journal.Attack(g.ID, attacker, target, out.AttackValue, out.DefenseValue, out.Damage)
	e.logger.Debug("attack resolved",
		zap.String("attacker", attacker.ID),
		zap.String("target", target.ID),
		zap.Int("attack", out.AttackValue),
		zap.Int("defense", out.DefenseValue),
		zap.Int("damage", out.Damage),
		zap.Int("target_health", target.Health),
	)
	if target.Health == 0 {
		out.CombatFinished = true
		out.WinnerID = attacker.ID
		out.GameWon = e.EndFight(g, attacker, target)
	}
	return out
}

// EndFight settles a fight won by winner: end-of-fight items trigger both
// ways, the loser drops everything and respawns, the winner heals and counts
// the win, and every combat buff is removed.
//
// Postcondition: returns true when the win gives a free-for-all player the
// game; winner.IsWinner is set in that case.
func (e *Engine) EndFight(g *match.Game, winner, loser *match.Player) bool {
	e.items.ApplyCombatEnd(winner, loser)
	e.items.ApplyCombatEnd(loser, winner)

	e.dropItems(g, loser)
	e.Respawn(g, loser)

	winner.Heal()
	winner.NbFightsWon++
	gameWon := false
	if winner.Team == match.TeamNone && winner.NbFightsWon >= e.rules.WinThreshold {
		winner.IsWinner = true
		gameWon = true
	}

	e.items.RemoveCombatBuffs(winner)
	e.items.RemoveCombatBuffs(loser)
	e.journal.CombatEnded(g.ID, winner, loser)
	return gameWon
}

// dropItems spreads the loser's inventory over the free walkable tiles
// nearest to where they fell, one item per tile.
func (e *Engine) dropItems(g *match.Game, loser *match.Player) {
	dropped := e.items.DropAll(loser)
	if len(dropped) == 0 || g.Grid == nil {
		return
	}
	claimed := make(map[grid.Position]bool, len(dropped))
	for _, it := range dropped {
		pos, ok := g.Grid.NearestFree(loser.Position, func(p grid.Position) bool {
			if claimed[p] {
				return true
			}
			if _, hasItem := g.Items[p]; hasItem {
				return true
			}
			occupant := g.PlayerAt(p)
			return occupant != nil && occupant.ID != loser.ID
		})
		if !ok {
			e.logger.Warn("no free tile for dropped item", zap.String("item", it.ID), zap.String("player", loser.ID))
			continue
		}
		claimed[pos] = true
		g.PlaceItem(it, pos)
	}
}

// Respawn returns p to their spawn, or to the nearest free tile when someone
// stands on it, with full health and no escape attempts used.
//
// Postcondition: p.Health == p.MaxHealth and p.EscapesAttempts == 0.
func (e *Engine) Respawn(g *match.Game, p *match.Player) {
	p.Health = p.MaxHealth
	p.EscapesAttempts = 0
	target := p.SpawnPosition
	if g.Grid != nil {
		if pos, ok := g.Grid.NearestFree(p.SpawnPosition, func(pos grid.Position) bool {
			occupant := g.PlayerAt(pos)
			return occupant != nil && occupant.ID != p.ID
		}); ok {
			target = pos
		}
	}
	p.Position = target
}

// TryToEscape spends one escape attempt of p. At the cap the attempt always
// fails without being counted.
//
// Postcondition: a success resets p.EscapesAttempts to 0.
func (e *Engine) TryToEscape(g *match.Game, p *match.Player) bool {
	if p.EscapesAttempts >= e.rules.MaxEscapeAttempts {
		e.journal.TooManyAttempts(g.ID, p)
		return false
	}
	p.EscapesAttempts++
	ok := e.roller.Percent(e.rules.EscapeChancePct)
	e.journal.EscapeAttempt(g.ID, p, ok)
	if ok {
		p.EscapesAttempts = 0
	}
	return ok
}

// ShouldEscape reports whether a defensive bot prefers fleeing to attacking.
// Aggressive bots never flee.
func ShouldEscape(p *match.Player, maxAttempts int) bool {
	return p.IsBot && !p.IsAggressive && p.Health < p.MaxHealth && p.EscapesAttempts < maxAttempts
}
