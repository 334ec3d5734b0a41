package items

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// Service applies item effects. Items missing from the catalog have no
// effect. All methods assume the session lock is held.
type Service struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewService returns a Service backed by catalog.
//
// Precondition: catalog and logger must be non-nil.
func NewService(catalog *Catalog, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Catalog returns the backing catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

func (s *Service) defs(p *match.Player) []*Def {
	out := make([]*Def, 0, len(p.Items))
	for _, it := range p.Items {
		if d, ok := s.catalog.Def(it.Name); ok {
			out = append(out, d)
		}
	}
	return out
}

// ApplyPassive adds the passive bonus of it to p. Called when p picks it up.
func (s *Service) ApplyPassive(p *match.Player, it *match.Item) {
	d, ok := s.catalog.Def(it.Name)
	if !ok || d.Passive == nil {
		return
	}
	p.Buffs.AttackBuff += d.Passive.Attack
	p.Buffs.DefenseBuff += d.Passive.Defense
}

// RemovePassive reverses ApplyPassive.
func (s *Service) RemovePassive(p *match.Player, it *match.Item) {
	d, ok := s.catalog.Def(it.Name)
	if !ok || d.Passive == nil {
		return
	}
	p.Buffs.AttackBuff -= d.Passive.Attack
	p.Buffs.DefenseBuff -= d.Passive.Defense
}

// ApplyCombatEffects activates the per-fight buffs of every item p carries.
//
// Postcondition: every applied item is listed once in p.ActiveBuffs.
func (s *Service) ApplyCombatEffects(p *match.Player) {
	for _, d := range s.defs(p) {
		if d.Combat == nil || slices.Contains(p.ActiveBuffs, d.Name) {
			continue
		}
		p.Buffs.AttackBuff += d.Combat.Attack
		p.Buffs.DefenseBuff += d.Combat.Defense
		p.ActiveBuffs = append(p.ActiveBuffs, d.Name)
	}
}

// RemoveCombatBuffs reverses every buff listed in p.ActiveBuffs.
//
// Postcondition: p.ActiveBuffs is empty.
func (s *Service) RemoveCombatBuffs(p *match.Player) {
	for _, name := range p.ActiveBuffs {
		d, ok := s.catalog.Def(name)
		if !ok || d.Combat == nil {
			continue
		}
		p.Buffs.AttackBuff -= d.Combat.Attack
		p.Buffs.DefenseBuff -= d.Combat.Defense
	}
	p.ActiveBuffs = nil
}

// ApplyOnHit triggers the reactions of target's items after target was hit
// by attacker. Thorns never drop the attacker below 1 health, and healing
// never revives a target at 0 health.
func (s *Service) ApplyOnHit(target, attacker *match.Player) {
	for _, d := range s.defs(target) {
		if d.OnHit == nil {
			continue
		}
		if d.OnHit.Heal > 0 && target.Health > 0 {
			target.Restore(d.OnHit.Heal)
		}
		if d.OnHit.Thorns > 0 && attacker.Health > 1 {
			attacker.Health = max(1, attacker.Health-d.OnHit.Thorns)
		}
	}
}

// ApplyCombatEnd triggers owner's end-of-fight items against opponent.
func (s *Service) ApplyCombatEnd(owner, opponent *match.Player) {
	for _, d := range s.defs(owner) {
		if d.CombatEnd == nil {
			continue
		}
		owner.Restore(d.CombatEnd.Heal)
		owner.Speed += d.CombatEnd.Speed
		s.logger.Debug("combat end effect",
			zap.String("item", d.Name),
			zap.String("owner", owner.ID),
			zap.String("opponent", opponent.ID),
		)
	}
}

// DropAll strips p's inventory, reversing passive bonuses, and returns the
// removed items for the caller to place on the floor.
func (s *Service) DropAll(p *match.Player) []*match.Item {
	dropped := p.Items
	for _, it := range dropped {
		s.RemovePassive(p, it)
	}
	p.Items = nil
	return dropped
}
