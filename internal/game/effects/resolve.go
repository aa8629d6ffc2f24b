package effects

import (
	"slices"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// Target is a validated ability target. At most one field is set.
type Target struct {
	Hero     *state.Player
	Creature *state.Creature
}

// Plan is an ability whose target has been checked and which is ready to
// resolve. Building a plan never mutates the game.
type Plan struct {
	Name       string
	Ability    Ability
	Controller *state.Player
	Target     Target
}

// PlanSpell validates a spell cast by caster. Every spell must have an
// entry; a spell without one is a catalog/engine mismatch.
func (s *Scope) PlanSpell(caster *state.Player, name, targetID string) (Plan, error) {
	a, ok := Spells[name]
	if !ok {
		return Plan{}, rules.Invariant(rules.CodeUnknownEffect, "no resolution for spell %q", name)
	}
	t, err := s.target(name, a, caster, targetID)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Name: name, Ability: a, Controller: caster, Target: t}, nil
}

// PlanOnPlay validates the battlecry target of a creature about to enter the
// battlefield. Creatures without a battlecry ignore targetID.
func (s *Scope) PlanOnPlay(controller *state.Player, name, targetID string) (Plan, error) {
	a, ok := OnPlay[name]
	if !ok {
		return Plan{Name: name, Controller: controller}, nil
	}
	t, err := s.target(name, a, controller, targetID)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Name: name, Ability: a, Controller: controller, Target: t}, nil
}

// Resolve applies a plan. self is the creature the ability belongs to, nil
// for spells.
func (s *Scope) Resolve(p Plan, self *state.Creature) error {
	t := p.Target
	if p.Ability.Target == TargetOtherFriendly && t.Creature == nil {
		t.Creature = firstOther(p.Controller, self)
	}
	return s.apply(p.Name, p.Ability, p.Controller, self, t)
}

// OnDeath fires the death trigger of c, which has already left owner's
// battlefield.
func (s *Scope) OnDeath(owner *state.Player, c *state.Creature) error {
	a, ok := OnDeath[c.Name]
	if !ok {
		return nil
	}
	return s.apply(c.Name, a, owner, c, Target{})
}

// StartOfTurn fires start-of-turn triggers for p's creatures. The board is
// snapshotted first so triggers that change it do not affect iteration.
func (s *Scope) StartOfTurn(p *state.Player) error {
	for _, c := range slices.Clone(p.Battlefield) {
		a, ok := StartOfTurn[c.Name]
		if !ok {
			continue
		}
		if err := s.apply(c.Name, a, p, c, Target{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scope) target(name string, a Ability, controller *state.Player, targetID string) (Target, error) {
	if a.Target == TargetNone {
		return Target{}, nil
	}
	opp, _ := s.Game.Opponent(controller.ID)

	switch targetID {
	case "":
		if a.NeedsTarget() {
			return Target{}, rules.Input(rules.CodeInvalidTarget, "%s requires a target", name)
		}
		return Target{}, nil
	case rules.TargetEnemyHero, rules.TargetFriendlyHero:
		switch a.Target {
		case TargetAny:
			if targetID == rules.TargetEnemyHero {
				return Target{Hero: opp}, nil
			}
			return Target{Hero: controller}, nil
		case TargetCreatureOrNothing:
			return Target{}, nil
		}
		return Target{}, rules.Action(rules.CodeInvalidTarget, "%s cannot target a hero", name)
	}

	owner, c := s.Game.OwnerOf(targetID)
	if c == nil {
		return Target{}, rules.Input(rules.CodeTargetNotFound, "target %s is not on the battlefield", targetID)
	}

	switch a.Target {
	case TargetFriendlyCreature, TargetOtherFriendly:
		if owner != controller {
			return Target{}, rules.Action(rules.CodeInvalidTarget, "%s must target a friendly creature", name)
		}
	case TargetEnemyCreature:
		if owner != opp {
			return Target{}, rules.Action(rules.CodeInvalidTarget, "%s must target an enemy creature", name)
		}
	}
	if a.RequireFrozen && !c.Frozen() {
		return Target{}, rules.Action(rules.CodeInvalidTarget, "%s must target a frozen creature", name)
	}
	if a.MaxTargetCost > 0 && c.Cost > a.MaxTargetCost {
		return Target{}, rules.Action(rules.CodeInvalidTarget, "%s cannot target %s (cost %d)", name, c.Name, c.Cost)
	}
	return Target{Creature: c}, nil
}

func firstOther(p *state.Player, self *state.Creature) *state.Creature {
	for _, c := range p.Battlefield {
		if self == nil || c.ID != self.ID {
			return c
		}
	}
	return nil
}

func (s *Scope) apply(name string, a Ability, controller *state.Player, self *state.Creature, t Target) error {
	opp, _ := s.Game.Opponent(controller.ID)

	for _, e := range a.Effects {
		if !s.holds(e.When, controller, self, t) {
			continue
		}
		heroes, creatures, err := s.pick(e.On, controller, opp, self, t)
		if err != nil {
			return err
		}

		switch e.Op {
		case OpDamage:
			for _, h := range heroes {
				s.DamageHero(name, h, e.Amount)
			}
			for _, c := range creatures {
				s.DamageCreature(name, c, e.Amount)
			}
			if err := s.KillDead(creatures); err != nil {
				return err
			}
		case OpHeal:
			for _, h := range heroes {
				s.HealHero(name, h, e.Amount)
			}
		case OpFreeze:
			for _, c := range creatures {
				s.Freeze(name, c)
			}
		case OpBuff:
			for _, c := range creatures {
				s.Buff(name, c, e.Attack, e.Health)
			}
			if err := s.KillDead(creatures); err != nil {
				return err
			}
		case OpGrantKeyword:
			for _, c := range creatures {
				s.GrantKeyword(name, c, e.Keyword)
			}
		case OpSummon:
			for _, h := range heroes {
				if _, err := s.Summon(h, e.Token); err != nil {
					return err
				}
			}
		case OpDestroy:
			for _, c := range creatures {
				if err := s.Kill(c); err != nil {
					return err
				}
				if e.Announce {
					s.Log.Add(rules.SpellResolved(c.CardID, name+" destroyed "+c.Name))
				}
			}
		case OpDraw:
			for _, h := range heroes {
				for range e.Amount {
					s.Draw(h)
				}
			}
		case OpReturnFromDiscard:
			for _, h := range heroes {
				s.returnFromDiscard(name, h, e.MaxCost)
			}
		default:
			return rules.Invariant(rules.CodeUnknownEffect, "%s: unhandled effect %s", name, e.Op)
		}
	}
	return nil
}

func (s *Scope) holds(cond Condition, controller *state.Player, self *state.Creature, t Target) bool {
	switch cond {
	case IfSurvived:
		if t.Creature == nil {
			return false
		}
		_, live := s.Game.OwnerOf(t.Creature.ID)
		return live != nil
	case IfFriendlyGuard:
		return slices.ContainsFunc(controller.Battlefield, func(c *state.Creature) bool {
			return !sameCreature(c, self) && c.Keywords.Has(card.KeywordGuard)
		})
	case IfOtherFriendly:
		return slices.ContainsFunc(controller.Battlefield, func(c *state.Creature) bool {
			return !sameCreature(c, self)
		})
	}
	return true
}

func sameCreature(a, b *state.Creature) bool {
	return a != nil && b != nil && a.ID == b.ID
}

// pick returns the heroes and live creatures a selector resolves to. Slices
// are copies, so killing a creature does not disturb the caller's loop.
func (s *Scope) pick(on Selector, controller, opp *state.Player, self *state.Creature, t Target) ([]*state.Player, []*state.Creature, error) {
	switch on {
	case OnTarget:
		if t.Hero != nil {
			return []*state.Player{t.Hero}, nil, nil
		}
		if t.Creature != nil {
			if _, live := s.Game.OwnerOf(t.Creature.ID); live != nil {
				return nil, []*state.Creature{live}, nil
			}
		}
		return nil, nil, nil
	case OnEnemyHero:
		return []*state.Player{opp}, nil, nil
	case OnFriendlyHero:
		return []*state.Player{controller}, nil, nil
	case OnSelf:
		if self == nil {
			return nil, nil, nil
		}
		if _, live := s.Game.OwnerOf(self.ID); live != nil {
			return nil, []*state.Creature{live}, nil
		}
		return nil, nil, nil
	case OnEnemyCreatures:
		return nil, slices.Clone(opp.Battlefield), nil
	case OnAllCreatures:
		return nil, slices.Concat(controller.Battlefield, opp.Battlefield), nil
	case OnOtherFriendlyCreatures:
		return nil, slices.DeleteFunc(slices.Clone(controller.Battlefield), func(c *state.Creature) bool {
			return sameCreature(c, self)
		}), nil
	case OnRandomEnemyCreature:
		return nil, s.randomOf(opp.Battlefield), nil
	case OnRandomFriendlyCreature:
		return nil, s.randomOf(controller.Battlefield), nil
	}
	return nil, nil, rules.Invariant(rules.CodeUnknownEffect, "unhandled selector %d", on)
}

func (s *Scope) randomOf(board []*state.Creature) []*state.Creature {
	if len(board) == 0 {
		return nil
	}
	return []*state.Creature{board[s.Game.Rand().IntN(len(board))]}
}

// returnFromDiscard moves a random non-token creature card of at most
// maxCost from p's discard pile to hand. Nothing happens with a full hand.
func (s *Scope) returnFromDiscard(source string, p *state.Player, maxCost int) {
	if p.HandFull() {
		return
	}
	var candidates []state.ZoneCard
	for _, zc := range p.Cards(state.ZoneDiscard) {
		c, err := s.Catalog.Lookup(zc.CardID)
		if err != nil || !c.IsCreature() || c.Token || c.Cost > maxCost {
			continue
		}
		candidates = append(candidates, zc)
	}
	if len(candidates) == 0 {
		return
	}

	chosen := candidates[s.Game.Rand().IntN(len(candidates))]
	if !p.Move(chosen.CardID, state.ZoneDiscard, state.ZoneHand) {
		return
	}
	s.Log.Add(rules.CardDrawn(p.ID, source+" returned "+s.cardName(chosen.CardID)+" to hand"))
}
