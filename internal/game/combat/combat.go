// Package combat validates and resolves creature attacks.
package combat

import (
	"fmt"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/effects"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// Declaration is a validated attack.
type Declaration struct {
	Attacker *state.Creature
	// Defender is nil when the enemy hero is attacked.
	Defender *state.Creature
}

// Validate checks that attackerID on side may attack targetID on opp. Guard
// is recomputed from the defending board on every call.
func Validate(side, opp *state.Player, attackerID, targetID string) (Declaration, error) {
	attacker := side.Creature(attackerID)
	if attacker == nil {
		return Declaration{}, rules.Input(rules.CodeAttackerNotFound, "attacker %s not found", attackerID)
	}
	if !attacker.CanAttack {
		return Declaration{}, rules.Action(rules.CodeCannotAttack, "%s cannot attack this turn", attacker.Name)
	}
	if attacker.AttackedThisTurn {
		return Declaration{}, rules.Action(rules.CodeAlreadyAttacked, "%s already attacked this turn", attacker.Name)
	}
	if attacker.Frozen() {
		return Declaration{}, rules.Action(rules.CodeFrozen, "%s is frozen", attacker.Name)
	}

	guarded := opp.HasGuard()
	switch targetID {
	case "":
		return Declaration{}, rules.Input(rules.CodeInvalidTarget, "attack requires a target")
	case rules.TargetEnemyHero:
		if guarded {
			return Declaration{}, rules.Action(rules.CodeGuardRequired, "must attack a Guard creature first")
		}
		return Declaration{Attacker: attacker}, nil
	case rules.TargetFriendlyHero:
		return Declaration{}, rules.Action(rules.CodeInvalidTarget, "cannot attack your own hero")
	}

	defender := opp.Creature(targetID)
	if defender == nil {
		if side.Creature(targetID) != nil {
			return Declaration{}, rules.Action(rules.CodeInvalidTarget, "cannot attack your own creature")
		}
		return Declaration{}, rules.Input(rules.CodeTargetNotFound, "target %s not found", targetID)
	}
	if guarded && !defender.Keywords.Has(card.KeywordGuard) {
		return Declaration{}, rules.Action(rules.CodeGuardRequired, "must attack a Guard creature first")
	}
	return Declaration{Attacker: attacker, Defender: defender}, nil
}

// Resolve validates and carries out an attack by side against opp.
func Resolve(s *effects.Scope, side, opp *state.Player, attackerID, targetID string) error {
	d, err := Validate(side, opp, attackerID, targetID)
	if err != nil {
		return err
	}
	if d.Defender == nil {
		attackHero(s, side, opp, d.Attacker)
		return nil
	}
	return fight(s, side, opp, d.Attacker, d.Defender)
}

func attackHero(s *effects.Scope, side, opp *state.Player, attacker *state.Creature) {
	damage := attacker.Attack
	opp.HeroHealth -= damage
	attacker.AttackedThisTurn = true

	s.Log.Add(
		rules.Attack(attacker.ID, rules.TargetEnemyHero, fmt.Sprintf("%s attacks enemy hero for %d", attacker.Name, damage)),
		rules.Damage(attacker.ID, opp.ID, damage, fmt.Sprintf("%s deals %d to hero", attacker.Name, damage)),
	)
	if attacker.Keywords.Has(card.KeywordLifesteal) {
		s.HealHero(attacker.Name+" (Lifesteal)", side, damage)
	}
}

// fight deals damage both ways before anyone dies. Each side checks its own
// Ward independently.
func fight(s *effects.Scope, side, opp *state.Player, attacker, defender *state.Creature) error {
	s.Log.Add(rules.Attack(attacker.ID, defender.ID, fmt.Sprintf("%s attacks %s", attacker.Name, defender.Name)))

	toDefender := s.DamageCreature(attacker.Name, defender, attacker.Attack)
	toAttacker := s.DamageCreature(defender.Name, attacker, defender.Attack)
	attacker.AttackedThisTurn = true

	if toDefender > 0 && attacker.Keywords.Has(card.KeywordLifesteal) {
		s.HealHero(attacker.Name+" (Lifesteal)", side, toDefender)
	}
	if toAttacker > 0 && defender.Keywords.Has(card.KeywordLifesteal) {
		s.HealHero(defender.Name+" (Lifesteal)", opp, toAttacker)
	}

	return s.KillDead([]*state.Creature{defender, attacker})
}
