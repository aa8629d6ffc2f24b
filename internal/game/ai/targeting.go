package ai

import (
	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// burnDamage is the hero damage a spell deals when aimed at the enemy hero.
var burnDamage = map[string]int{
	"Ember Bolt":  2,
	"Final Spark": 7,
	"Dark Touch":  1,
	"Siphon Life": 3,
	"Combust":     2,
}

// pickTarget chooses a target for a card the AI is about to play. An empty
// result plays the card without a target.
func pickTarget(c card.Card, self, opp *state.Player) string {
	enemies := opp.Battlefield
	friends := self.Battlefield

	switch c.Name {
	case "Ember Bolt", "Dark Touch":
		limit := 2
		if c.Name == "Dark Touch" {
			limit = 1
		}
		if weakest := minBy(enemies, func(x *state.Creature) int { return x.Health }); weakest != nil && weakest.Health <= limit {
			return weakest.ID
		}
		return rules.TargetEnemyHero
	case "Flame Javelin", "Ice Shard", "Vine Whip", "Combust", "Arc Sparkbot":
		if len(enemies) > 0 {
			return enemies[0].ID
		}
	case "Glacial Binding", "Wither":
		if strongest := maxBy(enemies, func(x *state.Creature) int { return x.Attack }); strongest != nil {
			return strongest.ID
		}
	case "Shatter":
		for _, e := range enemies {
			if e.Frozen() {
				return e.ID
			}
		}
	case "Frost Shield", "Growth":
		if len(friends) > 0 {
			return friends[0].ID
		}
	case "Grim Bargain":
		if weakest := minBy(friends, func(x *state.Creature) int { return x.Attack + x.Health }); weakest != nil {
			return weakest.ID
		}
	case "Void Snare":
		var best *state.Creature
		for _, e := range enemies {
			if e.Cost <= 5 && (best == nil || e.Cost > best.Cost) {
				best = e
			}
		}
		if best != nil {
			return best.ID
		}
	case "Bone Acolyte":
		for _, e := range enemies {
			if e.Health == 1 {
				return e.ID
			}
		}
		return rules.TargetEnemyHero
	}
	return ""
}

// pickAttack chooses what attacker should hit. Guards come first, then a
// trade the attacker survives, then a trade up in cost, then the hero.
func pickAttack(attacker *state.Creature, opp *state.Player) string {
	enemies := opp.Battlefield

	if opp.HasGuard() {
		var guard *state.Creature
		for _, e := range enemies {
			if e.Keywords.Has(card.KeywordGuard) && (guard == nil || e.Health < guard.Health) {
				guard = e
			}
		}
		return guard.ID
	}

	var value *state.Creature
	for _, e := range enemies {
		if e.Health <= attacker.Attack && e.Attack < attacker.Health &&
			(value == nil || e.Attack+e.Health > value.Attack+value.Health) {
			value = e
		}
	}
	if value != nil {
		return value.ID
	}

	var up *state.Creature
	for _, e := range enemies {
		if e.Health <= attacker.Attack && e.Cost > attacker.Cost && (up == nil || e.Cost > up.Cost) {
			up = e
		}
	}
	if up != nil {
		return up.ID
	}
	return rules.TargetEnemyHero
}

// minBy returns the first creature with the smallest key.
func minBy(cs []*state.Creature, key func(*state.Creature) int) *state.Creature {
	var best *state.Creature
	for _, c := range cs {
		if best == nil || key(c) < key(best) {
			best = c
		}
	}
	return best
}

// maxBy returns the first creature with the largest key.
func maxBy(cs []*state.Creature, key func(*state.Creature) int) *state.Creature {
	var best *state.Creature
	for _, c := range cs {
		if best == nil || key(c) > key(best) {
			best = c
		}
	}
	return best
}
