package effects

import (
	"fmt"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// Scope is the working set of a single action: the game being mutated, the
// catalog used to name cards and find tokens, and the event log.
type Scope struct {
	Game    *state.Game
	Catalog card.Catalog
	Log     *rules.Log
}

// NewScope creates a scope with a fresh log.
func NewScope(g *state.Game, catalog card.Catalog) *Scope {
	return &Scope{Game: g, Catalog: catalog, Log: &rules.Log{}}
}

func (s *Scope) cardName(cardID string) string {
	c, err := s.Catalog.Lookup(cardID)
	if err != nil {
		return cardID
	}
	return c.Name
}

// DamageCreature applies one instance of damage. Ward absorbs the whole
// instance and is removed. Returns the damage actually dealt. Death is the
// caller's concern.
func (s *Scope) DamageCreature(source string, c *state.Creature, amount int) int {
	if c.Keywords.Has(card.KeywordWard) {
		c.Keywords = c.Keywords.Without(card.KeywordWard)
		s.Log.Add(rules.Buff(c.ID, 0, source+": Ward absorbed damage"))
		return 0
	}
	c.Health -= amount
	s.Log.Add(rules.Damage(source, c.ID, amount, fmt.Sprintf("%s deals %d damage to %s", source, amount, c.Name)))
	return amount
}

// DamageHero reduces a hero's health unconditionally.
func (s *Scope) DamageHero(source string, p *state.Player, amount int) {
	p.HeroHealth -= amount
	s.Log.Add(rules.Damage(source, p.ID, amount, fmt.Sprintf("%s deals %d damage to hero", source, amount)))
}

// HealHero restores health up to the cap. Nothing is logged when the hero is
// already at full health.
func (s *Scope) HealHero(source string, p *state.Player, amount int) int {
	before := p.HeroHealth
	p.HeroHealth = min(rules.MaxHeroHealth, p.HeroHealth+amount)
	healed := p.HeroHealth - before
	if healed > 0 {
		s.Log.Add(rules.Heal(source, p.ID, healed, fmt.Sprintf("%s heals hero for %d", source, healed)))
	}
	return healed
}

// Freeze marks c FROZEN.
func (s *Scope) Freeze(source string, c *state.Creature) {
	c.Freeze()
	s.Log.Add(rules.Freeze(c.ID, fmt.Sprintf("%s freezes %s", source, c.Name)))
}

// Buff changes attack and health. Attack never drops below zero. Health gains
// raise MaxHealth too; losses lower it but never below one.
func (s *Scope) Buff(source string, c *state.Creature, attack, health int) {
	c.Attack = max(0, c.Attack+attack)
	c.Health += health
	if health > 0 {
		c.MaxHealth += health
	} else if health < 0 {
		c.MaxHealth = max(1, c.MaxHealth+health)
	}
	s.Log.Add(rules.Buff(c.ID, attack, fmt.Sprintf("%s: %+d/%+d to %s", source, attack, health, c.Name)))
}

// GrantKeyword adds k to c. Charge also readies a creature that has not
// attacked yet.
func (s *Scope) GrantKeyword(source string, c *state.Creature, k card.Keyword) {
	c.Keywords = c.Keywords.With(k)
	if k == card.KeywordCharge && !c.AttackedThisTurn {
		c.CanAttack = true
	}
	s.Log.Add(rules.Buff(c.ID, 0, fmt.Sprintf("%s: %s gains %s", source, c.Name, k)))
}

// Summon puts a token creature onto owner's battlefield. A full board makes
// it a no-op; a missing token template is a data error.
func (s *Scope) Summon(owner *state.Player, tokenName string) (*state.Creature, error) {
	if owner.BoardFull() {
		return nil, nil
	}
	tmpl, err := s.Catalog.Token(tokenName)
	if err != nil {
		return nil, rules.Invariant(rules.CodeMissingToken, "token template %q: %v", tokenName, err)
	}
	c := state.NewCreature(owner.ID, tmpl)
	c.CanAttack = false
	owner.AddCreature(c)

	msg := fmt.Sprintf("Summoned %s (%d/%d)", tmpl.Name, tmpl.Attack, tmpl.Health)
	if tmpl.Keywords.Has(card.KeywordGuard) {
		msg = fmt.Sprintf("Summoned %s (%d/%d Guard)", tmpl.Name, tmpl.Attack, tmpl.Health)
	}
	s.Log.Add(rules.Summon(c.ID, msg))
	return c, nil
}

// Kill removes c from whichever battlefield holds it, puts its card on that
// owner's discard pile and fires its on-death ability.
func (s *Scope) Kill(c *state.Creature) error {
	owner, live := s.Game.OwnerOf(c.ID)
	if owner == nil {
		// Already gone, e.g. destroyed earlier in the same resolution.
		return nil
	}
	owner.RemoveCreature(live.ID)
	owner.Put(live.CardID, state.ZoneDiscard)
	s.Log.Add(rules.Death(live.ID, live.Name+" died"))
	return s.OnDeath(owner, live)
}

// KillIfDead kills c when its health reached zero.
func (s *Scope) KillIfDead(c *state.Creature) error {
	if c.Dead() {
		return s.Kill(c)
	}
	return nil
}

// KillDead kills every listed creature at or below zero health, in order.
func (s *Scope) KillDead(cs []*state.Creature) error {
	for _, c := range cs {
		if err := s.KillIfDead(c); err != nil {
			return err
		}
	}
	return nil
}

// Draw draws one card for p and logs the outcome.
func (s *Scope) Draw(p *state.Player) state.DrawResult {
	res := p.Draw()
	switch res.Outcome {
	case state.DrawFatigue:
		s.Log.Add(rules.Fatigue(p.ID, res.Fatigue, fmt.Sprintf("Fatigue deals %d damage", res.Fatigue)))
	case state.DrawBurned:
		s.Log.Add(rules.CardDrawn(p.ID, "Card burned (hand full): "+s.cardName(res.CardID)))
	case state.DrawToHand:
		s.Log.Add(rules.CardDrawn(p.ID, "Drew "+s.cardName(res.CardID)))
	}
	return res
}
