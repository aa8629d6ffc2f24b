// Package ai plays a full turn for the computer opponent using simple
// heuristics: lethal if available, otherwise spend mana then attack.
package ai

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// Actor is the engine surface the controller acts through. Every call is
// validated by the engine exactly like a human action.
type Actor interface {
	PlayCard(ctx context.Context, cardID, targetID string) error
	Attack(ctx context.Context, attackerID, targetID string) error
	Self() *state.Player
	Opponent() *state.Player
}

// Controller decides the AI's actions.
type Controller struct {
	logger  *zap.Logger
	catalog card.Catalog
}

// NewController creates a controller that reads card data from catalog.
func NewController(logger *zap.Logger, catalog card.Catalog) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{logger: logger, catalog: catalog}
}

// PlayTurn performs every action of one turn. Rejected actions are skipped;
// only invariant violations and context errors are returned.
func (c *Controller) PlayTurn(ctx context.Context, a Actor) error {
	if c.canLethal(a) {
		return c.executeLethal(ctx, a)
	}
	if err := c.playCards(ctx, a); err != nil {
		return err
	}
	return c.attack(ctx, a)
}

// hand returns the cards in hand ordered by cost, most expensive first.
// Equal costs keep hand order.
func (c *Controller) hand(p *state.Player) ([]card.Card, error) {
	zcs := p.Cards(state.ZoneHand)
	out := make([]card.Card, 0, len(zcs))
	for _, zc := range zcs {
		cd, err := c.catalog.Lookup(zc.CardID)
		if err != nil {
			return nil, rules.Invariant(rules.CodeInconsistentState, "card %s in hand of %s: %v", zc.CardID, p.ID, err)
		}
		out = append(out, cd)
	}
	slices.SortStableFunc(out, func(a, b card.Card) int { return b.Cost - a.Cost })
	return out, nil
}

// canLethal counts ready attackers (only when no Guard blocks the hero) and
// affordable burn against the enemy hero.
func (c *Controller) canLethal(a Actor) bool {
	self, opp := a.Self(), a.Opponent()

	total := 0
	if !opp.HasGuard() {
		for _, cr := range self.Battlefield {
			if cr.Ready() {
				total += cr.Attack
			}
		}
	}

	hand, err := c.hand(self)
	if err != nil {
		return false
	}
	for _, hc := range hand {
		if hc.IsSpell() && hc.Cost <= self.CurrentMana {
			total += burnDamage[hc.Name]
		}
	}
	return total >= opp.HeroHealth
}

func (c *Controller) executeLethal(ctx context.Context, a Actor) error {
	self, opp := a.Self(), a.Opponent()
	c.logger.Debug("ai going for lethal", zap.String("player_id", self.ID), zap.Int("enemy_health", opp.HeroHealth))

	hand, err := c.hand(self)
	if err != nil {
		return err
	}
	for _, hc := range hand {
		if opp.HeroHealth <= 0 {
			return nil
		}
		if !hc.IsSpell() || burnDamage[hc.Name] == 0 || hc.Cost > self.CurrentMana {
			continue
		}
		if err := c.try(a.PlayCard(ctx, hc.ID, rules.TargetEnemyHero), "play", hc.Name); err != nil {
			return err
		}
	}

	for _, cr := range slices.Clone(self.Battlefield) {
		if opp.HeroHealth <= 0 {
			return nil
		}
		if self.Creature(cr.ID) == nil || !cr.Ready() {
			continue
		}
		if err := c.try(a.Attack(ctx, cr.ID, rules.TargetEnemyHero), "attack", cr.Name); err != nil {
			return err
		}
	}
	return nil
}

// playCards plays the most expensive affordable card that fits, then starts
// over with the updated hand until nothing more can be played.
func (c *Controller) playCards(ctx context.Context, a Actor) error {
	self, opp := a.Self(), a.Opponent()

	for {
		hand, err := c.hand(self)
		if err != nil {
			return err
		}

		played := false
		for _, hc := range hand {
			if hc.Cost > self.CurrentMana {
				continue
			}
			if hc.IsCreature() && self.BoardFull() {
				continue
			}
			err := a.PlayCard(ctx, hc.ID, pickTarget(hc, self, opp))
			if err == nil {
				played = true
				break
			}
			if err := c.try(err, "play", hc.Name); err != nil {
				return err
			}
		}
		if !played || a.Self().HeroHealth <= 0 || opp.HeroHealth <= 0 {
			return nil
		}
	}
}

func (c *Controller) attack(ctx context.Context, a Actor) error {
	self, opp := a.Self(), a.Opponent()

	for _, cr := range slices.Clone(self.Battlefield) {
		if opp.HeroHealth <= 0 || self.HeroHealth <= 0 {
			return nil
		}
		if self.Creature(cr.ID) == nil || !cr.Ready() {
			continue
		}
		if err := c.try(a.Attack(ctx, cr.ID, pickAttack(cr, opp)), "attack", cr.Name); err != nil {
			return err
		}
	}
	return nil
}

// try swallows rejected actions and passes everything else through.
func (c *Controller) try(err error, action, name string) error {
	if err == nil {
		return nil
	}
	if rules.IsRejection(err) {
		c.logger.Debug("ai action rejected",
			zap.String("action", action),
			zap.String("card", name),
			zap.Error(err),
		)
		return nil
	}
	return err
}
