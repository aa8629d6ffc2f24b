package state

import (
	"sort"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
)

// Zone is a non-battlefield location of a card reference.
type Zone string

const (
	ZoneDeck    Zone = "DECK"
	ZoneHand    Zone = "HAND"
	ZoneDiscard Zone = "DISCARD"
)

// ZoneCard places one copy of a card in a zone.
type ZoneCard struct {
	CardID   string `json:"cardId"`
	Zone     Zone   `json:"zone"`
	Position int    `json:"position"`
}

// Cards returns the player's cards in zone ordered by position.
func (p *Player) Cards(zone Zone) []ZoneCard {
	out := make([]ZoneCard, 0, len(p.Zones))
	for _, zc := range p.Zones {
		if zc.Zone == zone {
			out = append(out, zc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Count returns the number of cards in zone.
func (p *Player) Count(zone Zone) int {
	n := 0
	for _, zc := range p.Zones {
		if zc.Zone == zone {
			n++
		}
	}
	return n
}

// HandSize returns the number of cards in hand.
func (p *Player) HandSize() int { return p.Count(ZoneHand) }

// DeckSize returns the number of cards left in the deck.
func (p *Player) DeckSize() int { return p.Count(ZoneDeck) }

// HandFull reports whether a draw would burn.
func (p *Player) HandFull() bool { return p.HandSize() >= rules.MaxHandSize }

func (p *Player) nextPosition(zone Zone) int {
	next := 0
	for _, zc := range p.Zones {
		if zc.Zone == zone && zc.Position >= next {
			next = zc.Position + 1
		}
	}
	return next
}

// Put appends a card reference to zone at the next free position.
func (p *Player) Put(cardID string, zone Zone) ZoneCard {
	zc := ZoneCard{CardID: cardID, Zone: zone, Position: p.nextPosition(zone)}
	p.Zones = append(p.Zones, zc)
	return zc
}

// Take removes the lowest-positioned copy of cardID from zone.
func (p *Player) Take(cardID string, zone Zone) (ZoneCard, bool) {
	idx := -1
	for i, zc := range p.Zones {
		if zc.Zone != zone || zc.CardID != cardID {
			continue
		}
		if idx < 0 || zc.Position < p.Zones[idx].Position {
			idx = i
		}
	}
	if idx < 0 {
		return ZoneCard{}, false
	}
	return p.removeAt(idx), true
}

// Has reports whether a copy of cardID sits in zone.
func (p *Player) Has(cardID string, zone Zone) bool {
	for _, zc := range p.Zones {
		if zc.Zone == zone && zc.CardID == cardID {
			return true
		}
	}
	return false
}

// Move relocates the lowest-positioned copy of cardID from one zone to the
// end of another.
func (p *Player) Move(cardID string, from, to Zone) bool {
	if _, ok := p.Take(cardID, from); !ok {
		return false
	}
	p.Put(cardID, to)
	return true
}

func (p *Player) removeAt(idx int) ZoneCard {
	zc := p.Zones[idx]
	p.Zones = append(p.Zones[:idx], p.Zones[idx+1:]...)
	return zc
}

// DrawOutcome is what happened to a draw attempt.
type DrawOutcome int

const (
	// DrawFatigue means the deck was empty and the hero took fatigue damage.
	DrawFatigue DrawOutcome = iota + 1
	// DrawBurned means the hand was full and the card left the game.
	DrawBurned
	// DrawToHand means the card was added to the hand.
	DrawToHand
)

// DrawResult reports a single draw.
type DrawResult struct {
	Outcome DrawOutcome
	CardID  string
	Fatigue int
}

// Draw takes the lowest-positioned deck card. An empty deck increments the
// fatigue counter and damages the hero by its new value. A full hand burns
// the card.
func (p *Player) Draw() DrawResult {
	deck := p.Cards(ZoneDeck)
	if len(deck) == 0 {
		p.FatigueCounter++
		p.HeroHealth -= p.FatigueCounter
		return DrawResult{Outcome: DrawFatigue, Fatigue: p.FatigueCounter}
	}

	top := deck[0]
	p.Take(top.CardID, ZoneDeck)
	if p.HandFull() {
		return DrawResult{Outcome: DrawBurned, CardID: top.CardID}
	}
	p.Put(top.CardID, ZoneHand)
	return DrawResult{Outcome: DrawToHand, CardID: top.CardID}
}

// Creature returns the battlefield creature with the given instance id.
func (p *Player) Creature(id string) *Creature {
	for _, c := range p.Battlefield {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Controls reports whether c is on this player's battlefield.
func (p *Player) Controls(c *Creature) bool {
	return c != nil && p.Creature(c.ID) == c
}

// AddCreature places c at the next battlefield position.
func (p *Player) AddCreature(c *Creature) {
	c.Position = len(p.Battlefield)
	p.Battlefield = append(p.Battlefield, c)
}

// RemoveCreature detaches a creature and closes the gap in positions.
func (p *Player) RemoveCreature(id string) (*Creature, bool) {
	for i, c := range p.Battlefield {
		if c.ID != id {
			continue
		}
		p.Battlefield = append(p.Battlefield[:i], p.Battlefield[i+1:]...)
		for j := i; j < len(p.Battlefield); j++ {
			p.Battlefield[j].Position = j
		}
		return c, true
	}
	return nil, false
}

// BoardFull reports whether no more creatures fit.
func (p *Player) BoardFull() bool {
	return len(p.Battlefield) >= rules.MaxBattlefield
}

// HasGuard reports whether any creature on the battlefield has Guard.
func (p *Player) HasGuard() bool {
	for _, c := range p.Battlefield {
		if c.Keywords.Has(card.KeywordGuard) {
			return true
		}
	}
	return false
}
