package card

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a catalog lookup misses.
var ErrNotFound = errors.New("card not found")

// Catalog is the read-only card lookup shared by every game.
type Catalog interface {
	Lookup(id string) (Card, error)
	LookupByName(name string) (Card, error)
	Token(name string) (Card, error)
	List(filter Filter) []Card
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Type          Type
	Faction       Faction
	School        School
	IncludeTokens bool
}

func (f Filter) matches(c Card) bool {
	if c.Token && !f.IncludeTokens {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Faction != "" && c.Faction != f.Faction {
		return false
	}
	if f.School != "" && c.School != f.School {
		return false
	}
	return true
}

// MemoryCatalog is an immutable in-memory Catalog.
type MemoryCatalog struct {
	cards  []Card
	byID   map[string]Card
	byName map[string]Card
	tokens map[string]Card
}

// NewMemoryCatalog indexes cards, assigning ids where missing.
func NewMemoryCatalog(cards []Card) (*MemoryCatalog, error) {
	c := &MemoryCatalog{
		cards:  make([]Card, 0, len(cards)),
		byID:   make(map[string]Card, len(cards)),
		byName: make(map[string]Card, len(cards)),
		tokens: make(map[string]Card),
	}

	for _, cd := range cards {
		if cd.Name == "" {
			return nil, fmt.Errorf("card without name")
		}
		if cd.Type != TypeCreature && cd.Type != TypeSpell {
			return nil, fmt.Errorf("card %q: unknown type %q", cd.Name, cd.Type)
		}
		if cd.Token && cd.Type != TypeCreature {
			return nil, fmt.Errorf("card %q: tokens must be creatures", cd.Name)
		}
		if cd.ID == "" {
			cd.ID = IDFor(cd.Name, cd.Token)
		}
		cd.Keywords = cd.Keywords.Clone()
		if _, dup := c.byID[cd.ID]; dup {
			return nil, fmt.Errorf("card %q: duplicate id %s", cd.Name, cd.ID)
		}

		if cd.Token {
			if _, dup := c.tokens[cd.Name]; dup {
				return nil, fmt.Errorf("duplicate token %q", cd.Name)
			}
			c.tokens[cd.Name] = cd
		} else {
			if _, dup := c.byName[cd.Name]; dup {
				return nil, fmt.Errorf("duplicate card %q", cd.Name)
			}
			c.byName[cd.Name] = cd
		}
		c.byID[cd.ID] = cd
		c.cards = append(c.cards, cd)
	}

	sort.SliceStable(c.cards, func(i, j int) bool {
		if c.cards[i].Cost != c.cards[j].Cost {
			return c.cards[i].Cost < c.cards[j].Cost
		}
		return c.cards[i].Name < c.cards[j].Name
	})

	return c, nil
}

// Lookup returns the card with the given id.
func (c *MemoryCatalog) Lookup(id string) (Card, error) {
	cd, ok := c.byID[id]
	if !ok {
		return Card{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return cd, nil
}

// LookupByName returns the deck-buildable card with the given name.
func (c *MemoryCatalog) LookupByName(name string) (Card, error) {
	cd, ok := c.byName[name]
	if !ok {
		return Card{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return cd, nil
}

// Token returns the token template with the given name.
func (c *MemoryCatalog) Token(name string) (Card, error) {
	cd, ok := c.tokens[name]
	if !ok {
		return Card{}, fmt.Errorf("%w: token %q", ErrNotFound, name)
	}
	return cd, nil
}

// List returns matching cards ordered by cost, then name.
func (c *MemoryCatalog) List(filter Filter) []Card {
	out := make([]Card, 0, len(c.cards))
	for _, cd := range c.cards {
		if filter.matches(cd) {
			out = append(out, cd)
		}
	}
	return out
}

// Len returns the number of cards, tokens included.
func (c *MemoryCatalog) Len() int { return len(c.cards) }
