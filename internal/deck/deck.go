package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/spellfaire/spellfaire-engine/internal/card"
)

// Deck composition rules.
const (
	Size        = 24
	Creatures   = 14
	Spells      = 10
	MaxCopies   = 2
	autoSpells  = 5
	autoCopies  = 2
	autoMinimum = 7
)

// ErrNotFound is returned by a Source that does not know a deck id.
var ErrNotFound = errors.New("deck not found")

// Entry is one card of a deck list with its copy count.
type Entry struct {
	CardID   string `json:"cardId"`
	Quantity int    `json:"quantity"`
}

// Deck is an ordered card list owned by a player.
type Deck struct {
	ID      string       `json:"id"`
	OwnerID string       `json:"ownerId"`
	Name    string       `json:"name"`
	Faction card.Faction `json:"faction"`
	School  card.School  `json:"school"`
	Entries []Entry      `json:"entries"`
}

// CardIDs expands the deck into one card id per copy, in list order.
func (d Deck) CardIDs() []string {
	out := make([]string, 0, Size)
	for _, e := range d.Entries {
		for i := 0; i < e.Quantity; i++ {
			out = append(out, e.CardID)
		}
	}
	return out
}

// Size returns the total number of copies.
func (d Deck) Size() int {
	n := 0
	for _, e := range d.Entries {
		n += e.Quantity
	}
	return n
}

// ValidationError describes why a deck list is not playable.
type ValidationError struct {
	DeckID string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("deck %s: %s", e.DeckID, e.Reason)
}

// Validate checks the composition of d against the catalog: exactly 24
// cards, 14 creatures of the deck's faction, 10 spells of its school and at
// most two copies of any card. Tokens are never deck-buildable.
func Validate(d Deck, catalog card.Catalog) error {
	invalid := func(format string, args ...any) error {
		return &ValidationError{DeckID: d.ID, Reason: fmt.Sprintf(format, args...)}
	}

	copies := make(map[string]int, len(d.Entries))
	total, creatures, spells := 0, 0, 0
	for _, e := range d.Entries {
		if e.Quantity <= 0 {
			return invalid("card %s has non-positive quantity %d", e.CardID, e.Quantity)
		}
		c, err := catalog.Lookup(e.CardID)
		if err != nil {
			return fmt.Errorf("deck %s: %w", d.ID, err)
		}
		if c.Token {
			return invalid("token %s is not deck-buildable", c.Name)
		}

		copies[c.ID] += e.Quantity
		if copies[c.ID] > MaxCopies {
			return invalid("%s has %d copies, max %d", c.Name, copies[c.ID], MaxCopies)
		}

		switch c.Type {
		case card.TypeCreature:
			if c.Faction != d.Faction {
				return invalid("creature %s does not belong to faction %s", c.Name, d.Faction)
			}
			creatures += e.Quantity
		case card.TypeSpell:
			if c.School != d.School {
				return invalid("spell %s does not belong to school %s", c.Name, d.School)
			}
			spells += e.Quantity
		}
		total += e.Quantity
	}

	if total != Size {
		return invalid("deck must contain exactly %d cards, found %d", Size, total)
	}
	if creatures != Creatures {
		return invalid("deck must contain exactly %d creatures, found %d", Creatures, creatures)
	}
	if spells != Spells {
		return invalid("deck must contain exactly %d spells, found %d", Spells, spells)
	}
	return nil
}

// AutoBuild assembles a legal deck: two copies of each of the faction's seven
// creatures and two copies of each of the school's five cheapest spells.
func AutoBuild(catalog card.Catalog, ownerID string, faction card.Faction, school card.School) (Deck, error) {
	creatures := catalog.List(card.Filter{Type: card.TypeCreature, Faction: faction})
	spells := catalog.List(card.Filter{Type: card.TypeSpell, School: school})
	if len(creatures) < autoMinimum {
		return Deck{}, fmt.Errorf("not enough creatures for faction %s: %d", faction, len(creatures))
	}
	if len(spells) < autoSpells {
		return Deck{}, fmt.Errorf("not enough spells for school %s: %d", school, len(spells))
	}

	d := Deck{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    fmt.Sprintf("Auto %s / %s", faction, school),
		Faction: faction,
		School:  school,
	}
	for _, c := range creatures[:autoMinimum] {
		d.Entries = append(d.Entries, Entry{CardID: c.ID, Quantity: autoCopies})
	}
	// List is ordered by cost then name, so the head is the cheapest five.
	for _, c := range spells[:autoSpells] {
		d.Entries = append(d.Entries, Entry{CardID: c.ID, Quantity: autoCopies})
	}
	return d, nil
}

// Source resolves deck ids to deck lists.
type Source interface {
	Deck(ctx context.Context, id string) (Deck, error)
}

// MemorySource is a mutex-guarded in-memory Source.
type MemorySource struct {
	mu    sync.RWMutex
	decks map[string]Deck
}

// NewMemorySource creates a source seeded with decks.
func NewMemorySource(decks ...Deck) *MemorySource {
	s := &MemorySource{decks: make(map[string]Deck, len(decks))}
	for _, d := range decks {
		s.decks[d.ID] = d
	}
	return s
}

// Deck returns the deck with the given id.
func (s *MemorySource) Deck(ctx context.Context, id string) (Deck, error) {
	if err := ctx.Err(); err != nil {
		return Deck{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decks[id]
	if !ok {
		return Deck{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Put stores or replaces a deck.
func (s *MemorySource) Put(d Deck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[d.ID] = d
}
