package card

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Type distinguishes creatures from spells.
type Type string

const (
	TypeCreature Type = "CREATURE"
	TypeSpell    Type = "SPELL"
)

// Faction groups creatures. A deck draws its creatures from exactly one faction.
type Faction string

const (
	FactionKingdom    Faction = "KINGDOM"
	FactionWildclan   Faction = "WILDCLAN"
	FactionNecropolis Faction = "NECROPOLIS"
	FactionIronbound  Faction = "IRONBOUND"
)

// Factions lists every faction in declaration order.
var Factions = []Faction{FactionKingdom, FactionWildclan, FactionNecropolis, FactionIronbound}

// School groups spells. A deck draws its spells from exactly one school.
type School string

const (
	SchoolFire   School = "FIRE"
	SchoolFrost  School = "FROST"
	SchoolNature School = "NATURE"
	SchoolShadow School = "SHADOW"
)

// Schools lists every magic school in declaration order.
var Schools = []School{SchoolFire, SchoolFrost, SchoolNature, SchoolShadow}

// ParseFaction converts a case-insensitive faction name.
func ParseFaction(s string) (Faction, error) {
	f := Faction(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(Factions, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown faction %q", s)
}

// ParseSchool converts a case-insensitive school name.
func ParseSchool(s string) (School, error) {
	sc := School(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(Schools, sc) {
		return sc, nil
	}
	return "", fmt.Errorf("unknown school %q", s)
}

// Keyword is a creature ability recognised by combat and targeting rules.
type Keyword string

const (
	KeywordGuard     Keyword = "GUARD"
	KeywordCharge    Keyword = "CHARGE"
	KeywordLifesteal Keyword = "LIFESTEAL"
	KeywordWard      Keyword = "WARD"
)

// Keywords is a small ordered set of keywords.
type Keywords []Keyword

// Has reports whether k is present.
func (ks Keywords) Has(k Keyword) bool {
	return slices.Contains(ks, k)
}

// With returns the set with k added. The receiver is not modified.
func (ks Keywords) With(k Keyword) Keywords {
	if ks.Has(k) {
		return ks
	}
	out := make(Keywords, 0, len(ks)+1)
	out = append(out, ks...)
	return append(out, k)
}

// Without returns the set with k removed. The receiver is not modified.
func (ks Keywords) Without(k Keyword) Keywords {
	if !ks.Has(k) {
		return ks
	}
	out := make(Keywords, 0, len(ks))
	for _, existing := range ks {
		if existing != k {
			out = append(out, existing)
		}
	}
	return out
}

// Clone returns an independent copy.
func (ks Keywords) Clone() Keywords {
	if ks == nil {
		return Keywords{}
	}
	return slices.Clone(ks)
}

// Card is an immutable catalog definition.
type Card struct {
	ID       string   `json:"id" yaml:"-"`
	Name     string   `json:"name" yaml:"name"`
	Type     Type     `json:"type" yaml:"type"`
	Cost     int      `json:"cost" yaml:"cost"`
	Attack   int      `json:"attack,omitempty" yaml:"attack"`
	Health   int      `json:"health,omitempty" yaml:"health"`
	Faction  Faction  `json:"faction,omitempty" yaml:"faction"`
	School   School   `json:"school,omitempty" yaml:"school"`
	Keywords Keywords `json:"keywords,omitempty" yaml:"keywords"`
	Text     string   `json:"text" yaml:"text"`
	Token    bool     `json:"token,omitempty" yaml:"token"`
}

// IsCreature reports whether the card is played to the battlefield.
func (c Card) IsCreature() bool { return c.Type == TypeCreature }

// IsSpell reports whether the card resolves and goes to the discard pile.
func (c Card) IsSpell() bool { return c.Type == TypeSpell }

// namespace for deterministic card ids.
var idNamespace = uuid.MustParse("6f1c5e0a-3b8d-4d4e-9a57-5f2e9c3b7d10")

// IDFor derives the stable id of a card. Tokens live in their own id space so a
// token template never collides with a deck-buildable card of the same name.
func IDFor(name string, token bool) string {
	key := "card:" + name
	if token {
		key = "token:" + name
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}
