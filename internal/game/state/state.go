package state

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
)

// CreatureStatus is a transient condition on a creature.
type CreatureStatus string

// StatusFrozen prevents attacking until it clears at the owner's next turn start.
const StatusFrozen CreatureStatus = "FROZEN"

// Creature is a live battlefield instance of a creature card.
type Creature struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"ownerId"`
	CardID           string           `json:"cardId"`
	Name             string           `json:"name"`
	Cost             int              `json:"cost"`
	Attack           int              `json:"attack"`
	Health           int              `json:"health"`
	MaxHealth        int              `json:"maxHealth"`
	CanAttack        bool             `json:"canAttack"`
	AttackedThisTurn bool             `json:"attackedThisTurn"`
	Keywords         card.Keywords    `json:"keywords"`
	Statuses         []CreatureStatus `json:"statuses"`
	Position         int              `json:"position"`
}

// NewCreature instantiates a card for ownerID. It can attack immediately only
// with Charge.
func NewCreature(ownerID string, c card.Card) *Creature {
	return &Creature{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CardID:    c.ID,
		Name:      c.Name,
		Cost:      c.Cost,
		Attack:    c.Attack,
		Health:    c.Health,
		MaxHealth: c.Health,
		CanAttack: c.Keywords.Has(card.KeywordCharge),
		Keywords:  c.Keywords.Clone(),
		Statuses:  []CreatureStatus{},
	}
}

// Frozen reports whether the creature carries the FROZEN status.
func (c *Creature) Frozen() bool {
	return slices.Contains(c.Statuses, StatusFrozen)
}

// Freeze adds FROZEN. Freezing twice is a no-op.
func (c *Creature) Freeze() {
	if !c.Frozen() {
		c.Statuses = append(c.Statuses, StatusFrozen)
	}
}

// Thaw clears FROZEN.
func (c *Creature) Thaw() {
	c.Statuses = slices.DeleteFunc(c.Statuses, func(s CreatureStatus) bool { return s == StatusFrozen })
}

// Ready reports whether the creature may declare an attack now.
func (c *Creature) Ready() bool {
	return c.CanAttack && !c.AttackedThisTurn && !c.Frozen()
}

// Dead reports whether the creature must leave the battlefield.
func (c *Creature) Dead() bool {
	return c.Health <= 0
}

// Player is one side of a game.
type Player struct {
	ID             string      `json:"id"`
	DeckID         string      `json:"deckId"`
	HeroHealth     int         `json:"heroHealth"`
	MaxMana        int         `json:"maxMana"`
	CurrentMana    int         `json:"currentMana"`
	FatigueCounter int         `json:"fatigueCounter"`
	Zones          []ZoneCard  `json:"zones"`
	Battlefield    []*Creature `json:"battlefield"`
}

// NewPlayer creates a player at full health with an empty board.
func NewPlayer(id, deckID string) *Player {
	return &Player{
		ID:          id,
		DeckID:      deckID,
		HeroHealth:  rules.StartingHeroHealth,
		Zones:       []ZoneCard{},
		Battlefield: []*Creature{},
	}
}

// IsAI reports whether the seat is played by the computer.
func (p *Player) IsAI() bool { return p.ID == rules.AIPlayerID }

// Game is the authoritative state of one match.
type Game struct {
	ID              string       `json:"id"`
	Player1         *Player      `json:"player1"`
	Player2         *Player      `json:"player2"`
	CurrentPlayerID string       `json:"currentPlayerId"`
	Status          rules.Status `json:"status"`
	Phase           rules.Phase  `json:"phase"`
	WinnerID        string       `json:"winnerId,omitempty"`
	TurnNumber      int          `json:"turnNumber"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	Seed            uint64       `json:"seed"`
	RandCalls       uint64       `json:"randCalls"`

	rng *rand.Rand
}

// New creates a game in SETUP with the given seats and random seed.
func New(id string, p1, p2 *Player, seed uint64, now time.Time) *Game {
	return &Game{
		ID:         id,
		Player1:    p1,
		Player2:    p2,
		Status:     rules.StatusSetup,
		Phase:      rules.PhaseStart,
		TurnNumber: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
		Seed:       seed,
	}
}

// Player returns the seat with the given id.
func (g *Game) Player(id string) (*Player, bool) {
	switch id {
	case g.Player1.ID:
		return g.Player1, true
	case g.Player2.ID:
		return g.Player2, true
	}
	return nil, false
}

// Opponent returns the other seat.
func (g *Game) Opponent(id string) (*Player, bool) {
	switch id {
	case g.Player1.ID:
		return g.Player2, true
	case g.Player2.ID:
		return g.Player1, true
	}
	return nil, false
}

// Current returns the active seat.
func (g *Game) Current() *Player {
	p, _ := g.Player(g.CurrentPlayerID)
	return p
}

// OwnerOf finds which battlefield currently holds the creature instance.
func (g *Game) OwnerOf(creatureID string) (*Player, *Creature) {
	for _, p := range []*Player{g.Player1, g.Player2} {
		if c := p.Creature(creatureID); c != nil {
			return p, c
		}
	}
	return nil, nil
}

// Finished reports whether the game has a result.
func (g *Game) Finished() bool {
	return g.Status == rules.StatusFinished
}

const streamSalt = 0x9e3779b97f4a7c15

type countingSource struct {
	src   *rand.PCG
	calls *uint64
}

func (s countingSource) Uint64() uint64 {
	*s.calls++
	return s.src.Uint64()
}

// Rand returns the game's deterministic random stream. A game reloaded from
// storage resumes where the previous action left off.
func (g *Game) Rand() *rand.Rand {
	if g.rng == nil {
		pcg := rand.NewPCG(g.Seed, g.Seed^streamSalt)
		for i := uint64(0); i < g.RandCalls; i++ {
			pcg.Uint64()
		}
		g.rng = rand.New(countingSource{src: pcg, calls: &g.RandCalls})
	}
	return g.rng
}

// Shuffle permutes ids in place with Fisher-Yates over the game's stream.
func (g *Game) Shuffle(ids []string) {
	r := g.Rand()
	for i := len(ids) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// Clone returns a deep copy that shares nothing with g.
func (g *Game) Clone() *Game {
	cp := *g
	cp.rng = nil
	cp.Player1 = g.Player1.clone()
	cp.Player2 = g.Player2.clone()
	return &cp
}

func (p *Player) clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Zones = slices.Clone(p.Zones)
	cp.Battlefield = make([]*Creature, len(p.Battlefield))
	for i, c := range p.Battlefield {
		cc := *c
		cc.Keywords = c.Keywords.Clone()
		cc.Statuses = slices.Clone(c.Statuses)
		cp.Battlefield[i] = &cc
	}
	return &cp
}
