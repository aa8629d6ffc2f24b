package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/deck"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
	"github.com/spellfaire/spellfaire-engine/internal/repository"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	t       *testing.T
	ctx     context.Context
	engine  *Engine
	repo    *repository.MemoryGameRepository
	catalog *card.MemoryCatalog
	decks   *deck.MemorySource
	seed    uint64
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		repo:    repository.NewMemoryGameRepository(),
		catalog: card.MustEmbeddedCatalog(),
		decks:   deck.NewMemorySource(),
	}
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithSeedSource(func() uint64 { h.seed++; return h.seed }),
	}
	h.engine = NewEngine(zaptest.NewLogger(t), h.repo, h.catalog, h.decks, append(base, opts...)...)
	return h
}

func (h *harness) card(name string) card.Card {
	h.t.Helper()
	c, err := h.catalog.LookupByName(name)
	require.NoError(h.t, err)
	return c
}

// table builds an in-progress game between alice and bob on turn 1, alice to
// act in MAIN with 10 mana, both decks holding a few Thicket Boars.
func (h *harness) table(p2 string) *state.Game {
	h.t.Helper()
	g := state.New("g-test", state.NewPlayer("alice", "d1"), state.NewPlayer(p2, "d2"), 7, testNow)
	g.Status = rules.StatusInProgress
	g.Phase = rules.PhaseMain
	g.TurnNumber = 1
	g.CurrentPlayerID = "alice"
	boar := h.card("Thicket Boar").ID
	for _, p := range []*state.Player{g.Player1, g.Player2} {
		p.MaxMana, p.CurrentMana = 10, 10
		for i := 0; i < 5; i++ {
			p.Put(boar, state.ZoneDeck)
		}
	}
	return g
}

func (h *harness) give(p *state.Player, names ...string) {
	for _, n := range names {
		p.Put(h.card(n).ID, state.ZoneHand)
	}
}

func (h *harness) place(p *state.Player, name string) *state.Creature {
	c := state.NewCreature(p.ID, h.card(name))
	c.CanAttack = true
	p.AddCreature(c)
	return c
}

func (h *harness) save(g *state.Game) {
	h.t.Helper()
	require.NoError(h.t, h.repo.Save(h.ctx, g))
}

func (h *harness) load(id string) *state.Game {
	h.t.Helper()
	g, err := h.engine.Get(h.ctx, id)
	require.NoError(h.t, err)
	return g
}

func eventsOf(events []rules.Event, typ rules.EventType) []rules.Event {
	var out []rules.Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// createAIGame creates AI games until one starts with the wanted seat.
func (h *harness) createAIGame(humanFirst bool) *ActionResult {
	h.t.Helper()
	for i := 0; i < 64; i++ {
		res, err := h.engine.CreateAIGame(h.ctx, "alice", card.FactionKingdom, card.SchoolFire)
		require.NoError(h.t, err)
		if (res.Game.TurnNumber == 1) == humanFirst {
			return res
		}
	}
	h.t.Fatalf("no seed produced humanFirst=%v", humanFirst)
	return nil
}

func TestCreateAIGameHumanFirst(t *testing.T) {
	h := newHarness(t)
	res := h.createAIGame(true)
	g := res.Game

	assert.Equal(t, rules.StatusInProgress, g.Status)
	assert.Equal(t, rules.PhaseMain, g.Phase)
	assert.Equal(t, "alice", g.CurrentPlayerID)
	assert.Equal(t, rules.AIPlayerID, g.Player2.ID)

	// dealt 3 and 4, then alice drew for her first turn
	assert.Equal(t, rules.FirstPlayerHand+1, g.Player1.HandSize())
	assert.Equal(t, deck.Size-rules.FirstPlayerHand-1, g.Player1.DeckSize())
	assert.Equal(t, rules.SecondPlayerHand, g.Player2.HandSize())
	assert.Equal(t, deck.Size-rules.SecondPlayerHand, g.Player2.DeckSize())

	assert.Equal(t, 1, g.Player1.MaxMana)
	assert.Equal(t, 0, g.Player2.MaxMana)

	require.Len(t, res.Events, 3)
	assert.Equal(t, rules.EventTurnStart, res.Events[0].Type)
	assert.Equal(t, "Turn 1 for alice", res.Events[0].Message)
	assert.Equal(t, rules.EventManaGain, res.Events[1].Type)
	assert.Equal(t, "Mana: 1/1", res.Events[1].Message)
	assert.Equal(t, rules.EventCardDrawn, res.Events[2].Type)

	stored := h.load(g.ID)
	assert.Equal(t, g.Player1.Zones, stored.Player1.Zones)
}

func TestCreateAIGameAIFirstHandsBackOnTurnTwo(t *testing.T) {
	h := newHarness(t)
	g := h.createAIGame(false).Game

	assert.Equal(t, 2, g.TurnNumber)
	assert.Equal(t, "alice", g.CurrentPlayerID)
	assert.Equal(t, rules.PhaseMain, g.Phase)
	assert.Equal(t, 1, g.Player1.MaxMana)
	assert.Equal(t, 1, g.Player2.MaxMana)
	assert.Equal(t, rules.SecondPlayerHand+1, g.Player1.HandSize())
	assert.Equal(t, deck.Size-rules.FirstPlayerHand-1, g.Player2.DeckSize())
}

func TestCreateAIGamePicksDifferentFactionAndSchool(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 8; i++ {
		res, err := h.engine.CreateAIGame(h.ctx, "alice", card.FactionWildclan, card.SchoolShadow)
		require.NoError(t, err)
		g := res.Game
		ai := g.Player2
		ids := append(ai.Cards(state.ZoneDeck), ai.Cards(state.ZoneHand)...)
		ids = append(ids, ai.Cards(state.ZoneDiscard)...)
		for _, zc := range ids {
			c, err := h.catalog.Lookup(zc.CardID)
			require.NoError(t, err)
			if c.IsCreature() {
				assert.NotEqual(t, card.FactionWildclan, c.Faction)
			} else {
				assert.NotEqual(t, card.SchoolShadow, c.School)
			}
		}
	}
}

func TestCreateAIGameRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreateAIGame(h.ctx, rules.AIPlayerID, card.FactionKingdom, card.SchoolFire)
	assert.ErrorIs(t, err, rules.ErrIllegalInput)

	_, err = h.engine.CreateAIGame(h.ctx, "alice", card.Faction("PIRATES"), card.SchoolFire)
	assert.ErrorIs(t, err, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeInvalidDeck})
}

func TestCreateGameChecksDecks(t *testing.T) {
	h := newHarness(t)
	aliceDeck, err := deck.AutoBuild(h.catalog, "alice", card.FactionIronbound, card.SchoolFrost)
	require.NoError(t, err)
	bobDeck, err := deck.AutoBuild(h.catalog, "bob", card.FactionNecropolis, card.SchoolNature)
	require.NoError(t, err)
	broken := aliceDeck
	broken.ID = "broken"
	broken.Entries = broken.Entries[1:]
	h.decks.Put(aliceDeck)
	h.decks.Put(bobDeck)
	h.decks.Put(broken)

	cases := []struct {
		name   string
		p1, d1 string
		p2, d2 string
		want   *rules.Error
	}{
		{"unknown deck", "alice", "nope", "bob", bobDeck.ID, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeDeckNotFound}},
		{"not owned", "alice", bobDeck.ID, "bob", aliceDeck.ID, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeDeckNotOwned}},
		{"invalid composition", "alice", "broken", "bob", bobDeck.ID, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeInvalidDeck}},
		{"missing opponent deck", "alice", aliceDeck.ID, "bob", "", &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeBadRequest}},
		{"self play", "alice", aliceDeck.ID, "alice", aliceDeck.ID, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeBadRequest}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.engine.CreateGame(h.ctx, tc.p1, tc.d1, tc.p2, tc.d2)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("player versus player", func(t *testing.T) {
		res, err := h.engine.CreateGame(h.ctx, "alice", aliceDeck.ID, "bob", bobDeck.ID)
		require.NoError(t, err)
		g := res.Game
		assert.Equal(t, 1, g.TurnNumber)
		assert.Equal(t, aliceDeck.ID, g.Player1.DeckID)
		assert.Equal(t, bobDeck.ID, g.Player2.DeckID)
		assert.Equal(t, 2*deck.Size-rules.FirstPlayerHand-rules.SecondPlayerHand-1,
			g.Player1.DeckSize()+g.Player2.DeckSize())
	})

	t.Run("empty opponent seats the AI", func(t *testing.T) {
		res, err := h.engine.CreateGame(h.ctx, "alice", aliceDeck.ID, "", "")
		require.NoError(t, err)
		assert.Equal(t, rules.AIPlayerID, res.Game.Player2.ID)
		assert.NotEmpty(t, res.Game.Player2.DeckID)
	})
}

func TestEndTurnAgainstAIReturnsControl(t *testing.T) {
	h := newHarness(t)
	g := h.createAIGame(true).Game

	res, err := h.engine.EndTurn(h.ctx, g.ID, "alice")
	require.NoError(t, err)
	got := res.Game

	assert.Equal(t, 3, got.TurnNumber)
	assert.Equal(t, "alice", got.CurrentPlayerID)
	assert.Equal(t, rules.PhaseMain, got.Phase)
	assert.Equal(t, 2, got.Player1.MaxMana)
	assert.Equal(t, 2, got.Player1.CurrentMana)
	assert.Equal(t, 1, got.Player2.MaxMana)

	starts := eventsOf(res.Events, rules.EventTurnStart)
	require.Len(t, starts, 2)
	assert.Equal(t, "Turn 2 for AI", starts[0].Message)
	assert.Equal(t, "Turn 3 for alice", starts[1].Message)
}

func TestEndTurnBetweenHumans(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	frozen := h.place(g.Player2, "Thicket Boar")
	frozen.Freeze()
	ready := h.place(g.Player2, "Razor Cub")
	ready.CanAttack = false
	ready.AttackedThisTurn = true
	h.save(g)

	res, err := h.engine.EndTurn(h.ctx, g.ID, "alice")
	require.NoError(t, err)
	bob := res.Game.Player2

	assert.Equal(t, "bob", res.Game.CurrentPlayerID)
	assert.Equal(t, 2, res.Game.TurnNumber)
	assert.Equal(t, 10, bob.MaxMana)

	thawed := bob.Creature(frozen.ID)
	assert.False(t, thawed.Frozen())
	assert.False(t, thawed.CanAttack)

	readied := bob.Creature(ready.ID)
	assert.True(t, readied.CanAttack)
	assert.False(t, readied.AttackedThisTurn)
}

func TestFatigueIsCumulative(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player1.Zones = nil
	g.Player2.Zones = nil
	h.save(g)

	var damage []int
	for i := 0; i < 6; i++ {
		actor := h.load(g.ID).CurrentPlayerID
		res, err := h.engine.EndTurn(h.ctx, g.ID, actor)
		require.NoError(t, err)
		for _, e := range eventsOf(res.Events, rules.EventFatigue) {
			if e.SourceID == "bob" {
				damage = append(damage, e.Value)
			}
		}
	}

	// bob drew on turns 2, 4 and 6
	assert.Equal(t, []int{1, 2, 3}, damage)
	got := h.load(g.ID)
	assert.Equal(t, rules.StartingHeroHealth-6, got.Player2.HeroHealth)
	assert.Equal(t, 3, got.Player2.FatigueCounter)
	assert.Equal(t, rules.StartingHeroHealth-6, got.Player1.HeroHealth)
}

func TestFatigueCanEndTheGame(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player2.Zones = nil
	g.Player2.HeroHealth = 1
	h.save(g)

	res, err := h.engine.EndTurn(h.ctx, g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, rules.StatusFinished, res.Game.Status)
	assert.Equal(t, "alice", res.Game.WinnerID)

	over := eventsOf(res.Events, rules.EventGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, "Player 2 hero defeated!", over[0].Message)
}

func TestDrawIntoFullHandBurns(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	for i := 0; i < rules.MaxHandSize; i++ {
		h.give(g.Player2, "Mend")
	}
	h.save(g)

	res, err := h.engine.EndTurn(h.ctx, g.ID, "alice")
	require.NoError(t, err)
	bob := res.Game.Player2

	assert.Equal(t, rules.MaxHandSize, bob.HandSize())
	assert.Equal(t, 4, bob.DeckSize())
	assert.Zero(t, bob.Count(state.ZoneDiscard))
	assert.False(t, bob.Has(h.card("Thicket Boar").ID, state.ZoneHand))

	drawn := eventsOf(res.Events, rules.EventCardDrawn)
	require.Len(t, drawn, 1)
	assert.Equal(t, "Card burned (hand full): Thicket Boar", drawn[0].Message)
}

func TestPlayCreature(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	h.give(g.Player1, "Chapel Healer", "Razor Cub")
	g.Player1.HeroHealth = 20
	h.save(g)

	res, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Chapel Healer").ID, "")
	require.NoError(t, err)
	alice := res.Game.Player1

	assert.Equal(t, 7, alice.CurrentMana)
	assert.Equal(t, 23, alice.HeroHealth)
	require.Len(t, alice.Battlefield, 1)
	assert.False(t, alice.Battlefield[0].CanAttack)
	assert.Equal(t, 1, alice.HandSize())

	require.Len(t, res.Events, 2)
	assert.Equal(t, rules.EventCardPlayed, res.Events[0].Type)
	assert.Equal(t, "Played Chapel Healer", res.Events[0].Message)
	assert.Equal(t, rules.EventHeal, res.Events[1].Type)

	res, err = h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Razor Cub").ID, "")
	require.NoError(t, err)
	cub := res.Game.Player1.Battlefield[1]
	assert.True(t, cub.CanAttack, "Charge")
	assert.Equal(t, 1, cub.Position)
}

func TestCastSpellGoesToDiscard(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	h.give(g.Player1, "Ember Bolt")
	h.save(g)

	res, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Ember Bolt").ID, rules.TargetEnemyHero)
	require.NoError(t, err)

	assert.Equal(t, 23, res.Game.Player2.HeroHealth)
	assert.True(t, res.Game.Player1.Has(h.card("Ember Bolt").ID, state.ZoneDiscard))
	assert.Equal(t, 9, res.Game.Player1.CurrentMana)
	assert.Equal(t, "Cast Ember Bolt", res.Events[0].Message)
}

func TestWardAbsorbsOneInstance(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	drone := h.place(g.Player2, "Copper Drone")
	h.give(g.Player1, "Ember Bolt", "Ember Bolt")
	h.save(g)
	bolt := h.card("Ember Bolt").ID

	res, err := h.engine.PlayCard(h.ctx, g.ID, "alice", bolt, drone.ID)
	require.NoError(t, err)
	survivor := res.Game.Player2.Creature(drone.ID)
	require.NotNil(t, survivor)
	assert.Equal(t, 2, survivor.Health)
	assert.False(t, survivor.Keywords.Has(card.KeywordWard))
	assert.Empty(t, eventsOf(res.Events, rules.EventDamage))

	res, err = h.engine.PlayCard(h.ctx, g.ID, "alice", bolt, drone.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Game.Player2.Creature(drone.ID))
	assert.Len(t, eventsOf(res.Events, rules.EventDeath), 1)
	assert.True(t, res.Game.Player2.Has(h.card("Copper Drone").ID, state.ZoneDiscard))
}

func TestWardedCreatureStillFiresDeathTrigger(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player2.HeroHealth = 20
	collector := h.place(g.Player2, "Soul Collector")
	collector.Keywords = collector.Keywords.With(card.KeywordWard)
	h.give(g.Player1, "Flame Javelin", "Flame Javelin")
	h.save(g)
	javelin := h.card("Flame Javelin").ID

	res, err := h.engine.PlayCard(h.ctx, g.ID, "alice", javelin, collector.ID)
	require.NoError(t, err)
	survivor := res.Game.Player2.Creature(collector.ID)
	require.NotNil(t, survivor)
	assert.Equal(t, 3, survivor.Health)
	assert.False(t, survivor.Keywords.Has(card.KeywordWard))

	res, err = h.engine.PlayCard(h.ctx, g.ID, "alice", javelin, collector.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Game.Player2.Creature(collector.ID))
	deaths := eventsOf(res.Events, rules.EventDeath)
	require.Len(t, deaths, 1)
	assert.Equal(t, collector.ID, deaths[0].SourceID)
	heals := eventsOf(res.Events, rules.EventHeal)
	require.Len(t, heals, 1)
	assert.Equal(t, 3, heals[0].Value)
	assert.Equal(t, 23, res.Game.Player2.HeroHealth)
	assert.True(t, res.Game.Player2.Has(h.card("Soul Collector").ID, state.ZoneDiscard))
}

func TestRejectedActionsLeaveGameUntouched(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player1.CurrentMana = 2
	h.give(g.Player1, "Thicket Boar", "Ember Bolt", "Pack Runner", "Ice Shard")
	enemy := h.place(g.Player2, "Thicket Boar")
	guard := h.place(g.Player2, "Town Guard")
	attacker := h.place(g.Player1, "Razor Cub")
	h.save(g)
	before, err := state.Encode(h.load(g.ID))
	require.NoError(t, err)

	full := h.table("bob")
	full.ID = "g-full"
	h.give(full.Player1, "Pack Runner")
	for i := 0; i < rules.MaxBattlefield; i++ {
		h.place(full.Player1, "Grave Rat")
	}
	h.save(full)

	cases := []struct {
		name string
		run  func() error
		want *rules.Error
	}{
		{"not your turn", func() error {
			_, err := h.engine.PlayCard(h.ctx, g.ID, "bob", h.card("Ember Bolt").ID, "")
			return err
		}, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeNotYourTurn}},
		{"stranger", func() error {
			_, err := h.engine.EndTurn(h.ctx, g.ID, "mallory")
			return err
		}, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeUnknownPlayer}},
		{"unknown card", func() error {
			_, err := h.engine.PlayCard(h.ctx, g.ID, "alice", "no-such-card", "")
			return err
		}, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeCardNotFound}},
		{"not in hand", func() error {
			_, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Final Spark").ID, "")
			return err
		}, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeNotInHand}},
		{"too expensive", func() error {
			_, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Thicket Boar").ID, "")
			return err
		}, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeInsufficientMana}},
		{"spell without target", func() error {
			_, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Ember Bolt").ID, "")
			return err
		}, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeInvalidTarget}},
		{"spell at unknown creature", func() error {
			_, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Ice Shard").ID, "ghost")
			return err
		}, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeTargetNotFound}},
		{"attack past guard", func() error {
			_, err := h.engine.Attack(h.ctx, g.ID, "alice", attacker.ID, enemy.ID)
			return err
		}, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeGuardRequired}},
		{"attack with enemy creature", func() error {
			_, err := h.engine.Attack(h.ctx, g.ID, "alice", guard.ID, rules.TargetEnemyHero)
			return err
		}, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeAttackerNotFound}},
		{"unknown game", func() error {
			_, err := h.engine.EndTurn(h.ctx, "missing", "alice")
			return err
		}, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeGameNotFound}},
		{"board full", func() error {
			_, err := h.engine.PlayCard(h.ctx, full.ID, "alice", h.card("Pack Runner").ID, "")
			return err
		}, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeBoardFull}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, rules.IsRejection(err))
		})
	}

	after, err := state.Encode(h.load(g.ID))
	require.NoError(t, err)
	assert.Equal(t, before.Checksum, after.Checksum)
	assert.Len(t, h.load(full.ID).Player1.Battlefield, rules.MaxBattlefield)
}

func TestAttackToLethalFinishesGame(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player2.HeroHealth = 3
	cub := h.place(g.Player1, "Thicket Boar")
	h.save(g)

	res, err := h.engine.Attack(h.ctx, g.ID, "alice", cub.ID, rules.TargetEnemyHero)
	require.NoError(t, err)

	assert.Equal(t, rules.StatusFinished, res.Game.Status)
	assert.Equal(t, "alice", res.Game.WinnerID)
	require.Len(t, res.Events, 3)
	assert.Equal(t, "Thicket Boar attacks enemy hero for 3", res.Events[0].Message)
	assert.Equal(t, rules.EventDamage, res.Events[1].Type)
	assert.Equal(t, rules.EventGameOver, res.Events[2].Type)

	_, err = h.engine.EndTurn(h.ctx, g.ID, "alice")
	assert.ErrorIs(t, err, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeGameFinished})
	_, err = h.engine.Surrender(h.ctx, g.ID, "bob")
	assert.ErrorIs(t, err, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeGameFinished})
}

func TestDoubleKnockoutGoesToPlayerTwo(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player1.HeroHealth = 0
	g.Player2.HeroHealth = -2

	s := h.engine.newSession(g)
	s.checkGameOver()
	s.checkGameOver()

	assert.Equal(t, "bob", g.WinnerID)
	over := eventsOf(s.scope.Log.Events(), rules.EventGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, "Player 1 hero defeated!", over[0].Message)
}

func TestSurrender(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	h.save(g)

	// allowed off-turn
	res, err := h.engine.Surrender(h.ctx, g.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, rules.StatusFinished, res.Game.Status)
	assert.Equal(t, "alice", res.Game.WinnerID)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "bob surrendered", res.Events[0].Message)
}

func TestAutoPlaySpendsManaWithoutEndingTurn(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	g.Player1.CurrentMana = 3
	h.give(g.Player1, "Thicket Boar")
	h.save(g)

	res, err := h.engine.AutoPlay(h.ctx, g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Game.CurrentPlayerID)
	assert.Equal(t, 1, res.Game.TurnNumber)
	assert.Equal(t, 0, res.Game.Player1.CurrentMana)
	require.Len(t, res.Game.Player1.Battlefield, 1)

	_, err = h.engine.AutoPlay(h.ctx, g.ID, "bob")
	assert.ErrorIs(t, err, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeNotYourTurn})
}

type tamperedRepository struct {
	*repository.MemoryGameRepository
}

func (r tamperedRepository) Load(ctx context.Context, id string) (*state.Game, error) {
	g, err := r.MemoryGameRepository.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := state.Encode(g)
	if err != nil {
		return nil, err
	}
	doc.Checksum = "0000"
	return state.Decode(doc)
}

func TestCorruptStateIsInvariantViolation(t *testing.T) {
	mem := repository.NewMemoryGameRepository()
	catalog := card.MustEmbeddedCatalog()
	engine := NewEngine(zaptest.NewLogger(t), tamperedRepository{mem}, catalog, deck.NewMemorySource())
	h := newHarness(t)
	g := h.table("bob")
	require.NoError(t, mem.Save(context.Background(), g))

	_, err := engine.EndTurn(context.Background(), g.ID, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrInvariantViolation)
	assert.False(t, rules.IsRejection(err))
}

func TestViewHidesOpponentHand(t *testing.T) {
	h := newHarness(t)
	g := h.table("bob")
	h.give(g.Player2, "Mend", "Mend")
	h.save(g)

	v, err := h.engine.View(h.ctx, g.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, v.Opponent.Hand)
	assert.Equal(t, 2, v.Opponent.HandCount)

	_, err = h.engine.View(h.ctx, g.ID, "mallory")
	assert.ErrorIs(t, err, rules.ErrIllegalInput)
}

func TestListGames(t *testing.T) {
	h := newHarness(t)
	first := h.createAIGame(true).Game
	second := h.createAIGame(true).Game
	_, err := h.engine.Surrender(h.ctx, first.ID, "alice")
	require.NoError(t, err)

	all, err := h.engine.ListGames(h.ctx, "alice", false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)

	active, err := h.engine.ListGames(h.ctx, "alice", true)
	require.NoError(t, err)
	for _, g := range active {
		assert.NotEqual(t, first.ID, g.ID)
	}
	ids := make([]string, 0, len(active))
	for _, g := range active {
		ids = append(ids, g.ID)
	}
	assert.Contains(t, ids, second.ID)
}

func TestSameSeedDealsSameHands(t *testing.T) {
	a := newHarness(t)
	b := newHarness(t)
	ga, err := a.engine.CreateAIGame(a.ctx, "alice", card.FactionIronbound, card.SchoolNature)
	require.NoError(t, err)
	gb, err := b.engine.CreateAIGame(b.ctx, "alice", card.FactionIronbound, card.SchoolNature)
	require.NoError(t, err)

	assert.Equal(t, ga.Game.Player1.Cards(state.ZoneHand), gb.Game.Player1.Cards(state.ZoneHand))
	assert.Equal(t, ga.Game.CurrentPlayerID, gb.Game.CurrentPlayerID)
}

func TestEventBusSeesCommittedEventsOnly(t *testing.T) {
	bus := rules.NewEventBus()
	var seen []rules.Event
	bus.Subscribe(func(gameID string, e rules.Event) { seen = append(seen, e) })
	h := newHarness(t, WithEventBus(bus))
	g := h.table("bob")
	h.give(g.Player1, "Mend")
	h.save(g)

	_, err := h.engine.PlayCard(h.ctx, g.ID, "bob", h.card("Mend").ID, "")
	require.Error(t, err)
	assert.Empty(t, seen)

	res, err := h.engine.PlayCard(h.ctx, g.ID, "alice", h.card("Mend").ID, "")
	require.NoError(t, err)
	assert.Equal(t, res.Events, seen)
}

func lockCount(e *Engine) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.locks)
}

func TestGameLocksAreReleased(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.EndTurn(h.ctx, "no-such-game", "alice")
	require.ErrorIs(t, err, &rules.Error{Kind: rules.IllegalInput, Code: rules.CodeGameNotFound})
	assert.Zero(t, lockCount(h.engine))

	g := h.table("bob")
	h.save(g)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(player string) {
			defer wg.Done()
			if _, err := h.engine.Surrender(h.ctx, g.ID, player); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, &rules.Error{Kind: rules.IllegalAction, Code: rules.CodeGameFinished})
			}
		}([]string{"alice", "bob"}[i%2])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Zero(t, lockCount(h.engine))
	assert.Equal(t, rules.StatusFinished, h.load(g.ID).Status)
}
