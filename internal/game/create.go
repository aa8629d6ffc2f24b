package game

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/deck"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// CreateAIGame starts a game between playerID and the AI. The player gets an
// auto-built deck for faction and school; the AI plays a different faction
// and a different school.
func (e *Engine) CreateAIGame(ctx context.Context, playerID string, faction card.Faction, school card.School) (*ActionResult, error) {
	if playerID == "" || playerID == rules.AIPlayerID {
		return nil, rules.Input(rules.CodeBadRequest, "invalid player id %q", playerID)
	}
	humanDeck, err := deck.AutoBuild(e.catalog, playerID, faction, school)
	if err != nil {
		return nil, rules.Input(rules.CodeInvalidDeck, "build deck: %v", err)
	}

	g := e.newGame(playerID, humanDeck.ID, rules.AIPlayerID, "")
	r := g.Rand()
	aiFaction := pickOther(r, card.Factions, faction)
	aiSchool := pickOther(r, card.Schools, school)
	aiDeck, err := deck.AutoBuild(e.catalog, rules.AIPlayerID, aiFaction, aiSchool)
	if err != nil {
		return nil, rules.Invariant(rules.CodeInconsistentState, "build AI deck: %v", err)
	}
	g.Player2.DeckID = aiDeck.ID

	return e.start(ctx, g, humanDeck, aiDeck)
}

// CreateGame starts a game from stored decks. An empty player2ID or the AI
// sentinel seats the AI, with an auto-built deck when deck2ID is empty.
func (e *Engine) CreateGame(ctx context.Context, player1ID, deck1ID, player2ID, deck2ID string) (*ActionResult, error) {
	if player1ID == "" || player1ID == rules.AIPlayerID {
		return nil, rules.Input(rules.CodeBadRequest, "invalid player 1 id %q", player1ID)
	}
	if player2ID == "" {
		player2ID = rules.AIPlayerID
	}
	if player1ID == player2ID {
		return nil, rules.Input(rules.CodeBadRequest, "a player cannot play against themselves")
	}

	d1, err := e.playableDeck(ctx, deck1ID, player1ID)
	if err != nil {
		return nil, err
	}

	var d2 deck.Deck
	switch {
	case player2ID == rules.AIPlayerID && deck2ID == "":
		g := e.newGame(player1ID, d1.ID, rules.AIPlayerID, "")
		r := g.Rand()
		d2, err = deck.AutoBuild(e.catalog, rules.AIPlayerID, card.Factions[r.IntN(len(card.Factions))], card.Schools[r.IntN(len(card.Schools))])
		if err != nil {
			return nil, rules.Invariant(rules.CodeInconsistentState, "build AI deck: %v", err)
		}
		g.Player2.DeckID = d2.ID
		return e.start(ctx, g, d1, d2)
	case player2ID == rules.AIPlayerID:
		d2, err = e.playableDeck(ctx, deck2ID, "")
	case deck2ID == "":
		return nil, rules.Input(rules.CodeBadRequest, "player 2 deck id is required")
	default:
		d2, err = e.playableDeck(ctx, deck2ID, player2ID)
	}
	if err != nil {
		return nil, err
	}

	return e.start(ctx, e.newGame(player1ID, d1.ID, player2ID, d2.ID), d1, d2)
}

// playableDeck resolves and validates a deck. An empty ownerID skips the
// ownership check.
func (e *Engine) playableDeck(ctx context.Context, deckID, ownerID string) (deck.Deck, error) {
	if deckID == "" {
		return deck.Deck{}, rules.Input(rules.CodeBadRequest, "deck id is required")
	}
	d, err := e.decks.Deck(ctx, deckID)
	if errors.Is(err, deck.ErrNotFound) {
		return deck.Deck{}, rules.Input(rules.CodeDeckNotFound, "deck %s not found", deckID)
	}
	if err != nil {
		return deck.Deck{}, err
	}
	if ownerID != "" && d.OwnerID != ownerID {
		return deck.Deck{}, rules.Action(rules.CodeDeckNotOwned, "%s does not own deck %s", ownerID, deckID)
	}
	if err := deck.Validate(d, e.catalog); err != nil {
		return deck.Deck{}, rules.Input(rules.CodeInvalidDeck, "%v", err)
	}
	return d, nil
}

func (e *Engine) newGame(p1ID, d1ID, p2ID, d2ID string) *state.Game {
	return state.New(uuid.NewString(), state.NewPlayer(p1ID, d1ID), state.NewPlayer(p2ID, d2ID), e.seeds(), e.now())
}

// start flips for the first player, deals opening hands and runs the first
// turn start. An AI that wins the flip plays its turn before control passes
// to the human on turn 2.
func (e *Engine) start(ctx context.Context, g *state.Game, d1, d2 deck.Deck) (*ActionResult, error) {
	defer e.lockGame(g.ID)()

	s := e.newSession(g)
	first, second := g.Player1, g.Player2
	if g.Rand().IntN(2) == 1 {
		first, second = second, first
	}

	s.setUp(g.Player1, d1, first == g.Player1)
	s.setUp(g.Player2, d2, first == g.Player2)

	g.Status = rules.StatusInProgress
	g.TurnNumber = 1
	g.CurrentPlayerID = first.ID
	err := s.startOfTurn(first)
	if err == nil {
		s.checkGameOver()
		if first.IsAI() && !g.Finished() {
			err = s.aiTurnAndReturn(ctx)
		}
	}
	if err != nil {
		e.reject(g.ID, "create", err)
		return nil, err
	}

	if e.replays != nil {
		e.replays.StartRecording(g.ID)
	}
	e.logger.Info("game created",
		zap.String("game_id", g.ID),
		zap.String("player1_id", g.Player1.ID),
		zap.String("player2_id", g.Player2.ID),
		zap.String("first_player_id", first.ID),
		zap.String("second_player_id", second.ID),
	)
	return e.commit(ctx, s, "create")
}

// setUp shuffles d into p's deck zone and deals the opening hand without
// draw events.
func (s *session) setUp(p *state.Player, d deck.Deck, goesFirst bool) {
	ids := d.CardIDs()
	s.game.Shuffle(ids)
	for _, id := range ids {
		p.Put(id, state.ZoneDeck)
	}
	p.MaxMana = 0
	p.CurrentMana = 0

	hand := rules.SecondPlayerHand
	if goesFirst {
		hand = rules.FirstPlayerHand
	}
	for i := 0; i < hand; i++ {
		top := p.Cards(state.ZoneDeck)
		if len(top) == 0 {
			return
		}
		p.Move(top[0].CardID, state.ZoneDeck, state.ZoneHand)
	}
}

func pickOther[T comparable](r *rand.Rand, options []T, not T) T {
	others := make([]T, 0, len(options))
	for _, o := range options {
		if o != not {
			others = append(others, o)
		}
	}
	return others[r.IntN(len(others))]
}
