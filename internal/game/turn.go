package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spellfaire/spellfaire-engine/internal/game/ai"
	"github.com/spellfaire/spellfaire-engine/internal/game/combat"
	"github.com/spellfaire/spellfaire-engine/internal/game/effects"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// session is one action in progress: the working copy, its event log and
// the collaborators needed to mutate it.
type session struct {
	game        *state.Game
	scope       *effects.Scope
	ai          *ai.Controller
	logger      *zap.Logger
	wasFinished bool
}

func (e *Engine) newSession(g *state.Game) *session {
	return &session{
		game:        g,
		scope:       effects.NewScope(g, e.catalog),
		ai:          e.ai,
		logger:      e.logger.With(zap.String("game_id", g.ID)),
		wasFinished: g.Finished(),
	}
}

// requireTurn returns the acting seat and its opponent when playerID may act
// right now.
func (s *session) requireTurn(playerID string) (*state.Player, *state.Player, error) {
	g := s.game
	if g.Finished() {
		return nil, nil, rules.Action(rules.CodeGameFinished, "game %s is finished", g.ID)
	}
	p, ok := g.Player(playerID)
	if !ok {
		return nil, nil, rules.Input(rules.CodeUnknownPlayer, "player %s is not in game %s", playerID, g.ID)
	}
	if g.CurrentPlayerID != playerID {
		return nil, nil, rules.Action(rules.CodeNotYourTurn, "it is not %s's turn", playerID)
	}
	if !g.Phase.Actionable() {
		return nil, nil, rules.Action(rules.CodeWrongPhase, "cannot act during %s", g.Phase)
	}
	opp, _ := g.Opponent(playerID)
	return p, opp, nil
}

func (s *session) playCard(playerID, cardID, targetID string) error {
	p, _, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	cd, err := s.scope.Catalog.Lookup(cardID)
	if err != nil {
		return rules.Input(rules.CodeCardNotFound, "card %s not found", cardID)
	}
	if !p.Has(cardID, state.ZoneHand) {
		return rules.Action(rules.CodeNotInHand, "%s is not in hand", cd.Name)
	}
	if cd.Cost > p.CurrentMana {
		return rules.Action(rules.CodeInsufficientMana, "%s costs %d, %d mana available", cd.Name, cd.Cost, p.CurrentMana)
	}

	verb := func(human, bot string) string {
		if p.IsAI() {
			return bot + " " + cd.Name
		}
		return human + " " + cd.Name
	}

	switch {
	case cd.IsCreature():
		if p.BoardFull() {
			return rules.Action(rules.CodeBoardFull, "battlefield is full")
		}
		plan, err := s.scope.PlanOnPlay(p, cd.Name, targetID)
		if err != nil {
			return err
		}
		p.CurrentMana -= cd.Cost
		p.Take(cd.ID, state.ZoneHand)
		c := state.NewCreature(p.ID, cd)
		p.AddCreature(c)
		s.scope.Log.Add(rules.CardPlayed(cd.ID, verb("Played", "AI played")))
		if err := s.scope.Resolve(plan, c); err != nil {
			return err
		}
	case cd.IsSpell():
		plan, err := s.scope.PlanSpell(p, cd.Name, targetID)
		if err != nil {
			return err
		}
		p.CurrentMana -= cd.Cost
		p.Move(cd.ID, state.ZoneHand, state.ZoneDiscard)
		s.scope.Log.Add(rules.CardPlayed(cd.ID, verb("Cast", "AI cast")))
		if err := s.scope.Resolve(plan, nil); err != nil {
			return err
		}
	default:
		return rules.Invariant(rules.CodeInconsistentState, "card %s has unknown type %q", cd.Name, cd.Type)
	}

	s.checkGameOver()
	return nil
}

func (s *session) attack(playerID, attackerID, targetID string) error {
	p, opp, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	if err := combat.Resolve(s.scope, p, opp, attackerID, targetID); err != nil {
		return err
	}
	s.checkGameOver()
	return nil
}

func (s *session) endTurn(ctx context.Context, playerID string) error {
	if _, _, err := s.requireTurn(playerID); err != nil {
		return err
	}
	if err := s.passTurn(); err != nil {
		return err
	}
	s.checkGameOver()
	if s.game.Finished() || !s.game.Current().IsAI() {
		return nil
	}
	return s.aiTurnAndReturn(ctx)
}

// aiTurnAndReturn plays the AI's turn and hands control back to the human.
func (s *session) aiTurnAndReturn(ctx context.Context) error {
	if err := s.runAI(ctx, rules.AIPlayerID); err != nil {
		return err
	}
	if s.game.Finished() {
		return nil
	}
	if err := s.passTurn(); err != nil {
		return err
	}
	s.checkGameOver()
	return nil
}

func (s *session) autoPlay(ctx context.Context, playerID string) error {
	if _, _, err := s.requireTurn(playerID); err != nil {
		return err
	}
	return s.runAI(ctx, playerID)
}

func (s *session) runAI(ctx context.Context, playerID string) error {
	if err := s.ai.PlayTurn(ctx, seat{s: s, playerID: playerID}); err != nil {
		return err
	}
	s.checkGameOver()
	return nil
}

func (s *session) surrender(playerID string) error {
	g := s.game
	if g.Finished() {
		return rules.Action(rules.CodeGameFinished, "game %s is finished", g.ID)
	}
	opp, ok := g.Opponent(playerID)
	if !ok {
		return rules.Input(rules.CodeUnknownPlayer, "player %s is not in game %s", playerID, g.ID)
	}
	s.finish(opp.ID, playerID+" surrendered")
	return nil
}

// passTurn hands the turn to the other seat.
func (s *session) passTurn() error {
	g := s.game
	g.Phase = rules.PhaseEnd
	next, _ := g.Opponent(g.CurrentPlayerID)
	g.CurrentPlayerID = next.ID
	g.TurnNumber++
	return s.startOfTurn(next)
}

// startOfTurn refills mana, readies or thaws the board, fires start-of-turn
// triggers and draws.
func (s *session) startOfTurn(p *state.Player) error {
	g := s.game
	g.Phase = rules.PhaseStart
	s.scope.Log.Add(rules.TurnStart(p.ID, g.TurnNumber, fmt.Sprintf("Turn %d for %s", g.TurnNumber, p.ID)))

	p.MaxMana = min(rules.MaxMana, p.MaxMana+1)
	p.CurrentMana = p.MaxMana
	s.scope.Log.Add(rules.ManaGain(p.ID, p.MaxMana, fmt.Sprintf("Mana: %d/%d", p.CurrentMana, p.MaxMana)))

	for _, c := range p.Battlefield {
		if c.Frozen() {
			c.Thaw()
			c.CanAttack = false
		} else {
			c.CanAttack = true
		}
		c.AttackedThisTurn = false
	}
	if err := s.scope.StartOfTurn(p); err != nil {
		return err
	}

	g.Phase = rules.PhaseDraw
	s.scope.Draw(p)
	g.Phase = rules.PhaseMain
	return nil
}

// checkGameOver ends the game when a hero has fallen. Player 1 is checked
// first, so a double knockout goes to player 2.
func (s *session) checkGameOver() {
	g := s.game
	if g.Finished() {
		return
	}
	switch {
	case g.Player1.HeroHealth <= 0:
		s.finish(g.Player2.ID, "Player 1 hero defeated!")
	case g.Player2.HeroHealth <= 0:
		s.finish(g.Player1.ID, "Player 2 hero defeated!")
	}
}

func (s *session) finish(winnerID, message string) {
	g := s.game
	g.Status = rules.StatusFinished
	g.Phase = rules.PhaseEnd
	g.WinnerID = winnerID
	s.scope.Log.Add(rules.GameOver(winnerID, message))
}

// seat lets the AI controller act for one player through the same
// validation as any other caller.
type seat struct {
	s        *session
	playerID string
}

func (a seat) PlayCard(ctx context.Context, cardID, targetID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.s.playCard(a.playerID, cardID, targetID)
}

func (a seat) Attack(ctx context.Context, attackerID, targetID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.s.attack(a.playerID, attackerID, targetID)
}

func (a seat) Self() *state.Player {
	p, _ := a.s.game.Player(a.playerID)
	return p
}

func (a seat) Opponent() *state.Player {
	p, _ := a.s.game.Opponent(a.playerID)
	return p
}
