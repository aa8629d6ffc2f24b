// Package game runs Spellfaire matches. The Engine owns the turn state
// machine and commits every accepted action to the game repository.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/deck"
	"github.com/spellfaire/spellfaire-engine/internal/game/ai"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
	"github.com/spellfaire/spellfaire-engine/internal/repository"
)

// ActionResult is the committed game after an action together with every
// event the action produced, in order.
type ActionResult struct {
	Game   *state.Game
	Events []rules.Event
}

// Engine serialises actions per game. Different games never contend.
type Engine struct {
	logger  *zap.Logger
	repo    repository.GameRepository
	catalog card.Catalog
	decks   deck.Source
	ai      *ai.Controller
	bus     *rules.EventBus
	replays *ReplayRecorder
	now     func() time.Time
	seeds   func() uint64

	mu    sync.Mutex
	locks map[string]*gameLock
}

// gameLock serialises actions on one game. refs counts the callers holding
// or waiting for it; the entry is dropped when the last one leaves.
type gameLock struct {
	mu   sync.Mutex
	refs int
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeedSource supplies the seed of every new game's random stream.
func WithSeedSource(seeds func() uint64) Option {
	return func(e *Engine) { e.seeds = seeds }
}

// WithEventBus publishes committed events to bus.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithReplayRecorder records a frame per committed action.
func WithReplayRecorder(r *ReplayRecorder) Option {
	return func(e *Engine) { e.replays = r }
}

// NewEngine wires an engine over its collaborators.
func NewEngine(logger *zap.Logger, repo repository.GameRepository, catalog card.Catalog, decks deck.Source, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:  logger,
		repo:    repo,
		catalog: catalog,
		decks:   decks,
		ai:      ai.NewController(logger.Named("ai"), catalog),
		now:     time.Now,
		seeds:   rand.Uint64,
		locks:   make(map[string]*gameLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockGame blocks until the caller owns gameID and returns the release func.
func (e *Engine) lockGame(gameID string) func() {
	e.mu.Lock()
	l, ok := e.locks[gameID]
	if !ok {
		l = &gameLock{}
		e.locks[gameID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		defer e.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, gameID)
		}
	}
}


// PlayCard plays a creature or casts a spell from playerID's hand.
func (e *Engine) PlayCard(ctx context.Context, gameID, playerID, cardID, targetID string) (*ActionResult, error) {
	return e.act(ctx, gameID, "play_card", func(s *session) error {
		return s.playCard(playerID, cardID, targetID)
	}, zap.String("player_id", playerID), zap.String("card_id", cardID), zap.String("target_id", targetID))
}

// Attack declares an attack by one of playerID's creatures.
func (e *Engine) Attack(ctx context.Context, gameID, playerID, attackerID, targetID string) (*ActionResult, error) {
	return e.act(ctx, gameID, "attack", func(s *session) error {
		return s.attack(playerID, attackerID, targetID)
	}, zap.String("player_id", playerID), zap.String("attacker_id", attackerID), zap.String("target_id", targetID))
}

// EndTurn passes the turn. When the next seat is the AI its whole turn is
// played before returning, and control comes back to playerID.
func (e *Engine) EndTurn(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	return e.act(ctx, gameID, "end_turn", func(s *session) error {
		return s.endTurn(ctx, playerID)
	}, zap.String("player_id", playerID))
}

// Surrender concedes the game to the opponent.
func (e *Engine) Surrender(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	return e.act(ctx, gameID, "surrender", func(s *session) error {
		return s.surrender(playerID)
	}, zap.String("player_id", playerID))
}

// AutoPlay lets the AI controller act for playerID's current turn without
// ending it.
func (e *Engine) AutoPlay(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	return e.act(ctx, gameID, "auto_play", func(s *session) error {
		return s.autoPlay(ctx, playerID)
	}, zap.String("player_id", playerID))
}

// Get returns the stored game.
func (e *Engine) Get(ctx context.Context, gameID string) (*state.Game, error) {
	return e.load(ctx, gameID)
}

// View returns the game as viewerID may see it.
func (e *Engine) View(ctx context.Context, gameID, viewerID string) (state.GameView, error) {
	g, err := e.load(ctx, gameID)
	if err != nil {
		return state.GameView{}, err
	}
	v, ok := g.ViewFor(viewerID)
	if !ok {
		return state.GameView{}, rules.Input(rules.CodeUnknownPlayer, "player %s is not in game %s", viewerID, gameID)
	}
	return v, nil
}

// ListGames returns playerID's games, most recently updated first.
func (e *Engine) ListGames(ctx context.Context, playerID string, activeOnly bool) ([]*state.Game, error) {
	games, err := e.repo.ListByPlayer(ctx, playerID, activeOnly)
	if err != nil {
		return nil, e.storageError(err, "list games", zap.String("player_id", playerID))
	}
	return games, nil
}

// act runs fn against a freshly loaded working copy under the game's lock.
// Nothing is saved unless fn succeeds.
func (e *Engine) act(ctx context.Context, gameID, action string, fn func(*session) error, fields ...zap.Field) (*ActionResult, error) {
	defer e.lockGame(gameID)()

	g, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s := e.newSession(g)
	if err := fn(s); err != nil {
		e.reject(gameID, action, err, fields...)
		return nil, err
	}
	return e.commit(ctx, s, action, fields...)
}

func (e *Engine) load(ctx context.Context, gameID string) (*state.Game, error) {
	g, err := e.repo.Load(ctx, gameID)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, rules.Input(rules.CodeGameNotFound, "game %s not found", gameID)
	}
	return nil, e.storageError(err, "load game", zap.String("game_id", gameID))
}

func (e *Engine) storageError(err error, what string, fields ...zap.Field) error {
	if rules.KindOf(err) == rules.InvariantViolation {
		e.logger.Error(what+": invariant violation", append(fields, zap.Error(err))...)
		return err
	}
	e.logger.Error(what+" failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", what, err)
}

func (e *Engine) reject(gameID, action string, err error, fields ...zap.Field) {
	fields = append([]zap.Field{zap.String("game_id", gameID), zap.String("action", action), zap.Error(err)}, fields...)
	if rules.IsRejection(err) {
		e.logger.Debug("action rejected", fields...)
		return
	}
	e.logger.Error("action failed", fields...)
}

// commit saves the working copy and then publishes its events.
func (e *Engine) commit(ctx context.Context, s *session, action string, fields ...zap.Field) (*ActionResult, error) {
	g := s.game
	g.UpdatedAt = e.now()
	if err := e.repo.Save(ctx, g); err != nil {
		return nil, e.storageError(err, "save game", zap.String("game_id", g.ID))
	}

	events := s.scope.Log.Events()
	e.logger.Debug("action applied",
		append([]zap.Field{
			zap.String("game_id", g.ID),
			zap.String("action", action),
			zap.Int("turn", g.TurnNumber),
			zap.Int("events", len(events)),
		}, fields...)...,
	)
	if e.bus != nil {
		e.bus.Publish(g.ID, events...)
	}
	e.record(g, events)

	if g.Finished() && !s.wasFinished {
		e.logger.Info("game finished",
			zap.String("game_id", g.ID),
			zap.String("winner_id", g.WinnerID),
			zap.Int("turn", g.TurnNumber),
		)
		e.finishReplay(g.ID)
	}
	return &ActionResult{Game: g, Events: events}, nil
}

func (e *Engine) record(g *state.Game, events []rules.Event) {
	if e.replays == nil {
		return
	}
	if err := e.replays.Record(g, events); err != nil {
		e.logger.Warn("failed to record replay frame", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func (e *Engine) finishReplay(gameID string) {
	if e.replays == nil {
		return
	}
	if _, err := e.replays.SaveReplay(gameID); err != nil {
		e.logger.Warn("failed to save replay", zap.String("game_id", gameID), zap.Error(err))
	}
}
