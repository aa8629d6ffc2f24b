package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/config"
	"github.com/spellfaire/spellfaire-engine/internal/deck"
	"github.com/spellfaire/spellfaire-engine/internal/game"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// arena plays bot-vs-bot matches: on each turn the active bot autoplays and
// then ends its turn.
type arena struct {
	logger  *zap.Logger
	engine  *game.Engine
	catalog card.Catalog
	decks   *deck.MemorySource
	replays *game.ReplayRecorder
	cfg     config.ArenaConfig
	rng     *rand.Rand
	tally   *tally
}

// tally counts committed events across every match of a run.
type tally struct {
	mu     sync.Mutex
	deaths int
	burned int
	over   int
}

// watch subscribes the tally to bus and streams every event to logger at
// debug level.
func (t *tally) watch(bus *rules.EventBus, logger *zap.Logger) {
	bus.Subscribe(func(gameID string, e rules.Event) {
		logger.Debug("event",
			zap.String("game_id", gameID),
			zap.String("type", string(e.Type)),
			zap.String("message", e.Message),
		)
	})
	bus.Subscribe(func(_ string, e rules.Event) {
		t.mu.Lock()
		defer t.mu.Unlock()
		switch e.Type {
		case rules.EventDeath:
			t.deaths++
		case rules.EventGameOver:
			t.over++
		case rules.EventCardDrawn:
			if strings.HasPrefix(e.Message, "Card burned") {
				t.burned++
			}
		}
	}, rules.EventDeath, rules.EventGameOver, rules.EventCardDrawn)
}

type matchResult struct {
	GameID   string
	Matchup  string
	WinnerID string
	Turns    int
	Capped   bool
}

type summary struct {
	results []matchResult
	wins    map[string]int
	deaths  int
	burned  int
	over    int
}

func (a *arena) run(ctx context.Context) (*summary, error) {
	sum := &summary{wins: make(map[string]int)}
	for i := 0; i < a.cfg.Games; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := a.playMatch(ctx)
		if err != nil {
			return sum, fmt.Errorf("match %d: %w", i+1, err)
		}
		sum.results = append(sum.results, res)
		if res.WinnerID != "" {
			sum.wins[res.WinnerID]++
		}
		fmt.Printf("Match %d/%d: %s -> %s in %d turns\n", i+1, a.cfg.Games, res.Matchup, res.outcome(), res.Turns)
	}
	if a.tally != nil {
		a.tally.mu.Lock()
		sum.deaths, sum.burned, sum.over = a.tally.deaths, a.tally.burned, a.tally.over
		a.tally.mu.Unlock()
	}
	return sum, nil
}

func (a *arena) playMatch(ctx context.Context) (matchResult, error) {
	deckA, err := a.buildDeck(botA, a.cfg.FactionA, a.cfg.SchoolA)
	if err != nil {
		return matchResult{}, err
	}
	deckB, err := a.buildDeck(botB, a.cfg.FactionB, a.cfg.SchoolB)
	if err != nil {
		return matchResult{}, err
	}

	created, err := a.engine.CreateGame(ctx, botA, deckA.ID, botB, deckB.ID)
	if err != nil {
		return matchResult{}, err
	}
	g := created.Game
	log := a.logger.With(zap.String("game_id", g.ID))
	log.Info("match started", zap.String("deck_a", deckA.Name), zap.String("deck_b", deckB.Name))

	for !g.Finished() && g.TurnNumber <= a.cfg.MaxTurns {
		actor := g.CurrentPlayerID
		res, err := a.engine.AutoPlay(ctx, g.ID, actor)
		if err != nil {
			return matchResult{}, err
		}
		g = res.Game
		if g.Finished() {
			break
		}
		res, err = a.engine.EndTurn(ctx, g.ID, actor)
		if err != nil {
			return matchResult{}, err
		}
		g = res.Game
	}

	out := matchResult{
		GameID:   g.ID,
		Matchup:  fmt.Sprintf("%s vs %s", deckA.Name, deckB.Name),
		WinnerID: g.WinnerID,
		Turns:    g.TurnNumber,
		Capped:   !g.Finished(),
	}
	if out.Capped {
		log.Warn("match hit the turn cap", zap.Int("max_turns", a.cfg.MaxTurns))
		// The engine only hands over replays of finished games.
		if a.replays != nil {
			if _, err := a.replays.SaveReplay(g.ID); err != nil {
				log.Warn("failed to save replay", zap.Error(err))
			}
		}
	}
	return out, nil
}

// buildDeck auto-builds a deck, choosing a random faction or school for any
// left unset.
func (a *arena) buildDeck(owner, factionName, schoolName string) (deck.Deck, error) {
	faction := card.Factions[a.rng.IntN(len(card.Factions))]
	if factionName != "" {
		f, err := card.ParseFaction(factionName)
		if err != nil {
			return deck.Deck{}, err
		}
		faction = f
	}
	school := card.Schools[a.rng.IntN(len(card.Schools))]
	if schoolName != "" {
		s, err := card.ParseSchool(schoolName)
		if err != nil {
			return deck.Deck{}, err
		}
		school = s
	}

	d, err := deck.AutoBuild(a.catalog, owner, faction, school)
	if err != nil {
		return deck.Deck{}, err
	}
	a.decks.Put(d)
	return d, nil
}

func (r matchResult) outcome() string {
	if r.Capped {
		return "no result"
	}
	return r.WinnerID + " wins"
}

func (s *summary) print(w io.Writer) {
	fmt.Fprintf(w, "\n=== Arena summary: %d matches ===\n", len(s.results))
	ids := make([]string, 0, len(s.wins))
	for id := range s.wins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-8s %d wins\n", id, s.wins[id])
	}
	capped := 0
	turns := 0
	for _, r := range s.results {
		turns += r.Turns
		if r.Capped {
			capped++
		}
	}
	if capped > 0 {
		fmt.Fprintf(w, "  capped   %d\n", capped)
	}
	if len(s.results) > 0 {
		fmt.Fprintf(w, "  average length: %.1f turns\n", float64(turns)/float64(len(s.results)))
	}
	if s.over > 0 || s.deaths > 0 {
		fmt.Fprintf(w, "  creatures died: %d, cards burned: %d, games over: %d\n", s.deaths, s.burned, s.over)
	}
}

// errorFields describes err for the log, including its gRPC code and rule
// reason when err is a rule error.
func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	st, ok := status.FromError(err)
	if !ok {
		return fields
	}
	fields = append(fields, zap.String("code", st.Code().String()))
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			fields = append(fields, zap.String("reason", info.Reason), zap.String("kind", info.Metadata["kind"]))
		}
	}
	return fields
}

// printReplay writes a saved replay to stdout turn by turn, or only the
// given frame when frame is not negative.
func printReplay(path string, frame int) error {
	replay, err := game.LoadReplayFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("Replay of game %s (%d frames)\n", replay.GameID, replay.Size())

	if frame >= 0 {
		f, ok := replay.FrameAt(frame)
		if !ok {
			return fmt.Errorf("frame %d out of range (0-%d)", frame, replay.Size()-1)
		}
		_, err := printFrame(f)
		return err
	}

	var last *state.Game
	for {
		f, ok := replay.Next()
		if !ok {
			break
		}
		g, err := printFrame(f)
		if err != nil {
			return err
		}
		last = g
	}
	if last != nil && last.Status == rules.StatusFinished {
		fmt.Printf("\nWinner: %s\n", last.WinnerID)
	}
	return nil
}

func printFrame(f game.Frame) (*state.Game, error) {
	g, err := f.Game()
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", f.Index, err)
	}
	fmt.Printf("\n-- frame %d, turn %d, %s to act --\n", f.Index, f.TurnNumber, f.CurrentPlayerID)
	for _, e := range f.Events {
		fmt.Printf("  %-14s %s\n", e.Type, e.Message)
	}
	fmt.Printf("  heroes: %s %d | %s %d\n", g.Player1.ID, g.Player1.HeroHealth, g.Player2.ID, g.Player2.HeroHealth)
	return g, nil
}
