package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newGame(id, p1, p2 string, status rules.Status, updated time.Time) *state.Game {
	g := state.New(id, state.NewPlayer(p1, "deck-"+p1), state.NewPlayer(p2, "deck-"+p2), 42, baseTime)
	g.Status = status
	g.UpdatedAt = updated
	g.CurrentPlayerID = p1
	g.TurnNumber = 1
	return g
}

// exerciseRepository runs the behaviour every GameRepository must share.
func exerciseRepository(t *testing.T, repo GameRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing game", func(t *testing.T) {
		_, err := repo.Load(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		g := newGame("g-round", "alice", rules.AIPlayerID, rules.StatusInProgress, baseTime)
		g.Player1.HeroHealth = 17
		g.Player1.Put("card-1", state.ZoneHand)
		require.NoError(t, repo.Save(ctx, g))

		loaded, err := repo.Load(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, 17, loaded.Player1.HeroHealth)
		assert.True(t, loaded.Player1.Has("card-1", state.ZoneHand))

		// callers own the loaded copy
		loaded.Player1.HeroHealth = 1
		again, err := repo.Load(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, 17, again.Player1.HeroHealth)
	})

	t.Run("save replaces", func(t *testing.T) {
		g := newGame("g-replace", "bob", rules.AIPlayerID, rules.StatusInProgress, baseTime)
		require.NoError(t, repo.Save(ctx, g))
		g.TurnNumber = 9
		g.UpdatedAt = baseTime.Add(time.Minute)
		require.NoError(t, repo.Save(ctx, g))

		loaded, err := repo.Load(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, loaded.TurnNumber)
	})

	t.Run("list by player", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newGame("c-old", "carol", rules.AIPlayerID, rules.StatusInProgress, baseTime)))
		require.NoError(t, repo.Save(ctx, newGame("c-new", rules.AIPlayerID, "carol", rules.StatusInProgress, baseTime.Add(2*time.Hour))))
		require.NoError(t, repo.Save(ctx, newGame("c-done", "carol", "dave", rules.StatusFinished, baseTime.Add(time.Hour))))
		require.NoError(t, repo.Save(ctx, newGame("d-only", "dave", rules.AIPlayerID, rules.StatusInProgress, baseTime)))

		all, err := repo.ListByPlayer(ctx, "carol", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"c-new", "c-done", "c-old"}, ids(all))

		active, err := repo.ListByPlayer(ctx, "carol", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"c-new", "c-old"}, ids(active))

		none, err := repo.ListByPlayer(ctx, "erin", false)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func ids(games []*state.Game) []string {
	out := make([]string, 0, len(games))
	for _, g := range games {
		out = append(out, g.ID)
	}
	return out
}
