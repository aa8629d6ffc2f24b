package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// MemoryGameRepository keeps encoded games in a map. Documents are decoded
// on every Load so no caller ever shares state with the store.
type MemoryGameRepository struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewMemoryGameRepository creates an empty store.
func NewMemoryGameRepository() *MemoryGameRepository {
	return &MemoryGameRepository{records: make(map[string]record)}
}

// Load decodes the stored document for id.
func (r *MemoryGameRepository) Load(ctx context.Context, id string) (*state.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return state.Decode(rec.Doc)
}

// Save encodes g and replaces any previous version.
func (r *MemoryGameRepository) Save(ctx context.Context, g *state.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := newRecord(g)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.records[g.ID] = rec
	r.mu.Unlock()
	return nil
}

// ListByPlayer returns the player's games, most recently updated first.
func (r *MemoryGameRepository) ListByPlayer(ctx context.Context, playerID string, activeOnly bool) ([]*state.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]record, 0)
	for _, rec := range r.records {
		if rec.Player1ID != playerID && rec.Player2ID != playerID {
			continue
		}
		if activeOnly && !rec.Status.Active() {
			continue
		}
		matched = append(matched, rec)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	games := make([]*state.Game, 0, len(matched))
	for _, rec := range matched {
		g, err := state.Decode(rec.Doc)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}
