// Package repository persists games as checksummed documents.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// ErrNotFound is returned by Load when no game has the requested id.
var ErrNotFound = errors.New("game not found")

// GameRepository loads and stores whole games. Load always returns a fresh
// copy, so callers may mutate it freely and discard it on error.
type GameRepository interface {
	Load(ctx context.Context, id string) (*state.Game, error)
	Save(ctx context.Context, g *state.Game) error
	ListByPlayer(ctx context.Context, playerID string, activeOnly bool) ([]*state.Game, error)
}

// record is the row layout shared by the SQL stores.
type record struct {
	ID        string
	Player1ID string
	Player2ID string
	Status    rules.Status
	UpdatedAt time.Time
	Doc       state.Document
}

func newRecord(g *state.Game) (record, error) {
	doc, err := state.Encode(g)
	if err != nil {
		return record{}, err
	}
	return record{
		ID:        g.ID,
		Player1ID: g.Player1.ID,
		Player2ID: g.Player2.ID,
		Status:    g.Status,
		UpdatedAt: g.UpdatedAt.UTC(),
		Doc:       doc,
	}, nil
}

var activeStatuses = []string{string(rules.StatusSetup), string(rules.StatusInProgress)}
