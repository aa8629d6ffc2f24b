package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

// The document column is JSON rather than JSONB: JSONB rewrites the text and
// the checksum covers the exact encoded bytes.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	player1_id  TEXT NOT NULL,
	player2_id  TEXT NOT NULL,
	status      TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	version     INTEGER NOT NULL,
	document    JSON NOT NULL,
	checksum    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS games_player1_idx ON games (player1_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS games_player2_idx ON games (player2_id, updated_at DESC);
`

// PoolConfig sizes a Postgres connection pool.
type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// NewPool connects and pings a pgx pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// PostgresGameRepository stores games in a Postgres table.
type PostgresGameRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresGameRepository wraps pool and creates the schema if needed.
func NewPostgresGameRepository(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PostgresGameRepository, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create games schema: %w", err)
	}
	return &PostgresGameRepository{pool: pool, logger: logger}, nil
}

// Load reads and verifies one game.
func (r *PostgresGameRepository) Load(ctx context.Context, id string) (*state.Game, error) {
	doc := state.Document{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT version, document, checksum FROM games WHERE id = $1`, id,
	).Scan(&doc.Version, &doc.Data, &doc.Checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return state.Decode(doc)
}

// Save upserts g in a single statement.
func (r *PostgresGameRepository) Save(ctx context.Context, g *state.Game) error {
	rec, err := newRecord(g)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO games (id, player1_id, player2_id, status, updated_at, version, document, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status     = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			version    = EXCLUDED.version,
			document   = EXCLUDED.document,
			checksum   = EXCLUDED.checksum`,
		rec.ID, rec.Player1ID, rec.Player2ID, string(rec.Status), rec.UpdatedAt,
		rec.Doc.Version, string(rec.Doc.Data), rec.Doc.Checksum,
	)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("failed to save game", zap.String("game_id", g.ID), zap.Error(err))
		}
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return nil
}

// ListByPlayer returns the player's games, most recently updated first.
func (r *PostgresGameRepository) ListByPlayer(ctx context.Context, playerID string, activeOnly bool) ([]*state.Game, error) {
	query := `SELECT id, version, document, checksum FROM games
		WHERE (player1_id = $1 OR player2_id = $1)`
	args := []any{playerID}
	if activeOnly {
		query += ` AND status = ANY($2)`
		args = append(args, activeStatuses)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games for %s: %w", playerID, err)
	}
	defer rows.Close()

	var games []*state.Game
	for rows.Next() {
		var doc state.Document
		if err := rows.Scan(&doc.ID, &doc.Version, &doc.Data, &doc.Checksum); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		g, err := state.Decode(doc)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games for %s: %w", playerID, err)
	}
	return games, nil
}
