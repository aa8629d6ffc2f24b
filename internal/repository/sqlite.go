package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	player1_id  TEXT NOT NULL,
	player2_id  TEXT NOT NULL,
	status      TEXT NOT NULL,
	updated_at  INTEGER NOT NULL,
	version     INTEGER NOT NULL,
	document    BLOB NOT NULL,
	checksum    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS games_player1_idx ON games (player1_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS games_player2_idx ON games (player2_id, updated_at DESC);
`

// SQLiteGameRepository stores games in a local SQLite file.
type SQLiteGameRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteGameRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create games schema: %w", err)
	}
	return &SQLiteGameRepository{db: db, logger: logger}, nil
}

// Close closes the database handle.
func (r *SQLiteGameRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Load reads and verifies one game.
func (r *SQLiteGameRepository) Load(ctx context.Context, id string) (*state.Game, error) {
	doc := state.Document{ID: id}
	err := r.db.QueryRowContext(ctx,
		`SELECT version, document, checksum FROM games WHERE id = ?`, id,
	).Scan(&doc.Version, &doc.Data, &doc.Checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return state.Decode(doc)
}

// Save upserts g.
func (r *SQLiteGameRepository) Save(ctx context.Context, g *state.Game) error {
	rec, err := newRecord(g)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO games (id, player1_id, player2_id, status, updated_at, version, document, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at,
			version    = excluded.version,
			document   = excluded.document,
			checksum   = excluded.checksum`,
		rec.ID, rec.Player1ID, rec.Player2ID, string(rec.Status), rec.UpdatedAt.UnixMilli(),
		rec.Doc.Version, rec.Doc.Data, rec.Doc.Checksum,
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
func (r *SQLiteGameRepository) ListByPlayer(ctx context.Context, playerID string, activeOnly bool) ([]*state.Game, error) {
	query := `SELECT id, version, document, checksum FROM games
		WHERE (player1_id = ? OR player2_id = ?)`
	args := []any{playerID, playerID}
	if activeOnly {
		query += ` AND status IN (?, ?)`
		args = append(args, activeStatuses[0], activeStatuses[1])
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
