package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spellfaire/spellfaire-engine/internal/card"
)

const cardsSchema = `
CREATE TABLE IF NOT EXISTS cards (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	card_type TEXT NOT NULL,
	cost      INTEGER NOT NULL,
	attack    INTEGER NOT NULL DEFAULT 0,
	health    INTEGER NOT NULL DEFAULT 0,
	faction   TEXT NOT NULL DEFAULT '',
	school    TEXT NOT NULL DEFAULT '',
	keywords  TEXT[] NOT NULL DEFAULT '{}',
	rules     TEXT NOT NULL DEFAULT '',
	token     BOOLEAN NOT NULL DEFAULT FALSE
);
`

// CardStore reads and writes the card catalog in Postgres.
type CardStore struct {
	pool *pgxpool.Pool
}

// NewCardStore creates the cards table if needed.
func NewCardStore(ctx context.Context, pool *pgxpool.Pool) (*CardStore, error) {
	if _, err := pool.Exec(ctx, cardsSchema); err != nil {
		return nil, fmt.Errorf("create cards schema: %w", err)
	}
	return &CardStore{pool: pool}, nil
}

// Count returns the number of stored cards.
func (s *CardStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// Upsert writes cards in one transaction, returning how many were written.
func (s *CardStore) Upsert(ctx context.Context, cards []card.Card) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin card import: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, c := range cards {
		if c.ID == "" {
			c.ID = card.IDFor(c.Name, c.Token)
		}
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			keywords = append(keywords, string(k))
		}
		batch.Queue(`
			INSERT INTO cards (id, name, card_type, cost, attack, health, faction, school, keywords, rules, token)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, card_type = EXCLUDED.card_type, cost = EXCLUDED.cost,
				attack = EXCLUDED.attack, health = EXCLUDED.health, faction = EXCLUDED.faction,
				school = EXCLUDED.school, keywords = EXCLUDED.keywords, rules = EXCLUDED.rules,
				token = EXCLUDED.token`,
			c.ID, c.Name, string(c.Type), c.Cost, c.Attack, c.Health,
			string(c.Faction), string(c.School), keywords, c.Text, c.Token,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("import cards: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit card import: %w", err)
	}
	return len(cards), nil
}

// LoadCatalog reads every card into an in-memory catalog.
func (s *CardStore) LoadCatalog(ctx context.Context) (*card.MemoryCatalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, card_type, cost, attack, health, faction, school, keywords, rules, token
		FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []card.Card
	for rows.Next() {
		var (
			c        card.Card
			typ      string
			faction  string
			school   string
			keywords []string
		)
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Cost, &c.Attack, &c.Health,
			&faction, &school, &keywords, &c.Text, &c.Token); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Type = card.Type(typ)
		c.Faction = card.Faction(faction)
		c.School = card.School(school)
		for _, k := range keywords {
			c.Keywords = append(c.Keywords, card.Keyword(k))
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("cards table is empty")
	}
	return card.NewMemoryCatalog(cards)
}
