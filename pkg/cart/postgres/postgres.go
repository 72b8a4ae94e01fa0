// Package postgres implements a PostgreSQL-backed cart snapshot.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/timunlipat/dapur-segar/pkg/cart"
)

// Snapshot persists the serialized cart in a carts table, one row per
// session key. The caller must ensure the table exists:
// CREATE TABLE IF NOT EXISTS carts (session_key TEXT PRIMARY KEY, data TEXT);
type Snapshot struct {
	db  *sql.DB
	key string
}

// New creates a snapshot bound to the given session key.
func New(db *sql.DB, sessionKey string) *Snapshot {
	return &Snapshot{db: db, key: sessionKey}
}

// Load reads the persisted cart. A missing row is an empty cart.
func (s *Snapshot) Load(ctx context.Context) ([]cart.Line, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM carts WHERE session_key=$1", s.key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cart %s: %w", s.key, err)
	}
	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", s.key, err)
	}
	return lines, nil
}

// Save upserts the full cart, replacing any previous snapshot.
func (s *Snapshot) Save(ctx context.Context, lines []cart.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO carts (session_key, data) VALUES ($1,$2) ON CONFLICT (session_key) DO UPDATE SET data=$2",
		s.key, data)
	return err
}
