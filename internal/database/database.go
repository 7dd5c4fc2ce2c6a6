// Package database is the pgx-backed persistence collaborator. Sessions
// are stored as JSONB rows keyed by join code; the in-memory session is
// authoritative between saves.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_sessions (
	code       TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres implements game.Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool, log: logrus.WithField("component", "database")}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Save upserts the session state.
func (p *Postgres) Save(ctx context.Context, state game.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", state.Code, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO game_sessions (code, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET state = $2, updated_at = $3`,
		state.Code, payload, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session %s: %w", state.Code, err)
	}
	return nil
}

// Load fetches a stored session, or nil when the code is unknown.
func (p *Postgres) Load(ctx context.Context, code string) (*game.SessionState, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT state FROM game_sessions WHERE code = $1`, code).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}
	var state game.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", code, err)
	}
	return &state, nil
}

// Remove deletes a stored session.
func (p *Postgres) Remove(ctx context.Context, code string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM game_sessions WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("remove session %s: %w", code, err)
	}
	return nil
}

// RemoveInactiveSessions deletes rows idle since before the cutoff and
// returns the affected codes.
func (p *Postgres) RemoveInactiveSessions(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`DELETE FROM game_sessions WHERE updated_at < $1 RETURNING code`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("sweep sessions: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return codes, fmt.Errorf("scan swept code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
