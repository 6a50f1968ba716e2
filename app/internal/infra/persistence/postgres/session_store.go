package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkout_sessions (
    session_id TEXT PRIMARY KEY,
    state      JSONB       NOT NULL,
    version    BIGINT      NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const maxUpdateAttempts = 8

// querier is the part of pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionStore persists checkout snapshots as JSONB rows guarded by an
// optimistic version column, so several replicas can share sessions.
type SessionStore struct {
	db querier
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: pool}
}

func (s *SessionStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domcheckout.State, error) {
	var raw []byte
	var version int64
	err := s.db.QueryRow(ctx,
		`SELECT state, version FROM checkout_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domcheckout.State{}, domcheckout.ErrSessionNotFound
	}
	if err != nil {
		return domcheckout.State{}, err
	}
	var st domcheckout.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return domcheckout.State{}, fmt.Errorf("decode checkout session %s: %w", sessionID, err)
	}
	st.Version = version
	return st, nil
}

func (s *SessionStore) Put(ctx context.Context, st domcheckout.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO checkout_sessions (session_id, state, version, updated_at)
        VALUES ($1, $2, 1, $3)
        ON CONFLICT (session_id) DO UPDATE
        SET state = EXCLUDED.state,
            version = checkout_sessions.version + 1,
            updated_at = EXCLUDED.updated_at
    `, st.SessionID, raw, st.UpdatedAt)
	return err
}

func (s *SessionStore) Update(ctx context.Context, sessionID string, fn domcheckout.Mutator) (domcheckout.State, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		cur, err := s.Get(ctx, sessionID)
		if err != nil {
			return domcheckout.State{}, err
		}
		next, err := fn(cur)
		if err != nil {
			return domcheckout.State{}, err
		}
		next.SessionID = cur.SessionID
		next.Version = cur.Version + 1

		raw, err := json.Marshal(next)
		if err != nil {
			return domcheckout.State{}, err
		}
		tag, err := s.db.Exec(ctx, `
            UPDATE checkout_sessions
            SET state = $1, version = version + 1, updated_at = $2
            WHERE session_id = $3 AND version = $4
        `, raw, updatedAt(next), sessionID, cur.Version)
		if err != nil {
			return domcheckout.State{}, err
		}
		if tag.RowsAffected() == 1 {
			return next, nil
		}
	}
	return domcheckout.State{}, domcheckout.ErrSessionConflict
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM checkout_sessions WHERE session_id = $1`, sessionID)
	return err
}

// Prune deletes sessions idle since before.
func (s *SessionStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM checkout_sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func updatedAt(st domcheckout.State) time.Time {
	if st.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return st.UpdatedAt
}
