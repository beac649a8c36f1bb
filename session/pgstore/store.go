package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchside/sessionauth/session"
)

// schema is the backing table. Status values match session.Status.
const schema = `
CREATE TABLE IF NOT EXISTS refresh_sessions (
	session_id   TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	status       SMALLINT NOT NULL DEFAULT 0,
	successor_id TEXT,
	refresh_hash BYTEA NOT NULL,
	created_at   BIGINT NOT NULL,
	expires_at   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS refresh_sessions_user_idx
	ON refresh_sessions (user_id) WHERE status = 0;
`

// Store is a PostgreSQL-backed session store. It satisfies the same
// interface as [session.Store] and reuses that package's sentinels.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing connection pool. The pool stays owned by
// the caller.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the backing table and index if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return nil
}

// Save persists a new record.
func (s *Store) Save(ctx context.Context, rec *session.Record, ttl time.Duration) error {
	if rec.UserID == "" {
		return errors.New("userID required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_sessions
			(session_id, user_id, status, successor_id, refresh_hash, created_at, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		rec.SessionID, rec.UserID, int16(rec.Status), rec.SuccessorID,
		rec.RefreshHash[:], rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return nil
}

// Get retrieves a record by session id.
func (s *Store) Get(ctx context.Context, sessionID string) (*session.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, status, COALESCE(successor_id, ''), refresh_hash, created_at, expires_at
		FROM refresh_sessions WHERE session_id = $1`,
		sessionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return rec, nil
}

// Rotate atomically transitions the presented record from Active to
// Rotated and inserts the successor as the lineage's new Active head.
// The row lock taken by FOR UPDATE serializes concurrent rotations of
// the same record; the loser re-reads a Rotated row and classifies as
// reuse, matching the Redis store.
func (s *Store) Rotate(
	ctx context.Context,
	sessionID string,
	providedHash, nextHash [32]byte,
	successorID string,
	successorTTL time.Duration,
) (*session.Record, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanRecord(tx.QueryRow(ctx, `
		SELECT session_id, user_id, status, COALESCE(successor_id, ''), refresh_hash, created_at, expires_at
		FROM refresh_sessions WHERE session_id = $1 FOR UPDATE`,
		sessionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrRotateNotFound
		}
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}

	now := time.Now()
	switch {
	case current.Status == session.StatusRevoked:
		return nil, session.ErrRotateRevoked
	case current.Status == session.StatusRotated:
		return nil, session.ErrRotateReused
	case current.ExpiresAt <= now.Unix():
		return nil, session.ErrRotateExpired
	case current.RefreshHash != providedHash:
		return nil, session.ErrRefreshHashMismatch
	}

	if _, err := tx.Exec(ctx, `
		UPDATE refresh_sessions SET status = $2, successor_id = $3
		WHERE session_id = $1`,
		sessionID, int16(session.StatusRotated), successorID,
	); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}

	successor := &session.Record{
		SessionID:   successorID,
		UserID:      current.UserID,
		Status:      session.StatusActive,
		RefreshHash: nextHash,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(successorTTL).Unix(),
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO refresh_sessions
			(session_id, user_id, status, refresh_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		successor.SessionID, successor.UserID, int16(successor.Status),
		successor.RefreshHash[:], successor.CreatedAt, successor.ExpiresAt,
	); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return successor, nil
}

// Revoke marks the record Revoked regardless of current status and
// reports its successor id. Idempotent.
func (s *Store) Revoke(ctx context.Context, sessionID string) (string, bool, error) {
	var successorID string
	err := s.pool.QueryRow(ctx, `
		UPDATE refresh_sessions SET status = $2
		WHERE session_id = $1
		RETURNING COALESCE(successor_id, '')`,
		sessionID, int16(session.StatusRevoked),
	).Scan(&successorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return successorID, true, nil
}

// RevokeLineageFrom walks successor pointers forward from sessionID and
// revokes every visited record. Returns the number of records revoked.
func (s *Store) RevokeLineageFrom(ctx context.Context, sessionID string, maxWalk int) (int, error) {
	seen := make(map[string]struct{})
	revoked := 0

	id := sessionID
	for id != "" && len(seen) < maxWalk {
		if _, dup := seen[id]; dup {
			break
		}
		seen[id] = struct{}{}

		successor, found, err := s.Revoke(ctx, id)
		if err != nil {
			return revoked, err
		}
		if found {
			revoked++
		}
		id = successor
	}

	return revoked, nil
}

// RevokeAllForUser revokes every non-revoked record of a user in one
// statement.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_sessions SET status = $2
		WHERE user_id = $1 AND status <> $2`,
		userID, int16(session.StatusRevoked),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// ActiveSessionIDs lists the user's live Active records.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id FROM refresh_sessions
		WHERE user_id = $1 AND status = 0 AND expires_at > $2`,
		userID, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return ids, nil
}

// DeleteExpired removes rows past their expiry. Unlike Redis there is
// no TTL, so hosts should run this on a timer.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_sessions WHERE expires_at <= $1`,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*session.Record, error) {
	var (
		rec    session.Record
		status int16
		hash   []byte
	)
	if err := row.Scan(
		&rec.SessionID, &rec.UserID, &status, &rec.SuccessorID,
		&hash, &rec.CreatedAt, &rec.ExpiresAt,
	); err != nil {
		return nil, err
	}
	rec.Status = session.Status(status)
	if len(hash) != len(rec.RefreshHash) {
		return nil, session.ErrRecordCorrupt
	}
	copy(rec.RefreshHash[:], hash)
	return &rec, nil
}
