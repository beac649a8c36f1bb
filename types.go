package sessionauth

import (
	"context"
	"time"

	"github.com/pitchside/sessionauth/session"
)

// UserRecord is the minimal account shape the core needs from the host's
// user database. Credential storage and profile data stay on the host side.
type UserRecord struct {
	UserID     string
	Identifier string
}

// UserStore is the credential-verification capability consumed by the
// Manager. Implementations own password hashing (see the password package
// for an argon2id helper) and user lookup; the core never sees secrets
// beyond this boundary.
type UserStore interface {
	// VerifyCredentials returns the user record for a valid
	// identifier/secret pair. Any error is reported to callers as
	// ErrInvalidCredentials; the underlying reason is audit-only.
	VerifyCredentials(ctx context.Context, identifier, secret string) (UserRecord, error)
	// GetUserByID resolves a user id to an account record.
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// SessionStore is the durable keyed store for refresh session records. It is
// satisfied by [session.Store] (Redis) and [pgstore.Store] (PostgreSQL).
//
// Implementations must make Rotate an atomic conditional transition on a
// single record and must make Revoke durable before returning, so that a
// concurrent reuse check never observes a stale Active status.
type SessionStore interface {
	Save(ctx context.Context, rec *session.Record, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Record, error)
	Rotate(ctx context.Context, sessionID string, providedHash, nextHash [32]byte, successorID string, successorTTL time.Duration) (*session.Record, error)
	Revoke(ctx context.Context, sessionID string) (successorID string, found bool, err error)
	RevokeLineageFrom(ctx context.Context, sessionID string, maxWalk int) (int, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	ActiveSessionIDs(ctx context.Context, userID string) ([]string, error)
}

// TokenPair is the credential pair returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // always "bearer"
}

// Identity is the authenticated principal extracted from a verified access
// token.
type Identity struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
