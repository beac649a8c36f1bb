package flows

import (
	"context"
	"time"

	"github.com/pitchside/sessionauth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureCredentials
	LoginFailureUserLookup
	LoginFailureSessionID
	LoginFailureSecret
	LoginFailureSave
	LoginFailureIssueAccess
	LoginFailureEncode
)

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	UserID       string
	SessionID    string
	AccessToken  string
	RefreshToken string
}

type LoginSessionStore interface {
	Save(ctx context.Context, rec *session.Record, ttl time.Duration) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	VerifyCredentials  func(context.Context, string, string) (string, error)
	GetUserByID        func(context.Context, string) (string, error)
	NewSessionID       func() (string, error)
	NewRefreshSecret   func() ([32]byte, error)
	HashRefreshSecret  func([32]byte) [32]byte
	EncodeRefreshToken func(string, [32]byte) (string, error)
	IssueAccessToken   func(userID, sessionID string) (string, error)
	Now                func() time.Time
	RefreshTTL         time.Duration
	SessionStore       LoginSessionStore
}

// RunLogin verifies credentials and opens a new rotation lineage. A user
// may hold arbitrarily many concurrent lineages, one per device or client;
// no prior state is consulted.
func RunLogin(ctx context.Context, identifier, secret string, deps LoginDeps) LoginResult {
	userID, err := deps.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureCredentials,
			Err:     err,
		}
	}

	return RunLoginUser(ctx, userID, deps)
}

// RunLoginUser opens a new rotation lineage for an already-authenticated
// user id: one fresh Active session record plus an access token.
func RunLoginUser(ctx context.Context, userID string, deps LoginDeps) LoginResult {
	if deps.GetUserByID != nil {
		resolved, err := deps.GetUserByID(ctx, userID)
		if err != nil {
			return LoginResult{
				Failure: LoginFailureUserLookup,
				Err:     err,
				UserID:  userID,
			}
		}
		userID = resolved
	}

	sessionID, err := deps.NewSessionID()
	if err != nil {
		return LoginResult{
			Failure: LoginFailureSessionID,
			Err:     err,
			UserID:  userID,
		}
	}

	refreshSecret, err := deps.NewRefreshSecret()
	if err != nil {
		return LoginResult{
			Failure: LoginFailureSecret,
			Err:     err,
			UserID:  userID,
		}
	}

	now := deps.Now()
	rec := &session.Record{
		SessionID:   sessionID,
		UserID:      userID,
		Status:      session.StatusActive,
		RefreshHash: deps.HashRefreshSecret(refreshSecret),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(deps.RefreshTTL).Unix(),
	}
	if err := deps.SessionStore.Save(ctx, rec, deps.RefreshTTL); err != nil {
		return LoginResult{
			Failure:   LoginFailureSave,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}

	access, err := deps.IssueAccessToken(userID, sessionID)
	if err != nil {
		return LoginResult{
			Failure:   LoginFailureIssueAccess,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}

	refresh, err := deps.EncodeRefreshToken(sessionID, refreshSecret)
	if err != nil {
		return LoginResult{
			Failure:   LoginFailureEncode,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}

	return LoginResult{
		Failure:      LoginFailureNone,
		UserID:       userID,
		SessionID:    sessionID,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
