package flows

import (
	"context"
)

// LogoutFailureKind classifies logout flow outcomes.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureStore
)

// LogoutResult reports what logout did. Found is false when the
// credential did not decode or no live record existed; logout is
// idempotent so neither case is a failure.
type LogoutResult struct {
	Failure   LogoutFailureKind
	Err       error
	SessionID string
	Found     bool
}

type LogoutSessionStore interface {
	Revoke(ctx context.Context, sessionID string) (successorID string, found bool, err error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DecodeRefreshToken func(string) (string, [32]byte, error)
	SessionStore       LogoutSessionStore
}

// RunLogout revokes the session named by the refresh token. A malformed
// token and an absent or already-revoked record all succeed silently;
// only a store fault surfaces as an error.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	sessionID, _, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureNone}
	}

	_, found, err := deps.SessionStore.Revoke(ctx, sessionID)
	if err != nil {
		return LogoutResult{
			Failure:   LogoutFailureStore,
			Err:       err,
			SessionID: sessionID,
		}
	}
	return LogoutResult{
		Failure:   LogoutFailureNone,
		SessionID: sessionID,
		Found:     found,
	}
}
