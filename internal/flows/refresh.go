package flows

import (
	"context"
	"errors"
	"time"

	"github.com/pitchside/sessionauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level
// mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureSessionID
	RefreshFailureSecret
	RefreshFailureNotFound
	RefreshFailureExpired
	RefreshFailureRevoked
	RefreshFailureReuse
	RefreshFailureStore
	RefreshFailureIssueAccess
	RefreshFailureEncode
)

// RefreshResult carries either the issued token pair or failure metadata.
// CascadeRevoked reports how many lineage records the reuse cascade
// invalidated, for audit.
type RefreshResult struct {
	Failure        RefreshFailureKind
	Err            error
	SessionID      string
	UserID         string
	Record         *session.Record
	AccessToken    string
	RefreshToken   string
	CascadeRevoked int
}

type RefreshSessionStore interface {
	Rotate(ctx context.Context, sessionID string, providedHash, nextHash [32]byte, successorID string, successorTTL time.Duration) (*session.Record, error)
	RevokeLineageFrom(ctx context.Context, sessionID string, maxWalk int) (int, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	DecodeRefreshToken func(string) (string, [32]byte, error)
	NewSessionID       func() (string, error)
	NewRefreshSecret   func() ([32]byte, error)
	HashRefreshSecret  func([32]byte) [32]byte
	EncodeRefreshToken func(string, [32]byte) (string, error)
	IssueAccessToken   func(userID, sessionID string) (string, error)
	RefreshTTL         time.Duration
	MaxLineageWalk     int
	Warn               func(string, ...any)
	SessionStore       RefreshSessionStore
}

// RunRefresh executes refresh rotation: one atomic conditional transition
// in the store decides between exactly one successful rotation and the
// reuse-detection path. Reuse (an already-rotated credential, a hash
// mismatch, or losing a rotation race) revokes the entire remaining
// lineage before failing.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	sessionID, providedSecret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     err,
		}
	}

	successorID, err := deps.NewSessionID()
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureSessionID,
			Err:       err,
			SessionID: sessionID,
		}
	}

	nextSecret, err := deps.NewRefreshSecret()
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureSecret,
			Err:       err,
			SessionID: sessionID,
		}
	}

	successor, err := deps.SessionStore.Rotate(
		ctx,
		sessionID,
		deps.HashRefreshSecret(providedSecret),
		deps.HashRefreshSecret(nextSecret),
		successorID,
		deps.RefreshTTL,
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRotateReused),
			errors.Is(err, session.ErrRefreshHashMismatch):
			revoked, cascadeErr := deps.SessionStore.RevokeLineageFrom(ctx, sessionID, deps.MaxLineageWalk)
			if cascadeErr != nil && deps.Warn != nil {
				deps.Warn("sessionauth: reuse cascade incomplete")
			}
			return RefreshResult{
				Failure:        RefreshFailureReuse,
				Err:            err,
				SessionID:      sessionID,
				CascadeRevoked: revoked,
			}
		case errors.Is(err, session.ErrRotateRevoked):
			return RefreshResult{
				Failure:   RefreshFailureRevoked,
				Err:       err,
				SessionID: sessionID,
			}
		case errors.Is(err, session.ErrRotateNotFound):
			return RefreshResult{
				Failure:   RefreshFailureNotFound,
				Err:       err,
				SessionID: sessionID,
			}
		case errors.Is(err, session.ErrRotateExpired):
			return RefreshResult{
				Failure:   RefreshFailureExpired,
				Err:       err,
				SessionID: sessionID,
			}
		default:
			return RefreshResult{
				Failure:   RefreshFailureStore,
				Err:       err,
				SessionID: sessionID,
			}
		}
	}

	access, err := deps.IssueAccessToken(successor.UserID, successor.SessionID)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureIssueAccess,
			Err:       err,
			SessionID: successor.SessionID,
			UserID:    successor.UserID,
			Record:    successor,
		}
	}

	refresh, err := deps.EncodeRefreshToken(successor.SessionID, nextSecret)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureEncode,
			Err:       err,
			SessionID: successor.SessionID,
			UserID:    successor.UserID,
			Record:    successor,
		}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		SessionID:    successor.SessionID,
		UserID:       successor.UserID,
		Record:       successor,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
