package sessionauth

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/pitchside/sessionauth/internal"
	"github.com/pitchside/sessionauth/internal/audit"
	"github.com/pitchside/sessionauth/internal/flows"
	"github.com/pitchside/sessionauth/jwt"
)

// tokenTypeBearer is the TokenType on every issued pair.
const tokenTypeBearer = "bearer"

// Manager is the session lifecycle facade. Construct one with [New] and
// [Builder.Build]; all methods are safe for concurrent use.
type Manager struct {
	config       Config
	userStore    UserStore
	sessionStore SessionStore
	jwtManager   *jwt.Manager
	metrics      *Metrics
	audit        *audit.Dispatcher
}

// Close flushes and stops the audit dispatcher. The Manager must not be
// used after Close.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.audit.Close()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) emitAudit(ctx context.Context, event AuditEvent) {
	if m == nil || m.audit == nil {
		return
	}
	event.IP = clientIPFromContext(ctx)
	event.UserAgent = userAgentFromContext(ctx)
	m.audit.Emit(ctx, event)
}

// Login verifies the identifier/secret pair against the user store and,
// on success, opens a new session lineage and returns its first token
// pair. Every failure surfaces as ErrInvalidCredentials; the underlying
// reason goes to the audit sink only.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (TokenPair, error) {
	if m == nil {
		return TokenPair{}, ErrManagerNotReady
	}

	result := flows.RunLogin(ctx, identifier, secret, m.loginDeps())
	return m.finishLogin(ctx, result)
}

// LoginUser opens a new session lineage for an already-authenticated
// user id, bypassing credential verification. Intended for hosts that
// authenticate through an external mechanism (OAuth callback, SSO).
func (m *Manager) LoginUser(ctx context.Context, userID string) (TokenPair, error) {
	if m == nil {
		return TokenPair{}, ErrManagerNotReady
	}

	result := flows.RunLoginUser(ctx, userID, m.loginDeps())
	return m.finishLogin(ctx, result)
}

func (m *Manager) loginDeps() flows.LoginDeps {
	return flows.LoginDeps{
		VerifyCredentials: func(ctx context.Context, identifier, secret string) (string, error) {
			user, err := m.userStore.VerifyCredentials(ctx, identifier, secret)
			if err != nil {
				return "", err
			}
			return user.UserID, nil
		},
		GetUserByID: func(ctx context.Context, userID string) (string, error) {
			user, err := m.userStore.GetUserByID(ctx, userID)
			if err != nil {
				return "", err
			}
			return user.UserID, nil
		},
		NewSessionID: func() (string, error) {
			sid, err := internal.NewSessionID()
			if err != nil {
				return "", err
			}
			return sid.String(), nil
		},
		NewRefreshSecret:   internal.NewRefreshSecret,
		HashRefreshSecret:  internal.HashRefreshSecret,
		EncodeRefreshToken: internal.EncodeRefreshToken,
		IssueAccessToken:   m.jwtManager.Issue,
		Now:                time.Now,
		RefreshTTL:         m.config.Session.RefreshTTL,
		SessionStore:       m.sessionStore,
	}
}

func (m *Manager) finishLogin(ctx context.Context, result flows.LoginResult) (TokenPair, error) {
	if result.Failure != flows.LoginFailureNone {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			UserID:    result.UserID,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})

		switch result.Failure {
		case flows.LoginFailureCredentials:
			return TokenPair{}, ErrInvalidCredentials
		case flows.LoginFailureUserLookup:
			return TokenPair{}, ErrUserNotFound
		case flows.LoginFailureSave:
			m.metrics.Inc(MetricStoreUnavailable)
			return TokenPair{}, ErrStoreUnavailable
		default:
			return TokenPair{}, result.Err
		}
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.metrics.Inc(MetricSessionCreated)
	m.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginSuccess,
		UserID:    result.UserID,
		SessionID: result.SessionID,
		Success:   true,
	})
	m.emitAudit(ctx, AuditEvent{
		EventType: AuditSessionCreated,
		UserID:    result.UserID,
		SessionID: result.SessionID,
		Success:   true,
	})

	return TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
	}, nil
}

// Refresh exchanges a live refresh token for a fresh token pair. The old
// refresh token is dead after this call regardless of outcome on the
// client side: presenting it again triggers reuse detection and revokes
// the whole lineage.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if m == nil {
		return TokenPair{}, ErrManagerNotReady
	}

	result := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		DecodeRefreshToken: internal.DecodeRefreshToken,
		NewSessionID: func() (string, error) {
			sid, err := internal.NewSessionID()
			if err != nil {
				return "", err
			}
			return sid.String(), nil
		},
		NewRefreshSecret:   internal.NewRefreshSecret,
		HashRefreshSecret:  internal.HashRefreshSecret,
		EncodeRefreshToken: internal.EncodeRefreshToken,
		IssueAccessToken:   m.jwtManager.Issue,
		RefreshTTL:         m.config.Session.RefreshTTL,
		MaxLineageWalk:     m.config.Session.MaxLineageWalk,
		Warn:               log.Printf,
		SessionStore:       m.sessionStore,
	})

	if result.Failure == flows.RefreshFailureNone {
		m.metrics.Inc(MetricRefreshSuccess)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshSuccess,
			UserID:    result.UserID,
			SessionID: result.SessionID,
			Success:   true,
		})
		return TokenPair{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    tokenTypeBearer,
		}, nil
	}

	m.metrics.Inc(MetricRefreshFailure)

	switch result.Failure {
	case flows.RefreshFailureDecode:
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			Error:     result.Err.Error(),
		})
		return TokenPair{}, ErrRefreshInvalid

	case flows.RefreshFailureReuse:
		m.metrics.Inc(MetricRefreshReuseDetected)
		m.metrics.Add(MetricLineageRevoked, uint64(result.CascadeRevoked))
		m.metrics.Add(MetricSessionRevoked, uint64(result.CascadeRevoked))
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshReuse,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditLineageRevoked,
			SessionID: result.SessionID,
			Success:   true,
			Metadata: map[string]string{
				"revoked_count": strconv.Itoa(result.CascadeRevoked),
			},
		})
		return TokenPair{}, ErrSessionReused

	case flows.RefreshFailureRevoked:
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		return TokenPair{}, ErrSessionRevoked

	case flows.RefreshFailureNotFound:
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		return TokenPair{}, ErrSessionNotFound

	case flows.RefreshFailureExpired:
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		return TokenPair{}, ErrSessionExpired

	case flows.RefreshFailureStore:
		m.metrics.Inc(MetricStoreUnavailable)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditStoreUnavailable,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		return TokenPair{}, ErrStoreUnavailable

	default:
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			UserID:    result.UserID,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		return TokenPair{}, result.Err
	}
}

// Logout revokes the session named by the refresh token. It is
// idempotent: revoking an absent, expired, or already-revoked session
// succeeds. Outstanding access tokens stay valid until their own expiry.
func (m *Manager) Logout(ctx context.Context, refreshToken string) error {
	if m == nil {
		return ErrManagerNotReady
	}

	result := flows.RunLogout(ctx, refreshToken, flows.LogoutDeps{
		DecodeRefreshToken: internal.DecodeRefreshToken,
		SessionStore:       m.sessionStore,
	})
	if result.Failure == flows.LogoutFailureStore {
		m.metrics.Inc(MetricStoreUnavailable)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditStoreUnavailable,
			SessionID: result.SessionID,
			Error:     result.Err.Error(),
		})
		return ErrStoreUnavailable
	}

	m.metrics.Inc(MetricLogout)
	if result.Found {
		m.metrics.Inc(MetricSessionRevoked)
	}
	m.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		SessionID: result.SessionID,
		Success:   true,
	})
	return nil
}

// LogoutAllForUser revokes every live session lineage belonging to
// userID and returns how many records were revoked.
func (m *Manager) LogoutAllForUser(ctx context.Context, userID string) (int, error) {
	if m == nil {
		return 0, ErrManagerNotReady
	}

	revoked, err := m.sessionStore.RevokeAllForUser(ctx, userID)
	if err != nil {
		m.metrics.Inc(MetricStoreUnavailable)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditStoreUnavailable,
			UserID:    userID,
			Error:     err.Error(),
		})
		return revoked, ErrStoreUnavailable
	}

	m.metrics.Inc(MetricLogoutAll)
	m.metrics.Add(MetricSessionRevoked, uint64(revoked))
	m.emitAudit(ctx, AuditEvent{
		EventType: AuditLogoutAll,
		UserID:    userID,
		Success:   true,
		Metadata: map[string]string{
			"revoked_count": strconv.Itoa(revoked),
		},
	})
	return revoked, nil
}

// ActiveSessionIDs lists the session ids of userID's currently active
// lineages, one per logged-in device or client.
func (m *Manager) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	ids, err := m.sessionStore.ActiveSessionIDs(ctx, userID)
	if err != nil {
		m.metrics.Inc(MetricStoreUnavailable)
		return nil, ErrStoreUnavailable
	}
	return ids, nil
}

// Verify checks an access token offline and returns the authenticated
// identity. No store round trip happens here: a token issued before a
// revocation stays valid until its own expiry, which is why access TTLs
// are kept short.
func (m *Manager) Verify(ctx context.Context, accessToken string) (Identity, error) {
	if m == nil {
		return Identity{}, ErrManagerNotReady
	}

	start := time.Now()
	result := flows.RunVerify(accessToken, flows.VerifyDeps{
		ParseAccessToken: func(token string) (flows.VerifiedClaims, error) {
			claims, err := m.jwtManager.Parse(token)
			if err != nil {
				return flows.VerifiedClaims{}, err
			}
			vc := flows.VerifiedClaims{
				UserID:    claims.UID,
				SessionID: claims.SID,
			}
			if claims.IssuedAt != nil {
				vc.IssuedAt = claims.IssuedAt.Time
			}
			if claims.ExpiresAt != nil {
				vc.ExpiresAt = claims.ExpiresAt.Time
			}
			return vc, nil
		},
		IsExpired: jwt.IsExpired,
	})
	m.metrics.Observe(MetricVerifyLatency, time.Since(start))

	switch result.Failure {
	case flows.VerifyFailureNone:
		m.metrics.Inc(MetricVerifySuccess)
		return Identity{
			UserID:    result.Claims.UserID,
			SessionID: result.Claims.SessionID,
			IssuedAt:  result.Claims.IssuedAt,
			ExpiresAt: result.Claims.ExpiresAt,
		}, nil
	case flows.VerifyFailureExpired:
		m.metrics.Inc(MetricVerifyFailure)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditVerifyFailure,
			Error:     result.Err.Error(),
		})
		return Identity{}, ErrTokenExpired
	default:
		m.metrics.Inc(MetricVerifyFailure)
		m.emitAudit(ctx, AuditEvent{
			EventType: AuditVerifyFailure,
			Error:     result.Err.Error(),
		})
		return Identity{}, ErrTokenInvalid
	}
}
