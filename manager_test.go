package sessionauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockUser struct {
	userID   string
	password string
}

type mockUserStore struct {
	byIdentifier map[string]mockUser
}

func (s *mockUserStore) VerifyCredentials(_ context.Context, identifier, secret string) (UserRecord, error) {
	u, ok := s.byIdentifier[identifier]
	if !ok || u.password != secret {
		return UserRecord{}, errors.New("unknown identifier or wrong password")
	}
	return UserRecord{UserID: u.userID, Identifier: identifier}, nil
}

func (s *mockUserStore) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	for identifier, u := range s.byIdentifier {
		if u.userID == userID {
			return UserRecord{UserID: u.userID, Identifier: identifier}, nil
		}
	}
	return UserRecord{}, errors.New("no such user")
}

func newTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func testConfig(t *testing.T) Config {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.JWT.Issuer = "sessionauth-test"
	cfg.Session.RefreshTTL = time.Hour
	return cfg
}

func newTestManager(t *testing.T, opts ...func(*Builder)) *Manager {
	t.Helper()

	builder := New().
		WithConfig(testConfig(t)).
		WithRedis(newTestRedis(t)).
		WithUserStore(&mockUserStore{
			byIdentifier: map[string]mockUser{
				"alice": {userID: "u1", password: "correct-horse-battery"},
				"bob":   {userID: "u2", password: "hunter2hunter2"},
			},
		})
	for _, opt := range opts {
		opt(builder)
	}

	m, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// newFaultableManager exposes the miniredis handle so tests can kill the
// backend mid-scenario.
func newFaultableManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m, err := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithUserStore(&mockUserStore{
			byIdentifier: map[string]mockUser{
				"alice": {userID: "u1", password: "correct-horse-battery"},
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m, mr
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", pair.TokenType)
	}

	identity, err := m.Verify(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != "u1" || identity.SessionID == "" {
		t.Fatalf("identity mismatch: %+v", identity)
	}
	if !identity.ExpiresAt.After(identity.IssuedAt) {
		t.Fatalf("identity lifetime not set: %+v", identity)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := m.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown identifier, got %v", err)
	}
}

func TestLoginUserBypassesCredentials(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.LoginUser(ctx, "u2")
	if err != nil {
		t.Fatalf("login user: %v", err)
	}
	identity, err := m.Verify(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != "u2" {
		t.Fatalf("expected u2, got %q", identity.UserID)
	}

	if _, err := m.LoginUser(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := m.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh returned the same token")
	}
	if _, err := m.Verify(ctx, second.AccessToken); err != nil {
		t.Fatalf("verify rotated access token: %v", err)
	}

	// Presenting the consumed token is reuse and kills the lineage.
	if _, err := m.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionReused) {
		t.Fatalf("expected ErrSessionReused, got %v", err)
	}

	// The cascade revoked the current head too.
	if _, err := m.Refresh(ctx, second.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after cascade, got %v", err)
	}
}

func TestReuseCascadeLeavesOtherLineagesAlone(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	compromised, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login 1: %v", err)
	}
	other, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login 2: %v", err)
	}

	rotated, err := m.Refresh(ctx, compromised.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := m.Refresh(ctx, compromised.RefreshToken); !errors.Is(err, ErrSessionReused) {
		t.Fatalf("expected reuse, got %v", err)
	}
	if _, err := m.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected revoked head, got %v", err)
	}

	// The independent lineage still refreshes.
	if _, err := m.Refresh(ctx, other.RefreshToken); err != nil {
		t.Fatalf("unrelated lineage was damaged: %v", err)
	}
}

func TestRefreshRejectsMalformedToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "AAAA!!"} {
		if _, err := m.Refresh(ctx, token); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("token %q: expected ErrRefreshInvalid, got %v", token, err)
		}
	}
}

func TestLogoutIsIdempotentAndKillsRefresh(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := m.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// Repeats and garbage succeed silently.
	if err := m.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := m.Logout(ctx, "not-a-token"); err != nil {
		t.Fatalf("garbage logout: %v", err)
	}

	if _, err := m.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected revoked session on refresh after logout, got %v", err)
	}

	// Logout does not recall outstanding access tokens.
	if _, err := m.Verify(ctx, pair.AccessToken); err != nil {
		t.Fatalf("access token should survive logout until expiry: %v", err)
	}
}

func TestLogoutAllForUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login 1: %v", err)
	}
	b, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login 2: %v", err)
	}
	other, err := m.Login(ctx, "bob", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login bob: %v", err)
	}

	ids, err := m.ActiveSessionIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 active sessions, got %v", ids)
	}

	revoked, err := m.LogoutAllForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revoked, got %d", revoked)
	}

	if _, err := m.Refresh(ctx, a.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("session a alive after logout all: %v", err)
	}
	if _, err := m.Refresh(ctx, b.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("session b alive after logout all: %v", err)
	}
	if _, err := m.Refresh(ctx, other.RefreshToken); err != nil {
		t.Fatalf("bob's session damaged by alice's logout all: %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
	if _, err := m.Verify(ctx, tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := m.Verify(ctx, ""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

// A dead backend must surface as ErrStoreUnavailable on every store-touching
// operation. A store fault during refresh in particular must never be
// classified as reuse or a missing session.
func TestStoreFaultSurfacesAsUnavailable(t *testing.T) {
	m, mr := newFaultableManager(t)
	ctx := context.Background()

	pair, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	mr.Close()

	if _, err := m.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("refresh against dead store: got %v, want ErrStoreUnavailable", err)
	}
	if err := m.Logout(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("logout against dead store: got %v, want ErrStoreUnavailable", err)
	}
	if _, err := m.LogoutAllForUser(ctx, "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("logout all against dead store: got %v, want ErrStoreUnavailable", err)
	}
	if _, err := m.ActiveSessionIDs(ctx, "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("active ids against dead store: got %v, want ErrStoreUnavailable", err)
	}

	// Fault classification stays out of the session-state sentinels.
	if _, err := m.Refresh(ctx, pair.RefreshToken); errors.Is(err, ErrSessionReused) ||
		errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("store fault misclassified as session state: %v", err)
	}

	// Offline verification keeps working without the store.
	if _, err := m.Verify(ctx, pair.AccessToken); err != nil {
		t.Fatalf("verify should not need the store: %v", err)
	}
}

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	ctx := context.Background()

	if _, err := m.Login(ctx, "a", "b"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if _, err := m.Refresh(ctx, "x"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if err := m.Logout(ctx, "x"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if _, err := m.Verify(ctx, "x"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	m.Close()
	if m.AuditDropped() != 0 {
		t.Fatal("nil manager dropped count should be zero")
	}
}
