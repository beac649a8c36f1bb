package flows

import (
	"time"
)

// VerifyFailureKind classifies access token verification failures.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureExpired
	VerifyFailureInvalid
)

// VerifiedClaims is the subset of access token claims callers get back.
type VerifiedClaims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifyDeps captures verification dependencies. IsExpired decides
// whether a parse error means the token was valid but past its window.
type VerifyDeps struct {
	ParseAccessToken func(string) (VerifiedClaims, error)
	IsExpired        func(error) bool
}

// VerifyResult carries the verified claims or the failure class.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Claims  VerifiedClaims
}

// RunVerify checks an access token offline. No store round trip: a token
// remains valid until its own expiry even after the session was revoked.
func RunVerify(token string, deps VerifyDeps) VerifyResult {
	claims, err := deps.ParseAccessToken(token)
	if err != nil {
		if deps.IsExpired != nil && deps.IsExpired(err) {
			return VerifyResult{Failure: VerifyFailureExpired, Err: err}
		}
		return VerifyResult{Failure: VerifyFailureInvalid, Err: err}
	}
	return VerifyResult{Failure: VerifyFailureNone, Claims: claims}
}
