package sessionauth

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the user store rejects
	// the identifier/secret pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by LoginUser when the user id does not
	// resolve to an account.
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshInvalid is returned when a presented refresh token cannot be
	// decoded into a session id and secret.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrSessionNotFound is returned when the presented session id has no
	// record in the session store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the presented session record exists
	// but its refresh lifetime has elapsed.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionRevoked is returned when the presented session record was
	// revoked by logout or by an earlier reuse cascade.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrSessionReused is returned when an already-rotated refresh credential
	// is presented again. Detection revokes the entire rotation lineage
	// before this error is returned.
	ErrSessionReused = errors.New("refresh token reuse detected")
	// ErrTokenInvalid is returned by Verify for access tokens with a bad
	// signature, wrong signing key, or malformed claims.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrTokenExpired is returned by Verify for well-signed access tokens
	// past their expiry.
	ErrTokenExpired = errors.New("access token expired")
	// ErrStoreUnavailable is returned when the session store cannot be
	// reached or times out. Callers must treat the operation outcome as
	// unknown and must not retry a refresh with the same presented token.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrManagerNotReady is returned when a Manager method is called on a
	// nil or unbuilt manager.
	ErrManagerNotReady = errors.New("manager not initialized")
)
