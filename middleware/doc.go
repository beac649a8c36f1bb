// Package middleware exposes net/http adapters for access token
// enforcement built on top of Manager verification.
//
// [Guard] reads the Authorization header, calls Manager.Verify, and
// injects the authenticated [sessionauth.Identity] into the request
// context, retrievable with [IdentityFromContext]. Every rejection is
// a uniform 401; the fine-grained reason is available only through the
// manager's audit sink.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Manager calls. It does
// NOT implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Manager).
//   - Touch the session store (verification is offline).
//   - Reveal which check failed in the HTTP response.
package middleware
