// Package sessionauth implements the session and token lifecycle core of a
// platform backend: paired JWT access tokens and rotating opaque refresh
// tokens, with refresh reuse detection, lineage-wide revocation cascade, and
// explicit logout.
//
// The package is designed for concurrent server workloads: Manager methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessionauth is the public surface. It exposes [Manager], [Builder],
// [Config], and value types (TokenPair, Identity, MetricsSnapshot, etc.).
// Flow orchestration and audit dispatch live under internal/ and are never
// exported. Credential verification and user storage belong to the host
// application behind the [UserStore] interface; HTTP extraction and status
// mapping belong to the gateway (see middleware and examples/http-minimal).
//
// # What this package must NOT do
//
//   - Expose Redis or Postgres clients, store internals, or encoding details
//     in its public API.
//   - Retry session or token failures internally; every failure is terminal
//     for the request.
//   - Distinguish failure kinds to the end client. The fine-grained
//     sentinels exist for audit and monitoring; gateways must collapse all
//     of them to a single unauthorized outcome.
//
// # Performance contract
//
// Verify is the hot path. It is pure signature and expiry checking and must
// complete without a store round-trip. Login, Refresh, and Logout are
// allowed one store round-trip per call (the refresh rotation is a single
// atomic compare-and-swap inside the store).
package sessionauth
