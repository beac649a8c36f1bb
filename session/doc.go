// Package session provides durable storage for refresh session records: the
// per-lineage state machine (Active → Rotated → Revoked) behind refresh
// token rotation and reuse detection.
//
// # Design
//
// Records are encoded in a fixed-offset binary layout so the Redis Lua
// scripts can inspect status and expiry and patch status/successor bytes in
// place without a Go round-trip. Rotation is a single Lua compare-and-swap:
// it transitions the presented record from Active to Rotated, links the
// successor, and creates the successor record atomically. Exactly one of
// any number of concurrent rotations of the same record can win.
//
// Revoked and Rotated records are kept (under their remaining TTL) rather
// than deleted, so a later presentation of a consumed or revoked credential
// is classified as reuse or revocation instead of not-found.
//
// # Architecture boundaries
//
// This package owns record encoding and store access. Protocol policy —
// what reuse means, when to cascade — lives in the root package and
// internal/flows. The PostgreSQL backend lives in session/pgstore and
// shares this package's model and sentinel errors.
package session
