// Package pgstore is a PostgreSQL session store with the same rotation
// and revocation semantics as the Redis store in the parent package.
// Rotation runs as a single serializable unit: a row lock on the
// presented record decides between exactly one successful rotation and
// the reuse path. Expired rows are not dropped eagerly; run
// [Store.DeleteExpired] periodically.
package pgstore
