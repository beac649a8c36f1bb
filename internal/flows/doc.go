// Package flows contains the protocol logic of login, refresh rotation,
// logout, and access verification as pure Run* functions over injected
// dependencies. Each flow returns a result with a closed failure-kind enum
// so the root package can map outcomes to sentinels, metrics, and audit
// events exhaustively.
//
// Flows never log, never retry, and never touch metrics or audit directly;
// they only decide.
package flows
