// Package audit provides the structured audit event model and asynchronous
// dispatch used by the session manager. Every login, refresh, logout, and
// reuse-cascade decision emits one event; sinks receive them off the
// request path.
//
// # Architecture boundaries
//
// This package owns event buffering and delivery. Event naming and the
// decision of what to emit belong to the root package. Sinks are supplied
// by the host and must tolerate concurrent Emit calls.
package audit
