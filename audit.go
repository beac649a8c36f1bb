package sessionauth

import (
	"io"

	"github.com/pitchside/sessionauth/internal/audit"
)

// AuditEvent is the record delivered to the configured [AuditSink]. The
// event type and error text carry the fine-grained failure reason that
// client-facing errors deliberately omit.
type AuditEvent = audit.Event

// AuditSink receives audit events from the manager's async dispatcher.
// Implementations must be safe for concurrent use.
type AuditSink = audit.Sink

// NoOpAuditSink discards every event.
type NoOpAuditSink = audit.NoOpSink

// ChannelAuditSink buffers events on a channel for in-process consumers.
type ChannelAuditSink = audit.ChannelSink

// JSONAuditSink writes one JSON object per event line.
type JSONAuditSink = audit.JSONWriterSink

// NewChannelAuditSink returns a sink buffering up to buffer events.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONAuditSink returns a sink writing JSON lines to w.
func NewJSONAuditSink(w io.Writer) *JSONAuditSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types emitted by the Manager.
const (
	AuditLoginSuccess     = "login_success"
	AuditLoginFailure     = "login_failure"
	AuditSessionCreated   = "session_created"
	AuditRefreshSuccess   = "refresh_success"
	AuditRefreshFailure   = "refresh_failure"
	AuditRefreshReuse     = "refresh_reuse_detected"
	AuditLineageRevoked   = "lineage_revoked"
	AuditLogout           = "logout"
	AuditLogoutAll        = "logout_all"
	AuditVerifyFailure    = "verify_failure"
	AuditStoreUnavailable = "store_unavailable"
)
