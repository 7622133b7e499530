package authkit

import (
	"context"
	"io"
	"time"

	"github.com/fintrackhq/authkit/internal/audit"
)

// AuditEvent is re-exported so host applications can consume events without
// importing internal packages.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = audit.Sink

// Audit event types emitted by the engine.
const (
	AuditRegister = "register"
	AuditLogin    = "login"
	AuditRefresh  = "refresh"
	AuditLogout   = "logout"
)

// NewAuditChannelSink returns a sink that forwards events into a buffered
// channel readable via Events().
func NewAuditChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewAuditJSONSink returns a sink that writes one JSON event per line.
func NewAuditJSONSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// emitAudit hands the event to the dispatcher; a nil dispatcher (audit
// disabled) makes this a no-op.
func (e *Engine) emitAudit(ctx context.Context, eventType, userID, email string, success bool, opErr error) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIP(ctx),
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	e.audit.Emit(ctx, event)
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full. Zero when audit is disabled.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}
