package audit

import (
	"context"
	"net/http"
	"time"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// LogRoleMutation logs a role create/delete event
	LogRoleMutation(ctx context.Context, eventType EventType, roleType, roleName string, status EventStatus, errMessage string) error

	// LogSidMutation logs a sid bind/unbind event
	LogSidMutation(ctx context.Context, eventType EventType, roleType, roleName, sid string, status EventStatus, errMessage string) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// contextKey is the type for context keys
type contextKey string

// AuditLoggerKey is the context key for the audit logger
const AuditLoggerKey contextKey = "audit_logger"

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(AuditLoggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// NewNoOpLogger returns a logger that discards every event
func NewNoOpLogger() Logger {
	return &noOpLogger{}
}

type noOpLogger struct{}

func (l *noOpLogger) Log(ctx context.Context, event *Event) error {
	return nil
}

func (l *noOpLogger) LogRoleMutation(ctx context.Context, eventType EventType, roleType, roleName string, status EventStatus, errMessage string) error {
	return nil
}

func (l *noOpLogger) LogSidMutation(ctx context.Context, eventType EventType, roleType, roleName, sid string, status EventStatus, errMessage string) error {
	return nil
}

func (l *noOpLogger) Close() error {
	return nil
}

// buildEvent creates a role administration event with common fields set
func buildEvent(eventType EventType, roleType, roleName string, status EventStatus, errMessage string) *Event {
	return &Event{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       status,
		RoleType:     roleType,
		RoleName:     roleName,
		ErrorMessage: errMessage,
	}
}

// RequestContext copies request fields onto an event so handlers can attach
// where an operation came from
func RequestContext(event *Event, r *http.Request) *Event {
	if r == nil {
		return event
	}
	event.Method = r.Method
	event.Path = r.URL.Path
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		event.IPAddress = xff
	} else {
		event.IPAddress = r.RemoteAddr
	}
	return event
}
