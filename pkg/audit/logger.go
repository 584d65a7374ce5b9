package audit

import (
	"context"
	"time"

	"github.com/turbovets/taskhub/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs a fully-formed audit event
	Log(ctx context.Context, event *Event) error

	// LogAuthentication logs a login attempt or token validation outcome
	LogAuthentication(ctx context.Context, eventType EventType, userID string, status EventStatus, message string) error

	// LogAuthorization logs an access decision for a resource
	LogAuthorization(ctx context.Context, userID string, resourceType ResourceType, resourceID string, status EventStatus, message string) error

	// LogDataMutation logs a create/update/delete of a domain entity
	LogDataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, message string) error

	// Close flushes and releases the logger
	Close() error
}

// buildBaseEvent fills the fields every event shares, pulling request
// context from ctx when present.
func buildBaseEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
	if requestID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok {
		event.RequestID = requestID
	}
	return event
}

// NopLogger discards all events. Used in tests and when auditing is
// disabled by configuration.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }

func (NopLogger) LogAuthentication(ctx context.Context, eventType EventType, userID string, status EventStatus, message string) error {
	return nil
}

func (NopLogger) LogAuthorization(ctx context.Context, userID string, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return nil
}

func (NopLogger) LogDataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, message string) error {
	return nil
}

func (NopLogger) Close() error { return nil }
