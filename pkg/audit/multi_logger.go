package audit

import (
	"context"
	"sync"
)

// MultiLogger fans audit events out to multiple loggers.
type MultiLogger struct {
	loggers []Logger
	async   bool
	wg      sync.WaitGroup
}

// NewMultiLogger creates a multi-logger that writes to every destination.
// Asynchronous by default; failures in one destination never block another.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
		async:   true,
	}
}

// SetAsync sets whether logging should be asynchronous.
func (m *MultiLogger) SetAsync(async bool) {
	m.async = async
}

// Log logs an audit event to all configured loggers.
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	if len(m.loggers) == 0 {
		return nil
	}
	if m.async {
		for _, logger := range m.loggers {
			m.wg.Add(1)
			go func(l Logger) {
				defer m.wg.Done()
				// Detach from the request context: the audit write should
				// survive the request being cancelled.
				_ = l.Log(context.WithoutCancel(ctx), event)
			}(logger)
		}
		return nil
	}

	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogAuthentication logs a login attempt or token validation outcome
func (m *MultiLogger) LogAuthentication(ctx context.Context, eventType EventType, userID string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, eventType, status)
	event.UserID = userID
	event.ResourceType = ResourceTypeUser
	event.Message = message
	return m.Log(ctx, event)
}

// LogAuthorization logs an access decision for a resource
func (m *MultiLogger) LogAuthorization(ctx context.Context, userID string, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	eventType := EventTypeAuthzAccessGranted
	if status == EventStatusDenied {
		eventType = EventTypeAuthzAccessDenied
	}
	event := buildBaseEvent(ctx, eventType, status)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	return m.Log(ctx, event)
}

// LogDataMutation logs a create/update/delete of a domain entity
func (m *MultiLogger) LogDataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	return m.Log(ctx, event)
}

// Close waits for in-flight async writes and closes every logger.
func (m *MultiLogger) Close() error {
	m.wg.Wait()
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
