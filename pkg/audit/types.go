package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"
	EventTypeAuthTokenReject EventType = "auth.token_reject"

	// Authorization events
	EventTypeAuthzAccessGranted EventType = "authz.access_granted"
	EventTypeAuthzAccessDenied  EventType = "authz.access_denied"

	// Data mutation events
	EventTypeTaskCreate EventType = "data.task_create"
	EventTypeTaskUpdate EventType = "data.task_update"
	EventTypeTaskDelete EventType = "data.task_delete"

	// Admin events
	EventTypeOrgCreate      EventType = "admin.org_create"
	EventTypeOrgDeactivate  EventType = "admin.org_deactivate"
	EventTypeUserCreate     EventType = "admin.user_create"
	EventTypeUserDeactivate EventType = "admin.user_deactivate"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource an event is about
type ResourceType string

const (
	ResourceTypeTask         ResourceType = "task"
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeAuditLog     ResourceType = "audit_log"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID         string `json:"user_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`

	// Resource
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	UserID         string
	OrganizationID string
	// OrganizationIDs restricts results to any of the given organizations.
	// Used to scope non-owner searches to the caller's subtree. Ignored when
	// empty.
	OrganizationIDs []string

	EventTypes []EventType
	Status     *EventStatus

	ResourceType ResourceType
	ResourceID   string

	Limit  int
	Offset int
}

// RetentionPolicy defines how long audit rows are kept before the cleanup
// job purges them.
type RetentionPolicy struct {
	RetentionDays int
	// Schedule is a cron expression; empty selects the default nightly run.
	Schedule string
}

// DefaultRetentionPolicy keeps 90 days of audit history.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		RetentionDays: 90,
		Schedule:      "0 3 * * *",
	}
}
