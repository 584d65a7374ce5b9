package tasks

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of work owned by an organization.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Category    string   `json:"category,omitempty"`

	OrganizationID string `json:"organization_id"`
	CreatedByID    string `json:"created_by_id"`
	AssignedToID   string `json:"assigned_to_id,omitempty"`

	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateInput are the caller-supplied fields for a new task. The owning
// organization is always the actor's own and is not part of the input.
type CreateInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     Priority   `json:"priority"`
	Category     string     `json:"category"`
	AssignedToID string     `json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
}

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *Status    `json:"status"`
	Priority     *Priority  `json:"priority"`
	Category     *string    `json:"category"`
	AssignedToID *string    `json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
}

// ListFilter narrows task listings. Zero values mean no filtering on that
// field.
type ListFilter struct {
	Status       Status
	Priority     Priority
	Category     string
	AssignedToID string
	CreatedByID  string

	// SortBy accepts "created_at", "due_date", or "priority";
	// empty sorts by creation time, newest first.
	SortBy string

	Limit  int
	Offset int
}

var (
	// ErrNotFound is returned when a task does not exist or the actor is
	// not allowed to know it exists.
	ErrNotFound = errors.New("task not found")

	// ErrForbidden is returned when the actor can see the task but is not
	// allowed to perform the operation.
	ErrForbidden = errors.New("access denied")

	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("invalid input")
)
