package orgs

import (
	"context"
	"errors"
	"time"
)

// Organization represents a node in the organization tree.
type Organization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"` // empty for the root

	// Level is the denormalized depth from the root (root = 0). It is kept
	// for display and reporting; traversal always walks live parent/child
	// links and never trusts this field.
	Level int `json:"level"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound is returned by Store lookups for ids with no row.
var ErrNotFound = errors.New("organization not found")

// Store is the persistence collaborator the Directory traverses.
type Store interface {
	// FindByID returns the organization with the given id, active or not.
	// Returns ErrNotFound if no such row exists.
	FindByID(ctx context.Context, id string) (*Organization, error)

	// FindChildren returns the active direct children of parentID.
	FindChildren(ctx context.Context, parentID string) ([]Organization, error)

	// ListActive returns every active organization. Used for batch-loaded
	// in-memory traversal and for the Owner bulk accessibility query.
	ListActive(ctx context.Context) ([]Organization, error)
}
