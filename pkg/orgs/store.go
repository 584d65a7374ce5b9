package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore implements Store over PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByID returns the organization with the given id, active or not.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, COALESCE(parent_id, ''), level, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.ParentID, &org.Level, &org.IsActive,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// FindChildren returns the active direct children of parentID.
func (s *PostgresStore) FindChildren(ctx context.Context, parentID string) ([]Organization, error) {
	query := `
		SELECT id, name, COALESCE(parent_id, ''), level, is_active, created_at, updated_at
		FROM organizations
		WHERE parent_id = $1 AND is_active = true
	`
	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()
	return scanOrganizations(rows)
}

// ListActive returns every active organization.
func (s *PostgresStore) ListActive(ctx context.Context) ([]Organization, error) {
	query := `
		SELECT id, name, COALESCE(parent_id, ''), level, is_active, created_at, updated_at
		FROM organizations
		WHERE is_active = true
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()
	return scanOrganizations(rows)
}

// Create inserts a new organization. The stored level is derived from the
// parent's level at creation time; traversal never trusts it afterwards.
func (s *PostgresStore) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	org.IsActive = true

	if org.ParentID != "" {
		parent, err := s.FindByID(ctx, org.ParentID)
		if err != nil {
			return fmt.Errorf("failed to resolve parent: %w", err)
		}
		if !parent.IsActive {
			return fmt.Errorf("parent organization %s is inactive", org.ParentID)
		}
		org.Level = parent.Level + 1
	} else {
		org.Level = 0
	}

	query := `
		INSERT INTO organizations (id, name, parent_id, level, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		org.ID, org.Name, org.ParentID, org.Level, org.IsActive,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// Deactivate soft-deletes an organization. Rows are never removed so audit
// history stays intact; the hierarchy simply stops traversing through it.
func (s *PostgresStore) Deactivate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivation result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOrganizations(rows *sql.Rows) ([]Organization, error) {
	var out []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(
			&org.ID, &org.Name, &org.ParentID, &org.Level, &org.IsActive,
			&org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}
