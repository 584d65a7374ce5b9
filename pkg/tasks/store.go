package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store is the persistence surface the task service depends on.
type Store interface {
	FindByID(ctx context.Context, id string) (*Task, error)
	// List returns tasks belonging to any of the given organizations,
	// narrowed by filter. An empty orgIDs slice yields no rows.
	List(ctx context.Context, orgIDs []string, filter ListFilter) ([]*Task, error)
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
}

// PostgresStore implements Store over PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const taskColumns = `id, title, description, status, priority, category,
	organization_id, created_by_id, COALESCE(assigned_to_id, ''),
	due_date, completed_at, created_at, updated_at`

// FindByID returns the task with the given id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// List returns tasks in the given organizations matching the filter,
// newest first unless the filter asks otherwise.
func (s *PostgresStore) List(ctx context.Context, orgIDs []string, filter ListFilter) ([]*Task, error) {
	if len(orgIDs) == 0 {
		return []*Task{}, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE organization_id = ANY($1)`
	args := []interface{}{pq.Array(orgIDs)}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Priority != "" {
		add("priority = $%d", string(filter.Priority))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.AssignedToID != "" {
		add("assigned_to_id = $%d", filter.AssignedToID)
	}
	if filter.CreatedByID != "" {
		add("created_by_id = $%d", filter.CreatedByID)
	}

	query += " ORDER BY " + orderClause(filter.SortBy)

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func orderClause(sortBy string) string {
	switch strings.ToLower(sortBy) {
	case "due_date":
		return "due_date ASC NULLS LAST, created_at DESC"
	case "priority":
		// urgent first
		return `CASE priority
			WHEN 'urgent' THEN 0 WHEN 'high' THEN 1
			WHEN 'medium' THEN 2 ELSE 3 END, created_at DESC`
	default:
		return "created_at DESC"
	}
}

// Create inserts a new task, assigning an id when absent.
func (s *PostgresStore) Create(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tasks (id, title, description, status, priority, category,
			organization_id, created_by_id, assigned_to_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority, task.Category,
		task.OrganizationID, task.CreatedByID, task.AssignedToID, task.DueDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update writes all mutable fields of the task.
func (s *PostgresStore) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
			category = $6, assigned_to_id = NULLIF($7, ''), due_date = $8,
			completed_at = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		task.Category, task.AssignedToID, task.DueDate, task.CompletedAt,
	).Scan(&task.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes a task permanently.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Task, error) {
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return task, err
}

func scanTask(row rowScanner) (*Task, error) {
	task := &Task{}
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority, &task.Category,
		&task.OrganizationID, &task.CreatedByID, &task.AssignedToID,
		&task.DueDate, &task.CompletedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}
