package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/authz"
	"github.com/turbovets/taskhub/pkg/observability"
)

// Service applies authorization and business rules around the task store.
type Service struct {
	store  Store
	engine *authz.Engine
	audit  audit.Logger
	logger *observability.Logger
}

// NewService creates a task service. The audit logger may be
// audit.NopLogger{} when auditing is disabled.
func NewService(store Store, engine *authz.Engine, auditLogger audit.Logger, logger *observability.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Service{
		store:  store,
		engine: engine,
		audit:  auditLogger,
		logger: logger,
	}
}

// Create creates a task in the actor's own organization. The owning
// organization is never taken from the input, so tasks cannot be planted
// into other parts of the hierarchy.
func (s *Service) Create(ctx context.Context, user *auth.User, input CreateInput) (*Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !ValidPriority(input.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	resource := authz.Resource{
		Type:           authz.ResourceTypeTask,
		OrganizationID: userOrg(user),
	}
	decision, err := s.engine.Authorize(ctx, user, resource, authz.OperationCreate)
	if err != nil {
		return nil, fmt.Errorf("authorization check failed: %w", err)
	}
	if !decision.Allowed {
		s.auditDeny(ctx, user, "", decision)
		return nil, ErrForbidden
	}

	task := &Task{
		Title:          input.Title,
		Description:    input.Description,
		Status:         StatusTodo,
		Priority:       input.Priority,
		Category:       input.Category,
		OrganizationID: user.OrganizationID,
		CreatedByID:    user.ID,
		AssignedToID:   input.AssignedToID,
		DueDate:        input.DueDate,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}

	s.audit.LogDataMutation(ctx, audit.EventTypeTaskCreate, user.ID, audit.ResourceTypeTask, task.ID, "task created")
	return task, nil
}

// Get returns a task the actor may read. Tasks outside the actor's scope
// are reported as not found.
func (s *Service) Get(ctx context.Context, user *auth.User, id string) (*Task, error) {
	task, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decision, err := s.engine.Authorize(ctx, user, taskResource(task), authz.OperationRead)
	if err != nil {
		return nil, fmt.Errorf("authorization check failed: %w", err)
	}
	if !decision.Allowed {
		s.auditDeny(ctx, user, task.ID, decision)
		return nil, ErrNotFound
	}
	return task, nil
}

// List returns the tasks visible to the actor, already scoped to the
// organizations the actor can reach.
func (s *Service) List(ctx context.Context, user *auth.User, filter ListFilter) ([]*Task, error) {
	orgIDs, err := s.engine.AccessibleOrganizationIDs(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accessible organizations: %w", err)
	}

	ids := make([]string, 0, len(orgIDs))
	for id := range orgIDs {
		ids = append(ids, id)
	}
	return s.store.List(ctx, ids, filter)
}

// Update applies a partial update. Transitioning into completed stamps
// CompletedAt; leaving it clears the stamp.
func (s *Service) Update(ctx context.Context, user *auth.User, id string, input UpdateInput) (*Task, error) {
	task, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeMutation(ctx, user, task, authz.OperationUpdate); err != nil {
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !ValidStatus(*input.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *input.Status)
		}
		applyStatus(task, *input.Status)
	}
	if input.Priority != nil {
		if !ValidPriority(*input.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.Category != nil {
		task.Category = *input.Category
	}
	if input.AssignedToID != nil {
		task.AssignedToID = *input.AssignedToID
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.store.Update(ctx, task); err != nil {
		return nil, err
	}

	s.audit.LogDataMutation(ctx, audit.EventTypeTaskUpdate, user.ID, audit.ResourceTypeTask, task.ID, "task updated")
	return task, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, user *auth.User, id string) error {
	task, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizeMutation(ctx, user, task, authz.OperationDelete); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogDataMutation(ctx, audit.EventTypeTaskDelete, user.ID, audit.ResourceTypeTask, id, "task deleted")
	return nil
}

// authorizeMutation decides update/delete access. A task the actor could not
// even read is reported as not found; a visible task the actor may not
// mutate is a plain denial.
func (s *Service) authorizeMutation(ctx context.Context, user *auth.User, task *Task, op authz.Operation) error {
	decision, err := s.engine.Authorize(ctx, user, taskResource(task), op)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if decision.Allowed {
		return nil
	}
	s.auditDeny(ctx, user, task.ID, decision)

	readDecision, err := s.engine.Authorize(ctx, user, taskResource(task), authz.OperationRead)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !readDecision.Allowed {
		return ErrNotFound
	}
	return ErrForbidden
}

func (s *Service) auditDeny(ctx context.Context, user *auth.User, taskID string, decision authz.Decision) {
	userID := ""
	if user != nil {
		userID = user.ID
	}
	s.audit.LogAuthorization(ctx, userID, audit.ResourceTypeTask, taskID, audit.EventStatusDenied, decision.Reason)
}

func applyStatus(task *Task, next Status) {
	prev := task.Status
	task.Status = next
	switch {
	case next == StatusCompleted && prev != StatusCompleted:
		now := time.Now().UTC()
		task.CompletedAt = &now
	case next != StatusCompleted && prev == StatusCompleted:
		task.CompletedAt = nil
	}
}

func taskResource(task *Task) authz.Resource {
	return authz.Resource{
		Type:           authz.ResourceTypeTask,
		ID:             task.ID,
		OrganizationID: task.OrganizationID,
		CreatedByID:    task.CreatedByID,
	}
}

func userOrg(user *auth.User) string {
	if user == nil {
		return ""
	}
	return user.OrganizationID
}

// IsNotFound reports whether err is the task-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
