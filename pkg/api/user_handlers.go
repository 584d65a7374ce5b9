package api

import (
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/authz"
	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/middleware"
	"github.com/turbovets/taskhub/pkg/users"
)

// UserHandlers serves the user administration surface.
type UserHandlers struct {
	users  users.Store
	admin  UserAdminStore
	engine *authz.Engine
	audit  audit.Logger
}

type createUserRequest struct {
	Email          string    `json:"email"`
	Password       string    `json:"password"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	OrganizationID string    `json:"organization_id"`
	Role           auth.Role `json:"role"`
}

func (h *UserHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.Principal(ctx)

	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") ||
		!httputil.RequireNonEmpty(w, req.OrganizationID, "organization_id") {
		return
	}
	if !auth.ValidRole(req.Role) {
		httputil.WriteValidationError(w, "invalid role")
		return
	}

	resource := authz.Resource{Type: authz.ResourceTypeUser, OrganizationID: req.OrganizationID}
	decision, err := h.engine.Authorize(ctx, actor, resource, authz.OperationCreate)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	user := &auth.User{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		OrganizationID: req.OrganizationID,
		Role:           req.Role,
		PasswordHash:   hash,
	}
	if err := h.admin.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			httputil.WriteConflict(w, "email already in use")
			return
		}
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	h.audit.LogDataMutation(ctx, audit.EventTypeUserCreate, actor.ID, audit.ResourceTypeUser, user.ID, "user created")
	httputil.WriteCreated(w, user)
}

func (h *UserHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.Principal(ctx)
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.users.FindByID(ctx, id)
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	resource := authz.Resource{Type: authz.ResourceTypeUser, ID: id, OrganizationID: user.OrganizationID}
	decision, err := h.engine.Authorize(ctx, actor, resource, authz.OperationRead)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	if !decision.Allowed {
		// Out-of-scope users read as absent.
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *UserHandlers) deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.Principal(ctx)
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if actor != nil && actor.ID == id {
		httputil.WriteValidationError(w, "cannot deactivate your own account")
		return
	}

	target, err := h.users.FindByID(ctx, id)
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	resource := authz.Resource{Type: authz.ResourceTypeUser, ID: id, OrganizationID: target.OrganizationID}
	decision, err := h.engine.Authorize(ctx, actor, resource, authz.OperationDelete)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	if !decision.Allowed {
		readDecision, err := h.engine.Authorize(ctx, actor, resource, authz.OperationRead)
		if err != nil {
			httputil.WriteInternalError(w, errors.New("internal error"))
			return
		}
		if !readDecision.Allowed {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		writeDenied(w, decision)
		return
	}

	if err := h.admin.Deactivate(ctx, id); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	h.audit.LogDataMutation(ctx, audit.EventTypeUserDeactivate, actor.ID, audit.ResourceTypeUser, id, "user deactivated")
	httputil.WriteNoContent(w)
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
