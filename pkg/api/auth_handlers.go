package api

import (
	"errors"
	"net/http"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/middleware"
	"github.com/turbovets/taskhub/pkg/observability"
	"github.com/turbovets/taskhub/pkg/users"
)

// AuthHandlers serves login and principal introspection.
type AuthHandlers struct {
	tokens *auth.TokenManager
	users  users.Store
	audit  audit.Logger
	logger *observability.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

// login authenticates by email and password and returns a signed token.
// Every failure path returns the same 401 so the response does not reveal
// whether the email exists.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	ctx := r.Context()
	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			h.logger.WithError(err).Error("login lookup failed")
			httputil.WriteInternalError(w, errors.New("internal error"))
			return
		}
		h.rejectLogin(w, r, req.Email, "unknown email")
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.rejectLogin(w, r, req.Email, "bad password")
		return
	}
	if !user.IsActive {
		h.rejectLogin(w, r, req.Email, "user is deactivated")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	if err := h.audit.LogAuthentication(ctx, audit.EventTypeAuthLogin, user.ID, audit.EventStatusSuccess, "login"); err != nil {
		h.logger.WithError(err).Warn("failed to record login audit event")
	}
	httputil.WriteSuccess(w, loginResponse{Token: token, User: user})
}

func (h *AuthHandlers) rejectLogin(w http.ResponseWriter, r *http.Request, email, reason string) {
	// The rejected identity is the submitted email, not a user id.
	if err := h.audit.LogAuthentication(r.Context(), audit.EventTypeAuthLoginFailed, email, audit.EventStatusFailure, reason); err != nil {
		h.logger.WithError(err).Warn("failed to record login audit event")
	}
	httputil.WriteUnauthorized(w, "invalid credentials")
}

type meResponse struct {
	User        *auth.User        `json:"user"`
	Permissions []auth.Permission `json:"permissions"`
}

// me returns the authenticated principal and its effective permissions.
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, meResponse{
		User:        user,
		Permissions: auth.PermissionsFor(user.Role),
	})
}
