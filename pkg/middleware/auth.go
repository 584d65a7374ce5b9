package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/observability"
	"github.com/turbovets/taskhub/pkg/users"
)

// AuthMiddleware authenticates requests with bearer tokens and loads the
// principal into the request context.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	users  users.Store
	audit  audit.Logger
	logger *observability.Logger
}

// NewAuthMiddleware creates an AuthMiddleware. The audit logger may be
// audit.NopLogger{} when auditing is disabled.
func NewAuthMiddleware(tokens *auth.TokenManager, userStore users.Store, auditLogger audit.Logger, logger *observability.Logger) *AuthMiddleware {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &AuthMiddleware{
		tokens: tokens,
		users:  userStore,
		audit:  auditLogger,
		logger: logger,
	}
}

// Handler rejects requests without a valid token. The user record is always
// reloaded from the store so revoked or deactivated accounts lose access
// immediately, before their tokens expire.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokenString, ok := bearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "missing or malformed Authorization header")
			return
		}

		userID, err := m.tokens.Verify(tokenString)
		if err != nil {
			m.audit.LogAuthentication(ctx, audit.EventTypeAuthTokenReject, "", audit.EventStatusFailure, err.Error())
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		user, err := m.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				m.audit.LogAuthentication(ctx, audit.EventTypeAuthTokenReject, userID, audit.EventStatusFailure, "token subject no longer exists")
				httputil.WriteUnauthorized(w, "invalid or expired token")
				return
			}
			m.logger.WithRequestID(ctx).WithError(err).Error("failed to load user for token subject")
			httputil.WriteInternalError(w, errors.New("internal server error"))
			return
		}

		if !user.IsActive {
			m.audit.LogAuthentication(ctx, audit.EventTypeAuthTokenReject, userID, audit.EventStatusFailure, "user is deactivated")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx = WithPrincipal(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
