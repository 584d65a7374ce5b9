package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/authz"
	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/middleware"
	"github.com/turbovets/taskhub/pkg/observability"
	"github.com/turbovets/taskhub/pkg/orgs"
	"github.com/turbovets/taskhub/pkg/tasks"
	"github.com/turbovets/taskhub/pkg/users"
)

// OrgAdminStore is the mutating slice of the organization store used by the
// administrative endpoints.
type OrgAdminStore interface {
	Create(ctx context.Context, org *orgs.Organization) error
	Deactivate(ctx context.Context, id string) error
}

// UserAdminStore is the mutating slice of the user store used by the
// administrative endpoints.
type UserAdminStore interface {
	Create(ctx context.Context, user *auth.User) error
	Deactivate(ctx context.Context, id string) error
}

// AuditSearcher queries persisted audit events.
type AuditSearcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.SearchFilter) (int64, error)
}

// Deps carries everything the server wires together.
type Deps struct {
	Tokens    *auth.TokenManager
	Users     users.Store
	UserAdmin UserAdminStore
	Tasks     *tasks.Service
	Directory *orgs.Directory
	OrgStore  orgs.Store
	OrgAdmin  OrgAdminStore
	Engine    *authz.Engine

	AuditStore AuditSearcher
	Audit      audit.Logger

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// RateLimit is an optional middleware applied to every route.
	RateLimit func(http.Handler) http.Handler

	CORSAllowedOrigins []string
	MaxRequestBytes    int64
}

// Server is the TaskHub HTTP API.
type Server struct {
	router  *mux.Router
	handler http.Handler
	deps    Deps
}

// NewServer creates the API server and wires all routes.
func NewServer(deps Deps) *Server {
	if deps.Audit == nil {
		deps.Audit = audit.NopLogger{}
	}
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(deps.Logger),
		httputil.RecoveryMiddleware(deps.Logger),
	}
	if len(deps.CORSAllowedOrigins) > 0 {
		chain = append(chain, httputil.CORSMiddleware(deps.CORSAllowedOrigins))
	}
	chain = append(chain, httputil.ContentTypeMiddleware)
	if deps.MaxRequestBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(deps.MaxRequestBytes))
	}
	if deps.Metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	s.handler = httputil.Chain(chain...)(s.router)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	authHandlers := &AuthHandlers{
		tokens: s.deps.Tokens,
		users:  s.deps.Users,
		audit:  s.deps.Audit,
		logger: s.deps.Logger,
	}
	taskHandlers := &TaskHandlers{tasks: s.deps.Tasks}
	orgHandlers := &OrgHandlers{
		directory: s.deps.Directory,
		store:     s.deps.OrgStore,
		admin:     s.deps.OrgAdmin,
		engine:    s.deps.Engine,
		audit:     s.deps.Audit,
	}
	userHandlers := &UserHandlers{
		users:  s.deps.Users,
		admin:  s.deps.UserAdmin,
		engine: s.deps.Engine,
		audit:  s.deps.Audit,
	}
	auditHandlers := &AuditHandlers{
		store:  s.deps.AuditStore,
		engine: s.deps.Engine,
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/login", authHandlers.login).Methods("POST")

	// Everything else requires a principal
	protected := api.NewRoute().Subrouter()
	authMW := middleware.NewAuthMiddleware(s.deps.Tokens, s.deps.Users, s.deps.Audit, s.deps.Logger)
	protected.Use(authMW.Handler)
	if s.deps.RateLimit != nil {
		protected.Use(s.deps.RateLimit)
	}

	protected.HandleFunc("/auth/me", authHandlers.me).Methods("GET")

	protected.HandleFunc("/tasks", taskHandlers.list).Methods("GET")
	protected.HandleFunc("/tasks", taskHandlers.create).Methods("POST")
	protected.HandleFunc("/tasks/{id}", taskHandlers.get).Methods("GET")
	protected.HandleFunc("/tasks/{id}", taskHandlers.update).Methods("PATCH")
	protected.HandleFunc("/tasks/{id}", taskHandlers.delete).Methods("DELETE")

	protected.HandleFunc("/organizations", orgHandlers.list).Methods("GET")
	protected.HandleFunc("/organizations", orgHandlers.create).Methods("POST")
	protected.HandleFunc("/organizations/{id}", orgHandlers.get).Methods("GET")
	protected.HandleFunc("/organizations/{id}", orgHandlers.deactivate).Methods("DELETE")
	protected.HandleFunc("/organizations/{id}/descendants", orgHandlers.descendants).Methods("GET")
	protected.HandleFunc("/organizations/{id}/ancestors", orgHandlers.ancestors).Methods("GET")

	protected.HandleFunc("/users", userHandlers.create).Methods("POST")
	protected.HandleFunc("/users/{id}", userHandlers.get).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandlers.deactivate).Methods("DELETE")

	protected.HandleFunc("/audit-log", auditHandlers.list).Methods("GET")
}

// writeDenied maps an authorization denial to its HTTP form. The denial kind
// stays server-side; clients get a generic message.
func writeDenied(w http.ResponseWriter, decision authz.Decision) {
	if decision.Kind == authz.DenyNotAuthenticated {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteForbidden(w, "access denied")
}
