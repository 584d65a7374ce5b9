package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/authz"
	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/middleware"
)

// AuditHandlers serves the audit log search endpoint.
type AuditHandlers struct {
	store  AuditSearcher
	engine *authz.Engine
}

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 500
)

// list searches the audit log. Requires audit:read; non-owner callers are
// additionally pinned to their own subtree regardless of the filters they
// send.
func (h *AuditHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.Principal(ctx)

	var actorOrg string
	if user != nil {
		actorOrg = user.OrganizationID
	}
	resource := authz.Resource{Type: authz.ResourceTypeAuditLog, OrganizationID: actorOrg}
	decision, err := h.engine.Authorize(ctx, user, resource, authz.OperationRead)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}

	if user.Role != auth.RoleOwner {
		accessible, err := h.engine.AccessibleOrganizationIDs(ctx, user)
		if err != nil {
			httputil.WriteInternalError(w, errors.New("internal error"))
			return
		}
		scope := make([]string, 0, len(accessible))
		for id := range accessible {
			scope = append(scope, id)
		}
		sort.Strings(scope)
		filter.OrganizationIDs = scope
	}

	events, err := h.store.Search(ctx, filter)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	total, err := h.store.Count(ctx, filter)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func parseAuditFilter(w http.ResponseWriter, r *http.Request) (audit.SearchFilter, bool) {
	var filter audit.SearchFilter

	limit, err := httputil.ParseQueryInt(r, "limit", auditDefaultLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return filter, false
	}
	if limit <= 0 || limit > auditMaxLimit {
		limit = auditDefaultLimit
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return filter, false
	}

	filter.Limit = limit
	filter.Offset = offset
	filter.UserID = httputil.ParseQueryString(r, "user_id", "")
	filter.ResourceID = httputil.ParseQueryString(r, "resource_id", "")
	filter.ResourceType = audit.ResourceType(httputil.ParseQueryString(r, "resource_type", ""))

	if raw := httputil.ParseQueryString(r, "event_type", ""); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.EventTypes = append(filter.EventTypes, audit.EventType(part))
			}
		}
	}
	if raw := httputil.ParseQueryString(r, "status", ""); raw != "" {
		status := audit.EventStatus(raw)
		filter.Status = &status
	}

	for key, dest := range map[string]**time.Time{"start": &filter.StartTime, "end": &filter.EndTime} {
		raw := httputil.ParseQueryString(r, key, "")
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid "+key+" timestamp, want RFC3339")
			return filter, false
		}
		*dest = &ts
	}

	return filter, true
}
