package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/turbovets/taskhub/pkg/audit"
	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/authz"
	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/middleware"
	"github.com/turbovets/taskhub/pkg/orgs"
)

// OrgHandlers serves the organization directory and its administrative
// surface. Creating a child organization is treated as an update of the
// parent's subtree, so it requires org:update there; creating a new root
// carries no parent and only passes for roles that bypass scoping.
type OrgHandlers struct {
	directory *orgs.Directory
	store     orgs.Store
	admin     OrgAdminStore
	engine    *authz.Engine
	audit     audit.Logger
}

// list returns every organization the caller can see, ordered by depth then
// name.
func (h *OrgHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.Principal(ctx)

	accessible, err := h.engine.AccessibleOrganizationIDs(ctx, user)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	visible, err := h.resolveOrgs(ctx, accessible)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"organizations": visible, "count": len(visible)})
}

func (h *OrgHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.Principal(ctx)
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	org, err := h.store.FindByID(ctx, id)
	if errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	if !h.requireRead(w, ctx, user, id) {
		return
	}
	httputil.WriteSuccess(w, org)
}

// descendants returns the subtree rooted at the requested organization.
// The caller must be able to read the subtree root; the body is then the
// directory's answer, not re-filtered per node.
func (h *OrgHandlers) descendants(w http.ResponseWriter, r *http.Request) {
	h.related(w, r, h.directory.Descendants)
}

// ancestors returns the chain from the requested organization up to its
// root.
func (h *OrgHandlers) ancestors(w http.ResponseWriter, r *http.Request) {
	h.related(w, r, h.directory.Ancestors)
}

func (h *OrgHandlers) related(w http.ResponseWriter, r *http.Request, resolve func(context.Context, string) (map[string]struct{}, error)) {
	ctx := r.Context()
	user := middleware.Principal(ctx)
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if !h.requireRead(w, ctx, user, id) {
		return
	}

	ids, err := resolve(ctx, id)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	result, err := h.resolveOrgs(ctx, ids)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"organizations": result, "count": len(result)})
}

type createOrgRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

func (h *OrgHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.Principal(ctx)

	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	resource := authz.Resource{Type: authz.ResourceTypeOrganization, OrganizationID: req.ParentID}
	decision, err := h.engine.Authorize(ctx, user, resource, authz.OperationUpdate)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	if !decision.Allowed {
		writeDenied(w, decision)
		return
	}

	// The store derives the stored level from the parent; the handler only
	// pre-validates so a bad parent reads as 400 rather than 500.
	if req.ParentID != "" {
		parent, err := h.store.FindByID(ctx, req.ParentID)
		if errors.Is(err, orgs.ErrNotFound) {
			httputil.WriteValidationError(w, "parent organization not found")
			return
		}
		if err != nil {
			httputil.WriteInternalError(w, errors.New("internal error"))
			return
		}
		if !parent.IsActive {
			httputil.WriteValidationError(w, "parent organization is deactivated")
			return
		}
	}

	org := &orgs.Organization{
		Name:     req.Name,
		ParentID: req.ParentID,
	}
	if err := h.admin.Create(ctx, org); err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	h.audit.LogDataMutation(ctx, audit.EventTypeOrgCreate, user.ID, audit.ResourceTypeOrganization, org.ID, "organization created")
	httputil.WriteCreated(w, org)
}

// deactivate soft-deletes an organization. Its subtree drops out of every
// hierarchy answer once the cached descendant sets expire.
func (h *OrgHandlers) deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.Principal(ctx)
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.FindByID(ctx, id); errors.Is(err, orgs.ErrNotFound) {
		httputil.WriteNotFoundError(w, "organization not found")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	resource := authz.Resource{Type: authz.ResourceTypeOrganization, ID: id, OrganizationID: id}
	decision, err := h.engine.Authorize(ctx, user, resource, authz.OperationDelete)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}
	if !decision.Allowed {
		// Callers who cannot even read the organization get a 404 so the
		// denial does not confirm its existence.
		readable, err := h.canRead(ctx, user, id)
		if err != nil {
			httputil.WriteInternalError(w, errors.New("internal error"))
			return
		}
		if !readable {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		writeDenied(w, decision)
		return
	}

	if err := h.admin.Deactivate(ctx, id); err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("internal error"))
		return
	}

	h.audit.LogDataMutation(ctx, audit.EventTypeOrgDeactivate, user.ID, audit.ResourceTypeOrganization, id, "organization deactivated")
	httputil.WriteNoContent(w)
}

// requireRead authorizes a read of the given organization and writes the
// error response itself on failure. Denials surface as 404.
func (h *OrgHandlers) requireRead(w http.ResponseWriter, ctx context.Context, user *auth.User, id string) bool {
	readable, err := h.canRead(ctx, user, id)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("internal error"))
		return false
	}
	if !readable {
		httputil.WriteNotFoundError(w, "organization not found")
		return false
	}
	return true
}

func (h *OrgHandlers) canRead(ctx context.Context, user *auth.User, id string) (bool, error) {
	resource := authz.Resource{Type: authz.ResourceTypeOrganization, ID: id, OrganizationID: id}
	decision, err := h.engine.Authorize(ctx, user, resource, authz.OperationRead)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// resolveOrgs maps a set of ids to their active organization records, ordered
// by depth then name. Ids with no active record are silently dropped.
func (h *OrgHandlers) resolveOrgs(ctx context.Context, ids map[string]struct{}) ([]orgs.Organization, error) {
	all, err := h.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]orgs.Organization, 0, len(ids))
	for _, org := range all {
		if _, ok := ids[org.ID]; ok {
			result = append(result, org)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level < result[j].Level
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}
