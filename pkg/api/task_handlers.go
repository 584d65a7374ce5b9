package api

import (
	"errors"
	"net/http"

	"github.com/turbovets/taskhub/pkg/httputil"
	"github.com/turbovets/taskhub/pkg/middleware"
	"github.com/turbovets/taskhub/pkg/tasks"
)

// TaskHandlers serves the task CRUD surface. All authorization happens in
// the task service; handlers only translate HTTP to service calls.
type TaskHandlers struct {
	tasks *tasks.Service
}

func (h *TaskHandlers) list(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())

	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	filter := tasks.ListFilter{
		Status:       tasks.Status(httputil.ParseQueryString(r, "status", "")),
		Priority:     tasks.Priority(httputil.ParseQueryString(r, "priority", "")),
		Category:     httputil.ParseQueryString(r, "category", ""),
		AssignedToID: httputil.ParseQueryString(r, "assigned_to", ""),
		CreatedByID:  httputil.ParseQueryString(r, "created_by", ""),
		SortBy:       httputil.ParseQueryString(r, "sort", ""),
		Limit:        limit,
		Offset:       offset,
	}

	result, err := h.tasks.List(r.Context(), user, filter)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"tasks": result, "count": len(result)})
}

func (h *TaskHandlers) create(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())

	var input tasks.CreateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	task, err := h.tasks.Create(r.Context(), user, input)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	httputil.WriteCreated(w, task)
}

func (h *TaskHandlers) get(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), user, id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

func (h *TaskHandlers) update(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var input tasks.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	task, err := h.tasks.Update(r.Context(), user, id, input)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

func (h *TaskHandlers) delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), user, id); err != nil {
		writeTaskError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// writeTaskError maps task service errors to their HTTP form.
func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tasks.ErrValidation):
		httputil.WriteValidationError(w, err.Error())
	case errors.Is(err, tasks.ErrNotFound):
		httputil.WriteNotFoundError(w, "task not found")
	case errors.Is(err, tasks.ErrForbidden):
		httputil.WriteForbidden(w, "access denied")
	default:
		httputil.WriteInternalError(w, errors.New("internal error"))
	}
}
