package api

import (
	"context"
	"net/http"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
)

// ListsDependencies defines the checklist operations.
type ListsDependencies interface {
	ListChecklists(ctx context.Context) ([]model.Row, error)
	GetChecklist(ctx context.Context, id int64) (model.Row, error)
	CreateChecklist(ctx context.Context, payload model.Row) (model.Row, error)
	UpdateChecklist(ctx context.Context, id int64, fields model.Row) (model.Row, error)
	DeleteChecklist(ctx context.Context, id int64) error
}

const deletedMessage = "List deleted successfully"

// ListsHandler handles /lists requests.
type ListsHandler struct {
	deps   ListsDependencies
	logger logger.Logger
}

// NewListsHandler creates a new lists handler.
func NewListsHandler(deps ListsDependencies, log logger.Logger) *ListsHandler {
	return &ListsHandler{deps: deps, logger: log}
}

// HandleListAll handles GET /lists/ requests.
func (h *ListsHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	lists, err := h.deps.ListChecklists(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleCreate handles POST /lists/create/ requests.
func (h *ListsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(w, r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	list, err := h.deps.CreateChecklist(r.Context(), payload)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HandleGet handles GET /lists/{list_id}/ requests.
func (h *ListsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "list_id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	list, err := h.deps.GetChecklist(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleUpdate handles PUT /lists/{list_id}/update/ requests.
func (h *ListsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "list_id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	fields, err := decodeObject(w, r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	list, err := h.deps.UpdateChecklist(r.Context(), id, fields)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleDelete handles DELETE /lists/{list_id}/delete/ requests. A missing
// list still reports success.
func (h *ListsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "list_id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.deps.DeleteChecklist(r.Context(), id); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: deletedMessage})
}
