package api

import (
	"context"
	"net/http"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
)

// ItemsDependencies defines the item operations.
type ItemsDependencies interface {
	ToggleItem(ctx context.Context, id int64) (model.Row, error)
}

// ItemsHandler handles /items requests.
type ItemsHandler struct {
	deps   ItemsDependencies
	logger logger.Logger
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(deps ItemsDependencies, log logger.Logger) *ItemsHandler {
	return &ItemsHandler{deps: deps, logger: log}
}

// HandleToggle handles POST /items/{item_id}/toggle/ requests.
func (h *ItemsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item_id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	item, err := h.deps.ToggleItem(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
