package api

import (
	"context"
	"net/http"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
)

// UsersDependencies defines the user-facing read operations.
type UsersDependencies interface {
	ListUsers(ctx context.Context) ([]model.Row, error)
	UserChecklists(ctx context.Context, userID int64) ([]model.Row, error)
}

// UsersHandler handles /users requests.
type UsersHandler struct {
	deps   UsersDependencies
	logger logger.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UsersDependencies, log logger.Logger) *UsersHandler {
	return &UsersHandler{deps: deps, logger: log}
}

// HandleListUsers handles GET /users/ requests.
func (h *UsersHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.ListUsers(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleUserLists handles GET /users/{user_id}/lists/ requests.
func (h *UsersHandler) HandleUserLists(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	lists, err := h.deps.UserChecklists(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}
