// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/sopchecker/internal/adapters/http/swagger"
	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
	"github.com/okian/sopchecker/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UsersDependencies
	ListsDependencies
	ItemsDependencies
	HealthDependencies
}

// Server wires HTTP routes for the checklist API.
type Server struct {
	usersHandler  *UsersHandler
	listsHandler  *ListsHandler
	itemsHandler  *ItemsHandler
	healthHandler *HealthHandler

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("api")
	return &Server{
		usersHandler:  NewUsersHandler(deps, log),
		listsHandler:  NewListsHandler(deps, log),
		itemsHandler:  NewItemsHandler(deps, log),
		healthHandler: NewHealthHandler(deps),
		logger:        log,
	}
}

// Handler returns a router with middleware, the API routes, metrics and the
// API description mounted.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.StripSlashes,
		RequestID,
		AccessLog(s.logger),
		Metrics,
		Recover(s.logger),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	s.Register(ctx, r)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(ctx, r)
	return r
}

// Register attaches all API routes to r. Trailing slashes are stripped
// before routing, so "/lists/" and "/lists" reach the same handler.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)

	r.Get("/users", s.usersHandler.HandleListUsers)
	r.Get("/users/{user_id}/lists", s.usersHandler.HandleUserLists)

	r.Get("/lists", s.listsHandler.HandleListAll)
	r.Post("/lists/create", s.listsHandler.HandleCreate)
	r.Get("/lists/{list_id}", s.listsHandler.HandleGet)
	r.Put("/lists/{list_id}/update", s.listsHandler.HandleUpdate)
	r.Delete("/lists/{list_id}/delete", s.listsHandler.HandleDelete)

	r.Post("/items/{item_id}/toggle", s.itemsHandler.HandleToggle)
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps an operation error to a response. Not-found and payload errors
// are the only kinds told apart; everything else is a 500 carrying the
// error text.
func fail(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrListNotFound):
		writeError(w, http.StatusNotFound, model.ErrListNotFound)
	case errors.Is(err, model.ErrItemNotFound):
		writeError(w, http.StatusNotFound, model.ErrItemNotFound)
	case errors.Is(err, model.ErrInvalidPayload), errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidID):
		writeError(w, http.StatusBadRequest, err)
	default:
		log.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidID, name, raw)
	}
	return id, nil
}

// decodeObject reads a JSON object body.
func decodeObject(w http.ResponseWriter, r *http.Request) (model.Row, error) {
	var body model.Row
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object: %v", ErrBadRequest, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrBadRequest)
	}
	return body, nil
}
