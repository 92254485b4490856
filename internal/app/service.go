// Package service provides the checklist operations behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/sopchecker/internal/adapters/repository"
	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/internal/domain/reshape"
	"github.com/okian/sopchecker/pkg/logger"
	"github.com/okian/sopchecker/pkg/metrics"
)

// Outcomes reported for checklist creation.
const (
	createOK         = "ok"
	createFailed     = "error"
	createRolledBack = "rolled_back"
)

// Service implements the API dependencies on top of a row store.
type Service struct {
	mu sync.Mutex

	store    repository.Store
	tables   model.Tables
	now      func() time.Time
	rollback bool

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the row store the service reads and writes.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTables overrides the table names.
func WithTables(tables model.Tables) Option {
	return func(s *Service) {
		if tables.Users != "" {
			s.tables.Users = tables.Users
		}
		if tables.Lists != "" {
			s.tables.Lists = tables.Lists
		}
		if tables.Items != "" {
			s.tables.Items = tables.Items
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for checked_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRollbackOnItemFailure makes CreateChecklist delete the new list when
// inserting its items fails. Without it a failed item insert leaves the list
// in place, items-less.
func WithRollbackOnItemFailure(enabled bool) Option {
	return func(s *Service) {
		s.rollback = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tables: model.DefaultTables(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Start checks that the store is reachable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}
	s.started = true
	s.logger.Info(ctx, "checklist service started",
		logger.String("lists", s.tables.Lists),
		logger.String("items", s.tables.Items),
		logger.Bool("rollbackOnItemFailure", s.rollback),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "checklist service stopped")
}

// Ping reports whether the store answers.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Ping(ctx)
}

// listQuery selects checklists with both user references embedded.
func (s *Service) listQuery() repository.Query {
	return repository.From(s.tables.Lists).
		Embed(model.RelAssignedUser, s.tables.Users, model.ColAssignedUserID).
		Embed(model.RelCreatedBy, s.tables.Users, model.ColCreatedByID)
}

// ListUsers returns every user row as stored.
func (s *Service) ListUsers(ctx context.Context) ([]model.Row, error) {
	rows, err := s.store.Select(ctx, repository.From(s.tables.Users))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return rows, nil
}

// ListChecklists returns every checklist with its items attached in order.
func (s *Service) ListChecklists(ctx context.Context) ([]model.Row, error) {
	lists, err := s.store.Select(ctx, s.listQuery())
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	items, err := s.store.Select(ctx, repository.From(s.tables.Items).
		OrderBy(model.ColSOPListID, model.ColOrder))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	reshape.Attach(lists, items, model.ColSOPListID, model.RelItems)
	return lists, nil
}

// GetChecklist returns one checklist with its items, or ErrListNotFound.
func (s *Service) GetChecklist(ctx context.Context, id int64) (model.Row, error) {
	found, err := s.store.Select(ctx, s.listQuery().Where(repository.Eq(model.ColID, id)))
	if err != nil {
		return nil, fmt.Errorf("get checklist %d: %w", id, err)
	}
	if len(found) == 0 {
		return nil, ErrListNotFound
	}
	list := found[0]

	items, err := s.store.Select(ctx, repository.From(s.tables.Items).
		Where(repository.Eq(model.ColSOPListID, id)).
		OrderBy(model.ColOrder))
	if err != nil {
		return nil, fmt.Errorf("get items of checklist %d: %w", id, err)
	}
	reshape.Attach(found[:1], items, model.ColSOPListID, model.RelItems)
	return list, nil
}

// CreateChecklist inserts a checklist and the items named in payload["items"],
// then returns the stored checklist with users and items embedded.
//
// The steps are not atomic. If the item insert fails the list stays behind
// unless rollback is enabled, in which case it is deleted again.
func (s *Service) CreateChecklist(ctx context.Context, payload model.Row) (model.Row, error) {
	texts, err := itemTexts(payload)
	if err != nil {
		return nil, err
	}
	fields := payload.Without(model.RelItems)

	inserted, err := s.store.Insert(ctx, s.tables.Lists, fields)
	if err != nil {
		metrics.RecordChecklistCreated(createFailed, len(texts))
		return nil, fmt.Errorf("insert checklist: %w", err)
	}
	if len(inserted) == 0 {
		metrics.RecordChecklistCreated(createFailed, len(texts))
		return nil, fmt.Errorf("insert checklist: store returned no row")
	}
	listID := inserted[0][model.ColID]

	if len(texts) > 0 {
		if _, err := s.store.Insert(ctx, s.tables.Items, model.NewItemRows(listID, texts)...); err != nil {
			return nil, s.failItems(ctx, listID, len(texts), err)
		}
	}

	created, err := s.store.Select(ctx, s.listQuery().
		EmbedMany(model.RelItems, s.tables.Items, model.ColSOPListID).
		Where(repository.Eq(model.ColID, listID)))
	if err != nil {
		metrics.RecordChecklistCreated(createFailed, len(texts))
		return nil, fmt.Errorf("fetch created checklist: %w", err)
	}
	if len(created) == 0 {
		metrics.RecordChecklistCreated(createFailed, len(texts))
		return nil, ErrListNotFound
	}
	list := created[0]
	reshape.EnsureSlice(list, model.RelItems, model.ColOrder)

	metrics.RecordChecklistCreated(createOK, len(texts))
	s.logger.Debug(ctx, "checklist created",
		logger.String("id", model.Key(listID)),
		logger.Int("items", len(texts)),
	)
	return list, nil
}

func (s *Service) failItems(ctx context.Context, listID any, n int, cause error) error {
	err := fmt.Errorf("insert items: %w", cause)
	if !s.rollback {
		metrics.RecordChecklistCreated(createFailed, n)
		s.logger.Warn(ctx, "checklist left without items",
			logger.String("id", model.Key(listID)), logger.Error(cause))
		return err
	}
	if _, derr := s.store.Delete(ctx, s.tables.Lists, repository.Eq(model.ColID, listID)); derr != nil {
		metrics.RecordChecklistCreated(createFailed, n)
		s.logger.Error(ctx, "rollback of checklist failed",
			logger.String("id", model.Key(listID)), logger.Error(derr))
		return fmt.Errorf("%w (rollback failed: %v)", err, derr)
	}
	metrics.RecordChecklistCreated(createRolledBack, n)
	return err
}

// itemTexts extracts the optional list of item texts from a create payload.
func itemTexts(payload model.Row) ([]string, error) {
	raw, ok := payload[model.RelItems]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		texts := make([]string, 0, len(v))
		for i, e := range v {
			text, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: items[%d] must be a string", ErrInvalidPayload, i)
			}
			texts = append(texts, text)
		}
		return texts, nil
	default:
		return nil, fmt.Errorf("%w: items must be an array of strings", ErrInvalidPayload)
	}
}

// UpdateChecklist overwrites the given fields of a checklist and returns the
// updated row. Items are not touched.
func (s *Service) UpdateChecklist(ctx context.Context, id int64, fields model.Row) (model.Row, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidPayload)
	}
	updated, err := s.store.Update(ctx, s.tables.Lists, fields, repository.Eq(model.ColID, id))
	if err != nil {
		return nil, fmt.Errorf("update checklist %d: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, ErrListNotFound
	}
	return updated[0], nil
}

// DeleteChecklist removes a checklist. Deleting a missing id is not an error.
func (s *Service) DeleteChecklist(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, s.tables.Lists, repository.Eq(model.ColID, id))
	if err != nil {
		return fmt.Errorf("delete checklist %d: %w", id, err)
	}
	s.logger.Debug(ctx, "checklist deleted", logger.Int64("id", id), logger.Int("rows", len(deleted)))
	return nil
}

// ToggleItem flips an item's checked state and returns the updated row.
func (s *Service) ToggleItem(ctx context.Context, id int64) (model.Row, error) {
	found, err := s.store.Select(ctx, repository.From(s.tables.Items).Where(repository.Eq(model.ColID, id)))
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	if len(found) == 0 {
		return nil, ErrItemNotFound
	}

	change := model.ToggleUpdate(found[0], s.now())
	updated, err := s.store.Update(ctx, s.tables.Items, change, repository.Eq(model.ColID, id))
	if err != nil {
		return nil, fmt.Errorf("toggle item %d: %w", id, err)
	}
	if len(updated) == 0 {
		// Deleted between the read and the write.
		return nil, ErrItemNotFound
	}
	metrics.RecordItemToggled(updated[0].Bool(model.ColIsChecked))
	return updated[0], nil
}

// UserChecklists returns the checklists assigned to a user with their items.
func (s *Service) UserChecklists(ctx context.Context, userID int64) ([]model.Row, error) {
	lists, err := s.store.Select(ctx, s.listQuery().Where(repository.Eq(model.ColAssignedUserID, userID)))
	if err != nil {
		return nil, fmt.Errorf("list checklists of user %d: %w", userID, err)
	}
	if len(lists) == 0 {
		return lists, nil
	}

	ids := make([]any, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l[model.ColID])
	}
	items, err := s.store.Select(ctx, repository.From(s.tables.Items).
		Where(repository.In(model.ColSOPListID, ids...)).
		OrderBy(model.ColSOPListID, model.ColOrder))
	if err != nil {
		return nil, fmt.Errorf("list items of user %d: %w", userID, err)
	}
	reshape.Attach(lists, items, model.ColSOPListID, model.RelItems)
	return lists, nil
}
