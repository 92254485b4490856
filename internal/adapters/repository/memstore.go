package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/spf13/cast"
)

// Operation names a store call; used for fault injection and metrics.
type Operation string

// Store operations.
const (
	OperationSelect Operation = "select"
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// MemStore is an in-memory Store with auto-increment integer ids. It applies
// the same query semantics as the remote backends and backs tests and local
// development.
type MemStore struct {
	mu       sync.RWMutex
	tables   map[string]*memTable
	defaults map[string]model.Row
	failures map[string]error
	closed   bool
}

type memTable struct {
	nextID int64
	rows   []model.Row
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		tables:   make(map[string]*memTable),
		defaults: make(map[string]model.Row),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailOn makes every op on table return err until ClearFailures is called.
func (s *MemStore) FailOn(op Operation, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey(op, table)] = err
}

// ClearFailures removes all injected failures.
func (s *MemStore) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
}

// Rows returns a copy of every row in table, in insertion order.
func (s *MemStore) Rows(table string) []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	return cloneRows(t.rows)
}

// Select implements Store.
func (s *MemStore) Select(ctx context.Context, q Query) ([]model.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, OperationSelect, q.Table); err != nil {
		return nil, err
	}

	var out []model.Row
	for _, row := range s.lookup(q.Table) {
		if matchAll(row, q.Filters) {
			out = append(out, row.Clone())
		}
	}
	if len(q.Orders) > 0 {
		slices.SortStableFunc(out, func(a, b model.Row) int {
			for _, o := range q.Orders {
				c := compareValues(a[o.Column], b[o.Column])
				if o.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	for _, rel := range q.Relations {
		byID := make(map[string]model.Row)
		for _, r := range s.lookup(rel.Table) {
			byID[r.ID()] = r
		}
		for _, row := range out {
			if ref, ok := byID[row.Key(rel.Column)]; ok {
				row[rel.Alias] = ref.Clone()
			} else {
				row[rel.Alias] = nil
			}
		}
	}
	for _, ch := range q.Children {
		groups := make(map[string][]model.Row)
		for _, r := range s.lookup(ch.Table) {
			k := r.Key(ch.ForeignKey)
			groups[k] = append(groups[k], r.Clone())
		}
		for _, row := range out {
			children := groups[row.ID()]
			if children == nil {
				children = []model.Row{}
			}
			row[ch.Alias] = children
		}
	}
	if out == nil {
		out = []model.Row{}
	}
	return out, nil
}

// Insert implements Store.
func (s *MemStore) Insert(ctx context.Context, table string, rows ...model.Row) ([]model.Row, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OperationInsert, table); err != nil {
		return nil, err
	}

	t := s.table(table)
	out := make([]model.Row, 0, len(rows))
	for _, in := range rows {
		row := s.defaults[table].Clone()
		if row == nil {
			row = model.Row{}
		}
		for k, v := range in {
			row[k] = v
		}
		if id, ok := row[model.ColID]; ok && id != nil {
			if n, err := cast.ToInt64E(id); err == nil && n > t.nextID {
				t.nextID = n
			}
		} else {
			t.nextID++
			row[model.ColID] = t.nextID
		}
		t.rows = append(t.rows, row)
		out = append(out, row.Clone())
	}
	return out, nil
}

// Update implements Store.
func (s *MemStore) Update(ctx context.Context, table string, values model.Row, filters ...Filter) ([]model.Row, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OperationUpdate, table); err != nil {
		return nil, err
	}

	out := []model.Row{}
	for _, row := range s.table(table).rows {
		if !matchAll(row, filters) {
			continue
		}
		for k, v := range values {
			row[k] = v
		}
		out = append(out, row.Clone())
	}
	return out, nil
}

// Delete implements Store.
func (s *MemStore) Delete(ctx context.Context, table string, filters ...Filter) ([]model.Row, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OperationDelete, table); err != nil {
		return nil, err
	}

	t := s.table(table)
	out := []model.Row{}
	kept := t.rows[:0]
	for _, row := range t.rows {
		if matchAll(row, filters) {
			out = append(out, row)
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return out, nil
}

// Ping implements Store.
func (s *MemStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close implements Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// check must be called with the lock held.
func (s *MemStore) check(ctx context.Context, op Operation, table string) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.failures[failureKey(op, table)]; ok {
		return err
	}
	return nil
}

// table must be called with the lock held; it creates missing tables.
func (s *MemStore) table(name string) *memTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memTable{}
		s.tables[name] = t
	}
	return t
}

// lookup must be called with at least the read lock held.
func (s *MemStore) lookup(name string) []model.Row {
	if t, ok := s.tables[name]; ok {
		return t.rows
	}
	return nil
}

func failureKey(op Operation, table string) string {
	return fmt.Sprintf("%s:%s", op, table)
}

func matchAll(row model.Row, filters []Filter) bool {
	for _, f := range filters {
		if !match(row, f) {
			return false
		}
	}
	return true
}

func match(row model.Row, f Filter) bool {
	got := row.Key(f.Column)
	for _, v := range f.Values {
		if model.Key(v) == got {
			return true
		}
	}
	return false
}

// compareValues orders numerically when both sides are numbers, otherwise
// by their string form. Nulls sort last.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	af, aerr := cast.ToFloat64E(a)
	bf, berr := cast.ToFloat64E(b)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := model.Key(a), model.Key(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func cloneRows(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Clone())
	}
	return out
}
