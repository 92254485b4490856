package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLConfig configures a SQLStore.
type SQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logger.Logger
}

// SQLStore reaches the same tables directly over the Postgres wire protocol.
// Relations are resolved with one extra IN query per relation.
type SQLStore struct {
	db *gorm.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens a pooled connection and pings it.
func NewSQLStore(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:                 newGormLogger(log),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	s := &SQLStore{db: db}
	if err := s.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreFromDB wraps an already opened gorm handle.
func NewSQLStoreFromDB(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Select implements Store.
func (s *SQLStore) Select(ctx context.Context, q Query) ([]model.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Table(q.Table)
	for _, f := range q.Filters {
		tx = tx.Where(filterExpr(f))
	}
	for _, o := range q.Orders {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var found []map[string]any
	if err := tx.Find(&found).Error; err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	rows := toRows(found)

	for _, rel := range q.Relations {
		if err := s.embedRelation(ctx, rows, rel); err != nil {
			return nil, err
		}
	}
	for _, ch := range q.Children {
		if err := s.embedChildren(ctx, rows, ch); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *SQLStore) embedRelation(ctx context.Context, rows []model.Row, rel Relation) error {
	var ids []any
	seen := make(map[string]bool)
	for _, row := range rows {
		k := row.Key(rel.Column)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ids = append(ids, row[rel.Column])
	}
	byID := make(map[string]model.Row)
	if len(ids) > 0 {
		var refs []map[string]any
		err := s.db.WithContext(ctx).Table(rel.Table).
			Where(clause.IN{Column: clause.Column{Name: model.ColID}, Values: ids}).
			Find(&refs).Error
		if err != nil {
			return fmt.Errorf("select %s for %s: %w", rel.Table, rel.Alias, err)
		}
		for _, r := range toRows(refs) {
			byID[r.ID()] = r
		}
	}
	for _, row := range rows {
		if ref, ok := byID[row.Key(rel.Column)]; ok {
			row[rel.Alias] = ref.Clone()
		} else {
			row[rel.Alias] = nil
		}
	}
	return nil
}

func (s *SQLStore) embedChildren(ctx context.Context, rows []model.Row, ch Children) error {
	groups := make(map[string][]model.Row)
	if len(rows) > 0 {
		ids := make([]any, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row[model.ColID])
		}
		var children []map[string]any
		err := s.db.WithContext(ctx).Table(ch.Table).
			Where(clause.IN{Column: clause.Column{Name: ch.ForeignKey}, Values: ids}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: model.ColID}}).
			Find(&children).Error
		if err != nil {
			return fmt.Errorf("select %s for %s: %w", ch.Table, ch.Alias, err)
		}
		for _, c := range toRows(children) {
			k := c.Key(ch.ForeignKey)
			groups[k] = append(groups[k], c)
		}
	}
	for _, row := range rows {
		group := groups[row.ID()]
		if group == nil {
			group = []model.Row{}
		}
		row[ch.Alias] = group
	}
	return nil
}

// Insert implements Store. Several rows go out as one multi-row INSERT.
func (s *SQLStore) Insert(ctx context.Context, table string, rows ...model.Row) ([]model.Row, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	query, args, err := buildInsert(table, rows)
	if err != nil {
		return nil, err
	}
	return s.returning(ctx, "insert", table, query, args)
}

// Update implements Store. At least one filter is required.
func (s *SQLStore) Update(ctx context.Context, table string, values model.Row, filters ...Filter) ([]model.Row, error) {
	query, args, err := buildUpdate(table, values, filters)
	if err != nil {
		return nil, err
	}
	return s.returning(ctx, "update", table, query, args)
}

// Delete implements Store. At least one filter is required.
func (s *SQLStore) Delete(ctx context.Context, table string, filters ...Filter) ([]model.Row, error) {
	query, args, err := buildDelete(table, filters)
	if err != nil {
		return nil, err
	}
	return s.returning(ctx, "delete", table, query, args)
}

func (s *SQLStore) returning(ctx context.Context, op, table, query string, args []any) ([]model.Row, error) {
	var found []map[string]any
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&found).Error; err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, table, err)
	}
	return toRows(found), nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func filterExpr(f Filter) clause.Expression {
	col := clause.Column{Name: f.Column}
	if f.Op == OpEq {
		return clause.Eq{Column: col, Value: f.Values[0]}
	}
	return clause.IN{Column: col, Values: f.Values}
}

// quoteIdent quotes a possibly schema-qualified identifier.
func quoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func buildInsert(table string, rows []model.Row) (string, []any, error) {
	colSet := make(map[string]bool)
	for _, r := range rows {
		for c := range r {
			colSet[c] = true
		}
	}
	cols := make([]string, 0, len(colSet))
	for c := range colSet {
		cols = append(cols, c)
	}
	slices.Sort(cols)

	if len(cols) == 0 {
		if len(rows) > 1 {
			return "", nil, fmt.Errorf("%w: batch insert of empty rows into %s", ErrInvalidQuery, table)
		}
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", quoteIdent(table)), nil, nil
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	var (
		tuples []string
		args   []any
	)
	for _, r := range rows {
		slots := make([]string, len(cols))
		for i, c := range cols {
			v, ok := r[c]
			if !ok {
				slots[i] = "DEFAULT"
				continue
			}
			slots[i] = "?"
			args = append(args, v)
		}
		tuples = append(tuples, "("+strings.Join(slots, ", ")+")")
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING *",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(tuples, ", "))
	return query, args, nil
}

func buildUpdate(table string, values model.Row, filters []Filter) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: update of %s without values", ErrInvalidQuery, table)
	}
	where, whereArgs, err := buildWhere(table, filters)
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	slices.Sort(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(whereArgs))
	for i, c := range cols {
		sets[i] = quoteIdent(c) + " = ?"
		args = append(args, values[c])
	}
	args = append(args, whereArgs...)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *", quoteIdent(table), strings.Join(sets, ", "), where)
	return query, args, nil
}

func buildDelete(table string, filters []Filter) (string, []any, error) {
	where, args, err := buildWhere(table, filters)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s RETURNING *", quoteIdent(table), where), args, nil
}

// buildWhere refuses an empty filter set so a write can never hit every row.
func buildWhere(table string, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("%w: unfiltered write to %s", ErrInvalidQuery, table)
	}
	if err := validateFilters(filters); err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			parts = append(parts, quoteIdent(f.Column)+" = ?")
			args = append(args, f.Values[0])
		case OpIn:
			if len(f.Values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			parts = append(parts, quoteIdent(f.Column)+" IN ?")
			args = append(args, f.Values)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

func toRows(found []map[string]any) []model.Row {
	rows := make([]model.Row, 0, len(found))
	for _, m := range found {
		rows = append(rows, model.Row(m))
	}
	return rows
}
