// Package reshape assembles flat child rows under their parent rows.
package reshape

import (
	"slices"

	"github.com/okian/sopchecker/internal/domain/model"
)

// GroupBy buckets rows by the normalised value of column. Rows keep their
// input order inside each bucket, so rows fetched ordered by
// (column, position) come out ordered by position.
func GroupBy(rows []model.Row, column string) map[string][]model.Row {
	groups := make(map[string][]model.Row)
	for _, row := range rows {
		k := row.Key(column)
		groups[k] = append(groups[k], row)
	}
	return groups
}

// Attach sets parent[alias] to the children whose foreignKey equals the
// parent's id. Parents without children get an empty, non-nil slice so the
// field always serialises as a JSON array. Children pointing at no parent
// are dropped.
func Attach(parents, children []model.Row, foreignKey, alias string) {
	groups := GroupBy(children, foreignKey)
	for _, parent := range parents {
		group, ok := groups[parent.ID()]
		if !ok {
			group = []model.Row{}
		}
		parent[alias] = group
	}
}

// SortBy orders rows ascending by the integer value of column. The sort is
// stable so rows with equal positions keep their relative order.
func SortBy(rows []model.Row, column string) {
	slices.SortStableFunc(rows, func(a, b model.Row) int {
		x, y := a.Int64(column), b.Int64(column)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	})
}

// EnsureSlice normalises row[alias] to a []model.Row sorted by column.
// Stores that embed children return them as []any or []map[string]any;
// a missing or null value becomes an empty slice.
func EnsureSlice(row model.Row, alias, column string) {
	var out []model.Row
	switch v := row[alias].(type) {
	case []model.Row:
		out = v
	case []map[string]any:
		out = make([]model.Row, 0, len(v))
		for _, m := range v {
			out = append(out, model.Row(m))
		}
	case []any:
		out = make([]model.Row, 0, len(v))
		for _, e := range v {
			switch m := e.(type) {
			case map[string]any:
				out = append(out, model.Row(m))
			case model.Row:
				out = append(out, m)
			}
		}
	}
	if out == nil {
		out = []model.Row{}
	}
	SortBy(out, column)
	row[alias] = out
}
