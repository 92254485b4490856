// Package model contains the row shapes passed between the store, the
// service and the HTTP layer.
package model

import (
	"encoding/json"
	"maps"
	"strconv"

	"github.com/spf13/cast"
)

// Row is a single record exactly as the row store returns it. Columns the
// service does not know about pass through untouched.
type Row map[string]any

// Key normalises an id of any wire type to a comparable string so that
// 7, int64(7), float64(7), json.Number("7") and "7" all group together.
func Key(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
	case float32:
		if t == float32(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
	}
	return cast.ToString(v)
}

// ID returns the normalised primary key of the row.
func (r Row) ID() string {
	return Key(r[ColID])
}

// Key returns the normalised value of column.
func (r Row) Key(column string) string {
	return Key(r[column])
}

// Bool reads column as a boolean; missing or null reads as false.
func (r Row) Bool(column string) bool {
	return cast.ToBool(r[column])
}

// Int64 reads column as an integer; missing or null reads as 0.
func (r Row) Int64(column string) int64 {
	return cast.ToInt64(r[column])
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Without returns a copy of the row minus the given columns.
func (r Row) Without(columns ...string) Row {
	out := r.Clone()
	if out == nil {
		out = Row{}
	}
	for _, c := range columns {
		delete(out, c)
	}
	return out
}
