// Package repository is the boundary to the remote row store holding users,
// checklists and checklist items.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/sopchecker/internal/domain/model"
)

// Store provides row-oriented access to the remote tables. Every call returns
// plain rows; implementations must be safe for concurrent use.
type Store interface {
	// Select returns the rows matching q, with relations and children embedded.
	Select(ctx context.Context, q Query) ([]model.Row, error)
	// Insert writes one or more rows and returns them as stored.
	Insert(ctx context.Context, table string, rows ...model.Row) ([]model.Row, error)
	// Update overwrites values on every row matching filters and returns the
	// updated rows. No match yields an empty slice, not an error.
	Update(ctx context.Context, table string, values model.Row, filters ...Filter) ([]model.Row, error)
	// Delete removes every row matching filters and returns the removed rows.
	Delete(ctx context.Context, table string, filters ...Filter) ([]model.Row, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Close releases connections.
	Close() error
}

// Operator is a filter comparison.
type Operator string

// Supported operators.
const (
	OpEq Operator = "eq"
	OpIn Operator = "in"
)

// Filter restricts a query to rows whose Column compares to Values.
type Filter struct {
	Column string
	Op     Operator
	Values []any
}

// Eq matches rows where column equals v.
func Eq(column string, v any) Filter {
	return Filter{Column: column, Op: OpEq, Values: []any{v}}
}

// In matches rows where column is one of vs.
func In(column string, vs ...any) Filter {
	return Filter{Column: column, Op: OpIn, Values: vs}
}

// Order sorts by Column, ascending unless Desc.
type Order struct {
	Column string
	Desc   bool
}

// Asc is shorthand for an ascending Order.
func Asc(column string) Order { return Order{Column: column} }

// Relation embeds a single referenced row: row[Alias] becomes the row of
// Table whose id equals row[Column], or nil.
type Relation struct {
	Alias  string
	Table  string
	Column string
}

// Children embeds the referencing rows: row[Alias] becomes every row of Table
// whose ForeignKey equals the row's id.
type Children struct {
	Alias      string
	Table      string
	ForeignKey string
}

// Query describes a select against one table.
type Query struct {
	Table     string
	Relations []Relation
	Children  []Children
	Filters   []Filter
	Orders    []Order
	// Limit caps the row count when positive.
	Limit int
}

// From starts a query on table.
func From(table string) Query {
	return Query{Table: table}
}

// Embed adds a to-one relation.
func (q Query) Embed(alias, table, column string) Query {
	q.Relations = append(q.Relations, Relation{Alias: alias, Table: table, Column: column})
	return q
}

// EmbedMany adds a to-many relation.
func (q Query) EmbedMany(alias, table, foreignKey string) Query {
	q.Children = append(q.Children, Children{Alias: alias, Table: table, ForeignKey: foreignKey})
	return q
}

// Where adds filters.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(q.Filters, filters...)
	return q
}

// OrderBy adds ascending orders, applied in sequence.
func (q Query) OrderBy(columns ...string) Query {
	for _, c := range columns {
		q.Orders = append(q.Orders, Asc(c))
	}
	return q
}

// Take sets the row limit.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Validate rejects queries no backend can run.
func (q Query) Validate() error {
	if q.Table == "" {
		return fmt.Errorf("%w: missing table", ErrInvalidQuery)
	}
	for _, f := range q.Filters {
		if err := f.validate(); err != nil {
			return err
		}
	}
	for _, r := range q.Relations {
		if r.Alias == "" || r.Table == "" || r.Column == "" {
			return fmt.Errorf("%w: incomplete relation %q", ErrInvalidQuery, r.Alias)
		}
	}
	for _, c := range q.Children {
		if c.Alias == "" || c.Table == "" || c.ForeignKey == "" {
			return fmt.Errorf("%w: incomplete children %q", ErrInvalidQuery, c.Alias)
		}
	}
	return nil
}

func (f Filter) validate() error {
	if f.Column == "" {
		return fmt.Errorf("%w: filter without column", ErrInvalidQuery)
	}
	switch f.Op {
	case OpEq:
		if len(f.Values) != 1 {
			return fmt.Errorf("%w: eq on %s needs one value", ErrInvalidQuery, f.Column)
		}
	case OpIn:
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Op)
	}
	return nil
}

// SelectString renders the query's column list in the embedded-resource
// syntax of PostgREST, e.g. "*,assigned_user:auth_user!assigned_user_id(*)".
func (q Query) SelectString() string {
	parts := []string{"*"}
	for _, r := range q.Relations {
		parts = append(parts, fmt.Sprintf("%s:%s!%s(*)", r.Alias, r.Table, r.Column))
	}
	for _, c := range q.Children {
		parts = append(parts, fmt.Sprintf("%s:%s(*)", c.Alias, c.Table))
	}
	return strings.Join(parts, ",")
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if err := f.validate(); err != nil {
			return err
		}
	}
	return nil
}
