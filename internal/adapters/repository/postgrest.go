package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/supabase-community/postgrest-go"
)

const (
	restPath             = "/rest/v1"
	returnRepresentation = "representation"
)

// PostgRESTConfig configures a PostgRESTStore.
type PostgRESTConfig struct {
	// URL is the project URL; the REST endpoint lives under /rest/v1.
	URL string
	// Key is sent as the apikey header and as the bearer token.
	Key string
	// Schema defaults to "public".
	Schema string
	// PingTable is read with limit 1 by Ping.
	PingTable string
}

// PostgRESTStore talks to a hosted Postgres through its PostgREST endpoint.
type PostgRESTStore struct {
	client    *postgrest.Client
	pingTable string
}

var _ Store = (*PostgRESTStore)(nil)

// NewPostgRESTStore builds a client for cfg. No request is made.
func NewPostgRESTStore(cfg PostgRESTConfig) (*PostgRESTStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgrest: missing url")
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	base := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(base, restPath) {
		base += restPath
	}
	headers := map[string]string{
		"apikey":        cfg.Key,
		"Authorization": "Bearer " + cfg.Key,
	}
	client := postgrest.NewClient(base, schema, headers)
	if client.ClientError != nil {
		return nil, fmt.Errorf("postgrest: %w", client.ClientError)
	}
	return &PostgRESTStore{client: client, pingTable: cfg.PingTable}, nil
}

// Select implements Store.
func (s *PostgRESTStore) Select(ctx context.Context, q Query) ([]model.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fb := applyFilters(s.client.From(q.Table).Select(q.SelectString(), "", false), q.Filters)
	for _, o := range q.Orders {
		fb = fb.Order(o.Column, &postgrest.OrderOpts{Ascending: !o.Desc})
	}
	if q.Limit > 0 {
		fb = fb.Limit(q.Limit, "")
	}
	rows := []model.Row{}
	if _, err := fb.ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	return rows, nil
}

// Insert implements Store. Several rows go out as one batch request.
func (s *PostgRESTStore) Insert(ctx context.Context, table string, rows ...model.Row) ([]model.Row, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value any = rows
	if len(rows) == 1 {
		value = rows[0]
	}
	out := []model.Row{}
	if _, err := s.client.From(table).Insert(value, false, "", returnRepresentation, "").ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return out, nil
}

// Update implements Store.
func (s *PostgRESTStore) Update(ctx context.Context, table string, values model.Row, filters ...Filter) ([]model.Row, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Row{}
	fb := applyFilters(s.client.From(table).Update(values, returnRepresentation, ""), filters)
	if _, err := fb.ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return out, nil
}

// Delete implements Store.
func (s *PostgRESTStore) Delete(ctx context.Context, table string, filters ...Filter) ([]model.Row, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Row{}
	fb := applyFilters(s.client.From(table).Delete(returnRepresentation, ""), filters)
	if _, err := fb.ExecuteTo(&out); err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	}
	return out, nil
}

// Ping implements Store by reading one row of the ping table.
func (s *PostgRESTStore) Ping(ctx context.Context) error {
	if s.pingTable == "" {
		return nil
	}
	_, err := s.Select(ctx, From(s.pingTable).Take(1))
	return err
}

// Close implements Store. The HTTP client holds no resources to release.
func (s *PostgRESTStore) Close() error {
	return nil
}

func applyFilters(fb *postgrest.FilterBuilder, filters []Filter) *postgrest.FilterBuilder {
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			fb = fb.Eq(f.Column, model.Key(f.Values[0]))
		case OpIn:
			values := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				values = append(values, model.Key(v))
			}
			fb = fb.In(f.Column, values)
		}
	}
	return fb
}
