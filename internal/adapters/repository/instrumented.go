package repository

import (
	"context"
	"time"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/metrics"
)

// Recorder receives one observation per store call.
type Recorder interface {
	RecordStoreOperation(table, operation string, rows int, durationMs float64, err error)
}

// Instrumented wraps a Store and records latency, outcome and row counts.
type Instrumented struct {
	inner Store
	rec   Recorder
}

var _ Store = (*Instrumented)(nil)

// NewInstrumented wraps inner. A nil recorder records on the global manager.
func NewInstrumented(inner Store, rec Recorder) *Instrumented {
	if rec == nil {
		rec = metrics.Global()
	}
	return &Instrumented{inner: inner, rec: rec}
}

// Unwrap returns the wrapped store.
func (s *Instrumented) Unwrap() Store { return s.inner }

func (s *Instrumented) observe(table, op string, start time.Time, rows []model.Row, err error) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	s.rec.RecordStoreOperation(table, op, len(rows), ms, err)
}

func (s *Instrumented) Select(ctx context.Context, q Query) ([]model.Row, error) {
	start := time.Now()
	rows, err := s.inner.Select(ctx, q)
	s.observe(q.Table, "select", start, rows, err)
	return rows, err
}

func (s *Instrumented) Insert(ctx context.Context, table string, rows ...model.Row) ([]model.Row, error) {
	start := time.Now()
	out, err := s.inner.Insert(ctx, table, rows...)
	s.observe(table, "insert", start, out, err)
	return out, err
}

func (s *Instrumented) Update(ctx context.Context, table string, values model.Row, filters ...Filter) ([]model.Row, error) {
	start := time.Now()
	out, err := s.inner.Update(ctx, table, values, filters...)
	s.observe(table, "update", start, out, err)
	return out, err
}

func (s *Instrumented) Delete(ctx context.Context, table string, filters ...Filter) ([]model.Row, error) {
	start := time.Now()
	out, err := s.inner.Delete(ctx, table, filters...)
	s.observe(table, "delete", start, out, err)
	return out, err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.observe("", "ping", start, nil, err)
	return err
}

func (s *Instrumented) Close() error { return s.inner.Close() }
