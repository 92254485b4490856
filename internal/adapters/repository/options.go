package repository

import "github.com/okian/sopchecker/internal/domain/model"

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithDefaults sets column defaults applied to rows inserted into table,
// the way database column defaults would.
func WithDefaults(table string, defaults model.Row) MemOption {
	return func(s *MemStore) {
		s.defaults[table] = defaults.Clone()
	}
}

// WithRows seeds table with rows; rows without an id get one assigned.
func WithRows(table string, rows ...model.Row) MemOption {
	return func(s *MemStore) {
		t := s.table(table)
		for _, r := range rows {
			row := r.Clone()
			if row.ID() == "" {
				t.nextID++
				row[model.ColID] = t.nextID
			} else if n := row.Int64(model.ColID); n > t.nextID {
				t.nextID = n
			}
			t.rows = append(t.rows, row)
		}
	}
}
