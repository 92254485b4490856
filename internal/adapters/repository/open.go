package repository

import (
	"context"
	"fmt"

	"github.com/okian/sopchecker/internal/config"
	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
)

// Open builds the Store selected by cfg. The memory driver comes with the
// item table defaults a real schema would apply.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	driver := cfg.ResolvedDriver()
	log.Info(ctx, "opening store", logger.String("driver", driver))

	switch driver {
	case config.DriverPostgREST:
		return NewPostgRESTStore(PostgRESTConfig{
			URL:       cfg.Store.URL,
			Key:       cfg.Store.Key,
			Schema:    cfg.Store.Schema,
			PingTable: cfg.Tables.Lists,
		})
	case config.DriverPostgres:
		return NewSQLStore(ctx, SQLConfig{
			DSN:          cfg.Store.DSN,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			MaxIdleConns: cfg.Store.MaxIdleConns,
			Logger:       log,
		})
	case config.DriverMemory:
		return NewMemStore(WithDefaults(cfg.Tables.Items, model.Row{
			model.ColIsChecked: false,
			model.ColCheckedAt: nil,
		})), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}
