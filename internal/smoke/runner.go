package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/sopchecker/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrFailed is returned when at least one run failed.
var ErrFailed = errors.New("smoke runs failed")

const percentageMultiplier = 100

// Run executes cfg.Runs scenarios against the service, at most cfg.Workers
// at a time.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{
		Runs:      cfg.Runs,
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting sop smoke test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("runs", cfg.Runs),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int64("userID", cfg.UserID))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Run scenarios concurrently
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := 0; i < cfg.Runs; i++ {
		i := i
		g.Go(func() error {
			err := newScenario(client, cfg, i).run(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				stats.Failures = append(stats.Failures, fmt.Sprintf("run %d: %v", i, err))
				logger.Get().Error(gctx, "run failed", logger.Int("run", i), logger.Error(err))
				return nil
			}
			stats.Passed++
			return nil
		})
	}
	_ = g.Wait()

	// Final statistics
	stats.Requests = client.requests.Load()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrFailed, stats.Failed, stats.Runs)
	}
	logger.Get().Info(ctx, "smoke test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service and its store are up.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")
	if _, err := client.expect(ctx, http.StatusOK, http.MethodGet, "/healthz", nil); err != nil {
		return err
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var passRate, requestsPerSecond float64
	if stats.Runs > 0 {
		passRate = float64(stats.Passed) / float64(stats.Runs) * percentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("runs", stats.Runs),
		logger.Int("passed", stats.Passed),
		logger.Int("failed", stats.Failed),
		logger.Int64("requests", stats.Requests),
		logger.Duration("duration", stats.Duration),
		logger.Any("passRate", passRate),
		logger.Any("requestsPerSecond", requestsPerSecond))
}
