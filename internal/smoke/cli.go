package smoke

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/okian/sopchecker/pkg/logger"
	"github.com/spf13/cobra"
)

// Default configuration constants.
const (
	defaultRuns        = 10
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
	logFilePermission  = 0600
)

// SetupLogging configures logging to stdout and, when logFile is set, to
// that file as well. The returned func closes the file.
func SetupLogging(logFile string) (func(), error) {
	var out io.Writer = os.Stdout
	cleanup := func() {}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		cleanup = func() { _ = file.Close() }
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cleanup, nil
}

// NewCommand builds the sop-smoke command.
func NewCommand() *cobra.Command {
	cfg := &Config{}
	cmd := &cobra.Command{
		Use:   "sop-smoke",
		Short: "Drive a running SOP checker API through its contract",
		Long: `Creates checklists with items, reads them back, toggles, renames and
deletes them, checking every response. Runs are executed concurrently.`,
		Example:      `  sop-smoke --url http://localhost:8000 --runs 50 --workers 8 --user 1`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cleanup, err := SetupLogging(cfg.LogFile)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTestTimeout)
			defer cancel()

			_, err = Run(ctx, cfg)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "url", "http://localhost:8000", "Base URL of the service")
	flags.IntVar(&cfg.Runs, "runs", defaultRuns, "Number of scenario runs")
	flags.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Number of concurrent runs")
	flags.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flags.Int64Var(&cfg.UserID, "user", 0, "Existing user id to assign checklists to (0 leaves them unassigned)")
	flags.StringVar(&cfg.LogFile, "log", "", "Also append log output to this file")
	flags.BoolVar(&cfg.Verbose, "verbose", false, "Log every scenario step")
	return cmd
}
