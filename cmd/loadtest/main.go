// Command loadtest sends concurrent threshold queries to a running service
// and verifies that every answer agrees with a field-wide baseline.
package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cutline/internal/loadtest"
	"github.com/okian/cutline/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests   = 200
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 2 * time.Minute
	defaultRunTimeout = 30 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("loadtest: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &loadtest.Config{}
	var runTimeout time.Duration

	cmd := &cobra.Command{
		Use:           "loadtest",
		Short:         "Load and consistency test for the threshold service",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithWriter(cmd.ErrOrStderr(), "text"); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()
			_, err := loadtest.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.Requests, "requests", defaultRequests, "queries to send after the baseline")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent clients")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.IntVar(&cfg.EliminationRank, "rank", 0, "qualifying places; zero keeps the service default")
	f.StringVar(&cfg.OutputFile, "output", "", "write every answer to this JSON file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every failed query")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "bound on the whole run")

	return cmd
}
