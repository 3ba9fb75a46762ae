package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cutline/pkg/logger"
)

// Run executes a complete load run: health check, baseline, concurrent
// queries, verification.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting threshold load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("elimination_rank", config.EliminationRank),
	)

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	client := newHTTPClient(config.BaseURL, config.Timeout)
	base := ask(ctx, client, Query{}, config.EliminationRank)
	if base.Response == nil {
		return stats, fmt.Errorf("baseline query failed with status %d: %s", base.Status, base.Error)
	}
	if err := verifyBaseline(base.Response); err != nil {
		return stats, err
	}
	log.Info(ctx, "baseline evaluated",
		logger.String("season", base.Response.Season),
		logger.Bool("found", base.Response.Found),
		logger.Int64("threshold", base.Response.Threshold),
		logger.String("best", base.Response.Best),
		logger.Duration("latency", base.Latency),
	)

	answers := sendQueries(ctx, config, buildQueries(base.Response, config.Requests), stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if config.OutputFile != "" {
		if err := saveAnswers(ctx, config.OutputFile, append([]Answer{base}, answers...)); err != nil {
			log.Warn(ctx, "failed to save answers", logger.Error(err))
		}
	}

	errs := verifyAnswers(base.Response, answers)
	if err := verifyHistory(ctx, client, base.Response); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		for _, err := range errs {
			log.Error(ctx, "verification failed", logger.Error(err))
		}
		return stats, errors.Join(errs...)
	}
	log.Info(ctx, "all answers agree with the baseline")
	return stats, nil
}

// verifyHistory checks that the service still returns the baseline run by
// its ID. A service without run history answers 404, which is accepted.
func verifyHistory(ctx context.Context, client *HTTPClient, base *Response) error {
	a := fetch(ctx, client, Query{}, runPath(base.RunID))
	switch {
	case a.Status == http.StatusNotFound:
		logger.Get().Named("loadtest").Warn(ctx, "baseline run no longer in history", logger.String("run_id", base.RunID))
		return nil
	case a.Response == nil:
		return fmt.Errorf("fetching run %s failed with status %d: %s", base.RunID, a.Status, a.Error)
	case a.Response.RunID != base.RunID || a.Response.Threshold != base.Threshold || a.Response.Found != base.Found:
		return fmt.Errorf("%w: stored run %s threshold %d, baseline %d", ErrInconsistent, a.Response.RunID, a.Response.Threshold, base.Threshold)
	}
	return nil
}

// buildQueries cycles through the whole field and every single competitor.
func buildQueries(base *Response, n int) []Query {
	cycle := make([]Query, 0, len(base.Outcomes)+1)
	cycle = append(cycle, Query{})
	for _, o := range base.Outcomes {
		cycle = append(cycle, Query{Competitor: o.Competitor})
	}
	out := make([]Query, n)
	for i := range out {
		out[i] = cycle[i%len(cycle)]
	}
	return out
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The service answers with Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// saveAnswers writes every answer of the run as a JSON array.
func saveAnswers(ctx context.Context, filename string, answers []Answer) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write answers: %w", err)
	}
	logger.Get().Info(ctx, "answers saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, queriesPerSecond float64
	var avgLatency time.Duration
	if stats.Sent > 0 {
		successRate = float64(stats.Succeeded) / float64(stats.Sent) * percentageMultiplier
		avgLatency = stats.SumLatency / time.Duration(stats.Sent)
	}
	if stats.Duration > 0 {
		queriesPerSecond = float64(stats.Sent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sent", stats.Sent),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("minLatency", stats.MinLatency),
		logger.Duration("avgLatency", avgLatency),
		logger.Duration("maxLatency", stats.MaxLatency),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("queriesPerSecond", queriesPerSecond),
	)
}
