// Command threshold evaluates a scenario file from the command line and
// prints the best elimination scenario as a text or wiki table.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cutline/internal/adapters/render"
	"github.com/okian/cutline/internal/cpsolver"
	"github.com/okian/cutline/internal/domain/threshold"
	"github.com/okian/cutline/internal/scenario"
	"github.com/okian/cutline/pkg/logger"
)

type options struct {
	scenario            string
	competitors         []string
	rank                int
	format              string
	timeLimit           time.Duration
	timeoutAsNoScenario bool
	logLevel            string
}

func main() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("threshold: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "threshold",
		Short:         "Compute the points needed to be safe from elimination",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithWriter(cmd.ErrOrStderr(), "text"); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.scenario, "scenario", "s", "", "scenario YAML file")
	f.StringSliceVarP(&opts.competitors, "competitor", "c", nil, "only query these competitors")
	f.IntVarP(&opts.rank, "rank", "r", 0, "qualifying places; defaults to the scenario's")
	f.StringVarP(&opts.format, "format", "f", "text", "output format: text, wiki or json")
	f.DurationVar(&opts.timeLimit, "time-limit", time.Minute, "solver time budget per competitor, 0 disables it")
	f.BoolVar(&opts.timeoutAsNoScenario, "timeout-as-no-scenario", false, "report exhausted budgets without a scenario as no elimination scenario")
	f.StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	switch opts.format {
	case "text", "wiki", "json":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	season, err := scenario.Load(opts.scenario)
	if err != nil {
		return err
	}
	rank := opts.rank
	if rank == 0 {
		rank = season.EliminationRank
	}

	log := logger.Get().Named("threshold")
	opt, err := threshold.New(season.Circuit,
		threshold.WithSolver(cpsolver.NewPseudoBoolean(
			cpsolver.WithTimeLimit(opts.timeLimit),
			cpsolver.WithLogger(log.Named("solver")),
		)),
		threshold.WithLogger(log),
		threshold.WithTimeoutAsNoScenario(opts.timeoutAsNoScenario),
	)
	if err != nil {
		return err
	}

	res, err := evaluate(ctx, opt, season, rank, opts.competitors)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newSummary(season.Name, res))
	}
	if !res.Found {
		_, err := fmt.Fprintf(out, "No competitor can finish outside the top %d.\n", rank)
		return err
	}
	tbl, err := render.FromOutcome(res.Best)
	if err != nil {
		return err
	}
	if opts.format == "wiki" {
		return tbl.WriteWiki(out)
	}
	return tbl.WriteText(out)
}

func evaluate(ctx context.Context, opt *threshold.Optimizer, season *scenario.Season, rank int, names []string) (threshold.Result, error) {
	if len(names) == 0 {
		return opt.OptimizeAll(ctx, rank)
	}
	idx, err := season.Registry().IndicesOf(names...)
	if err != nil {
		return threshold.Result{}, err
	}
	res := threshold.Result{EliminationRank: rank}
	for i, c := range idx {
		o, err := opt.OptimizeFor(ctx, c, rank)
		if err != nil {
			return res, fmt.Errorf("%s: %w", names[i], err)
		}
		res.Add(o)
	}
	return res, nil
}

type summary struct {
	Season          string          `json:"season"`
	EliminationRank int             `json:"elimination_rank"`
	Found           bool            `json:"found"`
	Threshold       int64           `json:"threshold"`
	Best            string          `json:"best,omitempty"`
	Outcomes        []outcomeResult `json:"outcomes"`
}

type outcomeResult struct {
	Competitor string `json:"competitor"`
	Status     string `json:"status"`
	Value      int64  `json:"value"`
	Solutions  int64  `json:"solutions"`
}

func newSummary(season string, res threshold.Result) summary {
	s := summary{
		Season:          season,
		EliminationRank: res.EliminationRank,
		Found:           res.Found,
		Threshold:       res.Value,
		Outcomes:        make([]outcomeResult, len(res.Outcomes)),
	}
	if res.Found {
		s.Best = res.Best.Name
	}
	for i, o := range res.Outcomes {
		s.Outcomes[i] = outcomeResult{Competitor: o.Name, Status: o.Status.String(), Value: o.Value, Solutions: o.Solutions}
	}
	return s
}
