package loadtest

import (
	"errors"
	"fmt"
)

// ErrInconsistent is returned when answers disagree with the baseline.
var ErrInconsistent = errors.New("inconsistent threshold answers")

const statusNoScenario = "no_elimination_scenario"

// verifyBaseline checks that the field-wide threshold is the best value
// among the competitors that can be eliminated.
func verifyBaseline(base *Response) error {
	var (
		found bool
		best  int64
	)
	for _, o := range base.Outcomes {
		if o.Status == statusNoScenario {
			continue
		}
		if !found || o.Value > best {
			found, best = true, o.Value
		}
	}
	if found != base.Found {
		return fmt.Errorf("%w: baseline found=%t but outcomes say %t", ErrInconsistent, base.Found, found)
	}
	if found && best != base.Threshold {
		return fmt.Errorf("%w: baseline threshold %d but best outcome is %d", ErrInconsistent, base.Threshold, best)
	}
	return nil
}

// verifyAnswers compares every successful answer with the baseline. Only
// exact answers are compared; budget-limited ones are lower bounds.
func verifyAnswers(base *Response, answers []Answer) []error {
	byName := make(map[string]Outcome, len(base.Outcomes))
	for _, o := range base.Outcomes {
		byName[o.Competitor] = o
	}

	var errs []error
	for _, a := range answers {
		r := a.Response
		if r == nil {
			continue
		}
		if r.EliminationRank != base.EliminationRank {
			errs = append(errs, fmt.Errorf("%w: run %s answered rank %d, baseline %d", ErrInconsistent, r.RunID, r.EliminationRank, base.EliminationRank))
			continue
		}
		if a.Query.Competitor == "" {
			if r.Found != base.Found || r.Threshold != base.Threshold {
				errs = append(errs, fmt.Errorf("%w: run %s threshold %d, baseline %d", ErrInconsistent, r.RunID, r.Threshold, base.Threshold))
			}
			continue
		}
		for _, o := range r.Outcomes {
			want, ok := byName[o.Competitor]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: run %s answered unknown competitor %s", ErrInconsistent, r.RunID, o.Competitor))
				continue
			}
			if exact(o) && exact(want) && (o.Status != want.Status || o.Value != want.Value) {
				errs = append(errs, fmt.Errorf("%w: %s is %s/%d, baseline %s/%d",
					ErrInconsistent, o.Competitor, o.Status, o.Value, want.Status, want.Value))
			}
		}
	}
	return errs
}

func exact(o Outcome) bool {
	return o.Status == "optimal" || o.Status == statusNoScenario
}
