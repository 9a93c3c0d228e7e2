// Package optim scans element parameters for the best beam result.
package optim

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/neutronsim/internal/config"
	"github.com/san-kum/neutronsim/internal/experiment"
	"github.com/san-kum/neutronsim/internal/sim"
)

// Evaluation is one point of a scan.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	log        *logrus.Entry
}

// NewGridSearch scans every combination of ranges. params[i] names the
// "element.param" key that takes the values of ranges[i].
func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, sim.Invalid("grid search: no parameters")
	}
	if len(params) != len(ranges) {
		return nil, sim.Invalid("grid search: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, sim.Invalid("grid search: empty range for %s", params[i])
		}
	}
	return &GridSearch{
		paramNames: params,
		ranges:     ranges,
		workers:    1,
		log:        sim.NopLogger().WithField("component", "optim"),
	}, nil
}

// WithWorkers sets how many experiments run at once.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

func (g *GridSearch) WithLogger(l *logrus.Logger) *GridSearch {
	g.log = l.WithField("component", "optim")
	return g
}

// Size is the number of combinations.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// combination decodes i with the last parameter varying fastest.
func (g *GridSearch) combination(i int) map[string]float64 {
	params := make(map[string]float64, len(g.paramNames))
	for d := len(g.ranges) - 1; d >= 0; d-- {
		r := g.ranges[d]
		params[g.paramNames[d]] = r[i%len(r)]
		i /= len(r)
	}
	return params
}

// Search runs base with every combination applied and minimizes objective.
// Failed runs are reported in the evaluations and skipped; an error is
// returned only when ctx ends or no run succeeded.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	objective experiment.Objective,
	opts ...experiment.Option,
) (map[string]float64, float64, []Evaluation, error) {
	evals, err := sim.ParallelMap(ctx, g.Size(), g.workers, func(i int) (Evaluation, error) {
		ev := Evaluation{Params: g.combination(i), Value: math.NaN()}

		cfg := base.Clone()
		if err := experiment.ApplyParams(cfg, ev.Params); err != nil {
			ev.Err = err
			return ev, nil
		}
		res, err := experiment.New(cfg, opts...).Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ev, ctx.Err()
			}
			ev.Err = err
			return ev, nil
		}
		ev.Value = objective(res)
		g.log.WithFields(logrus.Fields{"params": ev.Params, "value": ev.Value}).Debug("evaluated")
		return ev, nil
	})
	if err != nil {
		return nil, 0, nil, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var firstErr error
	for _, ev := range evals {
		if ev.Err != nil {
			if firstErr == nil {
				firstErr = ev.Err
			}
			continue
		}
		if ev.Value < best {
			best = ev.Value
			bestParams = ev.Params
		}
	}
	if bestParams == nil {
		if firstErr == nil {
			firstErr = sim.Invalid("grid search: objective is NaN for every combination")
		}
		return nil, 0, evals, firstErr
	}

	g.log.WithFields(logrus.Fields{"params": bestParams, "value": best, "runs": len(evals)}).Info("grid search done")
	return bestParams, best, evals, nil
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
