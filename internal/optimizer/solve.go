package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/metrics"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

// Solve submits m to engine and normalizes the outcome. Only an optimal
// solution produces a roster; every other status yields the zero Result with
// a nil error. Totals are recomputed from the catalog rather than taken from
// the engine's objective.
func Solve(ctx context.Context, engine solver.Engine, cat *catalog.Catalog, m *solver.Model) (Result, error) {
	start := time.Now()
	sol, err := engine.Solve(ctx, m)
	elapsed := time.Since(start)

	log := logger.WithComponent("solver_adapter").WithFields(logrus.Fields{
		"engine":      engine.Name(),
		"model":       m.Name,
		"duration_ms": elapsed.Milliseconds(),
	})

	if err != nil {
		metrics.ObserveSolve(engine.Name(), "error", elapsed)
		log.WithError(err).Error("Solver invocation failed")
		return Result{}, fmt.Errorf("%w: %s: %w", ErrSolverInvocation, engine.Name(), err)
	}
	metrics.ObserveSolve(engine.Name(), sol.Status.String(), elapsed)

	if sol.Status != solver.StatusOptimal {
		log.WithField("status", sol.Status.String()).Debug("No optimal roster")
		return Result{}, nil
	}

	selected := make([]string, 0)
	for i, v := range sol.Values {
		if v > 0.5 {
			selected = append(selected, m.Vars[i].Name)
		}
	}
	if len(selected) == 0 {
		// An empty formation is optimal but indistinguishable from the sentinel.
		return Result{}, nil
	}

	cost, score := cat.Totals(selected)
	log.WithFields(logrus.Fields{
		"selected":    len(selected),
		"total_cost":  cost,
		"total_score": score,
	}).Debug("Optimal roster found")

	return Result{Selected: selected, TotalCost: cost, TotalScore: score}, nil
}

// SolveOneFormation builds and solves a single formation. evo may be nil.
func SolveOneFormation(ctx context.Context, engine solver.Engine, cat *catalog.Catalog, formation Formation, budget float64, evo *Evolution) (Result, error) {
	m, err := BuildModel(cat, ModelParams{
		Formation: formation,
		Budget:    budget,
		Evolution: evo,
	})
	if err != nil {
		return Result{}, err
	}
	return Solve(ctx, engine, cat, m)
}
