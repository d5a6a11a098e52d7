package optimizer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

// Driver compares several formations with one engine.
type Driver struct {
	Engine solver.Engine
	Logger *logrus.Entry
	// Progress, if set, is called after each formation is solved.
	Progress func(ProgressUpdate)
}

func NewDriver(engine solver.Engine) *Driver {
	return &Driver{
		Engine: engine,
		Logger: logger.WithComponent("formation_driver"),
	}
}

// BestAcrossFormations solves every formation in order. A formation with no
// roster is recorded with zero score and the loop carries on; input and engine
// errors abort. The best record starts at zero and only moves on a strictly
// higher score, so the earliest formation wins a tie and a roster scoring
// zero or less never becomes best.
func (d *Driver) BestAcrossFormations(ctx context.Context, cat *catalog.Catalog, formations []Formation, budget float64, evo *Evolution) (*Comparison, error) {
	log := d.Logger
	if log == nil {
		log = logger.WithComponent("formation_driver")
	}

	start := time.Now()
	cmp := &Comparison{Results: make([]FormationResult, 0, len(formations))}
	bestScore := 0.0

	for i, f := range formations {
		res, err := SolveOneFormation(ctx, d.Engine, cat, f, budget, evo)
		if err != nil {
			return nil, err
		}

		fr := FormationResult{
			Formation:  f,
			Name:       f.String(),
			TotalScore: res.TotalScore,
			Result:     res,
		}
		cmp.Results = append(cmp.Results, fr)

		if res.Feasible() && res.TotalScore > bestScore {
			best := fr
			cmp.Best = &best
			bestScore = res.TotalScore
		}

		logger.WithFormation(log, f.String()).WithFields(logrus.Fields{
			"feasible":    res.Feasible(),
			"total_score": res.TotalScore,
			"total_cost":  res.TotalCost,
		}).Info("Formation solved")

		if d.Progress != nil {
			update := ProgressUpdate{
				Index:     i,
				Total:     len(formations),
				Formation: f.String(),
				Result:    fr,
				Elapsed:   time.Since(start),
			}
			if cmp.Best != nil {
				update.BestSoFar = cmp.Best.Name
				update.BestScore = cmp.Best.TotalScore
			}
			d.Progress(update)
		}
	}

	if cmp.Best == nil {
		log.WithField("formations", len(formations)).Warn("No formation produced a roster")
	}
	return cmp, nil
}
