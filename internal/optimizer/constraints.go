package optimizer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

// Constraint names used in built models.
const (
	BudgetConstraint    = "budget"
	RetentionConstraint = "retention"
)

// PositionConstraint returns the name of the exactness row for pos.
func PositionConstraint(pos catalog.Position) string {
	return "pos_" + string(pos)
}

// ModelParams describes one roster problem.
type ModelParams struct {
	Formation Formation
	Budget    float64
	// Evolution is nil for a fresh pick.
	Evolution *Evolution
	// ForcedExclusion applies without a baseline. Evolution.ForcedExclusion
	// takes precedence when both are set.
	ForcedExclusion string
}

func (p ModelParams) forcedExclusion() string {
	if p.Evolution != nil && p.Evolution.ForcedExclusion != "" {
		return p.Evolution.ForcedExclusion
	}
	return p.ForcedExclusion
}

// BuildModel formulates the selection problem as a 0/1 program with one
// variable per catalog player, in catalog id order. Variable names are player
// ids. Players that can never improve on an optimal roster (see
// dominatedPlayers) are fixed to zero so engines search a smaller space. An
// unsatisfiable budget yields an infeasible model, not an error.
func BuildModel(cat *catalog.Catalog, params ModelParams) (*solver.Model, error) {
	if err := params.Formation.Validate(); err != nil {
		return nil, err
	}

	ids := cat.IDs()
	index := make(map[string]int, len(ids))
	m := solver.NewModel("roster_" + params.Formation.String())

	budget := make([]solver.Term, 0, len(ids))
	objective := make([]solver.Term, 0, len(ids))
	for _, id := range ids {
		p, _ := cat.Player(id)
		v := m.AddBinary(id)
		index[id] = v
		if !p.Position.Valid() {
			// No position row covers it, so it could only ever be picked
			// for free score.
			m.FixZero(v)
		}
		budget = append(budget, solver.Term{Var: v, Coef: p.Cost})
		objective = append(objective, solver.Term{Var: v, Coef: p.Score})
	}

	m.AddConstraint(BudgetConstraint, budget, solver.LessEqual, params.Budget)
	for i, pos := range catalog.Positions {
		members := cat.ByPosition(pos)
		terms := make([]solver.Term, 0, len(members))
		for _, id := range members {
			terms = append(terms, solver.Term{Var: index[id], Coef: 1})
		}
		m.AddConstraint(PositionConstraint(pos), terms, solver.Equal, float64(params.Formation[i]))
	}

	forced := params.forcedExclusion()
	if forced != "" {
		if v, ok := index[forced]; ok {
			m.FixZero(v)
		} else {
			logger.WithComponent("model_builder").WithField("player_id", forced).
				Warn("Forced exclusion is not in the catalog, ignoring")
		}
	}

	protected := make(map[string]bool)
	if evo := params.Evolution; evo != nil {
		if evo.ChangeBudget < 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidChangeBudget, evo.ChangeBudget)
		}
		effective, err := effectiveBaseline(cat, evo.Baseline, forced)
		if err != nil {
			return nil, err
		}
		for _, id := range effective {
			protected[id] = true
		}
		terms := make([]solver.Term, 0, len(effective))
		for _, id := range effective {
			terms = append(terms, solver.Term{Var: index[id], Coef: 1})
		}
		m.AddConstraint(RetentionConstraint, terms, solver.GreaterEqual, float64(len(effective)-evo.ChangeBudget))

		logger.WithComponent("model_builder").WithFields(logrus.Fields{
			"baseline":      len(evo.Baseline),
			"effective":     len(effective),
			"change_budget": evo.ChangeBudget,
		}).Debug("Retention constraint added")
	}

	pruned := 0
	for i, pos := range catalog.Positions {
		for _, id := range dominatedPlayers(cat, pos, params.Formation[i], protected, forced) {
			m.FixZero(index[id])
			pruned++
		}
	}
	if pruned > 0 {
		logger.WithComponent("model_builder").WithFields(logrus.Fields{
			"model":  m.Name,
			"pruned": pruned,
		}).Debug("Dominated players fixed to zero")
	}

	m.Maximize(objective)
	return m, nil
}

// effectiveBaseline validates the baseline and drops the forced exclusion.
func effectiveBaseline(cat *catalog.Catalog, baseline []string, forced string) ([]string, error) {
	seen := make(map[string]struct{}, len(baseline))
	out := make([]string, 0, len(baseline))
	for _, id := range baseline {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBaseline, id)
		}
		seen[id] = struct{}{}
		if !cat.Has(id) {
			return nil, fmt.Errorf("%w: baseline id %q", ErrUnknownPlayer, id)
		}
		if id == forced {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
