package optimizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
)

var keeperDefender = Formation{1, 1, 0, 0}

// exampleCatalog: A(GK 4.0, 2) B(GK 4.5, 5) C(DEF 5.0, 3) D(DEF 5.5, 6).
func exampleCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.FromPlayers([]catalog.Player{
		{ID: "A", Position: catalog.Goalkeeper, Cost: 4.0, Score: 2},
		{ID: "B", Position: catalog.Goalkeeper, Cost: 4.5, Score: 5},
		{ID: "C", Position: catalog.Defender, Cost: 5.0, Score: 3},
		{ID: "D", Position: catalog.Defender, Cost: 5.5, Score: 6},
	})
	require.NoError(t, err)
	return cat
}

// squadCatalog builds a tie-free pool large enough for the default formations.
func squadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var players []catalog.Player
	sizes := map[catalog.Position]int{
		catalog.Goalkeeper: 3,
		catalog.Defender:   7,
		catalog.Midfielder: 7,
		catalog.Forward:    5,
	}
	n := 0
	for _, pos := range catalog.Positions {
		for i := 0; i < sizes[pos]; i++ {
			n++
			players = append(players, catalog.Player{
				ID:       fmt.Sprintf("%s%d", pos, i),
				Position: pos,
				Cost:     4.0 + float64((n*7)%9)*0.5,
				Score:    float64(n*13%23) + 0.01*float64(n),
			})
		}
	}
	cat, err := catalog.FromPlayers(players)
	require.NoError(t, err)
	return cat
}

func engine() solver.Engine {
	return solver.NewSimplexEngine()
}

func assertRosterShape(t *testing.T, cat *catalog.Catalog, f Formation, budget float64, res Result) {
	t.Helper()
	var counts Formation
	for _, id := range res.Selected {
		p, ok := cat.Player(id)
		require.True(t, ok)
		counts[p.Position.Index()]++
	}
	assert.Equal(t, f, counts)
	assert.LessOrEqual(t, res.TotalCost, budget+1e-9)
}

func TestSolveOneFormation_Example(t *testing.T) {
	cat := exampleCatalog(t)

	res, err := SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 10.0, nil)
	require.NoError(t, err)
	require.True(t, res.Feasible())
	assert.ElementsMatch(t, []string{"B", "D"}, res.Selected)
	assert.InDelta(t, 10.0, res.TotalCost, 1e-9)
	assert.InDelta(t, 11.0, res.TotalScore, 1e-9)
}

func TestSolveOneFormation_EvolutionExample(t *testing.T) {
	cat := exampleCatalog(t)
	evo := &Evolution{Baseline: []string{"A", "C"}, ChangeBudget: 1, ForcedExclusion: "A"}

	res, err := SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 10.0, evo)
	require.NoError(t, err)
	assert.NotContains(t, res.Selected, "A")
	assert.ElementsMatch(t, []string{"B", "D"}, res.Selected)
	assert.InDelta(t, 11.0, res.TotalScore, 1e-9)
}

func TestSolveOneFormation_RetentionBinds(t *testing.T) {
	cat := exampleCatalog(t)
	// Keep both of {A, C}: no changes allowed.
	res, err := SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 10.0,
		&Evolution{Baseline: []string{"A", "C"}, ChangeBudget: 0})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "C"}, res.Selected)
	assert.InDelta(t, 5.0, res.TotalScore, 1e-9)

	// One change: best is to swap one of them; A+D and B+C both score 8.
	res, err = SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 10.0,
		&Evolution{Baseline: []string{"A", "C"}, ChangeBudget: 1})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, res.TotalScore, 1e-9)
}

func TestSolveOneFormation_ForcedExclusionOutsideBaseline(t *testing.T) {
	cat := exampleCatalog(t)
	res, err := SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 10.0,
		&Evolution{Baseline: []string{"B", "C"}, ChangeBudget: 1, ForcedExclusion: "D"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C"}, res.Selected)
	assert.InDelta(t, 8.0, res.TotalScore, 1e-9)
}

func TestSolveOneFormation_InfeasibleIsSentinel(t *testing.T) {
	cat := exampleCatalog(t)

	res, err := SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 8.0, nil)
	require.NoError(t, err)
	assert.False(t, res.Feasible())
	assert.Equal(t, Result{}, res)

	// Not enough goalkeepers for the shape.
	res, err = SolveOneFormation(context.Background(), engine(), cat, Formation{3, 1, 0, 0}, 100, nil)
	require.NoError(t, err)
	assert.False(t, res.Feasible())
}

func TestSolveOneFormation_InputErrors(t *testing.T) {
	cat := exampleCatalog(t)
	ctx := context.Background()

	_, err := SolveOneFormation(ctx, engine(), cat, Formation{1, -1, 0, 0}, 10, nil)
	assert.ErrorIs(t, err, ErrInvalidFormation)

	_, err = SolveOneFormation(ctx, engine(), cat, keeperDefender, 10, &Evolution{Baseline: []string{"A", "A"}})
	assert.ErrorIs(t, err, ErrDuplicateBaseline)

	_, err = SolveOneFormation(ctx, engine(), cat, keeperDefender, 10, &Evolution{Baseline: []string{"Z"}})
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = SolveOneFormation(ctx, engine(), cat, keeperDefender, 10, &Evolution{Baseline: []string{"A"}, ChangeBudget: -1})
	assert.ErrorIs(t, err, ErrInvalidChangeBudget)
}

func TestSolveOneFormation_UnknownForcedExclusionIgnored(t *testing.T) {
	cat := exampleCatalog(t)
	res, err := SolveOneFormation(context.Background(), engine(), cat, keeperDefender, 10.0,
		&Evolution{Baseline: []string{"A", "C"}, ChangeBudget: 2, ForcedExclusion: "nobody"})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, res.TotalScore, 1e-9)
}

func TestSolveOneFormation_OutOfEnumNeverSelected(t *testing.T) {
	cat, err := catalog.FromPlayers([]catalog.Player{
		{ID: "keeper", Position: catalog.Goalkeeper, Cost: 4, Score: 1},
		{ID: "mascot", Position: "MASCOT", Cost: 0, Score: 100},
	})
	require.NoError(t, err)

	res, err := SolveOneFormation(context.Background(), engine(), cat, Formation{1, 0, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"keeper"}, res.Selected)
	assert.InDelta(t, 1.0, res.TotalScore, 1e-9)
}

type failingEngine struct{ err error }

func (f failingEngine) Name() string { return "failing" }

func (f failingEngine) Solve(context.Context, *solver.Model) (solver.Solution, error) {
	return solver.Solution{}, f.err
}

type statusEngine struct{ status solver.Status }

func (s statusEngine) Name() string { return "status" }

func (s statusEngine) Solve(_ context.Context, m *solver.Model) (solver.Solution, error) {
	return solver.Solution{Status: s.status, Values: make([]float64, len(m.Vars)), Objective: 42}, nil
}

func TestSolve_EngineFailurePropagates(t *testing.T) {
	cat := exampleCatalog(t)
	boom := errors.New("boom")

	_, err := SolveOneFormation(context.Background(), failingEngine{boom}, cat, keeperDefender, 10, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSolverInvocation)
	assert.ErrorIs(t, err, boom)
}

func TestSolve_NonOptimalStatusesAreSentinel(t *testing.T) {
	cat := exampleCatalog(t)
	for _, st := range []solver.Status{solver.StatusInfeasible, solver.StatusUnbounded, solver.StatusNotSolved} {
		t.Run(st.String(), func(t *testing.T) {
			res, err := SolveOneFormation(context.Background(), statusEngine{st}, cat, keeperDefender, 10, nil)
			require.NoError(t, err)
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestSolve_Idempotent(t *testing.T) {
	cat := squadCatalog(t)
	f := Formation{1, 4, 4, 2}

	first, err := SolveOneFormation(context.Background(), engine(), cat, f, 60, nil)
	require.NoError(t, err)
	require.True(t, first.Feasible())
	assertRosterShape(t, cat, f, 60, first)

	second, err := SolveOneFormation(context.Background(), engine(), cat, f, 60, nil)
	require.NoError(t, err)
	assert.InDelta(t, first.TotalScore, second.TotalScore, 1e-9)
	assert.InDelta(t, first.TotalCost, second.TotalCost, 1e-9)
}

func TestSolve_RetentionProperty(t *testing.T) {
	cat := squadCatalog(t)
	ctx := context.Background()
	f := Formation{1, 4, 4, 2}

	base, err := SolveOneFormation(ctx, engine(), cat, f, 55, nil)
	require.NoError(t, err)
	require.True(t, base.Feasible())

	forced := base.Selected[0]
	for _, changes := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("changes=%d", changes), func(t *testing.T) {
			res, err := SolveOneFormation(ctx, engine(), cat, f, 70, &Evolution{
				Baseline:        base.Selected,
				ChangeBudget:    changes,
				ForcedExclusion: forced,
			})
			require.NoError(t, err)
			require.True(t, res.Feasible())
			assertRosterShape(t, cat, f, 70, res)
			assert.NotContains(t, res.Selected, forced)

			kept := make(map[string]bool, len(res.Selected))
			for _, id := range res.Selected {
				kept[id] = true
			}
			dropped := 0
			for _, id := range base.Selected {
				if id != forced && !kept[id] {
					dropped++
				}
			}
			assert.LessOrEqual(t, dropped, changes)
		})
	}
}

func TestBuildModel_Shape(t *testing.T) {
	cat := exampleCatalog(t)
	m, err := BuildModel(cat, ModelParams{
		Formation: keeperDefender,
		Budget:    10,
		Evolution: &Evolution{Baseline: []string{"A", "C"}, ChangeBudget: 1, ForcedExclusion: "A"},
	})
	require.NoError(t, err)

	require.Len(t, m.Vars, 4)
	assert.Equal(t, "A", m.Vars[0].Name)
	assert.True(t, m.Vars[0].Fixed(), "forced exclusion pinned to zero")

	budget, ok := m.Constraint(BudgetConstraint)
	require.True(t, ok)
	assert.Equal(t, solver.LessEqual, budget.Sense)
	assert.InDelta(t, 10.0, budget.RHS, 1e-9)

	gk, ok := m.Constraint(PositionConstraint(catalog.Goalkeeper))
	require.True(t, ok)
	assert.Equal(t, solver.Equal, gk.Sense)
	assert.Len(t, gk.Terms, 2)

	mid, ok := m.Constraint(PositionConstraint(catalog.Midfielder))
	require.True(t, ok)
	assert.Empty(t, mid.Terms)
	assert.Zero(t, mid.RHS)

	ret, ok := m.Constraint(RetentionConstraint)
	require.True(t, ok)
	assert.Equal(t, solver.GreaterEqual, ret.Sense)
	assert.Equal(t, []solver.Term{{Var: 2, Coef: 1}}, ret.Terms)
	assert.InDelta(t, 0.0, ret.RHS, 1e-9)
}

func TestBuildModel_FreshHasNoRetention(t *testing.T) {
	m, err := BuildModel(exampleCatalog(t), ModelParams{Formation: keeperDefender, Budget: 10, ForcedExclusion: "B"})
	require.NoError(t, err)
	_, ok := m.Constraint(RetentionConstraint)
	assert.False(t, ok)
	assert.True(t, m.Vars[1].Fixed())
}
