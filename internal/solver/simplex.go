package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

const (
	defaultSimplexTol     = 1e-10
	defaultIntegralityTol = 1e-6
	defaultMaxNodes       = 200000
	feasibilityTol        = 1e-9
)

// SimplexEngine solves models in-process: LP relaxations go to gonum's
// simplex, integrality is recovered by depth-first branch and bound on the
// most fractional variable.
type SimplexEngine struct {
	Tolerance      float64
	IntegralityTol float64
	// MaxNodes caps the branch-and-bound tree. Hitting the cap yields
	// StatusNotSolved. Zero means no cap.
	MaxNodes int
	logger   *logrus.Entry
}

func NewSimplexEngine() *SimplexEngine {
	return &SimplexEngine{
		Tolerance:      defaultSimplexTol,
		IntegralityTol: defaultIntegralityTol,
		MaxNodes:       defaultMaxNodes,
		logger:         logger.WithComponent("simplex_engine"),
	}
}

func (e *SimplexEngine) Name() string {
	return "simplex"
}

func (e *SimplexEngine) Solve(ctx context.Context, m *Model) (Solution, error) {
	if err := m.Validate(); err != nil {
		return Solution{}, err
	}

	bb := &branchAndBound{
		engine: e,
		model:  m,
	}

	fixed := make(map[int]float64)
	for i, v := range m.Vars {
		if v.Fixed() {
			fixed[i] = v.Lower
		}
	}

	if err := bb.search(ctx, fixed, true); err != nil {
		return Solution{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"model":     m.Name,
		"variables": len(m.Vars),
		"nodes":     bb.nodes,
		"found":     bb.best != nil,
		"truncated": bb.truncated,
	}).Debug("Branch and bound finished")

	switch {
	case bb.unbounded:
		return Solution{Status: StatusUnbounded}, nil
	case bb.best == nil && bb.truncated:
		return Solution{Status: StatusNotSolved}, nil
	case bb.best == nil:
		return Solution{Status: StatusInfeasible}, nil
	case bb.truncated:
		return Solution{Status: StatusNotSolved, Values: bb.best, Objective: bb.bestObj}, nil
	}
	return Solution{Status: StatusOptimal, Values: bb.best, Objective: bb.bestObj}, nil
}

type branchAndBound struct {
	engine    *SimplexEngine
	model     *Model
	nodes     int
	best      []float64
	bestObj   float64
	truncated bool
	unbounded bool
}

func (bb *branchAndBound) search(ctx context.Context, fixed map[int]float64, root bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bb.truncated || bb.unbounded {
		return nil
	}
	bb.nodes++
	if bb.engine.MaxNodes > 0 && bb.nodes > bb.engine.MaxNodes {
		bb.truncated = true
		return nil
	}

	obj, x, status, err := bb.relax(ctx, fixed)
	if err != nil {
		return err
	}
	switch status {
	case StatusInfeasible:
		return nil
	case StatusUnbounded:
		if root {
			bb.unbounded = true
		}
		return nil
	}

	// Bound: this subtree cannot beat the incumbent.
	if bb.best != nil && obj <= bb.bestObj+feasibilityTol {
		return nil
	}

	var branchVar int
	if status == StatusNotSolved {
		branchVar = bb.firstFree(fixed)
	} else {
		branchVar = bb.mostFractional(x)
	}
	if branchVar < 0 {
		rounded := make([]float64, len(x))
		for i, v := range x {
			rounded[i] = math.Round(v)
		}
		if !bb.model.Feasible(rounded, 1e-6) {
			return fmt.Errorf("simplex: rounded relaxation violates model %q", bb.model.Name)
		}
		roundedObj := bb.model.Evaluate(rounded)
		if bb.best == nil || roundedObj > bb.bestObj+feasibilityTol {
			bb.best = rounded
			bb.bestObj = roundedObj
		}
		return nil
	}

	for _, value := range [2]float64{1, 0} {
		child := make(map[int]float64, len(fixed)+1)
		for k, v := range fixed {
			child[k] = v
		}
		child[branchVar] = value
		if err := bb.search(ctx, child, false); err != nil {
			return err
		}
	}
	return nil
}

func (bb *branchAndBound) firstFree(fixed map[int]float64) int {
	for i := range bb.model.Vars {
		if _, ok := fixed[i]; !ok {
			return i
		}
	}
	return -1
}

func (bb *branchAndBound) mostFractional(x []float64) int {
	idx := -1
	worst := bb.engine.IntegralityTol
	for i, v := range x {
		frac := math.Abs(v - math.Round(v))
		if frac > worst {
			worst = frac
			idx = i
		}
	}
	return idx
}

// relax solves the LP relaxation with the variables in fixed substituted out.
// The returned objective is in maximization terms and x covers every model
// variable. A single LP can be slow, so it runs apart from the search and is
// abandoned when ctx ends.
func (bb *branchAndBound) relax(ctx context.Context, fixed map[int]float64) (float64, []float64, Status, error) {
	m := bb.model
	n := len(m.Vars)

	free := make([]int, 0, n)
	col := make([]int, n)
	for i := range m.Vars {
		if _, ok := fixed[i]; ok {
			col[i] = -1
			continue
		}
		col[i] = len(free)
		free = append(free, i)
	}

	x := make([]float64, n)
	for i, v := range fixed {
		x[i] = v
	}
	constant := 0.0
	for _, t := range m.Objective {
		if col[t.Var] < 0 {
			constant += t.Coef * x[t.Var]
		}
	}

	type row struct {
		coefs []float64
		sense Sense
		rhs   float64
	}
	rows := make([]row, 0, len(m.Constraints)+len(free))
	slacks := 0
	equalities := 0
	for _, c := range m.Constraints {
		coefs := make([]float64, len(free))
		rhs := c.RHS
		nonZero := false
		for _, t := range c.Terms {
			if j := col[t.Var]; j >= 0 {
				coefs[j] += t.Coef
			} else {
				rhs -= t.Coef * x[t.Var]
			}
		}
		for _, v := range coefs {
			if v != 0 {
				nonZero = true
				break
			}
		}
		if !nonZero {
			if !(Constraint{Sense: c.Sense, RHS: rhs}).Satisfied(nil, feasibilityTol) {
				return 0, nil, StatusInfeasible, nil
			}
			continue
		}
		if c.Sense == Equal {
			equalities++
		} else {
			slacks++
		}
		rows = append(rows, row{coefs: coefs, sense: c.Sense, rhs: rhs})
	}

	if len(free) == 0 {
		return constant, x, StatusOptimal, nil
	}
	if equalities > len(free) {
		return math.Inf(1), nil, StatusNotSolved, nil
	}

	// Columns: free variables, one slack per inequality, one slack per upper bound.
	nRows := len(rows) + len(free)
	nCols := len(free) + slacks + len(free)
	A := mat.NewDense(nRows, nCols, nil)
	b := make([]float64, nRows)
	c := make([]float64, nCols)

	slack := len(free)
	for r, rw := range rows {
		for j, v := range rw.coefs {
			if v != 0 {
				A.Set(r, j, v)
			}
		}
		switch rw.sense {
		case LessEqual:
			A.Set(r, slack, 1)
			slack++
		case GreaterEqual:
			A.Set(r, slack, -1)
			slack++
		}
		b[r] = rw.rhs
	}
	for j, v := range free {
		r := len(rows) + j
		A.Set(r, j, 1)
		A.Set(r, slack, 1)
		slack++
		b[r] = m.Vars[v].Upper
	}
	for _, t := range m.Objective {
		if j := col[t.Var]; j >= 0 {
			c[j] -= t.Coef
		}
	}

	optF, optX, err := simplexContext(ctx, c, A, b, bb.engine.Tolerance)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 0, nil, StatusNotSolved, err
	case errors.Is(err, lp.ErrInfeasible):
		return 0, nil, StatusInfeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return 0, nil, StatusUnbounded, nil
	case err != nil:
		// Numeric trouble (degenerate pivots, ill-conditioned basis). The
		// node gets no usable bound and is split on a free variable instead.
		bb.engine.logger.WithError(err).Debug("LP relaxation failed, branching without bound")
		return math.Inf(1), nil, StatusNotSolved, nil
	}

	for j, v := range free {
		x[v] = optX[j]
	}
	return constant - optF, x, StatusOptimal, nil
}

type lpOutcome struct {
	opt float64
	x   []float64
	err error
}

// simplexContext runs lp.Simplex and returns ctx's error as soon as ctx is
// done. The abandoned solve finishes in the background and is discarded.
func simplexContext(ctx context.Context, c []float64, A mat.Matrix, b []float64, tol float64) (float64, []float64, error) {
	done := make(chan lpOutcome, 1)
	go func() {
		opt, x, err := lp.Simplex(c, A, b, tol, nil)
		done <- lpOutcome{opt: opt, x: x, err: err}
	}()
	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case out := <-done:
		return out.opt, out.x, out.err
	}
}
