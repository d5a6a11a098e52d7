package solver

import (
	"context"
	"fmt"
	"os/exec"
)

// Status is the outcome class reported by an engine.
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "not_solved"
	}
}

// Solution carries one value per model variable. Values is only meaningful
// when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Engine solves a model. Errors are reserved for failures of the engine itself;
// an infeasible or unbounded model is reported through Solution.Status.
type Engine interface {
	Name() string
	Solve(ctx context.Context, m *Model) (Solution, error)
}

// NewEngine returns the engine registered under name. "auto" picks CBC when
// cbcPath resolves to an executable and the in-process simplex otherwise.
func NewEngine(name, cbcPath string) (Engine, error) {
	switch name {
	case "", "simplex":
		return NewSimplexEngine(), nil
	case "cbc":
		return NewCBCEngine(cbcPath), nil
	case "auto":
		if cbcPath == "" {
			cbcPath = "cbc"
		}
		if resolved, err := exec.LookPath(cbcPath); err == nil {
			return NewCBCEngine(resolved), nil
		}
		return NewSimplexEngine(), nil
	}
	return nil, fmt.Errorf("unknown solver engine %q", name)
}
