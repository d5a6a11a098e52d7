// Package solver describes 0/1 integer programs and the engines that solve them.
//
// A Model is a plain description: binary variables, linear constraints and a
// linear objective to maximize. Engines turn a Model into a Solution. The
// optimizer package builds models and never looks inside an engine.
package solver

import (
	"errors"
	"fmt"
)

// Sense is the relation between a constraint's left-hand side and its bound.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Term is coef * x[Var].
type Term struct {
	Var  int
	Coef float64
}

// Variable is a binary decision variable. Upper 0 fixes it to 0.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
}

// Fixed reports whether the variable can take only one value.
func (v Variable) Fixed() bool {
	return v.Lower == v.Upper
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Satisfied evaluates the constraint at x within tol.
func (c Constraint) Satisfied(x []float64, tol float64) bool {
	lhs := 0.0
	for _, t := range c.Terms {
		lhs += t.Coef * x[t.Var]
	}
	switch c.Sense {
	case LessEqual:
		return lhs <= c.RHS+tol
	case GreaterEqual:
		return lhs >= c.RHS-tol
	default:
		return lhs >= c.RHS-tol && lhs <= c.RHS+tol
	}
}

// Model is a maximization over binary variables.
type Model struct {
	Name        string
	Vars        []Variable
	Constraints []Constraint
	Objective   []Term
}

var ErrInvalidModel = errors.New("invalid model")

func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddBinary appends a 0/1 variable and returns its index.
func (m *Model) AddBinary(name string) int {
	m.Vars = append(m.Vars, Variable{Name: name, Lower: 0, Upper: 1})
	return len(m.Vars) - 1
}

// FixZero pins x[v] to 0.
func (m *Model) FixZero(v int) {
	m.Vars[v].Lower = 0
	m.Vars[v].Upper = 0
}

func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{
		Name:  name,
		Terms: terms,
		Sense: sense,
		RHS:   rhs,
	})
}

// Maximize sets the objective.
func (m *Model) Maximize(terms []Term) {
	m.Objective = terms
}

// Constraint returns the first constraint with the given name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	for _, c := range m.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Evaluate returns the objective value at x.
func (m *Model) Evaluate(x []float64) float64 {
	total := 0.0
	for _, t := range m.Objective {
		total += t.Coef * x[t.Var]
	}
	return total
}

// Feasible reports whether x satisfies bounds and every constraint within tol.
func (m *Model) Feasible(x []float64, tol float64) bool {
	if len(x) != len(m.Vars) {
		return false
	}
	for i, v := range m.Vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		if !c.Satisfied(x, tol) {
			return false
		}
	}
	return true
}

// Validate checks that every term references an existing variable and that
// bounds are sane.
func (m *Model) Validate() error {
	n := len(m.Vars)
	for i, v := range m.Vars {
		if v.Lower < 0 || v.Upper > 1 || v.Lower > v.Upper {
			return fmt.Errorf("%w: variable %d (%s) has bounds [%v, %v]", ErrInvalidModel, i, v.Name, v.Lower, v.Upper)
		}
	}
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("%w: %s references variable %d of %d", ErrInvalidModel, where, t.Var, n)
			}
		}
		return nil
	}
	if err := check("objective", m.Objective); err != nil {
		return err
	}
	for _, c := range m.Constraints {
		if err := check("constraint "+c.Name, c.Terms); err != nil {
			return err
		}
	}
	return nil
}
