package smt

import (
	"context"
	"fmt"
)

type Status int

const (
	Unknown Status = iota
	Satisfiable
	Unsatisfiable
)

func (s Status) String() string {
	switch s {
	case Satisfiable:
		return "sat"
	case Unsatisfiable:
		return "unsat"
	default:
		return "unknown"
	}
}

// Model maps variable names onto their value as printed by the solver (e.g. "7/2" or "(/ 7.0 2.0)")
type Model map[string]string

// Value decodes the value of v. Variables left unconstrained by the solver evaluate to zero.
func (m Model) Value(v *Var) (float64, error) {
	raw, ok := m[v.name]
	if !ok {
		return 0, nil
	}
	value, err := DecodeValue(raw)
	if err != nil {
		return 0, fmt.Errorf("cannot decode value of %v: %w", v.name, err)
	}
	return value, nil
}

type Result struct {
	Status Status
	Model  Model    // Only set when Status is Satisfiable
	Core   []string // Labels of a conflicting subset of assertions, only set when Status is Unsatisfiable and assertions are labeled
}

// Solver decides a Problem. When the problem carries an objective the solver minimizes it, otherwise it
// only checks satisfiability. An unsatisfiable problem is a valid outcome and not an error; errors are
// reserved for solver failures and context cancellation.
type Solver interface {
	Solve(ctx context.Context, problem *Problem) (*Result, error)
}
