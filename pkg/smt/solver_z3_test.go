package smt

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func z3Available(t *testing.T) {
	if _, err := exec.LookPath(getExecutablePath("z3Path", defaultZ3Path)); err != nil {
		t.Skip("z3 is not installed")
	}
}

func TestZ3Satisfiable(t *testing.T) {
	z3Available(t)

	//** Arrange
	problem := NewProblem()
	x := problem.Declare("x")
	y := problem.Declare("y")
	problem.Assert(Eq(V(x), Int(10)))
	problem.Assert(Disjunction(Le(V(y).Add(Int(3)), V(x)), Le(V(x).Add(Int(2)), V(y))))
	problem.Assert(Ge(V(y), Int(8)))
	problem.Minimize(V(y))

	//** Act
	result, err := NewZ3Solver().Solve(context.Background(), problem)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, Satisfiable, result.Status)
	assert.InDelta(t, 10, value(t, result, x), 1e-9)
	assert.InDelta(t, 12, value(t, result, y), 1e-9)
}

func TestZ3UnsatisfiableCore(t *testing.T) {
	z3Available(t)

	//** Arrange
	problem := NewProblem()
	x := problem.Declare("x")
	problem.AssertLabeled("a1", Ge(V(x), Int(5)))
	problem.AssertLabeled("a2", Lt(V(x), Int(5)))
	problem.AssertLabeled("a3", Le(V(x), Int(100)))

	//** Act
	result, err := NewZ3Solver().Solve(context.Background(), problem)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, Unsatisfiable, result.Status)
	assert.ElementsMatch(t, []string{"a1", "a2"}, result.Core)
}
