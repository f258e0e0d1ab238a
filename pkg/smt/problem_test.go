package smt

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeclareMakesNamesUnique(t *testing.T) {
	problem := NewProblem()

	a := problem.Declare("send time")
	b := problem.Declare("send time")
	c := problem.Declare("0start")

	assert.Equal(t, "send_time", a.Name())
	assert.Equal(t, "send_time_2", b.Name())
	assert.Equal(t, "v0start", c.Name())
	assert.NotEqual(t, a.ID(), b.ID())

	found, ok := problem.Lookup("send_time_2")
	assert.True(t, ok)
	assert.Same(t, b, found)
}

func TestExprArithmetic(t *testing.T) {
	problem := NewProblem()
	x := problem.Declare("x")
	y := problem.Declare("y")

	//** Act
	expr := Sum(V(x), V(y).Mul(big.NewRat(3, 1)), Int(4)).Sub(V(x))
	half := expr.Div(big.NewRat(2, 1))

	//** Assert
	assert.Len(t, expr.Terms(), 1) // x cancels out
	assert.Same(t, y, expr.Terms()[0].Var)
	assert.Equal(t, "(+ (* 3.0 y) 4.0)", expr.String())
	assert.Equal(t, "(+ (* (/ 3.0 2.0) y) 2.0)", half.String())
	assert.Equal(t, "(- 5.0)", Int(-5).String())
	assert.True(t, Int(1).IsConstant())
}

func TestToSMTLIB(t *testing.T) {
	//** Arrange
	problem := NewProblem()
	x := problem.Declare("x")
	y := problem.Declare("y")
	problem.Assert(Ge(V(x), Int(0)))
	problem.AssertLabeled("a1", Disjunction(Lt(V(x), V(y)), Not{Formula: Eq(V(y), R(big.NewRat(7, 2)))}))
	problem.Minimize(Sum(V(x), V(y)))

	//** Act
	script := problem.ToSMTLIB()

	//** Assert
	expected := []string{
		"(set-option :produce-models true)",
		"(set-option :produce-unsat-cores true)",
		"(declare-const x Real)",
		"(declare-const y Real)",
		"(assert (>= x 0.0))",
		"(assert (! (or (< x y) (not (= y (/ 7.0 2.0)))) :named a1))",
		"(minimize (+ x y))",
	}
	assert.Equal(t, strings.Join(expected, "\n")+"\n", script)
}

func TestToSMTLIBWithoutLabels(t *testing.T) {
	problem := NewProblem()
	x := problem.Declare("x")
	problem.Assert(Conjunction())
	problem.Assert(Iff{Left: Le(V(x), Int(1)), Right: Disjunction()})

	script := problem.ToSMTLIB()

	assert.False(t, problem.Labeled())
	assert.NotContains(t, script, "produce-unsat-cores")
	assert.Contains(t, script, "(assert true)")
	assert.Contains(t, script, "(assert (= (<= x 1.0) false))")
}
