// Package lra decides conjunctions of linear real arithmetic constraints with an exact general simplex.
//
// Every distinct linear form gets a slack variable and the rows become lower and upper bounds on
// variables. Strict bounds are kept symbolic as c + k*delta for an infinitesimal positive delta, which is
// only made concrete when a solution is returned. Pivoting follows Bland's rule, so the search terminates.
package lra

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/samber/lo"
)

var ErrUnbounded = errors.New("lra: objective is unbounded")

// Row is the constraint sum(Coeffs[v] * x_v) <= Bound, or < Bound when Strict
type Row struct {
	Coeffs map[int]*big.Rat
	Bound  *big.Rat
	Strict bool
}

// Negate returns the complement of the row: not(a <= b) is -a < -b and not(a < b) is -a <= -b
func (row Row) Negate() Row {
	return Row{
		Coeffs: lo.MapValues(row.Coeffs, func(coeff *big.Rat, _ int) *big.Rat { return new(big.Rat).Neg(coeff) }),
		Bound:  new(big.Rat).Neg(row.Bound),
		Strict: !row.Strict,
	}
}

// Holds evaluates the row on the given assignment, missing variables count as zero
func (row Row) Holds(values map[int]*big.Rat) bool {
	sum := new(big.Rat)
	for v, coeff := range row.Coeffs {
		if value, ok := values[v]; ok {
			sum.Add(sum, new(big.Rat).Mul(coeff, value))
		}
	}
	if row.Strict {
		return sum.Cmp(row.Bound) < 0
	}
	return sum.Cmp(row.Bound) <= 0
}

func (row Row) String() string {
	ids := lo.Keys(row.Coeffs)
	slices.Sort(ids)
	terms := lo.Map(ids, func(v int, _ int) string { return fmt.Sprintf("%s*x%d", row.Coeffs[v].RatString(), v) })
	return fmt.Sprintf("%s %s %s", strings.Join(terms, " + "), lo.Ternary(row.Strict, "<", "<="), row.Bound.RatString())
}

// Solution is a satisfying assignment for the variables occurring in the rows
type Solution struct {
	Values    map[int]*big.Rat
	Objective *big.Rat // Objective value of Values, nil when nothing was minimized
	Infimum   *big.Rat // Greatest lower bound of the objective, equal to Objective unless strict rows prevent it
}

// Feasible decides whether all rows can hold simultaneously. It returns a solution when they can; otherwise
// it returns the indices of a subset of the rows that is already infeasible on its own.
func Feasible(rows []Row) (*Solution, []int) {
	t, conflict := newTableau(rows)
	if conflict == nil {
		conflict = t.check()
	}
	if conflict != nil {
		slices.Sort(conflict)
		return nil, slices.Compact(conflict)
	}
	return &Solution{Values: t.solution()}, nil
}

// Minimize finds a solution of the rows with the smallest objective value. When strict rows keep the
// infimum out of reach, the returned solution lies strictly between the infimum and every bound it can
// still move towards. A nil solution means the rows are infeasible.
func Minimize(rows []Row, objective map[int]*big.Rat) (*Solution, error) {
	t, conflict := newTableau(rows)
	if conflict == nil {
		conflict = t.check()
	}
	if conflict != nil {
		return nil, nil
	}

	costs := make(map[int]*big.Rat)
	for v, coeff := range objective {
		if coeff.Sign() == 0 {
			continue
		}
		j, ok := t.columns[v]
		if !ok {
			return nil, ErrUnbounded // A free variable that no row mentions
		}
		costs[j] = coeff
	}
	if err := t.minimize(costs); err != nil {
		return nil, err
	}

	value := zero()
	for j, coeff := range costs {
		value = value.add(t.values[j].scale(coeff))
	}
	solution := &Solution{Values: t.solution(), Infimum: value.c}
	solution.Objective = new(big.Rat)
	for v, coeff := range objective {
		if x, ok := solution.Values[v]; ok {
			solution.Objective.Add(solution.Objective, new(big.Rat).Mul(coeff, x))
		}
	}
	return solution, nil
}
