package smt

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Var is a real-valued unknown declared in a Problem. Variables are compared by identity.
type Var struct {
	id   int
	name string
}

func (v *Var) ID() int {
	return v.id
}

func (v *Var) Name() string {
	return v.name
}

func (v *Var) String() string {
	return v.name
}

// Term is a single coefficient-variable product of a linear expression
type Term struct {
	Var   *Var
	Coeff *big.Rat
}

// Expr is an immutable linear expression over real variables: sum(coeff_i * var_i) + constant
type Expr struct {
	terms    []Term // Sorted by variable id, zero coefficients are never stored
	constant *big.Rat
}

// V returns the expression consisting of the variable v alone
func V(v *Var) Expr {
	return Expr{terms: []Term{{Var: v, Coeff: big.NewRat(1, 1)}}}
}

// R returns a constant expression
func R(r *big.Rat) Expr {
	return Expr{constant: new(big.Rat).Set(r)}
}

// Int returns an integer constant expression
func Int(i int64) Expr {
	return Expr{constant: big.NewRat(i, 1)}
}

// Sum adds all expressions together; the sum of nothing is zero
func Sum(exprs ...Expr) Expr {
	return lo.Reduce(exprs, func(sum Expr, expr Expr, _ int) Expr { return sum.Add(expr) }, Int(0))
}

func (e Expr) Terms() []Term {
	return e.terms
}

func (e Expr) Constant() *big.Rat {
	if e.constant == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(e.constant)
}

// IsConstant reports whether the expression does not depend on any variable
func (e Expr) IsConstant() bool {
	return len(e.terms) == 0
}

func (e Expr) Add(other Expr) Expr {
	return combine(e, other, big.NewRat(1, 1))
}

func (e Expr) Sub(other Expr) Expr {
	return combine(e, other, big.NewRat(-1, 1))
}

// Mul scales the expression by a constant factor
func (e Expr) Mul(factor *big.Rat) Expr {
	if factor.Sign() == 0 {
		return Int(0)
	}
	result := Expr{constant: new(big.Rat).Mul(e.Constant(), factor)}
	for _, term := range e.terms {
		result.terms = append(result.terms, Term{Var: term.Var, Coeff: new(big.Rat).Mul(term.Coeff, factor)})
	}
	return result
}

// Div divides the expression by a non-zero constant
func (e Expr) Div(divisor *big.Rat) Expr {
	return e.Mul(new(big.Rat).Inv(divisor))
}

func (e Expr) Neg() Expr {
	return e.Mul(big.NewRat(-1, 1))
}

func combine(a, b Expr, factor *big.Rat) Expr {
	coeffs := make(map[int]Term, len(a.terms)+len(b.terms))
	for _, term := range a.terms {
		coeffs[term.Var.id] = Term{Var: term.Var, Coeff: new(big.Rat).Set(term.Coeff)}
	}
	for _, term := range b.terms {
		scaled := new(big.Rat).Mul(term.Coeff, factor)
		if existing, ok := coeffs[term.Var.id]; ok {
			existing.Coeff.Add(existing.Coeff, scaled)
			continue
		}
		coeffs[term.Var.id] = Term{Var: term.Var, Coeff: scaled}
	}

	result := Expr{constant: new(big.Rat).Add(a.Constant(), new(big.Rat).Mul(b.Constant(), factor))}
	for _, term := range coeffs {
		if term.Coeff.Sign() != 0 {
			result.terms = append(result.terms, term)
		}
	}
	slices.SortFunc(result.terms, func(x, y Term) int { return x.Var.id - y.Var.id })
	return result
}

func (e Expr) String() string {
	parts := lo.Map(e.terms, func(term Term, _ int) string {
		if term.Coeff.Cmp(big.NewRat(1, 1)) == 0 {
			return term.Var.name
		}
		return fmt.Sprintf("(* %s %s)", formatRational(term.Coeff), term.Var.name)
	})
	if constant := e.Constant(); constant.Sign() != 0 || len(parts) == 0 {
		parts = append(parts, formatRational(constant))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(+ " + strings.Join(parts, " ") + ")"
}

// formatRational renders r as an SMT-LIB real literal, e.g. 7/2 becomes (/ 7.0 2.0) and -3 becomes (- 3.0)
func formatRational(r *big.Rat) string {
	numerator := new(big.Int).Abs(r.Num())
	var literal string
	if r.IsInt() {
		literal = numerator.String() + ".0"
	} else {
		literal = fmt.Sprintf("(/ %s.0 %s.0)", numerator, r.Denom())
	}
	if r.Sign() < 0 {
		return "(- " + literal + ")"
	}
	return literal
}
