package smt

import (
	"strings"

	"github.com/samber/lo"
)

type Relation int

const (
	LessEqual Relation = iota
	Less
	Equal
	GreaterEqual
	Greater
)

var relationSymbols = map[Relation]string{
	LessEqual:    "<=",
	Less:         "<",
	Equal:        "=",
	GreaterEqual: ">=",
	Greater:      ">",
}

func (r Relation) String() string {
	return relationSymbols[r]
}

// Formula is a boolean combination of linear (in)equalities
type Formula interface {
	String() string
	isFormula()
}

// Atom compares two linear expressions
type Atom struct {
	Left     Expr
	Relation Relation
	Right    Expr
}

type Not struct {
	Formula Formula
}

type And []Formula

type Or []Formula

// Iff holds when both sides have the same truth value
type Iff struct {
	Left, Right Formula
}

func (Atom) isFormula() {}
func (Not) isFormula()  {}
func (And) isFormula()  {}
func (Or) isFormula()   {}
func (Iff) isFormula()  {}

func Le(left, right Expr) Formula { return Atom{Left: left, Relation: LessEqual, Right: right} }
func Lt(left, right Expr) Formula { return Atom{Left: left, Relation: Less, Right: right} }
func Eq(left, right Expr) Formula { return Atom{Left: left, Relation: Equal, Right: right} }
func Ge(left, right Expr) Formula { return Atom{Left: left, Relation: GreaterEqual, Right: right} }
func Gt(left, right Expr) Formula { return Atom{Left: left, Relation: Greater, Right: right} }

func Disjunction(formulas ...Formula) Formula { return Or(formulas) }
func Conjunction(formulas ...Formula) Formula { return And(formulas) }

func (a Atom) String() string {
	return "(" + a.Relation.String() + " " + a.Left.String() + " " + a.Right.String() + ")"
}

func (n Not) String() string {
	return "(not " + n.Formula.String() + ")"
}

func (a And) String() string {
	return nary("and", "true", a)
}

func (o Or) String() string {
	return nary("or", "false", o)
}

func (i Iff) String() string {
	return "(= " + i.Left.String() + " " + i.Right.String() + ")"
}

func nary(operator, empty string, formulas []Formula) string {
	switch len(formulas) {
	case 0:
		return empty
	case 1:
		return formulas[0].String()
	}
	operands := lo.Map(formulas, func(formula Formula, _ int) string { return formula.String() })
	return "(" + operator + " " + strings.Join(operands, " ") + ")"
}
