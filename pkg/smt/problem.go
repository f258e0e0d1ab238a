package smt

import (
	"fmt"
	"strings"
	"unicode"
)

// Assertion is a formula that must hold in every model; Label is empty for unlabeled assertions
type Assertion struct {
	Label   string
	Formula Formula
}

// Problem is the solver context of a single run: the declared variables, the asserted formulas and an
// optional minimization objective. A Problem is not safe for concurrent use.
type Problem struct {
	variables  []*Var
	names      map[string]*Var
	assertions []Assertion
	objective  *Expr
}

func NewProblem() *Problem {
	return &Problem{names: make(map[string]*Var)}
}

// Declare registers a new real-valued variable. The name is turned into a valid SMT-LIB symbol and made
// unique within the problem, so the returned variable's name may differ from the requested one.
func (p *Problem) Declare(name string) *Var {
	symbol := symbolOf(name)
	unique := symbol
	for suffix := 2; p.names[unique] != nil; suffix++ {
		unique = fmt.Sprintf("%s_%d", symbol, suffix)
	}

	v := &Var{id: len(p.variables), name: unique}
	p.variables = append(p.variables, v)
	p.names[unique] = v
	return v
}

func (p *Problem) Assert(formula Formula) {
	p.assertions = append(p.assertions, Assertion{Formula: formula})
}

// AssertLabeled adds a named assertion; labels identify the assertion in unsatisfiable cores
func (p *Problem) AssertLabeled(label string, formula Formula) {
	p.assertions = append(p.assertions, Assertion{Label: label, Formula: formula})
}

// Minimize turns the problem into an optimization problem
func (p *Problem) Minimize(objective Expr) {
	p.objective = &objective
}

func (p *Problem) Variables() []*Var {
	return p.variables
}

// Lookup returns the variable declared under the given (final) name
func (p *Problem) Lookup(name string) (*Var, bool) {
	v, ok := p.names[name]
	return v, ok
}

func (p *Problem) Assertions() []Assertion {
	return p.assertions
}

func (p *Problem) Objective() (Expr, bool) {
	if p.objective == nil {
		return Expr{}, false
	}
	return *p.objective, true
}

func (p *Problem) Optimizing() bool {
	return p.objective != nil
}

// Labeled reports whether at least one assertion carries a label
func (p *Problem) Labeled() bool {
	for _, assertion := range p.assertions {
		if assertion.Label != "" {
			return true
		}
	}
	return false
}

// ToSMTLIB renders the problem as an SMT-LIB 2 script without the trailing (check-sat)
func (p *Problem) ToSMTLIB() string {
	var builder strings.Builder
	builder.WriteString("(set-option :produce-models true)\n")
	if p.Labeled() {
		builder.WriteString("(set-option :produce-unsat-cores true)\n")
	}
	for _, v := range p.variables {
		fmt.Fprintf(&builder, "(declare-const %s Real)\n", v.name)
	}
	for _, assertion := range p.assertions {
		if assertion.Label != "" {
			fmt.Fprintf(&builder, "(assert (! %s :named %s))\n", assertion.Formula, symbolOf(assertion.Label))
		} else {
			fmt.Fprintf(&builder, "(assert %s)\n", assertion.Formula)
		}
	}
	if p.objective != nil {
		fmt.Fprintf(&builder, "(minimize %s)\n", p.objective)
	}
	return builder.String()
}

func (p *Problem) String() string {
	return p.ToSMTLIB()
}

// symbolOf maps an arbitrary name onto the SMT-LIB simple symbol alphabet
func symbolOf(name string) string {
	symbol := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("~!@$%^&*_-+=<>.?/", r)) {
			return r
		}
		return '_'
	}, name)
	if symbol == "" || unicode.IsDigit(rune(symbol[0])) {
		symbol = "v" + symbol
	}
	return symbol
}
