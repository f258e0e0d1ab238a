package smt

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/golang/glog"
	"github.com/samber/lo"

	"github.com/limaJavier/gatescheduling/internal/lra"
)

const satisfiable = 1

type nativeSolver struct{}

// NewNativeSolver returns a solver implemented in Go: a SAT solver enumerates the boolean structure of the
// assertions while an exact simplex checks the selected linear constraints. Theory conflicts are minimized
// and taught back to the SAT solver as blocking clauses.
func NewNativeSolver() Solver {
	return &nativeSolver{}
}

// theoryAtom is a canonical linear constraint whose leading coefficient is one
type theoryAtom struct {
	row lra.Row
	lit z.Lit
}

// theoryLiteral is an atom together with the truth value chosen by the SAT solver
type theoryLiteral struct {
	atom  *theoryAtom
	value bool
}

func (l theoryLiteral) row() lra.Row {
	if l.value {
		return l.atom.row
	}
	return l.atom.row.Negate()
}

func (l theoryLiteral) lit() z.Lit {
	if l.value {
		return l.atom.lit
	}
	return l.atom.lit.Not()
}

type encoder struct {
	circuit *logic.C
	atoms   []*theoryAtom
	byKey   map[string]*theoryAtom
	byVar   map[z.Var]*theoryAtom
}

func newEncoder() *encoder {
	return &encoder{
		circuit: logic.NewC(),
		byKey:   make(map[string]*theoryAtom),
		byVar:   make(map[z.Var]*theoryAtom),
	}
}

func (solver *nativeSolver) Solve(ctx context.Context, problem *Problem) (*Result, error) {
	//** Encode assertions into a circuit
	enc := newEncoder()
	type root struct {
		label string
		lits  []z.Lit
	}
	roots := lo.Map(problem.Assertions(), func(assertion Assertion, _ int) root {
		return root{label: assertion.Label, lits: enc.conjuncts(assertion.Formula)}
	})

	g := gini.New()
	enc.circuit.ToCnf(g)
	for maxVar := z.Var(enc.circuit.Len() - 1); g.MaxVar() < maxVar; {
		g.Lit() // Inputs that occur in no gate are unknown to the solver otherwise
	}

	// Unlabeled assertions become unit clauses and their atoms a fixed theory base, labeled assertions are
	// assumed on every round so that the SAT solver can tell which of them conflict
	var assumptions []z.Lit
	owners := make(map[z.Lit][]string)
	fixed := make(map[*theoryAtom]bool)
	var base []lra.Row
	for _, r := range roots {
		for _, m := range r.lits {
			if r.label != "" {
				assumptions = append(assumptions, m)
				owners[m] = append(owners[m], r.label)
				continue
			}
			g.Add(m)
			g.Add(0)
			if atom, ok := enc.byVar[m.Var()]; ok && !fixed[atom] {
				fixed[atom] = true
				base = append(base, theoryLiteral{atom: atom, value: m.IsPos()}.row())
			}
		}
	}

	objective, optimizing := problem.Objective()
	objectiveCoeffs := make(map[int]*big.Rat)
	for _, term := range objective.Terms() {
		objectiveCoeffs[term.Var.id] = term.Coeff
	}

	//** Search
	var best *lra.Solution
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return &Result{Status: Unknown}, fmt.Errorf("native solver interrupted: %w", err)
		}

		g.Assume(assumptions...)
		if g.Solve() != satisfiable {
			if best != nil {
				return &Result{Status: Satisfiable, Model: modelOf(problem, best)}, nil
			}
			result := &Result{Status: Unsatisfiable}
			if len(assumptions) > 0 {
				result.Core = coreOf(g.Why(nil), assumptions, owners)
			}
			return result, nil
		}

		literals := enc.assignment(g, fixed)
		solution, rowConflict := lra.Feasible(rowsOf(base, literals))
		if solution == nil {
			conflict := explain(base, literals, rowConflict)
			glog.V(2).Infof("native solver round %d: %d theory literals, conflict of %d", round, len(literals), len(conflict))
			if len(conflict) == 0 {
				// The simplex is exact, so the fixed base alone is infeasible
				if best != nil {
					return &Result{Status: Satisfiable, Model: modelOf(problem, best)}, nil
				}
				return &Result{Status: Unsatisfiable}, nil
			}
			for _, l := range conflict {
				g.Add(l.lit().Not())
			}
			g.Add(0)
			continue
		}

		if !optimizing {
			glog.V(1).Infof("native solver found a model after %d rounds", round)
			return &Result{Status: Satisfiable, Model: modelOf(problem, solution)}, nil
		}

		optimum, err := lra.Minimize(rowsOf(base, literals), objectiveCoeffs)
		if err != nil {
			return nil, fmt.Errorf("an error occurred during optimization: %w", err)
		} else if optimum == nil {
			return nil, fmt.Errorf("theory rows of round %d became infeasible during optimization", round)
		}
		glog.V(1).Infof("native solver round %d: objective %v (infimum %v)", round, optimum.Objective.RatString(), optimum.Infimum.RatString())
		best = optimum

		// Every following model has to beat the infimum of the current boolean assignment
		base = append(base, lra.Row{Coeffs: objectiveCoeffs, Bound: optimum.Infimum, Strict: true})
	}
}

// conjuncts encodes a top-level assertion as a list of literals that must all hold
func (enc *encoder) conjuncts(formula Formula) []z.Lit {
	switch f := formula.(type) {
	case And:
		return lo.FlatMap(f, func(sub Formula, _ int) []z.Lit { return enc.conjuncts(sub) })
	case Atom:
		if f.Relation == Equal {
			diff := f.Left.Sub(f.Right)
			return []z.Lit{enc.leq(diff, false), enc.leq(diff.Neg(), false)}
		}
	}
	return []z.Lit{enc.formula(formula)}
}

func (enc *encoder) formula(formula Formula) z.Lit {
	switch f := formula.(type) {
	case Atom:
		return enc.relation(f)
	case Not:
		return enc.formula(f.Formula).Not()
	case And:
		return enc.circuit.Ands(lo.Map(f, func(sub Formula, _ int) z.Lit { return enc.formula(sub) })...)
	case Or:
		return enc.circuit.Ors(lo.Map(f, func(sub Formula, _ int) z.Lit { return enc.formula(sub) })...)
	case Iff:
		return enc.circuit.Xor(enc.formula(f.Left), enc.formula(f.Right)).Not()
	}
	panic(fmt.Sprintf("unsupported formula %T", formula))
}

func (enc *encoder) relation(atom Atom) z.Lit {
	diff := atom.Left.Sub(atom.Right) // diff <relation> 0
	switch atom.Relation {
	case LessEqual:
		return enc.leq(diff, false)
	case Less:
		return enc.leq(diff, true)
	case GreaterEqual:
		return enc.leq(diff.Neg(), false)
	case Greater:
		return enc.leq(diff.Neg(), true)
	default:
		return enc.circuit.And(enc.leq(diff, false), enc.leq(diff.Neg(), false))
	}
}

// leq encodes diff <= 0 (diff < 0 when strict)
func (enc *encoder) leq(diff Expr, strict bool) z.Lit {
	bound := diff.Constant()
	bound.Neg(bound)
	if diff.IsConstant() {
		if bound.Sign() > 0 || (bound.Sign() == 0 && !strict) {
			return enc.circuit.T
		}
		return enc.circuit.F
	}

	if diff.Terms()[0].Coeff.Sign() > 0 {
		return enc.atom(diff.Terms(), bound, strict)
	}
	// -u <= b is not(u < -b) and -u < b is not(u <= -b)
	return enc.atom(diff.Neg().Terms(), new(big.Rat).Neg(bound), !strict).Not()
}

// atom returns the literal of sum(terms) <= bound after scaling the leading coefficient to one
func (enc *encoder) atom(terms []Term, bound *big.Rat, strict bool) z.Lit {
	scale := new(big.Rat).Inv(terms[0].Coeff)
	coeffs := make(map[int]*big.Rat, len(terms))
	var key strings.Builder
	for _, term := range terms {
		coeff := new(big.Rat).Mul(term.Coeff, scale)
		coeffs[term.Var.id] = coeff
		fmt.Fprintf(&key, "%d:%s ", term.Var.id, coeff.RatString())
	}
	scaled := new(big.Rat).Mul(bound, scale)
	fmt.Fprintf(&key, "%s %s", lo.Ternary(strict, "<", "<="), scaled.RatString())

	if existing, ok := enc.byKey[key.String()]; ok {
		return existing.lit
	}
	atom := &theoryAtom{row: lra.Row{Coeffs: coeffs, Bound: scaled, Strict: strict}, lit: enc.circuit.Lit()}
	enc.atoms = append(enc.atoms, atom)
	enc.byKey[key.String()] = atom
	enc.byVar[atom.lit.Var()] = atom
	return atom.lit
}

// assignment reads the truth values of the non-fixed atoms from the last SAT model
func (enc *encoder) assignment(g *gini.Gini, fixed map[*theoryAtom]bool) []theoryLiteral {
	literals := make([]theoryLiteral, 0, len(enc.atoms))
	for _, atom := range enc.atoms {
		if fixed[atom] {
			continue
		}
		literals = append(literals, theoryLiteral{atom: atom, value: g.Value(atom.lit)})
	}
	return literals
}

func rowsOf(base []lra.Row, literals []theoryLiteral) []lra.Row {
	return append(slices.Clone(base), lo.Map(literals, func(l theoryLiteral, _ int) lra.Row { return l.row() })...)
}

// conflictLiterals keeps the literals among the conflicting rows, rows below offset belong to the base
func conflictLiterals(conflict []int, offset int, literals []theoryLiteral) []theoryLiteral {
	return lo.FilterMap(conflict, func(i int, _ int) (theoryLiteral, bool) {
		if i < offset {
			return theoryLiteral{}, false
		}
		return literals[i-offset], true
	})
}

// explain shrinks the literals of an infeasible row set to a minimal infeasible subset relative to the
// base. A literal is dropped whenever the rest stays infeasible, and the smaller conflict reported by the
// simplex replaces the current one. An empty result means the base is infeasible on its own.
func explain(base []lra.Row, literals []theoryLiteral, conflict []int) []theoryLiteral {
	selected := conflictLiterals(conflict, len(base), literals)
	for i := 0; i < len(selected); {
		candidate := slices.Delete(slices.Clone(selected), i, i+1)
		if _, smaller := lra.Feasible(rowsOf(base, candidate)); smaller != nil {
			// Literals before i are needed by every conflict within selected, so they keep their positions
			selected = conflictLiterals(smaller, len(base), candidate)
		} else {
			i++
		}
	}
	return selected
}

func coreOf(failed []z.Lit, assumptions []z.Lit, owners map[z.Lit][]string) []string {
	failedSet := lo.SliceToMap(failed, func(m z.Lit) (z.Lit, bool) { return m, true })
	labels := lo.FlatMap(lo.Uniq(assumptions), func(m z.Lit, _ int) []string {
		if failedSet[m] {
			return owners[m]
		}
		return nil
	})
	return lo.Uniq(labels)
}

func modelOf(problem *Problem, solution *lra.Solution) Model {
	model := make(Model, len(problem.Variables()))
	for _, v := range problem.Variables() {
		if value, ok := solution.Values[v.id]; ok {
			model[v.name] = value.RatString()
		} else {
			model[v.name] = "0"
		}
	}
	return model
}
