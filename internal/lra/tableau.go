package lra

import (
	"fmt"
	"math/big"
	"slices"
	"strings"
)

type bound struct {
	value  delta
	origin int // Index of the row that asserted the bound
}

// tableau keeps every basic variable as a linear combination of the nonbasic ones. The first columns
// are the variables of the rows, the remaining ones the slacks of the linear forms.
type tableau struct {
	columns map[int]int // Row variable to column
	ids     []int       // Column to row variable
	forms   map[string]int
	values  []delta
	lower   []*bound
	upper   []*bound
	basic   []bool
	rows    map[int]map[int]*big.Rat
}

// newTableau turns every row into a bound. It stops at the first pair of rows whose bounds already
// contradict each other and returns their indices.
func newTableau(rows []Row) (*tableau, []int) {
	t := &tableau{
		columns: make(map[int]int),
		forms:   make(map[string]int),
		rows:    make(map[int]map[int]*big.Rat),
	}
	for _, row := range rows {
		for v, coeff := range row.Coeffs {
			if _, ok := t.columns[v]; !ok && coeff.Sign() != 0 {
				t.columns[v] = -1
				t.ids = append(t.ids, v)
			}
		}
	}
	slices.Sort(t.ids)
	for j, v := range t.ids {
		t.columns[v] = j
		t.addColumn(false)
	}

	for i, row := range rows {
		if conflict := t.assert(i, row); conflict != nil {
			return t, conflict
		}
	}

	// Nonbasic variables start inside their bounds, the slacks follow from them
	for j := range t.ids {
		if t.lower[j] != nil && t.values[j].cmp(t.lower[j].value) < 0 {
			t.values[j] = t.lower[j].value
		} else if t.upper[j] != nil && t.values[j].cmp(t.upper[j].value) > 0 {
			t.values[j] = t.upper[j].value
		}
	}
	for i, row := range t.rows {
		value := zero()
		for j, coeff := range row {
			value = value.add(t.values[j].scale(coeff))
		}
		t.values[i] = value
	}
	return t, nil
}

func (t *tableau) addColumn(basic bool) int {
	t.values = append(t.values, zero())
	t.lower = append(t.lower, nil)
	t.upper = append(t.upper, nil)
	t.basic = append(t.basic, basic)
	return len(t.values) - 1
}

// assert scales the row so that its leading coefficient is one and bounds the resulting form
func (t *tableau) assert(i int, row Row) []int {
	terms := make([]int, 0, len(row.Coeffs))
	for v, coeff := range row.Coeffs {
		if coeff.Sign() != 0 {
			terms = append(terms, t.columns[v])
		}
	}
	if len(terms) == 0 {
		if sign := row.Bound.Sign(); sign < 0 || (sign == 0 && row.Strict) {
			return []int{i}
		}
		return nil
	}
	slices.Sort(terms)

	lead := row.Coeffs[t.ids[terms[0]]]
	scale := new(big.Rat).Inv(lead)
	value := new(big.Rat).Mul(row.Bound, scale)

	target := terms[0]
	if len(terms) > 1 {
		form := make(map[int]*big.Rat, len(terms))
		var key strings.Builder
		for _, j := range terms {
			form[j] = new(big.Rat).Mul(row.Coeffs[t.ids[j]], scale)
			fmt.Fprintf(&key, "%d:%s ", j, form[j].RatString())
		}
		slack, ok := t.forms[key.String()]
		if !ok {
			slack = t.addColumn(true)
			t.forms[key.String()] = slack
			t.rows[slack] = form
		}
		target = slack
	}

	// Dividing by a negative leading coefficient turns the upper bound into a lower one
	if lead.Sign() > 0 {
		return t.assertUpper(target, boundValue(row.Strict, strictUpper, value), i)
	}
	return t.assertLower(target, boundValue(row.Strict, strictLower, value), i)
}

func boundValue(strict bool, symbolic func(*big.Rat) delta, value *big.Rat) delta {
	if strict {
		return symbolic(value)
	}
	return constant(value)
}

func (t *tableau) assertUpper(j int, value delta, origin int) []int {
	if t.upper[j] != nil && t.upper[j].value.cmp(value) <= 0 {
		return nil
	}
	t.upper[j] = &bound{value: value, origin: origin}
	if t.lower[j] != nil && t.lower[j].value.cmp(value) > 0 {
		return []int{t.lower[j].origin, origin}
	}
	return nil
}

func (t *tableau) assertLower(j int, value delta, origin int) []int {
	if t.lower[j] != nil && t.lower[j].value.cmp(value) >= 0 {
		return nil
	}
	t.lower[j] = &bound{value: value, origin: origin}
	if t.upper[j] != nil && t.upper[j].value.cmp(value) < 0 {
		return []int{origin, t.upper[j].origin}
	}
	return nil
}

func (t *tableau) canIncrease(j int) bool {
	return t.upper[j] == nil || t.values[j].cmp(t.upper[j].value) < 0
}

func (t *tableau) canDecrease(j int) bool {
	return t.lower[j] == nil || t.values[j].cmp(t.lower[j].value) > 0
}

// check repairs the basic variables that violate their bounds. It returns nil once every bound holds,
// or the origins of the bounds that make the violating row unrepairable.
func (t *tableau) check() []int {
	for {
		violated, below := -1, false
		for i := range t.values {
			if !t.basic[i] {
				continue
			}
			if t.lower[i] != nil && t.values[i].cmp(t.lower[i].value) < 0 {
				violated, below = i, true
				break
			}
			if t.upper[i] != nil && t.values[i].cmp(t.upper[i].value) > 0 {
				violated = i
				break
			}
		}
		if violated < 0 {
			return nil
		}

		// Smallest nonbasic variable that moves the violated one towards its bound
		row := t.rows[violated]
		entering := -1
		for j, coeff := range row {
			increase := (coeff.Sign() > 0) == below
			if (increase && t.canIncrease(j)) || (!increase && t.canDecrease(j)) {
				if entering < 0 || j < entering {
					entering = j
				}
			}
		}

		if entering < 0 {
			// Every variable of the row already sits on the bound that blocks the repair
			conflict := make([]int, 0, len(row)+1)
			if below {
				conflict = append(conflict, t.lower[violated].origin)
			} else {
				conflict = append(conflict, t.upper[violated].origin)
			}
			for j, coeff := range row {
				if (coeff.Sign() > 0) == below {
					conflict = append(conflict, t.upper[j].origin)
				} else {
					conflict = append(conflict, t.lower[j].origin)
				}
			}
			return conflict
		}

		target := t.upper[violated]
		if below {
			target = t.lower[violated]
		}
		t.update(entering, target.value.sub(t.values[violated]).div(row[entering]))
		t.pivot(violated, entering)
	}
}

// update moves the nonbasic variable j by step and every basic variable along with it
func (t *tableau) update(j int, step delta) {
	t.values[j] = t.values[j].add(step)
	for i, row := range t.rows {
		if coeff, ok := row[j]; ok {
			t.values[i] = t.values[i].add(step.scale(coeff))
		}
	}
}

// pivot swaps the basic variable i with the nonbasic variable j of its row
func (t *tableau) pivot(i, j int) {
	row := t.rows[i]
	inverse := new(big.Rat).Inv(row[j])
	solved := map[int]*big.Rat{i: inverse}
	for k, coeff := range row {
		if k != j {
			solved[k] = new(big.Rat).Neg(new(big.Rat).Mul(coeff, inverse))
		}
	}
	delete(t.rows, i)
	t.basic[i], t.basic[j] = false, true

	for _, other := range t.rows {
		coeff, ok := other[j]
		if !ok {
			continue
		}
		delete(other, j)
		for k, value := range solved {
			sum := new(big.Rat).Mul(coeff, value)
			if existing, ok := other[k]; ok {
				sum.Add(sum, existing)
			}
			if sum.Sign() == 0 {
				delete(other, k)
			} else {
				other[k] = sum
			}
		}
	}
	t.rows[j] = solved
}

// minimize runs the primal simplex on a feasible tableau, keeping every bound satisfied
func (t *tableau) minimize(costs map[int]*big.Rat) error {
	for {
		reduced := make(map[int]*big.Rat)
		add := func(j int, coeff *big.Rat) {
			if existing, ok := reduced[j]; ok {
				existing.Add(existing, coeff)
			} else {
				reduced[j] = new(big.Rat).Set(coeff)
			}
		}
		for j, cost := range costs {
			if !t.basic[j] {
				add(j, cost)
				continue
			}
			for k, coeff := range t.rows[j] {
				add(k, new(big.Rat).Mul(cost, coeff))
			}
		}

		entering, direction := -1, 0
		for j, cost := range reduced {
			if cost.Sign() == 0 || (entering >= 0 && j > entering) {
				continue
			}
			if cost.Sign() < 0 && t.canIncrease(j) {
				entering, direction = j, 1
			} else if cost.Sign() > 0 && t.canDecrease(j) {
				entering, direction = j, -1
			}
		}
		if entering < 0 {
			return nil
		}

		// Ratio test, the entering variable's own bound wins ties
		var limit *delta
		leaving := -1
		if direction > 0 && t.upper[entering] != nil {
			own := t.upper[entering].value.sub(t.values[entering])
			limit = &own
		} else if direction < 0 && t.lower[entering] != nil {
			own := t.values[entering].sub(t.lower[entering].value)
			limit = &own
		}
		for i := range t.values {
			if !t.basic[i] {
				continue
			}
			coeff, ok := t.rows[i][entering]
			if !ok {
				continue
			}
			rate := new(big.Rat).Mul(coeff, big.NewRat(int64(direction), 1))
			var candidate delta
			switch {
			case rate.Sign() > 0 && t.upper[i] != nil:
				candidate = t.upper[i].value.sub(t.values[i]).div(rate)
			case rate.Sign() < 0 && t.lower[i] != nil:
				candidate = t.values[i].sub(t.lower[i].value).div(new(big.Rat).Neg(rate))
			default:
				continue
			}
			if limit == nil || candidate.cmp(*limit) < 0 {
				limit, leaving = &candidate, i
			}
		}
		if limit == nil {
			return ErrUnbounded
		}

		t.update(entering, limit.scale(big.NewRat(int64(direction), 1)))
		if leaving >= 0 {
			t.pivot(leaving, entering)
		}
	}
}

// solution picks a positive delta small enough for every bound and evaluates the row variables with it
func (t *tableau) solution() map[int]*big.Rat {
	epsilon := big.NewRat(1, 1)
	shrink := func(slack *big.Rat, rate *big.Rat) {
		// slack + rate*epsilon >= 0 with a positive slack and a negative rate
		if rate.Sign() < 0 {
			limit := new(big.Rat).Quo(slack, new(big.Rat).Neg(rate))
			if limit.Cmp(epsilon) < 0 {
				epsilon = limit
			}
		}
	}
	for j, value := range t.values {
		if t.lower[j] != nil {
			difference := value.sub(t.lower[j].value)
			shrink(difference.c, difference.k)
		}
		if t.upper[j] != nil {
			difference := t.upper[j].value.sub(value)
			shrink(difference.c, difference.k)
		}
	}

	values := make(map[int]*big.Rat, len(t.ids))
	for j, v := range t.ids {
		values[v] = t.values[j].at(epsilon)
	}
	return values
}
