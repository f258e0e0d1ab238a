package lra

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(n, d int64) *big.Rat {
	return big.NewRat(n, d)
}

func row(bound int64, strict bool, coeffs ...int64) Row {
	row := Row{Coeffs: make(map[int]*big.Rat), Bound: r(bound, 1), Strict: strict}
	for i := 0; i < len(coeffs); i += 2 {
		row.Coeffs[int(coeffs[i])] = r(coeffs[i+1], 1)
	}
	return row
}

// eq adds both halves of sum(coeffs) == bound
func eq(bound int64, coeffs ...int64) []Row {
	return []Row{row(bound, false, coeffs...), row(bound, false, coeffs...).Negate()}
}

func assertHolds(t *testing.T, rows []Row, solution *Solution) {
	t.Helper()
	require.NotNil(t, solution)
	for i, row := range rows {
		assert.True(t, row.Holds(solution.Values), "row %d: %v", i, row)
	}
}

func TestFeasible(t *testing.T) {
	//** Arrange
	rows := []Row{
		row(10, false, 0, 1, 1, 1), // x + y <= 10
		row(-4, false, 0, -1),      // x >= 4
		row(-3, false, 1, -1),      // y >= 3
		{Coeffs: map[int]*big.Rat{0: r(1, 1), 1: r(-1, 1)}, Bound: r(1, 2)}, // x - y <= 1/2
	}

	//** Act
	solution, conflict := Feasible(rows)

	//** Assert
	assert.Nil(t, conflict)
	assertHolds(t, rows, solution)
}

func TestInfeasible(t *testing.T) {
	rows := []Row{
		row(5, false, 1, 1),       // unrelated
		row(1, false, 0, 1),       // x <= 1
		row(-2, false, 0, -1),     // x >= 2
		row(7, false, 0, 1, 1, 1), // unrelated
	}

	solution, conflict := Feasible(rows)

	assert.Nil(t, solution)
	assert.Equal(t, []int{1, 2}, conflict)
}

func TestInfeasibleConflictThroughRows(t *testing.T) {
	//** Arrange
	// x - y <= 0, y - z <= 0, z - x <= -1 is a cycle with a negative weight
	rows := []Row{
		row(-1, false, 3, -1), // unrelated: w >= 1
		row(0, false, 0, 1, 1, -1),
		row(0, false, 1, 1, 2, -1),
		row(-1, false, 2, 1, 0, -1),
	}

	//** Act
	solution, conflict := Feasible(rows)

	//** Assert
	assert.Nil(t, solution)
	assert.Equal(t, []int{1, 2, 3}, conflict)
	_, subset := Feasible([]Row{rows[1], rows[2], rows[3]})
	assert.NotNil(t, subset)
}

func TestStrictRows(t *testing.T) {
	// x <= 1 and x > 1 touch but do not intersect
	touching := []Row{row(1, false, 0, 1), row(-1, true, 0, -1)}
	solution, conflict := Feasible(touching)
	assert.Nil(t, solution)
	assert.Equal(t, []int{0, 1}, conflict)

	// x <= 1 and x > 0 leave room
	open := []Row{row(1, false, 0, 1), row(0, true, 0, -1)}
	solution, _ = Feasible(open)
	assertHolds(t, open, solution)

	// x < y, y < z, z < x + 1 needs a gap smaller than one half
	chain := []Row{row(0, true, 0, 1, 1, -1), row(0, true, 1, 1, 2, -1), row(1, true, 2, 1, 0, -1)}
	solution, _ = Feasible(chain)
	assertHolds(t, chain, solution)
}

func TestNegate(t *testing.T) {
	original := row(3, false, 0, 2, 1, -1)

	negated := original.Negate()

	assert.Equal(t, 0, negated.Coeffs[0].Cmp(r(-2, 1)))
	assert.Equal(t, 0, negated.Coeffs[1].Cmp(r(1, 1)))
	assert.Equal(t, 0, negated.Bound.Cmp(r(-3, 1)))
	assert.True(t, negated.Strict)
	assert.False(t, negated.Negate().Strict)
	assert.Equal(t, 0, original.Coeffs[0].Cmp(r(2, 1)))
}

func TestConstantRows(t *testing.T) {
	solution, conflict := Feasible([]Row{{Coeffs: map[int]*big.Rat{}, Bound: r(0, 1)}})
	assert.Nil(t, conflict)
	assert.NotNil(t, solution)

	solution, conflict = Feasible([]Row{{Coeffs: map[int]*big.Rat{0: r(0, 1)}, Bound: r(0, 1), Strict: true}})
	assert.Nil(t, solution)
	assert.Equal(t, []int{0}, conflict)
}

func TestMinimize(t *testing.T) {
	//** Arrange
	rows := []Row{
		row(-4, false, 0, -1),       // x >= 4
		row(-2, false, 0, -1, 1, 1), // y <= x - 2
		row(-1, false, 1, -1),       // y >= 1
	}

	//** Act
	solution, err := Minimize(rows, map[int]*big.Rat{0: r(1, 1), 1: r(1, 1)})

	//** Assert
	require.Nil(t, err)
	assertHolds(t, rows, solution)
	assert.Equal(t, "4", solution.Values[0].RatString())
	assert.Equal(t, "1", solution.Values[1].RatString())
	assert.Equal(t, "5", solution.Objective.RatString())
	assert.Equal(t, "5", solution.Infimum.RatString())
}

func TestMinimizeStrict(t *testing.T) {
	//** Arrange
	rows := []Row{row(-2, true, 0, -1), row(10, false, 0, 1)} // 2 < x <= 10

	//** Act
	solution, err := Minimize(rows, map[int]*big.Rat{0: r(1, 1)})

	//** Assert
	require.Nil(t, err)
	assertHolds(t, rows, solution)
	assert.Equal(t, "2", solution.Infimum.RatString())
	assert.Equal(t, 1, solution.Objective.Cmp(solution.Infimum))
}

func TestMinimizeUnbounded(t *testing.T) {
	rows := []Row{row(10, false, 0, 1)}

	_, err := Minimize(rows, map[int]*big.Rat{0: r(1, 1)})
	assert.ErrorIs(t, err, ErrUnbounded)

	_, err = Minimize(rows, map[int]*big.Rat{1: r(1, 1)})
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestMinimizeInfeasible(t *testing.T) {
	solution, err := Minimize([]Row{row(1, false, 0, 1), row(-2, false, 0, -1)}, map[int]*big.Rat{0: r(1, 1)})

	assert.Nil(t, err)
	assert.Nil(t, solution)
}

// linkTiming builds the rows of one flow sending packets every interval over two hops, the way the
// scheduling constraints do: fixed durations, windows inside the cycle, chained hops, equal delays.
func linkTiming(packets int, interval, cycle, duration, propagation, latency int64) []Row {
	const (
		start = iota
		durationVar
		propagationVar
		intervalVar
		cycleVar
		latencyVar
		first
	)
	perPacket := 9 // txStart, txEnd, rxStart, rxEnd per hop, delay
	variable := func(packet, offset int) int64 { return int64(first + packet*perPacket + offset) }

	rows := []Row{row(0, false, start, -1), row(0, true, start, 1, cycleVar, -1)}
	rows = append(rows, eq(cycle, cycleVar, 1)...)
	rows = append(rows, eq(duration, durationVar, 1)...)
	rows = append(rows, eq(propagation, propagationVar, 1)...)
	rows = append(rows, eq(interval, intervalVar, 1)...)
	rows = append(rows, eq(latency, latencyVar, 1)...)
	for p := range packets {
		for hop := range 2 {
			txStart, txEnd := variable(p, 4*hop), variable(p, 4*hop+1)
			rxStart, rxEnd := variable(p, 4*hop+2), variable(p, 4*hop+3)
			rows = append(rows, eq(0, txStart, 1, durationVar, 1, txEnd, -1)...)
			rows = append(rows, row(0, false, txStart, -1), row(0, true, txStart, 1, cycleVar, -1))
			rows = append(rows, eq(0, rxStart, 1, durationVar, 1, rxEnd, -1)...)
			rows = append(rows, eq(0, txStart, 1, propagationVar, 1, rxStart, -1)...)
		}
		rows = append(rows, eq(0, start, 1, intervalVar, int64(p), variable(p, 0), -1)...)
		rows = append(rows, row(0, false, variable(p, 3), 1, variable(p, 4), -1)) // Second hop waits for the first
		delay := variable(p, 8)
		rows = append(rows, eq(0, delay, 1, variable(p, 7), -1, variable(p, 0), 1)...)
		rows = append(rows, row(0, false, delay, 1, latencyVar, -1))
		if p > 0 {
			rows = append(rows, eq(0, delay, 1, variable(0, 8), -1)...)
		}
	}
	return rows
}

func TestFeasibleLinkTiming(t *testing.T) {
	cases := []struct {
		packets  int
		interval int64
		cycle    int64
	}{
		{2, 50_000, 100_000},
		{8, 50_000, 400_000},
		{16, 25_000, 400_000},
		{32, 12_500, 400_000},
	}

	for _, c := range cases {
		//** Arrange
		rows := linkTiming(c.packets, c.interval, c.cycle, 8_000, 50, 30_000)
		name := fmt.Sprintf("%d packets", c.packets)

		//** Act
		solution, conflict := Feasible(rows)

		//** Assert
		assert.Nil(t, conflict, name)
		assertHolds(t, rows, solution)
	}
}

func TestInfeasibleLinkTiming(t *testing.T) {
	//** Arrange
	// Two hops of 8us transmission and 50ns propagation never fit a 16us latency bound
	rows := linkTiming(8, 50_000, 400_000, 8_000, 50, 16_000)

	//** Act
	solution, conflict := Feasible(rows)

	//** Assert
	assert.Nil(t, solution)
	require.NotEmpty(t, conflict)
	subset := make([]Row, 0, len(conflict))
	for _, i := range conflict {
		subset = append(subset, rows[i])
	}
	again, _ := Feasible(subset)
	assert.Nil(t, again)
}

func TestMinimizeLinkTiming(t *testing.T) {
	//** Arrange
	rows := linkTiming(8, 50_000, 400_000, 8_000, 50, 30_000)
	objective := map[int]*big.Rat{}
	for p := range 8 {
		objective[6+p*9+8] = r(1, 1)
	}

	//** Act
	solution, err := Minimize(rows, objective)

	//** Assert
	require.Nil(t, err)
	assertHolds(t, rows, solution)
	assert.Equal(t, "128800", solution.Objective.RatString()) // 8 packets of 16100ns
	assert.Equal(t, "128800", solution.Infimum.RatString())
}
