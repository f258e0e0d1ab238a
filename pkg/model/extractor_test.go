package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSlot(t *testing.T) {
	cases := []struct {
		name       string
		start, end float64
		expected   []Slot
	}{
		{"straddles the boundary", 8, 13, []Slot{{Start: 8, Duration: 2}, {Start: 0, Duration: 3}}},
		{"inside the cycle", 2, 5, []Slot{{Start: 2, Duration: 3}}},
		{"ends on the boundary", 7, 10, []Slot{{Start: 7, Duration: 3}}},
		{"starts after the cycle", 12, 14, []Slot{{Start: 2, Duration: 2}}},
		{"starts on the boundary", 10, 11, []Slot{{Start: 0, Duration: 1}}},
	}

	for _, c := range cases {
		//** Act
		slots := splitSlot(c.start, c.end, 10)

		//** Assert
		assert.Equal(t, c.expected, slots, c.name)
	}
}

func TestRecords(t *testing.T) {
	//** Arrange
	output := &Output{GateSchedules: map[string][]*Schedule{
		"b": {{Port: "b", GateIndex: 0, CycleDuration: 10, Slots: []Slot{{Start: 1, Duration: 1}}}},
		"a": {
			{Port: "a", GateIndex: 1, CycleDuration: 10, Slots: []Slot{{Start: 0, Duration: 2}}},
			{Port: "a", GateIndex: 0, CycleDuration: 10, Slots: []Slot{{Start: 5, Duration: 1}, {Start: 3, Duration: 1}}},
		},
	}}

	//** Act
	records := output.Records()

	//** Assert
	assert.Equal(t, []SlotRecord{
		{Port: "a", GateIndex: 0, CycleDuration: 10, Start: 3, Duration: 1},
		{Port: "a", GateIndex: 0, CycleDuration: 10, Start: 5, Duration: 1},
		{Port: "a", GateIndex: 1, CycleDuration: 10, Start: 0, Duration: 2},
		{Port: "b", GateIndex: 0, CycleDuration: 10, Start: 1, Duration: 1},
	}, records)
}
