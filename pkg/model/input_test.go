package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	satisfiableTestDirectory   = "../../test/satisfiable/"
	unsatisfiableTestDirectory = "../../test/unsatisfiable/"
)

func lineRawInput() RawInput {
	port := func(name string) Port {
		return Port{Name: name, Datarate: 1_000_000_000, PropagationTime: 50 * time.Nanosecond, NumGates: 1}
	}
	return RawInput{
		GateCycleDuration: 100 * time.Microsecond,
		Applications: []Application{
			{Name: "camera", PacketLength: 8000, PacketInterval: 50 * time.Microsecond, MaxLatency: 30 * time.Microsecond},
		},
		Ports: []Port{port("talker.eth0"), port("switch.eth0"), port("switch.eth1"), port("listener.eth0")},
		Flows: []RawFlow{
			{
				Name:        "video",
				Application: "camera",
				GateIndex:   0,
				PathFragments: []RawPathFragment{{
					NetworkNodes: []string{"talker", "switch", "listener"},
					OutputPorts:  []string{"talker.eth0", "switch.eth1"},
					InputPorts:   []string{"switch.eth0", "listener.eth0"},
				}},
			},
		},
	}
}

func TestInputFromFile(t *testing.T) {
	for _, file := range []string{"line.yaml", "line.json"} {
		//** Act
		input, err := InputFromFile(satisfiableTestDirectory + file)

		//** Assert
		require.Nil(t, err, file)
		expected, err := ProcessRawInput(lineRawInput())
		require.Nil(t, err)
		assert.Equal(t, expected, input, file)
	}
}

func TestInputFromFileErrors(t *testing.T) {
	_, err := InputFromFile(satisfiableTestDirectory + "missing.yaml")
	assert.NotNil(t, err)

	_, err = InputFromFile("input_test.go")
	assert.ErrorContains(t, err, "unsupported input format")
}

func TestProcessRawInput(t *testing.T) {
	//** Act
	input, err := ProcessRawInput(lineRawInput())

	//** Assert
	require.Nil(t, err)
	assert.Len(t, input.Ports, 4)
	assert.Same(t, input.Applications[0], input.Flows[0].StartApplication)
	assert.Same(t, input.Ports[0], input.Flows[0].PathFragments[0].OutputPorts[0])
	assert.Equal(t, []hop{
		{output: input.Ports[0], input: input.Ports[1]},
		{output: input.Ports[2], input: input.Ports[3]},
	}, input.Flows[0].hops())
}

func TestMalformedInput(t *testing.T) {
	cases := map[string]func(raw *RawInput){
		"unknown port":        func(raw *RawInput) { raw.Flows[0].PathFragments[0].OutputPorts[1] = "nowhere" },
		"unknown application": func(raw *RawInput) { raw.Flows[0].Application = "radio" },
		"zero gates":          func(raw *RawInput) { raw.Ports[2].NumGates = 0 },
		"zero datarate":       func(raw *RawInput) { raw.Ports[0].Datarate = 0 },
		"empty path":          func(raw *RawInput) { raw.Flows[0].PathFragments = nil },
		"missing input port": func(raw *RawInput) {
			raw.Flows[0].PathFragments[0].InputPorts = raw.Flows[0].PathFragments[0].InputPorts[:1]
		},
		"gate out of range":   func(raw *RawInput) { raw.Flows[0].GateIndex = 1 },
		"interval over cycle": func(raw *RawInput) { raw.Applications[0].PacketInterval = time.Millisecond },
		"duplicate port":      func(raw *RawInput) { raw.Ports = append(raw.Ports, raw.Ports[0]) },
	}

	for name, corrupt := range cases {
		//** Arrange
		raw := lineRawInput()
		corrupt(&raw)

		//** Act
		_, err := ProcessRawInput(raw)

		//** Assert
		assert.NotNil(t, err, name)
	}
}
