package model

import (
	"fmt"
	"strings"

	"github.com/limaJavier/gatescheduling/pkg/smt"
)

type variableKind int

const (
	applicationStartTime variableKind = iota
	applicationPacketInterval
	transmissionDuration // Per flow and output port
	propagationTime      // Per port
	interframeGapTime    // Per port
	transmissionStartTime
	transmissionEndTime
	receptionStartTime
	receptionEndTime
	endToEndDelay // Per flow and packet
	averageEndToEndDelay
	maxJitter
	maxEndToEndDelay
	gateCycleDuration
	totalEndToEndDelay
)

var variableKindNames = [...]string{
	applicationStartTime:      "applicationStartTime",
	applicationPacketInterval: "applicationPacketInterval",
	transmissionDuration:      "transmissionDuration",
	propagationTime:           "propagationTime",
	interframeGapTime:         "interframeGap",
	transmissionStartTime:     "transmissionStartTime",
	transmissionEndTime:       "transmissionEndTime",
	receptionStartTime:        "receptionStartTime",
	receptionEndTime:          "receptionEndTime",
	endToEndDelay:             "endToEndDelay",
	averageEndToEndDelay:      "averageEndToEndDelay",
	maxJitter:                 "maxJitter",
	maxEndToEndDelay:          "maxEndToEndDelay",
	gateCycleDuration:         "gateCycleDuration",
	totalEndToEndDelay:        "totalEndToEndDelay",
}

func (kind variableKind) String() string {
	return variableKindNames[kind]
}

// variableKey identifies a logical quantity of the model. Fields that do not apply to the kind are left
// zero (packet and gate are -1), so keys of different kinds never collide.
type variableKey struct {
	kind        variableKind
	application string
	flow        string
	port        string
	packet      int
	gate        int
}

func (key variableKey) String() string {
	parts := []string{key.kind.String()}
	for _, part := range []string{key.application, key.flow} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if key.packet >= 0 {
		parts = append(parts, fmt.Sprintf("packet%d", key.packet))
	}
	if key.port != "" {
		parts = append(parts, key.port)
	}
	if key.gate >= 0 {
		parts = append(parts, fmt.Sprintf("gate%d", key.gate))
	}
	return strings.Join(parts, "_")
}

func globalKey(kind variableKind) variableKey {
	return variableKey{kind: kind, packet: -1, gate: -1}
}

func applicationKey(kind variableKind, application *Application) variableKey {
	return variableKey{kind: kind, application: application.Name, packet: -1, gate: -1}
}

func portKey(kind variableKind, port *Port) variableKey {
	return variableKey{kind: kind, port: port.Name, packet: -1, gate: -1}
}

func flowKey(kind variableKind, flow *Flow) variableKey {
	return variableKey{kind: kind, flow: flow.Name, packet: -1, gate: -1}
}

func flowPortKey(kind variableKind, flow *Flow, port *Port) variableKey {
	return variableKey{kind: kind, flow: flow.Name, port: port.Name, packet: -1, gate: -1}
}

func packetKey(kind variableKind, flow *Flow, packet int) variableKey {
	return variableKey{kind: kind, flow: flow.Name, packet: packet, gate: -1}
}

func packetPortKey(kind variableKind, flow *Flow, packet int, port *Port, gate int) variableKey {
	return variableKey{kind: kind, flow: flow.Name, packet: packet, port: port.Name, gate: gate}
}

// transmission is one packet instance crossing one hop: sent on the output port and received on the peer's
// input port, both in the flow's gate
type transmission struct {
	flow          *Flow
	packet        int
	port          *Port
	receptionPort *Port
	gate          int

	start, end                   *smt.Var
	receptionStart, receptionEnd *smt.Var
}

type gateKey struct {
	port string
	gate int
}

// variableSpace is the keyed variable cache of one scheduling run. Variables are declared in the run's
// problem the first time their key is requested.
type variableSpace struct {
	problem   *smt.Problem
	variables map[variableKey]*smt.Var

	transmissions     map[variableKey]*transmission
	portTransmissions map[string][]*transmission  // Every transmission sent on a port, in creation order
	gateTransmissions map[gateKey][]*transmission // Transmissions per port and gate, in creation order
}

func newVariableSpace(problem *smt.Problem) *variableSpace {
	return &variableSpace{
		problem:           problem,
		variables:         make(map[variableKey]*smt.Var),
		transmissions:     make(map[variableKey]*transmission),
		portTransmissions: make(map[string][]*transmission),
		gateTransmissions: make(map[gateKey][]*transmission),
	}
}

// variableFor returns the variable of the key, declaring it on first use
func (space *variableSpace) variableFor(key variableKey) *smt.Var {
	if v, ok := space.variables[key]; ok {
		return v
	}
	v := space.problem.Declare(key.String())
	space.variables[key] = v
	return v
}

// transmissionFor returns the transmission of a packet over a hop, registering it with its port and gate
// on first use
func (space *variableSpace) transmissionFor(flow *Flow, packet int, h hop) *transmission {
	key := packetPortKey(transmissionStartTime, flow, packet, h.output, flow.GateIndex)
	if t, ok := space.transmissions[key]; ok {
		return t
	}

	t := &transmission{
		flow:           flow,
		packet:         packet,
		port:           h.output,
		receptionPort:  h.input,
		gate:           flow.GateIndex,
		start:          space.variableFor(key),
		end:            space.variableFor(packetPortKey(transmissionEndTime, flow, packet, h.output, flow.GateIndex)),
		receptionStart: space.variableFor(packetPortKey(receptionStartTime, flow, packet, h.input, flow.GateIndex)),
		receptionEnd:   space.variableFor(packetPortKey(receptionEndTime, flow, packet, h.input, flow.GateIndex)),
	}
	space.transmissions[key] = t
	space.portTransmissions[h.output.Name] = append(space.portTransmissions[h.output.Name], t)
	gate := gateKey{port: h.output.Name, gate: flow.GateIndex}
	space.gateTransmissions[gate] = append(space.gateTransmissions[gate], t)
	return t
}

func (space *variableSpace) transmissionsOn(port *Port) []*transmission {
	return space.portTransmissions[port.Name]
}

func (space *variableSpace) transmissionsOnGate(port *Port, gate int) []*transmission {
	return space.gateTransmissions[gateKey{port: port.Name, gate: gate}]
}
