package model

import (
	"testing"

	"github.com/limaJavier/gatescheduling/pkg/smt"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/require"
)

func TestVariableForIsIdempotent(t *testing.T) {
	g := NewWithT(t)

	//** Arrange
	input, err := ProcessRawInput(lineRawInput())
	require.Nil(t, err)
	problem := smt.NewProblem()
	space := newVariableSpace(problem)
	flow, port := input.Flows[0], input.Ports[0]

	//** Act
	first := space.variableFor(packetPortKey(transmissionStartTime, flow, 1, port, 0))
	second := space.variableFor(packetPortKey(transmissionStartTime, flow, 1, port, 0))
	end := space.variableFor(packetPortKey(transmissionEndTime, flow, 1, port, 0))
	other := space.variableFor(packetPortKey(transmissionStartTime, flow, 0, port, 0))

	//** Assert
	g.Expect(second).To(BeIdenticalTo(first))
	g.Expect(end).NotTo(BeIdenticalTo(first))
	g.Expect(other).NotTo(BeIdenticalTo(first))
	g.Expect(problem.Variables()).To(HaveLen(3))
	g.Expect(first.Name()).To(Equal("transmissionStartTime_video_packet1_talker.eth0_gate0"))
}

func TestVariableKindsNeverCollide(t *testing.T) {
	g := NewWithT(t)

	input, err := ProcessRawInput(lineRawInput())
	require.Nil(t, err)
	space := newVariableSpace(smt.NewProblem())
	flow, port, application := input.Flows[0], input.Ports[0], input.Applications[0]

	variables := []*smt.Var{
		space.variableFor(globalKey(gateCycleDuration)),
		space.variableFor(globalKey(totalEndToEndDelay)),
		space.variableFor(applicationKey(applicationStartTime, application)),
		space.variableFor(applicationKey(applicationPacketInterval, application)),
		space.variableFor(portKey(propagationTime, port)),
		space.variableFor(portKey(interframeGapTime, port)),
		space.variableFor(flowPortKey(transmissionDuration, flow, port)),
		space.variableFor(flowKey(averageEndToEndDelay, flow)),
		space.variableFor(flowKey(maxJitter, flow)),
		space.variableFor(flowKey(maxEndToEndDelay, flow)),
		space.variableFor(packetKey(endToEndDelay, flow, 0)),
	}

	names := map[string]bool{}
	for _, v := range variables {
		names[v.Name()] = true
	}
	g.Expect(names).To(HaveLen(len(variables)))
	g.Expect(space.variables).To(HaveLen(len(variables)))
}

func TestTransmissionRegistration(t *testing.T) {
	g := NewWithT(t)

	//** Arrange
	input, err := ProcessRawInput(lineRawInput())
	require.Nil(t, err)
	space := newVariableSpace(smt.NewProblem())
	flow := input.Flows[0]
	hops := flow.hops()

	//** Act
	first := space.transmissionFor(flow, 0, hops[0])
	again := space.transmissionFor(flow, 0, hops[0])
	second := space.transmissionFor(flow, 1, hops[0])
	downstream := space.transmissionFor(flow, 0, hops[1])

	//** Assert
	g.Expect(again).To(BeIdenticalTo(first))
	g.Expect(space.transmissionsOn(input.Ports[0])).To(Equal([]*transmission{first, second}))
	g.Expect(space.transmissionsOnGate(input.Ports[0], 0)).To(Equal([]*transmission{first, second}))
	g.Expect(space.transmissionsOn(input.Ports[2])).To(Equal([]*transmission{downstream}))
	g.Expect(space.transmissionsOn(input.Ports[1])).To(BeEmpty()) // Reception ports carry no transmissions
	g.Expect(first.receptionEnd.Name()).To(Equal("receptionEndTime_video_packet0_switch.eth0_gate0"))
}
