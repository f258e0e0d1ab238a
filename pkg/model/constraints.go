package model

import (
	"math/big"
	"time"

	"github.com/limaJavier/gatescheduling/pkg/smt"
	"github.com/samber/lo"
)

type constraintState struct {
	input Input
	cycle time.Duration
	space *variableSpace
}

func (state constraintState) cycleVariable() smt.Expr {
	return smt.V(state.space.variableFor(globalKey(gateCycleDuration)))
}

func (state constraintState) packets(flow *Flow) int {
	return PacketCount(flow, state.cycle)
}

// fixer equates every variable to a constant exactly once
type fixer struct {
	fixed       map[*smt.Var]bool
	constraints *[]smt.Formula
}

func newFixer(constraints *[]smt.Formula) fixer {
	return fixer{fixed: make(map[*smt.Var]bool), constraints: constraints}
}

func (f fixer) fix(v *smt.Var, value *big.Rat) {
	if f.fixed[v] {
		return
	}
	f.fixed[v] = true
	*f.constraints = append(*f.constraints, smt.Eq(smt.V(v), smt.R(value)))
}

// gateCycleConstraints fixes the cycle every time is bounded by
func gateCycleConstraints(state constraintState) []smt.Formula {
	return []smt.Formula{smt.Eq(state.cycleVariable(), smt.R(nanoseconds(state.cycle)))}
}

// 0 <= start < cycle for every application
func applicationTimingConstraints(state constraintState) []smt.Formula {
	constraints := make([]smt.Formula, 0, 2*len(state.input.Applications))
	for _, application := range state.input.Applications {
		start := smt.V(state.space.variableFor(applicationKey(applicationStartTime, application)))
		constraints = append(constraints,
			smt.Le(smt.Int(0), start),
			smt.Lt(start, state.cycleVariable()),
		)
	}
	return constraints
}

// Transmission and reception windows of every packet on every hop
func linkTimingConstraints(state constraintState) []smt.Formula {
	constraints := []smt.Formula{}
	f := newFixer(&constraints)
	for _, flow := range state.input.Flows {
		for packet := range state.packets(flow) {
			for _, h := range flow.hops() {
				duration := state.space.variableFor(flowPortKey(transmissionDuration, flow, h.output))
				f.fix(duration, transmissionTime(flow.StartApplication.PacketLength, h.output.Datarate))
				propagation := state.space.variableFor(portKey(propagationTime, h.output))
				f.fix(propagation, nanoseconds(h.output.PropagationTime))

				t := state.space.transmissionFor(flow, packet, h)
				constraints = append(constraints,
					smt.Eq(smt.V(t.start).Add(smt.V(duration)), smt.V(t.end)),
					smt.Le(smt.Int(0), smt.V(t.start)),
					smt.Lt(smt.V(t.start), state.cycleVariable()),
					smt.Eq(smt.V(t.receptionStart).Add(smt.V(duration)), smt.V(t.receptionEnd)),
					smt.Eq(smt.V(t.start).Add(smt.V(propagation)), smt.V(t.receptionStart)),
				)
			}
		}
	}
	return constraints
}

// Release of the first hop, queueing between hops and end-to-end delays
func chainingConstraints(state constraintState) []smt.Formula {
	constraints := []smt.Formula{}
	f := newFixer(&constraints)
	delays := []smt.Expr{}
	for _, flow := range state.input.Flows {
		application := flow.StartApplication
		start := smt.V(state.space.variableFor(applicationKey(applicationStartTime, application)))
		interval := state.space.variableFor(applicationKey(applicationPacketInterval, application))
		f.fix(interval, nanoseconds(application.PacketInterval))

		var maxDelay *smt.Var
		if application.MaxLatency > 0 {
			maxDelay = state.space.variableFor(flowKey(maxEndToEndDelay, flow))
			f.fix(maxDelay, nanoseconds(application.MaxLatency))
		}

		hops := flow.hops()
		for packet := range state.packets(flow) {
			first := state.space.transmissionFor(flow, packet, hops[0])
			constraints = append(constraints,
				smt.Eq(start.Add(smt.V(interval).Mul(big.NewRat(int64(packet), 1))), smt.V(first.start)),
			)

			previous := first
			for _, h := range hops[1:] {
				t := state.space.transmissionFor(flow, packet, h)
				constraints = append(constraints, smt.Ge(smt.V(t.start), smt.V(previous.receptionEnd)))
				previous = t
			}

			delay := smt.V(state.space.variableFor(packetKey(endToEndDelay, flow, packet)))
			constraints = append(constraints, smt.Eq(delay, smt.V(previous.receptionEnd).Sub(smt.V(first.start))))
			if maxDelay != nil {
				constraints = append(constraints, smt.Le(delay, smt.V(maxDelay)))
			}
			delays = append(delays, delay)
		}
	}

	total := smt.V(state.space.variableFor(globalKey(totalEndToEndDelay)))
	return append(constraints, smt.Eq(total, smt.Sum(delays...)))
}

// Every packet of a flow is at least as late as the flow's average, the jitter bound itself is zero
func jitterConstraints(state constraintState) []smt.Formula {
	constraints := []smt.Formula{}
	for _, flow := range state.input.Flows {
		count := state.packets(flow)
		delays := lo.Times(count, func(packet int) smt.Expr {
			return smt.V(state.space.variableFor(packetKey(endToEndDelay, flow, packet)))
		})
		average := smt.V(state.space.variableFor(flowKey(averageEndToEndDelay, flow)))
		jitter := smt.V(state.space.variableFor(flowKey(maxJitter, flow)))

		constraints = append(constraints, smt.Eq(average, smt.Sum(delays...).Div(big.NewRat(int64(count), 1))))
		for _, delay := range delays {
			constraints = append(constraints, smt.Le(average.Sub(delay), jitter))
		}
		constraints = append(constraints, smt.Eq(jitter, smt.Int(0)))
	}
	return constraints
}

// One transmission at a time per port, separated by the interframe gap, regardless of the gate
func portExclusivityConstraints(state constraintState) []smt.Formula {
	constraints := []smt.Formula{}
	for _, port := range state.input.Ports {
		gap := state.space.variableFor(portKey(interframeGapTime, port))
		constraints = append(constraints, smt.Eq(smt.V(gap), smt.R(interframeGap(port.Datarate))))

		transmissions := state.space.transmissionsOn(port)
		for i, ti := range transmissions {
			for _, tj := range transmissions[i+1:] {
				constraints = append(constraints, smt.Disjunction(
					smt.Le(smt.V(ti.end).Add(smt.V(gap)), smt.V(tj.start)),
					smt.Le(smt.V(tj.end).Add(smt.V(gap)), smt.V(ti.start)),
				))
			}
		}
	}
	return constraints
}

// Packets sharing a gate are received in the order they are sent
func noReorderConstraints(state constraintState) []smt.Formula {
	constraints := []smt.Formula{}
	for _, port := range state.input.Ports {
		for gate := range port.NumGates {
			transmissions := state.space.transmissionsOnGate(port, gate)
			for i, ti := range transmissions {
				for _, tj := range transmissions[i+1:] {
					constraints = append(constraints, smt.Iff{
						Left:  smt.Lt(smt.V(ti.receptionEnd), smt.V(tj.receptionEnd)),
						Right: smt.Lt(smt.V(ti.end), smt.V(tj.end)),
					})
				}
			}
		}
	}
	return constraints
}

// A lower priority gate (higher index) never starts sending inside a higher priority packet's window
func priorityConstraints(state constraintState) []smt.Formula {
	constraints := []smt.Formula{}
	for _, port := range state.input.Ports {
		for gateI := range port.NumGates {
			transmissionsI := state.space.transmissionsOnGate(port, gateI)
			for gateJ := gateI + 1; gateJ < port.NumGates; gateJ++ {
				for _, ti := range transmissionsI {
					for _, tj := range state.space.transmissionsOnGate(port, gateJ) {
						constraints = append(constraints, smt.Disjunction(
							smt.Le(smt.V(tj.start), smt.V(ti.receptionEnd)),
							smt.Ge(smt.V(tj.start), smt.V(ti.start)),
						))
					}
				}
			}
		}
	}
	return constraints
}
