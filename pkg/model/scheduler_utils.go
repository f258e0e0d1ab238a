package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/limaJavier/gatescheduling/pkg/smt"
	"github.com/samber/lo"
)

// Absolute tolerance in nanoseconds when checking solved values
const verifyTolerance = 1e-3

// PacketCount is the number of packets of the flow released within one cycle
func PacketCount(flow *Flow, cycle time.Duration) int {
	return int(cycle / flow.StartApplication.PacketInterval)
}

// before orders solved times that differ by more than the verification tolerance
func before(a, b float64) bool {
	return a < b-verifyTolerance
}

// reordered reports whether two transmissions of the same gate are received in another order than they are sent
func reordered(ti, tj Transmission) bool {
	return ti.GateIndex == tj.GateIndex &&
		((before(ti.End, tj.End) && before(tj.ReceptionEnd, ti.ReceptionEnd)) ||
			(before(tj.End, ti.End) && before(ti.ReceptionEnd, tj.ReceptionEnd)))
}

// preempted reports whether a lower priority transmission starts after the higher priority one was received
// but before it was sent
func preempted(ti, tj Transmission) bool {
	high, low := ti, tj
	if high.GateIndex > low.GateIndex {
		high, low = low, high
	}
	return high.GateIndex != low.GateIndex && before(high.ReceptionEnd, low.Start) && before(low.Start, high.Start)
}

func buildProblem(run *schedulingRun, constraints []func(state constraintState) []smt.Formula, state constraintState) {
	for i, constraint := range constraints {
		formulas := constraint(state)
		glog.V(2).Infof("constraint family %d: %d assertions", i, len(formulas))
		for _, formula := range formulas {
			run.addAssert(formula)
		}
	}
}

func formatModel(problem *smt.Problem, model smt.Model) string {
	var builder strings.Builder
	for _, v := range problem.Variables() {
		fmt.Fprintf(&builder, "\t%v = %v\n", v.Name(), model[v.Name()])
	}
	return builder.String()
}

func verify(output *Output, input Input) bool {
	if output == nil {
		return false
	}
	ports := lo.SliceToMap(input.Ports, func(port *Port) (string, *Port) { return port.Name, port })

	// Check that:
	// - Every slot lies within its cycle
	// - Slots of a gate are sorted by start
	for _, port := range input.Ports {
		schedules := output.GateSchedules[port.Name]
		if len(schedules) != port.NumGates {
			return false
		}
		for _, schedule := range schedules {
			cycle := schedule.CycleDuration
			for i, slot := range schedule.Slots {
				if slot.Start < 0 || slot.Start >= cycle || slot.Start+slot.Duration > cycle+verifyTolerance {
					glog.V(1).Infof("slot %v of %v gate %d escapes the cycle", slot, port.Name, schedule.GateIndex)
					return false
				}
				if i > 0 && schedule.Slots[i-1].Start > slot.Start {
					return false
				}
			}
		}
	}

	byPort := lo.GroupBy(output.Transmissions, func(t Transmission) string { return t.Port })
	for name, transmissions := range byPort {
		port, ok := ports[name]
		if !ok {
			return false
		}
		gap, _ := interframeGap(port.Datarate).Float64()
		for i, ti := range transmissions {
			for _, tj := range transmissions[i+1:] {
				// Check that transmissions on the port are separated by the interframe gap
				if ti.End+gap > tj.Start+verifyTolerance && tj.End+gap > ti.Start+verifyTolerance {
					glog.V(1).Infof("transmissions %v and %v overlap", ti, tj)
					return false
				}

				// Check that packets of the same gate keep their order
				if reordered(ti, tj) {
					glog.V(1).Infof("transmissions %v and %v are reordered", ti, tj)
					return false
				}

				// Check that a lower priority gate starts before the higher priority window closes or after it opens
				if preempted(ti, tj) {
					glog.V(1).Infof("transmissions %v and %v break the gate priorities", ti, tj)
					return false
				}
			}
		}
	}

	// Check that every packet respects its flow's latency bound and is released on time
	for _, flow := range input.Flows {
		application := flow.StartApplication
		delays := output.EndToEndDelays[flow.Name]
		if len(delays) != PacketCount(flow, time.Duration(output.cycle(input))) {
			return false
		}
		if application.MaxLatency > 0 && lo.SomeBy(delays, func(delay float64) bool {
			return delay > float64(application.MaxLatency.Nanoseconds())+verifyTolerance
		}) {
			return false
		}

		start := output.ApplicationStartTimes[application.Name]
		first := flow.hops()[0].output.Name
		for _, t := range output.Transmissions {
			if t.Flow != flow.Name || t.Port != first {
				continue
			}
			release := start + float64(t.Packet)*float64(application.PacketInterval.Nanoseconds())
			if math.Abs(t.Start-release) > verifyTolerance {
				return false
			}
		}
	}
	return true
}

// cycle returns the cycle duration in nanoseconds the output was scheduled with
func (output *Output) cycle(input Input) float64 {
	for _, schedules := range output.GateSchedules {
		for _, schedule := range schedules {
			return schedule.CycleDuration
		}
	}
	return float64(input.GateCycleDuration.Nanoseconds())
}
