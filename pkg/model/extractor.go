package model

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/glog"
	"github.com/limaJavier/gatescheduling/pkg/smt"
	"github.com/samber/lo"
)

// extract turns a model of the run's problem into gate schedules
func extract(model smt.Model, state constraintState) (*Output, error) {
	var decodeErr error
	valueOf := func(v *smt.Var) float64 {
		value, err := model.Value(v)
		if err != nil && decodeErr == nil {
			decodeErr = err
		}
		return value
	}

	output := &Output{
		ApplicationStartTimes: make(map[string]float64),
		GateSchedules:         make(map[string][]*Schedule),
		EndToEndDelays:        make(map[string][]float64),
	}
	cycle, _ := nanoseconds(state.cycle).Float64()

	//** Fill application start times
	for _, application := range state.input.Applications {
		output.ApplicationStartTimes[application.Name] = valueOf(state.space.variableFor(applicationKey(applicationStartTime, application)))
	}

	//** Fill transmissions and end-to-end delays
	for _, flow := range state.input.Flows {
		delays := make([]float64, 0, state.packets(flow))
		for packet := range state.packets(flow) {
			for _, h := range flow.hops() {
				t := state.space.transmissionFor(flow, packet, h)
				transmission := Transmission{
					Flow:           flow.Name,
					Packet:         packet,
					Port:           t.port.Name,
					ReceptionPort:  t.receptionPort.Name,
					GateIndex:      t.gate,
					Start:          valueOf(t.start),
					End:            valueOf(t.end),
					ReceptionStart: valueOf(t.receptionStart),
					ReceptionEnd:   valueOf(t.receptionEnd),
				}
				glog.V(2).Infof("Transmission: %v.packet%d %v, start = %v, end = %v", flow.Name, packet, t.port.Name, transmission.Start, transmission.End)
				output.Transmissions = append(output.Transmissions, transmission)
			}
			delay := valueOf(state.space.variableFor(packetKey(endToEndDelay, flow, packet)))
			glog.V(2).Infof("End-to-end delay: %v.packet%d = %v", flow.Name, packet, delay)
			delays = append(delays, delay)
		}
		output.EndToEndDelays[flow.Name] = delays
	}

	//** Fill gate schedules
	for _, port := range state.input.Ports {
		schedules := make([]*Schedule, 0, port.NumGates)
		for gate := range port.NumGates {
			glog.V(2).Infof("Computing schedule, port = %v, gateIndex = %d", port.Name, gate)
			schedule := &Schedule{
				Port:          port.Name,
				GateIndex:     gate,
				CycleStart:    0,
				CycleDuration: cycle,
				Slots:         []Slot{},
			}
			for _, t := range state.space.transmissionsOnGate(port, gate) {
				start, end := valueOf(t.start), valueOf(t.end)
				glog.V(2).Infof("Adding slot, start time = %v, end time = %v", start, end)
				schedule.Slots = append(schedule.Slots, splitSlot(start, end, cycle)...)
			}
			slices.SortStableFunc(schedule.Slots, func(a, b Slot) int { return cmp.Compare(a.Start, b.Start) })
			schedules = append(schedules, schedule)
		}
		output.GateSchedules[port.Name] = schedules
	}

	if decodeErr != nil {
		return nil, decodeErr
	}
	return output, nil
}

// splitSlot folds a transmission window into the cycle. A window that crosses the cycle boundary is
// split into its part up to the boundary and the remainder at the start of the cycle.
func splitSlot(start, end, cycle float64) []Slot {
	duration := end - start
	if start < cycle && cycle <= end {
		head := Slot{Start: start, Duration: cycle - start}
		if remainder := duration - head.Duration; remainder > 0 {
			return []Slot{head, {Start: 0, Duration: remainder}}
		}
		return []Slot{head}
	}
	return []Slot{{Start: math.Mod(start, cycle), Duration: duration}}
}

// Records flattens the gate schedules, ordered by port, gate and start
func (output *Output) Records() []SlotRecord {
	records := []SlotRecord{}
	for _, port := range lo.Keys(output.GateSchedules) {
		for _, schedule := range output.GateSchedules[port] {
			for _, slot := range schedule.Slots {
				records = append(records, SlotRecord{
					Port:          schedule.Port,
					GateIndex:     schedule.GateIndex,
					CycleDuration: schedule.CycleDuration,
					Start:         slot.Start,
					Duration:      slot.Duration,
				})
			}
		}
	}
	slices.SortStableFunc(records, func(a, b SlotRecord) int {
		return cmp.Or(cmp.Compare(a.Port, b.Port), cmp.Compare(a.GateIndex, b.GateIndex), cmp.Compare(a.Start, b.Start))
	})
	return records
}
