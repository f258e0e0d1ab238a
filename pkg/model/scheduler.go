package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type GateScheduler interface {
	Build(
		ctx context.Context,
		input Input,
	) (*Output, error)

	Verify(
		output *Output,
		input Input,
	) bool
}

type Config struct {
	GateCycleDuration time.Duration // Takes precedence over the input's cycle when set
	Optimize          bool          // Minimize the total end-to-end delay instead of stopping at the first schedule
	LabelAssertions   bool          // Name every assertion so that infeasible runs report an unsatisfiable core
}

type Slot struct {
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// Schedule is the gate-control list of one gate of a port; slots are sorted by start and lie within the cycle
type Schedule struct {
	Port          string  `json:"port" yaml:"port"`
	GateIndex     int     `json:"gateIndex" yaml:"gateIndex"`
	CycleStart    float64 `json:"cycleStart" yaml:"cycleStart"`
	CycleDuration float64 `json:"cycleDuration" yaml:"cycleDuration"`
	Slots         []Slot  `json:"slots" yaml:"slots"`
}

// Transmission is the solved timing of one packet on one hop, before folding into the cycle
type Transmission struct {
	Flow           string  `json:"flow" yaml:"flow"`
	Packet         int     `json:"packet" yaml:"packet"`
	Port           string  `json:"port" yaml:"port"`
	ReceptionPort  string  `json:"receptionPort" yaml:"receptionPort"`
	GateIndex      int     `json:"gateIndex" yaml:"gateIndex"`
	Start          float64 `json:"start" yaml:"start"`
	End            float64 `json:"end" yaml:"end"`
	ReceptionStart float64 `json:"receptionStart" yaml:"receptionStart"`
	ReceptionEnd   float64 `json:"receptionEnd" yaml:"receptionEnd"`
}

// Output holds every time in nanoseconds
type Output struct {
	ApplicationStartTimes map[string]float64     `json:"applicationStartTimes" yaml:"applicationStartTimes"`
	GateSchedules         map[string][]*Schedule `json:"gateSchedules" yaml:"gateSchedules"`
	EndToEndDelays        map[string][]float64   `json:"endToEndDelays" yaml:"endToEndDelays"`
	Transmissions         []Transmission         `json:"transmissions" yaml:"transmissions"`
}

// SlotRecord is a flattened slot, one CSV row per slot
type SlotRecord struct {
	Port          string  `csv:"port"`
	GateIndex     int     `csv:"gate_index"`
	CycleDuration float64 `csv:"cycle_duration"`
	Start         float64 `csv:"start"`
	Duration      float64 `csv:"duration"`
}

var ErrInfeasible = errors.New("the specified constraints might not be satisfiable")

// InfeasibleError reports an unsatisfiable model. Core lists the conflicting assertions when assertions are
// labeled, and is empty otherwise.
type InfeasibleError struct {
	Core []string
}

func (err *InfeasibleError) Error() string {
	if len(err.Core) == 0 {
		return ErrInfeasible.Error()
	}
	return fmt.Sprintf("%v, unsatisfiable core:\n\t%v", ErrInfeasible, strings.Join(err.Core, "\n\t"))
}

func (err *InfeasibleError) Is(target error) bool {
	return target == ErrInfeasible
}
