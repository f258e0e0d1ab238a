package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Application struct {
	Name           string        `yaml:"name" json:"name"`
	PacketLength   Length        `yaml:"packetLength" json:"packetLength"`
	PacketInterval time.Duration `yaml:"packetInterval" json:"packetInterval"`
	MaxLatency     time.Duration `yaml:"maxLatency,omitempty" json:"maxLatency,omitempty"` // Zero means unconstrained
}

type Port struct {
	Name            string        `yaml:"name" json:"name"`
	Datarate        Datarate      `yaml:"datarate" json:"datarate"`
	PropagationTime time.Duration `yaml:"propagationTime" json:"propagationTime"`
	NumGates        int           `yaml:"numGates" json:"numGates"`
}

type RawPathFragment struct {
	NetworkNodes []string `yaml:"networkNodes" json:"networkNodes"`
	OutputPorts  []string `yaml:"outputPorts" json:"outputPorts"`
	InputPorts   []string `yaml:"inputPorts" json:"inputPorts"`
}

type RawFlow struct {
	Name          string            `yaml:"name" json:"name"`
	Application   string            `yaml:"application" json:"application"`
	GateIndex     int               `yaml:"gateIndex" json:"gateIndex"`
	PathFragments []RawPathFragment `yaml:"pathFragments" json:"pathFragments"`
}

// RawInput is the serialized form of the scheduling input, ports and applications are referenced by name
type RawInput struct {
	GateCycleDuration time.Duration `yaml:"gateCycleDuration,omitempty" json:"gateCycleDuration,omitempty"`
	Applications      []Application `yaml:"applications" json:"applications"`
	Ports             []Port        `yaml:"ports" json:"ports"`
	Flows             []RawFlow     `yaml:"flows" json:"flows"`
}

// PathFragment is a routed segment of a flow: hop i leaves through OutputPorts[i] and is received on InputPorts[i]
type PathFragment struct {
	NetworkNodes []string
	OutputPorts  []*Port
	InputPorts   []*Port
}

type Flow struct {
	Name             string
	StartApplication *Application
	PathFragments    []PathFragment
	GateIndex        int
}

type Input struct {
	GateCycleDuration time.Duration // Optional, the scheduler's configuration takes precedence
	Applications      []*Application
	Flows             []*Flow
	Ports             []*Port
}

// hop is a single output/input port pair of a flow's path
type hop struct {
	output, input *Port
}

// hops flattens the path fragments of the flow
func (flow *Flow) hops() []hop {
	return lo.FlatMap(flow.PathFragments, func(fragment PathFragment, _ int) []hop {
		return lo.Map(fragment.OutputPorts, func(port *Port, i int) hop {
			return hop{output: port, input: fragment.InputPorts[i]}
		})
	})
}

// InputFromFile reads a YAML (.yaml, .yml) or JSON (.json) scheduling input. Durations are written as
// Go durations ("500us"), lengths with a bit or byte unit ("1500B") and datarates in bps ("1Gbps").
func InputFromFile(file string) (Input, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Input{}, err
	}

	var inputMap map[string]any
	switch strings.ToLower(path.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &inputMap)
	case ".json":
		err = json.Unmarshal(bytes, &inputMap)
	default:
		return Input{}, fmt.Errorf("unsupported input format %q", path.Ext(file))
	}
	if err != nil {
		return Input{}, fmt.Errorf("cannot parse %v: %w", file, err)
	}

	var rawInput RawInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			unitHookFunc(),
		),
		ErrorUnused: true,
		Result:      &rawInput,
	})
	if err != nil {
		return Input{}, err
	}
	if err := decoder.Decode(inputMap); err != nil {
		return Input{}, fmt.Errorf("cannot decode %v: %w", file, err)
	}
	return ProcessRawInput(rawInput)
}

// ProcessRawInput resolves names into references and validates the result
func ProcessRawInput(rawInput RawInput) (Input, error) {
	input := Input{GateCycleDuration: rawInput.GateCycleDuration}

	ports := make(map[string]*Port)
	for _, port := range rawInput.Ports {
		if _, ok := ports[port.Name]; ok {
			return Input{}, fmt.Errorf("duplicate port %q", port.Name)
		}
		ports[port.Name] = &port
		input.Ports = append(input.Ports, &port)
	}

	applications := make(map[string]*Application)
	for _, application := range rawInput.Applications {
		if _, ok := applications[application.Name]; ok {
			return Input{}, fmt.Errorf("duplicate application %q", application.Name)
		}
		applications[application.Name] = &application
		input.Applications = append(input.Applications, &application)
	}

	lookupPorts := func(flow string, names []string) ([]*Port, error) {
		resolved := make([]*Port, 0, len(names))
		for _, name := range names {
			port, ok := ports[name]
			if !ok {
				return nil, fmt.Errorf("flow %q references unknown port %q", flow, name)
			}
			resolved = append(resolved, port)
		}
		return resolved, nil
	}

	names := make(map[string]bool)
	for _, rawFlow := range rawInput.Flows {
		if names[rawFlow.Name] {
			return Input{}, fmt.Errorf("duplicate flow %q", rawFlow.Name)
		}
		names[rawFlow.Name] = true

		application, ok := applications[rawFlow.Application]
		if !ok {
			return Input{}, fmt.Errorf("flow %q references unknown application %q", rawFlow.Name, rawFlow.Application)
		}
		flow := &Flow{Name: rawFlow.Name, StartApplication: application, GateIndex: rawFlow.GateIndex}
		for _, rawFragment := range rawFlow.PathFragments {
			outputPorts, err := lookupPorts(rawFlow.Name, rawFragment.OutputPorts)
			if err != nil {
				return Input{}, err
			}
			inputPorts, err := lookupPorts(rawFlow.Name, rawFragment.InputPorts)
			if err != nil {
				return Input{}, err
			}
			flow.PathFragments = append(flow.PathFragments, PathFragment{
				NetworkNodes: rawFragment.NetworkNodes,
				OutputPorts:  outputPorts,
				InputPorts:   inputPorts,
			})
		}
		input.Flows = append(input.Flows, flow)
	}

	if err := input.Validate(input.GateCycleDuration); err != nil {
		return Input{}, err
	}
	return input, nil
}

// Validate rejects inputs the constraint model cannot represent. A zero cycle skips the checks that
// depend on it, which lets files leave the cycle to the scheduler's configuration.
func (input Input) Validate(cycle time.Duration) error {
	var errs []error
	if cycle < 0 {
		errs = append(errs, fmt.Errorf("negative gate cycle duration %v", cycle))
	}
	for _, port := range input.Ports {
		if port.NumGates <= 0 {
			errs = append(errs, fmt.Errorf("port %q must have at least one gate", port.Name))
		}
		if port.Datarate <= 0 {
			errs = append(errs, fmt.Errorf("port %q must have a positive datarate", port.Name))
		}
		if port.PropagationTime < 0 {
			errs = append(errs, fmt.Errorf("port %q has a negative propagation time", port.Name))
		}
	}
	for _, application := range input.Applications {
		if application.PacketLength <= 0 {
			errs = append(errs, fmt.Errorf("application %q must have a positive packet length", application.Name))
		}
		if application.PacketInterval <= 0 {
			errs = append(errs, fmt.Errorf("application %q must have a positive packet interval", application.Name))
		} else if cycle > 0 && application.PacketInterval > cycle {
			errs = append(errs, fmt.Errorf("packet interval %v of application %q exceeds the gate cycle %v", application.PacketInterval, application.Name, cycle))
		}
		if application.MaxLatency < 0 {
			errs = append(errs, fmt.Errorf("application %q has a negative max latency", application.Name))
		}
	}
	for _, flow := range input.Flows {
		if flow.StartApplication == nil {
			errs = append(errs, fmt.Errorf("flow %q has no application", flow.Name))
		}
		if len(flow.PathFragments) == 0 {
			errs = append(errs, fmt.Errorf("flow %q has an empty path", flow.Name))
		}
		for i, fragment := range flow.PathFragments {
			hops := len(fragment.NetworkNodes) - 1
			if hops < 1 || len(fragment.OutputPorts) != hops || len(fragment.InputPorts) != hops {
				errs = append(errs, fmt.Errorf("path fragment %d of flow %q needs one output and one input port per hop", i, flow.Name))
				continue
			}
			for _, port := range fragment.OutputPorts {
				if flow.GateIndex < 0 || flow.GateIndex >= port.NumGates {
					errs = append(errs, fmt.Errorf("gate index %d of flow %q is out of range on port %q", flow.GateIndex, flow.Name, port.Name))
				}
			}
		}
	}
	return errors.Join(errs...)
}
