package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/iti/rngstream"
	"github.com/limaJavier/gatescheduling/pkg/model"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gopkg.in/yaml.v3"
)

type parameters struct {
	switches int
	links    int
	talkers  int
	flows    int
	gates    int
	cycle    time.Duration
}

var (
	datarates        = []model.Datarate{100_000_000, 1_000_000_000}
	intervalDivisors = []int{1, 2, 4}
)

func main() {
	outDirPtr := flag.String("out", "../../test/generated/", "Directory where the generated inputs will be written")
	countPtr := flag.Int("count", 10, "Number of inputs to generate")
	switchesPtr := flag.Int("switches", 3, "Number of switches, connected by a random spanning tree")
	linksPtr := flag.Int("links", 1, "Number of random switch links added on top of the spanning tree")
	talkersPtr := flag.Int("talkers", 4, "Number of end stations; each one talks to a random other one")
	flowsPtr := flag.Int("flows", 4, "Number of flows per input")
	gatesPtr := flag.Int("gates", 2, "Number of gates per port")
	cyclePtr := flag.Duration("cycle", time.Millisecond, "Gate cycle duration")
	seedPtr := flag.String("seed", "gatescheduling", "Name of the random stream")
	flag.Parse()

	params := parameters{
		switches: *switchesPtr,
		links:    *linksPtr,
		talkers:  *talkersPtr,
		flows:    *flowsPtr,
		gates:    *gatesPtr,
		cycle:    *cyclePtr,
	}
	if params.switches < 1 || params.links < 0 || params.talkers < 2 || params.flows < 1 || params.gates < 1 || params.cycle <= 0 {
		glog.Exitf("invalid generator parameters: %+v", params)
	}
	if err := os.MkdirAll(*outDirPtr, 0755); err != nil {
		glog.Exitf("cannot create output directory: %v", err)
	}

	rng := rngstream.New(*seedPtr)
	for i := range *countPtr {
		rawInput := generate(rng, params)
		content, err := yaml.Marshal(rawInput)
		if err != nil {
			glog.Exitf("cannot marshal input %d: %v", i, err)
		}
		file := filepath.Join(*outDirPtr, fmt.Sprintf("%d.yaml", i))
		if err := os.WriteFile(file, content, 0666); err != nil {
			glog.Exitf("cannot write %v: %v", file, err)
		}
		glog.V(1).Infof("Generated %v with %d ports and %d flows", file, len(rawInput.Ports), len(rawInput.Flows))
	}
	glog.Flush()
}

// topology connects the switches by a random spanning tree plus some random links. Every link weighs one
// hop.
func topology(rng *rngstream.RngStream, switches, links int) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range switches {
		g.AddNode(simple.Node(i))
	}
	for i := 1; i < switches; i++ {
		parent := rng.RandInt(0, i-1)
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(parent), T: simple.Node(i), W: 1})
	}
	for range links {
		a, b := rng.RandInt(0, switches-1), rng.RandInt(0, switches-1)
		if a != b {
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: 1})
		}
	}
	return g
}

// route returns the switches of a shortest path between two switches, both included
func route(g graph.Graph, trees map[int]path.Shortest, from, to int) []int {
	tree, ok := trees[from]
	if !ok {
		tree = path.DijkstraFrom(g.Node(int64(from)), g)
		trees[from] = tree
	}
	nodes, _ := tree.To(int64(to))
	return lo.Map(nodes, func(n graph.Node, _ int) int { return int(n.ID()) })
}

// generate builds a random network: switches connected by a random topology, every end station attached to
// a random switch, and one flow per application between two distinct end stations routed over a shortest
// path
func generate(rng *rngstream.RngStream, params parameters) model.RawInput {
	rawInput := model.RawInput{GateCycleDuration: params.cycle}
	ports := make(map[string]bool)

	// Every link end is one port, used as output towards the neighbour and as input from it
	portName := func(node, neighbour string) string {
		name := node + "." + neighbour
		if !ports[name] {
			ports[name] = true
			rawInput.Ports = append(rawInput.Ports, model.Port{
				Name:            name,
				Datarate:        datarates[rng.RandInt(0, len(datarates)-1)],
				PropagationTime: time.Duration(rng.RandInt(1, 10)) * 50 * time.Nanosecond,
				NumGates:        params.gates,
			})
		}
		return name
	}

	network := topology(rng, params.switches, params.links)
	trees := make(map[int]path.Shortest)
	attachments := lo.Times(params.talkers, func(int) int { return rng.RandInt(0, params.switches-1) })

	for i := range params.flows {
		talker := rng.RandInt(0, params.talkers-1)
		listener := (talker + rng.RandInt(1, params.talkers-1)) % params.talkers

		nodes := []string{fmt.Sprintf("es%d", talker)}
		for _, s := range route(network, trees, attachments[talker], attachments[listener]) {
			nodes = append(nodes, fmt.Sprintf("sw%d", s))
		}
		nodes = append(nodes, fmt.Sprintf("es%d", listener))

		fragment := model.RawPathFragment{NetworkNodes: nodes}
		for j := range len(nodes) - 1 {
			fragment.OutputPorts = append(fragment.OutputPorts, portName(nodes[j], nodes[j+1]))
			fragment.InputPorts = append(fragment.InputPorts, portName(nodes[j+1], nodes[j]))
		}

		application := model.Application{
			Name:           fmt.Sprintf("app%d", i),
			PacketLength:   model.Length(8 * rng.RandInt(64, 1500)),
			PacketInterval: params.cycle / time.Duration(intervalDivisors[rng.RandInt(0, len(intervalDivisors)-1)]),
		}
		if rng.RandU01() < 0.5 {
			application.MaxLatency = application.PacketInterval
		}
		rawInput.Applications = append(rawInput.Applications, application)
		rawInput.Flows = append(rawInput.Flows, model.RawFlow{
			Name:          fmt.Sprintf("flow%d", i),
			Application:   application.Name,
			GateIndex:     rng.RandInt(0, params.gates-1),
			PathFragments: []model.RawPathFragment{fragment},
		})
	}
	return rawInput
}
