package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/golang/glog"
	"github.com/limaJavier/gatescheduling/pkg/model"
	"github.com/limaJavier/gatescheduling/pkg/smt"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	exitSolved             = 10
	exitVerificationFailed = 15
	exitInfeasible         = 20
)

var (
	validFormats = []string{"json", "yaml", "csv"}
	solvers      = map[string]func() smt.Solver{
		"z3":     smt.NewZ3Solver,
		"native": smt.NewNativeSolver,
	}
)

func main() {
	// Define arguments
	filePathPtr := flag.String("file", "", "Path to the input file (.json, .yaml or .yml)")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	formatPtr := flag.String("format", "json", "Output format. Allowed values are: \"json\", \"yaml\" and \"csv\" (one row per gate slot), where \"json\" is the default")
	solverPtr := flag.String("solver", "z3", "SMT solver to use. Allowed values are: \"z3\" (external binary configured in config.json) and \"native\" (built-in), where \"z3\" is the default")
	cyclePtr := flag.Duration("cycle", 0, "Gate cycle duration, overrides the one in the input file when set")
	optimizePtr := flag.Bool("optimize", false, "Minimize the total end-to-end delay")
	labelPtr := flag.Bool("label", false, "Label assertions so that infeasible inputs report the conflicting constraints")
	timeoutPtr := flag.Duration("timeout", 0, "Time limit for the solver; no limit when zero")
	flag.Parse()
	filePath := *filePathPtr
	outFile := *outFilePathPtr
	format := strings.ToLower(*formatPtr)
	solverStr := strings.ToLower(*solverPtr)

	// Validate arguments
	if !slices.Contains(validFormats, format) {
		glog.Exitf("%v is not a valid output format", format)
	} else if _, ok := solvers[solverStr]; !ok {
		glog.Exitf("%v is not a valid solver", solverStr)
	} else if filePath == "" {
		glog.Exit("an input file must be specified")
	} else if *cyclePtr < 0 {
		glog.Exitf("the gate cycle duration cannot be negative: %v", *cyclePtr)
	}
	if solverStr == "z3" {
		setConfigPath()
	}

	// Extract input
	input, err := model.InputFromFile(filePath)
	if err != nil {
		glog.Exitf("cannot parse input file: %v", err)
	}

	// Initialize engines
	scheduler := model.NewGateScheduler(solvers[solverStr](), model.Config{
		GateCycleDuration: *cyclePtr,
		Optimize:          *optimizePtr,
		LabelAssertions:   *labelPtr,
	})
	ctx := context.Background()
	if *timeoutPtr > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutPtr)
		defer cancel()
	}

	// Build gate schedules
	start := time.Now()
	output, err := scheduler.Build(ctx, input)
	glog.V(1).Infof("Schedules built in %v", time.Since(start))

	if errors.Is(err, model.ErrInfeasible) {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(exitInfeasible)
	} else if err != nil {
		glog.Exitf("an error occurred during gate schedule construction: %v", err)
	}

	// Verify schedule correctness
	if !scheduler.Verify(output, input) {
		glog.Error("the gate schedules violate the input's constraints")
		glog.Flush()
		os.Exit(exitVerificationFailed)
	}

	// Marshal output
	content, err := marshal(output, format)
	if err != nil {
		glog.Exitf("an error occurred while building output %v: %v", format, err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(content))
	} else if err := os.WriteFile(outFile, content, 0666); err != nil {
		glog.Exitf("an error occurred while writing to the output file: %v", err)
	}

	glog.Flush()
	os.Exit(exitSolved)
}

func marshal(output *model.Output, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(output)
	case "csv":
		content, err := gocsv.MarshalString(output.Records())
		return []byte(content), err
	default:
		return json.MarshalIndent(output, "", "  ")
	}
}

func setConfigPath() {
	execPath, err := os.Executable()
	if err != nil {
		glog.Exitf("cannot determine executable path: %v", err)
	}
	execPath = path.Dir(execPath)

	// Verify config.json exists, otherwise the z3 binary is looked up in the PATH
	files, err := os.ReadDir(execPath)
	if err != nil {
		glog.Exitf("cannot read executable's directory: %v", err)
	}
	fileNames := lo.Map(files, func(file os.DirEntry, _ int) string { return file.Name() })

	if !slices.Contains(fileNames, "config.json") {
		glog.Warningf("config.json file was not found next to the executable, using the default solver paths")
	}

	smt.ConfigPath = execPath + "/config.json"
}
