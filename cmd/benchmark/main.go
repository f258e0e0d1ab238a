package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/golang/glog"
	"github.com/limaJavier/gatescheduling/pkg/model"
	"github.com/samber/lo"
)

const (
	executablePath                     = "../../bin/gatescheduling"
	satisfiableTestDirectory           = "../../test/satisfiable/"
	unsatisfiableTestDirectory         = "../../test/unsatisfiable/"
	KB                                 = 1024
	MB                         float32 = 1024 * 1024
)

type SolverType int

const (
	z3 SolverType = iota
	native
)

type ResultType int

const (
	solved ResultType = iota
	unsatisfiable
	timeout
)

var (
	solverTypes = map[SolverType]string{
		z3:     "z3",
		native: "native",
	}
	resultTypes = map[ResultType]string{
		solved:        "solved",
		unsatisfiable: "unsatisfiable",
		timeout:       "timeout",
	}
)

type TestMetadata struct {
	Name        string
	Satisfiable bool
	Ports       int
	Flows       int
	Packets     int
}

type BenchmarkResult struct {
	Solver        SolverType
	Optimize      bool
	Test          TestMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
}

// BenchmarkRecord is the CSV row of a BenchmarkResult
type BenchmarkRecord struct {
	Solver        string `csv:"Solver"`
	Optimize      bool   `csv:"Optimize"`
	Test          string `csv:"Test"`
	Satisfiable   bool   `csv:"Satisfiable"`
	Ports         int    `csv:"Ports"`
	Flows         int    `csv:"Flows"`
	Packets       int    `csv:"Packets"`
	Duration      int64  `csv:"Duration(ms)"`
	Memory        string `csv:"Memory(MB)"`
	CpuPercentage int64  `csv:"CPU(%)"`
	Result        string `csv:"Result"`
}

func main() {
	tests := getTests()
	solvers := getSolvers()
	results := make([]BenchmarkResult, 0, 2*len(tests)*len(solvers))

	for _, test := range tests {
		for _, optimize := range []bool{false, true} {
			for _, solver := range solvers {
				fmt.Printf("Benchmarking test \"%v\" with solver \"%v\" and optimization \"%v\"\n", test.Name, solverTypes[solver], optimize)

				duration, maxMemory, cpuPercentage, result := measure(solver, optimize, test.Name)

				results = append(results, BenchmarkResult{
					Solver:        solver,
					Optimize:      optimize,
					Test:          test,
					Duration:      duration,
					Memory:        maxMemory,
					CpuPercentage: cpuPercentage,
					Result:        result,
				})
			}
		}
	}

	toCsv(results)
}

func getTests() []TestMetadata {
	tests := make([]TestMetadata, 0)
	for _, tuple := range lo.Zip2([]string{satisfiableTestDirectory, unsatisfiableTestDirectory}, []bool{true, false}) {
		directory, satisfiable := tuple.A, tuple.B
		testFiles, err := os.ReadDir(directory)
		if err != nil {
			glog.Exitf("cannot read directory: %v", err)
		}

		for _, file := range testFiles {
			test, err := getTest(directory+file.Name(), satisfiable)
			if err != nil {
				glog.Exitf("cannot parse input file: %v", err)
			}
			tests = append(tests, test)
		}
	}

	return tests
}

func getTest(filename string, satisfiable bool) (TestMetadata, error) {
	input, err := model.InputFromFile(filename)
	if err != nil {
		return TestMetadata{}, err
	}
	return TestMetadata{
		Name:        filename,
		Satisfiable: satisfiable,
		Ports:       len(input.Ports),
		Flows:       len(input.Flows),
		Packets: lo.SumBy(input.Flows, func(flow *model.Flow) int {
			return model.PacketCount(flow, input.GateCycleDuration)
		}),
	}, nil
}

func getSolvers() []SolverType {
	return []SolverType{z3, native}
}

func measure(solver SolverType, optimize bool, testFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath, "-solver", solverTypes[solver], fmt.Sprintf("-optimize=%v", optimize), "-timeout", "10m", "-file", testFile)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	switch exitCode := cmd.ProcessState.ExitCode(); {
	case exitCode == 20:
		result = unsatisfiable
	case exitCode == 10:
		result = solved
	case strings.Contains(stdErr.String(), "deadline exceeded"):
		result = timeout
	default:
		glog.Exitf("an error occurred during the execution \"gatescheduling\" at test \"%v\" using solver \"%v\", optimization \"%v\": %v\n", testFile, solverTypes[solver], optimize, stdErr.String())
	}
	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			glog.Exitf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create("benchmark_results.csv")
	if err != nil {
		glog.Fatalf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	records := toRecords(results)
	if err := gocsv.MarshalFile(&records, file); err != nil {
		glog.Fatalf("cannot write CSV records: %v", err)
	}
}

func toRecords(results []BenchmarkResult) []BenchmarkRecord {
	return lo.Map(results, func(result BenchmarkResult, _ int) BenchmarkRecord {
		return BenchmarkRecord{
			Solver:        solverTypes[result.Solver],
			Optimize:      result.Optimize,
			Test:          result.Test.Name,
			Satisfiable:   result.Test.Satisfiable,
			Ports:         result.Test.Ports,
			Flows:         result.Test.Flows,
			Packets:       result.Test.Packets,
			Duration:      result.Duration,
			Memory:        fmt.Sprintf("%.1f", result.Memory),
			CpuPercentage: result.CpuPercentage,
			Result:        resultTypes[result.Result],
		}
	})
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		glog.Exitf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.Split(line, ":")[1][1:]
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / 1024
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.Split(line, ":")[1][1:]
	percentageStr = percentageStr[:len(percentageStr)-1]
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
