package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/limaJavier/gatescheduling/pkg/smt"
	"github.com/samber/lo"
)

type smtGateScheduler struct {
	solver smt.Solver
	config Config
}

func NewGateScheduler(solver smt.Solver, config Config) GateScheduler {
	return &smtGateScheduler{
		solver: solver,
		config: config,
	}
}

// schedulingRun is the solver context of a single Build call
type schedulingRun struct {
	labeled    bool
	problem    *smt.Problem
	space      *variableSpace
	assertions int
	formulas   map[string]smt.Formula // Labeled assertions by label
}

func newSchedulingRun(labeled bool) *schedulingRun {
	problem := smt.NewProblem()
	return &schedulingRun{
		labeled:  labeled,
		problem:  problem,
		space:    newVariableSpace(problem),
		formulas: make(map[string]smt.Formula),
	}
}

func (run *schedulingRun) addAssert(formula smt.Formula) {
	if !run.labeled {
		run.problem.Assert(formula)
		return
	}
	label := fmt.Sprintf("a%d", run.assertions)
	run.assertions++
	run.formulas[label] = formula
	run.problem.AssertLabeled(label, formula)
}

func (scheduler *smtGateScheduler) Build(ctx context.Context, input Input) (*Output, error) {
	cycle := lo.Ternary(scheduler.config.GateCycleDuration > 0, scheduler.config.GateCycleDuration, input.GateCycleDuration)
	if cycle <= 0 {
		return nil, errors.New("the gate cycle duration must be positive")
	}
	if err := input.Validate(cycle); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	//** Initialize dependencies
	run := newSchedulingRun(scheduler.config.LabelAssertions)
	state := constraintState{
		input: input,
		cycle: cycle,
		space: run.space,
	}

	//** Build SMT problem
	// Constraints functions, applied in order
	constraints := []func(state constraintState) []smt.Formula{
		gateCycleConstraints,
		applicationTimingConstraints,
		linkTimingConstraints,
		chainingConstraints,
		jitterConstraints,
		portExclusivityConstraints,
		noReorderConstraints,
		priorityConstraints,
	}
	buildProblem(run, constraints, state)

	if scheduler.config.Optimize {
		// TODO: weigh the end-to-end delay and jitter of individual flows
		run.problem.Minimize(smt.V(run.space.variableFor(globalKey(totalEndToEndDelay))))
	}
	if glog.V(1) {
		glog.Infof("Goal:\n%v", run.problem)
	}

	//** Solve SMT problem
	result, err := scheduler.solver.Solve(ctx, run.problem)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case smt.Satisfiable:
		if glog.V(1) {
			glog.Infof("Solution:\n%v", formatModel(run.problem, result.Model))
		}
		return extract(result.Model, state)
	case smt.Unsatisfiable:
		core := lo.Map(result.Core, func(label string, _ int) string {
			if formula, ok := run.formulas[label]; ok {
				return fmt.Sprintf("%v: %v", label, formula)
			}
			return label
		})
		glog.Warningf("No solution found, unsatisfiable core:\n%v", core)
		return nil, &InfeasibleError{Core: core}
	default:
		return nil, fmt.Errorf("the solver could not decide the problem: %v", result.Status)
	}
}

func (scheduler *smtGateScheduler) Verify(output *Output, input Input) bool {
	return verify(output, input)
}
