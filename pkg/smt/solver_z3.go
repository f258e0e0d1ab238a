package smt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/golang/glog"
	"github.com/samber/lo"
)

const defaultZ3Path = "z3"

type z3Solver struct{}

// NewZ3Solver returns a solver that drives a z3 process through SMT-LIB 2 over its standard streams
func NewZ3Solver() Solver {
	return &z3Solver{}
}

func (solver *z3Solver) Solve(ctx context.Context, problem *Problem) (*Result, error) {
	z3Path := getExecutablePath("z3Path", defaultZ3Path)
	script := problem.ToSMTLIB() // Transform problem into SMT-LIB script

	cmd := exec.CommandContext(ctx, z3Path, "-in", "-smt2")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot open z3 standard input: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot open z3 standard output: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("an error occurred during z3 execution: %w", err)
	}
	session := &z3Session{stdin: stdin, reader: newSExprReader(stdout)}

	result, err := session.run(script, problem.Labeled())
	stdin.Close()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return &Result{Status: Unknown}, fmt.Errorf("z3 interrupted: %w", ctx.Err())
	} else if err != nil {
		return nil, fmt.Errorf("an error occurred during z3 execution: %w : %v", err, stderr.String())
	} else if waitErr != nil {
		glog.Warningf("z3 exited with %v: %v", waitErr, stderr.String())
	}
	return result, nil
}

type z3Session struct {
	stdin  io.Writer
	reader *sexprReader
}

func (session *z3Session) run(script string, labeled bool) (*Result, error) {
	if _, err := io.WriteString(session.stdin, script+"(check-sat)\n"); err != nil {
		return nil, err
	}

	status, err := session.response()
	if err != nil {
		return nil, err
	}

	switch status.atom {
	case "sat":
		if _, err := io.WriteString(session.stdin, "(get-model)\n(exit)\n"); err != nil {
			return nil, err
		}
		model, err := session.response()
		if err != nil {
			return nil, err
		}
		return &Result{Status: Satisfiable, Model: parseModel(model)}, nil
	case "unsat":
		result := &Result{Status: Unsatisfiable}
		if !labeled {
			_, err := io.WriteString(session.stdin, "(exit)\n")
			return result, err
		}
		if _, err := io.WriteString(session.stdin, "(get-unsat-core)\n(exit)\n"); err != nil {
			return nil, err
		}
		core, err := session.response()
		if err != nil {
			glog.Warningf("unsatisfiable core is not available: %v", err)
			return result, nil
		}
		result.Core = lo.Map(core.list, func(label sexpr, _ int) string { return label.atom })
		return result, nil
	default:
		_, err := io.WriteString(session.stdin, "(exit)\n")
		return &Result{Status: Unknown}, err
	}
}

// response reads the next answer of z3, turning (error "...") answers into errors
func (session *z3Session) response() (sexpr, error) {
	answer, err := session.reader.Read()
	if err != nil {
		return sexpr{}, err
	}
	if answer.head() == "error" {
		return sexpr{}, fmt.Errorf("z3 reported %v", answer)
	}
	return answer, nil
}

// parseModel extracts the values of a (get-model) answer, with or without the legacy "model" header
func parseModel(answer sexpr) Model {
	model := make(Model)
	for _, definition := range answer.list {
		if definition.head() != "define-fun" || len(definition.list) != 5 {
			continue
		}
		model[definition.list[1].atom] = definition.list[4].String()
	}
	return model
}
