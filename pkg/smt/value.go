package smt

import (
	"fmt"
	"math/big"
	"strings"
)

// DecodeValue converts a solver value into a float64. It accepts plain rationals ("7/2"), integers ("5"),
// decimals ("3.5") and the SMT-LIB term forms printed by solvers ("(/ 7.0 2.0)", "(- 3.0)").
func DecodeValue(value string) (float64, error) {
	r, err := DecodeRational(value)
	if err != nil {
		return 0, err
	}
	f, _ := r.Float64()
	return f, nil
}

// DecodeRational is like DecodeValue but keeps the exact value
func DecodeRational(value string) (*big.Rat, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "(") {
		expr, err := parseSExpr(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", value, err)
		}
		return evalRational(expr)
	}
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		return nil, fmt.Errorf("invalid value %q", value)
	}
	return r, nil
}

func evalRational(expr sexpr) (*big.Rat, error) {
	if !expr.isList {
		r, ok := new(big.Rat).SetString(expr.atom)
		if !ok {
			return nil, fmt.Errorf("invalid numeral %q", expr.atom)
		}
		return r, nil
	}

	operands := make([]*big.Rat, 0, len(expr.list))
	for _, operand := range expr.list[min(1, len(expr.list)):] {
		r, err := evalRational(operand)
		if err != nil {
			return nil, err
		}
		operands = append(operands, r)
	}
	if len(operands) == 0 {
		return nil, fmt.Errorf("invalid term %v", expr)
	}

	result := new(big.Rat).Set(operands[0])
	switch expr.head() {
	case "-":
		if len(operands) == 1 {
			return result.Neg(result), nil
		}
		for _, operand := range operands[1:] {
			result.Sub(result, operand)
		}
	case "+":
		for _, operand := range operands[1:] {
			result.Add(result, operand)
		}
	case "*":
		for _, operand := range operands[1:] {
			result.Mul(result, operand)
		}
	case "/":
		for _, operand := range operands[1:] {
			if operand.Sign() == 0 {
				return nil, fmt.Errorf("division by zero in %v", expr)
			}
			result.Quo(result, operand)
		}
	default:
		return nil, fmt.Errorf("unsupported operator in %v", expr)
	}
	return result, nil
}
