// Package engine holds the calculator core: arithmetic, display formatting
// and the keypad state machine. Nothing in here does I/O.
package engine

import (
	"errors"
	"math"
)

// Operation is a binary operator token as it appears on the keypad.
type Operation string

const (
	OpAdd      Operation = "+"
	OpSubtract Operation = "-"
	OpMultiply Operation = "×"
	OpDivide   Operation = "÷"
	OpPower    Operation = "^"
	OpPercent  Operation = "%"
	OpSqrt     Operation = "√"
)

// UnaryOperation is a single-operand function token.
type UnaryOperation string

const (
	UnarySqrt       UnaryOperation = "√"
	UnaryNegate     UnaryOperation = "±"
	UnaryReciprocal UnaryOperation = "1/x"
)

// Arithmetic errors. The messages are shown to users verbatim.
var (
	ErrDivideByZero          = errors.New("Cannot divide by zero")
	ErrNegativeSqrt          = errors.New("Cannot calculate square root of negative number")
	ErrOutOfRange            = errors.New("Result is too large or too small")
	ErrInvalidOperation      = errors.New("Invalid operation")
	ErrInvalidUnaryOperation = errors.New("Invalid unary operation")
)

// OperationResult is the outcome of one arithmetic call. Result is 0
// whenever Err is set.
type OperationResult struct {
	Result float64
	Err    error
}

// Failed reports whether the operation produced an error.
func (r OperationResult) Failed() bool {
	return r.Err != nil
}

func failed(err error) OperationResult {
	return OperationResult{Result: 0, Err: err}
}

// MaxMagnitude bounds every result; anything larger is reported as out of
// range rather than shown with lost precision. This trades away "+, - and ×
// never fail for finite operands": 1e21+1e21 fails so that 1e15×1e15 does.
const MaxMagnitude = 1e21

func finite(v float64) OperationResult {
	if !IsValidNumber(v) || math.Abs(v) > MaxMagnitude {
		return failed(ErrOutOfRange)
	}
	return OperationResult{Result: v}
}

// PerformOperation applies a binary operator to a and b.
// % computes b percent of a, not a modulo.
func PerformOperation(a, b float64, op Operation) OperationResult {
	var result float64

	switch op {
	case OpAdd:
		result = a + b
	case OpSubtract:
		result = a - b
	case OpMultiply:
		result = a * b
	case OpDivide:
		if b == 0 {
			return failed(ErrDivideByZero)
		}
		result = a / b
	case OpPower:
		result = math.Pow(a, b)
	case OpPercent:
		result = CalculatePercentage(a, b)
	default:
		return failed(ErrInvalidOperation)
	}

	return finite(result)
}

// PerformUnaryOperation applies a unary function to x.
func PerformUnaryOperation(x float64, op UnaryOperation) OperationResult {
	var result float64

	switch op {
	case UnarySqrt:
		if x < 0 {
			return failed(ErrNegativeSqrt)
		}
		result = math.Sqrt(x)
	case UnaryNegate:
		result = -x
	case UnaryReciprocal:
		if x == 0 {
			return failed(ErrDivideByZero)
		}
		result = 1 / x
	default:
		return failed(ErrInvalidUnaryOperation)
	}

	return finite(result)
}

// CalculatePercentage returns pct percent of value.
func CalculatePercentage(value, pct float64) float64 {
	return (value * pct) / 100
}

// IsValidNumber reports whether v is usable as an operand.
func IsValidNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DefaultPrecision is the number of decimal places RoundToPrecision keeps
// when callers have no better choice.
const DefaultPrecision = 10

// RoundToPrecision rounds v to the given number of decimal places, hiding
// binary noise such as 0.1+0.2.
func RoundToPrecision(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

var binaryOperations = map[Operation]struct{}{
	OpAdd:      {},
	OpSubtract: {},
	OpMultiply: {},
	OpDivide:   {},
	OpPower:    {},
	OpPercent:  {},
}

// IsBinaryOperation reports whether token is one of the chaining operators.
func IsBinaryOperation(token string) bool {
	_, ok := binaryOperations[Operation(token)]
	return ok
}

var operationSymbols = map[Operation]string{
	OpAdd:      "+",
	OpSubtract: "−",
	OpMultiply: "×",
	OpDivide:   "÷",
	OpSqrt:     "√",
	OpPower:    "^",
	OpPercent:  "%",
}

// Symbol returns the typographic form of op shown on the display.
func Symbol(op Operation) string {
	return operationSymbols[op]
}
