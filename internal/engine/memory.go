package engine

import "fmt"

// MemoryOperation is one of the memory keys.
type MemoryOperation string

const (
	MemoryAdd      MemoryOperation = "M+"
	MemorySubtract MemoryOperation = "M-"
	MemoryRecall   MemoryOperation = "MR"
	MemoryClear    MemoryOperation = "MC"
)

// IsMemoryOperation reports whether token is a memory key.
func IsMemoryOperation(token string) bool {
	switch MemoryOperation(token) {
	case MemoryAdd, MemorySubtract, MemoryRecall, MemoryClear:
		return true
	}
	return false
}

// ApplyMemory runs a memory key against s. Memory lives outside the
// calculation, so C does not touch it.
func (m *Machine) ApplyMemory(s State, op MemoryOperation) (State, error) {
	next := s.Clone()

	switch op {
	case MemoryAdd, MemorySubtract:
		arith := OpAdd
		if op == MemorySubtract {
			arith = OpSubtract
		}
		res := PerformOperation(next.Memory, ParseDisplayValue(next.Display), arith)
		if res.Failed() {
			next.Display = ErrorDisplay
			return next, nil
		}
		next.Memory = res.Result
		next.MemoryActive = true
	case MemoryRecall:
		next.Display = FormatDisplayValue(next.Memory)
		next.WaitingForOperand = true
	case MemoryClear:
		next.Memory = 0
		next.MemoryActive = false
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownMemOp, op)
	}

	return next, nil
}
