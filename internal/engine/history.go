package engine

import (
	"time"

	"github.com/google/uuid"
)

// Entry records one completed binary calculation. Entries are never
// modified once created.
type Entry struct {
	ID         string    `json:"id"`
	Expression string    `json:"expression"`
	Result     float64   `json:"result"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEntry creates a history entry with a fresh ID.
func NewEntry(expression string, result float64, now time.Time) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Expression: expression,
		Result:     result,
		Timestamp:  now,
	}
}

// Expression renders "<left> <op> <right>" the way history shows it.
func Expression(left float64, op Operation, right float64) string {
	return FormatOperand(left) + " " + string(op) + " " + FormatOperand(right)
}

// appendCapped adds e to history and drops the oldest entries beyond limit.
func appendCapped(history []Entry, e Entry, limit int) []Entry {
	history = append(history, e)
	if over := len(history) - limit; over > 0 {
		history = history[over:]
	}
	return history
}

// FindEntry returns the entry with the given ID.
func FindEntry(history []Entry, id string) (Entry, bool) {
	for _, e := range history {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
