package ml

import (
	"github.com/cockroachdb/apd/v3"
)

// Trace records the objective values of every iteration.
type Trace struct {
	Iterations   []int
	Objectives   []*apd.Decimal
	Improvements []*apd.Decimal
}

// NewTrace creates a new empty trace.
func NewTrace() *Trace {
	return &Trace{
		Iterations:   make([]int, 0),
		Objectives:   make([]*apd.Decimal, 0),
		Improvements: make([]*apd.Decimal, 0),
	}
}

// Observe is an Observer appending the iteration to the trace.
func (t *Trace) Observe(iteration int, objective, improvement *apd.Decimal) {
	t.Iterations = append(t.Iterations, iteration)
	t.Objectives = append(t.Objectives, new(apd.Decimal).Set(objective))
	t.Improvements = append(t.Improvements, new(apd.Decimal).Set(improvement))
}

// Size returns the number of recorded iterations.
func (t *Trace) Size() int {
	return len(t.Iterations)
}
