package ode

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Span is a closed integration interval [Start, End]. Integration is forward
// only, so Start must be strictly less than End.
type Span struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Validate checks that the span is finite and strictly increasing.
func (s Span) Validate() error {
	if math.IsNaN(s.Start) || math.IsInf(s.Start, 0) || math.IsNaN(s.End) || math.IsInf(s.End, 0) {
		return fmt.Errorf("%w: span [%g, %g] is not finite", ErrInvalidTimeSpan, s.Start, s.End)
	}
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %g must be before end %g", ErrInvalidTimeSpan, s.Start, s.End)
	}
	return nil
}

// Length returns End - Start.
func (s Span) Length() float64 {
	return s.End - s.Start
}

// String implements fmt.Stringer.
func (s Span) String() string {
	return fmt.Sprintf("[%g, %g]", s.Start, s.End)
}

// Linspace returns n evenly spaced points from start to end inclusive.
// n < 1 yields nil and n == 1 yields {start}.
func Linspace(start, end float64, n int) []float64 {
	switch {
	case n < 1:
		return nil
	case n == 1:
		return []float64{start}
	}
	grid := floats.Span(make([]float64, n), start, end)
	// Pin the endpoint so rounding never pushes it outside the interval.
	grid[n-1] = end
	return grid
}

// Grid returns n evenly spaced points over the span.
func (s Span) Grid(n int) []float64 {
	return Linspace(s.Start, s.End, n)
}

// checkEval validates requested output times against the span.
func checkEval(span Span, tEval []float64) error {
	if len(tEval) == 0 {
		return fmt.Errorf("%w: at least one evaluation time is required", ErrInvalidTimeSpan)
	}
	for i, t := range tEval {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: evaluation time %d is not finite", ErrInvalidTimeSpan, i)
		}
		if t < span.Start || t > span.End {
			return fmt.Errorf("%w: evaluation time %g outside %s", ErrInvalidTimeSpan, t, span)
		}
		if i > 0 && t <= tEval[i-1] {
			return fmt.Errorf("%w: evaluation times must be strictly increasing (t[%d]=%g, t[%d]=%g)",
				ErrInvalidTimeSpan, i-1, tEval[i-1], i, t)
		}
	}
	return nil
}
