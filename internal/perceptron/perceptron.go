// Package perceptron implements the biomolecular perceptron: a reaction
// network integrated from given initial concentrations whose final level of
// the active species is compared against a threshold.
//
// A Perceptron is an immutable value. It carries no state between
// evaluations and every Evaluate re-integrates from scratch, so values can be
// shared freely between goroutines.
package perceptron

import (
	"fmt"
	"math"

	"github.com/nvandessel/dbnn/internal/constants"
	"github.com/nvandessel/dbnn/internal/ode"
	"github.com/nvandessel/dbnn/internal/reaction"
)

// ErrInvalidParameter is returned by New for a non-finite rate or threshold.
var ErrInvalidParameter = reaction.ErrInvalidParameter

// TimeSpan is the integration interval of an evaluation.
type TimeSpan = ode.Span

// DefaultTimeSpan is the interval used when callers have no preference.
var DefaultTimeSpan = TimeSpan{Start: constants.DefaultTStart, End: constants.DefaultTEnd}

// Params fully describes a perceptron.
type Params struct {
	reaction.Params `yaml:",inline"`

	// Threshold is the decision boundary on the final Z1 concentration.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Perceptron is one biochemical decision element. The zero value is a unit
// with all rates and the threshold at zero, integrated with the default
// solver options on the default sample grid.
type Perceptron struct {
	params    reaction.Params
	threshold float64
	solver    ode.Options
	samples   int
}

// New validates p and returns a perceptron using the default solver options.
func New(p Params) (Perceptron, error) {
	if err := p.Params.Validate(); err != nil {
		return Perceptron{}, err
	}
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) {
		return Perceptron{}, fmt.Errorf("%w: threshold = %g", ErrInvalidParameter, p.Threshold)
	}
	return Perceptron{
		params:    p.Params,
		threshold: p.Threshold,
		solver:    ode.DefaultOptions(),
	}, nil
}

// Must is like New but panics on invalid parameters. It is intended for
// literal parameter sets known to be valid.
func Must(p Params) Perceptron {
	pc, err := New(p)
	if err != nil {
		panic(err)
	}
	return pc
}

// WithSolverOptions returns a copy of p integrated with opts. The zero
// Options selects ode.DefaultOptions.
func (p Perceptron) WithSolverOptions(opts ode.Options) Perceptron {
	p.solver = opts
	return p
}

// WithSamples returns a copy of p that integrates on n evenly spaced output
// times when no explicit times are given. Values below 2 select
// constants.DefaultSamples.
func (p Perceptron) WithSamples(n int) Perceptron {
	p.samples = n
	return p
}

// Params returns the parameters the perceptron was built from.
func (p Perceptron) Params() Params {
	return Params{Params: p.params, Threshold: p.threshold}
}

// Threshold returns the decision boundary.
func (p Perceptron) Threshold() float64 {
	return p.threshold
}

// SolverOptions returns the integrator configuration in effect.
func (p Perceptron) SolverOptions() ode.Options {
	if p.solver == (ode.Options{}) {
		return ode.DefaultOptions()
	}
	return p.solver
}

// Samples returns the size of the default output grid.
func (p Perceptron) Samples() int {
	if p.samples < 2 {
		return constants.DefaultSamples
	}
	return p.samples
}

// Solve integrates the reaction model from (z10, z20) over span. A nil tEval
// samples Samples() evenly spaced times across the span.
func (p Perceptron) Solve(z10, z20 float64, span TimeSpan, tEval []float64) (*Trajectory, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	if tEval == nil {
		tEval = span.Grid(p.Samples())
	}

	sol, err := ode.Solve(p.params.System(), span, []float64{z10, z20}, tEval, p.SolverOptions())
	if err != nil {
		return nil, fmt.Errorf("solve %s from (%g, %g): %w", p.params, z10, z20, err)
	}
	return &Trajectory{T: sol.T, Y: sol.Y, Stats: sol.Stats}, nil
}

// Activation maps a final Z1 concentration to a decision: 1 when z1 is at
// or above the threshold, else 0. +Inf activates; -Inf and NaN do not.
func (p Perceptron) Activation(z1 float64) int {
	if z1 >= p.threshold {
		return 1
	}
	return 0
}

// Evaluate integrates from (z10, z20) over span and applies Activation to
// the final Z1 concentration.
func (p Perceptron) Evaluate(z10, z20 float64, span TimeSpan) (int, error) {
	d, err := p.Decide(z10, z20, span)
	if err != nil {
		return 0, err
	}
	return d.Output, nil
}

// Decision records one evaluation.
type Decision struct {
	Output  int       `json:"output"`
	FinalZ1 float64   `json:"final_z1"`
	FinalZ2 float64   `json:"final_z2"`
	Stats   ode.Stats `json:"stats"`
}

// Decide is Evaluate returning the final concentrations and solver work
// alongside the decision. It integrates on the default sample grid so the
// decision always agrees with the last column of Solve(z10, z20, span, nil).
func (p Perceptron) Decide(z10, z20 float64, span TimeSpan) (Decision, error) {
	traj, err := p.Solve(z10, z20, span, nil)
	if err != nil {
		return Decision{}, err
	}
	z1, z2 := traj.Final()
	return Decision{Output: p.Activation(z1), FinalZ1: z1, FinalZ2: z2, Stats: traj.Stats}, nil
}

// String implements fmt.Stringer.
func (p Perceptron) String() string {
	return fmt.Sprintf("perceptron(%s threshold=%g)", p.params, p.threshold)
}
