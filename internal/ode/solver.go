// Package ode integrates initial value problems with an adaptive explicit
// Runge-Kutta method. The integrator is the Dormand-Prince 5(4) pair with
// local extrapolation, the scheme behind the classic "RK45" solvers.
//
// The solver produces output at exactly the requested evaluation times by
// shortening the step that would cross the next one, so sample values carry
// only the integrator's local error and no interpolation error.
package ode

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/dbnn/internal/constants"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidTimeSpan is returned for an empty, reversed or non-finite
// interval, or for evaluation times that are not strictly increasing inside it.
var ErrInvalidTimeSpan = errors.New("invalid time span")

// ErrIntegrationFailure is returned when the integrator cannot meet its error
// tolerance above the step size floor, encounters a non-finite derivative, or
// exhausts its step budget. No partial solution accompanies it.
var ErrIntegrationFailure = errors.New("integration failure")

// System is the right-hand side of dy/dt = f(t, y). Implementations write
// the derivative into dydt and must not retain y or dydt.
type System func(t float64, y, dydt []float64)

// Options tunes the adaptive step controller.
type Options struct {
	// RelTol is the relative local error tolerance. Default: 1e-3.
	RelTol float64 `json:"rel_tol" yaml:"rel_tol"`

	// AbsTol is the absolute local error tolerance. Default: 1e-6.
	AbsTol float64 `json:"abs_tol" yaml:"abs_tol"`

	// FirstStep is the initial step size. Zero selects it automatically.
	FirstStep float64 `json:"first_step,omitempty" yaml:"first_step,omitempty"`

	// MaxStep bounds the step size. Zero means unbounded.
	MaxStep float64 `json:"max_step,omitempty" yaml:"max_step,omitempty"`

	// MaxSteps bounds the number of attempted steps. Default: 100000.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
}

// DefaultOptions returns the default integrator configuration.
func DefaultOptions() Options {
	return Options{
		RelTol:   constants.DefaultRelTol,
		AbsTol:   constants.DefaultAbsTol,
		MaxSteps: constants.DefaultMaxSteps,
	}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if !(o.RelTol > 0) || math.IsInf(o.RelTol, 0) {
		return fmt.Errorf("rel_tol must be positive and finite, got %g", o.RelTol)
	}
	if !(o.AbsTol > 0) || math.IsInf(o.AbsTol, 0) {
		return fmt.Errorf("abs_tol must be positive and finite, got %g", o.AbsTol)
	}
	if o.FirstStep < 0 || math.IsNaN(o.FirstStep) {
		return fmt.Errorf("first_step must be non-negative, got %g", o.FirstStep)
	}
	if o.MaxStep < 0 || math.IsNaN(o.MaxStep) {
		return fmt.Errorf("max_step must be non-negative, got %g", o.MaxStep)
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", o.MaxSteps)
	}
	return nil
}

// Stats counts the work performed by one integration.
type Stats struct {
	Accepted    int `json:"accepted"`
	Rejected    int `json:"rejected"`
	Evaluations int `json:"evaluations"`
}

// Solution is the integrated trajectory sampled at the evaluation times.
type Solution struct {
	// T holds the evaluation times.
	T []float64

	// Y holds one row per state component and one column per entry of T.
	Y *mat.Dense

	Stats Stats
}

// Solve integrates sys over span from y0 and returns the state at every time
// in tEval. A nil tEval is an error; callers choose their own default grid.
func Solve(sys System, span Span, y0 []float64, tEval []float64, opts Options) (*Solution, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	if err := checkEval(span, tEval); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("solver options: %w", err)
	}
	if len(y0) == 0 {
		return nil, fmt.Errorf("%w: empty initial state", ErrIntegrationFailure)
	}
	for i, v := range y0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: initial state component %d is not finite", ErrIntegrationFailure, i)
		}
	}

	in := newIntegrator(sys, span, y0, opts)
	sol := &Solution{
		T: append([]float64(nil), tEval...),
		Y: mat.NewDense(len(y0), len(tEval), nil),
	}

	for j, target := range tEval {
		if err := in.advanceTo(target); err != nil {
			return nil, err
		}
		for i, v := range in.y {
			sol.Y.Set(i, j, v)
		}
	}

	sol.Stats = in.stats
	return sol, nil
}

// integrator holds the mutable state of one integration. It is owned by a
// single Solve call.
type integrator struct {
	sys  System
	opts Options
	end  float64

	t float64
	y []float64
	f []float64 // derivative at (t, y), reused via FSAL
	h float64   // proposed next step

	k       [7][]float64
	yNew    []float64
	yTmp    []float64
	err     []float64
	stats   Stats
	started bool
}

func newIntegrator(sys System, span Span, y0 []float64, opts Options) *integrator {
	n := len(y0)
	in := &integrator{
		sys:  sys,
		opts: opts,
		end:  span.End,
		t:    span.Start,
		y:    append([]float64(nil), y0...),
		f:    make([]float64, n),
		yNew: make([]float64, n),
		yTmp: make([]float64, n),
		err:  make([]float64, n),
	}
	for i := range in.k {
		in.k[i] = make([]float64, n)
	}
	return in
}

// eval calls the system and counts the evaluation.
func (in *integrator) eval(t float64, y, dydt []float64) {
	in.stats.Evaluations++
	in.sys(t, y, dydt)
}

// start evaluates the derivative at the initial point and selects h.
func (in *integrator) start() error {
	in.eval(in.t, in.y, in.f)
	if !allFinite(in.f) {
		return fmt.Errorf("%w: non-finite derivative at t=%g", ErrIntegrationFailure, in.t)
	}
	if in.opts.FirstStep > 0 {
		in.h = in.opts.FirstStep
	} else {
		in.h = in.initialStep()
	}
	if in.opts.MaxStep > 0 && in.h > in.opts.MaxStep {
		in.h = in.opts.MaxStep
	}
	return nil
}

// advanceTo integrates until t == target exactly.
func (in *integrator) advanceTo(target float64) error {
	if !in.started {
		if err := in.start(); err != nil {
			return err
		}
		in.started = true
	}

	rejected := false
	for in.t < target {
		if in.stats.Accepted+in.stats.Rejected >= in.opts.MaxSteps {
			return fmt.Errorf("%w: exceeded %d steps at t=%g", ErrIntegrationFailure, in.opts.MaxSteps, in.t)
		}

		minStep := 10 * math.Abs(math.Nextafter(in.t, math.Inf(1))-in.t)
		h := in.h
		if in.opts.MaxStep > 0 && h > in.opts.MaxStep {
			h = in.opts.MaxStep
		}
		if h < minStep {
			return fmt.Errorf("%w: step size %g below floor %g at t=%g", ErrIntegrationFailure, h, minStep, in.t)
		}

		landing := false
		if in.t+h >= target {
			h = target - in.t
			landing = true
		}

		errNorm := in.step(h)

		if errNorm <= 1 {
			factor := constants.MaxStepFactor
			if errNorm > 0 {
				factor = math.Min(constants.MaxStepFactor, constants.StepSafety*math.Pow(errNorm, errorExponent))
			}
			if rejected {
				factor = math.Min(1, factor)
			}

			if landing {
				in.t = target
			} else {
				in.t += h
			}
			in.y, in.yNew = in.yNew, in.y
			in.f, in.k[6] = in.k[6], in.f
			in.stats.Accepted++
			rejected = false

			// A landing step may be much shorter than the controller wants;
			// do not let it drag the next proposal down.
			if !landing || h*factor > in.h {
				in.h = h * factor
			}
			continue
		}

		in.stats.Rejected++
		rejected = true
		factor := constants.MinStepFactor
		if !math.IsInf(errNorm, 0) && !math.IsNaN(errNorm) {
			factor = math.Max(constants.MinStepFactor, constants.StepSafety*math.Pow(errNorm, errorExponent))
		}
		in.h = h * factor
	}
	return nil
}

// initialStep estimates a first step size from the local scale of the
// solution and its first two derivatives (Hairer, Norsett & Wanner, II.4).
func (in *integrator) initialStep() float64 {
	n := len(in.y)
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = in.opts.AbsTol + math.Abs(in.y[i])*in.opts.RelTol
	}

	d0 := rmsScaled(in.y, scale)
	d1 := rmsScaled(in.f, scale)
	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, in.end-in.t)

	for i := range in.yTmp {
		in.yTmp[i] = in.y[i] + h0*in.f[i]
	}
	f1 := in.k[1]
	in.eval(in.t+h0, in.yTmp, f1)

	for i := range in.err {
		in.err[i] = f1[i] - in.f[i]
	}
	d2 := rmsScaled(in.err, scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/(errorOrder+1))
	}
	if math.IsNaN(h1) || math.IsInf(h1, 0) {
		h1 = h0
	}
	return math.Min(math.Min(100*h0, h1), in.end-in.t)
}

func rmsScaled(v, scale []float64) float64 {
	var sum float64
	for i := range v {
		r := v[i] / scale[i]
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(v)))
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
