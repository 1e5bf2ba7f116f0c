// Package sweep evaluates a perceptron over a grid of one parameter to map
// its dose-response curve: how the final Z1 level and the binary decision
// change as a rate constant or the initial Z1 concentration varies.
package sweep

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvandessel/dbnn/internal/constants"
	"github.com/nvandessel/dbnn/internal/ode"
	"github.com/nvandessel/dbnn/internal/perceptron"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Param names the swept quantity.
type Param string

const (
	ParamU     Param = "u"
	ParamV     Param = "v"
	ParamGamma Param = "gamma"
	ParamPhi   Param = "phi"
	ParamZ1    Param = "z1" // initial Z1 concentration
)

// Params lists every sweepable quantity.
var Params = []Param{ParamU, ParamV, ParamGamma, ParamPhi, ParamZ1}

// ParseParam maps a name to a Param (case-insensitive).
func ParseParam(s string) (Param, error) {
	p := Param(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Params {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown sweep parameter %q (valid: u, v, gamma, phi, z1)", s)
}

// Options configures a sweep.
type Options struct {
	// Z10 and Z20 are the initial concentrations. Z10 is ignored when
	// sweeping ParamZ1.
	Z10, Z20 float64

	Span    perceptron.TimeSpan
	Solver  ode.Options
	Workers int
}

// DefaultOptions starts from zero concentrations over the default span.
func DefaultOptions() Options {
	return Options{
		Span:    perceptron.DefaultTimeSpan,
		Solver:  ode.DefaultOptions(),
		Workers: constants.DefaultWorkers,
	}
}

// Point is the outcome at one grid value.
type Point struct {
	Value   float64 `json:"value"`
	FinalZ1 float64 `json:"final_z1"`
	FinalZ2 float64 `json:"final_z2"`
	Output  int     `json:"output"`
}

// Result is a completed sweep, one point per grid value in grid order.
type Result struct {
	Param  Param   `json:"param"`
	Points []Point `json:"points"`
}

// Values returns steps evenly spaced values from from to to inclusive.
func Values(from, to float64, steps int) ([]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}
	if steps == 1 {
		return []float64{from}, nil
	}
	return floats.Span(make([]float64, steps), from, to), nil
}

// Run evaluates base with param set to every entry of values. Evaluations
// run on up to opts.Workers goroutines; the result keeps grid order.
func Run(ctx context.Context, base perceptron.Params, param Param, values []float64, opts Options) (*Result, error) {
	if _, err := ParseParam(string(param)); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("sweep over %s: no grid values", param)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	points := make([]Point, len(values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, value := range values {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pt, err := evaluate(base, param, value, opts)
			if err != nil {
				return fmt.Errorf("sweep %s=%g: %w", param, value, err)
			}
			points[i] = pt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Result{Param: param, Points: points}, nil
}

func evaluate(base perceptron.Params, param Param, value float64, opts Options) (Point, error) {
	p := base
	z10 := opts.Z10
	switch param {
	case ParamU:
		p.U = value
	case ParamV:
		p.V = value
	case ParamGamma:
		p.Gamma = value
	case ParamPhi:
		p.Phi = value
	case ParamZ1:
		z10 = value
	}

	unit, err := perceptron.New(p)
	if err != nil {
		return Point{}, err
	}
	d, err := unit.WithSolverOptions(opts.Solver).Decide(z10, opts.Z20, opts.Span)
	if err != nil {
		return Point{}, err
	}
	return Point{Value: value, FinalZ1: d.FinalZ1, FinalZ2: d.FinalZ2, Output: d.Output}, nil
}

// FinalZ1 returns the final Z1 level of every point.
func (r *Result) FinalZ1() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.FinalZ1
	}
	return out
}

// Outputs returns the decision of every point.
func (r *Result) Outputs() []int {
	out := make([]int, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Output
	}
	return out
}

// Monotone reports whether the decisions switch at most once along the grid.
func (r *Result) Monotone() bool {
	flips := 0
	for i := 1; i < len(r.Points); i++ {
		if r.Points[i].Output != r.Points[i-1].Output {
			flips++
		}
	}
	return flips <= 1
}

// Transition returns the first grid value whose decision differs from the
// first point's. ok is false when the decision never changes.
func (r *Result) Transition() (value float64, ok bool) {
	if len(r.Points) == 0 {
		return 0, false
	}
	first := r.Points[0].Output
	for _, p := range r.Points[1:] {
		if p.Output != first {
			return p.Value, true
		}
	}
	return 0, false
}
