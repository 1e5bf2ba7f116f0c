package ode

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func decay(rate float64) System {
	return func(_ float64, y, dydt []float64) {
		for i := range y {
			dydt[i] = -rate * y[i]
		}
	}
}

func oscillator(_ float64, y, dydt []float64) {
	dydt[0] = y[1]
	dydt[1] = -y[0]
}

func TestSolve_ExponentialDecay(t *testing.T) {
	span := Span{Start: 0, End: 5}
	tEval := span.Grid(51)

	sol, err := Solve(decay(1), span, []float64{2}, tEval, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, sol.T, 51)

	r, c := sol.Y.Dims()
	require.Equal(t, 1, r)
	require.Equal(t, 51, c)

	for j, tj := range sol.T {
		want := 2 * math.Exp(-tj)
		require.InDelta(t, want, sol.Y.At(0, j), 1e-3, "t=%g", tj)
	}
}

func TestSolve_TightTolerances(t *testing.T) {
	opts := DefaultOptions()
	opts.RelTol = 1e-9
	opts.AbsTol = 1e-12

	span := Span{Start: 0, End: 2 * math.Pi}
	sol, err := Solve(oscillator, span, []float64{1, 0}, []float64{0, math.Pi, 2 * math.Pi}, opts)
	require.NoError(t, err)

	require.InDelta(t, -1, sol.Y.At(0, 1), 1e-6)
	require.InDelta(t, 1, sol.Y.At(0, 2), 1e-6)
	require.InDelta(t, 0, sol.Y.At(1, 2), 1e-6)
}

func TestSolve_FirstColumnIsInitialState(t *testing.T) {
	y0 := []float64{0.25, 3.5}
	sol, err := Solve(oscillator, Span{Start: 1, End: 4}, y0, Linspace(1, 4, 10), DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, y0[0], sol.Y.At(0, 0))
	require.Equal(t, y0[1], sol.Y.At(1, 0))
}

func TestSolve_OutputAtExactEvalTimes(t *testing.T) {
	tEval := []float64{0, 0.013, 0.5, 0.5001, 2.7, 3}
	sol, err := Solve(decay(0.3), Span{Start: 0, End: 3}, []float64{1}, tEval, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, tEval, sol.T)

	for j, tj := range tEval {
		require.InDelta(t, math.Exp(-0.3*tj), sol.Y.At(0, j), 1e-3)
	}
}

func TestSolve_EvalSubsetOfSpan(t *testing.T) {
	// Output need not start at the span start.
	sol, err := Solve(decay(1), Span{Start: 0, End: 10}, []float64{1}, []float64{1, 2}, DefaultOptions())
	require.NoError(t, err)
	require.InDelta(t, math.Exp(-1), sol.Y.At(0, 0), 1e-3)
	require.InDelta(t, math.Exp(-2), sol.Y.At(0, 1), 1e-3)
}

func TestSolve_Deterministic(t *testing.T) {
	span := Span{Start: 0, End: 10}
	tEval := span.Grid(100)

	a, err := Solve(oscillator, span, []float64{1, 0}, tEval, DefaultOptions())
	require.NoError(t, err)
	b, err := Solve(oscillator, span, []float64{1, 0}, tEval, DefaultOptions())
	require.NoError(t, err)

	require.True(t, mat.Equal(a.Y, b.Y), "repeated integrations differ")
	require.Equal(t, a.Stats, b.Stats)
}

func TestSolve_ZeroDerivative(t *testing.T) {
	still := func(_ float64, _ []float64, dydt []float64) {
		for i := range dydt {
			dydt[i] = 0
		}
	}
	sol, err := Solve(still, Span{Start: 0, End: 10}, []float64{0, 0}, Linspace(0, 10, 100), DefaultOptions())
	require.NoError(t, err)

	for j := 0; j < 100; j++ {
		require.Equal(t, 0.0, sol.Y.At(0, j))
		require.Equal(t, 0.0, sol.Y.At(1, j))
	}
}

func TestSolve_InvalidTimeSpan(t *testing.T) {
	tests := []struct {
		name  string
		span  Span
		tEval []float64
	}{
		{"reversed", Span{Start: 1, End: 0}, []float64{0.5}},
		{"empty", Span{Start: 2, End: 2}, []float64{2}},
		{"nan start", Span{Start: math.NaN(), End: 1}, []float64{0.5}},
		{"infinite end", Span{Start: 0, End: math.Inf(1)}, []float64{0.5}},
		{"no eval times", Span{Start: 0, End: 1}, nil},
		{"not increasing", Span{Start: 0, End: 1}, []float64{0, 0.5, 0.5}},
		{"decreasing", Span{Start: 0, End: 1}, []float64{0.6, 0.2}},
		{"before start", Span{Start: 0, End: 1}, []float64{-0.1, 0.5}},
		{"after end", Span{Start: 0, End: 1}, []float64{0.5, 1.1}},
		{"nan eval", Span{Start: 0, End: 1}, []float64{math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(decay(1), tt.span, []float64{1}, tt.tEval, DefaultOptions())
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidTimeSpan), "got %v", err)
		})
	}
}

func TestSolve_NonFiniteDerivative(t *testing.T) {
	blowup := func(_ float64, y, dydt []float64) {
		dydt[0] = math.Inf(1)
	}
	_, err := Solve(blowup, Span{Start: 0, End: 1}, []float64{1}, []float64{0, 1}, DefaultOptions())
	require.ErrorIs(t, err, ErrIntegrationFailure)
}

func TestSolve_FiniteTimeBlowup(t *testing.T) {
	// y' = y^2 from y(0)=1 diverges at t=1.
	square := func(_ float64, y, dydt []float64) {
		dydt[0] = y[0] * y[0]
	}
	_, err := Solve(square, Span{Start: 0, End: 2}, []float64{1}, []float64{0, 2}, DefaultOptions())
	require.ErrorIs(t, err, ErrIntegrationFailure)
}

func TestSolve_StepBudgetExhausted(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSteps = 3
	opts.MaxStep = 0.01

	_, err := Solve(decay(1), Span{Start: 0, End: 10}, []float64{1}, []float64{0, 10}, opts)
	require.ErrorIs(t, err, ErrIntegrationFailure)
}

func TestSolve_NonFiniteInitialState(t *testing.T) {
	_, err := Solve(decay(1), Span{Start: 0, End: 1}, []float64{math.NaN()}, []float64{0, 1}, DefaultOptions())
	require.ErrorIs(t, err, ErrIntegrationFailure)
}

func TestSolve_MaxStepRespected(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxStep = 0.05

	sol, err := Solve(decay(0.1), Span{Start: 0, End: 1}, []float64{1}, []float64{0, 1}, opts)
	require.NoError(t, err)
	require.GreaterOrEqual(t, sol.Stats.Accepted, 20)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"zero rel_tol", func(o *Options) { o.RelTol = 0 }, true},
		{"nan abs_tol", func(o *Options) { o.AbsTol = math.NaN() }, true},
		{"negative first_step", func(o *Options) { o.FirstStep = -1 }, true},
		{"negative max_step", func(o *Options) { o.MaxStep = -1 }, true},
		{"zero max_steps", func(o *Options) { o.MaxSteps = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinspace(t *testing.T) {
	require.Nil(t, Linspace(0, 1, 0))
	require.Equal(t, []float64{3}, Linspace(3, 5, 1))

	got := Linspace(0, 10, 100)
	require.Len(t, got, 100)
	require.Equal(t, 0.0, got[0])
	require.Equal(t, 10.0, got[99])
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i], got[i-1])
	}
}
