package network

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/dbnn/internal/logging"
	"github.com/nvandessel/dbnn/internal/memo"
	"github.com/nvandessel/dbnn/internal/ode"
	"github.com/nvandessel/dbnn/internal/perceptron"
	"github.com/nvandessel/dbnn/internal/reaction"
	"github.com/stretchr/testify/require"
)

func unit(t *testing.T, u, v, gamma, phi, threshold float64) perceptron.Perceptron {
	t.Helper()
	p, err := perceptron.New(perceptron.Params{
		Params:    reaction.Params{U: u, V: v, Gamma: gamma, Phi: phi},
		Threshold: threshold,
	})
	if err != nil {
		t.Fatalf("perceptron.New: %v", err)
	}
	return p
}

// The units below have no production and no titration, so Z1 decays as
// z1(t) = z1(0)*exp(-phi*t) and their decisions can be computed by hand.

// detector fires when z1(0) >= e over the default span.
func detector(t *testing.T) perceptron.Perceptron {
	return unit(t, 0, 0, 0, 0.1, 1.0)
}

// relay fires for z1(0) = 1 (0.368 at t=10) and stays silent for 0.
func relay(t *testing.T) perceptron.Perceptron {
	return unit(t, 0, 0, 0, 0.1, 0.3)
}

// silent never fires for z1(0) <= 1.
func silent(t *testing.T) perceptron.Perceptron {
	return unit(t, 0, 0, 0, 1, 1)
}

// biosensor is a three-marker sensor network: any detector past e flags
// the sample, and the classifier layer ORs over a relay and a silent unit.
func biosensor(t *testing.T, opts ...Option) *Network {
	t.Helper()
	n, err := New([]Layer{
		{detector(t), silent(t), silent(t)},
		{relay(t), silent(t)},
	}, opts...)
	require.NoError(t, err)
	return n
}

func layerOf(t *testing.T, size int) Layer {
	t.Helper()
	l := make(Layer, size)
	for i := range l {
		l[i] = unit(t, 5+float64(i), 3, 2, 0.5, 0.5+0.5*float64(i))
	}
	return l
}

func failing(t *testing.T) perceptron.Perceptron {
	// Negative titration makes z1*z2 grow without bound.
	return unit(t, 0, 0, -1, 0, 0).WithSolverOptions(ode.Options{
		RelTol:   1e-3,
		AbsTol:   1e-6,
		MaxSteps: 1000,
	})
}

func TestNew_EmptyLayer(t *testing.T) {
	tests := []struct {
		name   string
		layers []Layer
	}{
		{"no layers", nil},
		{"empty first layer", []Layer{{}}},
		{"empty later layer", []Layer{layerOf(t, 2), {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.layers)
			if !errors.Is(err, ErrEmptyLayer) {
				t.Errorf("New() error = %v, want ErrEmptyLayer", err)
			}
		})
	}
}

func TestNew_InvalidTimeSpan(t *testing.T) {
	_, err := New([]Layer{layerOf(t, 1)}, WithTimeSpan(perceptron.TimeSpan{Start: 5, End: 5}))
	require.ErrorIs(t, err, ode.ErrInvalidTimeSpan)
}

func TestNew_CopiesLayers(t *testing.T) {
	layers := []Layer{{detector(t)}, {relay(t)}}
	n, err := New(layers)
	require.NoError(t, err)

	layers[0][0] = silent(t)
	layers[1] = append(layers[1], silent(t))

	require.Equal(t, []int{1, 1}, n.Shape())
	require.Equal(t, detector(t), n.Layer(0)[0])
}

func TestNew_Defaults(t *testing.T) {
	n, err := New([]Layer{layerOf(t, 1)}, WithWorkers(0), WithLogger(nil))
	require.NoError(t, err)
	require.Equal(t, perceptron.DefaultTimeSpan, n.TimeSpan())
	require.Equal(t, 1, n.workers)
	require.NotNil(t, n.logger)
	require.Equal(t, 1, n.Layers())
}

func TestProjectCarrier(t *testing.T) {
	tests := []struct {
		name string
		out  []int
		want Carrier
	}{
		{"empty", nil, Carrier{0, 0}},
		{"single unit padded", []int{1}, Carrier{1, 0}},
		{"pair", []int{0, 1}, Carrier{0, 1}},
		{"wide layer truncated", []int{1, 1, 0, 1}, Carrier{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectCarrier(tt.out); got != tt.want {
				t.Errorf("ProjectCarrier(%v) = %v, want %v", tt.out, got, tt.want)
			}
		})
	}
}

func TestForward_OutputShape(t *testing.T) {
	shapes := [][]int{{1, 1}, {2, 1}, {3, 2, 1}, {4, 3, 2, 1}, {1, 3}}

	for _, shape := range shapes {
		layers := make([]Layer, len(shape))
		for i, size := range shape {
			layers[i] = layerOf(t, size)
		}
		n, err := New(layers)
		require.NoError(t, err)
		require.Equal(t, shape, n.Shape())

		out, err := n.Forward(context.Background(), []float64{1.0, 1.5})
		require.NoError(t, err, "shape %v", shape)
		require.Len(t, out, shape[len(shape)-1], "shape %v", shape)
		for _, o := range out {
			require.Contains(t, []int{0, 1}, o)
		}
	}
}

func TestForward_TwoLayerRepeatable(t *testing.T) {
	n, err := New([]Layer{
		{unit(t, 5, 3, 2, 0.5, 1.0), unit(t, 4, 4, 1, 0.3, 2.0)},
		{unit(t, 6, 2, 1.5, 0.4, 1.5)},
	})
	require.NoError(t, err)

	first, err := n.Forward(context.Background(), []float64{1.0, 1.5})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Contains(t, []int{0, 1}, first[0])

	for i := 0; i < 5; i++ {
		again, err := n.Forward(context.Background(), []float64{1.0, 1.5})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestForward_DimensionMismatch(t *testing.T) {
	n := biosensor(t)

	for _, in := range [][]float64{nil, {}, {1}, {1, 2, 3}} {
		out, err := n.Forward(context.Background(), in)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Forward(%v) error = %v, want ErrDimensionMismatch", in, err)
		}
		if out != nil {
			t.Errorf("Forward(%v) = %v, want nil output on error", in, out)
		}
	}
}

func TestForward_EdgeCaseInputs(t *testing.T) {
	n, err := New([]Layer{layerOf(t, 2), layerOf(t, 1)})
	require.NoError(t, err)

	for _, in := range [][]float64{{0, 0}, {1e6, 1e6}, {-1, -1}, {1e-6, 1e-6}} {
		out, err := n.Forward(context.Background(), in)
		require.NoError(t, err, "inputs %v", in)
		require.Len(t, out, 1)
		require.Contains(t, []int{0, 1}, out[0])
	}
}

func TestForward_Biosensor(t *testing.T) {
	n := biosensor(t)

	tests := []struct {
		name   string
		inputs []float64
		want   []int
	}{
		{"no marker", []float64{0, 0}, []int{0, 0}},
		{"below detection", []float64{2.0, 0}, []int{0, 0}},
		{"elevated marker", []float64{3.0, 0}, []int{1, 0}},
		{"strongly elevated", []float64{10, 0.5}, []int{1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := n.Forward(context.Background(), tt.inputs)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestClassifyBiosensor_AnyUnitFires(t *testing.T) {
	n := biosensor(t)

	got, err := n.ClassifyBiosensor(context.Background(), []float64{3.0, 0})
	require.NoError(t, err)
	require.Equal(t, 1, got)

	got, err = n.ClassifyBiosensor(context.Background(), []float64{1.0, 0})
	require.NoError(t, err)
	require.Equal(t, 0, got)
}

func TestClassifyBiosensor_TimeSeries(t *testing.T) {
	n := biosensor(t)

	var decisions []int
	for z := 0.0; z <= 5.0; z += 0.5 {
		d, err := n.ClassifyBiosensor(context.Background(), []float64{z, 0})
		require.NoError(t, err, "z=%g", z)
		decisions = append(decisions, d)
	}

	require.Equal(t, 0, decisions[0], "baseline should not flag")
	require.Equal(t, 1, decisions[len(decisions)-1], "elevated marker should flag")
	for i := 1; i < len(decisions); i++ {
		require.GreaterOrEqual(t, decisions[i], decisions[i-1], "decision flipped back at step %d", i)
	}
}

func TestClassifyBiosensor_RobustToNoise(t *testing.T) {
	n := biosensor(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		z := 4.0 + 0.1*rng.NormFloat64()
		d, err := n.ClassifyBiosensor(context.Background(), []float64{z, 0})
		require.NoError(t, err)
		require.Equal(t, 1, d, "noisy reading %g", z)
	}
}

func TestClassifyBiosensor_PropagatesErrors(t *testing.T) {
	n := biosensor(t)
	_, err := n.ClassifyBiosensor(context.Background(), []float64{1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestForward_CarrierOrderMatters(t *testing.T) {
	// The relay reads Z1, which is carried by the first unit's output.
	first, err := New([]Layer{{detector(t), silent(t)}, {relay(t)}})
	require.NoError(t, err)
	second, err := New([]Layer{{silent(t), detector(t)}, {relay(t)}})
	require.NoError(t, err)

	in := []float64{3.0, 0}
	out, err := first.Forward(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, []int{1}, out)

	out, err = second.Forward(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, []int{0}, out)
}

func TestForward_ParallelMatchesSequential(t *testing.T) {
	layers := []Layer{layerOf(t, 8), layerOf(t, 5), layerOf(t, 3)}
	seq, err := New(layers, WithWorkers(1))
	require.NoError(t, err)
	par, err := New(layers, WithWorkers(4))
	require.NoError(t, err)

	for _, in := range [][]float64{{0, 0}, {1, 1.5}, {3, 0.2}} {
		want, err := seq.Trace(context.Background(), in)
		require.NoError(t, err)
		got, err := par.Trace(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, want, got, "inputs %v", in)
	}
}

func TestForward_FailedUnitIsAnError(t *testing.T) {
	for _, workers := range []int{1, 4} {
		n, err := New([]Layer{{detector(t), failing(t), silent(t)}, {relay(t)}}, WithWorkers(workers))
		require.NoError(t, err)

		out, err := n.Forward(context.Background(), []float64{2, 2})
		require.ErrorIs(t, err, ode.ErrIntegrationFailure, "workers=%d", workers)
		require.Contains(t, err.Error(), "layer 0 unit 1")
		require.Nil(t, out)

		_, err = n.ClassifyBiosensor(context.Background(), []float64{2, 2})
		require.ErrorIs(t, err, ode.ErrIntegrationFailure)
	}
}

func TestForward_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := biosensor(t).Forward(ctx, []float64{3, 0})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrace_RecordsEveryLayer(t *testing.T) {
	n := biosensor(t)

	tr, err := n.Trace(context.Background(), []float64{3.0, 0.5})
	require.NoError(t, err)

	require.Equal(t, []Carrier{{3.0, 0.5}, {1, 0}}, tr.Carriers)
	require.Len(t, tr.Decisions, 2)
	require.Len(t, tr.Decisions[0], 3)
	require.Len(t, tr.Decisions[1], 2)
	require.Equal(t, []int{1, 0, 0}, tr.LayerOutput(0))
	require.Equal(t, []int{1, 0}, tr.Output())

	require.InDelta(t, 3.0*math.Exp(-1), tr.Decisions[0][0].FinalZ1, 1e-2)
	require.InDelta(t, math.Exp(-1), tr.Decisions[1][0].FinalZ1, 1e-2)
}

func TestWithTimeSpan_ChangesDecisions(t *testing.T) {
	// Over a shorter span the detector has less time to decay below
	// threshold: 2.0*exp(-0.1) = 1.81.
	short := biosensor(t, WithTimeSpan(perceptron.TimeSpan{Start: 0, End: 1}))

	out, err := short.Forward(context.Background(), []float64{2.0, 0})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, out)
}

func TestWithCache_SameResults(t *testing.T) {
	cache, err := memo.New(64)
	require.NoError(t, err)

	plain := biosensor(t)
	cached := biosensor(t, WithCache(cache), WithWorkers(3))

	for _, in := range [][]float64{{0, 0}, {3, 0}, {3, 0}, {2, 0}} {
		want, err := plain.Trace(context.Background(), in)
		require.NoError(t, err)
		got, err := cached.Trace(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.Positive(t, cache.Len())
}

func TestWithDecisionLogger_OneEventPerUnit(t *testing.T) {
	dir := t.TempDir()
	dl := logging.NewDecisionLogger(dir, "debug")
	require.NotNil(t, dl)

	n := biosensor(t, WithDecisionLogger(dl), WithWorkers(2))
	_, err := n.Forward(context.Background(), []float64{3.0, 0})
	require.NoError(t, err)
	dl.Close()

	data, err := os.ReadFile(filepath.Join(dir, logging.DecisionsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
}

func TestAnyFired(t *testing.T) {
	tests := []struct {
		out  []int
		want int
	}{
		{nil, 0},
		{[]int{0}, 0},
		{[]int{0, 0, 0}, 0},
		{[]int{1}, 1},
		{[]int{0, 0, 1}, 1},
	}
	for _, tt := range tests {
		if got := AnyFired(tt.out); got != tt.want {
			t.Errorf("AnyFired(%v) = %d, want %d", tt.out, got, tt.want)
		}
	}
}

func TestClassify_KeepsOutputs(t *testing.T) {
	n := biosensor(t)

	for _, in := range [][]float64{{3.0, 0}, {1.0, 0}, {0, 0}} {
		c, err := n.Classify(context.Background(), in)
		require.NoError(t, err)

		out, err := n.Forward(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, out, c.Outputs, "inputs %v", in)
		require.Equal(t, AnyFired(out), c.Decision, "inputs %v", in)

		d, err := n.ClassifyBiosensor(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, c.Decision, d, "inputs %v", in)
	}

	_, err := n.Classify(context.Background(), []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestWithLogger_TraceLogsSolverStats(t *testing.T) {
	run := func(level string) string {
		var buf bytes.Buffer
		n := biosensor(t, WithLogger(logging.NewLogger(level, &buf)))
		_, err := n.Forward(context.Background(), []float64{3.0, 0})
		require.NoError(t, err)
		return buf.String()
	}

	debug := run("debug")
	require.Equal(t, 2, strings.Count(debug, "layer evaluated"))
	require.NotContains(t, debug, "unit integrated")

	trace := run("trace")
	require.Equal(t, 2, strings.Count(trace, "layer evaluated"))
	require.Equal(t, 5, strings.Count(trace, "unit integrated"), "one record per unit")
	require.Contains(t, trace, "level=TRACE")
	require.Contains(t, trace, "accepted=")
	require.Contains(t, trace, "evaluations=")
	require.Greater(t, len(trace), len(debug))
}

func TestForward_ZeroValuePerceptron(t *testing.T) {
	// A zero unit has no dynamics and a zero threshold.
	n, err := New([]Layer{{perceptron.Perceptron{}}})
	require.NoError(t, err)

	out, err := n.Forward(context.Background(), []float64{1, 0})
	require.NoError(t, err)
	require.Equal(t, []int{1}, out)

	out, err = n.Forward(context.Background(), []float64{-1, 0})
	require.NoError(t, err)
	require.Equal(t, []int{0}, out)
}
