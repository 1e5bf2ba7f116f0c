// Package network chains layers of biomolecular perceptrons.
//
// Every unit of a layer is evaluated from the same two initial
// concentrations, the layer's carrier. The binary outputs of a layer are
// projected onto the next layer's carrier by ProjectCarrier: the first two
// outputs become the initial Z1 and Z2 concentrations, padded with zeros when
// the layer has a single unit. The final layer's outputs are returned as is.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/dbnn/internal/constants"
	"github.com/nvandessel/dbnn/internal/logging"
	"github.com/nvandessel/dbnn/internal/memo"
	"github.com/nvandessel/dbnn/internal/perceptron"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDimensionMismatch is returned when the network input is not
	// exactly two concentrations.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyLayer is returned by New for a network without layers or with
	// a layer without units.
	ErrEmptyLayer = errors.New("empty layer")
)

// Layer is an ordered group of perceptrons sharing one carrier.
type Layer []perceptron.Perceptron

// Carrier is the pair of initial (Z1, Z2) concentrations fed to every unit
// of a layer.
type Carrier [constants.CarrierWidth]float64

// ProjectCarrier converts a layer output into the next layer's carrier.
// Entries beyond the first two are dropped; missing entries are zero.
func ProjectCarrier(out []int) Carrier {
	var c Carrier
	for i := 0; i < len(c) && i < len(out); i++ {
		c[i] = float64(out[i])
	}
	return c
}

// Network is an immutable sequence of layers. It is safe for concurrent use.
type Network struct {
	layers    []Layer
	span      perceptron.TimeSpan
	workers   int
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	cache     *memo.Cache
}

// Option configures a Network.
type Option func(*Network)

// WithTimeSpan sets the integration interval of every unit.
func WithTimeSpan(span perceptron.TimeSpan) Option {
	return func(n *Network) { n.span = span }
}

// WithWorkers sets how many units of one layer are evaluated concurrently.
// Values below 1 are treated as 1.
func WithWorkers(workers int) Option {
	return func(n *Network) {
		if workers < 1 {
			workers = 1
		}
		n.workers = workers
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Network) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithDecisionLogger traces every unit evaluation to dl.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(n *Network) { n.decisions = dl }
}

// WithCache memoizes unit decisions in c.
func WithCache(c *memo.Cache) Option {
	return func(n *Network) { n.cache = c }
}

// New builds a network from layers. At least one layer is required and
// every layer must hold at least one unit. The layers are copied.
func New(layers []Layer, opts ...Option) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: network has no layers", ErrEmptyLayer)
	}

	n := &Network{
		layers:  make([]Layer, len(layers)),
		span:    perceptron.DefaultTimeSpan,
		workers: constants.DefaultWorkers,
		logger:  logging.Discard(),
	}
	for i, l := range layers {
		if len(l) == 0 {
			return nil, fmt.Errorf("%w: layer %d has no units", ErrEmptyLayer, i)
		}
		n.layers[i] = append(Layer(nil), l...)
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.span.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Layers returns the number of layers.
func (n *Network) Layers() int {
	return len(n.layers)
}

// Shape returns the number of units of every layer.
func (n *Network) Shape() []int {
	shape := make([]int, len(n.layers))
	for i, l := range n.layers {
		shape[i] = len(l)
	}
	return shape
}

// Layer returns a copy of layer i.
func (n *Network) Layer(i int) Layer {
	return append(Layer(nil), n.layers[i]...)
}

// TimeSpan returns the integration interval of every unit.
func (n *Network) TimeSpan() perceptron.TimeSpan {
	return n.span
}

// Forward propagates the two input concentrations through every layer and
// returns the final layer's outputs, one per unit.
func (n *Network) Forward(ctx context.Context, inputs []float64) ([]int, error) {
	tr, err := n.Trace(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return tr.Output(), nil
}

// ClassifyBiosensor runs Forward and reports 1 when any unit of the final
// layer fires.
func (n *Network) ClassifyBiosensor(ctx context.Context, inputs []float64) (int, error) {
	c, err := n.Classify(ctx, inputs)
	if err != nil {
		return 0, err
	}
	return c.Decision, nil
}

// Classification is a biosensor decision with the final layer output it
// was reduced from.
type Classification struct {
	Decision int   `json:"decision"`
	Outputs  []int `json:"outputs"`
}

// Classify is ClassifyBiosensor keeping the final layer output.
func (n *Network) Classify(ctx context.Context, inputs []float64) (*Classification, error) {
	out, err := n.Forward(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return &Classification{Decision: AnyFired(out), Outputs: out}, nil
}

// AnyFired reduces a layer output to 1 when any unit fired, else 0.
func AnyFired(out []int) int {
	for _, o := range out {
		if o == 1 {
			return 1
		}
	}
	return 0
}

// Trace is the full record of one forward pass.
type Trace struct {
	// Carriers holds the carrier fed to each layer.
	Carriers []Carrier `json:"carriers"`

	// Decisions holds every unit's decision, indexed by layer then unit.
	Decisions [][]perceptron.Decision `json:"decisions"`
}

// Output returns the final layer's outputs.
func (tr *Trace) Output() []int {
	return tr.LayerOutput(len(tr.Decisions) - 1)
}

// LayerOutput returns the binary outputs of layer i.
func (tr *Trace) LayerOutput(i int) []int {
	out := make([]int, len(tr.Decisions[i]))
	for j, d := range tr.Decisions[i] {
		out[j] = d.Output
	}
	return out
}

// Trace is Forward keeping every layer's carrier and unit decisions.
func (n *Network) Trace(ctx context.Context, inputs []float64) (*Trace, error) {
	if len(inputs) != constants.CarrierWidth {
		return nil, fmt.Errorf("%w: network takes %d inputs, got %d",
			ErrDimensionMismatch, constants.CarrierWidth, len(inputs))
	}

	tr := &Trace{
		Carriers:  make([]Carrier, 0, len(n.layers)),
		Decisions: make([][]perceptron.Decision, 0, len(n.layers)),
	}
	carrier := Carrier{inputs[0], inputs[1]}
	for i, l := range n.layers {
		decisions, err := n.evalLayer(ctx, i, l, carrier)
		if err != nil {
			return nil, err
		}
		tr.Carriers = append(tr.Carriers, carrier)
		tr.Decisions = append(tr.Decisions, decisions)

		out := tr.LayerOutput(i)
		n.logger.Debug("layer evaluated", "layer", i, "carrier", carrier, "output", out)
		carrier = ProjectCarrier(out)
	}
	return tr, nil
}

// evalLayer evaluates every unit of layer l from carrier. Units run on at
// most n.workers goroutines; each writes only its own slot of the result.
func (n *Network) evalLayer(ctx context.Context, index int, l Layer, carrier Carrier) ([]perceptron.Decision, error) {
	decisions := make([]perceptron.Decision, len(l))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for j, unit := range l {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := n.cache.Decide(unit, carrier[0], carrier[1], n.span)
			if err != nil {
				return fmt.Errorf("layer %d unit %d: %w", index, j, err)
			}
			decisions[j] = d

			n.logger.Log(gctx, logging.LevelTrace, "unit integrated",
				"layer", index, "unit", j,
				"accepted", d.Stats.Accepted,
				"rejected", d.Stats.Rejected,
				"evaluations", d.Stats.Evaluations)

			n.decisions.LogUnit(logging.UnitDecision{
				Layer:     index,
				Unit:      j,
				Carrier:   carrier,
				FinalZ1:   d.FinalZ1,
				Threshold: unit.Threshold(),
				Output:    d.Output,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return decisions, nil
}
