// Package store persists the history of network evaluations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run records one forward pass of a network.
type Run struct {
	ID uuid.UUID `json:"id"`

	// Network fingerprints the configuration that produced the run.
	Network string `json:"network"`

	Inputs  [2]float64 `json:"inputs"`
	Outputs []int      `json:"outputs"`

	// Decision is the biosensor classification, nil for plain forward passes.
	Decision *int `json:"decision,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRun creates a run with a fresh ID stamped with the current time.
func NewRun(network string, inputs [2]float64, outputs []int, decision *int) Run {
	return Run{
		ID:        uuid.New(),
		Network:   network,
		Inputs:    inputs,
		Outputs:   append([]int(nil), outputs...),
		Decision:  decision,
		CreatedAt: time.Now().UTC(),
	}
}

// RunStore defines the interface for recording and querying runs.
type RunStore interface {
	// Record stores run. A zero ID or CreatedAt is filled in first.
	Record(ctx context.Context, run *Run) error

	// Get returns the run with the given ID or ErrRunNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Run, error)

	// List returns up to limit runs, most recent first. A limit of zero or
	// less returns every run.
	List(ctx context.Context, limit int) ([]Run, error)

	Close() error
}

// prepare fills in a missing ID and timestamp.
func prepare(run *Run) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}
