// Package memo caches perceptron decisions. A perceptron is a pure function
// of its parameters, solver settings, initial state and time span, so a
// cached decision is indistinguishable from a fresh integration.
package memo

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nvandessel/dbnn/internal/ode"
	"github.com/nvandessel/dbnn/internal/perceptron"
)

// Key identifies one evaluation.
type Key struct {
	Params  perceptron.Params
	Solver  ode.Options
	Samples int
	Z10     float64
	Z20     float64
	Span    perceptron.TimeSpan
}

// KeyFor builds the cache key of evaluating p from (z10, z20) over span.
func KeyFor(p perceptron.Perceptron, z10, z20 float64, span perceptron.TimeSpan) Key {
	return Key{
		Params:  p.Params(),
		Solver:  p.SolverOptions(),
		Samples: p.Samples(),
		Z10:     z10,
		Z20:     z20,
		Span:    span,
	}
}

// Cache is a fixed-size LRU of decisions. It is safe for concurrent use.
// A nil *Cache is valid and never hits.
type Cache struct {
	lru *lru.Cache[Key, perceptron.Decision]
}

// New creates a cache holding up to size decisions.
func New(size int) (*Cache, error) {
	c, err := lru.New[Key, perceptron.Decision](size)
	if err != nil {
		return nil, fmt.Errorf("creating decision cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Decide returns the cached decision for the evaluation or computes and
// stores it. Failed evaluations are not cached.
func (c *Cache) Decide(p perceptron.Perceptron, z10, z20 float64, span perceptron.TimeSpan) (perceptron.Decision, error) {
	if c == nil {
		return p.Decide(z10, z20, span)
	}

	key := KeyFor(p, z10, z20, span)
	if d, ok := c.lru.Get(key); ok {
		return d, nil
	}

	d, err := p.Decide(z10, z20, span)
	if err != nil {
		return perceptron.Decision{}, err
	}
	c.lru.Add(key, d)
	return d, nil
}

// Len returns the number of cached decisions. Safe on nil receiver.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every cached decision. Safe on nil receiver.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
