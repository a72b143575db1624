package models

import (
	"fmt"
	"time"
)

// Default safety ceilings.
const (
	DefaultMaxDepth     = 50
	DefaultMaxNodes     = 10000
	DefaultMaxResults   = 1000
	DefaultQueryTimeout = 30 * time.Second
	DefaultMaxEdges     = 100000
	DefaultSampleDepth  = 3
	DefaultSafetyMargin = 0.25
)

// Limits is the immutable set of ceilings every engine call runs under.
// It is passed by value; overrides produce a new value.
type Limits struct {
	// MaxDepth is the depth ceiling. Traversal, aggregation and path
	// requests that leave max_depth unset run to this depth.
	MaxDepth     int           `json:"max_depth"`
	MaxNodes     int           `json:"max_nodes"`
	MaxResults   int           `json:"max_results"`
	Timeout      time.Duration `json:"timeout"`
	MaxEdges     int           `json:"max_edges"`
	SampleDepth  int           `json:"sample_depth"`
	SafetyMargin float64       `json:"safety_margin"`
}

// DefaultLimits returns the deployment defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:     DefaultMaxDepth,
		MaxNodes:     DefaultMaxNodes,
		MaxResults:   DefaultMaxResults,
		Timeout:      DefaultQueryTimeout,
		MaxEdges:     DefaultMaxEdges,
		SampleDepth:  DefaultSampleDepth,
		SafetyMargin: DefaultSafetyMargin,
	}
}

// Validate rejects non-positive ceilings.
func (l Limits) Validate() error {
	switch {
	case l.MaxDepth < 1:
		return fmt.Errorf("%w: max depth must be positive", ErrInvalidRequest)
	case l.MaxNodes < 1:
		return fmt.Errorf("%w: max nodes must be positive", ErrInvalidRequest)
	case l.MaxResults < 1:
		return fmt.Errorf("%w: max results must be positive", ErrInvalidRequest)
	case l.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidRequest)
	case l.MaxEdges < 1:
		return fmt.Errorf("%w: max edges must be positive", ErrInvalidRequest)
	case l.SampleDepth < 1:
		return fmt.Errorf("%w: sample depth must be positive", ErrInvalidRequest)
	case l.SafetyMargin < 0:
		return fmt.Errorf("%w: safety margin must not be negative", ErrInvalidRequest)
	}

	return nil
}

// LimitOverrides lets a single call raise or lower individual ceilings.
// Nil fields keep the deployment value.
type LimitOverrides struct {
	MaxDepth   *int   `json:"max_depth,omitempty"`
	MaxNodes   *int   `json:"max_nodes,omitempty"`
	MaxResults *int   `json:"max_results,omitempty"`
	TimeoutMS  *int64 `json:"timeout_ms,omitempty"`
	MaxEdges   *int   `json:"max_edges,omitempty"`
}

// With returns a copy of l with the non-nil overrides applied.
func (l Limits) With(o *LimitOverrides) (Limits, error) {
	if o == nil {
		return l, nil
	}

	out := l
	if o.MaxDepth != nil {
		out.MaxDepth = *o.MaxDepth
	}

	if o.MaxNodes != nil {
		out.MaxNodes = *o.MaxNodes
	}

	if o.MaxResults != nil {
		out.MaxResults = *o.MaxResults
	}

	if o.TimeoutMS != nil {
		out.Timeout = time.Duration(*o.TimeoutMS) * time.Millisecond
	}

	if o.MaxEdges != nil {
		out.MaxEdges = *o.MaxEdges
	}

	if err := out.Validate(); err != nil {
		return l, err
	}

	return out, nil
}
