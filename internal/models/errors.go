// Package models defines the request, result and error types shared by the
// graph engines and the HTTP layer.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for request validation.
var (
	ErrMissingStart        = errors.New("start node is required")
	ErrMissingEnd          = errors.New("end node is required")
	ErrMissingRelationship = errors.New("relationship is required")
	ErrInvalidRequest      = errors.New("invalid request")
)

// Sentinel errors for lookups. A missing node is exceptional; an empty
// traversal or a missing path is not and never surfaces as an error.
var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrUnknownWeight = errors.New("unknown weight column")
)

// ErrUnsupportedOperation is returned when a relationship does not declare the
// operation category an engine needs.
var ErrUnsupportedOperation = errors.New("operation not supported by relationship")

// ErrInvalidMapping marks configuration/mapping errors. These are never retried.
var ErrInvalidMapping = errors.New("invalid schema mapping")

// ErrSafetyLimit marks a pre-flight rejection or a mid-execution circuit breaker trip.
var ErrSafetyLimit = errors.New("safety limit exceeded")

// Timeout and cancellation. Partial results are discarded in both cases.
var (
	ErrTimeout  = errors.New("operation timed out")
	ErrCanceled = errors.New("operation canceled")
)

// ErrStore marks failures reported by the relational store.
var ErrStore = errors.New("store error")

// Names of the ceilings a SafetyLimitError can refer to.
const (
	LimitMaxDepth   = "max_depth"
	LimitMaxNodes   = "max_nodes"
	LimitMaxResults = "max_results"
	LimitMaxEdges   = "max_edges"
	LimitMaxPaths   = "max_paths"
)

// SafetyLimitError carries the size that tripped a ceiling so callers can tell
// "query too broad" apart from "nothing found".
type SafetyLimitError struct {
	Limit          string         `json:"limit"`
	Ceiling        int            `json:"ceiling"`
	Requested      int            `json:"requested,omitempty"`
	Estimated      int            `json:"estimated,omitempty"`
	Actual         int            `json:"actual,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	SuggestedDepth int            `json:"suggested_depth,omitempty"`
	Preflight      bool           `json:"preflight"`
}

// Error implements error.
func (e *SafetyLimitError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s ceiling %d", ErrSafetyLimit, e.Limit, e.Ceiling)

	switch {
	case e.Actual > 0:
		fmt.Fprintf(&b, " exceeded (actual %d)", e.Actual)
	case e.Estimated > 0:
		fmt.Fprintf(&b, " exceeded (estimated %d)", e.Estimated)
	case e.Requested > 0:
		fmt.Fprintf(&b, " exceeded (requested %d)", e.Requested)
	}

	if e.Recommendation != "" {
		fmt.Fprintf(&b, "; recommendation: %s", e.Recommendation)
	}

	if e.SuggestedDepth > 0 {
		fmt.Fprintf(&b, " (depth %d)", e.SuggestedDepth)
	}

	return b.String()
}

// Is reports whether target is ErrSafetyLimit.
func (e *SafetyLimitError) Is(target error) bool {
	return target == ErrSafetyLimit
}

// StoreError wraps a store failure with the table and columns involved, which
// is usually enough to tell a bad mapping from an infrastructure fault.
type StoreError struct {
	Op      string
	Table   string
	Columns []string
	Err     error
}

// Error implements error.
func (e *StoreError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Table, e.Err)
	}

	return fmt.Sprintf("%s on %s (%s): %v", e.Op, e.Table, strings.Join(e.Columns, ", "), e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StoreError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// NodeNotFoundError names the ids that could not be resolved.
func NodeNotFoundError(ids ...string) error {
	return fmt.Errorf("%w: %s", ErrNodeNotFound, strings.Join(ids, ", "))
}

// ContextError maps context expiry onto ErrTimeout and cancellation onto
// ErrCanceled, keeping the original error in the chain. Other errors are
// returned unchanged.
func ContextError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCanceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	return err
}
