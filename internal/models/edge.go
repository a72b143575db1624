package models

import (
	"fmt"
	"sort"
	"strings"
)

// Direction selects how a relationship's stored from→to orientation is followed.
type Direction string

// Traversal directions.
const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
	Both     Direction = "both"
)

// ParseDirection parses s, defaulting empty input to Outbound.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case "", Outbound:
		return Outbound, nil
	case Inbound:
		return Inbound, nil
	case Both:
		return Both, nil
	}

	return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidRequest, s)
}

// Follows reports whether the direction walks edges from→to (out) and/or to→from (in).
func (d Direction) Follows() (out, in bool) {
	switch d {
	case Inbound:
		return false, true
	case Both:
		return true, true
	default:
		return true, false
	}
}

// Split returns the from-key and to-key sets of an edge query that expands
// frontier in direction d.
func (d Direction) Split(frontier []string) (from, to []string) {
	out, in := d.Follows()
	if out {
		from = frontier
	}

	if in {
		to = frontier
	}

	return from, to
}

// Step calls visit(parent, child) for every way e leaves a node accepted by
// inFrontier when walked in direction d.
func (d Direction) Step(e *Edge, inFrontier func(string) bool, visit func(parent, child string)) {
	out, in := d.Follows()

	if out && inFrontier(e.From) {
		visit(e.From, e.To)
	}

	if in && inFrontier(e.To) {
		visit(e.To, e.From)
	}
}

// Edge is one row of a relationship's edge table in its stored orientation.
type Edge struct {
	From         string             `json:"from"`
	To           string             `json:"to"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	Attributes   map[string]string  `json:"attributes,omitempty"`
	TargetEntity string             `json:"target_entity,omitempty"`
}

// Weight returns the named weight and whether it was present (non-NULL).
func (e *Edge) Weight(name string) (float64, bool) {
	if e.Weights == nil {
		return 0, false
	}

	w, ok := e.Weights[name]

	return w, ok
}

// Key identifies an edge row by its endpoints and payload, so the same row
// fetched at two different levels is recorded once.
func (e *Edge) Key() string {
	var b strings.Builder
	b.WriteString(e.From)
	b.WriteByte(0)
	b.WriteString(e.To)

	names := make([]string, 0, len(e.Weights))
	for n := range e.Weights {
		names = append(names, n)
	}

	sort.Strings(names)

	for _, n := range names {
		fmt.Fprintf(&b, "\x00%s=%g", n, e.Weights[n])
	}

	attrs := make([]string, 0, len(e.Attributes))
	for n := range e.Attributes {
		attrs = append(attrs, n)
	}

	sort.Strings(attrs)

	for _, n := range attrs {
		fmt.Fprintf(&b, "\x00%s=%s", n, e.Attributes[n])
	}

	return b.String()
}

// Other returns the endpoint opposite id.
func (e *Edge) Other(id string) string {
	if e.From == id {
		return e.To
	}

	return e.From
}
