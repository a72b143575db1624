// Package graphtest provides a canonical mapping and an in-memory store for
// engine tests.
package graphtest

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
	"github.com/persistorai/relgraph/internal/store/memstore"
)

// Relationship names declared by Mapping.
const (
	Links    = "links"    // node -> node, every category, weights distance/cost/quantity
	Contains = "contains" // part -> part bill of materials
	Refers   = "refers"   // node -> part, direct join only
)

// MappingYAML is the canonical test mapping.
const MappingYAML = `
version: "1"
name: graphtest
entities:
  node:
    table: nodes
    primary_key: [id]
    soft_delete: {column: deleted_at}
  part:
    table: parts
    primary_key: [id]
relationships:
  links:
    table: links
    from: {entity: node, columns: [src]}
    to: {entity: node, columns: [dst]}
    operations: [recursive_traversal, temporal_traversal, path_aggregation, algorithm]
    weights:
      - {name: distance, type: numeric, unit: km}
      - {name: cost, type: float8}
      - {name: quantity, type: integer}
    attributes: [mode]
    temporal: {valid_from: valid_from, valid_to: valid_to}
    soft_delete: {column: removed, flag: true}
  contains:
    table: bom
    from: {entity: part, columns: [parent]}
    to: {entity: part, columns: [child]}
    operations: [path_aggregation, recursive_traversal]
    weights:
      - {name: quantity, type: integer}
    acyclic: true
  refers:
    table: refs
    from: {entity: node, columns: [node_id]}
    to: {entity: part, columns: [part_id]}
    operations: [direct_join]
`

// Env is a mapping plus an empty fixture store.
type Env struct {
	Mapping *ontology.Mapping
	Store   *memstore.Store
}

// New returns an Env with every mapped table present and empty.
func New(t testing.TB) *Env {
	t.Helper()

	m, err := ontology.LoadBytes([]byte(MappingYAML))
	require.NoError(t, err)
	require.NoError(t, m.Err())

	s := memstore.New()
	for _, table := range []string{"nodes", "parts", "links", "bom", "refs"} {
		s.Insert(table)
	}

	return &Env{Mapping: m, Store: s}
}

// Rel resolves a relationship.
func (e *Env) Rel(t testing.TB, name string) *ontology.Relationship {
	t.Helper()

	rel, err := e.Mapping.ResolveRelationship(name)
	require.NoError(t, err)

	return rel
}

// Nodes inserts live nodes.
func (e *Env) Nodes(ids ...string) {
	for _, id := range ids {
		e.Store.Insert("nodes", memstore.Row{"id": id})
	}
}

// Node inserts one node with extra columns.
func (e *Env) Node(id string, cols memstore.Row) {
	row := memstore.Row{"id": id}
	for k, v := range cols {
		row[k] = v
	}

	e.Store.Insert("nodes", row)
}

// Link inserts a links edge with the given distance.
func (e *Env) Link(from, to string, distance float64) {
	e.Store.Insert("links", memstore.Row{"src": from, "dst": to, "distance": distance})
}

// LinkRow inserts a links edge with arbitrary columns.
func (e *Env) LinkRow(from, to string, cols memstore.Row) {
	row := memstore.Row{"src": from, "dst": to}
	for k, v := range cols {
		row[k] = v
	}

	e.Store.Insert("links", row)
}

// Chain inserts nodes and unit-distance links between consecutive ids.
func (e *Env) Chain(ids ...string) {
	e.Nodes(ids...)

	for i := 1; i < len(ids); i++ {
		e.Link(ids[i-1], ids[i], 1)
	}
}

// Part inserts parts.
func (e *Env) Part(ids ...string) {
	for _, id := range ids {
		e.Store.Insert("parts", memstore.Row{"id": id})
	}
}

// Component inserts a bill-of-materials edge.
func (e *Env) Component(parent, child string, quantity float64) {
	e.Store.Insert("bom", memstore.Row{"parent": parent, "child": child, "quantity": quantity})
}

// Limits returns small ceilings suitable for tests.
func Limits() models.Limits {
	l := models.DefaultLimits()
	l.MaxNodes = 1000
	l.MaxResults = 1000

	return l
}

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)

	return log
}
