// Package ontology loads the declarative schema-mapping document that tells
// the engines which tables and key columns represent graph entities and
// relationships.
//
// Loading is a pure parse. Validation resolves entity references, operation
// categories and polymorphic targets exactly once; after that a Mapping is
// read-only and safe for concurrent readers. Every accessor validates
// implicitly on first use and fails closed.
package ontology

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/persistorai/relgraph/internal/models"
)

// Lookup errors.
var (
	ErrEntityNotFound       = errors.New("entity not found in mapping")
	ErrRelationshipNotFound = errors.New("relationship not found in mapping")
)

// SoftDelete names the logical-deletion marker column. A row is live when the
// column IS NULL, or, for boolean flags, when it IS NOT TRUE.
type SoftDelete struct {
	Column string `yaml:"column" validate:"required"`
	Flag   bool   `yaml:"flag,omitempty"`
}

// Entity maps a logical entity type onto a table.
type Entity struct {
	Name         string      `yaml:"-"`
	Table        string      `yaml:"table" validate:"required"`
	PrimaryKey   []string    `yaml:"primary_key" validate:"required,min=1,dive,required"`
	KeyTypes     []string    `yaml:"key_types,omitempty"`
	Identifier   []string    `yaml:"identifier,omitempty"`
	SoftDelete   *SoftDelete `yaml:"soft_delete,omitempty"`
	RowCountHint int64       `yaml:"row_count_hint,omitempty" validate:"gte=0"`
}

// KeyType returns the declared SQL type of primary-key column i, or "" when undeclared.
func (e *Entity) KeyType(i int) string {
	if i < len(e.KeyTypes) {
		return e.KeyTypes[i]
	}

	return ""
}

// Endpoint is one side of a relationship: the entity and the edge-table
// columns holding that entity's key, in primary-key order.
type Endpoint struct {
	Entity  string   `yaml:"entity,omitempty"`
	Columns []string `yaml:"columns" validate:"required,min=1,dive,required"`
}

// WeightColumn is a numeric edge column usable as a weight or aggregation value.
type WeightColumn struct {
	Name   string `yaml:"name" validate:"required"`
	Column string `yaml:"column,omitempty"`
	Type   string `yaml:"type" validate:"required,numeric_type"`
	Unit   string `yaml:"unit,omitempty"`
}

// ColumnName returns the physical column, defaulting to the weight name.
func (w *WeightColumn) ColumnName() string {
	if w.Column != "" {
		return w.Column
	}

	return w.Name
}

// Temporal names the validity interval columns of an edge table.
// Either bound may be NULL meaning open-ended.
type Temporal struct {
	ValidFrom string `yaml:"valid_from" validate:"required"`
	ValidTo   string `yaml:"valid_to" validate:"required"`
}

// Discriminator resolves polymorphic targets per row.
type Discriminator struct {
	Column  string            `yaml:"column" validate:"required"`
	Targets map[string]string `yaml:"targets" validate:"required,min=1"`
}

// Relationship maps a logical relationship onto an edge table.
type Relationship struct {
	Name          string             `yaml:"-"`
	Table         string             `yaml:"table" validate:"required"`
	From          Endpoint           `yaml:"from"`
	To            Endpoint           `yaml:"to"`
	Operations    []string           `yaml:"operations" validate:"required,min=1"`
	Weights       []WeightColumn     `yaml:"weights,omitempty" validate:"dive"`
	Attributes    []string           `yaml:"attributes,omitempty"`
	Temporal      *Temporal          `yaml:"temporal,omitempty"`
	SoftDelete    *SoftDelete        `yaml:"soft_delete,omitempty"`
	Filters       []models.Predicate `yaml:"filters,omitempty"`
	FilterSQL     string             `yaml:"filter_sql,omitempty"`
	Acyclic       bool               `yaml:"acyclic,omitempty"`
	Discriminator *Discriminator     `yaml:"discriminator,omitempty"`
	Description   string             `yaml:"description,omitempty"`

	ops    OpSet
	domain *Entity
	target Target
}

// Ops returns the resolved operation categories.
func (r *Relationship) Ops() OpSet { return r.ops }

// Supports reports whether the relationship declares category c.
func (r *Relationship) Supports(c OpCategory) bool { return r.ops.Has(c) }

// Require returns ErrUnsupportedOperation unless one of cs is declared.
func (r *Relationship) Require(cs ...OpCategory) error {
	for _, c := range cs {
		if r.ops.Has(c) {
			return nil
		}
	}

	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.String()
	}

	return fmt.Errorf("%w: %s needs %s", models.ErrUnsupportedOperation, r.Name, strings.Join(names, " or "))
}

// Domain returns the source entity.
func (r *Relationship) Domain() *Entity { return r.domain }

// Target returns the resolved range of the relationship.
func (r *Relationship) Target() Target { return r.target }

// SelfReferential reports whether both endpoints are the same entity, the
// shape frontier traversal and the subgraph algorithms need.
func (r *Relationship) SelfReferential() bool {
	t, ok := r.target.(SingleTarget)

	return ok && t.Entity == r.domain
}

// Weight resolves a declared weight by name.
func (r *Relationship) Weight(name string) (*WeightColumn, error) {
	for i := range r.Weights {
		if r.Weights[i].Name == name {
			return &r.Weights[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q on %s", models.ErrUnknownWeight, name, r.Name)
}

// Document is the serialized mapping file.
type Document struct {
	Version       string                   `yaml:"version" validate:"required"`
	Name          string                   `yaml:"name,omitempty"`
	Entities      map[string]*Entity       `yaml:"entities" validate:"required,min=1"`
	Relationships map[string]*Relationship `yaml:"relationships"`
}

// Mapping is a loaded schema mapping. The zero value is not usable; build one
// with Load, LoadFile or New.
type Mapping struct {
	doc Document

	once sync.Once
	errs []ValidationError
}

// New wraps an already-decoded document.
func New(doc Document) *Mapping {
	for name, e := range doc.Entities {
		if e != nil {
			e.Name = name
		}
	}

	for name, r := range doc.Relationships {
		if r != nil {
			r.Name = name
		}
	}

	return &Mapping{doc: doc}
}

// Load parses a YAML mapping document. It does not validate.
func Load(r io.Reader) (*Mapping, error) {
	var doc Document

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty mapping document", models.ErrInvalidMapping)
		}

		return nil, fmt.Errorf("%w: parsing mapping: %v", models.ErrInvalidMapping, err)
	}

	return New(doc), nil
}

// LoadBytes parses a YAML mapping document held in memory.
func LoadBytes(b []byte) (*Mapping, error) {
	return Load(bytes.NewReader(b))
}

// LoadFile parses the YAML mapping at path.
func LoadFile(path string) (*Mapping, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration.
	if err != nil {
		return nil, fmt.Errorf("opening mapping: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Version returns the document version.
func (m *Mapping) Version() string { return m.doc.Version }

// Name returns the document name.
func (m *Mapping) Name() string { return m.doc.Name }

// Validate resolves and checks the mapping once, returning every problem found.
func (m *Mapping) Validate() []ValidationError {
	m.once.Do(func() {
		m.errs = validate(&m.doc)
	})

	return m.errs
}

// Err returns a *ValidationErrors when the mapping is invalid, nil otherwise.
func (m *Mapping) Err() error {
	if errs := m.Validate(); len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}

	return nil
}

// ResolveEntity returns the named entity.
func (m *Mapping) ResolveEntity(name string) (*Entity, error) {
	if err := m.Err(); err != nil {
		return nil, err
	}

	e, ok := m.doc.Entities[name]
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}

	return e, nil
}

// ResolveRelationship returns the named relationship.
func (m *Mapping) ResolveRelationship(name string) (*Relationship, error) {
	if err := m.Err(); err != nil {
		return nil, err
	}

	r, ok := m.doc.Relationships[name]
	if !ok || r == nil {
		return nil, fmt.Errorf("%w: %q", ErrRelationshipNotFound, name)
	}

	return r, nil
}

// EntityNames lists entity names sorted.
func (m *Mapping) EntityNames() []string {
	return sortedKeys(m.doc.Entities)
}

// RelationshipNames lists relationship names sorted.
func (m *Mapping) RelationshipNames() []string {
	return sortedKeys(m.doc.Relationships)
}

func sortedKeys[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
