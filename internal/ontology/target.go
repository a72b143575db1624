package ontology

import (
	"fmt"
	"sort"
)

// Target is the range of a relationship: either one entity, or a set of
// entities chosen per row by a discriminator column.
type Target interface {
	// Resolve returns the entity an edge row points at, given that row's
	// discriminator value ("" for single targets).
	Resolve(discriminator string) (*Entity, error)
	// Entities lists every possible target entity.
	Entities() []*Entity
	isTarget()
}

// SingleTarget is a relationship pointing at exactly one entity type.
type SingleTarget struct {
	Entity *Entity
}

// Resolve implements Target.
func (t SingleTarget) Resolve(string) (*Entity, error) { return t.Entity, nil }

// Entities implements Target.
func (t SingleTarget) Entities() []*Entity { return []*Entity{t.Entity} }

func (SingleTarget) isTarget() {}

// PolymorphicTarget is a relationship whose target entity is selected by the
// value of a discriminator column on the edge row.
type PolymorphicTarget struct {
	Column string
	ByTag  map[string]*Entity
}

// Resolve implements Target.
func (t PolymorphicTarget) Resolve(tag string) (*Entity, error) {
	e, ok := t.ByTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: discriminator %s=%q has no target", ErrEntityNotFound, t.Column, tag)
	}

	return e, nil
}

// Entities implements Target. Order is by discriminator tag.
func (t PolymorphicTarget) Entities() []*Entity {
	tags := make([]string, 0, len(t.ByTag))
	for tag := range t.ByTag {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	out := make([]*Entity, 0, len(tags))
	for _, tag := range tags {
		out = append(out, t.ByTag[tag])
	}

	return out
}

func (PolymorphicTarget) isTarget() {}

// ResolveTarget returns the entity an edge row points at.
func (r *Relationship) ResolveTarget(discriminator string) (*Entity, error) {
	if r.target == nil {
		return nil, fmt.Errorf("relationship %s is not validated", r.Name)
	}

	return r.target.Resolve(discriminator)
}
