package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

type reader struct {
	s      *Store
	closed bool
}

var _ domain.Reader = (*reader)(nil)

func (r *reader) check(ctx context.Context, op string, q *domain.EdgeQuery) error {
	if r.closed {
		return &models.StoreError{Op: op, Table: "-", Err: fmt.Errorf("reader is closed")}
	}

	return r.s.begin(ctx, op, q)
}

// FetchEdges returns the live edges whose from-key is in q.From or whose
// to-key is in q.To.
func (r *reader) FetchEdges(ctx context.Context, q domain.EdgeQuery) ([]models.Edge, error) {
	if err := r.check(ctx, OpFetchEdges, &q); err != nil {
		return nil, err
	}

	if len(q.From) == 0 && len(q.To) == 0 {
		return nil, fmt.Errorf("%w: edge query without endpoints", models.ErrInvalidRequest)
	}

	return r.scan(q.Rel, q.AsOf, set(q.From), set(q.To), q.Limit, false)
}

// FetchAllEdges returns every live edge of rel up to limit.
func (r *reader) FetchAllEdges(ctx context.Context, rel *ontology.Relationship, asOf *time.Time, limit int) ([]models.Edge, error) {
	if err := r.check(ctx, OpFetchAllEdges, nil); err != nil {
		return nil, err
	}

	return r.scan(rel, asOf, nil, nil, limit, true)
}

// CountEdges counts live edges of rel, stopping at limit.
func (r *reader) CountEdges(ctx context.Context, rel *ontology.Relationship, asOf *time.Time, limit int) (int, error) {
	if err := r.check(ctx, OpCountEdges, nil); err != nil {
		return 0, err
	}

	edges, err := r.scan(rel, asOf, nil, nil, limit, true)

	return len(edges), err
}

func (r *reader) scan(rel *ontology.Relationship, asOf *time.Time, from, to map[string]bool, limit int, all bool) ([]models.Edge, error) {
	if rel.FilterSQL != "" {
		return nil, fmt.Errorf("%w: raw filter_sql on %s needs the PostgreSQL store", models.ErrUnsupportedOperation, rel.Name)
	}

	rows, err := r.s.rows(rel.Table)
	if err != nil {
		return nil, err
	}

	domainIdx, err := r.liveIndex(rel.Domain())
	if err != nil {
		return nil, err
	}

	var targetIdx map[string]Row

	if st, ok := rel.Target().(ontology.SingleTarget); ok {
		if targetIdx, err = r.liveIndex(st.Entity); err != nil {
			return nil, err
		}
	}

	var out []models.Edge

	for _, row := range rows {
		fromID, ok := rowKey(row, rel.From.Columns)
		if !ok {
			continue
		}

		toID, ok := rowKey(row, rel.To.Columns)
		if !ok {
			continue
		}

		if !all && !from[fromID] && !to[toID] {
			continue
		}

		if !edgeLive(rel, row, asOf) {
			continue
		}

		if domainIdx != nil {
			if _, ok := domainIdx[fromID]; !ok {
				continue
			}
		}

		if targetIdx != nil {
			if _, ok := targetIdx[toID]; !ok {
				continue
			}
		}

		e, ok := toEdge(rel, row, fromID, toID)
		if !ok {
			continue
		}

		out = append(out, e)

		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}

// liveIndex returns the live rows of ent keyed by id, or nil when ent has no
// soft-delete column and endpoint liveness is not checked.
func (r *reader) liveIndex(ent *ontology.Entity) (map[string]Row, error) {
	if ent == nil || ent.SoftDelete == nil {
		return nil, nil
	}

	idx, err := r.s.index(ent)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Row, len(idx))

	for id, row := range idx {
		if rowLive(row, ent.SoftDelete) {
			out[id] = row
		}
	}

	return out, nil
}

func rowLive(row Row, sd *ontology.SoftDelete) bool {
	if sd == nil {
		return true
	}

	v := row[sd.Column]
	if sd.Flag {
		return !truthy(v)
	}

	return v == nil
}

func edgeLive(rel *ontology.Relationship, row Row, asOf *time.Time) bool {
	if !rowLive(row, rel.SoftDelete) {
		return false
	}

	if rel.Temporal != nil && asOf != nil {
		if vf := row[rel.Temporal.ValidFrom]; vf != nil && compare(vf, *asOf) > 0 {
			return false
		}

		if vt := row[rel.Temporal.ValidTo]; vt != nil && compare(vt, *asOf) <= 0 {
			return false
		}
	}

	for _, p := range rel.Filters {
		if !matches(row, p) {
			return false
		}
	}

	return true
}

func toEdge(rel *ontology.Relationship, row Row, from, to string) (models.Edge, bool) {
	e := models.Edge{From: from, To: to}

	if rel.Discriminator != nil {
		if tag, ok := text(row[rel.Discriminator.Column]); ok {
			ent, err := rel.ResolveTarget(tag)
			if err != nil {
				return e, false
			}

			e.TargetEntity = ent.Name
		}
	}

	for _, w := range rel.Weights {
		v, ok := number(row[w.ColumnName()])
		if !ok {
			continue
		}

		if e.Weights == nil {
			e.Weights = make(map[string]float64, len(rel.Weights))
		}

		e.Weights[w.Name] = v
	}

	for _, a := range rel.Attributes {
		v, ok := text(row[a])
		if !ok {
			continue
		}

		if e.Attributes == nil {
			e.Attributes = make(map[string]string, len(rel.Attributes))
		}

		e.Attributes[a] = v
	}

	return e, true
}

// ExistingNodes returns the live ids among ids, in input order.
func (r *reader) ExistingNodes(ctx context.Context, ent *ontology.Entity, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	if err := r.check(ctx, OpExistingNodes, nil); err != nil {
		return nil, err
	}

	return r.filterNodes(ent, ids, nil)
}

// MatchNodes returns the ids among ids whose live rows satisfy preds.
func (r *reader) MatchNodes(ctx context.Context, ent *ontology.Entity, ids []string, preds []models.Predicate) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	if err := r.check(ctx, OpMatchNodes, nil); err != nil {
		return nil, err
	}

	if err := models.ValidatePredicates(preds); err != nil {
		return nil, err
	}

	return r.filterNodes(ent, ids, preds)
}

func (r *reader) filterNodes(ent *ontology.Entity, ids []string, preds []models.Predicate) ([]string, error) {
	idx, err := r.s.index(ent)
	if err != nil {
		return nil, err
	}

	var out []string

	seen := make(map[string]bool, len(ids))

next:
	for _, id := range ids {
		row, ok := idx[id]
		if !ok || seen[id] || !rowLive(row, ent.SoftDelete) {
			continue
		}

		for _, p := range preds {
			if !matches(row, p) {
				continue next
			}
		}

		seen[id] = true
		out = append(out, id)
	}

	return out, nil
}

// FetchAllNodes returns up to limit live node ids of ent, sorted.
func (r *reader) FetchAllNodes(ctx context.Context, ent *ontology.Entity, limit int) ([]string, error) {
	if err := r.check(ctx, OpFetchAllNodes, nil); err != nil {
		return nil, err
	}

	idx, err := r.s.index(ent)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(idx))

	for id, row := range idx {
		if rowLive(row, ent.SoftDelete) {
			out = append(out, id)
		}
	}

	sort.Strings(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Close marks the reader unusable.
func (r *reader) Close(context.Context) error {
	r.closed = true

	return nil
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}
