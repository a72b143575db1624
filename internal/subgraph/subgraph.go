// Package subgraph is the only place relational rows are materialized into
// an in-memory graph. Loaders run inside an engine call and issue every
// query through that call's reader, one batched query per level.
package subgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/engine"
	"github.com/persistorai/relgraph/internal/graph"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/metrics"
	"github.com/persistorai/relgraph/internal/models"
)

// Loader materializes the relationship of one engine call.
type Loader struct {
	call *engine.Call
}

// New returns a Loader bound to call.
func New(call *engine.Call) *Loader {
	return &Loader{call: call}
}

// BetweenRequest describes a bidirectional load between two nodes.
type BetweenRequest struct {
	Start, End string
	// MaxDepth bounds forward plus backward levels.
	MaxDepth int
	// Weighted keeps expanding after the frontiers meet: a cheaper path may
	// use more hops than the first meeting point.
	Weighted   bool
	Undirected bool
	AsOf       *time.Time
	// Exclude lists nodes the load never enters. Edges touching them are
	// skipped, so the frontiers only meet on permitted nodes.
	Exclude []string
}

// FromRequest describes a single-direction load around a start node.
type FromRequest struct {
	Start          string
	Direction      models.Direction
	MaxDepth       int
	AsOf           *time.Time
	SkipEstimation bool
}

// AllRequest describes a whole-relationship load.
type AllRequest struct {
	AsOf *time.Time
	// Isolated adds live domain nodes that have no edge.
	Isolated bool
}

// levels records the level at which each node was a frontier member.
type levels map[string]int

func (lv levels) before(level int) func(string) bool {
	return func(id string) bool {
		l, ok := lv[id]
		return ok && l < level
	}
}

// fetchedBefore reports whether e was already returned by the level query
// of an earlier frontier walked in direction d. Two rows with equal columns
// stay distinct edges; only a row read a second time is dropped.
func fetchedBefore(d models.Direction, e *models.Edge, lv levels, level int) bool {
	hit := false
	d.Step(e, lv.before(level), func(_, _ string) { hit = true })

	return hit
}

// LoadBetween expands forward from req.Start and backward from req.End in a
// single query per level until the frontiers meet, either side exhausts or
// the depth bound is spent.
func (l *Loader) LoadBetween(ctx context.Context, req BetweenRequest) (*graph.Graph, error) {
	g := graph.New()
	g.AddNode(req.Start)
	g.AddNode(req.End)

	if req.Start == req.End {
		return g, nil
	}

	excluded := set(req.Exclude)
	fwd := levels{req.Start: 0}
	bwd := levels{req.End: 0}
	ff, bf := []string{req.Start}, []string{req.End}
	fd, bd, rounds := 0, 0, 0

	for len(ff) > 0 && len(bf) > 0 && fd+bd < req.MaxDepth {
		if err := models.ContextError(ctx.Err()); err != nil {
			return nil, err
		}

		expandF := true
		expandB := fd+bd+2 <= req.MaxDepth

		q := domain.EdgeQuery{Rel: l.call.Rel, AsOf: req.AsOf}
		if req.Undirected {
			keys := append([]string(nil), ff...)
			if expandB {
				keys = append(keys, bf...)
			}

			q.From, q.To = keys, keys
		} else {
			q.From = ff
			if expandB {
				q.To = bf
			}
		}

		batch, err := l.call.Reader.FetchEdges(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("loading level %d: %w", rounds+1, err)
		}

		rounds++

		fdir, bdir := models.Outbound, models.Inbound
		if req.Undirected {
			fdir, bdir = models.Both, models.Both
		}

		inF, inB := set(ff), set(bf)
		level := rounds - 1

		var nf, nb []string

		for i := range batch {
			e := &batch[i]
			if excluded[e.From] || excluded[e.To] {
				continue
			}

			if fetchedBefore(fdir, e, fwd, level) || fetchedBefore(bdir, e, bwd, level) {
				continue
			}

			used := false

			if expandF {
				fdir.Step(e, func(id string) bool { return inF[id] }, func(_, c string) {
					used = true

					if _, ok := fwd[c]; !ok {
						fwd[c] = level + 1
						nf = append(nf, c)
					}
				})
			}

			if expandB {
				bdir.Step(e, func(id string) bool { return inB[id] }, func(_, c string) {
					used = true

					if _, ok := bwd[c]; !ok {
						bwd[c] = level + 1
						nb = append(nb, c)
					}
				})
			}

			if used {
				g.AddEdge(*e)
			}
		}

		fd++
		if expandB {
			bd++
		}

		if n := g.NodeCount(); n > l.call.Limits.MaxNodes {
			return nil, l.call.Trip(models.LimitMaxNodes, l.call.Limits.MaxNodes, n)
		}

		met := meets(fwd, bwd)

		l.call.Log.WithFields(logrus.Fields{
			"level":    rounds,
			"forward":  len(nf),
			"backward": len(nb),
			"nodes":    g.NodeCount(),
			"met":      met,
		}).Debug("subgraph.level")

		ff, bf = nf, nb

		if met && !req.Weighted {
			break
		}
	}

	l.done(g, rounds)

	return g, nil
}

// LoadFrom expands one direction from req.Start to req.MaxDepth after a
// guard preflight. The node ceiling is enforced at every level.
func (l *Loader) LoadFrom(ctx context.Context, req FromRequest) (*graph.Graph, error) {
	if !req.SkipEstimation {
		if _, err := l.call.Guard.Preflight(ctx, l.call.Reader, guard.EstimateRequest{
			Rel:         l.call.Rel,
			Start:       req.Start,
			Direction:   req.Direction,
			AsOf:        req.AsOf,
			TargetDepth: req.MaxDepth,
		}); err != nil {
			return nil, err
		}
	}

	g := graph.New()
	g.AddNode(req.Start)

	visited := levels{req.Start: 0}
	frontier := []string{req.Start}
	level := 0

	for ; level < req.MaxDepth && len(frontier) > 0; level++ {
		if err := models.ContextError(ctx.Err()); err != nil {
			return nil, err
		}

		from, to := req.Direction.Split(frontier)

		batch, err := l.call.Reader.FetchEdges(ctx, domain.EdgeQuery{Rel: l.call.Rel, From: from, To: to, AsOf: req.AsOf})
		if err != nil {
			return nil, fmt.Errorf("loading level %d: %w", level+1, err)
		}

		in := set(frontier)

		var next []string

		for i := range batch {
			e := &batch[i]
			if fetchedBefore(req.Direction, e, visited, level) {
				continue
			}

			used := false

			req.Direction.Step(e, func(id string) bool { return in[id] }, func(_, c string) {
				used = true

				if _, ok := visited[c]; !ok {
					visited[c] = level + 1
					next = append(next, c)
				}
			})

			if used {
				g.AddEdge(*e)
			}
		}

		if n := g.NodeCount(); n > l.call.Limits.MaxNodes {
			return nil, l.call.Trip(models.LimitMaxNodes, l.call.Limits.MaxNodes, n)
		}

		frontier = next
	}

	l.done(g, level)

	return g, nil
}

// LoadAll reads every live edge of the relationship once the guard confirms
// the edge count fits the ceiling.
func (l *Loader) LoadAll(ctx context.Context, req AllRequest) (*graph.Graph, error) {
	if _, err := l.call.Guard.CheckGlobal(ctx, l.call.Reader, l.call.Rel, req.AsOf); err != nil {
		return nil, err
	}

	edges, err := l.call.Reader.FetchAllEdges(ctx, l.call.Rel, req.AsOf, l.call.Limits.MaxEdges)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}

	g := graph.New()

	if req.Isolated && l.call.Rel.SelfReferential() {
		ids, err := l.call.Reader.FetchAllNodes(ctx, l.call.Rel.Domain(), l.call.Limits.MaxNodes+1)
		if err != nil {
			return nil, fmt.Errorf("loading nodes: %w", err)
		}

		for _, id := range ids {
			g.AddNode(id)
		}
	}

	for i := range edges {
		g.AddEdge(edges[i])
	}

	if n := g.NodeCount(); n > l.call.Limits.MaxNodes {
		return nil, l.call.Trip(models.LimitMaxNodes, l.call.Limits.MaxNodes, n)
	}

	l.done(g, 1)

	return g, nil
}

func (l *Loader) done(g *graph.Graph, levels int) {
	metrics.NodesVisited.Observe(float64(g.NodeCount()))

	l.call.Event("subgraph_loaded",
		attribute.Int("nodes", g.NodeCount()),
		attribute.Int("edges", g.EdgeCount()),
		attribute.Int("levels", levels),
	)
}

func meets(a, b levels) bool {
	if len(a) > len(b) {
		a, b = b, a
	}

	for id := range a {
		if _, ok := b[id]; ok {
			return true
		}
	}

	return false
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}
