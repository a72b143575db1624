// Package traversal implements frontier-batched breadth-first traversal of a
// self-referential relationship: one edge query per depth level, never one
// per node.
package traversal

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/engine"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/metrics"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

// Compile-time check: *Engine must satisfy domain.TraversalService.
var _ domain.TraversalService = (*Engine)(nil)

// Engine runs traversals and path aggregations.
type Engine struct {
	engine.Base
}

// New creates an Engine.
func New(source domain.Source, mapping *ontology.Mapping, g *guard.Guard, log *logrus.Logger) *Engine {
	return &Engine{Base: engine.Base{Source: source, Mapping: mapping, Guard: g, Log: log}}
}

// Traverse walks req.Relationship breadth-first from req.Start. Nodes
// matching req.StopAt are recorded and not expanded; when req.Targets is set
// only matching nodes are reported.
func (e *Engine) Traverse(ctx context.Context, req models.TraverseRequest) (res *models.TraversalResult, err error) {
	ctx, call, err := e.Begin(ctx, engine.Scope{
		Op:           "traverse",
		Relationship: req.Relationship,
		Overrides:    req.Limits,
		Require:      []ontology.OpCategory{ontology.OpRecursiveTraversal, ontology.OpTemporalTraversal},
		AsOf:         req.AsOf,
	})
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	return walk(ctx, call, req)
}

// TraverseCollecting walks like Traverse but reports only nodes matching
// req.Targets, still expanding through the ones that do not match.
func (e *Engine) TraverseCollecting(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: collecting traversal needs at least one target predicate", models.ErrInvalidRequest)
	}

	return e.Traverse(ctx, req)
}

// walker is the state of one traversal.
type walker struct {
	call  *engine.Call
	req   models.TraverseRequest
	dir   models.Direction
	depth int

	visited map[string]bool
	parent  map[string]string
	depths  map[string]int
	order   []string

	edgeSeen map[string]bool
	edges    []models.Edge

	terminated []string
}

func walk(ctx context.Context, call *engine.Call, req models.TraverseRequest) (*models.TraversalResult, error) {
	if req.Start == "" {
		return nil, models.ErrMissingStart
	}

	dir, err := models.ParseDirection(string(req.Direction))
	if err != nil {
		return nil, err
	}

	if err := models.ValidatePredicates(req.StopAt); err != nil {
		return nil, err
	}

	if err := models.ValidatePredicates(req.Targets); err != nil {
		return nil, err
	}

	depth, err := call.CheckDepth(req.MaxDepth, call.Limits.MaxDepth)
	if err != nil {
		return nil, err
	}

	if err := call.RequireNodes(ctx, call.Rel.Domain(), req.Start); err != nil {
		return nil, err
	}

	if !req.SkipEstimation {
		if _, err := call.Guard.Preflight(ctx, call.Reader, guard.EstimateRequest{
			Rel:         call.Rel,
			Start:       req.Start,
			Direction:   dir,
			AsOf:        req.AsOf,
			TargetDepth: depth,
		}); err != nil {
			return nil, err
		}
	}

	w := &walker{
		call:     call,
		req:      req,
		dir:      dir,
		depth:    depth,
		visited:  map[string]bool{req.Start: true},
		parent:   make(map[string]string),
		depths:   make(map[string]int),
		edgeSeen: make(map[string]bool),
	}

	reached, more, err := w.run(ctx)
	if err != nil {
		return nil, err
	}

	metrics.NodesVisited.Observe(float64(len(w.order)))

	return w.result(ctx, reached, more)
}

// run expands level by level. It returns the deepest level that discovered
// a node and whether the frontier was still non-empty at the depth bound.
func (w *walker) run(ctx context.Context) (int, bool, error) {
	frontier := []string{w.req.Start}
	reached := 0

	for level := 1; level <= w.depth && len(frontier) > 0; level++ {
		if err := models.ContextError(ctx.Err()); err != nil {
			return 0, false, err
		}

		next, err := w.expand(ctx, level, frontier)
		if err != nil {
			return 0, false, err
		}

		if len(next) > 0 {
			reached = level
		}

		if n := len(w.order); n > w.call.Limits.MaxNodes {
			return 0, false, w.call.Trip(models.LimitMaxNodes, w.call.Limits.MaxNodes, n)
		}

		if next, err = w.stop(ctx, next); err != nil {
			return 0, false, err
		}

		w.call.Log.WithFields(logrus.Fields{
			"depth":    level,
			"frontier": len(frontier),
			"next":     len(next),
			"visited":  len(w.order),
		}).Debug("traversal.level")

		frontier = next
	}

	return reached, len(frontier) > 0, nil
}

// expand issues the level's single edge query and returns the newly
// discovered nodes in discovery order.
func (w *walker) expand(ctx context.Context, level int, frontier []string) ([]string, error) {
	from, to := w.dir.Split(frontier)

	batch, err := w.call.Reader.FetchEdges(ctx, domain.EdgeQuery{
		Rel:  w.call.Rel,
		From: from,
		To:   to,
		AsOf: w.req.AsOf,
	})
	if err != nil {
		return nil, fmt.Errorf("expanding level %d: %w", level, err)
	}

	inFrontier := make(map[string]bool, len(frontier))
	for _, id := range frontier {
		inFrontier[id] = true
	}

	var next []string

	for i := range batch {
		edge := &batch[i]
		stepped := false

		w.dir.Step(edge, func(id string) bool { return inFrontier[id] }, func(p, c string) {
			stepped = true

			if w.visited[c] {
				return
			}

			w.visited[c] = true
			w.parent[c] = p
			w.depths[c] = level
			w.order = append(w.order, c)
			next = append(next, c)
		})

		if stepped {
			if k := edge.Key(); !w.edgeSeen[k] {
				w.edgeSeen[k] = true
				w.edges = append(w.edges, *edge)
			}
		}
	}

	return next, nil
}

// stop removes the nodes matching the stop condition from next and records
// them as termination points.
func (w *walker) stop(ctx context.Context, next []string) ([]string, error) {
	if len(w.req.StopAt) == 0 || len(next) == 0 {
		return next, nil
	}

	matched, err := w.call.Reader.MatchNodes(ctx, w.call.Rel.Domain(), next, w.req.StopAt)
	if err != nil {
		return nil, fmt.Errorf("evaluating stop condition: %w", err)
	}

	if len(matched) == 0 {
		return next, nil
	}

	hit := make(map[string]bool, len(matched))
	for _, id := range matched {
		hit[id] = true
	}

	kept := next[:0]

	for _, id := range next {
		if hit[id] {
			w.terminated = append(w.terminated, id)
			continue
		}

		kept = append(kept, id)
	}

	return kept, nil
}

func (w *walker) result(ctx context.Context, reached int, more bool) (*models.TraversalResult, error) {
	reported := w.order

	if len(w.req.Targets) > 0 && len(reported) > 0 {
		matched, err := w.call.Reader.MatchNodes(ctx, w.call.Rel.Domain(), reported, w.req.Targets)
		if err != nil {
			return nil, fmt.Errorf("evaluating targets: %w", err)
		}

		reported = matched
	}

	if n := len(reported); n > w.call.Limits.MaxResults {
		return nil, w.call.Trip(models.LimitMaxResults, w.call.Limits.MaxResults, n)
	}

	nodes := append(make([]string, 0, len(reported)), reported...)
	sort.Slice(nodes, func(i, j int) bool {
		di, dj := w.depths[nodes[i]], w.depths[nodes[j]]
		if di != dj {
			return di < dj
		}

		return nodes[i] < nodes[j]
	})

	res := &models.TraversalResult{
		Relationship:    w.call.Rel.Name,
		Start:           w.req.Start,
		Direction:       w.dir,
		Nodes:           nodes,
		Edges:           w.edges,
		Paths:           make(map[string][]string, len(nodes)),
		Depths:          make(map[string]int, len(nodes)),
		MaxDepthReached: reached,
		Truncated:       more,
	}

	if res.Edges == nil {
		res.Edges = []models.Edge{}
	}

	for _, id := range nodes {
		res.Paths[id] = w.path(id)
		res.Depths[id] = w.depths[id]
	}

	if len(w.terminated) > 0 {
		res.TerminatedAt = append([]string(nil), w.terminated...)
		sort.Strings(res.TerminatedAt)
	}

	switch {
	case len(w.order) == 0:
		res.Message = "no nodes reachable from " + w.req.Start
	case len(nodes) == 0:
		res.Message = "no reachable node matches the target condition"
	case more:
		res.Message = fmt.Sprintf("stopped at depth %d with unexpanded nodes", w.depth)
	}

	w.call.Event("traversal_complete",
		attribute.Int("visited", len(w.order)),
		attribute.Int("reported", len(nodes)),
		attribute.Int("depth", reached),
	)

	return res, nil
}

// path follows parent pointers back to the start.
func (w *walker) path(id string) []string {
	p := []string{id}

	for cur := id; cur != w.req.Start; {
		cur = w.parent[cur]
		p = append(p, cur)
	}

	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}

	return p
}
