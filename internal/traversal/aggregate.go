package traversal

import (
	"context"
	"fmt"
	"math"
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

// pathState is the tip of one distinct path from the root. Paths share
// prefixes through prev, so memory grows with the number of tips rather than
// the total path length.
type pathState struct {
	node  string
	value float64
	set   bool // value holds at least one non-NULL edge value
	depth int
	prev  *pathState
}

// onPath reports whether id already appears on this path.
func (s *pathState) onPath(id string) bool {
	for p := s; p != nil; p = p.prev {
		if p.node == id {
			return true
		}
	}

	return false
}

// step is one way out of a node at the current level.
type step struct {
	child string
	value float64
	ok    bool
}

// acc is the across-path aggregate of one node.
type acc struct {
	value    float64
	set      bool
	minDepth int
	paths    int
}

// PathAggregate enumerates every distinct cycle-free path from req.Start and
// folds req.ValueColumn along each path with req.Operator, then folds the
// per-path values arriving at the same node: sums for sum and multiply, max
// for max, min for min, and the minimum hop count for count.
func (e *Engine) PathAggregate(ctx context.Context, req models.AggregateRequest) (res *models.PathAggregateResult, err error) {
	ctx, call, err := e.Begin(ctx, engine.Scope{
		Op:           "path_aggregate",
		Relationship: req.Relationship,
		Overrides:    req.Limits,
		Require:      []ontology.OpCategory{ontology.OpPathAggregation},
		AsOf:         req.AsOf,
	})
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	return aggregate(ctx, call, req)
}

func aggregate(ctx context.Context, call *engine.Call, req models.AggregateRequest) (*models.PathAggregateResult, error) {
	if req.Start == "" {
		return nil, models.ErrMissingStart
	}

	op, err := models.ParseAggregateOp(string(req.Operator))
	if err != nil {
		return nil, err
	}

	weight := ""

	if op != models.AggCount || req.ValueColumn != "" {
		if req.ValueColumn == "" {
			return nil, fmt.Errorf("%w: operator %s needs a value column", models.ErrInvalidRequest, op)
		}

		w, err := call.Rel.Weight(req.ValueColumn)
		if err != nil {
			return nil, err
		}

		weight = w.Name
	}

	dir, err := models.ParseDirection(string(req.Direction))
	if err != nil {
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

	tips := []*pathState{{node: req.Start}}
	nodes := make(map[string]*acc)
	explored := 0
	reached := 0

	for level := 1; level <= depth && len(tips) > 0; level++ {
		if err := models.ContextError(ctx.Err()); err != nil {
			return nil, err
		}

		out, err := steps(ctx, call, req, dir, weight, tips)
		if err != nil {
			return nil, fmt.Errorf("expanding level %d: %w", level, err)
		}

		var next []*pathState

		for _, t := range tips {
			for _, s := range out[t.node] {
				if t.onPath(s.child) {
					continue
				}

				n := &pathState{node: s.child, value: t.value, set: t.set, depth: level, prev: t}
				if s.ok {
					n.value, n.set = fold(op, t.value, t.set, s.value), true
				}

				next = append(next, n)
				merge(op, nodes, n)
			}
		}

		explored += len(next)

		if len(next) > 0 {
			reached = level
		}

		if explored > call.Limits.MaxNodes {
			return nil, call.Trip(models.LimitMaxPaths, call.Limits.MaxNodes, explored)
		}

		if len(nodes) > call.Limits.MaxNodes {
			return nil, call.Trip(models.LimitMaxNodes, call.Limits.MaxNodes, len(nodes))
		}

		call.Log.WithFields(logrus.Fields{
			"depth": level,
			"tips":  len(tips),
			"paths": len(next),
			"nodes": len(nodes),
		}).Debug("traversal.aggregate_level")

		tips = next
	}

	if len(nodes) > call.Limits.MaxResults {
		return nil, call.Trip(models.LimitMaxResults, call.Limits.MaxResults, len(nodes))
	}

	metrics.NodesVisited.Observe(float64(len(nodes)))

	res := &models.PathAggregateResult{
		Relationship:    call.Rel.Name,
		Root:            req.Start,
		Operator:        op,
		ValueColumn:     weight,
		Nodes:           make([]models.AggregatedNode, 0, len(nodes)),
		PathsExplored:   explored,
		MaxDepthReached: reached,
		Truncated:       len(tips) > 0,
	}

	for id, a := range nodes {
		v := a.value
		if op == models.AggCount {
			v = float64(a.minDepth)
		}

		res.Nodes = append(res.Nodes, models.AggregatedNode{ID: id, Value: v, MinDepth: a.minDepth, PathCount: a.paths})
	}

	sort.Slice(res.Nodes, func(i, j int) bool {
		if res.Nodes[i].MinDepth != res.Nodes[j].MinDepth {
			return res.Nodes[i].MinDepth < res.Nodes[j].MinDepth
		}

		return res.Nodes[i].ID < res.Nodes[j].ID
	})

	switch {
	case len(nodes) == 0:
		res.Message = "no nodes reachable from " + req.Start
	case res.Truncated:
		res.Message = fmt.Sprintf("stopped at depth %d with unexpanded paths", depth)
	}

	call.Event("aggregation_complete",
		attribute.Int("nodes", len(nodes)),
		attribute.Int("paths", explored),
	)

	return res, nil
}

// steps issues the level's single edge query for the distinct tip nodes and
// groups the ways out by parent.
func steps(
	ctx context.Context, call *engine.Call, req models.AggregateRequest,
	dir models.Direction, weight string, tips []*pathState,
) (map[string][]step, error) {
	seen := make(map[string]bool, len(tips))

	var frontier []string

	for _, t := range tips {
		if !seen[t.node] {
			seen[t.node] = true
			frontier = append(frontier, t.node)
		}
	}

	from, to := dir.Split(frontier)

	batch, err := call.Reader.FetchEdges(ctx, domain.EdgeQuery{
		Rel:  call.Rel,
		From: from,
		To:   to,
		AsOf: req.AsOf,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]step, len(frontier))

	for i := range batch {
		edge := &batch[i]

		v, ok := 0.0, false
		if weight != "" {
			v, ok = edge.Weight(weight)
		}

		dir.Step(edge, func(id string) bool { return seen[id] }, func(p, c string) {
			out[p] = append(out[p], step{child: c, value: v, ok: ok})
		})
	}

	return out, nil
}

// fold combines a path's running value with one more edge value. A path
// with no value yet takes the edge value as-is.
func fold(op models.AggregateOp, cur float64, set bool, v float64) float64 {
	if !set {
		return v
	}

	switch op {
	case models.AggMultiply:
		return cur * v
	case models.AggMax:
		return math.Max(cur, v)
	case models.AggMin:
		return math.Min(cur, v)
	default:
		return cur + v
	}
}

// merge folds one path arriving at s.node into the node's aggregate.
func merge(op models.AggregateOp, nodes map[string]*acc, s *pathState) {
	a, ok := nodes[s.node]
	if !ok {
		a = &acc{minDepth: s.depth}
		nodes[s.node] = a
	}

	a.paths++
	a.minDepth = min(a.minDepth, s.depth)

	if !s.set {
		return
	}

	switch {
	case !a.set:
		a.value = s.value
	case op == models.AggMax:
		a.value = math.Max(a.value, s.value)
	case op == models.AggMin:
		a.value = math.Min(a.value, s.value)
	default:
		a.value += s.value
	}

	a.set = true
}
