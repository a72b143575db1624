// Package pathfind answers shortest-path questions over a bidirectionally
// materialized subgraph.
package pathfind

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/engine"
	"github.com/persistorai/relgraph/internal/graph"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
	"github.com/persistorai/relgraph/internal/subgraph"
)

// DefaultMaxPaths caps AllShortestPaths when the request leaves it unset.
const DefaultMaxPaths = 10

// Compile-time check: *Engine must satisfy domain.PathService.
var _ domain.PathService = (*Engine)(nil)

// Engine finds shortest paths.
type Engine struct {
	engine.Base
}

// New creates an Engine.
func New(source domain.Source, mapping *ontology.Mapping, g *guard.Guard, log *logrus.Logger) *Engine {
	return &Engine{Base: engine.Base{Source: source, Mapping: mapping, Guard: g, Log: log}}
}

// search is a prepared request: the loaded graph with exclusions removed and
// the shortest-path tree from the start.
type search struct {
	g       *graph.Graph
	tree    *graph.Tree
	end     int
	blocked string
}

// ShortestPath returns one minimal path from req.Start to req.End. A missing
// path is reported with NoPath set, not as an error.
func (e *Engine) ShortestPath(ctx context.Context, req models.PathRequest) (res *models.ShortestPathResult, err error) {
	ctx, call, err := e.begin(ctx, "shortest_path", req)
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	s, err := prepare(ctx, call, req)
	if err != nil {
		return nil, err
	}

	res = &models.ShortestPathResult{
		Start:         req.Start,
		End:           req.End,
		Edges:         []models.Edge{},
		WeightColumn:  req.WeightColumn,
		NodesExplored: len(s.tree.Order),
	}

	if !s.reachable() {
		res.NoPath = true
		res.Message = s.noPath(req)
		call.Event("no_path")

		return res, nil
	}

	p, _ := s.tree.PathTo(s.end)
	res.Path = s.g.IDs(p.Nodes)
	res.Distance = p.Distance
	res.Hops = len(p.Edges)
	res.Edges = s.edges(p)

	call.Event("path_found", attribute.Int("hops", res.Hops), attribute.Float64("distance", res.Distance))

	return res, nil
}

// AllShortestPaths returns every path tied for the minimal distance, at most
// req.MaxPaths of them.
func (e *Engine) AllShortestPaths(ctx context.Context, req models.PathRequest) (res *models.AllShortestPathsResult, err error) {
	ctx, call, err := e.begin(ctx, "all_shortest_paths", req)
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	if req.MaxPaths < 0 {
		return nil, fmt.Errorf("%w: max_paths must not be negative", models.ErrInvalidRequest)
	}

	limit := req.MaxPaths
	if limit == 0 {
		limit = DefaultMaxPaths
	}

	if limit > call.Limits.MaxResults {
		return nil, &models.SafetyLimitError{
			Limit:          models.LimitMaxResults,
			Ceiling:        call.Limits.MaxResults,
			Requested:      limit,
			Recommendation: models.RecommendAbort,
			Preflight:      true,
		}
	}

	s, err := prepare(ctx, call, req)
	if err != nil {
		return nil, err
	}

	res = &models.AllShortestPathsResult{
		Start:         req.Start,
		End:           req.End,
		Paths:         [][]string{},
		EdgePaths:     [][]models.Edge{},
		WeightColumn:  req.WeightColumn,
		NodesExplored: len(s.tree.Order),
	}

	if !s.reachable() {
		res.NoPath = true
		res.Message = s.noPath(req)
		call.Event("no_path")

		return res, nil
	}

	paths, truncated := s.tree.PathsTo(s.g, s.end, limit)
	for _, p := range paths {
		res.Paths = append(res.Paths, s.g.IDs(p.Nodes))
		res.EdgePaths = append(res.EdgePaths, s.edges(p))
	}

	res.Distance = s.tree.Dist[s.end]
	res.Truncated = truncated

	if truncated {
		res.Message = fmt.Sprintf("more than %d shortest paths exist", limit)
	}

	call.Event("paths_found", attribute.Int("paths", len(paths)), attribute.Bool("truncated", truncated))

	return res, nil
}

func (e *Engine) begin(ctx context.Context, op string, req models.PathRequest) (context.Context, *engine.Call, error) {
	return e.Begin(ctx, engine.Scope{
		Op:           op,
		Relationship: req.Relationship,
		Overrides:    req.Limits,
		Require:      []ontology.OpCategory{ontology.OpRecursiveTraversal, ontology.OpTemporalTraversal, ontology.OpAlgorithm},
		AsOf:         req.AsOf,
	})
}

// prepare validates req, loads the subgraph between the endpoints without
// the excluded nodes and runs the single-source search from the start.
func prepare(ctx context.Context, call *engine.Call, req models.PathRequest) (*search, error) {
	switch {
	case req.Start == "":
		return nil, models.ErrMissingStart
	case req.End == "":
		return nil, models.ErrMissingEnd
	}

	if req.WeightColumn != "" {
		if _, err := call.Rel.Weight(req.WeightColumn); err != nil {
			return nil, err
		}
	}

	depth, err := call.CheckDepth(req.MaxDepth, call.Limits.MaxDepth)
	if err != nil {
		return nil, err
	}

	if err := call.RequireNodes(ctx, call.Rel.Domain(), req.Start, req.End); err != nil {
		return nil, err
	}

	s := &search{}
	o := graph.Options{Weight: req.WeightColumn, Undirected: req.Undirected}

	for _, id := range req.Exclude {
		if id == req.Start || id == req.End {
			s.blocked = id

			break
		}
	}

	if s.blocked != "" {
		s.g = graph.New()
		start := s.g.AddNode(req.Start)
		s.end = s.g.AddNode(req.End)
		s.tree = graph.ShortestTree(s.g, start, o)

		return s, nil
	}

	loaded, err := subgraph.New(call).LoadBetween(ctx, subgraph.BetweenRequest{
		Start:      req.Start,
		End:        req.End,
		MaxDepth:   depth,
		Weighted:   req.WeightColumn != "",
		Undirected: req.Undirected,
		AsOf:       req.AsOf,
		Exclude:    req.Exclude,
	})
	if err != nil {
		return nil, err
	}

	s.g = loaded

	start, _ := s.g.Index(req.Start)
	s.end, _ = s.g.Index(req.End)
	s.tree = graph.ShortestTree(s.g, start, o)

	call.Log.WithFields(logrus.Fields{
		"start":    req.Start,
		"end":      req.End,
		"nodes":    s.g.NodeCount(),
		"edges":    s.g.EdgeCount(),
		"excluded": len(req.Exclude),
		"explored": len(s.tree.Order),
	}).Debug("pathfind.search")

	return s, nil
}

// reachable reports whether a path exists. An excluded endpoint has none,
// even when start and end coincide.
func (s *search) reachable() bool {
	return s.blocked == "" && s.tree.Reached(s.end)
}

func (s *search) edges(p graph.Path) []models.Edge {
	out := make([]models.Edge, len(p.Edges))
	for i, e := range p.Edges {
		out[i] = s.g.Edge(e).Data
	}

	return out
}

func (s *search) noPath(req models.PathRequest) string {
	switch {
	case s.blocked != "":
		return fmt.Sprintf("endpoint %s is excluded", s.blocked)
	case len(req.Exclude) > 0:
		return fmt.Sprintf("no path from %s to %s avoiding the excluded nodes", req.Start, req.End)
	}

	return fmt.Sprintf("no path from %s to %s", req.Start, req.End)
}
