// Package network runs whole-graph analyses: centrality, connected
// components, articulation points and simulated node removal. Every analysis
// materializes its graph once through the subgraph loader and then works in
// memory; the relational store is never modified.
package network

import (
	"context"
	"fmt"
	"sort"
	"time"

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

// Defaults applied when a request leaves the bound unset.
const (
	DefaultTopN       = 10
	DefaultScopeDepth = 3
)

// Compile-time check: *Engine must satisfy domain.NetworkService.
var _ domain.NetworkService = (*Engine)(nil)

// Engine runs network analyses.
type Engine struct {
	engine.Base
}

// New creates an Engine.
func New(source domain.Source, mapping *ontology.Mapping, g *guard.Guard, log *logrus.Logger) *Engine {
	return &Engine{Base: engine.Base{Source: source, Mapping: mapping, Guard: g, Log: log}}
}

func (e *Engine) begin(ctx context.Context, op, rel string, o *models.LimitOverrides, asOf *time.Time) (context.Context, *engine.Call, error) {
	return e.Begin(ctx, engine.Scope{
		Op:           op,
		Relationship: rel,
		Overrides:    o,
		Require:      []ontology.OpCategory{ontology.OpAlgorithm},
		AsOf:         asOf,
	})
}

// scope selects what part of the relationship an analysis loads.
type scope struct {
	start string
	depth int
	asOf  *time.Time
}

// load materializes the whole relationship, or the neighborhood of s.start
// when one is given.
func load(ctx context.Context, call *engine.Call, s scope) (*graph.Graph, error) {
	l := subgraph.New(call)

	if s.start == "" {
		return l.LoadAll(ctx, subgraph.AllRequest{AsOf: s.asOf, Isolated: true})
	}

	depth, err := call.CheckDepth(s.depth, min(DefaultScopeDepth, call.Limits.MaxDepth))
	if err != nil {
		return nil, err
	}

	if err := call.RequireNodes(ctx, call.Rel.Domain(), s.start); err != nil {
		return nil, err
	}

	return l.LoadFrom(ctx, subgraph.FromRequest{
		Start:     s.start,
		Direction: models.Both,
		MaxDepth:  depth,
		AsOf:      s.asOf,
	})
}

// Centrality scores every node with the requested measure and returns the
// top N, highest first. Ties rank by node id.
func (e *Engine) Centrality(ctx context.Context, req models.CentralityRequest) (res *models.CentralityResult, err error) {
	ctx, call, err := e.begin(ctx, "centrality", req.Relationship, req.Limits, req.AsOf)
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	kind, err := models.ParseCentralityType(string(req.Type))
	if err != nil {
		return nil, err
	}

	topN := req.TopN
	switch {
	case topN < 0:
		return nil, fmt.Errorf("%w: top_n must not be negative", models.ErrInvalidRequest)
	case topN == 0:
		topN = DefaultTopN
	case topN > call.Limits.MaxResults:
		return nil, &models.SafetyLimitError{
			Limit:          models.LimitMaxResults,
			Ceiling:        call.Limits.MaxResults,
			Requested:      topN,
			Recommendation: models.RecommendAbort,
			Preflight:      true,
		}
	}

	if req.WeightColumn != "" {
		if _, err := call.Rel.Weight(req.WeightColumn); err != nil {
			return nil, err
		}
	}

	g, err := load(ctx, call, scope{start: req.Start, depth: req.MaxDepth, asOf: req.AsOf})
	if err != nil {
		return nil, err
	}

	res = &models.CentralityResult{
		Relationship: call.Rel.Name,
		Type:         kind,
		WeightColumn: req.WeightColumn,
		Stats:        g.Stats(req.Undirected),
	}

	o := graph.Options{Weight: req.WeightColumn, Undirected: req.Undirected}

	var scores []float64

	switch kind {
	case models.CentralityDegree:
		scores = graph.Degree(g, req.WeightColumn)
	case models.CentralityBetweenness:
		scores, err = graph.Betweenness(ctx, g, o)
	case models.CentralityCloseness:
		scores, err = graph.Closeness(ctx, g, o)
	case models.CentralityPageRank:
		var pr *graph.PageRankResult

		if pr, err = graph.PageRank(ctx, g, o, graph.DefaultDamping); err == nil {
			scores = pr.Scores
			res.Iterations = pr.Iterations
			res.Converged = pr.Converged
		}
	}

	if err != nil {
		return nil, fmt.Errorf("computing %s centrality: %w", kind, err)
	}

	res.Nodes = rank(g, scores, topN)

	call.Log.WithFields(logrus.Fields{
		"type":  kind,
		"nodes": g.NodeCount(),
		"edges": g.EdgeCount(),
	}).Debug("network.centrality")

	call.Event("centrality_complete", attribute.String("type", string(kind)), attribute.Int("nodes", g.NodeCount()))

	return res, nil
}

// rank orders scores descending, breaking ties by id, and keeps the first n.
func rank(g *graph.Graph, scores []float64, n int) []models.ScoredNode {
	out := make([]models.ScoredNode, len(scores))
	for i, s := range scores {
		out[i] = models.ScoredNode{ID: g.ID(i), Score: s}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		return out[i].ID < out[j].ID
	})

	if len(out) > n {
		out = out[:n]
	}

	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}
