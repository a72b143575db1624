// Package guard implements the pre-flight safety check every expensive graph
// operation runs before it touches more than a few levels of an edge table.
//
// The guard samples the first levels of the requested traversal with small
// bounded queries, extrapolates the branching factor geometrically to the
// requested depth, inflates the result by a safety margin and compares it
// with the configured ceilings.
package guard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/metrics"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

// Sampling bounds. A sampled level expands at most sampleFrontierCap nodes
// and first reads at most sampleEdgeLimit rows; larger frontiers are scaled
// up and a level that fills the row limit is re-read up to the node ceiling.
const (
	sampleFrontierCap = 256
	sampleEdgeLimit   = 2000
	// subgraphFactor is how far past the node ceiling a query may be
	// estimated and still be worth handing to a bounded subgraph algorithm.
	subgraphFactor = 10
	maxProjection  = 1e15
)

// Guard compares size estimates with an immutable set of ceilings.
type Guard struct {
	limits models.Limits
	log    *logrus.Logger
}

// New creates a Guard.
func New(limits models.Limits, log *logrus.Logger) *Guard {
	return &Guard{limits: limits, log: log}
}

// Limits returns the guard's ceilings.
func (g *Guard) Limits() models.Limits { return g.limits }

// WithLimits returns a guard enforcing l instead.
func (g *Guard) WithLimits(l models.Limits) *Guard {
	return &Guard{limits: l, log: g.log}
}

// EstimateRequest describes the traversal to sample.
type EstimateRequest struct {
	Rel         *ontology.Relationship
	Start       string
	Direction   models.Direction
	AsOf        *time.Time
	TargetDepth int
	// SampleDepth overrides the guard's sample depth when positive.
	SampleDepth int
}

// EstimateReachable samples the first levels from req.Start and extrapolates
// the number of nodes reachable within req.TargetDepth, excluding the start.
//
// A missing start node or an empty table samples as an empty level and
// yields a zero estimate. Store failures are returned: the read-only
// transaction they happened in cannot serve the operation anyway.
func (g *Guard) EstimateReachable(ctx context.Context, r domain.Reader, req EstimateRequest) (*models.Estimate, error) {
	est := &models.Estimate{
		Relationship: req.Rel.Name,
		Start:        req.Start,
		TargetDepth:  req.TargetDepth,
		Margin:       g.limits.SafetyMargin,
	}

	if dom := req.Rel.Domain(); dom != nil && dom.RowCountHint > 0 {
		est.Cap = int(dom.RowCountHint - 1)
	}

	levels, exhausted, err := g.sample(ctx, r, req)
	if err != nil {
		if cerr := models.ContextError(ctx.Err()); cerr != nil {
			return nil, cerr
		}

		g.log.WithError(err).WithFields(logrus.Fields{
			"relationship": req.Rel.Name,
			"start":        req.Start,
		}).Warn("guard.estimate failed")

		return nil, err
	}

	est.LevelSizes = levels
	est.SampledLevels = len(levels)
	est.Exhausted = exhausted
	est.BranchingFactor = branching(levels, exhausted)
	est.SetProjection(project(levels, est.BranchingFactor, exhausted, req.TargetDepth))
	est.EstimatedNodes = est.AtDepth(req.TargetDepth)

	g.log.WithFields(logrus.Fields{
		"relationship": req.Rel.Name,
		"start":        req.Start,
		"levels":       levels,
		"branching":    est.BranchingFactor,
		"depth":        req.TargetDepth,
		"estimate":     est.EstimatedNodes,
		"exhausted":    exhausted,
	}).Debug("guard.estimate")

	return est, nil
}

// sample expands up to SampleDepth levels and returns the estimated number
// of new nodes at each. exhausted is true when the frontier emptied.
func (g *Guard) sample(ctx context.Context, r domain.Reader, req EstimateRequest) ([]int, bool, error) {
	depth := req.SampleDepth
	if depth <= 0 {
		depth = g.limits.SampleDepth
	}

	if req.TargetDepth > 0 && req.TargetDepth < depth {
		depth = req.TargetDepth
	}

	visited := map[string]bool{req.Start: true}
	frontier := []string{req.Start}
	scale := 1.0
	truncated := false

	var levels []int

	for level := 0; level < depth; level++ {
		if len(frontier) == 0 {
			return levels, !truncated, nil
		}

		if len(frontier) > sampleFrontierCap {
			sort.Strings(frontier)
			scale *= float64(len(frontier)) / sampleFrontierCap
			frontier = frontier[:sampleFrontierCap]
			truncated = true
		}

		from, to := req.Direction.Split(frontier)

		edges, err := r.FetchEdges(ctx, domain.EdgeQuery{
			Rel:   req.Rel,
			From:  from,
			To:    to,
			AsOf:  req.AsOf,
			Limit: sampleEdgeLimit,
		})
		if err != nil {
			return levels, false, fmt.Errorf("sampling level %d: %w", level+1, err)
		}

		saturated := false

		if len(edges) >= sampleEdgeLimit {
			truncated = true

			if edges, saturated, err = g.measure(ctx, r, req, from, to, edges); err != nil {
				return levels, false, fmt.Errorf("measuring level %d: %w", level+1, err)
			}
		}

		inFrontier := set(frontier)

		var next []string

		for i := range edges {
			req.Direction.Step(&edges[i], func(id string) bool { return inFrontier[id] }, func(_, child string) {
				if !visited[child] {
					visited[child] = true
					next = append(next, child)
				}
			})
		}

		size := len(next)
		if saturated {
			size = max(size, g.limits.MaxNodes+1)
		}

		levels = append(levels, int(math.Ceil(float64(size)*scale)))
		frontier = next
	}

	return levels, len(frontier) == 0 && !truncated, nil
}

// measure re-reads a level that filled the sample row limit, bounded by the
// node ceiling. saturated reports that even the bounded read filled up, so
// the level alone is over the ceiling.
func (g *Guard) measure(ctx context.Context, r domain.Reader, req EstimateRequest, from, to []string, sampled []models.Edge) ([]models.Edge, bool, error) {
	limit := g.limits.MaxNodes + 1
	if limit <= sampleEdgeLimit {
		return sampled, true, nil
	}

	edges, err := r.FetchEdges(ctx, domain.EdgeQuery{
		Rel:   req.Rel,
		From:  from,
		To:    to,
		AsOf:  req.AsOf,
		Limit: limit,
	})
	if err != nil {
		return nil, false, err
	}

	return edges, len(edges) >= limit, nil
}

// branching is the geometric mean growth per level over the sampled levels.
func branching(levels []int, exhausted bool) float64 {
	if len(levels) == 0 || exhausted {
		return 0
	}

	last := levels[len(levels)-1]
	if last <= 0 {
		return 0
	}

	return math.Pow(float64(last), 1/float64(len(levels)))
}

// project returns the cumulative node count per depth (index 0 = depth 1):
// sampled levels as measured, later levels growing geometrically by b.
func project(levels []int, b float64, exhausted bool, depth int) []float64 {
	n := max(depth, len(levels))
	out := make([]float64, n)

	cum := 0.0
	level := 0.0

	for d := range n {
		switch {
		case d < len(levels):
			level = float64(levels[d])
		case exhausted:
			level = 0
		default:
			level *= b
		}

		cum = math.Min(cum+level, maxProjection)
		out[d] = cum
	}

	return out
}

// CheckGuards turns an estimate into a decision for requestedDepth.
// requestedMaxNodes overrides the node ceiling when positive.
func (g *Guard) CheckGuards(est *models.Estimate, requestedDepth, requestedMaxNodes int) models.GuardDecision {
	d := g.decide(est, requestedDepth, requestedMaxNodes)
	metrics.GuardDecisions.WithLabelValues(string(d.Recommendation)).Inc()

	return d
}

func (g *Guard) decide(est *models.Estimate, depth, maxNodes int) models.GuardDecision {
	if maxNodes <= 0 {
		maxNodes = g.limits.MaxNodes
	}

	if depth > g.limits.MaxDepth {
		return models.GuardDecision{
			Recommendation: models.RecommendReduceDepth,
			Reason:         fmt.Sprintf("depth %d exceeds the ceiling of %d", depth, g.limits.MaxDepth),
			EstimatedNodes: est.AtDepth(g.limits.MaxDepth),
			SuggestedDepth: g.limits.MaxDepth,
			Ceiling:        g.limits.MaxDepth,
			Limit:          models.LimitMaxDepth,
		}
	}

	n := est.AtDepth(depth)
	if n <= maxNodes {
		return models.GuardDecision{
			SafeToProceed:  true,
			Recommendation: models.RecommendProceed,
			Reason:         fmt.Sprintf("estimated %d nodes within the ceiling of %d", n, maxNodes),
			EstimatedNodes: n,
			Ceiling:        maxNodes,
			Limit:          models.LimitMaxNodes,
		}
	}

	dec := models.GuardDecision{
		EstimatedNodes: n,
		Ceiling:        maxNodes,
		Limit:          models.LimitMaxNodes,
	}

	for fit := depth - 1; fit >= 1; fit-- {
		if est.AtDepth(fit) <= maxNodes {
			dec.Recommendation = models.RecommendReduceDepth
			dec.SuggestedDepth = fit
			dec.Reason = fmt.Sprintf("estimated %d nodes at depth %d; depth %d fits the ceiling of %d", n, depth, fit, maxNodes)

			return dec
		}
	}

	if n <= subgraphFactor*maxNodes {
		dec.Recommendation = models.RecommendSwitchToSubgraph
		dec.Reason = fmt.Sprintf("estimated %d nodes exceeds the ceiling of %d; use a bounded subgraph algorithm", n, maxNodes)

		return dec
	}

	dec.Recommendation = models.RecommendAbort
	dec.Reason = fmt.Sprintf("estimated %d nodes is far beyond the ceiling of %d; add constraints", n, maxNodes)

	return dec
}

// Preflight estimates and checks in one step. A rejection is returned as a
// *models.SafetyLimitError carrying the estimate; the estimate itself is
// returned either way.
func (g *Guard) Preflight(ctx context.Context, r domain.Reader, req EstimateRequest) (*models.Estimate, error) {
	est, err := g.EstimateReachable(ctx, r, req)
	if err != nil {
		return nil, err
	}

	d := g.CheckGuards(est, req.TargetDepth, 0)
	if d.SafeToProceed {
		return est, nil
	}

	g.log.WithFields(logrus.Fields{
		"relationship":   req.Rel.Name,
		"start":          req.Start,
		"depth":          req.TargetDepth,
		"estimate":       d.EstimatedNodes,
		"recommendation": d.Recommendation,
	}).Warn("guard rejected traversal")

	return est, d.Err(req.TargetDepth)
}

// CheckGlobal bounds a whole-relationship load by the edge ceiling. It
// returns the live edge count when it fits.
func (g *Guard) CheckGlobal(ctx context.Context, r domain.Reader, rel *ontology.Relationship, asOf *time.Time) (int, error) {
	n, err := r.CountEdges(ctx, rel, asOf, g.limits.MaxEdges+1)
	if err != nil {
		return 0, err
	}

	if n > g.limits.MaxEdges {
		metrics.GuardDecisions.WithLabelValues(string(models.RecommendAbort)).Inc()

		g.log.WithFields(logrus.Fields{
			"relationship": rel.Name,
			"edges":        n,
			"ceiling":      g.limits.MaxEdges,
		}).Warn("guard rejected whole-graph load")

		return n, &models.SafetyLimitError{
			Limit:          models.LimitMaxEdges,
			Ceiling:        g.limits.MaxEdges,
			Estimated:      n,
			Recommendation: models.RecommendAbort,
			Preflight:      true,
		}
	}

	metrics.GuardDecisions.WithLabelValues(string(models.RecommendProceed)).Inc()

	return n, nil
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}
