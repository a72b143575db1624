package network

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/persistorai/relgraph/internal/engine"
	"github.com/persistorai/relgraph/internal/graph"
	"github.com/persistorai/relgraph/internal/models"
)

// Component modes.
const (
	ModeWeak   = "weak"
	ModeStrong = "strong"
)

// ConnectedComponents groups nodes into weakly connected components, or
// strongly connected ones when req.Strong is set. Nodes without any edge are
// also listed in Isolated.
func (e *Engine) ConnectedComponents(ctx context.Context, req models.ComponentsRequest) (res *models.ConnectedComponentsResult, err error) {
	ctx, call, err := e.begin(ctx, "connected_components", req.Relationship, req.Limits, req.AsOf)
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	if req.MinSize < 0 {
		return nil, fmt.Errorf("%w: min_size must not be negative", models.ErrInvalidRequest)
	}

	g, err := load(ctx, call, scope{start: req.Start, depth: req.MaxDepth, asOf: req.AsOf})
	if err != nil {
		return nil, err
	}

	mode, comps := ModeWeak, graph.WeakComponents(g)
	if req.Strong {
		mode, comps = ModeStrong, graph.StrongComponents(g)
	}

	sets := sortComponents(g, comps)

	res = &models.ConnectedComponentsResult{
		Relationship: call.Rel.Name,
		Mode:         mode,
		Components:   []models.Component{},
		Isolated:     isolated(g),
		Total:        len(sets),
		Stats:        g.Stats(!req.Strong),
	}

	for _, ids := range sets {
		if len(ids) < req.MinSize {
			continue
		}

		res.Components = append(res.Components, models.Component{
			ID:    len(res.Components) + 1,
			Size:  len(ids),
			Nodes: ids,
		})
	}

	if n := len(res.Components); n > call.Limits.MaxResults {
		return nil, call.Trip(models.LimitMaxResults, call.Limits.MaxResults, n)
	}

	call.Event("components_complete",
		attribute.String("mode", mode),
		attribute.Int("total", res.Total),
		attribute.Int("reported", len(res.Components)),
	)

	return res, nil
}

// ArticulationPoints lists the cut vertices and bridges of the undirected
// view of the relationship.
func (e *Engine) ArticulationPoints(ctx context.Context, req models.ComponentsRequest) (res *models.ArticulationResult, err error) {
	ctx, call, err := e.begin(ctx, "articulation_points", req.Relationship, req.Limits, req.AsOf)
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	g, err := load(ctx, call, scope{start: req.Start, depth: req.MaxDepth, asOf: req.AsOf})
	if err != nil {
		return nil, err
	}

	cs := graph.Articulation(g)

	res = &models.ArticulationResult{
		Relationship: call.Rel.Name,
		Points:       g.IDs(cs.Points),
		Bridges:      make([][2]string, 0, len(cs.Bridges)),
		Stats:        g.Stats(true),
	}

	sort.Strings(res.Points)

	for _, b := range cs.Bridges {
		u, v := g.ID(b[0]), g.ID(b[1])
		if v < u {
			u, v = v, u
		}

		res.Bridges = append(res.Bridges, [2]string{u, v})
	}

	sort.Slice(res.Bridges, func(i, j int) bool {
		if res.Bridges[i][0] != res.Bridges[j][0] {
			return res.Bridges[i][0] < res.Bridges[j][0]
		}

		return res.Bridges[i][1] < res.Bridges[j][1]
	})

	if n := len(res.Points) + len(res.Bridges); n > call.Limits.MaxResults {
		return nil, call.Trip(models.LimitMaxResults, call.Limits.MaxResults, n)
	}

	call.Event("articulation_complete", attribute.Int("points", len(res.Points)), attribute.Int("bridges", len(res.Bridges)))

	return res, nil
}

// sortComponents maps components to sorted id lists, largest first and then
// by smallest id.
func sortComponents(g *graph.Graph, comps [][]int) [][]string {
	sets := make([][]string, len(comps))
	for i, c := range comps {
		sets[i] = g.IDs(c)
		sort.Strings(sets[i])
	}

	sort.Slice(sets, func(i, j int) bool {
		if len(sets[i]) != len(sets[j]) {
			return len(sets[i]) > len(sets[j])
		}

		return sets[i][0] < sets[j][0]
	})

	return sets
}

// isolated returns the sorted ids of nodes with no neighbor.
func isolated(g *graph.Graph) []string {
	out := []string{}

	for i := range g.NodeCount() {
		if len(g.Neighbors(i, true)) == 0 {
			out = append(out, g.ID(i))
		}
	}

	sort.Strings(out)

	return out
}
