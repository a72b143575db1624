package network

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/relgraph/internal/engine"
	"github.com/persistorai/relgraph/internal/graph"
	"github.com/persistorai/relgraph/internal/models"
)

// connectivity is the weak-component picture of one graph.
type connectivity struct {
	count   int
	largest int
	// comp maps node id to component number.
	comp map[string]int
}

func measure(g *graph.Graph, skip string) connectivity {
	c := connectivity{comp: make(map[string]int, g.NodeCount())}

	for _, members := range graph.WeakComponents(g) {
		if len(members) == 1 && g.ID(members[0]) == skip {
			continue
		}

		for _, i := range members {
			c.comp[g.ID(i)] = c.count
		}

		c.count++
		c.largest = max(c.largest, len(members))
	}

	return c
}

// Resilience simulates removing req.Node from the in-memory graph and
// reports how connectivity changes. The removed node's own singleton
// component is never counted, so removing an isolated node changes nothing.
func (e *Engine) Resilience(ctx context.Context, req models.ResilienceRequest) (res *models.ResilienceResult, err error) {
	ctx, call, err := e.begin(ctx, "resilience", req.Relationship, req.Limits, req.AsOf)
	if err != nil {
		return nil, err
	}

	defer func() { res, err = engine.Finish(ctx, call, res, err) }()

	if req.Node == "" {
		return nil, models.ErrMissingStart
	}

	if err := call.RequireNodes(ctx, call.Rel.Domain(), req.Node); err != nil {
		return nil, err
	}

	g, err := load(ctx, call, scope{asOf: req.AsOf})
	if err != nil {
		return nil, err
	}

	g.AddNode(req.Node)

	var (
		before, after connectivity
		cut           graph.CutSet
		h             *graph.Graph
	)

	var eg errgroup.Group

	eg.Go(func() error {
		before = measure(g, req.Node)

		return nil
	})

	eg.Go(func() error {
		h = g.Without(req.Node)
		after = measure(h, "")

		return nil
	})

	eg.Go(func() error {
		cut = graph.Articulation(g)

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := models.ContextError(ctx.Err()); err != nil {
		return nil, err
	}

	res = &models.ResilienceResult{
		Relationship:     call.Rel.Name,
		Node:             req.Node,
		ComponentsBefore: before.count,
		ComponentsAfter:  after.count,
		ComponentDelta:   after.count - before.count,
		NewlyIsolated:    newlyIsolated(g, h),
		LargestBefore:    before.largest,
		LargestAfter:     after.largest,
		Stats:            g.Stats(true),
	}

	idx, _ := g.Index(req.Node)
	for _, p := range cut.Points {
		if p == idx {
			res.IsArticulation = true
		}
	}

	pairs, total := disconnected(before, after, req.Node, call.Limits.MaxResults)
	res.DisconnectedPairs = pairs

	switch {
	case len(g.Neighbors(idx, true)) == 0:
		res.Message = fmt.Sprintf("%s has no edges; removing it changes nothing", req.Node)
	case total > len(pairs):
		res.Message = fmt.Sprintf("%d pairs disconnected; first %d listed", total, len(pairs))
	}

	call.Log.WithFields(logrus.Fields{
		"node":   req.Node,
		"before": before.count,
		"after":  after.count,
		"pairs":  total,
	}).Debug("network.resilience")

	call.Event("resilience_complete", attribute.Int("delta", res.ComponentDelta), attribute.Int("pairs", total))

	return res, nil
}

// disconnected lists pairs that shared a component before the removal and
// do not after, at most limit of them, sorted. It also returns the total.
func disconnected(before, after connectivity, removed string, limit int) ([][2]string, int) {
	// before component -> after component -> members
	groups := make(map[int]map[int][]string)

	for id, b := range before.comp {
		if id == removed {
			continue
		}

		if groups[b] == nil {
			groups[b] = make(map[int][]string)
		}

		a := after.comp[id]
		groups[b][a] = append(groups[b][a], id)
	}

	var splits [][][]string

	total := 0

	for _, parts := range groups {
		if len(parts) < 2 {
			continue
		}

		var split [][]string

		seen := 0

		for _, members := range parts {
			sort.Strings(members)
			split = append(split, members)
			total += seen * len(members)
			seen += len(members)
		}

		sort.Slice(split, func(i, j int) bool { return split[i][0] < split[j][0] })
		splits = append(splits, split)
	}

	sort.Slice(splits, func(i, j int) bool { return splits[i][0][0] < splits[j][0][0] })

	pairs := [][2]string{}

collect:
	for _, split := range splits {
		for i := range split {
			for j := i + 1; j < len(split); j++ {
				for _, u := range split[i] {
					for _, v := range split[j] {
						if len(pairs) == limit {
							break collect
						}

						a, b := u, v
						if b < a {
							a, b = b, a
						}

						pairs = append(pairs, [2]string{a, b})
					}
				}
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}

		return pairs[i][1] < pairs[j][1]
	})

	return pairs, total
}

// newlyIsolated returns nodes that had a neighbor in g and have none in h.
func newlyIsolated(g, h *graph.Graph) []string {
	out := []string{}

	for i := range h.NodeCount() {
		if len(h.Neighbors(i, true)) > 0 {
			continue
		}

		if j, ok := g.Index(h.ID(i)); ok && len(g.Neighbors(j, true)) > 0 {
			out = append(out, h.ID(i))
		}
	}

	sort.Strings(out)

	return out
}
