package graph_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/relgraph/internal/graph"
	"github.com/persistorai/relgraph/internal/models"
)

func build(edges ...[3]any) *graph.Graph {
	g := graph.New()

	for _, e := range edges {
		edge := models.Edge{From: e[0].(string), To: e[1].(string)}
		if w, ok := e[2].(float64); ok {
			edge.Weights = map[string]float64{"w": w}
		}

		g.AddEdge(edge)
	}

	return g
}

func idx(t *testing.T, g *graph.Graph, id string) int {
	t.Helper()

	i, ok := g.Index(id)
	require.True(t, ok, id)

	return i
}

func ids(g *graph.Graph, in []int) []string {
	out := g.IDs(in)
	sort.Strings(out)

	return out
}

func score(t *testing.T, g *graph.Graph, scores []float64, id string) float64 {
	t.Helper()

	return scores[idx(t, g, id)]
}

func TestArena(t *testing.T) {
	g := build([3]any{"A", "B", 1.0}, [3]any{"B", "C", 2.0}, [3]any{"A", "B", 3.0})
	g.AddNode("Z")

	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, []string{"A", "B", "C", "Z"}, g.Nodes())
	assert.Equal(t, []string{"B"}, g.IDs(g.Neighbors(idx(t, g, "A"), false)), "parallel edges collapse")
	assert.ElementsMatch(t, []string{"A", "C"}, g.IDs(g.Neighbors(idx(t, g, "B"), true)))

	h := g.Without("B", "missing")
	assert.Equal(t, 3, h.NodeCount())
	assert.Zero(t, h.EdgeCount())
	assert.True(t, g.Has("B"), "the original is untouched")
}

func TestDensity(t *testing.T) {
	g := build([3]any{"A", "B", nil}, [3]any{"B", "A", nil}, [3]any{"B", "C", nil}, [3]any{"C", "C", nil})

	assert.InDelta(t, 3.0/6.0, g.Density(false), 1e-9)
	assert.InDelta(t, 2.0/3.0, g.Density(true), 1e-9)
	assert.Zero(t, graph.New().Density(true))
}

func TestShortestTree(t *testing.T) {
	g := build([3]any{"A", "B", 5.0}, [3]any{"B", "C", 7.0}, [3]any{"A", "C", 20.0}, [3]any{"C", "D", nil})
	a, c, d := idx(t, g, "A"), idx(t, g, "C"), idx(t, g, "D")

	weighted := graph.ShortestTree(g, a, graph.Options{Weight: "w"})
	p, ok := weighted.PathTo(c)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, g.IDs(p.Nodes))
	assert.InDelta(t, 12.0, p.Distance, 1e-9)
	assert.Len(t, p.Edges, 2)
	assert.False(t, weighted.Reached(d), "a NULL weight is not traversable")

	hops := graph.ShortestTree(g, a, graph.Options{})
	p, ok = hops.PathTo(d)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C", "D"}, g.IDs(p.Nodes))
	assert.InDelta(t, 2.0, p.Distance, 1e-9)

	back := graph.ShortestTree(g, c, graph.Options{})
	assert.False(t, back.Reached(a), "directed search ignores reverse edges")

	undirected := graph.ShortestTree(g, c, graph.Options{Undirected: true})
	assert.True(t, undirected.Reached(a))

	reverse := graph.ShortestTree(g, c, graph.Options{Reverse: true})
	assert.True(t, reverse.Reached(a))
	assert.False(t, reverse.Reached(d))
}

func TestPathsTo(t *testing.T) {
	g := build(
		[3]any{"A", "B", 1.0}, [3]any{"B", "D", 1.0},
		[3]any{"A", "C", 1.0}, [3]any{"C", "D", 1.0},
		[3]any{"A", "D", 2.5},
		[3]any{"A", "B", 1.0},
	)
	a, d := idx(t, g, "A"), idx(t, g, "D")
	tree := graph.ShortestTree(g, a, graph.Options{Weight: "w"})

	paths, truncated := tree.PathsTo(g, d, 0)
	require.Len(t, paths, 2, "the parallel A->B edge does not add a path")
	assert.False(t, truncated)
	assert.Equal(t, []string{"A", "B", "D"}, g.IDs(paths[0].Nodes))
	assert.Equal(t, []string{"A", "C", "D"}, g.IDs(paths[1].Nodes))

	for _, p := range paths {
		assert.InDelta(t, 2.0, p.Distance, 1e-9)
	}

	paths, truncated = tree.PathsTo(g, d, 1)
	assert.Len(t, paths, 1)
	assert.True(t, truncated)
}

func TestDegree(t *testing.T) {
	g := build([3]any{"A", "B", 2.0}, [3]any{"B", "C", 4.0})

	plain := graph.Degree(g, "")
	assert.InDelta(t, 1.0, score(t, g, plain, "B"), 1e-9)
	assert.InDelta(t, 0.5, score(t, g, plain, "A"), 1e-9)

	weighted := graph.Degree(g, "w")
	assert.InDelta(t, 3.0, score(t, g, weighted, "B"), 1e-9)
}

func TestBetweenness(t *testing.T) {
	g := build([3]any{"A", "B", nil}, [3]any{"B", "C", nil})

	directed, err := graph.Betweenness(context.Background(), g, graph.Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score(t, g, directed, "B"), 1e-9)
	assert.Zero(t, score(t, g, directed, "A"))

	undirected, err := graph.Betweenness(context.Background(), g, graph.Options{Undirected: true})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score(t, g, undirected, "B"), 1e-9)

	// Star: the hub lies on every path between leaves.
	star := build([3]any{"H", "1", nil}, [3]any{"H", "2", nil}, [3]any{"H", "3", nil}, [3]any{"H", "4", nil})
	s, err := graph.Betweenness(context.Background(), star, graph.Options{Undirected: true})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score(t, star, s, "H"), 1e-9)
	assert.Zero(t, score(t, star, s, "1"))
}

func TestBetweenness_Canceled(t *testing.T) {
	g := build([3]any{"A", "B", nil}, [3]any{"B", "C", nil})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := graph.Betweenness(ctx, g, graph.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseness(t *testing.T) {
	g := build([3]any{"A", "B", nil}, [3]any{"B", "C", nil})

	undirected, err := graph.Closeness(context.Background(), g, graph.Options{Undirected: true})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score(t, g, undirected, "B"), 1e-9)
	assert.InDelta(t, 2.0/3.0, score(t, g, undirected, "A"), 1e-9)

	directed, err := graph.Closeness(context.Background(), g, graph.Options{})
	require.NoError(t, err)
	// C is reached by B at 1 and A at 2.
	assert.InDelta(t, 2.0/3.0, score(t, g, directed, "C"), 1e-9)
	assert.Zero(t, score(t, g, directed, "A"), "nothing reaches A")
}

func TestPageRank(t *testing.T) {
	cycle := build([3]any{"A", "B", nil}, [3]any{"B", "C", nil}, [3]any{"C", "A", nil})

	res, err := graph.PageRank(context.Background(), cycle, graph.Options{}, graph.DefaultDamping)
	require.NoError(t, err)
	assert.True(t, res.Converged)

	for _, s := range res.Scores {
		assert.InDelta(t, 1.0/3.0, s, 1e-6)
	}

	sink := build([3]any{"A", "C", nil}, [3]any{"B", "C", nil})
	res, err = graph.PageRank(context.Background(), sink, graph.Options{}, graph.DefaultDamping)
	require.NoError(t, err)

	total := 0.0
	for _, s := range res.Scores {
		total += s
	}

	assert.InDelta(t, 1.0, total, 1e-6, "dangling rank is redistributed")
	assert.Greater(t, score(t, sink, res.Scores, "C"), score(t, sink, res.Scores, "A"))
}

func TestComponents(t *testing.T) {
	g := build([3]any{"A", "B", nil}, [3]any{"B", "A", nil}, [3]any{"B", "C", nil}, [3]any{"X", "Y", nil})
	g.AddNode("lonely")

	weak := graph.WeakComponents(g)
	require.Len(t, weak, 3)
	assert.Equal(t, []string{"A", "B", "C"}, ids(g, weak[0]))
	assert.Equal(t, []string{"lonely"}, ids(g, weak[2]))

	strong := graph.StrongComponents(g)

	var sets [][]string
	for _, c := range strong {
		sets = append(sets, ids(g, c))
	}

	assert.ElementsMatch(t, [][]string{{"A", "B"}, {"C"}, {"X"}, {"Y"}, {"lonely"}}, sets)
}

func TestArticulation(t *testing.T) {
	path := build([3]any{"A", "B", nil}, [3]any{"B", "C", nil})
	cs := graph.Articulation(path)
	assert.Equal(t, []string{"B"}, ids(path, cs.Points))
	assert.Len(t, cs.Bridges, 2)

	triangle := build([3]any{"A", "B", nil}, [3]any{"B", "C", nil}, [3]any{"C", "A", nil})
	cs = graph.Articulation(triangle)
	assert.Empty(t, cs.Points)
	assert.Empty(t, cs.Bridges)

	doubled := build([3]any{"A", "B", nil}, [3]any{"B", "A", nil}, [3]any{"B", "C", nil})
	cs = graph.Articulation(doubled)
	assert.Equal(t, []string{"B"}, ids(doubled, cs.Points))
	require.Len(t, cs.Bridges, 1)
	assert.ElementsMatch(t, []string{"B", "C"}, doubled.IDs(cs.Bridges[0][:]))
}
