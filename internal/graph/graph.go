// Package graph is the transient in-memory graph the subgraph loader
// materializes and the pathfinding and network engines run on.
//
// Nodes and edges live in flat slices addressed by compact integer indexes
// assigned at load time, so cycles and diamonds need no pointer links. A
// Graph is built once and then only read; it is safe for concurrent readers.
package graph

import (
	"github.com/persistorai/relgraph/internal/models"
)

// Edge is a stored edge between two node indexes.
type Edge struct {
	From, To int
	Data     models.Edge
}

// Graph is an arena-backed directed multigraph.
type Graph struct {
	ids   []string
	index map[string]int
	edges []Edge
	out   [][]int
	in    [][]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds id if absent and returns its index.
func (g *Graph) AddNode(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}

	i := len(g.ids)
	g.ids = append(g.ids, id)
	g.index[id] = i
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)

	return i
}

// AddEdge adds e, adding its endpoints as needed, and returns its index.
func (g *Graph) AddEdge(e models.Edge) int {
	from := g.AddNode(e.From)
	to := g.AddNode(e.To)

	i := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Data: e})
	g.out[from] = append(g.out[from], i)
	g.in[to] = append(g.in[to], i)

	return i
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of stored edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// ID returns the node id at index i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// IDs maps indexes to node ids.
func (g *Graph) IDs(idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = g.ids[i]
	}

	return out
}

// Index returns the index of id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]

	return i, ok
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]

	return ok
}

// Nodes returns every node id in index order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.ids...)
}

// Edge returns the edge at index i.
func (g *Graph) Edge(i int) *Edge { return &g.edges[i] }

// Out returns the indexes of edges leaving node i.
func (g *Graph) Out(i int) []int { return g.out[i] }

// In returns the indexes of edges entering node i.
func (g *Graph) In(i int) []int { return g.in[i] }

// Arc is one way out of a node: the edge used and the node reached.
type Arc struct {
	Edge int
	Node int
}

// Arcs returns the ways out of node i. Undirected walks follow edges in
// both orientations; Reverse walks them to→from only.
func (g *Graph) Arcs(i int, undirected, reverse bool) []Arc {
	var arcs []Arc

	if !reverse || undirected {
		for _, e := range g.out[i] {
			arcs = append(arcs, Arc{Edge: e, Node: g.edges[e].To})
		}
	}

	if reverse || undirected {
		for _, e := range g.in[i] {
			arcs = append(arcs, Arc{Edge: e, Node: g.edges[e].From})
		}
	}

	return arcs
}

// Neighbors returns the distinct nodes adjacent to i, self excluded.
func (g *Graph) Neighbors(i int, undirected bool) []int {
	seen := make(map[int]bool)

	var out []int

	for _, a := range g.Arcs(i, undirected, false) {
		if a.Node != i && !seen[a.Node] {
			seen[a.Node] = true
			out = append(out, a.Node)
		}
	}

	return out
}

// Without returns a copy of g with the named nodes and their edges removed.
// Unknown ids are ignored.
func (g *Graph) Without(ids ...string) *Graph {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	out := New()

	for _, id := range g.ids {
		if !drop[id] {
			out.AddNode(id)
		}
	}

	for _, e := range g.edges {
		if !drop[e.Data.From] && !drop[e.Data.To] {
			out.AddEdge(e.Data)
		}
	}

	return out
}

// Density is the ratio of distinct adjacent pairs to possible pairs.
// Parallel edges and self-loops are not counted.
func (g *Graph) Density(undirected bool) float64 {
	n := len(g.ids)
	if n < 2 {
		return 0
	}

	pairs := make(map[[2]int]bool, len(g.edges))

	for _, e := range g.edges {
		if e.From == e.To {
			continue
		}

		p := [2]int{e.From, e.To}
		if undirected && p[0] > p[1] {
			p[0], p[1] = p[1], p[0]
		}

		pairs[p] = true
	}

	possible := float64(n) * float64(n-1)
	if undirected {
		possible /= 2
	}

	return float64(len(pairs)) / possible
}

// Stats summarizes g. Components counts weakly connected components.
func (g *Graph) Stats(undirected bool) models.GraphStats {
	return models.GraphStats{
		Nodes:      g.NodeCount(),
		Edges:      g.EdgeCount(),
		Density:    g.Density(undirected),
		Components: len(WeakComponents(g)),
	}
}
