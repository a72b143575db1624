package graph

import (
	"container/heap"
	"math"
	"slices"
	"strings"
)

// eps is the tolerance under which two accumulated distances are equal.
const eps = 1e-9

// Options controls a shortest-path search.
type Options struct {
	// Weight names the edge weight to minimize. Empty counts hops. Edges
	// whose weight is NULL, negative or NaN are not traversable.
	Weight     string
	Undirected bool
	// Reverse walks edges to→from, giving distances towards the source.
	Reverse bool
}

// Cost returns the cost of e and whether e may be traversed.
func (o Options) Cost(e *Edge) (float64, bool) {
	if o.Weight == "" {
		return 1, true
	}

	w, ok := e.Data.Weight(o.Weight)
	if !ok || w < 0 || math.IsNaN(w) {
		return 0, false
	}

	return w, true
}

// Tree is the single-source shortest-path DAG from Source.
type Tree struct {
	Source int
	Dist   []float64
	Hops   []int
	// Preds lists, per node, one arc per distinct predecessor on a shortest
	// path. Arc.Node is the predecessor.
	Preds [][]Arc
	// Order lists reached nodes in non-decreasing distance.
	Order []int
}

// Reached reports whether i is reachable from the source.
func (t *Tree) Reached(i int) bool { return !math.IsInf(t.Dist[i], 1) }

// ShortestTree runs breadth-first search when o counts hops and Dijkstra
// otherwise.
func ShortestTree(g *Graph, src int, o Options) *Tree {
	n := g.NodeCount()
	t := &Tree{
		Source: src,
		Dist:   make([]float64, n),
		Hops:   make([]int, n),
		Preds:  make([][]Arc, n),
		Order:  make([]int, 0, n),
	}

	for i := range t.Dist {
		t.Dist[i] = math.Inf(1)
	}

	t.Dist[src] = 0

	if o.Weight == "" {
		t.bfs(g, o)
	} else {
		t.dijkstra(g, o)
	}

	return t
}

func (t *Tree) bfs(g *Graph, o Options) {
	queue := []int{t.Source}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		t.Order = append(t.Order, u)

		for _, a := range g.Arcs(u, o.Undirected, o.Reverse) {
			v := a.Node
			if v == u {
				continue
			}

			switch d := t.Dist[u] + 1; {
			case math.IsInf(t.Dist[v], 1):
				t.Dist[v] = d
				t.Hops[v] = t.Hops[u] + 1
				t.Preds[v] = []Arc{{Edge: a.Edge, Node: u}}
				queue = append(queue, v)
			case t.Dist[v] == d:
				t.addPred(v, a.Edge, u)
			}
		}
	}
}

func (t *Tree) dijkstra(g *Graph, o Options) {
	settled := make([]bool, len(t.Dist))
	pq := &queue{{node: t.Source}}

	for pq.Len() > 0 {
		it := heap.Pop(pq).(item)
		u := it.node

		if settled[u] || it.dist > t.Dist[u] {
			continue
		}

		settled[u] = true
		t.Order = append(t.Order, u)

		for _, a := range g.Arcs(u, o.Undirected, o.Reverse) {
			v := a.Node
			if v == u || settled[v] {
				continue
			}

			w, ok := o.Cost(g.Edge(a.Edge))
			if !ok {
				continue
			}

			d := t.Dist[u] + w

			switch {
			case d < t.Dist[v]-eps:
				t.Dist[v] = d
				t.Hops[v] = t.Hops[u] + 1
				t.Preds[v] = []Arc{{Edge: a.Edge, Node: u}}
				heap.Push(pq, item{node: v, dist: d})
			case math.Abs(d-t.Dist[v]) <= eps:
				t.addPred(v, a.Edge, u)
				t.Hops[v] = min(t.Hops[v], t.Hops[u]+1)
			}
		}
	}
}

// addPred records u as another shortest-path predecessor of v. Parallel
// edges from the same predecessor count once.
func (t *Tree) addPred(v, edge, u int) {
	for _, p := range t.Preds[v] {
		if p.Node == u {
			return
		}
	}

	t.Preds[v] = append(t.Preds[v], Arc{Edge: edge, Node: u})
}

// Path is a node sequence from a source with the edges joining it.
type Path struct {
	Nodes    []int
	Edges    []int
	Distance float64
}

// PathTo returns one shortest path to dst, preferring the fewest hops.
func (t *Tree) PathTo(dst int) (Path, bool) {
	if !t.Reached(dst) {
		return Path{}, false
	}

	p := Path{Nodes: []int{dst}, Distance: t.Dist[dst]}

	for cur := dst; cur != t.Source; {
		best := t.Preds[cur][0]
		for _, a := range t.Preds[cur][1:] {
			if t.Hops[a.Node] < t.Hops[best.Node] {
				best = a
			}
		}

		p.Edges = append(p.Edges, best.Edge)
		p.Nodes = append(p.Nodes, best.Node)
		cur = best.Node
	}

	slices.Reverse(p.Nodes)
	slices.Reverse(p.Edges)

	return p, true
}

// PathsTo enumerates the shortest paths to dst, at most limit of them
// (limit <= 0: all). truncated is set when more paths exist. Paths are ordered
// by their node ids.
func (t *Tree) PathsTo(g *Graph, dst, limit int) (paths []Path, truncated bool) {
	if !t.Reached(dst) {
		return nil, false
	}

	type frame struct {
		node  int
		nodes []int
		edges []int
	}

	stack := []frame{{node: dst, nodes: []int{dst}}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node == t.Source {
			if limit > 0 && len(paths) == limit {
				truncated = true
				break
			}

			p := Path{
				Nodes:    slices.Clone(f.nodes),
				Edges:    slices.Clone(f.edges),
				Distance: t.Dist[dst],
			}
			slices.Reverse(p.Nodes)
			slices.Reverse(p.Edges)
			paths = append(paths, p)

			continue
		}

		preds := t.Preds[f.node]
		for k := len(preds) - 1; k >= 0; k-- {
			a := preds[k]
			stack = append(stack, frame{
				node:  a.Node,
				nodes: append(slices.Clone(f.nodes), a.Node),
				edges: append(slices.Clone(f.edges), a.Edge),
			})
		}
	}

	slices.SortFunc(paths, func(a, b Path) int {
		return strings.Compare(strings.Join(g.IDs(a.Nodes), "\x00"), strings.Join(g.IDs(b.Nodes), "\x00"))
	})

	return paths, truncated
}

type item struct {
	node int
	dist float64
}

// queue is a binary min-heap of tentative distances.
type queue []item

func (q queue) Len() int           { return len(q) }
func (q queue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q queue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)        { *q = append(*q, x.(item)) }

func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]

	return it
}
