package graph

// WeakComponents returns the connected components of the undirected view of
// g, each in discovery order.
func WeakComponents(g *Graph) [][]int {
	n := g.NodeCount()
	seen := make([]bool, n)

	var comps [][]int

	for root := range n {
		if seen[root] {
			continue
		}

		seen[root] = true
		comp := []int{root}

		for k := 0; k < len(comp); k++ {
			for _, a := range g.Arcs(comp[k], true, false) {
				if !seen[a.Node] {
					seen[a.Node] = true
					comp = append(comp, a.Node)
				}
			}
		}

		comps = append(comps, comp)
	}

	return comps
}

// StrongComponents returns the strongly connected components of g using an
// iterative Tarjan walk, so deep graphs cannot overflow the goroutine stack.
func StrongComponents(g *Graph) [][]int {
	n := g.NodeCount()
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)

	for i := range index {
		index[i] = -1
	}

	type frame struct {
		v    int
		next int
	}

	var (
		comps [][]int
		stack []int
		calls []frame
		next  int
	)

	visit := func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		calls = append(calls, frame{v: v})
	}

	for root := range n {
		if index[root] != -1 {
			continue
		}

		visit(root)

		for len(calls) > 0 {
			f := &calls[len(calls)-1]
			v := f.v
			out := g.Out(v)

			if f.next < len(out) {
				w := g.Edge(out[f.next]).To
				f.next++

				switch {
				case index[w] == -1:
					visit(w)
				case onStack[w]:
					low[v] = min(low[v], index[w])
				}

				continue
			}

			calls = calls[:len(calls)-1]

			if len(calls) > 0 {
				p := calls[len(calls)-1].v
				low[p] = min(low[p], low[v])
			}

			if low[v] != index[v] {
				continue
			}

			var comp []int

			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)

				if w == v {
					break
				}
			}

			comps = append(comps, comp)
		}
	}

	return comps
}

// CutSet holds the articulation points and bridges of the undirected view.
type CutSet struct {
	Points  []int
	Bridges [][2]int
}

// Articulation finds cut vertices and bridges with an iterative Tarjan
// low-link walk. Parallel edges are distinct, so a doubled link is never a
// bridge; self-loops are ignored.
func Articulation(g *Graph) CutSet {
	n := g.NodeCount()
	disc := make([]int, n)
	low := make([]int, n)
	isPoint := make([]bool, n)

	for i := range disc {
		disc[i] = -1
	}

	adj := make([][]Arc, n)
	for v := range n {
		adj[v] = g.Arcs(v, true, false)
	}

	type frame struct {
		v        int
		via      int // edge index used to enter v, -1 at a root
		next     int
		children int
	}

	var (
		cs    CutSet
		calls []frame
		timer int
	)

	for root := range n {
		if disc[root] != -1 {
			continue
		}

		disc[root], low[root] = timer, timer
		timer++
		calls = append(calls, frame{v: root, via: -1})

		for len(calls) > 0 {
			f := &calls[len(calls)-1]

			if f.next < len(adj[f.v]) {
				a := adj[f.v][f.next]
				f.next++

				if a.Edge == f.via || a.Node == f.v {
					continue
				}

				if disc[a.Node] == -1 {
					f.children++
					disc[a.Node], low[a.Node] = timer, timer
					timer++
					calls = append(calls, frame{v: a.Node, via: a.Edge})
				} else {
					low[f.v] = min(low[f.v], disc[a.Node])
				}

				continue
			}

			done := *f
			calls = calls[:len(calls)-1]

			if len(calls) == 0 {
				if done.children > 1 {
					isPoint[done.v] = true
				}

				continue
			}

			p := &calls[len(calls)-1]
			low[p.v] = min(low[p.v], low[done.v])

			if low[done.v] > disc[p.v] {
				cs.Bridges = append(cs.Bridges, [2]int{p.v, done.v})
			}

			if p.via != -1 && low[done.v] >= disc[p.v] {
				isPoint[p.v] = true
			}
		}
	}

	for v, ok := range isPoint {
		if ok {
			cs.Points = append(cs.Points, v)
		}
	}

	return cs
}
