package graph

import (
	"context"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PageRank defaults.
const (
	DefaultDamping       = 0.85
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
)

// Degree returns each node's degree divided by n-1. With a weight the
// degree is the sum of incident weights. Self-loops count twice.
func Degree(g *Graph, weight string) []float64 {
	n := g.NodeCount()
	scores := make([]float64, n)

	if n == 1 {
		scores[0] = 1

		return scores
	}

	o := Options{Weight: weight}

	for v := range n {
		for _, e := range g.Out(v) {
			if w, ok := o.Cost(g.Edge(e)); ok {
				scores[v] += w
			}
		}

		for _, e := range g.In(v) {
			if w, ok := o.Cost(g.Edge(e)); ok {
				scores[v] += w
			}
		}
	}

	for v := range scores {
		scores[v] /= float64(n - 1)
	}

	return scores
}

// Betweenness runs Brandes' algorithm from every source, in parallel, and
// normalizes by (n-1)(n-2). Undirected graphs count each pair from both ends.
func Betweenness(ctx context.Context, g *Graph, o Options) ([]float64, error) {
	n := g.NodeCount()
	scores := make([]float64, n)

	var mu sync.Mutex

	err := parallel(ctx, n, func(ctx context.Context, lo, hi int) error {
		local := make([]float64, n)
		sigma := make([]float64, n)
		delta := make([]float64, n)

		for s := lo; s < hi; s++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			t := ShortestTree(g, s, o)

			for _, v := range t.Order {
				sigma[v], delta[v] = 0, 0
			}

			sigma[s] = 1

			for _, v := range t.Order[1:] {
				for _, p := range t.Preds[v] {
					sigma[v] += sigma[p.Node]
				}
			}

			for k := len(t.Order) - 1; k > 0; k-- {
				w := t.Order[k]
				for _, p := range t.Preds[w] {
					delta[p.Node] += sigma[p.Node] / sigma[w] * (1 + delta[w])
				}

				local[w] += delta[w]
			}
		}

		mu.Lock()
		for v, x := range local {
			scores[v] += x
		}
		mu.Unlock()

		return nil
	})
	if err != nil {
		return nil, err
	}

	if n > 2 {
		scale := 1 / (float64(n-1) * float64(n-2))
		for v := range scores {
			scores[v] *= scale
		}
	}

	return scores, nil
}

// Closeness is the Wasserman-Faust closeness: (r/total) * (r/(n-1)) where r
// nodes reach v (or are reached from v when undirected) at total distance.
// Directed graphs use incoming distance.
func Closeness(ctx context.Context, g *Graph, o Options) ([]float64, error) {
	n := g.NodeCount()
	scores := make([]float64, n)

	o.Reverse = !o.Undirected

	err := parallel(ctx, n, func(ctx context.Context, lo, hi int) error {
		for v := lo; v < hi; v++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			t := ShortestTree(g, v, o)

			total := 0.0
			for _, u := range t.Order {
				total += t.Dist[u]
			}

			r := float64(len(t.Order) - 1)
			if total > 0 && n > 1 {
				scores[v] = (r / total) * (r / float64(n-1))
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return scores, nil
}

// PageRankResult holds scores and convergence information.
type PageRankResult struct {
	Scores     []float64
	Iterations int
	Converged  bool
}

// PageRank runs power iteration with damping d. Rank held by nodes without
// usable out-edges is spread uniformly. Undirected edges link both ways.
// Iteration stops when the L1 change drops below n*DefaultTolerance.
func PageRank(ctx context.Context, g *Graph, o Options, d float64) (*PageRankResult, error) {
	n := g.NodeCount()
	res := &PageRankResult{Scores: make([]float64, n), Converged: true}

	if n == 0 {
		return res, nil
	}

	type link struct {
		to int
		w  float64
	}

	links := make([][]link, n)
	outW := make([]float64, n)

	for v := range n {
		for _, a := range g.Arcs(v, o.Undirected, false) {
			w, ok := o.Cost(g.Edge(a.Edge))
			if !ok || w == 0 {
				continue
			}

			links[v] = append(links[v], link{to: a.Node, w: w})
			outW[v] += w
		}
	}

	x := res.Scores
	last := make([]float64, n)
	nf := float64(n)

	for v := range x {
		x[v] = 1 / nf
	}

	res.Converged = false

	for iter := 1; iter <= DefaultMaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		copy(last, x)

		dangling := 0.0

		for v := range n {
			x[v] = 0

			if outW[v] == 0 {
				dangling += last[v]
			}
		}

		for v, ls := range links {
			for _, l := range ls {
				x[l.to] += d * last[v] * l.w / outW[v]
			}
		}

		base := (1-d)/nf + d*dangling/nf
		diff := 0.0

		for v := range x {
			x[v] += base
			diff += math.Abs(x[v] - last[v])
		}

		res.Iterations = iter

		if diff < nf*DefaultTolerance {
			res.Converged = true

			break
		}
	}

	return res, nil
}

// parallel splits [0, n) into one chunk per CPU and runs work on each.
func parallel(ctx context.Context, n int, work func(ctx context.Context, lo, hi int) error) error {
	if n == 0 {
		return ctx.Err()
	}

	workers := min(runtime.GOMAXPROCS(0), n)
	chunk := (n + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)

		eg.Go(func() error { return work(ctx, lo, hi) })
	}

	return eg.Wait()
}
