package guard_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/graphtest"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/store/memstore"
)

// tree builds a complete tree of the given fan-out and depth under "r".
func tree(env *graphtest.Env, fanout, depth int) int {
	env.Nodes("r")

	level := []string{"r"}
	total := 0

	for d := 0; d < depth; d++ {
		var next []string

		for _, p := range level {
			for i := range fanout {
				c := fmt.Sprintf("%s.%d", p, i)
				env.Nodes(c)
				env.Link(p, c, 1)
				next = append(next, c)
			}
		}

		total += len(next)
		level = next
	}

	return total
}

func open(t *testing.T, env *graphtest.Env) domain.Reader {
	t.Helper()

	r, err := env.Store.Open(context.Background())
	require.NoError(t, err)

	return r
}

func TestEstimateReachable_Exhausted(t *testing.T) {
	env := graphtest.New(t)
	env.Chain("A", "B", "C")

	g := guard.New(graphtest.Limits(), graphtest.Logger())
	est, err := g.EstimateReachable(context.Background(), open(t, env), guard.EstimateRequest{
		Rel:         env.Rel(t, graphtest.Links),
		Start:       "A",
		Direction:   models.Outbound,
		TargetDepth: 10,
	})
	require.NoError(t, err)

	assert.True(t, est.Exhausted)
	assert.Equal(t, []int{1, 1, 0}, est.LevelSizes)
	assert.Equal(t, 2, est.EstimatedNodes, "an exhausted sample is exact and excludes the start")
	assert.Equal(t, 1, est.AtDepth(1))
}

func TestEstimateReachable_Geometric(t *testing.T) {
	env := graphtest.New(t)
	tree(env, 3, 4)

	limits := graphtest.Limits()
	limits.SafetyMargin = 0

	g := guard.New(limits, graphtest.Logger())
	est, err := g.EstimateReachable(context.Background(), open(t, env), guard.EstimateRequest{
		Rel:         env.Rel(t, graphtest.Links),
		Start:       "r",
		Direction:   models.Outbound,
		TargetDepth: 5,
	})
	require.NoError(t, err)

	assert.False(t, est.Exhausted)
	assert.Equal(t, []int{3, 9, 27}, est.LevelSizes)
	assert.InDelta(t, 3.0, est.BranchingFactor, 1e-9)
	// 3 + 9 + 27 + 81 + 243
	assert.Equal(t, 363, est.EstimatedNodes)
	assert.Equal(t, 3, env.Store.Queries(memstore.OpFetchEdges), "one bounded query per sampled level")
}

func TestEstimateReachable_MarginAndCap(t *testing.T) {
	env := graphtest.New(t)
	tree(env, 2, 4)

	g := guard.New(graphtest.Limits(), graphtest.Logger())
	est, err := g.EstimateReachable(context.Background(), open(t, env), guard.EstimateRequest{
		Rel:         env.Rel(t, graphtest.Links),
		Start:       "r",
		Direction:   models.Outbound,
		TargetDepth: 4,
	})
	require.NoError(t, err)

	// 2 + 4 + 8 + 16 = 30, inflated by 25%.
	assert.Equal(t, 38, est.EstimatedNodes)

	est.Cap = 20
	assert.Equal(t, 20, est.AtDepth(4))
}

func TestEstimateReachable_MissingStartIsEmpty(t *testing.T) {
	env := graphtest.New(t)
	env.Chain("A", "B")

	g := guard.New(graphtest.Limits(), graphtest.Logger())
	est, err := g.EstimateReachable(context.Background(), open(t, env), guard.EstimateRequest{
		Rel:         env.Rel(t, graphtest.Links),
		Start:       "nobody",
		Direction:   models.Outbound,
		TargetDepth: 3,
	})
	require.NoError(t, err)
	assert.Zero(t, est.EstimatedNodes)
	assert.True(t, est.Exhausted)
}

func TestEstimateReachable_StoreFailureIsReturned(t *testing.T) {
	env := graphtest.New(t)
	rel := env.Rel(t, graphtest.Links)

	r, err := memstore.New().Open(context.Background()) // no tables at all
	require.NoError(t, err)

	g := guard.New(graphtest.Limits(), graphtest.Logger())
	est, err := g.EstimateReachable(context.Background(), r, guard.EstimateRequest{
		Rel: rel, Start: "A", Direction: models.Outbound, TargetDepth: 3,
	})
	require.ErrorIs(t, err, models.ErrStore)
	assert.Nil(t, est)

	var se *models.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "links", se.Table)
}

func TestPreflight_WideLevelOverSampleLimit(t *testing.T) {
	env := graphtest.New(t)
	env.Nodes("hub")

	const children = 5000
	for i := range children {
		c := fmt.Sprintf("c%d", i)
		env.Nodes(c)
		env.Link("hub", c, 1)
	}

	limits := graphtest.Limits()
	limits.MaxNodes = 3000
	limits.SafetyMargin = 0

	g := guard.New(limits, graphtest.Logger())
	rel := env.Rel(t, graphtest.Links)

	est, err := g.Preflight(context.Background(), open(t, env), guard.EstimateRequest{
		Rel: rel, Start: "hub", Direction: models.Outbound, TargetDepth: 1,
	})

	var sle *models.SafetyLimitError
	require.ErrorAs(t, err, &sle)
	assert.True(t, sle.Preflight)
	assert.Equal(t, models.LimitMaxNodes, sle.Limit)
	assert.Greater(t, est.EstimatedNodes, limits.MaxNodes)
	assert.Equal(t, 2, env.Store.Queries(memstore.OpFetchEdges), "the sample and one bounded re-read")

	// Under the ceiling the re-read counts the level exactly.
	limits.MaxNodes = 10000
	env.Store.ResetStats()

	est, err = guard.New(limits, graphtest.Logger()).Preflight(context.Background(), open(t, env), guard.EstimateRequest{
		Rel: rel, Start: "hub", Direction: models.Outbound, TargetDepth: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, children, est.EstimatedNodes)
}

func TestEstimateReachable_Canceled(t *testing.T) {
	env := graphtest.New(t)
	env.Chain("A", "B")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := guard.New(graphtest.Limits(), graphtest.Logger())
	_, err := g.EstimateReachable(ctx, open(t, env), guard.EstimateRequest{
		Rel: env.Rel(t, graphtest.Links), Start: "A", Direction: models.Outbound, TargetDepth: 3,
	})
	assert.ErrorIs(t, err, models.ErrCanceled)
}

func TestCheckGuards(t *testing.T) {
	env := graphtest.New(t)
	tree(env, 3, 3)

	limits := graphtest.Limits()
	limits.SafetyMargin = 0
	limits.MaxDepth = 8

	g := guard.New(limits, graphtest.Logger())
	est, err := g.EstimateReachable(context.Background(), open(t, env), guard.EstimateRequest{
		Rel: env.Rel(t, graphtest.Links), Start: "r", Direction: models.Outbound, TargetDepth: 6,
	})
	require.NoError(t, err)

	// Projection: 3, 12, 39, 120, 363, 1092.
	tests := []struct {
		name     string
		depth    int
		maxNodes int
		want     models.Recommendation
		safe     bool
		suggest  int
	}{
		{name: "fits", depth: 3, maxNodes: 39, want: models.RecommendProceed, safe: true},
		{name: "reduce", depth: 5, maxNodes: 50, want: models.RecommendReduceDepth, suggest: 3},
		{name: "subgraph", depth: 2, maxNodes: 2, want: models.RecommendSwitchToSubgraph},
		{name: "abort", depth: 6, maxNodes: 2, want: models.RecommendAbort},
		{name: "depth ceiling", depth: 9, maxNodes: 0, want: models.RecommendReduceDepth, suggest: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.CheckGuards(est, tt.depth, tt.maxNodes)
			assert.Equal(t, tt.want, d.Recommendation, d.Reason)
			assert.Equal(t, tt.safe, d.SafeToProceed)
			assert.Equal(t, tt.suggest, d.SuggestedDepth)
		})
	}
}

func TestPreflight_RejectsBeforeFullTraversal(t *testing.T) {
	env := graphtest.New(t)
	total := tree(env, 4, 4)

	limits := graphtest.Limits()
	limits.MaxNodes = 50

	g := guard.New(limits, graphtest.Logger())
	est, err := g.Preflight(context.Background(), open(t, env), guard.EstimateRequest{
		Rel: env.Rel(t, graphtest.Links), Start: "r", Direction: models.Outbound, TargetDepth: 4,
	})

	var sle *models.SafetyLimitError
	require.True(t, errors.As(err, &sle), "err = %v", err)
	assert.ErrorIs(t, err, models.ErrSafetyLimit)
	assert.True(t, sle.Preflight)
	assert.Equal(t, 50, sle.Ceiling)
	assert.Equal(t, est.EstimatedNodes, sle.Estimated)
	assert.Greater(t, sle.Estimated, 50)
	assert.Equal(t, models.RecommendReduceDepth, sle.Recommendation)
	assert.Equal(t, 2, sle.SuggestedDepth)

	assert.Equal(t, limits.SampleDepth, env.Store.Queries(memstore.OpFetchEdges))
	assert.Less(t, env.Store.Queries(memstore.OpFetchEdges), 4, "rejected before the fourth level was read")
	assert.Equal(t, 340, total)
}

func TestCheckGlobal(t *testing.T) {
	env := graphtest.New(t)
	env.Chain("A", "B", "C", "D")

	limits := graphtest.Limits()
	limits.MaxEdges = 2

	g := guard.New(limits, graphtest.Logger())
	n, err := g.CheckGlobal(context.Background(), open(t, env), env.Rel(t, graphtest.Links), nil)
	assert.ErrorIs(t, err, models.ErrSafetyLimit)
	assert.Equal(t, 3, n)

	limits.MaxEdges = 3
	n, err = g.WithLimits(limits).CheckGlobal(context.Background(), open(t, env), env.Rel(t, graphtest.Links), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
