package models

import "math"

// Recommendation is the pre-flight verdict of the safety guard.
type Recommendation string

// Guard recommendations.
const (
	RecommendProceed          Recommendation = "proceed"
	RecommendReduceDepth      Recommendation = "reduce_depth"
	RecommendSwitchToSubgraph Recommendation = "switch_to_subgraph_algorithm"
	RecommendAbort            Recommendation = "abort"
)

// Estimate is an ephemeral sample of the first levels of one traversal.
// It only feeds the go/no-go decision and is never cached.
type Estimate struct {
	Relationship    string    `json:"relationship"`
	Start           string    `json:"start"`
	SampledLevels   int       `json:"sampled_levels"`
	LevelSizes      []int     `json:"level_sizes"`
	BranchingFactor float64   `json:"branching_factor"`
	TargetDepth     int       `json:"target_depth"`
	EstimatedNodes  int       `json:"estimated_nodes"`
	Exhausted       bool      `json:"exhausted"`
	Margin          float64   `json:"margin"`
	Cap             int       `json:"cap,omitempty"`
	projection      []float64 // cumulative estimated reachable nodes per depth, index 0 = depth 1
}

// SetProjection stores the cumulative per-depth projection (before margin).
func (e *Estimate) SetProjection(p []float64) {
	e.projection = p
}

// AtDepth returns the estimated reachable node count at depth d. The margin
// is applied unless sampling exhausted the graph, in which case the count is exact.
func (e *Estimate) AtDepth(d int) int {
	if d <= 0 || len(e.projection) == 0 {
		return 0
	}

	if d > len(e.projection) {
		d = len(e.projection)
	}

	v := e.projection[d-1]
	if !e.Exhausted {
		v *= 1 + e.Margin
	}

	if e.Cap > 0 && v > float64(e.Cap) {
		v = float64(e.Cap)
	}

	if v > math.MaxInt32 {
		return math.MaxInt32
	}

	// Tolerate floating-point noise from the geometric projection.
	return int(math.Ceil(v - 1e-6))
}

// GuardDecision is the outcome of comparing an estimate with the ceilings.
type GuardDecision struct {
	SafeToProceed  bool           `json:"safe_to_proceed"`
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`
	EstimatedNodes int            `json:"estimated_nodes"`
	SuggestedDepth int            `json:"suggested_depth,omitempty"`
	Ceiling        int            `json:"ceiling"`
	Limit          string         `json:"limit"`
}

// Err converts a rejecting decision into a SafetyLimitError; nil when safe.
func (d GuardDecision) Err(requestedDepth int) error {
	if d.SafeToProceed {
		return nil
	}

	return &SafetyLimitError{
		Limit:          d.Limit,
		Ceiling:        d.Ceiling,
		Requested:      requestedDepth,
		Estimated:      d.EstimatedNodes,
		Recommendation: d.Recommendation,
		SuggestedDepth: d.SuggestedDepth,
		Preflight:      true,
	}
}
