package models

// TraversalResult holds everything a frontier-batched traversal discovered.
// Nodes excludes the start node. Paths include the start node as their first
// element, so len(Paths[id])-1 equals Depths[id].
type TraversalResult struct {
	Relationship    string              `json:"relationship"`
	Start           string              `json:"start"`
	Direction       Direction           `json:"direction"`
	Nodes           []string            `json:"nodes"`
	Edges           []Edge              `json:"edges"`
	Paths           map[string][]string `json:"paths"`
	Depths          map[string]int      `json:"depths"`
	MaxDepthReached int                 `json:"max_depth_reached"`
	TerminatedAt    []string            `json:"terminated_at,omitempty"`
	Truncated       bool                `json:"truncated"`
	Message         string              `json:"message,omitempty"`
}

// AggregatedNode is one row of a path aggregation.
type AggregatedNode struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	MinDepth  int     `json:"min_depth"`
	PathCount int     `json:"path_count"`
}

// PathAggregateResult holds, per reachable node, the value aggregated over
// every distinct path from the root.
type PathAggregateResult struct {
	Relationship    string           `json:"relationship"`
	Root            string           `json:"root"`
	Operator        AggregateOp      `json:"operator"`
	ValueColumn     string           `json:"value_column,omitempty"`
	Nodes           []AggregatedNode `json:"nodes"`
	PathsExplored   int              `json:"paths_explored"`
	MaxDepthReached int              `json:"max_depth_reached"`
	Truncated       bool             `json:"truncated"`
	Message         string           `json:"message,omitempty"`
}

// Value returns the aggregated value of id and whether id was reached.
func (r *PathAggregateResult) Value(id string) (float64, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n.Value, true
		}
	}

	return 0, false
}

// ShortestPathResult is a single minimal path. NoPath is a normal outcome,
// distinct from an error.
type ShortestPathResult struct {
	Start         string   `json:"start"`
	End           string   `json:"end"`
	Path          []string `json:"path"`
	Distance      float64  `json:"distance"`
	Hops          int      `json:"hops"`
	Edges         []Edge   `json:"edges"`
	WeightColumn  string   `json:"weight_column,omitempty"`
	NodesExplored int      `json:"nodes_explored"`
	NoPath        bool     `json:"no_path"`
	Message       string   `json:"message,omitempty"`
}

// AllShortestPathsResult holds every path tied for the minimal distance.
type AllShortestPathsResult struct {
	Start         string     `json:"start"`
	End           string     `json:"end"`
	Paths         [][]string `json:"paths"`
	EdgePaths     [][]Edge   `json:"edge_paths"`
	Distance      float64    `json:"distance"`
	WeightColumn  string     `json:"weight_column,omitempty"`
	NodesExplored int        `json:"nodes_explored"`
	Truncated     bool       `json:"truncated"`
	NoPath        bool       `json:"no_path"`
	Message       string     `json:"message,omitempty"`
}

// GraphStats summarizes a materialized subgraph.
type GraphStats struct {
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Density    float64 `json:"density"`
	Components int     `json:"components"`
}

// ScoredNode is one ranked centrality entry.
type ScoredNode struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// CentralityResult ranks the top nodes of a relationship graph.
type CentralityResult struct {
	Relationship string         `json:"relationship"`
	Type         CentralityType `json:"type"`
	WeightColumn string         `json:"weight_column,omitempty"`
	Nodes        []ScoredNode   `json:"nodes"`
	Stats        GraphStats     `json:"stats"`
	Iterations   int            `json:"iterations,omitempty"`
	Converged    bool           `json:"converged,omitempty"`
}

// Component is one connected component.
type Component struct {
	ID    int      `json:"id"`
	Size  int      `json:"size"`
	Nodes []string `json:"nodes"`
}

// ConnectedComponentsResult lists components at or above the requested size.
type ConnectedComponentsResult struct {
	Relationship string      `json:"relationship"`
	Mode         string      `json:"mode"`
	Components   []Component `json:"components"`
	Isolated     []string    `json:"isolated"`
	Total        int         `json:"total"`
	Stats        GraphStats  `json:"stats"`
}

// ResilienceResult is the before/after diff of a simulated node removal.
// The removed node's own singleton component is never counted, so removing
// an isolated node changes nothing.
type ResilienceResult struct {
	Relationship      string      `json:"relationship"`
	Node              string      `json:"node"`
	ComponentsBefore  int         `json:"components_before"`
	ComponentsAfter   int         `json:"components_after"`
	ComponentDelta    int         `json:"component_delta"`
	DisconnectedPairs [][2]string `json:"disconnected_pairs"`
	NewlyIsolated     []string    `json:"newly_isolated"`
	LargestBefore     int         `json:"largest_component_before"`
	LargestAfter      int         `json:"largest_component_after"`
	IsArticulation    bool        `json:"is_articulation_point"`
	Stats             GraphStats  `json:"stats"`
	Message           string      `json:"message,omitempty"`
}

// ArticulationResult lists cut vertices and bridges of the undirected view.
type ArticulationResult struct {
	Relationship string      `json:"relationship"`
	Points       []string    `json:"points"`
	Bridges      [][2]string `json:"bridges"`
	Stats        GraphStats  `json:"stats"`
}
