package client

import "time"

// Direction selects how a relationship's from→to orientation is followed.
type Direction string

// Traversal directions.
const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
	Both     Direction = "both"
)

// Predicate is a column condition evaluated against a node's row.
type Predicate struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value,omitempty"`
}

// Limits overrides individual safety ceilings for one request. Nil fields
// keep the server's values.
type Limits struct {
	MaxDepth   *int   `json:"max_depth,omitempty"`
	MaxNodes   *int   `json:"max_nodes,omitempty"`
	MaxResults *int   `json:"max_results,omitempty"`
	TimeoutMS  *int64 `json:"timeout_ms,omitempty"`
	MaxEdges   *int   `json:"max_edges,omitempty"`
}

// Edge is one relationship row between two nodes.
type Edge struct {
	From         string             `json:"from"`
	To           string             `json:"to"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	Attributes   map[string]string  `json:"attributes,omitempty"`
	TargetEntity string             `json:"target_entity,omitempty"`
}

// TraverseRequest starts a breadth-first walk.
type TraverseRequest struct {
	Relationship   string      `json:"relationship"`
	Start          string      `json:"start"`
	Direction      Direction   `json:"direction,omitempty"`
	MaxDepth       int         `json:"max_depth,omitempty"`
	StopAt         []Predicate `json:"stop_at,omitempty"`
	Targets        []Predicate `json:"targets,omitempty"`
	AsOf           *time.Time  `json:"as_of,omitempty"`
	Limits         *Limits     `json:"limits,omitempty"`
	SkipEstimation bool        `json:"skip_estimation,omitempty"`
}

// TraversalResult is the outcome of a walk.
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

// AggregateRequest folds a value column along every path from Start.
type AggregateRequest struct {
	Relationship   string     `json:"relationship"`
	Start          string     `json:"start"`
	Direction      Direction  `json:"direction,omitempty"`
	ValueColumn    string     `json:"value_column,omitempty"`
	Operator       string     `json:"operator"`
	MaxDepth       int        `json:"max_depth,omitempty"`
	AsOf           *time.Time `json:"as_of,omitempty"`
	Limits         *Limits    `json:"limits,omitempty"`
	SkipEstimation bool       `json:"skip_estimation,omitempty"`
}

// AggregatedNode is one reached node and its folded value.
type AggregatedNode struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	MinDepth  int     `json:"min_depth"`
	PathCount int     `json:"path_count"`
}

// PathAggregateResult is the outcome of a path aggregation.
type PathAggregateResult struct {
	Relationship    string           `json:"relationship"`
	Root            string           `json:"root"`
	Operator        string           `json:"operator"`
	ValueColumn     string           `json:"value_column,omitempty"`
	Nodes           []AggregatedNode `json:"nodes"`
	PathsExplored   int              `json:"paths_explored"`
	MaxDepthReached int              `json:"max_depth_reached"`
	Truncated       bool             `json:"truncated"`
	Message         string           `json:"message,omitempty"`
}

// PathRequest asks for the minimal path(s) between two nodes.
type PathRequest struct {
	Relationship string     `json:"relationship"`
	Start        string     `json:"start"`
	End          string     `json:"end"`
	WeightColumn string     `json:"weight_column,omitempty"`
	Exclude      []string   `json:"exclude,omitempty"`
	MaxDepth     int        `json:"max_depth,omitempty"`
	MaxPaths     int        `json:"max_paths,omitempty"`
	Undirected   bool       `json:"undirected,omitempty"`
	AsOf         *time.Time `json:"as_of,omitempty"`
	Limits       *Limits    `json:"limits,omitempty"`
}

// ShortestPathResult holds one minimal path. NoPath is set, without an
// error, when End is unreachable.
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

// Centrality measures.
const (
	CentralityDegree      = "degree"
	CentralityBetweenness = "betweenness"
	CentralityCloseness   = "closeness"
	CentralityPageRank    = "pagerank"
)

// CentralityRequest ranks nodes by one measure.
type CentralityRequest struct {
	Relationship string     `json:"relationship"`
	Type         string     `json:"type"`
	TopN         int        `json:"top_n,omitempty"`
	WeightColumn string     `json:"weight_column,omitempty"`
	Undirected   bool       `json:"undirected,omitempty"`
	Start        string     `json:"start,omitempty"`
	MaxDepth     int        `json:"max_depth,omitempty"`
	AsOf         *time.Time `json:"as_of,omitempty"`
	Limits       *Limits    `json:"limits,omitempty"`
}

// GraphStats summarizes the analyzed graph.
type GraphStats struct {
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Density    float64 `json:"density"`
	Components int     `json:"components"`
}

// ScoredNode is one ranked node.
type ScoredNode struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// CentralityResult lists the top nodes, highest score first.
type CentralityResult struct {
	Relationship string       `json:"relationship"`
	Type         string       `json:"type"`
	WeightColumn string       `json:"weight_column,omitempty"`
	Nodes        []ScoredNode `json:"nodes"`
	Stats        GraphStats   `json:"stats"`
	Iterations   int          `json:"iterations,omitempty"`
	Converged    bool         `json:"converged,omitempty"`
}

// ComponentsRequest scopes a component or articulation analysis.
type ComponentsRequest struct {
	Relationship string     `json:"relationship"`
	MinSize      int        `json:"min_size,omitempty"`
	Strong       bool       `json:"strong,omitempty"`
	Start        string     `json:"start,omitempty"`
	MaxDepth     int        `json:"max_depth,omitempty"`
	AsOf         *time.Time `json:"as_of,omitempty"`
	Limits       *Limits    `json:"limits,omitempty"`
}

// Component is one connected group of nodes.
type Component struct {
	ID    int      `json:"id"`
	Size  int      `json:"size"`
	Nodes []string `json:"nodes"`
}

// ConnectedComponentsResult lists components, largest first.
type ConnectedComponentsResult struct {
	Relationship string      `json:"relationship"`
	Mode         string      `json:"mode"`
	Components   []Component `json:"components"`
	Isolated     []string    `json:"isolated"`
	Total        int         `json:"total"`
	Stats        GraphStats  `json:"stats"`
}

// ResilienceRequest simulates removing Node.
type ResilienceRequest struct {
	Relationship string     `json:"relationship"`
	Node         string     `json:"node"`
	AsOf         *time.Time `json:"as_of,omitempty"`
	Limits       *Limits    `json:"limits,omitempty"`
}

// ResilienceResult reports how connectivity changes without the node.
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

// ArticulationResult lists cut vertices and bridges.
type ArticulationResult struct {
	Relationship string      `json:"relationship"`
	Points       []string    `json:"points"`
	Bridges      [][2]string `json:"bridges"`
	Stats        GraphStats  `json:"stats"`
}

// SafetyLimit is the detail of a safety_limit error.
type SafetyLimit struct {
	Limit          string `json:"limit"`
	Ceiling        int    `json:"ceiling"`
	Requested      int    `json:"requested,omitempty"`
	Estimated      int    `json:"estimated,omitempty"`
	Actual         int    `json:"actual,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	SuggestedDepth int    `json:"suggested_depth,omitempty"`
	Preflight      bool   `json:"preflight"`
}

// MappingProblem is one issue found while validating the server's mapping.
type MappingProblem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// HealthResponse is the response from the liveness endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadinessResponse is the response from the readiness endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Entity describes one node table.
type Entity struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	PrimaryKey []string `json:"primary_key"`
	SoftDelete bool     `json:"soft_delete"`
}

// Weight describes one numeric edge column.
type Weight struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Unit string `json:"unit,omitempty"`
}

// Relationship describes one edge table and what may run on it.
type Relationship struct {
	Name            string   `json:"name"`
	Table           string   `json:"table"`
	From            string   `json:"from"`
	To              []string `json:"to"`
	Operations      []string `json:"operations"`
	Weights         []Weight `json:"weights"`
	Temporal        bool     `json:"temporal"`
	SoftDelete      bool     `json:"soft_delete"`
	SelfReferential bool     `json:"self_referential"`
	Description     string   `json:"description,omitempty"`
}

// Mapping is the server's schema mapping.
type Mapping struct {
	Version       string         `json:"version"`
	Name          string         `json:"name,omitempty"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// Relationship returns the named relationship, or nil.
func (m *Mapping) Relationship(name string) *Relationship {
	for i := range m.Relationships {
		if m.Relationships[i].Name == name {
			return &m.Relationships[i]
		}
	}
	return nil
}
