package models

import (
	"fmt"
	"strings"
	"time"
)

// TraverseRequest describes a frontier-batched traversal.
type TraverseRequest struct {
	Relationship   string          `json:"relationship" binding:"required"`
	Start          string          `json:"start" binding:"required"`
	Direction      Direction       `json:"direction,omitempty"`
	MaxDepth       int             `json:"max_depth,omitempty"`
	StopAt         []Predicate     `json:"stop_at,omitempty"`
	Targets        []Predicate     `json:"targets,omitempty"`
	AsOf           *time.Time      `json:"as_of,omitempty"`
	Limits         *LimitOverrides `json:"limits,omitempty"`
	SkipEstimation bool            `json:"skip_estimation,omitempty"`
}

// AggregateOp is the operator of a path aggregation.
type AggregateOp string

// Aggregation operators.
const (
	AggSum      AggregateOp = "sum"
	AggMax      AggregateOp = "max"
	AggMin      AggregateOp = "min"
	AggMultiply AggregateOp = "multiply"
	AggCount    AggregateOp = "count"
)

// ParseAggregateOp parses s case-insensitively.
func ParseAggregateOp(s string) (AggregateOp, error) {
	switch op := AggregateOp(strings.ToLower(s)); op {
	case AggSum, AggMax, AggMin, AggMultiply, AggCount:
		return op, nil
	}

	return "", fmt.Errorf("%w: unknown aggregate operator %q", ErrInvalidRequest, s)
}

// AggregateRequest describes a path aggregation from a root.
type AggregateRequest struct {
	Relationship   string          `json:"relationship" binding:"required"`
	Start          string          `json:"start" binding:"required"`
	Direction      Direction       `json:"direction,omitempty"`
	ValueColumn    string          `json:"value_column,omitempty"`
	Operator       AggregateOp     `json:"operator" binding:"required"`
	MaxDepth       int             `json:"max_depth,omitempty"`
	AsOf           *time.Time      `json:"as_of,omitempty"`
	Limits         *LimitOverrides `json:"limits,omitempty"`
	SkipEstimation bool            `json:"skip_estimation,omitempty"`
}

// PathRequest describes a shortest-path search.
type PathRequest struct {
	Relationship string          `json:"relationship" binding:"required"`
	Start        string          `json:"start" binding:"required"`
	End          string          `json:"end" binding:"required"`
	WeightColumn string          `json:"weight_column,omitempty"`
	Exclude      []string        `json:"exclude,omitempty"`
	MaxDepth     int             `json:"max_depth,omitempty"`
	MaxPaths     int             `json:"max_paths,omitempty"`
	Undirected   bool            `json:"undirected,omitempty"`
	AsOf         *time.Time      `json:"as_of,omitempty"`
	Limits       *LimitOverrides `json:"limits,omitempty"`
}

// CentralityType selects a centrality measure.
type CentralityType string

// Centrality measures.
const (
	CentralityDegree      CentralityType = "degree"
	CentralityBetweenness CentralityType = "betweenness"
	CentralityCloseness   CentralityType = "closeness"
	CentralityPageRank    CentralityType = "pagerank"
)

// ParseCentralityType parses s case-insensitively.
func ParseCentralityType(s string) (CentralityType, error) {
	switch t := CentralityType(strings.ToLower(s)); t {
	case CentralityDegree, CentralityBetweenness, CentralityCloseness, CentralityPageRank:
		return t, nil
	}

	return "", fmt.Errorf("%w: unknown centrality type %q", ErrInvalidRequest, s)
}

// CentralityRequest describes a centrality computation over a relationship
// graph. With Start set only the neighborhood within MaxDepth of Start, in
// either direction, is analyzed.
type CentralityRequest struct {
	Relationship string          `json:"relationship" binding:"required"`
	Type         CentralityType  `json:"type" binding:"required"`
	TopN         int             `json:"top_n,omitempty"`
	WeightColumn string          `json:"weight_column,omitempty"`
	Undirected   bool            `json:"undirected,omitempty"`
	Start        string          `json:"start,omitempty"`
	MaxDepth     int             `json:"max_depth,omitempty"`
	AsOf         *time.Time      `json:"as_of,omitempty"`
	Limits       *LimitOverrides `json:"limits,omitempty"`
}

// ComponentsRequest describes a connected-components computation.
// Strong selects strongly connected components; the default treats edges as undirected.
type ComponentsRequest struct {
	Relationship string          `json:"relationship" binding:"required"`
	MinSize      int             `json:"min_size,omitempty"`
	Strong       bool            `json:"strong,omitempty"`
	Start        string          `json:"start,omitempty"`
	MaxDepth     int             `json:"max_depth,omitempty"`
	AsOf         *time.Time      `json:"as_of,omitempty"`
	Limits       *LimitOverrides `json:"limits,omitempty"`
}

// ResilienceRequest describes a simulated single-node removal.
type ResilienceRequest struct {
	Relationship string          `json:"relationship" binding:"required"`
	Node         string          `json:"node" binding:"required"`
	AsOf         *time.Time      `json:"as_of,omitempty"`
	Limits       *LimitOverrides `json:"limits,omitempty"`
}
