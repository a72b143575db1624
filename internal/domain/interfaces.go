// Package domain defines the canonical interfaces shared between the engines,
// the relational readers and the API layer. Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"
	"time"

	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

// EdgeQuery selects edge rows of one relationship. A row matches when its
// from-key is in From or its to-key is in To; both sets are sent in the same
// statement so a "both" level is still a single round trip. Soft-deleted
// rows and rows outside the validity interval at AsOf are never returned.
type EdgeQuery struct {
	Rel   *ontology.Relationship
	From  []string
	To    []string
	AsOf  *time.Time
	Limit int
}

// Reader is one logical unit of read-only work against the relational store.
// A Reader is not safe for concurrent use; engines open one per operation.
type Reader interface {
	// FetchEdges returns the edges matching q in their stored orientation.
	FetchEdges(ctx context.Context, q EdgeQuery) ([]models.Edge, error)
	// FetchAllEdges returns up to limit live edges of rel (limit <= 0: no limit).
	FetchAllEdges(ctx context.Context, rel *ontology.Relationship, asOf *time.Time, limit int) ([]models.Edge, error)
	// CountEdges counts live edges of rel, stopping at limit.
	CountEdges(ctx context.Context, rel *ontology.Relationship, asOf *time.Time, limit int) (int, error)
	// ExistingNodes returns the subset of ids that are live rows of ent.
	ExistingNodes(ctx context.Context, ent *ontology.Entity, ids []string) ([]string, error)
	// MatchNodes returns the subset of ids whose rows satisfy every predicate.
	MatchNodes(ctx context.Context, ent *ontology.Entity, ids []string, preds []models.Predicate) ([]string, error)
	// FetchAllNodes returns up to limit live node ids of ent.
	FetchAllNodes(ctx context.Context, ent *ontology.Entity, limit int) ([]string, error)
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Source hands out Readers. Implementations must be safe for concurrent use.
type Source interface {
	Open(ctx context.Context) (Reader, error)
}

// TraversalService defines frontier-batched traversal operations.
type TraversalService interface {
	Traverse(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error)
	TraverseCollecting(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error)
	PathAggregate(ctx context.Context, req models.AggregateRequest) (*models.PathAggregateResult, error)
}

// PathService defines pathfinding operations.
type PathService interface {
	ShortestPath(ctx context.Context, req models.PathRequest) (*models.ShortestPathResult, error)
	AllShortestPaths(ctx context.Context, req models.PathRequest) (*models.AllShortestPathsResult, error)
}

// NetworkService defines whole-graph analysis operations.
type NetworkService interface {
	Centrality(ctx context.Context, req models.CentralityRequest) (*models.CentralityResult, error)
	ConnectedComponents(ctx context.Context, req models.ComponentsRequest) (*models.ConnectedComponentsResult, error)
	Resilience(ctx context.Context, req models.ResilienceRequest) (*models.ResilienceResult, error)
	ArticulationPoints(ctx context.Context, req models.ComponentsRequest) (*models.ArticulationResult, error)
}
