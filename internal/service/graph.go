// Package service provides thin logging facades between API handlers and the
// graph engines.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/httputil"
	"github.com/persistorai/relgraph/internal/models"
)

// Compile-time checks: the facades satisfy the interfaces they wrap.
var (
	_ domain.TraversalService = (*TraversalService)(nil)
	_ domain.PathService      = (*PathService)(nil)
	_ domain.NetworkService   = (*NetworkService)(nil)
)

// TraversalService wraps a traversal engine with context-aware logging.
type TraversalService struct {
	engine domain.TraversalService
	log    *logrus.Logger
}

// NewTraversalService creates a TraversalService.
func NewTraversalService(engine domain.TraversalService, log *logrus.Logger) *TraversalService {
	return &TraversalService{engine: engine, log: log}
}

// Traverse walks a relationship breadth-first from req.Start.
func (s *TraversalService) Traverse(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
		"start":        req.Start,
		"direction":    req.Direction,
		"max_depth":    req.MaxDepth,
	}, "graph.traverse")

	return s.engine.Traverse(ctx, req)
}

// TraverseCollecting walks like Traverse but reports only target matches.
func (s *TraversalService) TraverseCollecting(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
		"start":        req.Start,
		"targets":      len(req.Targets),
		"max_depth":    req.MaxDepth,
	}, "graph.traverse_collecting")

	return s.engine.TraverseCollecting(ctx, req)
}

// PathAggregate folds a value column over every path from req.Start.
func (s *TraversalService) PathAggregate(ctx context.Context, req models.AggregateRequest) (*models.PathAggregateResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
		"start":        req.Start,
		"operator":     req.Operator,
		"value_column": req.ValueColumn,
	}, "graph.path_aggregate")

	return s.engine.PathAggregate(ctx, req)
}

// PathService wraps a pathfinding engine with context-aware logging.
type PathService struct {
	engine domain.PathService
	log    *logrus.Logger
}

// NewPathService creates a PathService.
func NewPathService(engine domain.PathService, log *logrus.Logger) *PathService {
	return &PathService{engine: engine, log: log}
}

// ShortestPath finds one minimal path between two nodes.
func (s *PathService) ShortestPath(ctx context.Context, req models.PathRequest) (*models.ShortestPathResult, error) {
	debug(ctx, s.log, pathFields(req), "graph.shortest_path")

	return s.engine.ShortestPath(ctx, req)
}

// AllShortestPaths finds every path tied for the minimal distance.
func (s *PathService) AllShortestPaths(ctx context.Context, req models.PathRequest) (*models.AllShortestPathsResult, error) {
	fields := pathFields(req)
	fields["max_paths"] = req.MaxPaths

	debug(ctx, s.log, fields, "graph.all_shortest_paths")

	return s.engine.AllShortestPaths(ctx, req)
}

// debug logs one operation entry, tagged with the request ID when the call
// came through the HTTP layer.
func debug(ctx context.Context, log *logrus.Logger, fields logrus.Fields, msg string) {
	if id := httputil.RequestID(ctx); id != "" {
		fields["request_id"] = id
	}

	log.WithFields(fields).Debug(msg)
}

func pathFields(req models.PathRequest) logrus.Fields {
	return logrus.Fields{
		"relationship":  req.Relationship,
		"start":         req.Start,
		"end":           req.End,
		"weight_column": req.WeightColumn,
		"excluded":      len(req.Exclude),
	}
}

// NetworkService wraps a network analysis engine with context-aware logging.
type NetworkService struct {
	engine domain.NetworkService
	log    *logrus.Logger
}

// NewNetworkService creates a NetworkService.
func NewNetworkService(engine domain.NetworkService, log *logrus.Logger) *NetworkService {
	return &NetworkService{engine: engine, log: log}
}

// Centrality ranks nodes by the requested measure.
func (s *NetworkService) Centrality(ctx context.Context, req models.CentralityRequest) (*models.CentralityResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
		"type":         req.Type,
		"top_n":        req.TopN,
		"start":        req.Start,
	}, "graph.centrality")

	return s.engine.Centrality(ctx, req)
}

// ConnectedComponents groups nodes into components.
func (s *NetworkService) ConnectedComponents(ctx context.Context, req models.ComponentsRequest) (*models.ConnectedComponentsResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
		"strong":       req.Strong,
		"min_size":     req.MinSize,
	}, "graph.connected_components")

	return s.engine.ConnectedComponents(ctx, req)
}

// Resilience simulates removing one node.
func (s *NetworkService) Resilience(ctx context.Context, req models.ResilienceRequest) (*models.ResilienceResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
		"node":         req.Node,
	}, "graph.resilience")

	return s.engine.Resilience(ctx, req)
}

// ArticulationPoints lists cut vertices and bridges.
func (s *NetworkService) ArticulationPoints(ctx context.Context, req models.ComponentsRequest) (*models.ArticulationResult, error) {
	debug(ctx, s.log, logrus.Fields{
		"relationship": req.Relationship,
	}, "graph.articulation_points")

	return s.engine.ArticulationPoints(ctx, req)
}
