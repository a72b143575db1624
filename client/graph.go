package client

import (
	"context"
	"net/url"
)

// GraphService runs graph queries against mapped relationships.
type GraphService struct {
	c *Client
}

const graphPrefix = "/api/v1/graph"

func call[Req, Res any](ctx context.Context, s *GraphService, path string, req Req) (*Res, error) {
	var resp Res
	if err := s.c.post(ctx, graphPrefix+path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Traverse walks a relationship breadth-first from req.Start.
func (s *GraphService) Traverse(ctx context.Context, req TraverseRequest) (*TraversalResult, error) {
	return call[TraverseRequest, TraversalResult](ctx, s, "/traverse", req)
}

// TraverseCollecting walks like Traverse but reports only nodes matching req.Targets.
func (s *GraphService) TraverseCollecting(ctx context.Context, req TraverseRequest) (*TraversalResult, error) {
	return call[TraverseRequest, TraversalResult](ctx, s, "/traverse/collect", req)
}

// PathAggregate folds a value column over every path from req.Start.
func (s *GraphService) PathAggregate(ctx context.Context, req AggregateRequest) (*PathAggregateResult, error) {
	return call[AggregateRequest, PathAggregateResult](ctx, s, "/aggregate", req)
}

// ShortestPath finds one minimal path between two nodes.
func (s *GraphService) ShortestPath(ctx context.Context, req PathRequest) (*ShortestPathResult, error) {
	return call[PathRequest, ShortestPathResult](ctx, s, "/shortest-path", req)
}

// AllShortestPaths finds every path tied for the minimal distance.
func (s *GraphService) AllShortestPaths(ctx context.Context, req PathRequest) (*AllShortestPathsResult, error) {
	return call[PathRequest, AllShortestPathsResult](ctx, s, "/all-shortest-paths", req)
}

// Centrality ranks nodes by the requested measure.
func (s *GraphService) Centrality(ctx context.Context, req CentralityRequest) (*CentralityResult, error) {
	return call[CentralityRequest, CentralityResult](ctx, s, "/centrality", req)
}

// ConnectedComponents groups nodes into components.
func (s *GraphService) ConnectedComponents(ctx context.Context, req ComponentsRequest) (*ConnectedComponentsResult, error) {
	return call[ComponentsRequest, ConnectedComponentsResult](ctx, s, "/components", req)
}

// Resilience simulates removing one node.
func (s *GraphService) Resilience(ctx context.Context, req ResilienceRequest) (*ResilienceResult, error) {
	return call[ResilienceRequest, ResilienceResult](ctx, s, "/resilience", req)
}

// ArticulationPoints lists cut vertices and bridges.
func (s *GraphService) ArticulationPoints(ctx context.Context, req ComponentsRequest) (*ArticulationResult, error) {
	return call[ComponentsRequest, ArticulationResult](ctx, s, "/articulation-points", req)
}

// MappingService reads the server's schema mapping.
type MappingService struct {
	c *Client
}

// Get returns the full mapping.
func (s *MappingService) Get(ctx context.Context) (*Mapping, error) {
	var resp Mapping
	if err := s.c.get(ctx, "/api/v1/mapping", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Relationship returns one relationship by name.
func (s *MappingService) Relationship(ctx context.Context, name string) (*Relationship, error) {
	var resp Relationship
	if err := s.c.get(ctx, "/api/v1/mapping/relationships/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
