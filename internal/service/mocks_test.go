package service

import (
	"context"
	"sync"

	"github.com/persistorai/relgraph/internal/models"
)

// mockTraversal records calls and returns configured responses.
type mockTraversal struct {
	mu    sync.Mutex
	calls []string

	traverse           func(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error)
	traverseCollecting func(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error)
	pathAggregate      func(ctx context.Context, req models.AggregateRequest) (*models.PathAggregateResult, error)
}

func (m *mockTraversal) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockTraversal) Traverse(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error) {
	m.record("Traverse")
	return m.traverse(ctx, req)
}

func (m *mockTraversal) TraverseCollecting(ctx context.Context, req models.TraverseRequest) (*models.TraversalResult, error) {
	m.record("TraverseCollecting")
	return m.traverseCollecting(ctx, req)
}

func (m *mockTraversal) PathAggregate(ctx context.Context, req models.AggregateRequest) (*models.PathAggregateResult, error) {
	m.record("PathAggregate")
	return m.pathAggregate(ctx, req)
}

// mockPaths records calls and returns configured responses.
type mockPaths struct {
	mu    sync.Mutex
	calls []string

	shortestPath     func(ctx context.Context, req models.PathRequest) (*models.ShortestPathResult, error)
	allShortestPaths func(ctx context.Context, req models.PathRequest) (*models.AllShortestPathsResult, error)
}

func (m *mockPaths) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockPaths) ShortestPath(ctx context.Context, req models.PathRequest) (*models.ShortestPathResult, error) {
	m.record("ShortestPath")
	return m.shortestPath(ctx, req)
}

func (m *mockPaths) AllShortestPaths(ctx context.Context, req models.PathRequest) (*models.AllShortestPathsResult, error) {
	m.record("AllShortestPaths")
	return m.allShortestPaths(ctx, req)
}

// mockNetwork records calls and returns configured responses.
type mockNetwork struct {
	mu    sync.Mutex
	calls []string

	centrality          func(ctx context.Context, req models.CentralityRequest) (*models.CentralityResult, error)
	connectedComponents func(ctx context.Context, req models.ComponentsRequest) (*models.ConnectedComponentsResult, error)
	resilience          func(ctx context.Context, req models.ResilienceRequest) (*models.ResilienceResult, error)
	articulationPoints  func(ctx context.Context, req models.ComponentsRequest) (*models.ArticulationResult, error)
}

func (m *mockNetwork) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockNetwork) Centrality(ctx context.Context, req models.CentralityRequest) (*models.CentralityResult, error) {
	m.record("Centrality")
	return m.centrality(ctx, req)
}

func (m *mockNetwork) ConnectedComponents(ctx context.Context, req models.ComponentsRequest) (*models.ConnectedComponentsResult, error) {
	m.record("ConnectedComponents")
	return m.connectedComponents(ctx, req)
}

func (m *mockNetwork) Resilience(ctx context.Context, req models.ResilienceRequest) (*models.ResilienceResult, error) {
	m.record("Resilience")
	return m.resilience(ctx, req)
}

func (m *mockNetwork) ArticulationPoints(ctx context.Context, req models.ComponentsRequest) (*models.ArticulationResult, error) {
	m.record("ArticulationPoints")
	return m.articulationPoints(ctx, req)
}
