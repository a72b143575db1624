package api_test

import (
	"context"

	"github.com/persistorai/relgraph/internal/models"
)

// stubNetwork fails every call with err.
type stubNetwork struct {
	err error
}

func (s *stubNetwork) Centrality(context.Context, models.CentralityRequest) (*models.CentralityResult, error) {
	return nil, s.err
}

func (s *stubNetwork) ConnectedComponents(context.Context, models.ComponentsRequest) (*models.ConnectedComponentsResult, error) {
	return nil, s.err
}

func (s *stubNetwork) Resilience(context.Context, models.ResilienceRequest) (*models.ResilienceResult, error) {
	return nil, s.err
}

func (s *stubNetwork) ArticulationPoints(context.Context, models.ComponentsRequest) (*models.ArticulationResult, error) {
	return nil, s.err
}
