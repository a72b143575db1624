package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/domain"
)

// GraphHandler serves the traversal, pathfinding and network analysis
// endpoints. Every endpoint takes a JSON request body.
type GraphHandler struct {
	traversal domain.TraversalService
	paths     domain.PathService
	network   domain.NetworkService
	log       *logrus.Logger
}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler(traversal domain.TraversalService, paths domain.PathService, network domain.NetworkService, log *logrus.Logger) *GraphHandler {
	return &GraphHandler{traversal: traversal, paths: paths, network: network, log: log}
}

// run binds the body into a Req, calls fn and writes the result or the
// mapped error.
func run[Req, Res any](h *GraphHandler, op string, fn func(context.Context, Req) (*Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, "invalid request body: "+err.Error())

			return
		}

		res, err := fn(c.Request.Context(), req)
		if err != nil {
			respondEngineError(c, h.log, op, err)

			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// Traverse handles POST /api/v1/graph/traverse.
func (h *GraphHandler) Traverse() gin.HandlerFunc {
	return run(h, "traverse", h.traversal.Traverse)
}

// TraverseCollecting handles POST /api/v1/graph/traverse/collect.
func (h *GraphHandler) TraverseCollecting() gin.HandlerFunc {
	return run(h, "traverse_collecting", h.traversal.TraverseCollecting)
}

// PathAggregate handles POST /api/v1/graph/aggregate.
func (h *GraphHandler) PathAggregate() gin.HandlerFunc {
	return run(h, "path_aggregate", h.traversal.PathAggregate)
}

// ShortestPath handles POST /api/v1/graph/shortest-path.
func (h *GraphHandler) ShortestPath() gin.HandlerFunc {
	return run(h, "shortest_path", h.paths.ShortestPath)
}

// AllShortestPaths handles POST /api/v1/graph/all-shortest-paths.
func (h *GraphHandler) AllShortestPaths() gin.HandlerFunc {
	return run(h, "all_shortest_paths", h.paths.AllShortestPaths)
}

// Centrality handles POST /api/v1/graph/centrality.
func (h *GraphHandler) Centrality() gin.HandlerFunc {
	return run(h, "centrality", h.network.Centrality)
}

// ConnectedComponents handles POST /api/v1/graph/components.
func (h *GraphHandler) ConnectedComponents() gin.HandlerFunc {
	return run(h, "connected_components", h.network.ConnectedComponents)
}

// Resilience handles POST /api/v1/graph/resilience.
func (h *GraphHandler) Resilience() gin.HandlerFunc {
	return run(h, "resilience", h.network.Resilience)
}

// ArticulationPoints handles POST /api/v1/graph/articulation-points.
func (h *GraphHandler) ArticulationPoints() gin.HandlerFunc {
	return run(h, "articulation_points", h.network.ArticulationPoints)
}
