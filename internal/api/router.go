package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/middleware"
	"github.com/persistorai/relgraph/internal/ontology"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Backend     ReadinessChecker
	BackendMode string
	Mapping     *ontology.Mapping
	Traversal   domain.TraversalService
	Paths       domain.PathService
	Network     domain.NetworkService
	CORSOrigins []string
	Version     string
	// MaxInFlight caps concurrent graph operations; normally the pool size.
	MaxInFlight int
}

// Router-level limits.
const (
	maxBodySize   = 1 << 20 // 1 MB
	admissionWait = 2 * time.Second
	metricsPath   = "/metrics"
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.PrometheusMiddleware(metricsPath))

	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Backend, deps.Mapping, log, deps.Version, deps.BackendMode)
	mapping := NewMappingHandler(deps.Mapping, log)
	graph := NewGraphHandler(deps.Traversal, deps.Paths, deps.Network, log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Mapping discovery.
	api.GET("/mapping", mapping.List)
	api.GET("/mapping/relationships/:name", mapping.Relationship)

	// Graph operations hold a store connection each, so they go through admission.
	g := api.Group("/graph", middleware.NewAdmission(deps.MaxInFlight, admissionWait).Handler())

	// Traversal.
	g.POST("/traverse", graph.Traverse())
	g.POST("/traverse/collect", graph.TraverseCollecting())
	g.POST("/aggregate", graph.PathAggregate())

	// Pathfinding.
	g.POST("/shortest-path", graph.ShortestPath())
	g.POST("/all-shortest-paths", graph.AllShortestPaths())

	// Network analysis.
	g.POST("/centrality", graph.Centrality())
	g.POST("/components", graph.ConnectedComponents())
	g.POST("/resilience", graph.Resilience())
	g.POST("/articulation-points", graph.ArticulationPoints())
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(r.Group("/api/v1"), deps)

	return r
}
