package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/api"
	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/graphtest"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/network"
	"github.com/persistorai/relgraph/internal/pathfind"
	"github.com/persistorai/relgraph/internal/service"
	"github.com/persistorai/relgraph/internal/traversal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// fixtureEnv is the A -distance 5-> B -distance 7-> C fixture.
func fixtureEnv(t *testing.T) *graphtest.Env {
	t.Helper()

	env := graphtest.New(t)
	env.Nodes("A", "B", "C")
	env.Link("A", "B", 5)
	env.Link("B", "C", 7)

	return env
}

// newRouter wires real engines over env behind the full router.
func newRouter(env *graphtest.Env) http.Handler {
	log := testLogger()
	g := guard.New(graphtest.Limits(), log)

	return api.NewRouter(&api.RouterDeps{
		Log:         log,
		Backend:     env.Store,
		BackendMode: "fixture",
		Mapping:     env.Mapping,
		Traversal:   service.NewTraversalService(traversal.New(env.Store, env.Mapping, g, log), log),
		Paths:       service.NewPathService(pathfind.New(env.Store, env.Mapping, g, log), log),
		Network:     service.NewNetworkService(network.New(env.Store, env.Mapping, g, log), log),
		CORSOrigins: []string{"http://localhost:3000"},
		Version:     "test-v1",
		MaxInFlight: 4,
	})
}

// newStubRouter serves net behind the full router, for error mapping tests.
func newStubRouter(env *graphtest.Env, net domain.NetworkService) http.Handler {
	log := testLogger()

	return api.NewRouter(&api.RouterDeps{
		Log:         log,
		Backend:     env.Store,
		Mapping:     env.Mapping,
		Network:     net,
		CORSOrigins: []string{"http://localhost:3000"},
		MaxInFlight: 1,
	})
}

// doRequest performs an HTTP request against the handler and returns the recorder.
func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

// readyFunc adapts a function to api.ReadinessChecker.
type readyFunc func(ctx context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }
