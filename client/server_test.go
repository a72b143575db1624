package client_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/relgraph/client"
	"github.com/persistorai/relgraph/internal/api"
	"github.com/persistorai/relgraph/internal/graphtest"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/network"
	"github.com/persistorai/relgraph/internal/pathfind"
	"github.com/persistorai/relgraph/internal/service"
	"github.com/persistorai/relgraph/internal/traversal"
)

// newServer runs the full router over the A -5-> B -7-> C fixture.
func newServer(t *testing.T) *client.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := graphtest.New(t)
	env.Nodes("A", "B", "C")
	env.Link("A", "B", 5)
	env.Link("B", "C", 7)

	log := graphtest.Logger()
	g := guard.New(graphtest.Limits(), log)

	srv := httptest.NewServer(api.NewRouter(&api.RouterDeps{
		Log:         log,
		Backend:     env.Store,
		BackendMode: "fixture",
		Mapping:     env.Mapping,
		Traversal:   service.NewTraversalService(traversal.New(env.Store, env.Mapping, g, log), log),
		Paths:       service.NewPathService(pathfind.New(env.Store, env.Mapping, g, log), log),
		Network:     service.NewNetworkService(network.New(env.Store, env.Mapping, g, log), log),
		CORSOrigins: []string{"http://localhost:3000"},
		Version:     "test",
		MaxInFlight: 2,
	}))
	t.Cleanup(srv.Close)

	return client.New(srv.URL)
}

func TestServer_ShortestPath(t *testing.T) {
	c := newServer(t)

	res, err := c.Graph.ShortestPath(context.Background(), client.PathRequest{
		Relationship: graphtest.Links,
		Start:        "A",
		End:          "C",
		WeightColumn: "distance",
	})
	if err != nil {
		t.Fatalf("ShortestPath() error: %v", err)
	}
	if res.Distance != 12 || res.Hops != 2 {
		t.Errorf("got distance %v hops %d, want 12 and 2", res.Distance, res.Hops)
	}
}

func TestServer_TraverseAndNetwork(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	tr, err := c.Graph.Traverse(ctx, client.TraverseRequest{Relationship: graphtest.Links, Start: "A", MaxDepth: 2})
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}
	if len(tr.Nodes) != 2 {
		t.Errorf("got nodes %v, want B and C", tr.Nodes)
	}

	res, err := c.Graph.Resilience(ctx, client.ResilienceRequest{Relationship: graphtest.Links, Node: "B"})
	if err != nil {
		t.Fatalf("Resilience() error: %v", err)
	}
	if !res.IsArticulation || res.ComponentDelta != 1 {
		t.Errorf("got %+v", res)
	}

	cc, err := c.Graph.ConnectedComponents(ctx, client.ComponentsRequest{Relationship: graphtest.Links})
	if err != nil {
		t.Fatalf("ConnectedComponents() error: %v", err)
	}
	if cc.Total != 1 {
		t.Errorf("got %d components, want 1", cc.Total)
	}
}

func TestServer_Errors(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	_, err := c.Graph.Traverse(ctx, client.TraverseRequest{Relationship: graphtest.Links, Start: "A", MaxDepth: 99})
	if !client.IsSafetyLimit(err) {
		t.Fatalf("got %v, want safety limit", err)
	}

	_, err = c.Graph.ShortestPath(ctx, client.PathRequest{Relationship: graphtest.Links, Start: "A", End: "Q"})
	if !client.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}

	_, err = c.Mapping.Relationship(ctx, "roads")
	if !client.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestServer_Mapping(t *testing.T) {
	c := newServer(t)

	m, err := c.Mapping.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	links := m.Relationship(graphtest.Links)
	if links == nil {
		t.Fatal("links relationship missing")
	}
	if len(links.Weights) != 3 || !links.Temporal {
		t.Errorf("got %+v", links)
	}

	ready, err := c.Ready(context.Background())
	if err != nil {
		t.Fatalf("Ready() error: %v", err)
	}
	if ready.Status != "ready" {
		t.Errorf("got status %q, want ready", ready.Status)
	}
}
