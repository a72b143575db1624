package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc, opts ...Option) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/", opts...)
	return srv, c
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "ok", Version: "1.2.0", Backend: "postgres"})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("got status %q, want ok", resp.Status)
	}
	if resp.Backend != "postgres" {
		t.Errorf("got backend %q, want postgres", resp.Backend)
	}
}

func TestReady_NotReadyKeepsChecks(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/ready": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 503, ReadinessResponse{
				Status: "not_ready",
				Checks: map[string]string{"database": "error", "mapping": "ok"},
			})
		},
	})
	resp, err := c.Ready(context.Background())
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if resp == nil || resp.Checks["database"] != "error" {
		t.Fatalf("got %+v, want decoded checks", resp)
	}
}

func TestGraph_PostsToRoute(t *testing.T) {
	var got PathRequest
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/graph/shortest-path": func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("got content type %q", ct)
			}
			json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
			jsonResponse(w, 200, ShortestPathResult{Start: "A", End: "C", Path: []string{"A", "B", "C"}, Distance: 12, Hops: 2})
		},
	})
	res, err := c.Graph.ShortestPath(context.Background(), PathRequest{
		Relationship: "links", Start: "A", End: "C", WeightColumn: "distance",
	})
	if err != nil {
		t.Fatalf("ShortestPath() error: %v", err)
	}
	if got.WeightColumn != "distance" || got.Relationship != "links" {
		t.Errorf("server saw %+v", got)
	}
	if res.Distance != 12 || len(res.Path) != 3 {
		t.Errorf("got %+v", res)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Request-ID"); id != "trace-1" {
				t.Errorf("got X-Request-ID %q, want trace-1", id)
			}
			jsonResponse(w, 200, HealthResponse{Status: "ok"})
		},
	}, WithRequestID(func() string { return "trace-1" }))
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		header map[string]string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "safety limit with detail",
			status: 413,
			body: map[string]any{
				"code": "safety_limit", "message": "max_depth exceeded", "request_id": "r1",
				"detail": map[string]any{"limit": "max_depth", "ceiling": 10, "requested": 99, "preflight": true},
			},
			check: func(t *testing.T, err error) {
				if !IsSafetyLimit(err) {
					t.Fatalf("IsSafetyLimit(%v) = false", err)
				}
				sl, ok := err.(*APIError).SafetyLimit()
				if !ok || sl.Limit != "max_depth" || sl.Requested != 99 || !sl.Preflight {
					t.Errorf("got %+v", sl)
				}
			},
		},
		{
			name:   "not found",
			status: 404,
			body:   map[string]any{"code": "not_found", "message": "node not found"},
			check: func(t *testing.T, err error) {
				if !IsNotFound(err) {
					t.Errorf("IsNotFound(%v) = false", err)
				}
				if IsSafetyLimit(err) {
					t.Error("not found is not a safety limit")
				}
			},
		},
		{
			name:   "busy with retry after",
			status: 503,
			body:   map[string]any{"code": "busy", "message": "too many graph operations in flight"},
			header: map[string]string{"Retry-After": "2"},
			check: func(t *testing.T, err error) {
				if !IsBusy(err) {
					t.Fatalf("IsBusy(%v) = false", err)
				}
				if got := err.(*APIError).RetryAfter; got != 2*time.Second {
					t.Errorf("got RetryAfter %v, want 2s", got)
				}
			},
		},
		{
			name:   "invalid mapping problems",
			status: 422,
			body: map[string]any{
				"code": "invalid_mapping", "message": "mapping invalid",
				"detail": map[string]any{"errors": []map[string]string{{"path": "relationships.links.to", "message": "unknown entity"}}},
			},
			check: func(t *testing.T, err error) {
				probs := err.(*APIError).MappingProblems()
				if len(probs) != 1 || probs[0].Path != "relationships.links.to" {
					t.Errorf("got %+v", probs)
				}
			},
		},
		{
			name:   "timeout",
			status: 504,
			body:   map[string]any{"code": "timeout", "message": "query exceeded its time budget"},
			check: func(t *testing.T, err error) {
				if !IsTimeout(err) {
					t.Errorf("IsTimeout(%v) = false", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t, map[string]http.HandlerFunc{
				"POST /api/v1/graph/traverse": func(w http.ResponseWriter, _ *http.Request) {
					for k, v := range tt.header {
						w.Header().Set(k, v)
					}
					jsonResponse(w, tt.status, tt.body)
				},
			})
			_, err := c.Graph.Traverse(context.Background(), TraverseRequest{Relationship: "links", Start: "A"})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/mapping": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(502)
			w.Write([]byte("bad gateway")) //nolint:errcheck
		},
	})
	_, err := c.Mapping.Get(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("got %T, want *APIError", err)
	}
	if apiErr.Code != "unknown" || apiErr.Message != "bad gateway" {
		t.Errorf("got %+v", apiErr)
	}
}
