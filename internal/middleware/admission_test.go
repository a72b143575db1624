package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/relgraph/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAdmission_AllowsWithinCapacity(t *testing.T) {
	a := middleware.NewAdmission(2, 10*time.Millisecond)

	r := gin.New()
	r.Use(a.Handler())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestAdmission_RejectsWhenSaturated(t *testing.T) {
	a := middleware.NewAdmission(1, 10*time.Millisecond)

	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.Use(a.Handler())
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)

	slow := httptest.NewRecorder()
	go func() {
		defer wg.Done()
		r.ServeHTTP(slow, httptest.NewRequest(http.MethodGet, "/slow", http.NoBody))
	}()

	<-entered

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", http.NoBody))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	close(release)
	wg.Wait()

	if slow.Code != http.StatusOK {
		t.Fatalf("slow request: expected 200, got %d", slow.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("after release: expected 200, got %d", w.Code)
	}
}
