// Package middleware provides HTTP middleware for relgraph.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/persistorai/relgraph/internal/metrics"
)

// Admission caps the number of graph operations running at once. Each
// operation holds one store connection for its whole lifetime, so the cap is
// normally the pool size.
type Admission struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// NewAdmission admits at most slots concurrent operations. A request that
// cannot get a slot within wait is rejected with 503.
func NewAdmission(slots int, wait time.Duration) *Admission {
	if slots < 1 {
		slots = 1
	}

	return &Admission{sem: semaphore.NewWeighted(int64(slots)), wait: wait}
}

// Handler returns Gin middleware that holds a slot for the rest of the chain.
func (a *Admission) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), a.wait)
		err := a.sem.Acquire(ctx, 1)
		cancel()

		if err != nil {
			metrics.AdmissionRejected.Inc()
			c.Header("Retry-After", "1")
			respondError(c, http.StatusServiceUnavailable, "busy", "too many graph operations in flight")

			return
		}

		metrics.InFlightOperations.Inc()
		defer func() {
			metrics.InFlightOperations.Dec()
			a.sem.Release(1)
		}()

		c.Next()
	}
}
