// Package engine holds the per-call plumbing shared by the traversal,
// pathfinding and network engines: relationship resolution, limit overrides,
// the wall-clock deadline, the reader every query of one call goes through,
// and the span and duration metric around the whole call.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/guard"
	"github.com/persistorai/relgraph/internal/metrics"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

var tracer = otel.Tracer("relgraph.engine")

// Base holds the dependencies every engine shares.
type Base struct {
	Source  domain.Source
	Mapping *ontology.Mapping
	Guard   *guard.Guard
	Log     *logrus.Logger
}

// Scope names what a call needs resolved before it runs.
type Scope struct {
	Op           string
	Relationship string
	Overrides    *models.LimitOverrides
	// Require lists operation categories of which the relationship must
	// declare at least one.
	Require []ontology.OpCategory
	// AsOf requires temporal_traversal when set.
	AsOf *time.Time
}

// Call is one operation in flight.
type Call struct {
	Op     string
	Rel    *ontology.Relationship
	Limits models.Limits
	Guard  *guard.Guard
	Reader domain.Reader
	Log    *logrus.Entry

	span    trace.Span
	cancel  context.CancelFunc
	started time.Time
}

// Begin resolves s, applies the per-call limits and opens a reader under the
// call's deadline. The returned context carries that deadline and must be
// used for every query of the call; Finish releases it.
func (b *Base) Begin(ctx context.Context, s Scope) (context.Context, *Call, error) {
	if s.Relationship == "" {
		return ctx, nil, models.ErrMissingRelationship
	}

	rel, err := b.Mapping.ResolveRelationship(s.Relationship)
	if err != nil {
		return ctx, nil, err
	}

	if len(s.Require) > 0 {
		if err := rel.Require(s.Require...); err != nil {
			return ctx, nil, err
		}
	}

	if s.AsOf != nil {
		if err := rel.Require(ontology.OpTemporalTraversal); err != nil {
			return ctx, nil, err
		}
	}

	limits, err := b.Guard.Limits().With(s.Overrides)
	if err != nil {
		return ctx, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, limits.Timeout)
	ctx, span := tracer.Start(ctx, s.Op, trace.WithAttributes(
		attribute.String("relationship", rel.Name),
		attribute.String("table", rel.Table),
	))

	r, err := b.Source.Open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		cancel()

		if cerr := models.ContextError(ctx.Err()); cerr != nil {
			return ctx, nil, cerr
		}

		return ctx, nil, err
	}

	return ctx, &Call{
		Op:      s.Op,
		Rel:     rel,
		Limits:  limits,
		Guard:   b.Guard.WithLimits(limits),
		Reader:  r,
		Log:     b.Log.WithFields(logrus.Fields{"op": s.Op, "relationship": rel.Name}),
		span:    span,
		cancel:  cancel,
		started: time.Now(),
	}, nil
}

// Finish closes the call and returns res, or nil and a classified error when
// err is set. Partial results never escape a failed call.
func Finish[T any](ctx context.Context, c *Call, res *T, err error) (*T, error) {
	if err != nil {
		if cerr := models.ContextError(ctx.Err()); cerr != nil && !errors.Is(err, models.ErrSafetyLimit) {
			err = cerr
		}

		res = nil
	}

	if cerr := c.Reader.Close(context.WithoutCancel(ctx)); cerr != nil {
		c.Log.WithError(cerr).Warn("closing reader")
	}

	metrics.OperationDuration.WithLabelValues(c.Op).Observe(time.Since(c.started).Seconds())

	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(c.Op).Inc()
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}

	c.span.End()
	c.cancel()

	return res, err
}

// RequireNodes fails with a not-found error naming every id of ent that is
// not a live row.
func (c *Call) RequireNodes(ctx context.Context, ent *ontology.Entity, ids ...string) error {
	live, err := c.Reader.ExistingNodes(ctx, ent, ids)
	if err != nil {
		return err
	}

	found := make(map[string]bool, len(live))
	for _, id := range live {
		found[id] = true
	}

	var missing []string

	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		return models.NodeNotFoundError(missing...)
	}

	return nil
}

// Event records a span event on the call.
func (c *Call) Event(name string, kv ...attribute.KeyValue) {
	c.span.AddEvent(name, trace.WithAttributes(kv...))
}

// CheckDepth rejects depth above the call's ceiling. Non-positive depth
// resolves to def.
func (c *Call) CheckDepth(depth, def int) (int, error) {
	if depth <= 0 {
		depth = def
	}

	if depth > c.Limits.MaxDepth {
		return 0, &models.SafetyLimitError{
			Limit:          models.LimitMaxDepth,
			Ceiling:        c.Limits.MaxDepth,
			Requested:      depth,
			Recommendation: models.RecommendReduceDepth,
			SuggestedDepth: c.Limits.MaxDepth,
			Preflight:      true,
		}
	}

	return depth, nil
}

// Trip records a mid-execution circuit breaker and returns its error.
func (c *Call) Trip(limit string, ceiling, actual int) error {
	metrics.CircuitBreakerTrips.WithLabelValues(limit).Inc()

	c.Log.WithFields(logrus.Fields{
		"limit":   limit,
		"ceiling": ceiling,
		"actual":  actual,
	}).Warn("circuit breaker tripped")

	return &models.SafetyLimitError{
		Limit:          limit,
		Ceiling:        ceiling,
		Actual:         actual,
		Recommendation: models.RecommendAbort,
	}
}
