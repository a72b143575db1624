package api

import "context"

// ReadinessChecker reports whether the relational backend can serve queries.
// Both the Postgres store and the fixture store implement it.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}
