package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/metrics"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

// pgQueryCanceled is SQLSTATE query_canceled, raised by statement_timeout.
const pgQueryCanceled = "57014"

func isStatementTimeout(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled
}

// reader is one read-only transaction.
type reader struct {
	tx      pgx.Tx
	log     *logrus.Logger
	timeout time.Duration
}

var _ domain.Reader = (*reader)(nil)

// run executes q and hands every row to scan.
func (r *reader) run(ctx context.Context, op, tbl string, cols []string, q *query, scan func(pgx.Rows) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()

	metrics.QueriesTotal.WithLabelValues(op, tbl).Inc()

	rows, err := r.tx.Query(ctx, q.String(), q.args...)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"op": op, "sql": describe(q)}).Warn("store query failed")

		return wrapErr(ctx, op, tbl, cols, err)
	}
	defer rows.Close()

	n := 0

	for rows.Next() {
		if err := scan(rows); err != nil {
			return wrapErr(ctx, op, tbl, cols, err)
		}

		n++
	}

	if err := rows.Err(); err != nil {
		return wrapErr(ctx, op, tbl, cols, err)
	}

	elapsed := time.Since(start)
	metrics.QueryDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	r.log.WithFields(logrus.Fields{
		"op":      op,
		"table":   tbl,
		"rows":    n,
		"elapsed": elapsed,
	}).Debug("store.query")

	return nil
}

// FetchEdges returns the edges of one frontier level.
func (r *reader) FetchEdges(ctx context.Context, q domain.EdgeQuery) ([]models.Edge, error) {
	sq, err := edgeSQL(q, false)
	if err != nil {
		return nil, err
	}

	return r.edges(ctx, "fetch_edges", q.Rel, sq)
}

// FetchAllEdges returns every live edge of rel up to limit.
func (r *reader) FetchAllEdges(ctx context.Context, rel *ontology.Relationship, asOf *time.Time, limit int) ([]models.Edge, error) {
	sq, err := edgeSQL(domain.EdgeQuery{Rel: rel, AsOf: asOf, Limit: limit}, true)
	if err != nil {
		return nil, err
	}

	return r.edges(ctx, "fetch_all_edges", rel, sq)
}

func (r *reader) edges(ctx context.Context, op string, rel *ontology.Relationship, sq *query) ([]models.Edge, error) {
	nFrom, nTo := len(rel.From.Columns), len(rel.To.Columns)
	hasDisc := rel.Discriminator != nil

	keys := make([]pgtype.Text, nFrom+nTo)
	weights := make([]pgtype.Float8, len(rel.Weights))
	attrs := make([]pgtype.Text, len(rel.Attributes))

	var disc pgtype.Text

	dest := make([]any, 0, len(keys)+1+len(weights)+len(attrs))
	for i := range keys {
		dest = append(dest, &keys[i])
	}

	if hasDisc {
		dest = append(dest, &disc)
	}

	for i := range weights {
		dest = append(dest, &weights[i])
	}

	for i := range attrs {
		dest = append(dest, &attrs[i])
	}

	cols := append(append([]string{}, rel.From.Columns...), rel.To.Columns...)

	var out []models.Edge

	err := r.run(ctx, op, rel.Table, cols, sq, func(rows pgx.Rows) error {
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		from, ok := joinText(keys[:nFrom])
		if !ok {
			return nil
		}

		to, ok := joinText(keys[nFrom:])
		if !ok {
			return nil
		}

		e := models.Edge{From: from, To: to}

		if hasDisc && disc.Valid {
			ent, err := rel.ResolveTarget(disc.String)
			if err != nil {
				return nil
			}

			e.TargetEntity = ent.Name
		}

		for i, w := range weights {
			if !w.Valid {
				continue
			}

			if e.Weights == nil {
				e.Weights = make(map[string]float64, len(weights))
			}

			e.Weights[rel.Weights[i].Name] = w.Float64
		}

		for i, a := range attrs {
			if !a.Valid {
				continue
			}

			if e.Attributes == nil {
				e.Attributes = make(map[string]string, len(attrs))
			}

			e.Attributes[rel.Attributes[i]] = a.String
		}

		out = append(out, e)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// joinText encodes key columns as a node id; rows with a NULL key part are skipped.
func joinText(parts []pgtype.Text) (string, bool) {
	if len(parts) == 1 {
		return parts[0].String, parts[0].Valid
	}

	s := make([]string, len(parts))
	for i, p := range parts {
		if !p.Valid {
			return "", false
		}

		s[i] = p.String
	}

	return models.JoinKey(s...), true
}

// CountEdges counts live edges of rel, stopping at limit.
func (r *reader) CountEdges(ctx context.Context, rel *ontology.Relationship, asOf *time.Time, limit int) (int, error) {
	sq, err := countSQL(rel, asOf, limit)
	if err != nil {
		return 0, err
	}

	var n int64

	err = r.run(ctx, "count_edges", rel.Table, nil, sq, func(rows pgx.Rows) error {
		return rows.Scan(&n)
	})

	return int(n), err
}

// ExistingNodes returns the live ids among ids.
func (r *reader) ExistingNodes(ctx context.Context, ent *ontology.Entity, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sq, err := nodeSQL(ent, ids, true, nil, 0)
	if err != nil {
		return nil, err
	}

	return r.nodes(ctx, "existing_nodes", ent, sq)
}

// MatchNodes returns the ids among ids whose rows satisfy preds.
func (r *reader) MatchNodes(ctx context.Context, ent *ontology.Entity, ids []string, preds []models.Predicate) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sq, err := nodeSQL(ent, ids, true, preds, 0)
	if err != nil {
		return nil, err
	}

	return r.nodes(ctx, "match_nodes", ent, sq)
}

// FetchAllNodes returns up to limit live node ids of ent.
func (r *reader) FetchAllNodes(ctx context.Context, ent *ontology.Entity, limit int) ([]string, error) {
	sq, err := nodeSQL(ent, nil, false, nil, limit)
	if err != nil {
		return nil, err
	}

	return r.nodes(ctx, "fetch_all_nodes", ent, sq)
}

func (r *reader) nodes(ctx context.Context, op string, ent *ontology.Entity, sq *query) ([]string, error) {
	keys := make([]pgtype.Text, len(ent.PrimaryKey))

	dest := make([]any, len(keys))
	for i := range keys {
		dest[i] = &keys[i]
	}

	var out []string

	err := r.run(ctx, op, ent.Table, ent.PrimaryKey, sq, func(rows pgx.Rows) error {
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		if id, ok := joinText(keys); ok {
			out = append(out, id)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Close ends the read-only transaction.
func (r *reader) Close(ctx context.Context) error {
	if err := r.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &models.StoreError{Op: "close read transaction", Table: "-", Err: err}
	}

	return nil
}

// describe renders a compact query summary for error logs.
func describe(sq *query) string {
	s := sq.String()
	if len(s) > 200 {
		s = s[:200] + "..."
	}

	return strings.Join(strings.Fields(s), " ")
}
