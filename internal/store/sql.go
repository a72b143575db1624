package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

const (
	edgeAlias = "e"
	nodeAlias = "n"
)

// query accumulates SQL text and positional arguments.
type query struct {
	sql  strings.Builder
	args []any
}

// arg binds v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)

	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) String() string { return q.sql.String() }

// table quotes a possibly schema-qualified table name.
func table(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// column returns alias."col".
func column(alias, name string) string {
	return alias + "." + pgx.Identifier{name}.Sanitize()
}

// keyText selects key columns as text, in key order.
func keyText(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = column(alias, c) + "::text"
	}

	return out
}

// keyMatch renders a batched membership test of the key columns against ids.
// With declared key types the parameter is cast to the column type so the
// join-column index stays usable; otherwise the column is compared as text.
// Composite keys match row values against unnest of one array per column.
func (q *query) keyMatch(alias string, cols []string, ent *ontology.Entity, ids []string) (string, error) {
	parts, ok := models.SplitKeys(ids, len(cols))
	if !ok {
		return "", fmt.Errorf("%w: node id does not have %d key parts", models.ErrInvalidRequest, len(cols))
	}

	lhs := make([]string, len(cols))
	rhs := make([]string, len(cols))

	for i, c := range cols {
		typ := ""
		if ent != nil {
			typ = ent.KeyType(i)
		}

		p := q.arg(parts[i])

		if typ == "" {
			lhs[i] = column(alias, c) + "::text"
			rhs[i] = p + "::text[]"
		} else {
			lhs[i] = column(alias, c)
			rhs[i] = p + "::text[]::" + typ + "[]"
		}
	}

	if len(cols) == 1 {
		return lhs[0] + " = ANY(" + rhs[0] + ")", nil
	}

	return "(" + strings.Join(lhs, ", ") + ") IN (SELECT * FROM unnest(" + strings.Join(rhs, ", ") + "))", nil
}

// live renders the soft-delete exclusion for alias, or "".
func live(alias string, sd *ontology.SoftDelete) string {
	if sd == nil {
		return ""
	}

	if sd.Flag {
		return column(alias, sd.Column) + " IS NOT TRUE"
	}

	return column(alias, sd.Column) + " IS NULL"
}

// predicate renders one bound comparison.
func (q *query) predicate(alias string, p models.Predicate) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	col := column(alias, p.Column)

	switch p.Op {
	case models.OpIsNull:
		return col + " IS NULL", nil
	case models.OpNotNull:
		return col + " IS NOT NULL", nil
	case models.OpIn:
		vals, _ := p.Value.([]any)
		strs := make([]string, len(vals))

		for i, v := range vals {
			strs[i] = fmt.Sprint(v)
		}

		return col + "::text = ANY(" + q.arg(strs) + "::text[])", nil
	case models.OpNe:
		return col + " <> " + q.arg(p.Value), nil
	default:
		return col + " " + string(p.Op) + " " + q.arg(p.Value), nil
	}
}

// edgeConditions renders every row-liveness condition of rel: soft delete,
// temporal validity, declared filters, raw filter SQL and endpoint liveness.
func (q *query) edgeConditions(rel *ontology.Relationship, asOf *time.Time) ([]string, error) {
	var conds []string

	if c := live(edgeAlias, rel.SoftDelete); c != "" {
		conds = append(conds, c)
	}

	if rel.Temporal != nil && asOf != nil {
		t := q.arg(*asOf)
		vf := column(edgeAlias, rel.Temporal.ValidFrom)
		vt := column(edgeAlias, rel.Temporal.ValidTo)
		conds = append(conds,
			"("+vf+" IS NULL OR "+vf+" <= "+t+")",
			"("+vt+" IS NULL OR "+vt+" > "+t+")",
		)
	}

	for _, p := range rel.Filters {
		c, err := q.predicate(edgeAlias, p)
		if err != nil {
			return nil, fmt.Errorf("relationship %s filter: %w", rel.Name, err)
		}

		conds = append(conds, c)
	}

	if rel.FilterSQL != "" {
		conds = append(conds, "("+rel.FilterSQL+")")
	}

	if c := endpointLive(rel.Domain(), rel.From.Columns); c != "" {
		conds = append(conds, c)
	}

	if st, ok := rel.Target().(ontology.SingleTarget); ok {
		if c := endpointLive(st.Entity, rel.To.Columns); c != "" {
			conds = append(conds, c)
		}
	}

	return conds, nil
}

// endpointLive excludes edges whose endpoint row is soft-deleted.
func endpointLive(ent *ontology.Entity, edgeCols []string) string {
	if ent == nil || ent.SoftDelete == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString("EXISTS (SELECT 1 FROM ")
	b.WriteString(table(ent.Table))
	b.WriteString(" AS " + nodeAlias + " WHERE ")

	for i, pk := range ent.PrimaryKey {
		b.WriteString(column(nodeAlias, pk) + " = " + column(edgeAlias, edgeCols[i]) + " AND ")
	}

	b.WriteString(live(nodeAlias, ent.SoftDelete))
	b.WriteString(")")

	return b.String()
}

// edgeSelect renders the projection of an edge row. Order: from key, to key,
// discriminator, weights, attributes.
func edgeSelect(rel *ontology.Relationship) string {
	cols := keyText(edgeAlias, rel.From.Columns)
	cols = append(cols, keyText(edgeAlias, rel.To.Columns)...)

	if rel.Discriminator != nil {
		cols = append(cols, column(edgeAlias, rel.Discriminator.Column)+"::text")
	}

	for i := range rel.Weights {
		cols = append(cols, column(edgeAlias, rel.Weights[i].ColumnName())+"::float8")
	}

	for _, a := range rel.Attributes {
		cols = append(cols, column(edgeAlias, a)+"::text")
	}

	return strings.Join(cols, ", ")
}

// edgeSQL builds the batched edge fetch for one frontier level, or a full
// scan of the relationship when q has neither From nor To.
func edgeSQL(eq domain.EdgeQuery, all bool) (*query, error) {
	rel := eq.Rel
	q := &query{}

	conds, err := q.edgeConditions(rel, eq.AsOf)
	if err != nil {
		return nil, err
	}

	if !all {
		var either []string

		if len(eq.From) > 0 {
			c, err := q.keyMatch(edgeAlias, rel.From.Columns, rel.Domain(), eq.From)
			if err != nil {
				return nil, err
			}

			either = append(either, c)
		}

		if len(eq.To) > 0 {
			c, err := q.keyMatch(edgeAlias, rel.To.Columns, singleTarget(rel), eq.To)
			if err != nil {
				return nil, err
			}

			either = append(either, c)
		}

		if len(either) == 0 {
			return nil, fmt.Errorf("%w: edge query without endpoints", models.ErrInvalidRequest)
		}

		conds = append([]string{"(" + strings.Join(either, " OR ") + ")"}, conds...)
	}

	q.sql.WriteString("SELECT " + edgeSelect(rel) + " FROM " + table(rel.Table) + " AS " + edgeAlias)
	where(&q.sql, conds)

	if eq.Limit > 0 {
		q.sql.WriteString(" LIMIT " + q.arg(eq.Limit))
	}

	return q, nil
}

// countSQL counts live edges of rel, stopping the scan at limit.
func countSQL(rel *ontology.Relationship, asOf *time.Time, limit int) (*query, error) {
	q := &query{}

	conds, err := q.edgeConditions(rel, asOf)
	if err != nil {
		return nil, err
	}

	q.sql.WriteString("SELECT count(*) FROM (SELECT 1 FROM " + table(rel.Table) + " AS " + edgeAlias)
	where(&q.sql, conds)

	if limit > 0 {
		q.sql.WriteString(" LIMIT " + q.arg(limit))
	}

	q.sql.WriteString(") AS c")

	return q, nil
}

// nodeSQL selects live node keys of ent, optionally restricted to ids and
// filtered by predicates.
func nodeSQL(ent *ontology.Entity, ids []string, restrict bool, preds []models.Predicate, limit int) (*query, error) {
	q := &query{}

	var conds []string

	if restrict {
		c, err := q.keyMatch(nodeAlias, ent.PrimaryKey, ent, ids)
		if err != nil {
			return nil, err
		}

		conds = append(conds, c)
	}

	if c := live(nodeAlias, ent.SoftDelete); c != "" {
		conds = append(conds, c)
	}

	for _, p := range preds {
		c, err := q.predicate(nodeAlias, p)
		if err != nil {
			return nil, err
		}

		conds = append(conds, c)
	}

	keys := keyText(nodeAlias, ent.PrimaryKey)

	q.sql.WriteString("SELECT " + strings.Join(keys, ", ") + " FROM " + table(ent.Table) + " AS " + nodeAlias)
	where(&q.sql, conds)

	if !restrict {
		q.sql.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}

	if limit > 0 {
		q.sql.WriteString(" LIMIT " + q.arg(limit))
	}

	return q, nil
}

func where(b *strings.Builder, conds []string) {
	if len(conds) == 0 {
		return
	}

	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(conds, " AND "))
}

func singleTarget(rel *ontology.Relationship) *ontology.Entity {
	if st, ok := rel.Target().(ontology.SingleTarget); ok {
		return st.Entity
	}

	return nil
}
