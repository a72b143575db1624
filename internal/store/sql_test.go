package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

const testMapping = `
version: "1"
entities:
  facility:
    table: logistics.facilities
    primary_key: [id]
    key_types: [bigint]
    soft_delete: {column: deleted_at}
  part:
    table: parts
    primary_key: [part_no, rev]
relationships:
  ships_to:
    table: routes
    from: {entity: facility, columns: [src_id]}
    to: {entity: facility, columns: [dst_id]}
    operations: [recursive_traversal, temporal_traversal, algorithm]
    weights:
      - {name: distance, column: distance_km, type: numeric}
    attributes: [mode]
    temporal: {valid_from: valid_from, valid_to: valid_to}
    soft_delete: {column: archived, flag: true}
    filters:
      - {column: status, op: "=", value: active}
  component_of:
    table: bom
    from: {entity: part, columns: [parent_no, parent_rev]}
    to: {entity: part, columns: [child_no, child_rev]}
    operations: [path_aggregation]
    weights:
      - {name: quantity, type: integer}
    filter_sql: "bom.kind <> 'tooling'"
`

func loadRel(t *testing.T, name string) *ontology.Relationship {
	t.Helper()

	m, err := ontology.LoadBytes([]byte(testMapping))
	if err != nil {
		t.Fatalf("loading mapping: %v", err)
	}

	rel, err := m.ResolveRelationship(name)
	if err != nil {
		t.Fatalf("resolving %s: %v", name, err)
	}

	return rel
}

func TestEdgeSQL_SingleKeyTyped(t *testing.T) {
	rel := loadRel(t, "ships_to")
	asOf := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	q, err := edgeSQL(domain.EdgeQuery{Rel: rel, From: []string{"1", "2"}, AsOf: &asOf}, false)
	if err != nil {
		t.Fatalf("edgeSQL: %v", err)
	}

	sql := q.String()

	wants := []string{
		`SELECT e."src_id"::text, e."dst_id"::text, e."distance_km"::float8, e."mode"::text FROM "routes" AS e`,
		`e."src_id" = ANY($`,
		`::text[]::bigint[])`,
		`e."archived" IS NOT TRUE`,
		`(e."valid_from" IS NULL OR e."valid_from" <= $1)`,
		`(e."valid_to" IS NULL OR e."valid_to" > $1)`,
		`e."status" = $2`,
		`EXISTS (SELECT 1 FROM "logistics"."facilities" AS n WHERE n."id" = e."src_id" AND n."deleted_at" IS NULL)`,
		`EXISTS (SELECT 1 FROM "logistics"."facilities" AS n WHERE n."id" = e."dst_id" AND n."deleted_at" IS NULL)`,
	}

	for _, w := range wants {
		if !strings.Contains(sql, w) {
			t.Errorf("sql missing %q\n%s", w, sql)
		}
	}

	if strings.Contains(sql, "LIMIT") {
		t.Errorf("unexpected LIMIT in %s", sql)
	}

	if len(q.args) != 3 {
		t.Fatalf("args = %d, want 3", len(q.args))
	}

	ids, ok := q.args[2].([]string)
	if !ok || len(ids) != 2 || ids[0] != "1" {
		t.Errorf("key arg = %#v", q.args[2])
	}
}

func TestEdgeSQL_BothDirectionsOneStatement(t *testing.T) {
	rel := loadRel(t, "ships_to")

	q, err := edgeSQL(domain.EdgeQuery{Rel: rel, From: []string{"1"}, To: []string{"1"}, Limit: 50}, false)
	if err != nil {
		t.Fatalf("edgeSQL: %v", err)
	}

	sql := q.String()

	if !strings.Contains(sql, ` OR e."dst_id" = ANY(`) {
		t.Errorf("expected OR of both endpoints: %s", sql)
	}

	if strings.Count(sql, "SELECT e.") != 1 {
		t.Errorf("expected a single statement: %s", sql)
	}

	if !strings.HasSuffix(sql, " LIMIT $4") {
		t.Errorf("expected trailing LIMIT $4: %s", sql)
	}

	if strings.Contains(sql, "valid_from") {
		t.Errorf("temporal filter without as_of: %s", sql)
	}
}

func TestEdgeSQL_CompositeKey(t *testing.T) {
	rel := loadRel(t, "component_of")

	q, err := edgeSQL(domain.EdgeQuery{
		Rel:  rel,
		From: []string{models.JoinKey("P1", "A"), models.JoinKey("P2", "B")},
	}, false)
	if err != nil {
		t.Fatalf("edgeSQL: %v", err)
	}

	sql := q.String()

	want := `(e."parent_no"::text, e."parent_rev"::text) IN (SELECT * FROM unnest($1::text[], $2::text[]))`
	if !strings.Contains(sql, want) {
		t.Errorf("sql missing %q\n%s", want, sql)
	}

	if !strings.Contains(sql, "(bom.kind <> 'tooling')") {
		t.Errorf("raw filter missing: %s", sql)
	}

	revs, _ := q.args[1].([]string)
	if len(revs) != 2 || revs[0] != "A" || revs[1] != "B" {
		t.Errorf("second key column = %#v", q.args[1])
	}
}

func TestEdgeSQL_BadCompositeID(t *testing.T) {
	rel := loadRel(t, "component_of")

	_, err := edgeSQL(domain.EdgeQuery{Rel: rel, From: []string{"no-separator"}}, false)
	if !errors.Is(err, models.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestEdgeSQL_NoEndpoints(t *testing.T) {
	rel := loadRel(t, "ships_to")

	if _, err := edgeSQL(domain.EdgeQuery{Rel: rel}, false); !errors.Is(err, models.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestCountSQL(t *testing.T) {
	rel := loadRel(t, "ships_to")

	q, err := countSQL(rel, nil, 1000)
	if err != nil {
		t.Fatalf("countSQL: %v", err)
	}

	sql := q.String()
	if !strings.HasPrefix(sql, `SELECT count(*) FROM (SELECT 1 FROM "routes" AS e WHERE `) {
		t.Errorf("unexpected prefix: %s", sql)
	}

	if !strings.HasSuffix(sql, " LIMIT $2) AS c") {
		t.Errorf("unexpected suffix: %s", sql)
	}
}

func TestNodeSQL(t *testing.T) {
	m, err := ontology.LoadBytes([]byte(testMapping))
	if err != nil {
		t.Fatalf("loading mapping: %v", err)
	}

	ent, err := m.ResolveEntity("facility")
	if err != nil {
		t.Fatalf("resolving entity: %v", err)
	}

	q, err := nodeSQL(ent, []string{"7"}, true, []models.Predicate{
		{Column: "tier", Op: models.OpLe, Value: 1},
		{Column: "region", Op: models.OpIn, Value: []any{"EU", 3}},
		{Column: "closed_at", Op: models.OpIsNull},
	}, 0)
	if err != nil {
		t.Fatalf("nodeSQL: %v", err)
	}

	want := `SELECT n."id"::text FROM "logistics"."facilities" AS n WHERE n."id" = ANY($1::text[]::bigint[]) AND n."deleted_at" IS NULL AND n."tier" <= $2 AND n."region"::text = ANY($3::text[]) AND n."closed_at" IS NULL`
	if q.String() != want {
		t.Errorf("sql =\n%s\nwant\n%s", q.String(), want)
	}

	in, _ := q.args[2].([]string)
	if len(in) != 2 || in[1] != "3" {
		t.Errorf("in arg = %#v", q.args[2])
	}

	all, err := nodeSQL(ent, nil, false, nil, 10)
	if err != nil {
		t.Fatalf("nodeSQL all: %v", err)
	}

	want = `SELECT n."id"::text FROM "logistics"."facilities" AS n WHERE n."deleted_at" IS NULL ORDER BY n."id"::text LIMIT $1`
	if all.String() != want {
		t.Errorf("sql =\n%s\nwant\n%s", all.String(), want)
	}
}

func TestPredicate_RejectsBadColumn(t *testing.T) {
	q := &query{}

	_, err := q.predicate(nodeAlias, models.Predicate{Column: `x"; drop`, Op: models.OpEq, Value: 1})
	if !errors.Is(err, models.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}
