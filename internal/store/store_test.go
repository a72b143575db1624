package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/dbpool"
	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
	"github.com/persistorai/relgraph/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool  *dbpool.Pool
	admin *pgxpool.Pool
	log   *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL, dbpool.Options{MaxConns: 4, StatementTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	// The store only reads; fixtures are written through a separate pool.
	admin, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting admin pool: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sharedEnv = &testEnv{pool: pool, admin: admin, log: log}

	return sharedEnv
}

// setupRoutes creates a fresh schema holding a small route network:
//
//	1 -> 2 (5) -> 3 (7), 2 -> 4 archived, 5 deleted facility with 1 -> 5.
func setupRoutes(t *testing.T) (*store.Store, *ontology.Mapping) {
	t.Helper()

	env := getTestEnv(t)
	ctx := context.Background()
	schema := "relgraph_test_" + uuid.New().String()[:8]

	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA %s`, schema),
		fmt.Sprintf(`CREATE TABLE %s.facilities (id bigint PRIMARY KEY, tier int, deleted_at timestamptz)`, schema),
		fmt.Sprintf(`CREATE TABLE %s.routes (src_id bigint, dst_id bigint, distance_km numeric, mode text, archived boolean, valid_from date, valid_to date)`, schema),
		fmt.Sprintf(`INSERT INTO %s.facilities VALUES (1, 3, NULL), (2, 2, NULL), (3, 1, NULL), (4, 2, NULL), (5, 2, now())`, schema),
		fmt.Sprintf(`INSERT INTO %s.routes VALUES
			(1, 2, 5, 'road', NULL, NULL, NULL),
			(2, 3, 7, 'rail', false, '2020-01-01', NULL),
			(2, 4, 1, 'road', true, NULL, NULL),
			(1, 5, 1, 'road', NULL, NULL, NULL)`, schema),
	}

	for _, s := range stmts {
		if _, err := env.admin.Exec(ctx, s); err != nil {
			t.Fatalf("fixture %q: %v", s, err)
		}
	}

	t.Cleanup(func() {
		env.admin.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE") //nolint:errcheck // best-effort cleanup.
	})

	doc := fmt.Sprintf(`
version: "1"
entities:
  facility:
    table: %[1]s.facilities
    primary_key: [id]
    key_types: [bigint]
    soft_delete: {column: deleted_at}
relationships:
  ships_to:
    table: %[1]s.routes
    from: {entity: facility, columns: [src_id]}
    to: {entity: facility, columns: [dst_id]}
    operations: [recursive_traversal, temporal_traversal, algorithm]
    weights: [{name: distance, column: distance_km, type: numeric}]
    attributes: [mode]
    temporal: {valid_from: valid_from, valid_to: valid_to}
    soft_delete: {column: archived, flag: true}
`, schema)

	m, err := ontology.LoadBytes([]byte(doc))
	if err != nil {
		t.Fatalf("loading mapping: %v", err)
	}

	if err := m.Err(); err != nil {
		t.Fatalf("validating mapping: %v", err)
	}

	return store.New(store.Base{Pool: env.pool, Log: env.log}, 5*time.Second), m
}

func openReader(t *testing.T, s *store.Store) domain.Reader {
	t.Helper()

	r, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Cleanup(func() { r.Close(context.Background()) }) //nolint:errcheck // test cleanup.

	return r
}

func TestFetchEdges_Live(t *testing.T) {
	s, m := setupRoutes(t)
	rel, _ := m.ResolveRelationship("ships_to")
	r := openReader(t, s)

	edges, err := r.FetchEdges(context.Background(), domain.EdgeQuery{Rel: rel, From: []string{"1", "2"}})
	if err != nil {
		t.Fatalf("FetchEdges: %v", err)
	}

	got := make([]string, 0, len(edges))
	for _, e := range edges {
		got = append(got, e.From+"->"+e.To)
	}

	sort.Strings(got)

	want := []string{"1->2", "2->3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("edges = %v, want %v (archived edge and deleted endpoint excluded)", got, want)
	}

	for _, e := range edges {
		if e.From == "1" {
			if w, ok := e.Weight("distance"); !ok || w != 5 {
				t.Errorf("distance = %v (%v), want 5", w, ok)
			}

			if e.Attributes["mode"] != "road" {
				t.Errorf("mode = %q, want road", e.Attributes["mode"])
			}
		}
	}
}

func TestFetchEdges_AsOf(t *testing.T) {
	s, m := setupRoutes(t)
	rel, _ := m.ResolveRelationship("ships_to")
	r := openReader(t, s)

	before := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)

	edges, err := r.FetchEdges(context.Background(), domain.EdgeQuery{Rel: rel, From: []string{"2"}, AsOf: &before})
	if err != nil {
		t.Fatalf("FetchEdges: %v", err)
	}

	if len(edges) != 0 {
		t.Fatalf("edges = %v, want none before validity start", edges)
	}
}

func TestNodes(t *testing.T) {
	s, m := setupRoutes(t)
	ent, _ := m.ResolveEntity("facility")
	r := openReader(t, s)
	ctx := context.Background()

	existing, err := r.ExistingNodes(ctx, ent, []string{"1", "5", "99"})
	if err != nil {
		t.Fatalf("ExistingNodes: %v", err)
	}

	if len(existing) != 1 || existing[0] != "1" {
		t.Errorf("ExistingNodes = %v, want [1]", existing)
	}

	matched, err := r.MatchNodes(ctx, ent, []string{"1", "2", "3"}, []models.Predicate{{Column: "tier", Op: models.OpEq, Value: 1}})
	if err != nil {
		t.Fatalf("MatchNodes: %v", err)
	}

	if len(matched) != 1 || matched[0] != "3" {
		t.Errorf("MatchNodes = %v, want [3]", matched)
	}

	all, err := r.FetchAllNodes(ctx, ent, 0)
	if err != nil {
		t.Fatalf("FetchAllNodes: %v", err)
	}

	if len(all) != 4 {
		t.Errorf("FetchAllNodes = %v, want 4 live facilities", all)
	}

	rel, _ := m.ResolveRelationship("ships_to")

	n, err := r.CountEdges(ctx, rel, nil, 0)
	if err != nil {
		t.Fatalf("CountEdges: %v", err)
	}

	if n != 2 {
		t.Errorf("CountEdges = %d, want 2", n)
	}
}

func TestStoreError_NamesTable(t *testing.T) {
	s, _ := setupRoutes(t)
	r := openReader(t, s)

	bad, err := ontology.LoadBytes([]byte(`
version: "1"
entities:
  ghost: {table: no_such_table, primary_key: [id]}
`))
	if err != nil {
		t.Fatalf("loading mapping: %v", err)
	}

	ent, err := bad.ResolveEntity("ghost")
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}

	_, err = r.ExistingNodes(context.Background(), ent, []string{"1"})

	var se *models.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StoreError", err)
	}

	if se.Table != "no_such_table" {
		t.Errorf("Table = %q, want no_such_table", se.Table)
	}

	if !errors.Is(err, models.ErrStore) {
		t.Error("StoreError should match ErrStore")
	}
}
