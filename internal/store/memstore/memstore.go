// Package memstore is an in-memory implementation of domain.Source.
//
// Tables are plain row lists loaded from YAML fixtures. Queries follow the
// same semantics as the PostgreSQL store: soft-delete and temporal
// exclusion, relationship filters, endpoint liveness and key matching on the
// text form of key columns. Every query is counted so tests can assert how
// many round trips an engine made.
package memstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/persistorai/relgraph/internal/domain"
	"github.com/persistorai/relgraph/internal/models"
	"github.com/persistorai/relgraph/internal/ontology"
)

// Query kinds counted by Queries.
const (
	OpFetchEdges    = "fetch_edges"
	OpFetchAllEdges = "fetch_all_edges"
	OpCountEdges    = "count_edges"
	OpExistingNodes = "existing_nodes"
	OpMatchNodes    = "match_nodes"
	OpFetchAllNodes = "fetch_all_nodes"
)

// Row is one table row keyed by column name.
type Row map[string]any

// Fixture is the serialized form of a set of tables.
type Fixture struct {
	Tables map[string][]Row `yaml:"tables"`
}

// Store holds tables in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tables  map[string][]Row
	indexes map[string]map[string]Row
	latency time.Duration
	stats   map[string]int
	calls   []domain.EdgeQuery
}

var _ domain.Source = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		tables:  make(map[string][]Row),
		indexes: make(map[string]map[string]Row),
		stats:   make(map[string]int),
	}
}

// Load reads a YAML fixture.
func Load(r io.Reader) (*Store, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	s := New()
	for name, rows := range f.Tables {
		s.Insert(name, rows...)
	}

	return s, nil
}

// LoadFile reads the YAML fixture at path.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration.
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Insert appends rows to a table, creating it if needed.
func (s *Store) Insert(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = append(s.tables[table], rows...)
	s.indexes = make(map[string]map[string]Row)
}

// SetLatency makes every query take at least d, honoring cancellation.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

// Queries returns how many queries of kind op were issued; "" counts all.
func (s *Store) Queries(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if op != "" {
		return s.stats[op]
	}

	total := 0
	for _, n := range s.stats {
		total += n
	}

	return total
}

// EdgeQueries returns a copy of every FetchEdges request, in order.
func (s *Store) EdgeQueries() []domain.EdgeQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.EdgeQuery(nil), s.calls...)
}

// ResetStats clears the query counters.
func (s *Store) ResetStats() {
	s.mu.Lock()
	s.stats = make(map[string]int)
	s.calls = nil
	s.mu.Unlock()
}

// Ready always succeeds.
func (s *Store) Ready(context.Context) error { return nil }

// Open returns a reader over the current tables.
func (s *Store) Open(ctx context.Context) (domain.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ContextError(err)
	}

	return &reader{s: s}, nil
}

// begin records a query and applies the configured latency.
func (s *Store) begin(ctx context.Context, op string, q *domain.EdgeQuery) error {
	s.mu.Lock()
	s.stats[op]++

	if q != nil {
		s.calls = append(s.calls, *q)
	}

	latency := s.latency
	s.mu.Unlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()

		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}

	return models.ContextError(ctx.Err())
}

func (s *Store) rows(table string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, &models.StoreError{Op: "scan", Table: table, Err: fmt.Errorf("relation %q does not exist", table)}
	}

	return rows, nil
}

// index returns ent's rows keyed by node id.
func (s *Store) index(ent *ontology.Entity) (map[string]Row, error) {
	name := ent.Table + "\x00" + strings.Join(ent.PrimaryKey, ",")

	s.mu.RLock()
	idx, ok := s.indexes[name]
	s.mu.RUnlock()

	if ok {
		return idx, nil
	}

	rows, err := s.rows(ent.Table)
	if err != nil {
		return nil, err
	}

	idx = make(map[string]Row, len(rows))

	for _, row := range rows {
		if id, ok := rowKey(row, ent.PrimaryKey); ok {
			idx[id] = row
		}
	}

	s.mu.Lock()
	s.indexes[name] = idx
	s.mu.Unlock()

	return idx, nil
}
