package ontology

import (
	"fmt"
	"strings"
)

// OpCategory is the closed set of operation categories a relationship may support.
type OpCategory uint8

// Operation categories.
const (
	OpDirectJoin OpCategory = 1 << iota
	OpRecursiveTraversal
	OpTemporalTraversal
	OpPathAggregation
	OpAlgorithm
)

var categoryNames = map[OpCategory]string{
	OpDirectJoin:         "direct_join",
	OpRecursiveTraversal: "recursive_traversal",
	OpTemporalTraversal:  "temporal_traversal",
	OpPathAggregation:    "path_aggregation",
	OpAlgorithm:          "algorithm",
}

// String implements fmt.Stringer.
func (c OpCategory) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}

	return fmt.Sprintf("OpCategory(%d)", uint8(c))
}

// ParseOpCategory resolves a category name. Legacy spellings used by older
// mapping documents are accepted as aliases.
func ParseOpCategory(s string) (OpCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct_join", "simple_join", "join":
		return OpDirectJoin, nil
	case "recursive_traversal", "traversal", "recursive":
		return OpRecursiveTraversal, nil
	case "temporal_traversal", "temporal":
		return OpTemporalTraversal, nil
	case "path_aggregation", "aggregation":
		return OpPathAggregation, nil
	case "algorithm", "weighted_algorithm", "network_algorithm":
		return OpAlgorithm, nil
	}

	return 0, fmt.Errorf("unknown operation category %q", s)
}

// OpSet is a bitset of categories, resolved once when the mapping is validated.
type OpSet uint8

// Has reports whether c is in the set.
func (s OpSet) Has(c OpCategory) bool {
	return s&OpSet(c) != 0
}

// Categories lists the members in declaration order.
func (s OpSet) Categories() []OpCategory {
	out := make([]OpCategory, 0, len(categoryNames))
	for c := OpDirectJoin; c <= OpAlgorithm; c <<= 1 {
		if s.Has(c) {
			out = append(out, c)
		}
	}

	return out
}

// Strings lists member names in declaration order.
func (s OpSet) Strings() []string {
	cats := s.Categories()
	out := make([]string, len(cats))

	for i, c := range cats {
		out[i] = c.String()
	}

	return out
}
