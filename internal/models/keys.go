package models

import "strings"

// KeySeparator joins the ordered parts of a composite primary key into a
// single node id. Unit separator never appears in ordinary key values.
const KeySeparator = "\x1f"

// JoinKey encodes an ordered key tuple as a node id.
func JoinKey(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// SplitKey decodes a node id into its ordered key tuple of length n.
// ok is false when the id does not have exactly n parts.
func SplitKey(id string, n int) (parts []string, ok bool) {
	if n <= 1 {
		return []string{id}, true
	}

	parts = strings.Split(id, KeySeparator)

	return parts, len(parts) == n
}

// SplitKeys decodes ids column-wise: the result holds one slice per key column.
func SplitKeys(ids []string, n int) ([][]string, bool) {
	cols := make([][]string, n)
	for i := range cols {
		cols[i] = make([]string, 0, len(ids))
	}

	for _, id := range ids {
		parts, ok := SplitKey(id, n)
		if !ok {
			return nil, false
		}

		for i, p := range parts {
			cols[i] = append(cols[i], p)
		}
	}

	return cols, true
}
