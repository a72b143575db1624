package memstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/relgraph/internal/models"
)

// text renders a value the way a ::text cast would.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(x), true
	}
}

// number converts numeric values, and numeric strings, to float64.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}

	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// instant converts time values and date/time strings.
func instant(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// compare orders a and b numerically, then chronologically, then as text.
func compare(a, b any) int {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}

			return 0
		}
	}

	if x, ok := instant(a); ok {
		if y, ok := instant(b); ok {
			return x.Compare(y)
		}
	}

	x, _ := text(a)
	y, _ := text(b)

	return strings.Compare(x, y)
}

// truthy reports whether v is boolean true.
func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		return err == nil && b
	}

	return false
}

// rowKey encodes the key columns of row as a node id.
func rowKey(row Row, cols []string) (string, bool) {
	parts := make([]string, len(cols))

	for i, c := range cols {
		s, ok := text(row[c])
		if !ok {
			return "", false
		}

		parts[i] = s
	}

	return models.JoinKey(parts...), true
}

// matches evaluates one predicate against a row. NULL never satisfies a
// comparison, as in SQL.
func matches(row Row, p models.Predicate) bool {
	v, present := row[p.Column]
	if !present {
		v = nil
	}

	switch p.Op {
	case models.OpIsNull:
		return v == nil
	case models.OpNotNull:
		return v != nil
	}

	if v == nil {
		return false
	}

	if p.Op == models.OpIn {
		s, _ := text(v)
		vals, _ := p.Value.([]any)

		for _, want := range vals {
			if w, _ := text(want); w == s {
				return true
			}
		}

		return false
	}

	c := compare(v, p.Value)

	switch p.Op {
	case models.OpEq:
		return c == 0
	case models.OpNe:
		return c != 0
	case models.OpLt:
		return c < 0
	case models.OpLe:
		return c <= 0
	case models.OpGt:
		return c > 0
	case models.OpGe:
		return c >= 0
	}

	return false
}
