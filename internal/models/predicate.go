package models

import (
	"fmt"
	"regexp"
)

// Op is a comparison operator usable in a Predicate.
type Op string

// Supported predicate operators.
const (
	OpEq      Op = "="
	OpNe      Op = "!="
	OpLt      Op = "<"
	OpLe      Op = "<="
	OpGt      Op = ">"
	OpGe      Op = ">="
	OpIn      Op = "in"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Predicate is a single column comparison. A list of predicates is a
// conjunction. Values are always bound as query parameters.
type Predicate struct {
	Column string `json:"column" yaml:"column" binding:"required"`
	Op     Op     `json:"op" yaml:"op" binding:"required"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Validate checks the column name and operator.
func (p Predicate) Validate() error {
	if !columnPattern.MatchString(p.Column) {
		return fmt.Errorf("%w: invalid predicate column %q", ErrInvalidRequest, p.Column)
	}

	switch p.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		if p.Value == nil {
			return fmt.Errorf("%w: predicate on %q needs a value", ErrInvalidRequest, p.Column)
		}
	case OpIn:
		if _, ok := p.Value.([]any); !ok {
			return fmt.Errorf("%w: predicate %q in needs a list value", ErrInvalidRequest, p.Column)
		}
	case OpIsNull, OpNotNull:
	default:
		return fmt.Errorf("%w: unknown predicate operator %q", ErrInvalidRequest, p.Op)
	}

	return nil
}

// ValidatePredicates validates every predicate in ps.
func ValidatePredicates(ps []Predicate) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// IsColumnName reports whether s is a plain SQL column identifier.
func IsColumnName(s string) bool {
	return columnPattern.MatchString(s)
}
