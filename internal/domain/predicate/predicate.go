// Package predicate implements single-field filter conditions evaluated
// against decoded document data.
package predicate

import (
	"fmt"

	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/domain/resource"
)

// Operator is a comparison or containment kind.
type Operator string

// Supported operators.
const (
	GreaterThan    Operator = ">"
	LessThan       Operator = "<"
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
	Equal          Operator = "=="
	ArrayContains  Operator = "array-contains"
)

// Operators lists every supported operator, longest symbol first.
var Operators = []Operator{ArrayContains, GreaterOrEqual, LessOrEqual, Equal, GreaterThan, LessThan}

// ParseOperator validates an operator string.
func ParseOperator(s string) (Operator, error) {
	for _, op := range Operators {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("operator %q: %w", s, domain.ErrUnsupportedOperator)
}

// Predicate is an immutable field/operator/value condition.
type Predicate struct {
	field string
	keys  []string
	op    Operator
	value any
}

// New validates and creates a Predicate.
func New(field string, op Operator, value any) (Predicate, error) {
	if field == "" {
		return Predicate{}, fmt.Errorf("filter field is required: %w", domain.ErrInvalidOperation)
	}
	if _, err := ParseOperator(string(op)); err != nil {
		return Predicate{}, err
	}
	return Predicate{
		field: field,
		keys:  resource.SplitFieldPath(field),
		op:    op,
		value: value,
	}, nil
}

// Field returns the field path.
func (p Predicate) Field() string { return p.field }

// Operator returns the operator.
func (p Predicate) Operator() Operator { return p.op }

// Value returns the literal operand.
func (p Predicate) Value() any { return p.value }

// String renders the predicate as "field op value".
func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.field, p.op, p.value)
}

// Match reports whether decoded document data satisfies the predicate.
func (p Predicate) Match(data map[string]any) bool {
	v, ok := lookup(data, p.keys)

	switch p.op {
	case ArrayContains:
		arr, isArr := v.([]any)
		if !ok || !isArr {
			return false
		}
		for _, e := range arr {
			if strictEqual(e, p.value) {
				return true
			}
		}
		return false
	case Equal:
		if !ok {
			// Absent fields only equal a null literal.
			return p.value == nil
		}
		return looseEqual(v, p.value)
	}

	if !ok {
		return false
	}
	c, comparable := compare(v, p.value)
	if !comparable {
		return false
	}
	switch p.op {
	case GreaterThan:
		return c > 0
	case LessThan:
		return c < 0
	case GreaterOrEqual:
		return c >= 0
	case LessOrEqual:
		return c <= 0
	default:
		return false
	}
}

// MatchAll reports whether data satisfies every predicate.
func MatchAll(preds []Predicate, data map[string]any) bool {
	for _, p := range preds {
		if !p.Match(data) {
			return false
		}
	}
	return true
}

func lookup(data map[string]any, keys []string) (any, bool) {
	var cur any = data
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
