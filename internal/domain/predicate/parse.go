package predicate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/firerest/internal/domain"
)

// Parse reads a "field op value" expression, e.g. `age >= 21` or
// `tags array-contains "go"`. The value is a JSON literal; anything that is
// not valid JSON is taken as a bare string.
func Parse(expr string) (Predicate, error) {
	field, op, rest, found := splitExpr(expr)
	if !found {
		return Predicate{}, fmt.Errorf("filter %q: no operator: %w", expr, domain.ErrUnsupportedOperator)
	}
	if rest == "" {
		return Predicate{}, fmt.Errorf("filter %q: missing value: %w", expr, domain.ErrInvalidOperation)
	}

	value, err := literal(rest)
	if err != nil {
		value = rest
	}

	p, err := New(field, op, value)
	if err != nil {
		return Predicate{}, fmt.Errorf("filter %q: %w", expr, err)
	}
	return p, nil
}

// literal decodes a JSON literal. Integer numbers stay int64 so large ids
// compare exactly.
func literal(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data in %q", text)
	}
	n, ok := value.(json.Number)
	if !ok {
		return value, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}

// splitExpr finds the leftmost operator, preferring the longest symbol at a position.
func splitExpr(expr string) (field string, op Operator, rest string, found bool) {
	for i := range len(expr) {
		for _, candidate := range Operators {
			if strings.HasPrefix(expr[i:], string(candidate)) {
				field = strings.TrimSpace(expr[:i])
				rest = strings.TrimSpace(expr[i+len(candidate):])
				return field, candidate, rest, true
			}
		}
	}
	return "", "", "", false
}
