package firerest

import (
	"context"

	"github.com/kailas-cloud/firerest/internal/domain/predicate"
)

// Query is a collection reference with pending filters. Filters are applied
// in memory to the documents the collection read returns.
type Query struct {
	ref   ref
	preds []predicate.Predicate
}

// Path returns the builder path of the filtered collection.
func (q *Query) Path() string { return q.ref.path }

// Where returns a new query with one more predicate. All predicates must
// hold for a document to be returned. An unknown operator fails with
// ErrUnsupportedOperator, an empty field path with ErrInvalidOperation.
func (q *Query) Where(fieldPath string, op Operator, value any) (*Query, error) {
	p, err := predicate.New(fieldPath, op, value)
	if err != nil {
		return nil, err
	}
	preds := make([]predicate.Predicate, len(q.preds), len(q.preds)+1)
	copy(preds, q.preds)
	return &Query{ref: q.ref, preds: append(preds, p)}, nil
}

// WhereExpr is Where with the predicate written as one "field op value"
// expression, e.g. `age >= 21` or `tags array-contains "go"`. The value is
// read as a JSON literal and falls back to a bare string.
func (q *Query) WhereExpr(expr string) (*Query, error) {
	p, err := predicate.Parse(expr)
	if err != nil {
		return nil, err
	}
	return q.Where(p.Field(), p.Operator(), p.Value())
}

// Get reads the collection and returns the documents that satisfy every
// predicate, in the order the service returned them.
func (q *Query) Get(ctx context.Context) (*QuerySnapshot, error) {
	return q.ref.query(ctx, q.preds)
}
