// Package snapshot normalizes raw wire records into identified items and
// applies in-memory predicate filtering.
package snapshot

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/firerest/internal/codec"
	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/domain/predicate"
	"github.com/kailas-cloud/firerest/internal/domain/resource"
	"github.com/kailas-cloud/firerest/internal/wire"
)

// Item is a normalized record (immutable value object).
// Data is decoded on every call from the stored wire fields.
type Item struct {
	id         string
	name       string
	fields     wire.Fields
	createTime time.Time
	updateTime time.Time
}

// NewItem normalizes a raw record. The id is the last segment of its name.
func NewItem(doc *wire.Document) (Item, error) {
	id, err := resource.LastSegment(doc.Name)
	if err != nil {
		return Item{}, err
	}
	item := Item{id: id, name: doc.Name, fields: doc.Fields}
	if doc.CreateTime != nil {
		item.createTime = *doc.CreateTime
	}
	if doc.UpdateTime != nil {
		item.updateTime = *doc.UpdateTime
	}
	return item, nil
}

// ID returns the document id.
func (i Item) ID() string { return i.id }

// Name returns the fully-qualified resource name.
func (i Item) Name() string { return i.name }

// CreateTime returns the server creation time, zero if not reported.
func (i Item) CreateTime() time.Time { return i.createTime }

// UpdateTime returns the server update time, zero if not reported.
func (i Item) UpdateTime() time.Time { return i.updateTime }

// Data decodes the record's fields into plain values.
func (i Item) Data() map[string]any { return codec.Decode(i.fields) }

// Single normalizes a document-shaped response.
func Single(resp *wire.Response) (Item, error) {
	if resp.IsCollection() {
		return Item{}, fmt.Errorf("expected a single document, got %d: %w",
			len(resp.Documents), domain.ErrUnexpectedResponse)
	}
	return NewItem(&resp.Document)
}

// Query normalizes a collection-shaped response and keeps the items that
// satisfy every predicate, in transport order. A body with neither a
// documents member nor a record name is an empty collection.
func Query(resp *wire.Response, preds []predicate.Predicate) ([]Item, error) {
	if !resp.IsCollection() {
		if resp.Name != "" {
			return nil, fmt.Errorf("expected a collection, got document %q: %w",
				resp.Name, domain.ErrUnexpectedResponse)
		}
		return []Item{}, nil
	}

	items := make([]Item, 0, len(resp.Documents))
	for i := range resp.Documents {
		item, err := NewItem(&resp.Documents[i])
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(preds) > 0 && !predicate.MatchAll(preds, item.Data()) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
