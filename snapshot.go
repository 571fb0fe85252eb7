package firerest

import (
	"time"

	"github.com/kailas-cloud/firerest/internal/domain/snapshot"
)

// DocumentSnapshot is the result of reading one document.
type DocumentSnapshot struct {
	// Ref is the reference the snapshot was read from.
	Ref *DocumentRef

	item   snapshot.Item
	exists bool
}

// ID returns the document id taken from the stored resource name, or the
// reference id when the document does not exist.
func (s *DocumentSnapshot) ID() string {
	if !s.exists {
		return s.Ref.ID()
	}
	return s.item.ID()
}

// Name returns the fully-qualified resource name.
func (s *DocumentSnapshot) Name() string {
	if !s.exists {
		return s.Ref.ref.name()
	}
	return s.item.Name()
}

// Exists reports whether the document was found.
func (s *DocumentSnapshot) Exists() bool { return s.exists }

// Data decodes the document fields. Each call returns a fresh map; a
// missing document yields nil.
func (s *DocumentSnapshot) Data() map[string]any {
	if !s.exists {
		return nil
	}
	return s.item.Data()
}

// CreateTime returns the server creation time.
func (s *DocumentSnapshot) CreateTime() time.Time { return s.item.CreateTime() }

// UpdateTime returns the server update time.
func (s *DocumentSnapshot) UpdateTime() time.Time { return s.item.UpdateTime() }

// QuerySnapshot is the result of reading a collection or query.
type QuerySnapshot struct {
	docs []*DocumentSnapshot
}

// Docs returns the matching documents in service order.
func (q *QuerySnapshot) Docs() []*DocumentSnapshot { return q.docs }

// Exists reports whether at least one document matched.
func (q *QuerySnapshot) Exists() bool { return len(q.docs) > 0 }

// Size returns the number of matching documents.
func (q *QuerySnapshot) Size() int { return len(q.docs) }

// ForEach calls fn for every document in order.
func (q *QuerySnapshot) ForEach(fn func(doc *DocumentSnapshot)) {
	for _, d := range q.docs {
		fn(d)
	}
}
