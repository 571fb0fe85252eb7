// Package document stores documents in a key-value backend and serves the
// same read/patch/delete contract as the REST transport.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/firerest/internal/db"
	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/domain/resource"
	"github.com/kailas-cloud/firerest/internal/metrics"
	"github.com/kailas-cloud/firerest/internal/wire"
)

// KeyPrefix namespaces every document key.
const KeyPrefix = "firerest:"

const documentsMarker = "/documents"

// store is the consumer interface for documents (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo is a document backend over a key-value store.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the document stored under name. When no document exists and
// name addresses a collection, the direct children are listed in name order;
// a missing collection is an empty list.
func (r *Repo) Get(ctx context.Context, name string) (*wire.Response, error) {
	segments, err := pathSegments(http.MethodGet, name)
	if err != nil {
		return nil, err
	}

	if len(segments)%2 == 0 {
		doc, err := r.load(ctx, name)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				observe("get", "not_found")
				return nil, notFound(http.MethodGet, name)
			}
			observe("get", "error")
			return nil, err
		}
		observe("get", "ok")
		return &wire.Response{Document: *doc}, nil
	}

	docs, err := r.list(ctx, name)
	if err != nil {
		observe("list", "error")
		return nil, err
	}
	observe("list", "ok")
	return &wire.Response{Documents: docs}, nil
}

// Patch writes fields to the document. Without a mask the document is
// replaced. With a mask only the listed field paths change: a path present
// in fields is set, a path absent from fields is removed.
func (r *Repo) Patch(ctx context.Context, name string, fields wire.Fields, mask []string) (*wire.Document, error) {
	segments, err := pathSegments(http.MethodPatch, name)
	if err != nil {
		return nil, err
	}
	if len(segments)%2 != 0 {
		return nil, &domain.TransportError{
			Op: http.MethodPatch, Name: name,
			StatusCode: http.StatusBadRequest, Status: "INVALID_ARGUMENT",
			Message: "path addresses a collection",
		}
	}

	now := r.now()
	existing, err := r.load(ctx, name)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		existing = nil
	case err != nil:
		observe("patch", "error")
		return nil, err
	}

	doc := &wire.Document{Name: name, UpdateTime: &now}
	if existing != nil && existing.CreateTime != nil {
		doc.CreateTime = existing.CreateTime
	} else {
		doc.CreateTime = &now
	}

	if len(mask) == 0 {
		doc.Fields = maps.Clone(fields)
	} else {
		doc.Fields = wire.Fields{}
		if existing != nil {
			doc.Fields = maps.Clone(existing.Fields)
			if doc.Fields == nil {
				doc.Fields = wire.Fields{}
			}
		}
		for _, path := range mask {
			keys := resource.SplitFieldPath(path)
			if v, ok := lookupPath(fields, keys); ok {
				setPath(doc.Fields, keys, v)
			} else {
				deletePath(doc.Fields, keys)
			}
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if err := r.store.Set(ctx, docKey(name), data); err != nil {
		observe("patch", "error")
		return nil, &domain.TransportError{Op: http.MethodPatch, Name: name, Err: err}
	}
	observe("patch", "ok")
	return doc, nil
}

// Delete removes the document. Deleting a missing document succeeds.
func (r *Repo) Delete(ctx context.Context, name string) (map[string]any, error) {
	if _, err := pathSegments(http.MethodDelete, name); err != nil {
		return nil, err
	}
	if err := r.store.Del(ctx, docKey(name)); err != nil {
		observe("delete", "error")
		return nil, &domain.TransportError{Op: http.MethodDelete, Name: name, Err: err}
	}
	observe("delete", "ok")
	return map[string]any{}, nil
}

func (r *Repo) load(ctx context.Context, name string) (*wire.Document, error) {
	raw, err := r.store.Get(ctx, docKey(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, err
		}
		return nil, &domain.TransportError{Op: http.MethodGet, Name: name, Err: err}
	}
	var doc wire.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, errors.Join(domain.ErrUnexpectedResponse, err))
	}
	return &doc, nil
}

func (r *Repo) list(ctx context.Context, collection string) ([]wire.Document, error) {
	prefix := docKey(collection) + "/"
	keys, err := r.store.Scan(ctx, escapeGlob(prefix)+"*")
	if err != nil {
		return nil, &domain.TransportError{Op: http.MethodGet, Name: collection, Err: err}
	}

	children := keys[:0]
	for _, k := range keys {
		if !strings.Contains(strings.TrimPrefix(k, prefix), "/") {
			children = append(children, k)
		}
	}
	// SCAN may return a key more than once.
	slices.Sort(children)
	children = slices.Compact(children)

	docs := make([]wire.Document, 0, len(children))
	if len(children) == 0 {
		return docs, nil
	}

	raws, err := r.store.MGet(ctx, children)
	if err != nil {
		return nil, &domain.TransportError{Op: http.MethodGet, Name: collection, Err: err}
	}
	for i, raw := range raws {
		if raw == nil {
			continue // deleted between SCAN and GET
		}
		var doc wire.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", children[i], errors.Join(domain.ErrUnexpectedResponse, err))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func docKey(name string) string {
	return KeyPrefix + name
}

// pathSegments returns the document path segments of a resource name.
func pathSegments(method, name string) ([]string, error) {
	i := strings.Index(name, documentsMarker)
	if i < 0 {
		return nil, invalidName(method, name, "not a document resource name")
	}
	segments, err := resource.Split(name[i+len(documentsMarker):])
	if err != nil {
		return nil, invalidName(method, name, err.Error())
	}
	if len(segments) == 0 {
		return nil, invalidName(method, name, "missing collection id")
	}
	return segments, nil
}

func invalidName(method, name, msg string) error {
	return &domain.TransportError{
		Op: method, Name: name,
		StatusCode: http.StatusBadRequest, Status: "INVALID_ARGUMENT",
		Message: msg,
	}
}

func notFound(method, name string) error {
	return &domain.TransportError{
		Op: method, Name: name,
		StatusCode: http.StatusNotFound, Status: "NOT_FOUND",
		Message: "no entity to read",
	}
}

func observe(op, status string) {
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lookupPath(fields wire.Fields, keys []string) (wire.Value, bool) {
	v, ok := fields[keys[0]]
	if !ok || len(keys) == 1 {
		return v, ok
	}
	if v.Kind() != wire.KindMap {
		return wire.Value{}, false
	}
	return lookupPath(v.MapValue(), keys[1:])
}

// setPath writes v at keys, copying every nested map it touches.
func setPath(fields wire.Fields, keys []string, v wire.Value) {
	if len(keys) == 1 {
		fields[keys[0]] = v
		return
	}
	child := wire.Fields{}
	if cur, ok := fields[keys[0]]; ok && cur.Kind() == wire.KindMap {
		maps.Copy(child, cur.MapValue())
	}
	setPath(child, keys[1:], v)
	fields[keys[0]] = wire.Map(child)
}

func deletePath(fields wire.Fields, keys []string) {
	if len(keys) == 1 {
		delete(fields, keys[0])
		return
	}
	cur, ok := fields[keys[0]]
	if !ok || cur.Kind() != wire.KindMap {
		return
	}
	child := maps.Clone(cur.MapValue())
	deletePath(child, keys[1:])
	fields[keys[0]] = wire.Map(child)
}
