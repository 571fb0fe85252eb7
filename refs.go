package firerest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/firerest/internal/codec"
	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/domain/predicate"
	"github.com/kailas-cloud/firerest/internal/domain/resource"
	"github.com/kailas-cloud/firerest/internal/domain/snapshot"
)

// Reference is a collection or document location.
type Reference interface {
	// Path is the slash-separated builder path, e.g. "/users/alice".
	Path() string
	// ID is the last path segment.
	ID() string

	reference()
}

// ref is the state shared by every reference variant.
type ref struct {
	client *Client
	path   string
	err    error // first invalid segment, reported by terminal operations
}

func (r ref) child(id string) ref {
	next := ref{client: r.client, path: resource.Join(r.path, id), err: r.err}
	if next.err == nil {
		if err := resource.ValidateSegment(id); err != nil {
			next.err = fmt.Errorf("path %q: %w", next.path, err)
		}
	}
	return next
}

func (r ref) name() string {
	return resource.Name(r.client.project, r.path)
}

func (r ref) id() string {
	return r.path[strings.LastIndexByte(r.path, '/')+1:]
}

func (r ref) query(ctx context.Context, preds []predicate.Predicate) (snap *QuerySnapshot, err error) {
	start := time.Now()
	defer func() { r.client.obs.observe("get", r.path, start, err) }()

	if r.err != nil {
		return nil, r.err
	}

	resp, err := r.client.tr.Get(ctx, r.name())
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.path, err)
	}
	items, err := snapshot.Query(resp, preds)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.path, err)
	}

	docs := make([]*DocumentSnapshot, len(items))
	for i, item := range items {
		docs[i] = &DocumentSnapshot{
			Ref:    &DocumentRef{ref: r.child(item.ID())},
			item:   item,
			exists: true,
		}
	}
	return &QuerySnapshot{docs: docs}, nil
}

// CollectionRef points at a collection.
type CollectionRef struct {
	ref ref
}

func (*CollectionRef) reference() {}

// Path returns the builder path.
func (c *CollectionRef) Path() string { return c.ref.path }

// ID returns the collection id.
func (c *CollectionRef) ID() string { return c.ref.id() }

// Collection returns a reference one segment below this one.
func (c *CollectionRef) Collection(id string) *CollectionRef {
	return &CollectionRef{ref: c.ref.child(id)}
}

// Doc returns a reference to the document id in this collection.
func (c *CollectionRef) Doc(id string) *DocumentRef {
	return &DocumentRef{ref: c.ref.child(id)}
}

// Query returns an unfiltered query on the collection.
func (c *CollectionRef) Query() *Query {
	return &Query{ref: c.ref}
}

// Where starts a filtered query on the collection.
func (c *CollectionRef) Where(fieldPath string, op Operator, value any) (*Query, error) {
	return c.Query().Where(fieldPath, op, value)
}

// Get reads every document in the collection.
func (c *CollectionRef) Get(ctx context.Context) (*QuerySnapshot, error) {
	return c.ref.query(ctx, nil)
}

// Add writes data under a freshly generated id. It is equivalent to
// Doc(id).Set(ctx, data) with no options.
func (c *CollectionRef) Add(ctx context.Context, data map[string]any) (doc *DocumentRef, wr *WriteResult, err error) {
	start := time.Now()
	defer func() { c.ref.client.obs.observe("add", c.ref.path, start, err) }()

	if c.ref.err != nil {
		return nil, nil, c.ref.err
	}
	doc = c.Doc(c.ref.client.newID())
	wr, err = doc.write(ctx, data, nil)
	if err != nil {
		return nil, nil, err
	}
	return doc, wr, nil
}

// DocumentRef points at a document.
type DocumentRef struct {
	ref ref
}

func (*DocumentRef) reference() {}

// Path returns the builder path.
func (d *DocumentRef) Path() string { return d.ref.path }

// ID returns the document id.
func (d *DocumentRef) ID() string { return d.ref.id() }

// Collection returns a reference to a subcollection.
func (d *DocumentRef) Collection(id string) *CollectionRef {
	return &CollectionRef{ref: d.ref.child(id)}
}

// Doc returns a reference one segment below this one.
func (d *DocumentRef) Doc(id string) *DocumentRef {
	return &DocumentRef{ref: d.ref.child(id)}
}

// Get reads the document. A missing document yields a snapshot whose
// Exists reports false together with an error matching ErrNotFound.
func (d *DocumentRef) Get(ctx context.Context) (snap *DocumentSnapshot, err error) {
	start := time.Now()
	defer func() { d.ref.client.obs.observe("get", d.ref.path, start, err) }()

	if d.ref.err != nil {
		return nil, d.ref.err
	}

	resp, err := d.ref.client.tr.Get(ctx, d.ref.name())
	if err != nil {
		err = fmt.Errorf("get %s: %w", d.ref.path, err)
		if errors.Is(err, domain.ErrNotFound) {
			return &DocumentSnapshot{Ref: d}, err
		}
		return nil, err
	}

	item, err := snapshot.Single(resp)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", d.ref.path, err)
	}
	return &DocumentSnapshot{Ref: d, item: item, exists: true}, nil
}

// Set writes data to the document. Without options the stored document is
// replaced; Merge and MergeFields restrict the write to an update mask.
func (d *DocumentRef) Set(ctx context.Context, data map[string]any, opts ...SetOption) (wr *WriteResult, err error) {
	start := time.Now()
	defer func() { d.ref.client.obs.observe("set", d.ref.path, start, err) }()

	return d.write(ctx, data, opts)
}

func (d *DocumentRef) write(ctx context.Context, data map[string]any, opts []SetOption) (*WriteResult, error) {
	if d.ref.err != nil {
		return nil, d.ref.err
	}

	mask, err := updateMask(data, opts)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", d.ref.path, err)
	}
	fields, err := codec.Encode(data)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", d.ref.path, err)
	}

	doc, err := d.ref.client.tr.Patch(ctx, d.ref.name(), fields, mask)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", d.ref.path, err)
	}
	return newWriteResult(doc), nil
}

// Delete removes the document and returns the service acknowledgment,
// usually an empty map.
func (d *DocumentRef) Delete(ctx context.Context) (ack map[string]any, err error) {
	start := time.Now()
	defer func() { d.ref.client.obs.observe("delete", d.ref.path, start, err) }()

	if d.ref.err != nil {
		return nil, d.ref.err
	}
	ack, err = d.ref.client.tr.Delete(ctx, d.ref.name())
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", d.ref.path, err)
	}
	return ack, nil
}

// AsCollection returns r as a collection reference, or ErrInvalidOperation
// when r addresses a document.
func AsCollection(r Reference) (*CollectionRef, error) {
	c, ok := r.(*CollectionRef)
	if !ok {
		return nil, fmt.Errorf("%s is not a collection: %w", r.Path(), domain.ErrInvalidOperation)
	}
	return c, nil
}

// AsDocument returns r as a document reference, or ErrInvalidOperation
// when r addresses a collection.
func AsDocument(r Reference) (*DocumentRef, error) {
	d, ok := r.(*DocumentRef)
	if !ok {
		return nil, fmt.Errorf("%s is not a document: %w", r.Path(), domain.ErrInvalidOperation)
	}
	return d, nil
}
