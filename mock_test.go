package firerest

import (
	"context"
	"testing"

	"github.com/kailas-cloud/firerest/internal/wire"
)

const testRoot = "projects/demo/databases/(default)/documents"

// --- transport mock ---

type patchCall struct {
	name   string
	fields wire.Fields
	mask   []string
}

type mockTransport struct {
	getFn    func(ctx context.Context, name string) (*wire.Response, error)
	patchFn  func(ctx context.Context, name string, fields wire.Fields, mask []string) (*wire.Document, error)
	deleteFn func(ctx context.Context, name string) (map[string]any, error)

	calls   int
	patches []patchCall
}

func (m *mockTransport) Get(ctx context.Context, name string) (*wire.Response, error) {
	m.calls++
	if m.getFn == nil {
		return &wire.Response{}, nil
	}
	return m.getFn(ctx, name)
}

func (m *mockTransport) Patch(ctx context.Context, name string, fields wire.Fields, mask []string) (*wire.Document, error) {
	m.calls++
	m.patches = append(m.patches, patchCall{name: name, fields: fields, mask: mask})
	if m.patchFn == nil {
		return &wire.Document{Name: name, Fields: fields}, nil
	}
	return m.patchFn(ctx, name, fields, mask)
}

func (m *mockTransport) Delete(ctx context.Context, name string) (map[string]any, error) {
	m.calls++
	if m.deleteFn == nil {
		return map[string]any{}, nil
	}
	return m.deleteFn(ctx, name)
}

func testClient(t *testing.T, tr *mockTransport) *Client {
	t.Helper()
	return &Client{project: "demo", tr: tr, newID: newID}
}

func docWith(id string, fields wire.Fields) wire.Document {
	return wire.Document{Name: testRoot + "/users/" + id, Fields: fields}
}

func collectionOf(docs ...wire.Document) func(context.Context, string) (*wire.Response, error) {
	return func(context.Context, string) (*wire.Response, error) {
		if docs == nil {
			docs = []wire.Document{}
		}
		return &wire.Response{Documents: docs}, nil
	}
}
