package chi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/firerest"
)

const documentsRoot = "projects/p/databases/(default)/documents"

// fakeFirestore is a minimal in-memory emulator: documents are keyed by
// resource name and collections list their direct children.
type fakeFirestore struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
	fail bool
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/v1/")
	switch r.Method {
	case http.MethodGet:
		if fields, ok := f.docs[name]; ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "fields": fields})
			return
		}
		if isDocumentName(name) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"no entity","status":"NOT_FOUND"}}`)
			return
		}
		var children []string
		for n := range f.docs {
			rest, ok := strings.CutPrefix(n, name+"/")
			if ok && !strings.Contains(rest, "/") {
				children = append(children, n)
			}
		}
		if len(children) == 0 {
			_, _ = io.WriteString(w, `{}`)
			return
		}
		slices.Sort(children)
		docs := make([]map[string]any, 0, len(children))
		for _, n := range children {
			docs = append(docs, map[string]any{"name": n, "fields": f.docs[n]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	case http.MethodPatch:
		var body struct {
			Fields json.RawMessage `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.docs[name] = body.Fields
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":       name,
			"fields":     body.Fields,
			"updateTime": "2024-01-01T00:00:00Z",
		})
	case http.MethodDelete:
		delete(f.docs, name)
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeFirestore) raw(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.docs[name]
	return string(fields), ok
}

func (f *fakeFirestore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeFirestore) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func isDocumentName(name string) bool {
	rest := strings.TrimPrefix(strings.TrimPrefix(name, documentsRoot), "/")
	return rest != "" && strings.Count(rest, "/")%2 == 1
}

type gateway struct {
	upstream *fakeFirestore
	handler  http.Handler
}

func newGateway(t *testing.T, apiKeys ...string) *gateway {
	t.Helper()

	client, upstream := newClient(t)
	logger := zap.NewNop()
	return &gateway{
		upstream: upstream,
		handler:  NewRouter(NewServer(client, logger), apiKeys, logger),
	}
}

// newClient returns a firerest client talking to a fresh fake emulator.
// Generated ids are "genx", "genxx", ...
func newClient(t *testing.T) (*firerest.Client, *fakeFirestore) {
	t.Helper()

	upstream := &fakeFirestore{docs: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	ids := 0
	client, err := firerest.New(context.Background(),
		firerest.WithProject("p"),
		firerest.WithEmulator(strings.TrimPrefix(srv.URL, "http://")),
		firerest.WithPrometheus(prometheus.NewRegistry()),
		firerest.WithIDGenerator(func() string {
			ids++
			return "gen" + strings.Repeat("x", ids)
		}),
	)
	if err != nil {
		t.Fatalf("firerest.New: %v", err)
	}
	t.Cleanup(client.Close)
	return client, upstream
}

func (g *gateway) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	g.handler.ServeHTTP(rr, req)
	return rr
}
