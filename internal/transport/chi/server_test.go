package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func seedUsers(t *testing.T, g *gateway) {
	t.Helper()
	for _, u := range []struct{ id, body string }{
		{"a", `{"data":{"age":18,"tags":["user"]}}`},
		{"b", `{"data":{"age":21,"tags":["admin"]}}`},
		{"c", `{"data":{"age":30,"tags":["admin","user"]}}`},
	} {
		rr := g.do(t, http.MethodPatch, "/v1/documents/users/"+u.id, u.body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
}

func whereQuery(exprs ...string) string {
	return "?" + url.Values{"where": exprs}.Encode()
}

func TestHealthCheck(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[HealthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["backend"])
	assert.Equal(t, "p", resp.Project)
}

func TestHealthCheck_BackendDown(t *testing.T) {
	g := newGateway(t)
	g.upstream.setFail(true)

	rr := g.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	resp := decode[HealthResponse](t, rr)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "error", resp.Checks["backend"])
}

func TestSetThenGetDocument(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodPatch, "/v1/documents/users/alice", `{"data":{"name":"Ada","age":36}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	written := decode[WriteResponse](t, rr)
	assert.Equal(t, "alice", written.ID)
	assert.Equal(t, "/users/alice", written.Path)
	require.NotNil(t, written.WriteTime)
	assert.Equal(t, float64(36), written.Data["age"])

	raw, _ := g.upstream.raw(documentsRoot + "/users/alice")
	assert.Contains(t, raw, `"integerValue":"36"`)

	rr = g.do(t, http.MethodGet, "/v1/documents/users/alice", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	doc := decode[DocumentResponse](t, rr)
	assert.Equal(t, "alice", doc.ID)
	assert.Equal(t, documentsRoot+"/users/alice", doc.Name)
	assert.Equal(t, "Ada", doc.Data["name"])
	assert.Equal(t, float64(36), doc.Data["age"])
}

func TestGetDocument_NotFound(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodGet, "/v1/documents/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, rr).Code)
}

func TestGetCollection_Where(t *testing.T) {
	g := newGateway(t)
	seedUsers(t, g)

	rr := g.do(t, http.MethodGet, "/v1/documents/users"+whereQuery("age >= 21"), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[QueryResponse](t, rr)
	require.Equal(t, 2, resp.Size)
	assert.Equal(t, "b", resp.Documents[0].ID)
	assert.Equal(t, "c", resp.Documents[1].ID)
	assert.Equal(t, "/users/c", resp.Documents[1].Path)

	rr = g.do(t, http.MethodGet, "/v1/documents/users"+whereQuery("age >= 21", "tags array-contains user"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[QueryResponse](t, rr)
	require.Equal(t, 1, resp.Size)
	assert.Equal(t, "c", resp.Documents[0].ID)
}

func TestGetCollection_All(t *testing.T) {
	g := newGateway(t)
	seedUsers(t, g)

	rr := g.do(t, http.MethodGet, "/v1/documents/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[QueryResponse](t, rr).Size)
}

func TestGetCollection_EmptyAndNoMatches(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodGet, "/v1/documents/nothing", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[QueryResponse](t, rr)
	assert.Equal(t, 0, resp.Size)
	assert.NotNil(t, resp.Documents)

	seedUsers(t, g)
	rr = g.do(t, http.MethodGet, "/v1/documents/users"+whereQuery("age > 100"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[QueryResponse](t, rr).Size)
}

func TestGetRoot(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodGet, "/v1/documents", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 0, decode[QueryResponse](t, rr).Size)

	rr = g.do(t, http.MethodGet, "/v1/documents"+whereQuery("a == 1"), "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeInvalidOperation, decode[ErrorResponse](t, rr).Code)
}

func TestAddDocument(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodPost, "/v1/documents/users", `{"data":{"name":"Grace"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[WriteResponse](t, rr)
	assert.Equal(t, "genx", resp.ID)
	assert.Equal(t, "/users/genx", resp.Path)
	assert.Equal(t, "Grace", resp.Data["name"])

	_, ok := g.upstream.raw(documentsRoot + "/users/genx")
	assert.True(t, ok, "document not written upstream")
}

func TestDeleteDocument(t *testing.T) {
	g := newGateway(t)
	seedUsers(t, g)

	rr := g.do(t, http.MethodDelete, "/v1/documents/users/a", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	_, ok := g.upstream.raw(documentsRoot + "/users/a")
	assert.False(t, ok)
}

func TestInvalidOperations(t *testing.T) {
	g := newGateway(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   string
	}{
		{"add on document", http.MethodPost, "/v1/documents/users/alice", `{"data":{}}`, CodeInvalidOperation},
		{"set on collection", http.MethodPatch, "/v1/documents/users", `{"data":{}}`, CodeInvalidOperation},
		{"delete collection", http.MethodDelete, "/v1/documents/users", "", CodeInvalidOperation},
		{"where on document", http.MethodGet, "/v1/documents/users/alice" + whereQuery("a == 1"), "", CodeInvalidOperation},
		{"empty segment", http.MethodGet, "/v1/documents/users//alice", "", CodeInvalidOperation},
		{"unsupported operator", http.MethodGet, "/v1/documents/users" + whereQuery("age != 3"), "", CodeUnsupportedOperator},
		{"empty merge fields", http.MethodPatch, "/v1/documents/users/alice", `{"data":{"a":1},"mergeFields":[]}`, CodeInvalidOperation},
		{"merge without fields", http.MethodPatch, "/v1/documents/users/alice", `{"data":{},"merge":true}`, CodeInvalidOperation},
		{"malformed body", http.MethodPatch, "/v1/documents/users/alice", `{"data":`, CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := g.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rr).Code)
		})
	}

	assert.Zero(t, g.upstream.size(), "invalid operations must not reach the backend")
}

func TestSetDocument_MergeFields(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodPatch, "/v1/documents/users/alice", `{"data":{"a":1,"b":2},"mergeFields":["a"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestUpstreamError(t *testing.T) {
	g := newGateway(t)
	g.upstream.setFail(true)

	rr := g.do(t, http.MethodGet, "/v1/documents/users", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, CodeUpstreamError, resp.Code)
	assert.Equal(t, "backend exploded", resp.Message)
}

func TestMethodNotAllowed(t *testing.T) {
	g := newGateway(t)

	rr := g.do(t, http.MethodPut, "/v1/documents/users/alice", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, CodeInvalidOperation, decode[ErrorResponse](t, rr).Code)
}

func TestRouter_Auth(t *testing.T) {
	g := newGateway(t, "secret")

	rr := g.do(t, http.MethodGet, "/v1/documents/users", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = g.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/users", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	g.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_Metrics(t *testing.T) {
	g := newGateway(t)
	g.do(t, http.MethodGet, "/health", "")

	rr := g.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "firerest_gateway_http_requests_total")
}

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := JSONRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, CodeInternalError, decode[ErrorResponse](t, rr).Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	client, _ := newClient(t)
	handler := NewRouter(NewServer(client, logger), nil, logger)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)
	requestID := rr.Header().Get("X-Request-ID")
	assert.NotEmpty(t, requestID)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health", fields["path"])
	assert.Equal(t, "/health", fields["route"])
	assert.Equal(t, requestID, fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestDomainErrorsLogWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	client, _ := newClient(t)
	handler := NewRouter(NewServer(client, logger), nil, logger)

	rr := httptest.NewRecorder()
	target := "/v1/documents/users" + whereQuery("age != 3")
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	entries := logs.FilterMessage("domain error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, rr.Header().Get("X-Request-ID"), fields["request_id"])
	assert.Equal(t, "/v1/documents/users", fields["path"])
}
