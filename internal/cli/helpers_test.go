package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const docsPrefix = "projects/demo/databases/(default)/documents"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// emulator is a canned Firestore emulator: users/alice and users/bob exist,
// writes echo their fields back.
type emulator struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (e *emulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	name := strings.TrimPrefix(r.URL.Path, "/v1/")

	e.mu.Lock()
	e.requests = append(e.requests, recordedRequest{r.Method, name, r.URL.RawQuery, string(body)})
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	alice := `{"name":"` + docsPrefix + `/users/alice","fields":{"name":{"stringValue":"Ada"},"age":{"integerValue":"36"}}}`
	bob := `{"name":"` + docsPrefix + `/users/bob","fields":{"name":{"stringValue":"Bob"},"age":{"integerValue":"17"}}}`

	switch {
	case r.Method == http.MethodGet && name == docsPrefix+"/users/alice":
		_, _ = io.WriteString(w, alice)
	case r.Method == http.MethodGet && name == docsPrefix+"/users":
		_, _ = io.WriteString(w, `{"documents":[`+alice+`,`+bob+`]}`)
	case r.Method == http.MethodGet && name == docsPrefix:
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodGet:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"no entity","status":"NOT_FOUND"}}`)
	case r.Method == http.MethodPatch:
		var req struct {
			Fields json.RawMessage `json:"fields"`
		}
		_ = json.Unmarshal(body, &req)
		fmt.Fprintf(w, `{"name":%q,"fields":%s,"updateTime":"2024-05-01T10:00:00Z"}`, name, req.Fields)
	case r.Method == http.MethodDelete:
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (e *emulator) recorded() []recordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recordedRequest(nil), e.requests...)
}

// setup starts an emulator and writes a config file pointing at it.
func setup(t *testing.T) (*emulator, string) {
	t.Helper()

	emu := &emulator{}
	srv := httptest.NewServer(emu)
	t.Cleanup(srv.Close)

	cfg := fmt.Sprintf(`project: demo
backend:
  driver: emulator
  endpoint: %s
http:
  port: 8080
`, strings.TrimPrefix(srv.URL, "http://"))
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	return emu, path
}

// run executes the root command with the given arguments.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
