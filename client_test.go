package firerest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"

	"github.com/kailas-cloud/firerest/internal/wire"
)

func TestNew_MissingProject(t *testing.T) {
	_, err := New(context.Background(), WithEmulator("localhost:8080"))

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want *ConfigurationError", err)
	}
	if !strings.Contains(cfgErr.Missing, "project id") {
		t.Errorf("missing = %q", cfgErr.Missing)
	}
}

func TestNew_InvalidProject(t *testing.T) {
	_, err := New(context.Background(), WithProject("a/b"), WithEmulator("localhost:8080"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), WithProject("demo"))

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigurationError", err)
	}
	if cfgErr.Missing != "credentials" {
		t.Errorf("missing = %q", cfgErr.Missing)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), WithProject("demo"), WithCredentialsFile(t.TempDir()+"/missing.json"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", project: "demo"}
	_, _, err := createTransport(context.Background(), cfg, zap.NewNop())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestNew_RedisRequiresAddr(t *testing.T) {
	cfg := &clientConfig{driver: driverRedis, project: "demo"}
	if _, _, err := createTransport(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvProject, "env-project")
	t.Setenv(EnvCredentials, "/secrets/key.json")
	t.Setenv(EnvEmulator, "")

	cfg := &clientConfig{}
	FromEnv().apply(cfg)
	if cfg.project != "env-project" || cfg.credentialsFile != "/secrets/key.json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.emulator {
		t.Error("emulator should stay off")
	}

	WithProject("override").apply(cfg)
	if cfg.project != "override" {
		t.Error("later options must override the environment")
	}
}

func TestFromEnv_Emulator(t *testing.T) {
	t.Setenv(EnvProject, "")
	t.Setenv(EnvCredentials, "")
	t.Setenv(EnvEmulator, "127.0.0.1:9090")

	cfg := &clientConfig{}
	FromEnv().apply(cfg)
	if !cfg.emulator || cfg.endpoint != "http://127.0.0.1:9090/v1/" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	reg := prometheus.NewRegistry()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"})

	for _, o := range []Option{
		WithProject("p"),
		WithCredentialsJSON([]byte("{}")),
		WithTokenSource(ts),
		WithValkey("localhost:6379", "secret"),
		WithPrometheus(reg),
	} {
		o.apply(cfg)
	}

	if cfg.project != "p" || string(cfg.credentialsJSON) != "{}" || cfg.tokenSource == nil {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.driver != driverValkey || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("backend = %s %v", cfg.driver, cfg.addrs)
	}
	if cfg.metricsReg != reg {
		t.Error("registerer not stored")
	}

	WithInitAddrs("n1:6379", "n2:6379").apply(cfg)
	if len(cfg.addrs) != 2 || cfg.driver != driverValkey {
		t.Errorf("init addrs = %v", cfg.addrs)
	}

	WithEndpoint("https://example.test/v1/").apply(cfg)
	if cfg.driver != driverREST || cfg.endpoint != "https://example.test/v1/" {
		t.Errorf("endpoint option = %s %s", cfg.driver, cfg.endpoint)
	}
}

func TestNewID(t *testing.T) {
	a, b := newID(), newID()
	if a == b || len(a) != 32 || strings.Contains(a, "-") {
		t.Errorf("ids %q, %q", a, b)
	}
}

func TestEmulator_EndToEnd(t *testing.T) {
	const name = "/v1/projects/demo/databases/(default)/documents/users/alice"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer owner" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Path != name {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch r.Method {
		case http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"integerValue":"36"`) {
				t.Errorf("body = %s", body)
			}
			_, _ = io.WriteString(w, `{"name":"projects/demo/databases/(default)/documents/users/alice",
				"fields":{"age":{"integerValue":"36"}},"updateTime":"2024-01-01T00:00:00Z"}`)
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"name":"projects/demo/databases/(default)/documents/users/alice",
				"fields":{"age":{"integerValue":"36"}}}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c, err := New(context.Background(),
		WithProject("demo"),
		WithEmulator(strings.TrimPrefix(srv.URL, "http://")),
		WithPrometheus(reg),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	doc := c.Collection("users").Doc("alice")
	wr, err := doc.Set(context.Background(), map[string]any{"age": 36})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !wr.IsEqual(map[string]any{"age": 36}) {
		t.Errorf("write result data = %v", wr.Data())
	}

	snap, err := doc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Data()["age"] != int64(36) {
		t.Errorf("data = %v", snap.Data())
	}

	// 405 surfaces as a transport error
	if _, err := doc.Delete(context.Background()); !errors.Is(err, ErrTransport) {
		t.Errorf("Delete err = %v", err)
	}

	m, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("reuse metrics: %v", err)
	}
	if v := testutil.ToFloat64(m.operations.WithLabelValues("set", "ok")); v != 1 {
		t.Errorf("set ok = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.operations.WithLabelValues("delete", "error")); v != 1 {
		t.Errorf("delete error = %v, want 1", v)
	}
}

func TestObserver_Logs(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	obs, err := newObserver(zap.New(core), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	tr := &mockTransport{}
	c := testClient(t, tr)
	c.obs = obs

	_, _ = c.Collection("users").Get(context.Background())
	_, _ = c.Collection("users").Doc("").Get(context.Background())

	if n := logs.FilterMessage("operation completed").Len(); n != 1 {
		t.Errorf("completed logs = %d, want 1", n)
	}
	failed := logs.FilterMessage("operation failed").All()
	if len(failed) != 1 || failed[0].Level != zapcore.WarnLevel {
		t.Fatalf("failed logs = %v", failed)
	}
	if failed[0].ContextMap()["path"] != "/users/" {
		t.Errorf("path field = %v", failed[0].ContextMap()["path"])
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var o *observer
	o.observe("get", "/x", time.Now(), nil)
}

type pingTransport struct {
	mockTransport
	err error
}

func (p *pingTransport) Ping(context.Context) error { return p.err }

func TestPing(t *testing.T) {
	var readName string
	notFound := &mockTransport{getFn: func(_ context.Context, name string) (*wire.Response, error) {
		readName = name
		return nil, &TransportError{Op: "GET", Name: name, StatusCode: 404, Status: "NOT_FOUND"}
	}}
	if err := testClient(t, notFound).Ping(context.Background()); err != nil {
		t.Errorf("404 health read: %v", err)
	}
	if readName != testRoot+"/_firerest/health" {
		t.Errorf("health read %q", readName)
	}

	down := &mockTransport{getFn: func(_ context.Context, name string) (*wire.Response, error) {
		return nil, &TransportError{Op: "GET", Name: name, StatusCode: 503, Status: "UNAVAILABLE"}
	}}
	if err := testClient(t, down).Ping(context.Background()); !errors.Is(err, ErrTransport) {
		t.Errorf("503 health read: err = %v", err)
	}

	direct := &pingTransport{err: errors.New("conn refused")}
	c := &Client{project: "demo", tr: direct, newID: newID}
	if err := c.Ping(context.Background()); err == nil || direct.calls != 0 {
		t.Errorf("direct ping: err = %v, transport calls = %d", err, direct.calls)
	}
}
