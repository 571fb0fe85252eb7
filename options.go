package firerest

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Environment variables read by FromEnv.
const (
	EnvProject     = "GCLOUD_PROJECT"
	EnvCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvEmulator    = "FIRESTORE_EMULATOR_HOST"
)

const (
	driverREST   = "rest"
	driverValkey = "valkey"
	driverRedis  = "redis"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	project string

	credentialsFile string
	credentialsJSON []byte
	tokenSource     oauth2.TokenSource

	driver     string // "rest", "valkey" or "redis"
	endpoint   string
	emulator   bool
	httpClient *http.Client

	addrs            []string
	password         string
	readinessTimeout time.Duration

	newID func() string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithProject sets the Google Cloud project id. Required.
func WithProject(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.project = id
	})
}

// WithCredentialsFile reads a service-account JSON key from path.
func WithCredentialsFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.credentialsFile = path
	})
}

// WithCredentialsJSON uses an inline service-account JSON key.
func WithCredentialsJSON(data []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.credentialsJSON = data
	})
}

// WithTokenSource supplies OAuth2 tokens directly, bypassing key parsing.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return optionFunc(func(c *clientConfig) {
		c.tokenSource = ts
	})
}

// WithEndpoint overrides the REST base URL.
// Default: https://firestore.googleapis.com/v1/
func WithEndpoint(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverREST
		c.endpoint = baseURL
	})
}

// WithEmulator targets a Firestore emulator at host (e.g. "localhost:8080").
// No credentials are needed.
func WithEmulator(host string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverREST
		c.endpoint = "http://" + host + "/v1/"
		c.emulator = true
	})
}

// WithHTTPClient sets the base HTTP client. Credentials are layered on top
// of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithValkey stores documents in a Valkey instance instead of Firestore.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores documents in a Redis instance instead of Firestore.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithInitAddrs replaces the key-value backend seed addresses set by
// WithValkey or WithRedis, e.g. to list several cluster nodes.
func WithInitAddrs(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
	})
}

// WithReadinessTimeout bounds the initial key-value backend ping.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithIDGenerator replaces the id generator used by Add.
// Default: random UUID v4 without dashes.
func WithIDGenerator(fn func() string) Option {
	return optionFunc(func(c *clientConfig) {
		c.newID = fn
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// FromEnv reads the project id, credentials file and emulator host from the
// process environment. Later options override what it sets.
func FromEnv() Option {
	return optionFunc(func(c *clientConfig) {
		if v := os.Getenv(EnvProject); v != "" {
			c.project = v
		}
		if v := os.Getenv(EnvCredentials); v != "" {
			c.credentialsFile = v
		}
		if v := os.Getenv(EnvEmulator); v != "" {
			WithEmulator(v).apply(c)
		}
	})
}
