package firerest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/kailas-cloud/firerest/internal/auth"
	"github.com/kailas-cloud/firerest/internal/db"
	dbRedis "github.com/kailas-cloud/firerest/internal/db/redis"
	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/domain/resource"
	documentrepo "github.com/kailas-cloud/firerest/internal/repository/document"
	"github.com/kailas-cloud/firerest/internal/transport/rest"
	"github.com/kailas-cloud/firerest/internal/wire"
)

const defaultReadinessTimeout = 10 * time.Second

// emulatorToken is the bearer the Firestore emulator treats as an admin.
const emulatorToken = "owner"

// transport is the document service the client talks to (ISP).
type transport interface {
	Get(ctx context.Context, name string) (*wire.Response, error)
	Patch(ctx context.Context, name string, fields wire.Fields, mask []string) (*wire.Document, error)
	Delete(ctx context.Context, name string) (map[string]any, error)
}

// pinger is implemented by transports with a direct liveness check.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthCheckPath is read by Ping on backends without a direct check.
const healthCheckPath = "/_firerest/health"

// kvTransport serves documents from a key-value store.
type kvTransport struct {
	*documentrepo.Repo
	store db.Store
}

func (k kvTransport) Ping(ctx context.Context) error { return k.store.Ping(ctx) }

// Client is the firerest entry point and the fresh root reference.
type Client struct {
	project string
	tr      transport
	closer  func()
	newID   func() string
	obs     *observer
}

// New validates the configuration and creates a Client. Missing settings
// fail with a *ConfigurationError before any network access. The context is
// used for credential setup and the key-value readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:           driverREST,
		readinessTimeout: defaultReadinessTimeout,
		newID:            newID,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.project == "" {
		return nil, domain.NewConfigurationError("project id (use WithProject or " + EnvProject + ")")
	}
	if strings.Contains(cfg.project, "/") {
		return nil, &domain.ConfigurationError{Missing: "valid project id", Err: fmt.Errorf("%q", cfg.project)}
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	tr, closer, err := createTransport(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		project: cfg.project,
		tr:      tr,
		closer:  closer,
		newID:   cfg.newID,
		obs:     obs,
	}, nil
}

func createTransport(ctx context.Context, cfg *clientConfig, logger *zap.Logger) (transport, func(), error) {
	switch cfg.driver {
	case driverREST:
		var ts oauth2.TokenSource
		if cfg.emulator {
			ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: emulatorToken})
		} else {
			var err error
			ts, err = auth.TokenSource(ctx, auth.Config{
				TokenSource:     cfg.tokenSource,
				CredentialsJSON: cfg.credentialsJSON,
				CredentialsFile: cfg.credentialsFile,
			})
			if err != nil {
				return nil, nil, err
			}
		}
		rc, err := rest.New(rest.Config{
			BaseURL:    cfg.endpoint,
			HTTPClient: auth.HTTPClient(cfg.httpClient, ts),
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return rc, func() {}, nil

	case driverValkey, driverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("firerest: create %s store: %w", cfg.driver, err)
		}
		if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("firerest: %s not ready: %w", cfg.driver, err)
		}
		return kvTransport{Repo: documentrepo.New(store), store: store}, store.Close, nil

	default:
		return nil, nil, &domain.ConfigurationError{
			Missing: "known backend driver",
			Err:     fmt.Errorf("%q", cfg.driver),
		}
	}
}

// newID returns a random 32-character hex identifier.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Close releases backend connections.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Ping checks that the backend is reachable. Key-value stores are pinged
// directly; the REST API is checked by reading a reserved document, where
// NOT_FOUND counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	if p, ok := c.tr.(pinger); ok {
		return p.Ping(ctx)
	}
	_, err := c.tr.Get(ctx, resource.Name(c.project, healthCheckPath))
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// Project returns the configured project id.
func (c *Client) Project() string { return c.project }

func (c *Client) root() ref {
	return ref{client: c}
}

// Collection returns a reference to a top-level collection.
func (c *Client) Collection(id string) *CollectionRef {
	return &CollectionRef{ref: c.root().child(id)}
}

// Doc returns a reference to a document directly under the root.
func (c *Client) Doc(id string) *DocumentRef {
	return &DocumentRef{ref: c.root().child(id)}
}

// Get reads the documents root.
func (c *Client) Get(ctx context.Context) (*QuerySnapshot, error) {
	return c.root().query(ctx, nil)
}

// Resolve parses a slash-separated path into a reference. An odd number of
// segments is a collection, an even number a document.
func (c *Client) Resolve(path string) (Reference, error) {
	segments, err := resource.Split(path)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("path %q addresses the root: %w", path, domain.ErrInvalidOperation)
	}

	r := c.root()
	for _, s := range segments {
		r = r.child(s)
	}
	if len(segments)%2 == 1 {
		return &CollectionRef{ref: r}, nil
	}
	return &DocumentRef{ref: r}, nil
}
