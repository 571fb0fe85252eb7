// Package rest talks to the Firestore v1 REST endpoint.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/metrics"
	"github.com/kailas-cloud/firerest/internal/wire"
)

// DefaultBaseURL is the public Firestore v1 endpoint.
const DefaultBaseURL = "https://firestore.googleapis.com/v1/"

const maxErrorBody = 64 << 10

// Config holds the REST client settings.
type Config struct {
	BaseURL    string       // default DefaultBaseURL
	HTTPClient *http.Client // must attach credentials; default http.DefaultClient
	Logger     *zap.Logger
}

// Client issues GET, PATCH and DELETE calls against resource names.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

// New creates a REST client.
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, &domain.ConfigurationError{Missing: "valid endpoint", Err: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &domain.ConfigurationError{Missing: "valid endpoint", Err: fmt.Errorf("%q is not absolute", raw)}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{base: base, http: httpClient, logger: logger}, nil
}

// Get reads a document or lists a collection.
func (c *Client) Get(ctx context.Context, name string) (*wire.Response, error) {
	var resp wire.Response
	if err := c.do(ctx, http.MethodGet, name, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Patch writes fields to a document. A non-empty mask restricts the write
// to the listed field paths; otherwise the document is replaced.
func (c *Client) Patch(ctx context.Context, name string, fields wire.Fields, mask []string) (*wire.Document, error) {
	if fields == nil {
		fields = wire.Fields{}
	}
	body, err := json.Marshal(wire.PatchRequest{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encode patch body: %w", err)
	}

	var query url.Values
	if len(mask) > 0 {
		query = url.Values{"updateMask.fieldPaths": mask}
	}

	var doc wire.Document
	if err := c.do(ctx, http.MethodPatch, name, query, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document and returns the acknowledgment payload.
func (c *Client) Delete(ctx context.Context, name string) (map[string]any, error) {
	ack := map[string]any{}
	if err := c.do(ctx, http.MethodDelete, name, nil, nil, &ack); err != nil {
		return nil, err
	}
	return ack, nil
}

func (c *Client) endpoint(name string, query url.Values) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := c.base.String() + strings.Join(segments, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, name string, query url.Values, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(name, query), reader)
	if err != nil {
		return &domain.TransportError{Op: method, Name: name, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	metrics.UpstreamRequestDuration.WithLabelValues(method).Observe(duration.Seconds())

	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(method, "error").Inc()
		c.logger.Debug("firestore request failed",
			zap.String("method", method),
			zap.String("name", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return &domain.TransportError{Op: method, Name: name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.UpstreamRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("firestore request",
		zap.String("method", method),
		zap.String("name", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(method, name, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: method, Name: name, StatusCode: resp.StatusCode, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, name, errors.Join(domain.ErrUnexpectedResponse, err))
	}
	return nil
}

// parseAPIError turns a non-2xx response into a TransportError, using the
// Google error envelope when the body carries one.
func parseAPIError(method, name string, resp *http.Response) error {
	te := &domain.TransportError{
		Op:         method,
		Name:       name,
		StatusCode: resp.StatusCode,
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope wire.ErrorResponse
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		te.Status = envelope.Error.Status
		te.Message = envelope.Error.Message
		return te
	}

	te.Message = strings.TrimSpace(string(data))
	if te.Message == "" {
		te.Message = http.StatusText(resp.StatusCode)
	}
	return te
}
