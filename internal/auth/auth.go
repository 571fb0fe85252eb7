// Package auth resolves Google service-account credentials into an OAuth2
// token source and an authorized HTTP client.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/kailas-cloud/firerest/internal/domain"
)

// Scope is the OAuth2 scope requested for document access.
const Scope = "https://www.googleapis.com/auth/cloud-platform"

// Config selects the credential source. The first non-empty field wins,
// in the order TokenSource, CredentialsJSON, CredentialsFile.
type Config struct {
	TokenSource     oauth2.TokenSource
	CredentialsJSON []byte
	CredentialsFile string
}

// TokenSource builds a token source from the configured credentials.
func TokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	if cfg.TokenSource != nil {
		return cfg.TokenSource, nil
	}

	data := cfg.CredentialsJSON
	if len(data) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, domain.NewConfigurationError("credentials")
		}
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, &domain.ConfigurationError{Missing: "credentials file", Err: err}
		}
		data = raw
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, &domain.ConfigurationError{
			Missing: "valid credentials",
			Err:     fmt.Errorf("parse credentials: %w", err),
		}
	}
	return creds.TokenSource, nil
}

// HTTPClient wraps base so every request carries a bearer token from ts.
// A nil base uses http.DefaultTransport.
func HTTPClient(base *http.Client, ts oauth2.TokenSource) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	wrapped := *base
	wrapped.Transport = &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(nil, ts),
		Base:   base.Transport,
	}
	return &wrapped
}
