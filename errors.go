package firerest

import "github.com/kailas-cloud/firerest/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration       = domain.ErrConfiguration
	ErrInvalidOperation    = domain.ErrInvalidOperation
	ErrUnsupportedOperator = domain.ErrUnsupportedOperator
	ErrTransport           = domain.ErrTransport
	ErrNotFound            = domain.ErrNotFound
	ErrUnexpectedResponse  = domain.ErrUnexpectedResponse
	ErrUnsupportedValue    = domain.ErrUnsupportedValue
)

// ConfigurationError names a missing configuration requirement.
type ConfigurationError = domain.ConfigurationError

// TransportError describes a failed call to the document service.
// Use errors.As() to inspect the status code.
type TransportError = domain.TransportError
