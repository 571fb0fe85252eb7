package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration signals missing or invalid client configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidOperation signals an operation the reference kind does not support.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrUnsupportedOperator signals an unknown filter operator.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrTransport signals a failed call to the document service.
	ErrTransport = errors.New("transport error")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedResponse signals a response that breaks the transport contract.
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrUnsupportedValue signals a Go value the codec cannot encode.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// ConfigurationError names the configuration requirement that is missing.
type ConfigurationError struct {
	Missing string
	Err     error
}

// NewConfigurationError creates a configuration error for the named requirement.
func NewConfigurationError(missing string) error {
	return &ConfigurationError{Missing: missing}
}

func (e *ConfigurationError) Error() string {
	msg := ErrConfiguration.Error() + ": missing " + e.Missing
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// TransportError describes a failed REST call.
type TransportError struct {
	Op         string // GET, PATCH, DELETE
	Name       string // fully-qualified resource name
	StatusCode int    // 0 when the request never got a response
	Status     string // API status, e.g. NOT_FOUND
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(ErrTransport.Error())
	fmt.Fprintf(&b, ": %s %s", e.Op, e.Name)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d", e.StatusCode)
	}
	if e.Status != "" {
		b.WriteString(" " + e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes ErrTransport, ErrNotFound for 404 and the underlying cause.
func (e *TransportError) Unwrap() []error {
	errs := []error{ErrTransport}
	if e.StatusCode == 404 {
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
