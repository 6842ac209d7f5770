package forwarder

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a forwarding failure.
type Kind string

const (
	// BadGateway means the upstream never produced a response: connection
	// refused, DNS failure, timeout or a broken response stream.
	BadGateway Kind = "bad_gateway"
	// InternalProxyError means the gateway failed before issuing the call.
	InternalProxyError Kind = "internal_proxy_error"
)

// Caller-facing messages. Transport details stay in the logs.
const (
	BadGatewayMessage         = "Bad gateway to backend service."
	InternalProxyErrorMessage = "Internal error while forwarding request."
)

// GatewayError is returned by Forward when no upstream response can be relayed.
type GatewayError struct {
	Kind Kind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("forwarder %s: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status the caller receives for this failure.
func (e *GatewayError) StatusCode() int {
	if e.Kind == BadGateway {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message returns the fixed caller-facing message for this failure.
func (e *GatewayError) Message() string {
	if e.Kind == BadGateway {
		return BadGatewayMessage
	}
	return InternalProxyErrorMessage
}

// IsBadGateway reports whether err is a BadGateway GatewayError.
func IsBadGateway(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Kind == BadGateway
}

func badGateway(err error) error {
	return &GatewayError{Kind: BadGateway, Err: err}
}

func internalError(err error) error {
	return &GatewayError{Kind: InternalProxyError, Err: err}
}
