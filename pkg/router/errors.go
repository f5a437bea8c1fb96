package router

import (
	"errors"
	"fmt"
)

var (
	ErrRouteNotFound      = errors.New("routekit: route not found")
	ErrMethodNotAllowed   = errors.New("routekit: method not allowed")
	ErrMissingCredentials = errors.New("routekit: tls requires both a key file and a certificate file")
	ErrUnsupportedFavicon = errors.New("routekit: invalid favicon file extension")
	ErrInvalidStatus      = errors.New("routekit: invalid response status")
)

// RouteError reports a request that could not be resolved to a handler.
// Err is ErrRouteNotFound or ErrMethodNotAllowed.
type RouteError struct {
	Path   string
	Method string
	Err    error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// PanicError carries the value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("routekit: handler panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// CredentialError reports a TLS key or certificate that could not be loaded.
type CredentialError struct {
	File string
	Err  error
}

func (e *CredentialError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("routekit: loading tls credentials: %v", e.Err)
	}
	return fmt.Sprintf("routekit: loading tls credentials from %s: %v", e.File, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// WriteError reports a response body that could not be written to the
// client, usually because the connection went away.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("routekit: writing response: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
