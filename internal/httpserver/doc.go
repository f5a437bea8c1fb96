// Package httpserver wraps net/http's server with address validation, a
// separate bind step, optional TLS and graceful shutdown.
package httpserver
