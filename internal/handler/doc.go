// Package handler wraps the router with request logging, request IDs and
// metrics events.
package handler
