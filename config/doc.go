// Package config loads the server configuration from YAML files and
// environment variables: listening port, TLS credentials, favicon, logging
// level and metrics settings.
package config
