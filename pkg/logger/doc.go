// Package logger builds the process-wide slog.Logger: structured JSON in
// production, human-readable text elsewhere, tagged with the environment.
package logger
