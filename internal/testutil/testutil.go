// Package testutil provides shared testing utilities: a pgvector-enabled
// PostgreSQL container harness and deterministic mock AI components.
package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output.
//
// log.Logger is a type alias for *slog.Logger, so this and log.NewNop()
// return the same type; prefer log.NewNop() when the internal/log package is
// already imported.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
