package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output. Use it
// to keep test output quiet; log.NewNop() returns the same thing for
// code working with the internal/log package.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
