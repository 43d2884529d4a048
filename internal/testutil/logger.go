package testutil

import (
	"io"
	"log/slog"
)

// NopLogger descarta todo.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
