// Package testutil holds helpers shared by the package test suites.
package testutil

import (
	"log/slog"
	"testing"
)

// Logger returns a debug-level slog.Logger that routes records through
// t.Log, so pipeline output lands attached to the test that produced it
// and only surfaces on failure or with -v.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logWriter struct {
	t testing.TB
}

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
