package cmd

import (
	"log/slog"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "ingest": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestInitLogger(t *testing.T) {
	t.Setenv("DEBUG", "")
	logger := initLogger()
	if logger == nil {
		t.Fatal("initLogger() returned nil")
	}
	if logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug enabled without DEBUG env var")
	}

	t.Setenv("DEBUG", "1")
	if !initLogger().Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug not enabled with DEBUG env var set")
	}
}
