package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Development: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

func TestNewProductionLoggerWritesToFileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "archiver.log")
	logger, err := New(Config{OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("entry archived")
	_ = logger.Sync()

	data, err := os.ReadFile(path) // #nosec G304 -- temp dir path
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"entry archived"`) || !strings.Contains(string(data), `"ts":`) {
		t.Fatalf("expected JSON line with ts key, got %q", data)
	}
}

func TestNewRejectsBadSink(t *testing.T) {
	t.Parallel()

	_, err := New(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	if err == nil {
		t.Fatal("expected error for unwritable sink")
	}
}
