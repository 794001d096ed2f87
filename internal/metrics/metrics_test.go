package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(archiverRunsTotal.WithLabelValues("skipped"))
	ObserveRun("skipped")
	if got := testutil.ToFloat64(archiverRunsTotal.WithLabelValues("skipped")); got != before+1 {
		t.Errorf("expected skipped runs to increase by 1, got %f -> %f", before, got)
	}

	beforeImg := testutil.ToFloat64(archiverImagesTotal.WithLabelValues("failed"))
	ObserveImage("failed")
	if got := testutil.ToFloat64(archiverImagesTotal.WithLabelValues("failed")); got != beforeImg+1 {
		t.Errorf("expected failed images to increase by 1, got %f -> %f", beforeImg, got)
	}

	SetEntries(3)
	if got := testutil.ToFloat64(archiverEntries); got != 3 {
		t.Errorf("expected entries gauge 3, got %f", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	ObserveStage("extracted", 250*time.Millisecond)
	ObserveFetch("https://example.com/a", "ok")

	path := filepath.Join(t.TempDir(), "archiver.prom")
	if err := WriteTextfile(path, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- temp dir path
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, want := range []string{
		"archiver_last_run_timestamp_seconds 1.7e+09",
		`archiver_stage_duration_seconds_count{stage="extracted"}`,
		`archiver_fetches_total{site="example.com",status="ok"}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected textfile to contain %q", want)
		}
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
