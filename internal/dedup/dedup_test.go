package dedup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/hash/sha256"
)

func entryFor(t *testing.T, id, sourceURL string, withFingerprint bool) archive.Entry {
	t.Helper()
	e := archive.Entry{ID: id, Title: id, SourceURL: sourceURL}
	if withFingerprint {
		fp, err := sha256.New().Fingerprint(sourceURL)
		require.NoError(t, err)
		e.URLFingerprint = fp
	}
	return e
}

func TestFindExisting(t *testing.T) {
	t.Parallel()

	idx := New(sha256.New())

	tests := []struct {
		name    string
		entries []archive.Entry
		url     string
		want    Match
		found   bool
	}{
		{
			name: "empty archive",
			url:  "https://example.com/a",
		},
		{
			name:    "exact source url",
			entries: []archive.Entry{entryFor(t, "2024-01-01-0000-a", "https://example.com/a", true)},
			url:     "https://example.com/a",
			want:    Match{ID: "2024-01-01-0000-a", Kind: ExactURL},
			found:   true,
		},
		{
			name:    "tracking params and trailing slash collide by fingerprint",
			entries: []archive.Entry{entryFor(t, "2024-01-01-0000-a", "https://example.com/a", true)},
			url:     "https://Example.com/a/?utm_source=x#top",
			want:    Match{ID: "2024-01-01-0000-a", Kind: Fingerprint},
			found:   true,
		},
		{
			name:    "legacy entry without fingerprint",
			entries: []archive.Entry{entryFor(t, "old", "https://example.com/a?fbclid=1", false)},
			url:     "https://example.com/a",
			want:    Match{ID: "old", Kind: Fingerprint},
			found:   true,
		},
		{
			name: "exact beats fingerprint",
			entries: []archive.Entry{
				entryFor(t, "aaa", "https://example.com/a/", true),
				entryFor(t, "zzz", "https://example.com/a", true),
			},
			url:   "https://example.com/a",
			want:  Match{ID: "zzz", Kind: ExactURL},
			found: true,
		},
		{
			name: "smallest id among equals",
			entries: []archive.Entry{
				entryFor(t, "c", "https://example.com/a?utm_medium=1", true),
				entryFor(t, "b", "https://example.com/a?utm_medium=2", true),
			},
			url:   "https://example.com/a",
			want:  Match{ID: "b", Kind: Fingerprint},
			found: true,
		},
		{
			name:    "different page",
			entries: []archive.Entry{entryFor(t, "a", "https://example.com/a", true)},
			url:     "https://example.com/b",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			entries := make(map[string]archive.Entry, len(tc.entries))
			for _, e := range tc.entries {
				entries[e.ID] = e
			}
			got, ok := idx.FindExisting(entries, tc.url)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

type failingHasher struct{}

func (failingHasher) Hash([]byte) (string, error) { return "", errors.New("boom") }

func TestFindExistingWithoutFingerprintsFallsBackToExact(t *testing.T) {
	t.Parallel()

	idx := New(failingHasher{})
	entries := map[string]archive.Entry{
		"a": {ID: "a", SourceURL: "https://example.com/a"},
		"b": {ID: "b", SourceURL: "https://example.com/b"},
	}
	got, ok := idx.FindExisting(entries, "https://example.com/b")
	require.True(t, ok)
	assert.Equal(t, Match{ID: "b", Kind: ExactURL}, got)

	_, ok = idx.FindExisting(entries, "https://example.com/b/")
	assert.False(t, ok)
}
