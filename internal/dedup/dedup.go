// Package dedup decides whether a URL has already been archived.
package dedup

import (
	"strings"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

// MatchKind records which rule matched an existing entry.
type MatchKind string

// Match kinds, in precedence order.
const (
	ExactURL    MatchKind = "exact_url"
	Fingerprint MatchKind = "fingerprint"
)

// Match identifies the archived entry a URL duplicates.
type Match struct {
	ID   string
	Kind MatchKind
}

// Index answers duplicate lookups over an entry snapshot. The scan is linear; the
// archive is personal-scale.
type Index struct {
	hasher archive.Hasher
}

// New returns an Index fingerprinting URLs with h.
func New(h archive.Hasher) *Index {
	return &Index{hasher: h}
}

// Fingerprint returns the fingerprint of rawURL.
func (x *Index) Fingerprint(rawURL string) (string, error) {
	return archive.Fingerprint(x.hasher, rawURL)
}

// FindExisting reports the entry rawURL duplicates, if any. An exact source URL match
// wins over a fingerprint match; among matches of one kind the smallest id wins.
// Entries with no stored fingerprint are fingerprinted from their source URL.
func (x *Index) FindExisting(entries map[string]archive.Entry, rawURL string) (Match, bool) {
	target := strings.TrimSpace(rawURL)
	fp, err := x.Fingerprint(target)
	if err != nil {
		fp = ""
	}

	var exact, fuzzy string
	for key, entry := range entries {
		id := entry.ID
		if id == "" {
			id = key
		}
		if strings.TrimSpace(entry.SourceURL) == target && target != "" {
			exact = smaller(exact, id)
			continue
		}
		if fp == "" {
			continue
		}
		stored := entry.URLFingerprint
		if stored == "" && entry.SourceURL != "" {
			if computed, err := x.Fingerprint(entry.SourceURL); err == nil {
				stored = computed
			}
		}
		if stored == fp {
			fuzzy = smaller(fuzzy, id)
		}
	}

	switch {
	case exact != "":
		return Match{ID: exact, Kind: ExactURL}, true
	case fuzzy != "":
		return Match{ID: fuzzy, Kind: Fingerprint}, true
	default:
		return Match{}, false
	}
}

func smaller(current, candidate string) string {
	if current == "" || candidate < current {
		return candidate
	}
	return current
}
