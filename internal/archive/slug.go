package archive

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxSlugLength bounds the slug portion of entry ids and image names.
	MaxSlugLength = 50
	// IDTimeLayout is the capture timestamp prefix of an entry id.
	IDTimeLayout = "2006-01-02-1504"

	fallbackSlug = "untitled"
)

// Slugify derives a filesystem-safe, human-legible key from a title. The result is
// never empty, at most MaxSlugLength bytes long, and only contains [a-z0-9-].
func Slugify(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastDash := true
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// EntryID builds the store key for an article captured at capturedAt.
func EntryID(capturedAt time.Time, title string) string {
	return capturedAt.UTC().Format(IDTimeLayout) + "-" + Slugify(title)
}

// UniqueID returns base, or base with the smallest numeric suffix not present in taken.
func UniqueID(base string, taken func(id string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
