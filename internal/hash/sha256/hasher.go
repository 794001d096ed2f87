// Package sha256 provides the digest used for URL fingerprints.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

// Hasher implements archive.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint returns the short fingerprint of rawURL's canonical form.
func (h *Hasher) Fingerprint(rawURL string) (string, error) {
	return archive.Fingerprint(h, rawURL)
}
