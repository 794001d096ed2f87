package archive

import "strings"

// FingerprintLength is the number of hex characters kept from the URL digest.
const FingerprintLength = 16

// Fingerprint hashes the canonical form of rawURL. URLs that fail to parse are hashed
// as trimmed text so every input still gets a stable fingerprint.
func Fingerprint(h Hasher, rawURL string) (string, error) {
	canonical, err := CanonicalURL(rawURL)
	if err != nil {
		canonical = strings.TrimSpace(rawURL)
	}
	sum, err := h.Hash([]byte(canonical))
	if err != nil {
		return "", err
	}
	if len(sum) > FingerprintLength {
		sum = sum[:FingerprintLength]
	}
	return sum, nil
}
