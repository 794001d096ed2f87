// Package trigger reads the event that starts a run. Two shapes are accepted: a flat
// {"url": "..."} document and a repository-dispatch style {"client_payload": {"url": "..."}}.
package trigger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrPayloadMissing means the run carries no URL to archive.
var ErrPayloadMissing = errors.New("payload missing")

// maxPayloadBytes bounds how much of the event is read.
const maxPayloadBytes = 1 << 20

type document struct {
	URL           string `json:"url"`
	ClientPayload struct {
		URL string `json:"url"`
	} `json:"client_payload"`
}

// Payload is a decoded trigger event.
type Payload struct {
	URL string
}

// Parse decodes a payload document. Empty input, malformed JSON and documents without a
// URL all return an error wrapping ErrPayloadMissing; malformed input additionally
// carries the decode error.
func Parse(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("%w: empty document", ErrPayloadMissing)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Payload{}, fmt.Errorf("%w: malformed document: %w", ErrPayloadMissing, err)
	}
	url := strings.TrimSpace(doc.URL)
	if url == "" {
		url = strings.TrimSpace(doc.ClientPayload.URL)
	}
	if url == "" {
		return Payload{}, fmt.Errorf("%w: no url field", ErrPayloadMissing)
	}
	return Payload{URL: url}, nil
}

// Read parses the payload in r.
func Read(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read: %w", ErrPayloadMissing, err)
	}
	return Parse(data)
}

// ReadFile parses the payload stored at path; "-" reads standard input. A path that does
// not exist is a missing payload, not an I/O failure.
func ReadFile(path string) (Payload, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path) // #nosec G304 -- path is an operator-supplied flag.
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrPayloadMissing, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// IsMalformed reports whether err came from a payload that exists but does not decode.
func IsMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
