// Package frontmatter extracts the "---" delimited key/value header block
// from agent definition documents.
//
// The block is parsed line by line rather than as YAML: descriptions
// routinely contain colons and unquoted punctuation that a YAML decoder
// rejects.
package frontmatter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Marker opens and closes the header block. It must be a line on its own.
const Marker = "---"

var (
	// ErrNoHeader is returned when the document does not start with a marker line.
	ErrNoHeader = errors.New("no header block found")

	// ErrUnterminated is returned when the opening marker has no closing line.
	// It wraps ErrNoHeader.
	ErrUnterminated = fmt.Errorf("%w: missing closing %q line", ErrNoHeader, Marker)
)

// Header maps header keys to their trimmed values.
type Header map[string]string

// Get returns the value for key and whether it was present.
func (h Header) Get(key string) (string, bool) {
	v, ok := h[key]
	return v, ok
}

// Keys returns the header keys in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List splits the value of key on sep. A missing key yields a single empty
// entry, matching strings.Split semantics.
func (h Header) List(key, sep string) []string {
	return strings.Split(h[key], sep)
}

// Extract locates the header block and returns its fields together with
// the body that follows the closing marker. On failure no partial mapping
// is returned.
func Extract(content string) (Header, string, error) {
	block, body, err := split(content)
	if err != nil {
		return nil, "", err
	}
	return ParseFields(block), body, nil
}

// ParseFields applies the key/value line rule to a raw header block. For
// every line containing ':' the text before the first ':' is the key and
// the remainder is the value, both trimmed. Later keys overwrite earlier
// ones and lines without ':' are skipped.
func ParseFields(block string) Header {
	h := make(Header)
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return h
}

// HasOpenMarker reports whether content begins with a marker line.
func HasOpenMarker(content string) bool {
	line, _, _ := strings.Cut(content, "\n")
	return isMarker(line) && len(line) < len(content)
}

// HasCloseMarker reports whether a marker line follows the opening one.
func HasCloseMarker(content string) bool {
	_, _, err := split(content)
	return err == nil
}

// split separates the raw header block from the body.
func split(content string) (block, body string, err error) {
	lines := strings.SplitAfter(content, "\n")
	if !HasOpenMarker(content) {
		return "", "", ErrNoHeader
	}

	for i := 1; i < len(lines); i++ {
		if isMarker(lines[i]) {
			block = strings.Join(lines[1:i], "")
			body = strings.Join(lines[i+1:], "")
			return strings.TrimSuffix(block, "\n"), body, nil
		}
	}
	return "", "", ErrUnterminated
}

// isMarker reports whether line is exactly the marker, optionally followed
// by a single "\n". A "\r" before the newline does not qualify.
func isMarker(line string) bool {
	return strings.TrimSuffix(line, "\n") == Marker
}
