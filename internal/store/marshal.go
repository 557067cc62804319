package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalDoc converts a value to JSON TEXT for storage.
// HTML escaping is disabled so stored text matches the canonical encoder.
func marshalDoc(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDoc parses JSON TEXT into dst. Numbers inside untyped maps decode
// as json.Number so audit payloads keep their exact digits.
func unmarshalDoc(data string, dst any) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
