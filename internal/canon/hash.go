package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ZeroHash is the 64 hex zero digest used as the audit genesis value and as
// the Merkle root of an empty set.
var ZeroHash = strings.Repeat("0", 64)

// Sum returns the hex SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Hash returns the hex SHA-256 digest of the canonical JSON encoding of v.
func Hash(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical hash: %w", err)
	}
	return Sum(data), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(v any) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// CombineHex hashes the concatenation of two hex digests' raw bytes.
// Used for Merkle tree interior nodes.
func CombineHex(left, right string) (string, error) {
	l, err := hex.DecodeString(left)
	if err != nil {
		return "", fmt.Errorf("decode left digest: %w", err)
	}
	r, err := hex.DecodeString(right)
	if err != nil {
		return "", fmt.Errorf("decode right digest: %w", err)
	}
	h := sha256.New()
	h.Write(l)
	h.Write(r)
	return hex.EncodeToString(h.Sum(nil)), nil
}
