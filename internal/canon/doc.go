// Package canon provides the canonical JSON encoding and SHA-256 digests used
// for every content hash and signature in the karma tracker.
//
// Key design constraints:
//   - Object keys sorted by UTF-16 code units (RFC 8785)
//   - No HTML escaping, strings NFC normalized
//   - Numbers formatted shortest-roundtrip, so float64(5) and int 5 encode
//     identically and values survive a JSON storage round trip unchanged
//   - NaN and Inf are forbidden
package canon
