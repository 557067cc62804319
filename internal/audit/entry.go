package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/karmatracker/internal/canon"
)

// Genesis is the previous_hash of the entry at index 0.
var Genesis = canon.ZeroHash

// Entry is one hash-chained audit record.
type Entry struct {
	Payload      map[string]any `json:"payload"`
	LedgerIndex  int64          `json:"ledger_index"`
	PreviousHash string         `json:"previous_hash"`
	EntryHash    string         `json:"entry_hash"`
	Timestamp    time.Time      `json:"timestamp"`
	AuditHash    string         `json:"audit_hash"`
}

// Hash returns the SHA-256 of the canonical payload.
func Hash(payload map[string]any) (string, error) {
	return canon.Hash(payload)
}

// Payload converts any JSON-encodable value into the generic map form that
// is hashed and stored. Numbers become json.Number so the payload hashes
// identically before and after storage.
func Payload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return decodePayload(raw)
}

func decodePayload(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Enhance attaches chain metadata to payload. previousHash must be the
// entry_hash produced for index-1, or Genesis for index 0.
func Enhance(payload map[string]any, index int64, previousHash string, ts time.Time) (Entry, error) {
	entryHash, err := Hash(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("hash payload: %w", err)
	}
	e := Entry{
		Payload:      payload,
		LedgerIndex:  index,
		PreviousHash: previousHash,
		EntryHash:    entryHash,
		Timestamp:    ts.UTC(),
	}
	auditHash, err := auditHash(e)
	if err != nil {
		return Entry{}, err
	}
	e.AuditHash = auditHash
	return e, nil
}

func auditHash(e Entry) (string, error) {
	h, err := canon.Hash(map[string]any{
		"payload":       e.Payload,
		"ledger_index":  e.LedgerIndex,
		"previous_hash": e.PreviousHash,
		"entry_hash":    e.EntryHash,
		"timestamp":     formatTime(e.Timestamp),
	})
	if err != nil {
		return "", fmt.Errorf("hash audit envelope: %w", err)
	}
	return h, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// VerifyEntry recomputes entry_hash and audit_hash from the entry's current
// content. It returns nil when both match.
func VerifyEntry(e Entry) error {
	entryHash, err := Hash(e.Payload)
	if err != nil {
		return &IntegrityError{Index: e.LedgerIndex, Field: "payload: " + err.Error()}
	}
	if entryHash != e.EntryHash {
		return &IntegrityError{Index: e.LedgerIndex, Field: "entry_hash", Expected: entryHash, Actual: e.EntryHash}
	}
	ah, err := auditHash(e)
	if err != nil {
		return &IntegrityError{Index: e.LedgerIndex, Field: "audit envelope: " + err.Error()}
	}
	if ah != e.AuditHash {
		return &IntegrityError{Index: e.LedgerIndex, Field: "audit_hash", Expected: ah, Actual: e.AuditHash}
	}
	return nil
}

// VerifyChain checks every entry and the links between them. The first entry
// must link to Genesis when it sits at index 0; a slice starting later is
// checked only from its first entry on.
func VerifyChain(entries []Entry) error {
	for i, e := range entries {
		if err := VerifyEntry(e); err != nil {
			return err
		}
		if i == 0 {
			if e.LedgerIndex == 0 && e.PreviousHash != Genesis {
				return &IntegrityError{Index: 0, Field: "previous_hash", Expected: Genesis, Actual: e.PreviousHash}
			}
			continue
		}
		prev := entries[i-1]
		if e.LedgerIndex != prev.LedgerIndex+1 {
			return &IntegrityError{
				Index:    e.LedgerIndex,
				Field:    "ledger_index",
				Expected: fmt.Sprint(prev.LedgerIndex + 1),
				Actual:   fmt.Sprint(e.LedgerIndex),
			}
		}
		if e.PreviousHash != prev.EntryHash {
			return &IntegrityError{Index: e.LedgerIndex, Field: "previous_hash", Expected: prev.EntryHash, Actual: e.PreviousHash}
		}
	}
	return nil
}
