package audit

import (
	"fmt"
	"time"

	"github.com/roach88/karmatracker/internal/canon"
)

// Snapshot seals a contiguous window of entries under a Merkle root.
type Snapshot struct {
	FromIndex    int64     `json:"from_index"`
	ToIndex      int64     `json:"to_index"`
	EntryCount   int       `json:"entry_count"`
	Entries      []Entry   `json:"entries"`
	MerkleRoot   string    `json:"merkle_root"`
	CreatedAt    time.Time `json:"created_at"`
	SnapshotHash string    `json:"snapshot_hash"`
}

// MerkleRoot reduces hex digests pairwise. An empty list yields 64 zeros, a
// single digest is its own root, and an odd level duplicates its last node.
func MerkleRoot(hashes []string) (string, error) {
	switch len(hashes) {
	case 0:
		return canon.ZeroHash, nil
	case 1:
		return hashes[0], nil
	}

	level := append([]string(nil), hashes...)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h, err := canon.CombineHex(level[i], level[i+1])
			if err != nil {
				return "", fmt.Errorf("merkle level: %w", err)
			}
			next = append(next, h)
		}
		level = next
	}
	return level[0], nil
}

// NewSnapshot builds a snapshot over entries, which must be contiguous.
func NewSnapshot(entries []Entry, createdAt time.Time) (Snapshot, error) {
	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.EntryHash
	}
	root, err := MerkleRoot(hashes)
	if err != nil {
		return Snapshot{}, err
	}

	s := Snapshot{
		EntryCount: len(entries),
		Entries:    append([]Entry{}, entries...),
		MerkleRoot: root,
		CreatedAt:  createdAt.UTC(),
	}
	if len(entries) > 0 {
		s.FromIndex = entries[0].LedgerIndex
		s.ToIndex = entries[len(entries)-1].LedgerIndex
	}
	s.SnapshotHash, err = snapshotHash(s)
	if err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func snapshotHash(s Snapshot) (string, error) {
	h, err := canon.Hash(map[string]any{
		"from_index":  s.FromIndex,
		"to_index":    s.ToIndex,
		"entry_count": s.EntryCount,
		"merkle_root": s.MerkleRoot,
		"created_at":  formatTime(s.CreatedAt),
	})
	if err != nil {
		return "", fmt.Errorf("hash snapshot: %w", err)
	}
	return h, nil
}

// VerifySnapshot recomputes the Merkle root and snapshot hash and checks the
// entries themselves. It returns nil when everything matches.
func VerifySnapshot(s Snapshot) error {
	if s.EntryCount != len(s.Entries) {
		return &IntegrityError{
			Index:    s.FromIndex,
			Field:    "entry_count",
			Expected: fmt.Sprint(len(s.Entries)),
			Actual:   fmt.Sprint(s.EntryCount),
		}
	}
	if err := VerifyChain(s.Entries); err != nil {
		return err
	}
	hashes := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		hashes[i] = e.EntryHash
	}
	root, err := MerkleRoot(hashes)
	if err != nil {
		return &IntegrityError{Index: s.FromIndex, Field: "merkle_root: " + err.Error()}
	}
	if root != s.MerkleRoot {
		return &IntegrityError{Index: s.FromIndex, Field: "merkle_root", Expected: root, Actual: s.MerkleRoot}
	}
	h, err := snapshotHash(s)
	if err != nil {
		return &IntegrityError{Index: s.FromIndex, Field: "snapshot_hash: " + err.Error()}
	}
	if h != s.SnapshotHash {
		return &IntegrityError{Index: s.FromIndex, Field: "snapshot_hash", Expected: h, Actual: s.SnapshotHash}
	}
	return nil
}
