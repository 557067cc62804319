package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/karmatracker/internal/canon"
	"github.com/roach88/karmatracker/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memSink struct {
	mu      sync.Mutex
	entries []Entry
	snaps   []Snapshot
}

func (m *memSink) Append(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return int64(len(m.entries) - 1), nil
}

func (m *memSink) Get(_ context.Context, index int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= int64(len(m.entries)) {
		return Entry{}, ErrEntryNotFound
	}
	return m.entries[index], nil
}

func (m *memSink) Len(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *memSink) PutSnapshot(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, s)
	return nil
}

func (m *memSink) ListSnapshots(context.Context) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.snaps...), nil
}

func samplePayload() map[string]any {
	return map[string]any{
		"user_id": "u1",
		"action":  "helping_peers",
		"delta":   10,
		"score":   8.5,
	}
}

func chainOf(t *testing.T, n int) []Entry {
	t.Helper()
	prev := Genesis
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		p := map[string]any{"seq": i, "user_id": fmt.Sprintf("u%d", i+1)}
		e, err := Enhance(p, int64(i), prev, epoch.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		out = append(out, e)
		prev = e.EntryHash
	}
	return out
}

func TestEnhanceGolden(t *testing.T) {
	e, err := Enhance(samplePayload(), 0, Genesis, epoch)
	require.NoError(t, err)

	assert.Equal(t, "d67d7f64cc603709d508e3b15001fd4bbd6a7f007c6cb2dbfc107be77fe7fc51", e.EntryHash)
	assert.Equal(t, "ccc233334d85125ac497137dde5d9f115b13a0b70f6e5ec44947b841d8d8a94b", e.AuditHash)

	data, err := json.MarshalIndent(e, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "enhanced_entry", data)
}

func TestHashIgnoresKeyOrder(t *testing.T) {
	a, err := Hash(map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	b, err := Hash(map[string]any{"b": "x", "a": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVerifyEntryDetectsMutation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Entry)
		field  string
	}{
		{"payload value", func(e *Entry) { e.Payload["delta"] = 11 }, "entry_hash"},
		{"payload key added", func(e *Entry) { e.Payload["extra"] = true }, "entry_hash"},
		{"ledger index", func(e *Entry) { e.LedgerIndex = 1 }, "audit_hash"},
		{"previous hash", func(e *Entry) { e.PreviousHash = canon.Sum([]byte("x")) }, "audit_hash"},
		{"timestamp", func(e *Entry) { e.Timestamp = e.Timestamp.Add(time.Nanosecond) }, "audit_hash"},
		{"entry hash", func(e *Entry) { e.EntryHash = canon.ZeroHash }, "entry_hash"},
		{"audit hash", func(e *Entry) { e.AuditHash = canon.ZeroHash }, "audit_hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Enhance(samplePayload(), 0, Genesis, epoch)
			require.NoError(t, err)
			require.NoError(t, VerifyEntry(e))

			tt.mutate(&e)
			err = VerifyEntry(e)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIntegrityViolation)

			var ie *IntegrityError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestVerifyEntryAfterJSONRoundTrip(t *testing.T) {
	e, err := Enhance(samplePayload(), 0, Genesis, epoch)
	require.NoError(t, err)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	var back Entry
	require.NoError(t, json.Unmarshal(data, &back))

	assert.NoError(t, VerifyEntry(back))
}

func TestVerifyChain(t *testing.T) {
	entries := chainOf(t, 4)
	require.NoError(t, VerifyChain(entries))
	require.NoError(t, VerifyChain(nil))
	require.NoError(t, VerifyChain(entries[2:]), "a window starting past genesis checks from its first entry")

	t.Run("gap", func(t *testing.T) {
		gapped := []Entry{entries[0], entries[2]}
		err := VerifyChain(gapped)
		var ie *IntegrityError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "ledger_index", ie.Field)
	})

	t.Run("reorder", func(t *testing.T) {
		swapped := []Entry{entries[1], entries[0]}
		assert.ErrorIs(t, VerifyChain(swapped), ErrIntegrityViolation)
	})

	t.Run("spliced entry", func(t *testing.T) {
		forged, err := Enhance(map[string]any{"seq": 99}, 2, canon.ZeroHash, epoch)
		require.NoError(t, err)
		spliced := []Entry{entries[0], entries[1], forged, entries[3]}
		var ie *IntegrityError
		require.ErrorAs(t, VerifyChain(spliced), &ie)
		assert.Equal(t, int64(2), ie.Index)
		assert.Equal(t, "previous_hash", ie.Field)
	})

	t.Run("bad genesis", func(t *testing.T) {
		e, err := Enhance(samplePayload(), 0, canon.Sum([]byte("nope")), epoch)
		require.NoError(t, err)
		assert.ErrorIs(t, VerifyChain([]Entry{e}), ErrIntegrityViolation)
	})
}

func TestMerkleRoot(t *testing.T) {
	root, err := MerkleRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, canon.ZeroHash, root)

	entries := chainOf(t, 3)
	root, err = MerkleRoot([]string{entries[0].EntryHash})
	require.NoError(t, err)
	assert.Equal(t, entries[0].EntryHash, root)

	hashes := []string{entries[0].EntryHash, entries[1].EntryHash, entries[2].EntryHash}
	assert.Equal(t, []string{
		"9f0b2faff1037eeda0ceb60d8aacf2e6b2230c7fff3d5a8316b9a16291730c57",
		"d56c2bfdb3a0ab69ba892f469092caa80b29849b0c4a3a46183b966455b7005a",
		"5602b7938cd7dc4867fcb2ee3a61f6a9ea42ead6597187e88e942c0cb403099f",
	}, hashes)

	root, err = MerkleRoot(hashes)
	require.NoError(t, err)
	assert.Equal(t, "d850f4251d6f01f38c4e96dd412a575e6d4e9b446a66816779be4795de63153c", root)

	_, err = MerkleRoot([]string{"zz", "00"})
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s, err := NewSnapshot(chainOf(t, 3), createdAt)
	require.NoError(t, err)

	assert.Equal(t, int64(0), s.FromIndex)
	assert.Equal(t, int64(2), s.ToIndex)
	assert.Equal(t, 3, s.EntryCount)
	assert.Equal(t, "ab835ef67337e59c557b03228b642ad8e3e67d1be9b18626fec7e79fe68ab51b", s.SnapshotHash)
	require.NoError(t, VerifySnapshot(s))

	t.Run("entry count mutated", func(t *testing.T) {
		bad := s
		bad.EntryCount = 4
		assert.ErrorIs(t, VerifySnapshot(bad), ErrIntegrityViolation)
	})

	t.Run("merkle root mutated", func(t *testing.T) {
		bad := s
		bad.MerkleRoot = canon.ZeroHash
		var ie *IntegrityError
		require.ErrorAs(t, VerifySnapshot(bad), &ie)
		assert.Equal(t, "merkle_root", ie.Field)
	})

	t.Run("entry payload mutated", func(t *testing.T) {
		bad := s
		bad.Entries = append([]Entry(nil), s.Entries...)
		p := map[string]any{"seq": 7, "user_id": "u2"}
		bad.Entries[1].Payload = p
		assert.ErrorIs(t, VerifySnapshot(bad), ErrIntegrityViolation)
	})
}

func TestEmptySnapshot(t *testing.T) {
	s, err := NewSnapshot(nil, epoch)
	require.NoError(t, err)
	assert.Equal(t, canon.ZeroHash, s.MerkleRoot)
	assert.Equal(t, 0, s.EntryCount)
	assert.NoError(t, VerifySnapshot(s))
}

func TestChainAppendAndResume(t *testing.T) {
	ctx := context.Background()
	clk := testutil.NewFakeClock(epoch)
	sink := &memSink{}

	c, err := OpenChain(ctx, sink, WithClock(clk), WithSnapshots(sink, 3))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		clk.Advance(time.Second)
		_, err := c.Append(ctx, map[string]any{"seq": i})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), c.Len())
	require.Len(t, sink.snaps, 1)
	assert.Equal(t, int64(0), sink.snaps[0].FromIndex)
	assert.Equal(t, int64(2), sink.snaps[0].ToIndex)

	n, err := c.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// Reopen and keep appending: the next snapshot covers entries 3..5.
	c2, err := OpenChain(ctx, sink, WithClock(clk), WithSnapshots(sink, 3))
	require.NoError(t, err)
	for i := 4; i < 6; i++ {
		_, err := c2.Append(ctx, map[string]any{"seq": i})
		require.NoError(t, err)
	}
	require.Len(t, sink.snaps, 2)
	assert.Equal(t, int64(3), sink.snaps[1].FromIndex)
	assert.Equal(t, int64(5), sink.snaps[1].ToIndex)

	entries, err := c2.Entries(ctx, 0, 5)
	require.NoError(t, err)
	assert.NoError(t, VerifyChain(entries))
}

func TestChainStructPayload(t *testing.T) {
	ctx := context.Background()
	sink := &memSink{}
	c, err := OpenChain(ctx, sink, WithClock(testutil.NewFakeClock(epoch)))
	require.NoError(t, err)

	type event struct {
		UserID string  `json:"user_id"`
		Delta  float64 `json:"delta"`
	}
	e, err := c.Append(ctx, event{UserID: "u1", Delta: 5})
	require.NoError(t, err)
	assert.Equal(t, "u1", e.Payload["user_id"])
	assert.Equal(t, json.Number("5"), e.Payload["delta"])
	assert.NoError(t, VerifyEntry(e))

	_, err = c.Append(ctx, []int{1, 2})
	assert.Error(t, err, "payload must be an object")
}

func TestOpenChainRejectsTamperedTail(t *testing.T) {
	ctx := context.Background()
	sink := &memSink{entries: chainOf(t, 2)}
	sink.entries[1].Payload["user_id"] = "mallory"

	_, err := OpenChain(ctx, sink)
	assert.ErrorIs(t, err, ErrIntegrityViolation)
}

func TestChainConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	sink := &memSink{}
	c, err := OpenChain(ctx, sink)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Append(ctx, map[string]any{"seq": i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	_, err = c.Verify(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(50), c.Len())
}
