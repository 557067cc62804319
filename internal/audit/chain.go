package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/karmatracker/internal/clock"
)

// Sink is the append-only entry store, indexed by increasing integer from 0.
// Append must store the entry at index Len and return that index. Get
// returns an error wrapping ErrEntryNotFound beyond the tail.
type Sink interface {
	Append(ctx context.Context, e Entry) (int64, error)
	Get(ctx context.Context, index int64) (Entry, error)
	Len(ctx context.Context) (int64, error)
}

// SnapshotSink persists sealed snapshots.
type SnapshotSink interface {
	PutSnapshot(ctx context.Context, s Snapshot) error
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

// Chain is the single append path of one audit ledger. It remembers the tail
// hash and index so callers never pass them, and seals a snapshot every
// window entries when a SnapshotSink is configured.
//
// Thread-safety: Chain is safe for concurrent use; appends are serialized.
type Chain struct {
	mu        sync.Mutex
	sink      Sink
	snapshots SnapshotSink
	window    int
	clock     clock.Clock
	logger    *slog.Logger

	next    int64
	tail    string
	pending []Entry
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithSnapshots seals every window entries into sink. window <= 0 disables
// automatic snapshots.
func WithSnapshots(sink SnapshotSink, window int) ChainOption {
	return func(c *Chain) {
		c.snapshots = sink
		c.window = window
	}
}

// WithClock sets the entry timestamp source.
func WithClock(clk clock.Clock) ChainOption {
	return func(c *Chain) { c.clock = clk }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// OpenChain resumes the chain stored in sink. The tail entry is verified
// before any append is accepted, and entries since the last snapshot
// boundary are reloaded so the next snapshot covers a full window.
func OpenChain(ctx context.Context, sink Sink, opts ...ChainOption) (*Chain, error) {
	c := &Chain{
		sink:   sink,
		clock:  clock.System{},
		logger: slog.Default(),
		tail:   Genesis,
	}
	for _, opt := range opts {
		opt(c)
	}

	n, err := sink.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit sink length: %w", err)
	}
	if n == 0 {
		return c, nil
	}

	last, err := sink.Get(ctx, n-1)
	if err != nil {
		return nil, fmt.Errorf("read audit tail: %w", err)
	}
	if err := VerifyEntry(last); err != nil {
		return nil, fmt.Errorf("audit tail: %w", err)
	}
	c.next = n
	c.tail = last.EntryHash

	if c.snapshots != nil && c.window > 0 {
		start := n - n%int64(c.window)
		for i := start; i < n; i++ {
			e, err := sink.Get(ctx, i)
			if err != nil {
				return nil, fmt.Errorf("reload audit window: %w", err)
			}
			c.pending = append(c.pending, e)
		}
	}
	return c, nil
}

// Append chains payload as the next entry and writes it to the sink. The
// payload is normalized with Payload first.
func (c *Chain) Append(ctx context.Context, payload any) (Entry, error) {
	p, err := Payload(payload)
	if err != nil {
		return Entry{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := Enhance(p, c.next, c.tail, c.clock.Now())
	if err != nil {
		return Entry{}, err
	}
	idx, err := c.sink.Append(ctx, e)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	if idx != e.LedgerIndex {
		return Entry{}, &IntegrityError{
			Index:    e.LedgerIndex,
			Field:    "ledger_index",
			Expected: fmt.Sprint(e.LedgerIndex),
			Actual:   fmt.Sprint(idx),
		}
	}
	c.next++
	c.tail = e.EntryHash

	if c.snapshots != nil && c.window > 0 {
		c.pending = append(c.pending, e)
		if len(c.pending) >= c.window {
			if err := c.seal(ctx); err != nil {
				c.logger.Error("audit snapshot failed", "from_index", c.pending[0].LedgerIndex, "error", err)
			}
		}
	}
	return e, nil
}

func (c *Chain) seal(ctx context.Context) error {
	s, err := NewSnapshot(c.pending, c.clock.Now())
	if err != nil {
		return err
	}
	if err := c.snapshots.PutSnapshot(ctx, s); err != nil {
		return err
	}
	c.logger.Debug("audit snapshot sealed", "from_index", s.FromIndex, "to_index", s.ToIndex, "merkle_root", s.MerkleRoot)
	c.pending = nil
	return nil
}

// Len returns the number of entries appended so far.
func (c *Chain) Len() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Entries reads [from, to] inclusive from the sink.
func (c *Chain) Entries(ctx context.Context, from, to int64) ([]Entry, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("invalid range [%d, %d]", from, to)
	}
	out := make([]Entry, 0, to-from+1)
	for i := from; i <= to; i++ {
		e, err := c.sink.Get(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("read entry %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Verify reads the whole chain back and checks every entry and link, then
// every stored snapshot.
func (c *Chain) Verify(ctx context.Context) (int64, error) {
	n := c.Len()
	if n > 0 {
		entries, err := c.Entries(ctx, 0, n-1)
		if err != nil {
			return 0, err
		}
		if err := VerifyChain(entries); err != nil {
			return 0, err
		}
	}
	if c.snapshots != nil {
		snaps, err := c.snapshots.ListSnapshots(ctx)
		if err != nil {
			return 0, fmt.Errorf("list snapshots: %w", err)
		}
		for _, s := range snaps {
			if err := VerifySnapshot(s); err != nil {
				return 0, err
			}
		}
	}
	return n, nil
}

// Snapshot builds, without storing, a snapshot over [from, to].
func (c *Chain) Snapshot(ctx context.Context, from, to int64) (Snapshot, error) {
	entries, err := c.Entries(ctx, from, to)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(entries, c.clock.Now())
}
