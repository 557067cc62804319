package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/karmatracker/internal/audit"
	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/ledger"
)

// Memory is the in-process implementation of the same interfaces as Store.
// Values are copied on the way in and out so callers never share state with
// the store.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]ledger.Record
	edges     map[string]debt.Edge
	edgeOrder []string
	entries   []string
	snapshots []audit.Snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]ledger.Record),
		edges: make(map[string]debt.Edge),
	}
}

func (m *Memory) GetUser(_ context.Context, userID string) (ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.users[userID]
	if !ok {
		return ledger.Record{}, fmt.Errorf("%w: %s", ledger.ErrUserNotFound, userID)
	}
	return r.Clone(), nil
}

func (m *Memory) PutUser(_ context.Context, r ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[r.UserID]; !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUserNotFound, r.UserID)
	}
	m.users[r.UserID] = r.Clone()
	return nil
}

func (m *Memory) InsertUser(_ context.Context, r ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[r.UserID]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrUserExists, r.UserID)
	}
	m.users[r.UserID] = r.Clone()
	return nil
}

// SupersedeUser replaces prev and inserts succ as one unit.
func (m *Memory) SupersedeUser(_ context.Context, prev, succ ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[succ.UserID]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrUserExists, succ.UserID)
	}
	if _, ok := m.users[prev.UserID]; !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUserNotFound, prev.UserID)
	}
	m.users[succ.UserID] = succ.Clone()
	m.users[prev.UserID] = prev.Clone()
	return nil
}

// ListUsers returns every stored user id in byte order.
func (m *Memory) ListUsers(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) InsertEdge(_ context.Context, e debt.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertEdgeLocked(e)
}

func (m *Memory) insertEdgeLocked(e debt.Edge) error {
	if _, ok := m.edges[e.ID]; ok {
		return fmt.Errorf("insert edge: duplicate id %s", e.ID)
	}
	m.edges[e.ID] = e.Clone()
	m.edgeOrder = append(m.edgeOrder, e.ID)
	return nil
}

func (m *Memory) GetEdge(_ context.Context, id string) (debt.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	if !ok {
		return debt.Edge{}, fmt.Errorf("%w: %s", debt.ErrEdgeNotFound, id)
	}
	return e.Clone(), nil
}

func (m *Memory) UpdateEdge(_ context.Context, e debt.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[e.ID]; !ok {
		return fmt.Errorf("%w: %s", debt.ErrEdgeNotFound, e.ID)
	}
	m.edges[e.ID] = e.Clone()
	return nil
}

func (m *Memory) TransferEdge(_ context.Context, source, successor debt.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[source.ID]; !ok {
		return fmt.Errorf("%w: %s", debt.ErrEdgeNotFound, source.ID)
	}
	if err := m.insertEdgeLocked(successor); err != nil {
		return err
	}
	m.edges[source.ID] = source.Clone()
	return nil
}

// ListEdges returns edges matching f ordered by creation time, then id.
func (m *Memory) ListEdges(_ context.Context, f debt.EdgeFilter) ([]debt.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []debt.Edge{}
	for _, id := range m.edgeOrder {
		if e := m.edges[id]; f.Match(e) {
			out = append(out, e.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b debt.Edge) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

// Append stores e at the next ledger index. Entries are kept as JSON so a
// read returns the same shape the SQLite store does.
func (m *Memory) Append(_ context.Context, e audit.Entry) (int64, error) {
	doc, err := marshalDoc(e)
	if err != nil {
		return 0, fmt.Errorf("append entry: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := int64(len(m.entries))
	if e.LedgerIndex != next {
		return 0, fmt.Errorf("append entry: entry index %d, next index %d", e.LedgerIndex, next)
	}
	m.entries = append(m.entries, doc)
	return next, nil
}

func (m *Memory) Get(_ context.Context, index int64) (audit.Entry, error) {
	m.mu.RLock()
	if index < 0 || index >= int64(len(m.entries)) {
		m.mu.RUnlock()
		return audit.Entry{}, fmt.Errorf("%w: %d", audit.ErrEntryNotFound, index)
	}
	doc := m.entries[index]
	m.mu.RUnlock()

	var e audit.Entry
	if err := unmarshalDoc(doc, &e); err != nil {
		return audit.Entry{}, fmt.Errorf("get entry %d: %w", index, err)
	}
	return e, nil
}

func (m *Memory) Len(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func (m *Memory) PutSnapshot(_ context.Context, s audit.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.snapshots {
		if existing.FromIndex == s.FromIndex {
			return fmt.Errorf("put snapshot: duplicate from_index %d", s.FromIndex)
		}
	}
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *Memory) ListSnapshots(context.Context) ([]audit.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]audit.Snapshot{}, m.snapshots...)
	slices.SortFunc(out, func(a, b audit.Snapshot) int {
		return int(a.FromIndex - b.FromIndex)
	})
	return out, nil
}

var (
	_ ledger.Store       = (*Memory)(nil)
	_ debt.EdgeStore     = (*Memory)(nil)
	_ audit.Sink         = (*Memory)(nil)
	_ audit.SnapshotSink = (*Memory)(nil)

	_ ledger.Store       = (*Store)(nil)
	_ debt.EdgeStore     = (*Store)(nil)
	_ audit.Sink         = (*Store)(nil)
	_ audit.SnapshotSink = (*Store)(nil)
)
