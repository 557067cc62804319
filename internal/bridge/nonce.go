package bridge

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// NonceStore is the set of nonces already used. Register is the single
// check-and-insert critical section shared by all senders.
//
// Thread-safety: NonceStore is safe for concurrent use.
type NonceStore struct {
	mu    sync.Mutex
	order *list.List
	index map[string]*list.Element
}

// NewNonceStore creates an empty nonce set.
func NewNonceStore() *NonceStore {
	return &NonceStore{order: list.New(), index: make(map[string]*list.Element)}
}

// Register records nonce and reports whether it was new.
func (s *NonceStore) Register(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[nonce]; ok {
		return false
	}
	s.index[nonce] = s.order.PushBack(nonce)
	return true
}

// Release removes nonce so it may be registered again.
func (s *NonceStore) Release(nonce string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.index[nonce]; ok {
		s.order.Remove(el)
		delete(s.index, nonce)
	}
}

// Contains reports whether nonce is registered.
func (s *NonceStore) Contains(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[nonce]
	return ok
}

// Len returns the number of registered nonces.
func (s *NonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Cleanup drops the oldest nonces until at most keep remain and returns how
// many were dropped.
func (s *NonceStore) Cleanup(keep int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for s.order.Len() > keep {
		el := s.order.Front()
		s.order.Remove(el)
		delete(s.index, el.Value.(string))
		dropped++
	}
	return dropped
}

// StartCleanup runs Cleanup(keep) every interval until ctx is done. The
// returned channel is closed when the loop exits.
func (s *NonceStore) StartCleanup(ctx context.Context, interval time.Duration, keep int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(keep)
			}
		}
	}()
	return done
}
