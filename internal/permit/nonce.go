package permit

import (
	"context"
	"sync"
)

// MemoryNonceStore tracks consumed nonces in process memory. The Postgres
// store provides the durable implementation.
type MemoryNonceStore struct {
	mu       sync.Mutex
	consumed map[string]map[uint64]struct{}
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{consumed: make(map[string]map[uint64]struct{})}
}

func (s *MemoryNonceStore) Consume(ctx context.Context, signer string, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonces, ok := s.consumed[signer]
	if !ok {
		nonces = make(map[uint64]struct{})
		s.consumed[signer] = nonces
	}
	if _, used := nonces[nonce]; used {
		return ErrNonceReused
	}
	nonces[nonce] = struct{}{}
	return nil
}
