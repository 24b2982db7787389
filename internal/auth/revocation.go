package auth

import (
	"context"
	"sync"
)

// RevocationRegistry tracks revoked token identifiers (jti).
type RevocationRegistry interface {
	Revoke(ctx context.Context, jti string) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationRegistry keeps revoked identifiers in process memory for
// the lifetime of the process. Entries are never evicted.
type MemoryRevocationRegistry struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

func NewMemoryRevocationRegistry() *MemoryRevocationRegistry {
	return &MemoryRevocationRegistry{revoked: make(map[string]struct{})}
}

// Revoke records jti. Revoking the same jti again is a no-op.
func (r *MemoryRevocationRegistry) Revoke(_ context.Context, jti string) error {
	r.mu.Lock()
	r.revoked[jti] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *MemoryRevocationRegistry) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	_, ok := r.revoked[jti]
	r.mu.RUnlock()
	return ok, nil
}

// Len returns the number of revoked identifiers.
func (r *MemoryRevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
