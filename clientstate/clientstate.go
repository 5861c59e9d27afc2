// Package clientstate persists the per-visitor state that a browser would
// otherwise keep locally: cart, wishlist and configurator progress. Each
// document is addressed by an opaque visitor key and a kind.
package clientstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Kind names a state document.
type Kind string

const (
	KindCart         Kind = "cart"
	KindWishlist     Kind = "wishlist"
	KindConfigurator Kind = "configurator"
)

// Store loads and saves JSON-encodable state documents.
type Store interface {
	// Load decodes the stored document into dst. It reports false, and leaves
	// dst untouched, when nothing is stored.
	Load(ctx context.Context, key string, kind Kind, dst any) (bool, error)
	Save(ctx context.Context, key string, kind Kind, v any) error
	Delete(ctx context.Context, key string, kind Kind) error
}

type memKey struct {
	key  string
	kind Kind
}

// Memory is an in-process Store. Documents are stored encoded so callers
// never share mutable state with the store.
type Memory struct {
	mu   sync.Mutex
	docs map[memKey][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[memKey][]byte)}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, key string, kind Kind, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.docs[memKey{key, kind}]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s state: %w", kind, err)
	}
	return true, nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, key string, kind Kind, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s state: %w", kind, err)
	}
	m.mu.Lock()
	m.docs[memKey{key, kind}] = raw
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string, kind Kind) error {
	m.mu.Lock()
	delete(m.docs, memKey{key, kind})
	m.mu.Unlock()
	return nil
}
