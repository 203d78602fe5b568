// internal/banlist/memstore.go
//
// In-memory KeyedStore for development and tests.  Mirrors the SQL
// store's lazy expiry semantics.
package banlist

import (
	"context"
	"sync"
	"time"
)

// MemStore is a mutex-guarded KeyedStore.  Safe for concurrent use.
type MemStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
	vals map[string]memVal
}

type memVal struct {
	v   []byte
	exp time.Time // zero = no expiry
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		sets: make(map[string]map[string]struct{}),
		vals: make(map[string]memVal),
	}
}

func (m *MemStore) SetAdd(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	m.sets[key][member] = struct{}{}
	return nil
}

func (m *MemStore) SetRemove(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[key], member)
	return nil
}

func (m *MemStore) SetContains(_ context.Context, key, member string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *MemStore) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *MemStore) PutValue(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv := memVal{v: val}
	if ttl > 0 {
		mv.exp = time.Now().Add(ttl)
	}
	m.vals[key] = mv
	return nil
}

func (m *MemStore) GetValue(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.vals[key]
	if !ok {
		return nil, nil
	}
	if !mv.exp.IsZero() && time.Now().After(mv.exp) {
		delete(m.vals, key) // lazy expiry
		return nil, nil
	}
	return mv.v, nil
}

func (m *MemStore) DeleteValue(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}
