package snapshot

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory. Records are stored encoded so
// callers never share maps with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return ErrInvalidID
	}
	b, err := Encode(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.records[rec.ID] = b
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	b, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return Decode(b)
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.records, id)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
