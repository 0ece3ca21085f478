package population

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// Memory is an in-memory Registry. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory Registry.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, id string) (Object, error) {
	m.mu.RLock()
	v, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return Object{}, ErrNotFound
	}
	return unmarshal(v)
}

func (m *Memory) Put(_ context.Context, obj Object) error {
	// Stored encoded so callers cannot alias the point slice.
	v, err := marshal(obj)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[obj.ID] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) All(_ context.Context) iter.Seq2[Object, error] {
	// Snapshot under read lock.
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	vals := make(map[string][]byte, len(m.data))
	for id, v := range m.data {
		ids = append(ids, id)
		vals[id] = v
	}
	m.mu.RUnlock()
	slices.Sort(ids)

	return func(yield func(Object, error) bool) {
		for _, id := range ids {
			obj, err := unmarshal(vals[id])
			if !yield(obj, err) {
				return
			}
		}
	}
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

func (m *Memory) Close() error { return nil }
