package store

import (
	"context"
	"sync"
)

// Memory is an in-memory Handle. The map is copied on construction and never
// written again.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemory(seed map[string][]byte) *Memory {
	data := make(map[string][]byte, len(seed))
	for k, v := range seed {
		data[k] = append([]byte(nil), v...)
	}
	return &Memory{data: data}
}

// Lookup returns a copy so callers cannot modify the shared value.
func (m *Memory) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
