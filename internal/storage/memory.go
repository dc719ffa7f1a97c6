package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps saves in process memory.
type Memory struct {
	mu    sync.RWMutex
	saves map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{saves: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, slot string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[slot] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.saves[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saves[slot]; !ok {
		return ErrNotFound
	}
	delete(m.saves, slot)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]string, 0, len(m.saves))
	for slot := range m.saves {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots, nil
}

func (m *Memory) Close() error { return nil }
