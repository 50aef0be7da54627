package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds a memory backend created with a non-positive size.
const DefaultSize = 10000

// Memory is an in-process LRU backend. Eviction only forces a recompute.
type Memory struct {
	lru *lru.Cache[Key, Value]
}

// NewMemory returns a memory backend holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultSize
	}

	c, err := lru.New[Key, Value](size)
	if err != nil {
		return nil, err
	}

	return &Memory{lru: c}, nil
}

// Get implements Backend.
func (m *Memory) Get(_ context.Context, key Key) (Value, string, bool, error) {
	v, ok := m.lru.Get(key)

	return v, "", ok, nil
}

// Put implements Backend. Staleness is tracked by the Cache generation.
func (m *Memory) Put(_ context.Context, key Key, v Value, _ string) error {
	m.lru.Add(key, v)

	return nil
}

// DeleteUser implements Backend.
func (m *Memory) DeleteUser(_ context.Context, userID uint64) error {
	m.lru.Remove(UserKey(userID))

	return nil
}

// Flush implements Backend.
func (m *Memory) Flush(_ context.Context) error {
	m.lru.Purge()

	return nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
