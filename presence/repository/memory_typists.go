package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
)

var _ typing.TypistStore = (*MemoryTypistStore)(nil)

// MemoryTypistStore implements TypistStore in memory. It never returns errors.
type MemoryTypistStore struct {
	mu    sync.RWMutex
	store map[conversation.Key][]int64
}

func NewMemoryTypistStore() *MemoryTypistStore {
	return &MemoryTypistStore{
		store: make(map[conversation.Key][]int64),
	}
}

func (m *MemoryTypistStore) AddTypist(ctx context.Context, key conversation.Key, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.store[key]
	i := sort.Search(len(current), func(i int) bool { return current[i] >= id })
	if i < len(current) && current[i] == id {
		return nil
	}

	next := make([]int64, 0, len(current)+1)
	next = append(next, current[:i]...)
	next = append(next, id)
	next = append(next, current[i:]...)
	m.store[key] = next
	return nil
}

func (m *MemoryTypistStore) RemoveTypist(ctx context.Context, key conversation.Key, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.store[key]
	i := sort.Search(len(current), func(i int) bool { return current[i] >= id })
	if i == len(current) || current[i] != id {
		return false, nil
	}

	if len(current) == 1 {
		delete(m.store, key)
		return true, nil
	}
	next := make([]int64, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)
	m.store[key] = next
	return true, nil
}

func (m *MemoryTypistStore) GetGroupTypists(ctx context.Context, key conversation.Key) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current := m.store[key]
	out := make([]int64, len(current))
	copy(out, current)
	return out, nil
}

func (m *MemoryTypistStore) GetAllTypists(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []int64
	for _, ids := range m.store {
		all = append(all, ids...)
	}
	return conversation.SortedIDs(all), nil
}

func (m *MemoryTypistStore) Conversations(ctx context.Context) ([]conversation.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]conversation.Key, 0, len(m.store))
	for k := range m.store {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}
