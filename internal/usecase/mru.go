package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/state"
)

const (
	MRUCapacity = 5
	mruStateKey = "v1:tiles:mru:last_sources"
)

// MRUList is a bounded, deduplicated list of source ids, most recent first.
type MRUList struct {
	mu       sync.Mutex
	items    []string
	capacity int
	unsaved  bool
}

var lastSources = NewMRUList(MRUCapacity)

// LastSources returns the process wide list of recently replaced sources.
func LastSources() *MRUList {
	return lastSources
}

func NewMRUList(capacity int) *MRUList {
	return &MRUList{
		capacity: capacity,
	}
}

func (m *MRUList) Push(id string) {
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = slices.DeleteFunc(m.items, func(s string) bool { return s == id })
	m.items = slices.Insert(m.items, 0, id)
	if len(m.items) > m.capacity {
		m.items = m.items[:m.capacity]
	}
	m.unsaved = true
}

// Remove drops id from the list. It reports whether id was listed.
func (m *MRUList) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.items)
	m.items = slices.DeleteFunc(m.items, func(s string) bool { return s == id })
	if len(m.items) == n {
		return false
	}
	m.unsaved = true
	return true
}

func (m *MRUList) Items() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

func (m *MRUList) Save(ctx context.Context, s state.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(m.items)
	if err != nil {
		return err
	}
	if err := s.Put(ctx, mruStateKey, data); err != nil {
		return fmt.Errorf("failed to save recent sources: %w", err)
	}
	m.unsaved = false

	return nil
}

// Restore loads the saved list. It is a no-op while there are unsaved pushes,
// so a late restore never drops newer history.
func (m *MRUList) Restore(ctx context.Context, s state.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsaved {
		return nil
	}

	data, ok, err := s.Get(ctx, mruStateKey)
	if err != nil {
		return fmt.Errorf("failed to restore recent sources: %w", err)
	}
	if !ok {
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to decode recent sources: %w", err)
	}
	m.items = m.items[:0]
	for _, id := range items {
		if id == "" || slices.Contains(m.items, id) {
			continue
		}
		m.items = append(m.items, id)
		if len(m.items) == m.capacity {
			break
		}
	}

	return nil
}
