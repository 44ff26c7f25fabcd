package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/lox/pokertable/internal/game"
)

// MemoryStore keeps hands in process. Used when no database is configured
// and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	hands map[string]Hand
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hands: make(map[string]Hand)}
}

func (m *MemoryStore) RecordHand(_ context.Context, res *game.HandResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hands[res.HandID]; ok {
		return fmt.Errorf("%w: %s", ErrHandExists, res.HandID)
	}
	m.hands[res.HandID] = FromResult(res)
	m.order = append(m.order, res.HandID)
	return nil
}

func (m *MemoryStore) GetHand(_ context.Context, id string) (Hand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hands[id]
	if !ok {
		return Hand{}, fmt.Errorf("%w: %s", ErrHandNotFound, id)
	}
	return h, nil
}

// ListHands returns the table's most recent hands first. A limit of zero or
// less returns all of them.
func (m *MemoryStore) ListHands(_ context.Context, tableID string, limit int) ([]Hand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Hand
	for i := len(m.order) - 1; i >= 0; i-- {
		h := m.hands[m.order[i]]
		if h.TableID != tableID {
			continue
		}
		out = append(out, h)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
