// Package store provides in-process SnapshotStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/pharma-stock/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	snap  *ledger.Snapshot
	saves int
	err   error
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a store that already holds snap.
func NewMemoryWith(snap ledger.Snapshot) *Memory {
	cp := snap.Clone()
	return &Memory{snap: &cp}
}

func (m *Memory) Load(_ context.Context) (*ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return nil, ledger.ErrSnapshotNotFound
	}
	cp := m.snap.Clone()
	return &cp, nil
}

func (m *Memory) Save(_ context.Context, snap ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := snap.Clone()
	m.snap = &cp
	m.saves++
	return nil
}

// Saves reports how many snapshots were written.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// FailWith makes every following Save return err. Pass nil to recover.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
