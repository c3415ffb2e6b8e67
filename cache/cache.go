/*
Package cache stores balance checkpoints outside the ledger itself.

A checkpoint is an optimization artifact, never a source of truth: losing
the cache only means the next query replays from scratch, and a stale
entry is caught by ledger.Checkpoint.Verify. That makes a TTL'd key-value
store (Redis in production, an in-process map in tests) the right shape.
*/
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// CheckpointCache persists per-customer balance checkpoints.
type CheckpointCache interface {
	// Get returns the customer's checkpoint and whether one exists.
	Get(ctx context.Context, id ledger.CustomerID) (*ledger.Checkpoint, bool, error)

	// Set stores a checkpoint with the given TTL (0 = no expiry).
	Set(ctx context.Context, cp ledger.Checkpoint, ttl time.Duration) error

	// Delete invalidates the customer's checkpoint. Required after an
	// undo, which retroactively changes prefix balances.
	Delete(ctx context.Context, id ledger.CustomerID) error
}

// =============================================================================
// MEMORY CACHE
// =============================================================================

// MemoryCheckpointCache is a process-local CheckpointCache for tests and
// single-node deployments without Redis.
type MemoryCheckpointCache struct {
	mu      sync.RWMutex
	entries map[ledger.CustomerID]memoryEntry
}

type memoryEntry struct {
	cp        ledger.Checkpoint
	expiresAt time.Time // zero = no expiry
}

func NewMemoryCheckpointCache() *MemoryCheckpointCache {
	return &MemoryCheckpointCache{entries: make(map[ledger.CustomerID]memoryEntry)}
}

func (c *MemoryCheckpointCache) Get(_ context.Context, id ledger.CustomerID) (*ledger.Checkpoint, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	cp := e.cp
	return &cp, true, nil
}

func (c *MemoryCheckpointCache) Set(_ context.Context, cp ledger.Checkpoint, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{cp: cp}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[cp.CustomerID] = e
	return nil
}

func (c *MemoryCheckpointCache) Delete(_ context.Context, id ledger.CustomerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}
