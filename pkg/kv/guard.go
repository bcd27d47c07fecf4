package kv

import "sync"

// Guard is the lock serializing every store and session-registry operation.
// The store holds it for the full duration of each operation, so all
// operations are linearizable. The interface exists so a reader-writer or
// sharded variant can be substituted without changing the operation
// contracts; exclusive acquisition is the baseline.
type Guard interface {
	Lock()
	Unlock()
}

// MutexGuard is the default Guard: a single exclusive mutex. All reads and
// writes serialize through it.
type MutexGuard struct {
	mu sync.Mutex
}

func (g *MutexGuard) Lock()   { g.mu.Lock() }
func (g *MutexGuard) Unlock() { g.mu.Unlock() }

// RWGuard is a Guard backed by a sync.RWMutex. The store acquires it
// exclusively; a sharded or reader-writer variant replaces the Guard rather
// than extending this one.
type RWGuard struct {
	mu sync.RWMutex
}

func (g *RWGuard) Lock()   { g.mu.Lock() }
func (g *RWGuard) Unlock() { g.mu.Unlock() }
