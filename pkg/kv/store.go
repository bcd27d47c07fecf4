package kv

import (
	"github.com/google/uuid"
)

// SessionID is an opaque handle identifying one logical client for the
// lifetime of its connection. Handles are issued by OpenSession and must be
// passed with every operation; they are never derived from the calling
// goroutine, so pooled or reused workers cannot share a transaction by
// accident.
type SessionID string

// overlayEntry is one buffered mutation in a transaction overlay: either a
// replacement value or a tombstone marking the key for deletion at commit.
type overlayEntry struct {
	value     string
	tombstone bool
}

// Store is an in-memory key-value store with per-session transactions.
//
// The committed mapping is the single source of truth once transactions
// resolve. Each session may hold at most one transaction overlay buffering
// uncommitted writes; within a transaction, the overlay shadows the committed
// store for that session only (read-your-writes), while other sessions keep
// seeing the last-committed values. A single Guard serializes every
// operation, so no operation is ever observed half-applied.
type Store struct {
	guard Guard
	data  map[string]string
	txns  map[SessionID]map[string]overlayEntry
}

// New creates an empty store protected by the default exclusive MutexGuard.
func New() *Store {
	return NewWithGuard(&MutexGuard{})
}

// NewWithGuard creates an empty store serialized by the given Guard.
func NewWithGuard(guard Guard) *Store {
	return &Store{
		guard: guard,
		data:  make(map[string]string),
		txns:  make(map[SessionID]map[string]overlayEntry),
	}
}

// OpenSession issues a fresh session handle. The handle is bound to one
// logical client and stays valid until CloseSession.
func (s *Store) OpenSession() SessionID {
	return SessionID(uuid.NewString())
}

// CloseSession releases a session handle, discarding any transaction it
// still holds. An open transaction is rolled back, never committed.
func (s *Store) CloseSession(id SessionID) {
	s.guard.Lock()
	defer s.guard.Unlock()

	delete(s.txns, id)
}

// Put inserts or overwrites a key. Inside a transaction the write is
// buffered in the session's overlay (replacing any prior entry for the key,
// including a tombstone); outside one it applies to the committed store
// immediately.
func (s *Store) Put(id SessionID, key, value string) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if overlay, active := s.txns[id]; active {
		overlay[key] = overlayEntry{value: value}
		return nil
	}
	s.data[key] = value
	return nil
}

// Get retrieves the value for a key. Inside a transaction the session's
// overlay is consulted first: a buffered value wins over the committed one,
// and a tombstone reads as ErrKeyNotFound even while the committed store
// still holds the old value. A key absent from both is ErrKeyNotFound.
func (s *Store) Get(id SessionID, key string) (string, error) {
	s.guard.Lock()
	defer s.guard.Unlock()

	if overlay, active := s.txns[id]; active {
		if entry, ok := overlay[key]; ok {
			if entry.tombstone {
				return "", ErrKeyNotFound
			}
			return entry.value, nil
		}
	}
	value, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Delete removes a key. Inside a transaction it buffers a tombstone in the
// overlay, applied as a real deletion at commit; outside one it deletes from
// the committed store directly. Deleting an absent key is an Ok no-op.
func (s *Store) Delete(id SessionID, key string) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if overlay, active := s.txns[id]; active {
		overlay[key] = overlayEntry{tombstone: true}
		return nil
	}
	delete(s.data, key)
	return nil
}

// Begin starts a transaction for the session, creating an empty overlay.
// Returns ErrTxnActive if the session already has one; the existing overlay
// is left untouched. No nesting.
func (s *Store) Begin(id SessionID) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if _, active := s.txns[id]; active {
		return ErrTxnActive
	}
	s.txns[id] = make(map[string]overlayEntry)
	return nil
}

// Commit applies every overlay entry to the committed store — tombstones
// delete the key, values overwrite it — then discards the overlay. The Guard
// is held throughout, so no other session can observe a partially-applied
// overlay. Committing an empty overlay is an Ok no-op. Returns ErrNoTxn if
// the session has no active transaction.
//
// Concurrent commits on overlapping keys are ordered by Guard acquisition:
// the later committer overwrites the earlier one's result
// (last-committer-wins, no conflict detection).
func (s *Store) Commit(id SessionID) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	overlay, active := s.txns[id]
	if !active {
		return ErrNoTxn
	}
	for key, entry := range overlay {
		if entry.tombstone {
			delete(s.data, key)
		} else {
			s.data[key] = entry.value
		}
	}
	delete(s.txns, id)
	return nil
}

// Rollback discards the session's overlay without touching the committed
// store. Returns ErrNoTxn if the session has no active transaction.
func (s *Store) Rollback(id SessionID) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if _, active := s.txns[id]; !active {
		return ErrNoTxn
	}
	delete(s.txns, id)
	return nil
}

// InTransaction reports whether the session currently holds a transaction.
func (s *Store) InTransaction(id SessionID) bool {
	s.guard.Lock()
	defer s.guard.Unlock()

	_, active := s.txns[id]
	return active
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.guard.Lock()
	defer s.guard.Unlock()

	return len(s.data)
}

// ActiveTransactions returns the number of sessions with an open transaction.
func (s *Store) ActiveTransactions() int {
	s.guard.Lock()
	defer s.guard.Unlock()

	return len(s.txns)
}

// Snapshot returns a copy of the committed mapping. Overlays are not
// included; the copy is taken under the Guard so it is a consistent
// point-in-time view.
func (s *Store) Snapshot() map[string]string {
	s.guard.Lock()
	defer s.guard.Unlock()

	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
