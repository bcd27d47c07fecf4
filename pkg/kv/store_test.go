package kv

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestPutGet(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Put(session, "user1", "alice"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, err := store.Get(session, "user1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "alice" {
		t.Errorf("Expected 'alice', got %q", value)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if _, err := store.Get(session, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := New()
	session := store.OpenSession()

	// Deleting a key that never existed succeeds
	if err := store.Delete(session, "ghost"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}

	if err := store.Put(session, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(session, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(session, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestTransactionIsolation(t *testing.T) {
	store := New()
	sessionA := store.OpenSession()
	sessionB := store.OpenSession()

	if err := store.Begin(sessionA); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Put(sessionA, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Session A sees its own buffered write
	value, err := store.Get(sessionA, "k")
	if err != nil {
		t.Fatalf("Get in own transaction failed: %v", err)
	}
	if value != "v" {
		t.Errorf("Expected 'v' inside transaction, got %q", value)
	}

	// Session B must not see it until commit
	if _, err := store.Get(sessionB, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound for other session, got %v", err)
	}

	if err := store.Commit(sessionA); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// After commit everyone sees the value
	value, err = store.Get(sessionB, "k")
	if err != nil {
		t.Fatalf("Get after commit failed: %v", err)
	}
	if value != "v" {
		t.Errorf("Expected 'v' after commit, got %q", value)
	}
}

func TestGetFallsThroughToCommittedStore(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Put(session, "base", "v0"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// A key absent from the overlay reads the committed value
	value, err := store.Get(session, "base")
	if err != nil {
		t.Fatalf("Get of committed key inside transaction failed: %v", err)
	}
	if value != "v0" {
		t.Errorf("Expected committed 'v0' through empty overlay, got %q", value)
	}

	// A key absent from both overlay and store is not found
	if _, err := store.Get(session, "never"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound for unknown key inside transaction, got %v", err)
	}
}

func TestActiveTransactionSeesLaterCommits(t *testing.T) {
	store := New()
	sessionA := store.OpenSession()
	sessionB := store.OpenSession()

	if err := store.Begin(sessionA); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := store.Get(sessionA, "mid"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Expected ErrKeyNotFound before B commits, got %v", err)
	}

	// B commits while A's transaction is still open
	if err := store.Begin(sessionB); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Put(sessionB, "mid", "fromB"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Commit(sessionB); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// No snapshot: A's successive reads observe B's committed value
	value, err := store.Get(sessionA, "mid")
	if err != nil {
		t.Fatalf("Get after B's commit failed: %v", err)
	}
	if value != "fromB" {
		t.Errorf("Expected A to read committed 'fromB', got %q", value)
	}
}

func TestRollbackDiscardsOverlay(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Put(session, "k", "v0"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Put(session, "k", "v1"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Rollback(session); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	value, err := store.Get(session, "k")
	if err != nil {
		t.Fatalf("Get after rollback failed: %v", err)
	}
	if value != "v0" {
		t.Errorf("Expected committed value 'v0' after rollback, got %q", value)
	}
}

func TestRollbackEmptyOverlay(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Put(session, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Rollback(session); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	// Rollback never mutates the committed store
	value, err := store.Get(session, "k")
	if err != nil || value != "v" {
		t.Errorf("Expected 'v' untouched, got %q, %v", value, err)
	}
}

func TestCommitEmptyOverlay(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Commit(session); err != nil {
		t.Errorf("Commit of empty overlay should succeed, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d keys", store.Len())
	}
}

func TestBeginWhileActive(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Put(session, "k", "buffered"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Begin(session); !errors.Is(err, ErrTxnActive) {
		t.Errorf("Expected ErrTxnActive, got %v", err)
	}

	// The original overlay must be untouched
	value, err := store.Get(session, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "buffered" {
		t.Errorf("Expected buffered write to survive, got %q", value)
	}
}

func TestCommitRollbackWithoutTransaction(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Commit(session); !errors.Is(err, ErrNoTxn) {
		t.Errorf("Expected ErrNoTxn from Commit, got %v", err)
	}
	if err := store.Rollback(session); !errors.Is(err, ErrNoTxn) {
		t.Errorf("Expected ErrNoTxn from Rollback, got %v", err)
	}
}

func TestTombstoneShadowsCommittedValue(t *testing.T) {
	store := New()
	sessionA := store.OpenSession()
	sessionB := store.OpenSession()

	if err := store.Put(sessionA, "k", "v0"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Begin(sessionA); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Delete(sessionA, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Inside the transaction the tombstone reads as not-found even though
	// the committed store still holds v0
	if _, err := store.Get(sessionA, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound for tombstoned key, got %v", err)
	}

	// Other sessions still see the committed value
	value, err := store.Get(sessionB, "k")
	if err != nil || value != "v0" {
		t.Errorf("Expected 'v0' for other session, got %q, %v", value, err)
	}

	if err := store.Commit(sessionA); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// After commit the deletion is visible everywhere
	if _, err := store.Get(sessionB, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound after committed delete, got %v", err)
	}
}

func TestPutReplacesTombstoneInOverlay(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Delete(session, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Put(session, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, err := store.Get(session, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "v" {
		t.Errorf("Expected put to replace tombstone, got %q", value)
	}
}

func TestCloseSessionDiscardsTransaction(t *testing.T) {
	store := New()
	session := store.OpenSession()

	if err := store.Begin(session); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Put(session, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	store.CloseSession(session)

	if store.ActiveTransactions() != 0 {
		t.Errorf("Expected no active transactions after close, got %d", store.ActiveTransactions())
	}
	// The buffered write must not have been committed
	other := store.OpenSession()
	if _, err := store.Get(other, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound after session close, got %v", err)
	}
}

func TestConcurrentCommitsOnDisjointKeys(t *testing.T) {
	store := New()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()

			session := store.OpenSession()
			defer store.CloseSession(session)

			key := fmt.Sprintf("key_%d", n)
			value := fmt.Sprintf("value_%d", n)

			if err := store.Begin(session); err != nil {
				t.Errorf("Begin failed: %v", err)
				return
			}
			if err := store.Put(session, key, value); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
			if err := store.Commit(session); err != nil {
				t.Errorf("Commit failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != workers {
		t.Fatalf("Expected %d committed keys, got %d", workers, store.Len())
	}

	checker := store.OpenSession()
	for i := 0; i < workers; i++ {
		key := fmt.Sprintf("key_%d", i)
		want := fmt.Sprintf("value_%d", i)
		got, err := store.Get(checker, key)
		if err != nil {
			t.Errorf("Get %s failed: %v", key, err)
			continue
		}
		if got != want {
			t.Errorf("Key %s: expected %q, got %q", key, want, got)
		}
	}
}

func TestConcurrentCommitsOverlappingKey(t *testing.T) {
	store := New()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()

			session := store.OpenSession()
			if err := store.Begin(session); err != nil {
				t.Errorf("Begin failed: %v", err)
				return
			}
			if err := store.Put(session, "shared", fmt.Sprintf("writer_%d", n)); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
			if err := store.Commit(session); err != nil {
				t.Errorf("Commit failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Last committer wins; the value must be one of the writers' values,
	// never a torn or absent result
	session := store.OpenSession()
	value, err := store.Get(session, "shared")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	found := false
	for i := 0; i < workers; i++ {
		if value == fmt.Sprintf("writer_%d", i) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Final value %q is not any writer's value", value)
	}
}

func TestStoreWithRWGuard(t *testing.T) {
	store := NewWithGuard(&RWGuard{})
	session := store.OpenSession()

	if err := store.Put(session, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, err := store.Get(session, "k")
	if err != nil || value != "v" {
		t.Errorf("Expected 'v' with RWGuard, got %q, %v", value, err)
	}
}

func TestSessionHandlesAreUnique(t *testing.T) {
	store := New()
	seen := make(map[SessionID]bool)
	for i := 0; i < 100; i++ {
		id := store.OpenSession()
		if seen[id] {
			t.Fatalf("Duplicate session handle issued: %s", id)
		}
		seen[id] = true
	}
}
