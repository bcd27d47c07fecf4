package kv

import "errors"

var (
	// ErrKeyNotFound is returned when a key exists in neither the session's
	// overlay nor the committed store
	ErrKeyNotFound = errors.New("key not found")

	// ErrTxnActive is returned by Begin when the session already has an
	// active transaction
	ErrTxnActive = errors.New("transaction already active")

	// ErrNoTxn is returned by Commit or Rollback when the session has no
	// active transaction
	ErrNoTxn = errors.New("no active transaction")
)
