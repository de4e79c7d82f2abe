package storage

import "errors"

// Sentinel errors shared by every store implementation. Ledger rows are
// written once; pins are the only rows that change (AttachLaunch, Delete).
var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey reports an insert whose primary key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrInvalidInput = errors.New("invalid input")
)
