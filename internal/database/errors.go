package database

import "errors"

var (
	// ErrStorageUnavailable is returned when the backing store rejects a
	// write or read. Callers drop the affected event and keep serving.
	ErrStorageUnavailable = errors.New("event storage unavailable")

	// ErrLocked is returned when another process already holds the store
	// open for writing.
	ErrLocked = errors.New("event store is locked by another process")

	// ErrReadOnly is returned when Append is called on a read-only handle.
	ErrReadOnly = errors.New("event store is opened read-only")

	// ErrNotFound is returned when opening a store that does not exist
	// without CreateIfNotExists.
	ErrNotFound = errors.New("event store not found")
)
