package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for operations on unknown record ids.
	ErrNotFound = errors.New("face record not found")

	// ErrUnassigned is returned when verifying a record with no person assigned.
	ErrUnassigned = errors.New("record has no person assigned")
)

// InvalidEmbeddingError rejects malformed embeddings before they can enter
// the store or the index.
type InvalidEmbeddingError struct {
	Expected int
	Actual   int
	Reason   string
}

func (e *InvalidEmbeddingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid embedding: %s", e.Reason)
	}
	return fmt.Sprintf("invalid embedding: expected %d dimensions, got %d", e.Expected, e.Actual)
}

// DuplicateIDError indicates an insert for an id already live in the index.
// This is a programmer error: the store and index are out of sync.
type DuplicateIDError struct {
	ID int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate record id %d in similarity index", e.ID)
}

// StaleWriteError is an expected concurrency conflict: the record's
// assignment state no longer matches what the caller observed. Callers
// should re-fetch and retry instead of overwriting.
type StaleWriteError struct {
	ID int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write for record %d: assignment state changed", e.ID)
}
