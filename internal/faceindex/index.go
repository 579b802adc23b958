// Package faceindex holds the per-event face embedding index and the
// matcher that ranks index entries against a query embedding.
//
// The index is a derived structure: the source of truth is the set of
// photos plus the extractor, and any event's index can be rebuilt by
// re-running extraction over its photos. Each event's index is an
// independent unit of storage, so dropping an event drops its index and
// indexing work for one event never contends with another.
package faceindex

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable reports that an event's index store could not be read.
// Callers must surface it as a retryable server error; it is never
// equivalent to an empty scan.
var ErrUnavailable = errors.New("face index unavailable")

// Entry is one indexed photo: the photo identifier and the embedding of
// its primary face.
type Entry struct {
	PhotoID   uuid.UUID
	Embedding []float32
}

// Store is an event-scoped embedding index.
//
// Upsert replaces any existing embedding for the photo and creates the
// event's storage on first use; retrying with the same arguments is a
// no-op. Remove is a no-op for absent entries. Scan returns a consistent
// snapshot of all indexed entries for the event, ordered by photo ID; it
// never returns a torn embedding for an entry that completed. DropEvent
// discards the event's entire index.
type Store interface {
	Upsert(ctx context.Context, eventID, photoID uuid.UUID, embedding []float32) error
	Remove(ctx context.Context, eventID, photoID uuid.UUID) error
	Scan(ctx context.Context, eventID uuid.UUID) ([]Entry, error)
	DropEvent(ctx context.Context, eventID uuid.UUID) error
}
