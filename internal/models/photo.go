package models

import (
	"time"

	"github.com/google/uuid"
)

// FaceStatus tracks where a photo sits in the indexing lifecycle.
type FaceStatus string

const (
	// FaceStatusPending means the photo was uploaded but not yet processed.
	FaceStatusPending FaceStatus = "pending"
	// FaceStatusIndexed means an embedding is present in the face index.
	FaceStatusIndexed FaceStatus = "indexed"
	// FaceStatusNoFace means the extractor found no face; the photo stays
	// in the gallery but is excluded from search.
	FaceStatusNoFace FaceStatus = "no_face"
	// FaceStatusFailed means extraction kept failing until the retry
	// budget ran out; requires operator attention or a reindex.
	FaceStatusFailed FaceStatus = "failed"
)

type Photo struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	EventID    uuid.UUID  `json:"event_id" db:"event_id"`
	Filename   string     `json:"filename" db:"filename"`
	ObjectKey  string     `json:"object_key" db:"object_key"`
	FaceStatus FaceStatus `json:"face_status" db:"face_status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IndexTask is the message published to NATS for indexer processing.
type IndexTask struct {
	TaskID    uuid.UUID `json:"task_id"`
	EventID   uuid.UUID `json:"event_id"`
	PhotoID   uuid.UUID `json:"photo_id"`
	ObjectKey string    `json:"object_key"`
}

// ProgressEvent is emitted by the indexer after each processed photo so the
// API can push live progress to organizer dashboards.
type ProgressEvent struct {
	EventID   uuid.UUID  `json:"event_id"`
	PhotoID   uuid.UUID  `json:"photo_id"`
	Status    FaceStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}
