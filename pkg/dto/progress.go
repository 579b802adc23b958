package dto

import "github.com/google/uuid"

// WSEvent is a WebSocket message for real-time indexing progress.
type WSEvent struct {
	Type      string    `json:"type"` // photo_indexed, photo_no_face, photo_failed
	EventID   uuid.UUID `json:"event_id"`
	PhotoID   uuid.UUID `json:"photo_id"`
	Timestamp string    `json:"timestamp"`
}
