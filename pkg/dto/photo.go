package dto

import "github.com/google/uuid"

type PhotoResponse struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	Filename   string    `json:"filename"`
	FaceStatus string    `json:"face_status"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  string    `json:"created_at"`
}

type PhotoListResponse struct {
	Photos []PhotoResponse `json:"photos"`
	Total  int             `json:"total"`
}

// UploadResponse acknowledges accepted photos. Indexing happens in the
// background; face_status starts as pending.
type UploadResponse struct {
	Uploaded []PhotoResponse `json:"uploaded"`
	Total    int             `json:"total"`
}
