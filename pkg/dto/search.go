package dto

import "github.com/google/uuid"

// SearchResult is one matched photo; Score is a cosine distance, lower
// is a closer match.
type SearchResult struct {
	PhotoID  uuid.UUID `json:"photo_id"`
	Score    float64   `json:"score"`
	ImageURL string    `json:"image_url"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}
