package dto

import "github.com/google/uuid"

type CreateEventRequest struct {
	Name    string `json:"name" binding:"required"`
	Date    string `json:"date" binding:"required"`
	Address string `json:"address" binding:"required"`
}

type EventResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Date       string    `json:"date"`
	Address    string    `json:"address"`
	IsActive   bool      `json:"is_active"`
	PhotoCount int       `json:"photo_count"`
	CreatedAt  string    `json:"created_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}
