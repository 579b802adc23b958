package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/storage"
	"github.com/your-org/facegallery/pkg/dto"
)

type EventHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
	index faceindex.Store
}

func NewEventHandler(db *storage.PostgresStore, minio *storage.MinIOStore, index faceindex.Store) *EventHandler {
	return &EventHandler{db: db, minio: minio, index: index}
}

func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	ev := &models.Event{
		Name:    req.Name,
		Date:    date,
		Address: req.Address,
	}
	if err := h.db.CreateEvent(c.Request.Context(), ev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.EventResponse{
		ID:        ev.ID,
		Name:      ev.Name,
		Date:      ev.Date.Format("2006-01-02"),
		Address:   ev.Address,
		IsActive:  ev.IsActive,
		CreatedAt: ev.CreatedAt.Format(time.RFC3339),
	})
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.db.ListEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		photoCount, _ := h.db.CountPhotos(c.Request.Context(), ev.ID)
		resp = append(resp, dto.EventResponse{
			ID:         ev.ID,
			Name:       ev.Name,
			Date:       ev.Date.Format("2006-01-02"),
			Address:    ev.Address,
			IsActive:   ev.IsActive,
			PhotoCount: photoCount,
			CreatedAt:  ev.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, dto.EventListResponse{Events: resp, Total: len(resp)})
}

func (h *EventHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	photoCount, _ := h.db.CountPhotos(c.Request.Context(), id)

	c.JSON(http.StatusOK, dto.EventResponse{
		ID:         ev.ID,
		Name:       ev.Name,
		Date:       ev.Date.Format("2006-01-02"),
		Address:    ev.Address,
		IsActive:   ev.IsActive,
		PhotoCount: photoCount,
		CreatedAt:  ev.CreatedAt.Format(time.RFC3339),
	})
}

// Delete removes the event with everything derived from it: photo rows,
// stored objects, and the event's face index.
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	if err := h.db.DeleteEvent(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Derived state: log and continue, the rows are already gone and
	// both stores can be cleaned up again later.
	if err := h.index.DropEvent(c.Request.Context(), id); err != nil {
		slog.Error("drop event face index", "event_id", id, "error", err)
	}
	if err := h.minio.DeleteEventObjects(c.Request.Context(), id); err != nil {
		slog.Error("delete event objects", "event_id", id, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
