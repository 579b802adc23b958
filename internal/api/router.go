package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/facegallery/internal/api/handlers"
	"github.com/your-org/facegallery/internal/api/ws"
	"github.com/your-org/facegallery/internal/auth"
	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/pipeline"
	"github.com/your-org/facegallery/internal/queue"
	"github.com/your-org/facegallery/internal/storage"
)

type RouterConfig struct {
	APIKey        string
	MaxUploadSize int64
	DB            *storage.PostgresStore
	MinIO         *storage.MinIOStore
	Producer      *queue.Producer
	Index         faceindex.Store
	Searcher      *pipeline.Searcher
	Hub           *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket indexing progress
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Events
	eventH := handlers.NewEventHandler(cfg.DB, cfg.MinIO, cfg.Index)
	v1.POST("/events", eventH.Create)
	v1.GET("/events", eventH.List)
	v1.GET("/events/:id", eventH.Get)
	v1.DELETE("/events/:id", eventH.Delete)

	// Photos
	photoH := handlers.NewPhotoHandler(cfg.DB, cfg.MinIO, cfg.Producer, cfg.Index, cfg.MaxUploadSize)
	v1.POST("/events/:id/photos", photoH.Upload)
	v1.GET("/events/:id/photos", photoH.List)
	v1.GET("/events/:id/photos/:photoId/image", photoH.Image)
	v1.DELETE("/events/:id/photos/:photoId", photoH.Delete)

	// Selfie search
	searchH := handlers.NewSearchHandler(cfg.DB, cfg.Searcher, cfg.MaxUploadSize)
	v1.POST("/events/:id/search", searchH.Search)

	return r
}
