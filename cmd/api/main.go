package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facegallery/internal/api"
	"github.com/your-org/facegallery/internal/api/ws"
	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/observability"
	"github.com/your-org/facegallery/internal/pipeline"
	"github.com/your-org/facegallery/internal/queue"
	"github.com/your-org/facegallery/internal/storage"
	"github.com/your-org/facegallery/internal/vision"
	"github.com/your-org/facegallery/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting facegallery API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL, cfg.Index.MaxAttempts)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Face index backend
	index, err := faceindex.NewStore(cfg.Index, db.Pool())
	if err != nil {
		slog.Error("create face index store", "error", err)
		os.Exit(1)
	}

	// WebSocket hub for indexing progress
	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create progress consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeProgress(ctx, "api-progress", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.ProgressEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			return err
		}

		hub.BroadcastEvent(&dto.WSEvent{
			Type:      "photo_" + string(ev.Status),
			EventID:   ev.EventID,
			PhotoID:   ev.PhotoID,
			Timestamp: ev.Timestamp.Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		slog.Warn("start progress consumer", "error", err)
	}

	// Initialize ONNX Runtime for the selfie search endpoint
	var searcher *pipeline.Searcher

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed, selfie search will be unavailable", "error", err)
	} else {
		extractor, err := vision.NewONNXExtractor(cfg.Vision)
		if err != nil {
			slog.Warn("extractor init failed, selfie search will be unavailable", "error", err)
		} else {
			searcher = pipeline.NewSearcher(extractor, index, cfg.Search)
			defer extractor.Close()
			defer ort.DestroyEnvironment()
			slog.Info("extractor ready for selfie search")
		}
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:        cfg.Server.APIKey,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		DB:            db,
		MinIO:         minioStore,
		Producer:      producer,
		Index:         index,
		Searcher:      searcher,
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
