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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/faceindex"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/observability"
	"github.com/your-org/facegallery/internal/pipeline"
	"github.com/your-org/facegallery/internal/queue"
	"github.com/your-org/facegallery/internal/storage"
	"github.com/your-org/facegallery/internal/vision"
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

	slog.Info("starting facegallery indexer",
		"workers", cfg.Index.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

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

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL, cfg.Index.MaxAttempts)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
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

	// Embedding extractor
	extractor, err := vision.NewONNXExtractor(cfg.Vision)
	if err != nil {
		slog.Error("init extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	indexer := pipeline.NewIndexer(extractor, index, db, minioStore, producer, cfg.Index.MaxAttempts)

	slog.Info("indexing pipeline initialized")

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeIndexTasks(ctx, "photo-indexers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.IndexTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal index task", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		attempt := queue.DeliveryAttempt(msg)
		if err := indexer.Process(ctx, task, attempt); err != nil {
			return fmt.Errorf("process photo %s: %w", task.PhotoID, err)
		}

		return nil
	}, cfg.Index.WorkerCount, cfg.Index.MaxAttempts)
	if err != nil {
		slog.Error("start index task consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("indexer metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down indexer...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("indexer stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
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
