package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/models"
	"github.com/your-org/facegallery/internal/observability"
	"github.com/your-org/facegallery/internal/queue"
	"github.com/your-org/facegallery/internal/storage"
)

// The reindexer republishes indexing tasks for photos already in the
// gallery. Use it after swapping embedding models, switching index
// backends, or to retry photos parked as failed.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	eventFlag := flag.String("event", "", "event UUID to reindex (all events when empty)")
	onlyFailed := flag.Bool("only-failed", false, "only republish photos with face_status=failed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	producer, err := queue.NewProducer(cfg.NATS.URL, cfg.Index.MaxAttempts)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	ctx := context.Background()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Error("ensure nats streams", "error", err)
		os.Exit(1)
	}

	var events []models.Event
	if *eventFlag != "" {
		eventID, err := uuid.Parse(*eventFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid event id %q: %v\n", *eventFlag, err)
			os.Exit(1)
		}
		ev, err := db.GetEvent(ctx, eventID)
		if err != nil {
			slog.Error("get event", "error", err)
			os.Exit(1)
		}
		if ev == nil {
			fmt.Fprintf(os.Stderr, "event %s not found\n", eventID)
			os.Exit(1)
		}
		events = []models.Event{*ev}
	} else {
		events, err = db.ListEvents(ctx)
		if err != nil {
			slog.Error("list events", "error", err)
			os.Exit(1)
		}
	}

	var published, skipped int
	for _, ev := range events {
		photos, err := db.ListPhotos(ctx, ev.ID)
		if err != nil {
			slog.Error("list photos", "event_id", ev.ID, "error", err)
			os.Exit(1)
		}

		for _, p := range photos {
			if *onlyFailed && p.FaceStatus != models.FaceStatusFailed {
				skipped++
				continue
			}

			if err := db.UpdatePhotoStatus(ctx, p.ID, models.FaceStatusPending); err != nil {
				slog.Error("reset photo status", "photo_id", p.ID, "error", err)
				os.Exit(1)
			}

			task := models.IndexTask{
				TaskID:    uuid.New(),
				EventID:   ev.ID,
				PhotoID:   p.ID,
				ObjectKey: p.ObjectKey,
			}
			if err := producer.PublishIndexTask(ctx, ev.ID.String(), task); err != nil {
				slog.Error("publish index task", "photo_id", p.ID, "error", err)
				os.Exit(1)
			}
			published++
		}

		slog.Info("event queued for reindexing", "event_id", ev.ID, "name", ev.Name)
	}

	slog.Info("reindex complete", "published", published, "skipped", skipped, "events", len(events))
}
