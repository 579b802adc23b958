package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/facegallery/internal/config"
	"github.com/your-org/facegallery/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying connection pool for collaborators that
// share the database (the pgvector-backed face index).
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// --- Events ---

func (s *PostgresStore) CreateEvent(ctx context.Context, ev *models.Event) error {
	ev.ID = uuid.New()
	ev.IsActive = true
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (id, name, date, address, is_active) VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		ev.ID, ev.Name, ev.Date, ev.Address, ev.IsActive,
	).Scan(&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ev := &models.Event{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, date, address, is_active, created_at, updated_at FROM events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Name, &ev.Date, &ev.Address, &ev.IsActive, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, date, address, is_active, created_at, updated_at
		 FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Date, &ev.Address, &ev.IsActive,
			&ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// DeleteEvent removes the event row. Photo rows and face_index rows
// cascade via foreign keys; object storage cleanup is the caller's job.
func (s *PostgresStore) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event not found")
	}
	return nil
}

// --- Photos ---

func (s *PostgresStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	p.ID = uuid.New()
	p.FaceStatus = models.FaceStatusPending
	err := s.pool.QueryRow(ctx,
		`INSERT INTO photos (id, event_id, filename, object_key, face_status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		p.ID, p.EventID, p.Filename, p.ObjectKey, p.FaceStatus,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, eventID, photoID uuid.UUID) (*models.Photo, error) {
	p := &models.Photo{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, event_id, filename, object_key, face_status, created_at, updated_at
		 FROM photos WHERE id = $1 AND event_id = $2`, photoID, eventID,
	).Scan(&p.ID, &p.EventID, &p.Filename, &p.ObjectKey, &p.FaceStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, filename, object_key, face_status, created_at, updated_at
		 FROM photos WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.EventID, &p.Filename, &p.ObjectKey, &p.FaceStatus,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}

func (s *PostgresStore) UpdatePhotoStatus(ctx context.Context, photoID uuid.UUID, status models.FaceStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE photos SET face_status = $1, updated_at = now() WHERE id = $2`,
		status, photoID)
	if err != nil {
		return fmt.Errorf("update photo status: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePhoto(ctx context.Context, eventID, photoID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM photos WHERE id = $1 AND event_id = $2`, photoID, eventID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo not found")
	}
	return nil
}

func (s *PostgresStore) CountPhotos(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM photos WHERE event_id = $1`, eventID,
	).Scan(&count)
	return count, err
}
