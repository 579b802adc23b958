package faceindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists index entries in a face_index table with a
// pgvector embedding column, one row per photo. Row-level atomicity
// gives torn-write-free scans; the unique (event_id, photo_id) key makes
// Upsert last-writer-wins under concurrent retries.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Upsert(ctx context.Context, eventID, photoID uuid.UUID, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO face_index (event_id, photo_id, embedding)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id, photo_id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()`,
		eventID, photoID, vec)
	if err != nil {
		return fmt.Errorf("upsert index entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, eventID, photoID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM face_index WHERE event_id = $1 AND photo_id = $2`, eventID, photoID)
	if err != nil {
		return fmt.Errorf("remove index entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Scan(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT photo_id, embedding FROM face_index WHERE event_id = $1 ORDER BY photo_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var vec pgvector.Vector
		if err := rows.Scan(&e.PhotoID, &vec); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", ErrUnavailable, err)
		}
		e.Embedding = vec.Slice()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return entries, nil
}

func (s *PostgresStore) DropEvent(ctx context.Context, eventID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM face_index WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("drop event index: %w", err)
	}
	return nil
}
