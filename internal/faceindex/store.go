package faceindex

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/facegallery/internal/config"
)

// NewStore builds the configured index backend. pool may be nil when
// the file backend is selected.
func NewStore(cfg config.IndexConfig, pool *pgxpool.Pool) (Store, error) {
	switch cfg.Backend {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("postgres index backend requires a database connection")
		}
		return NewPostgresStore(pool), nil
	case "file":
		return NewFileStore(cfg.FileRoot)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
