package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/pipeline"
)

// slot is the key of the single current-pipeline row.
const slot = "current"

// PGStore implements pipeline.Store and pipeline.ToolRegistry using
// PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var (
	_ pipeline.Store        = (*PGStore)(nil)
	_ pipeline.ToolRegistry = (*PGStore)(nil)
)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
