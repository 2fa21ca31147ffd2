package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/sunglasses/internal/progress"
)

// ProgressRepository stores progress blobs in the progress_blobs table.
type ProgressRepository struct {
	pool *Pool
}

// NewProgressRepository creates a repository on pool.
func NewProgressRepository(pool *Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Get returns the blob for key, or progress.ErrNotFound.
func (r *ProgressRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.pool.db.QueryRowContext(ctx, `SELECT data FROM progress_blobs WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return data, nil
}

// Put upserts the blob for key.
func (r *ProgressRepository) Put(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO progress_blobs (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.pool.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
