package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"momentfinder-backend/internal/models"
)

// ErrNotFound is returned by single-entity lookups when no row matches.
// List operations return empty slices instead.
var ErrNotFound = errors.New("record not found")

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func (r *VideoRepo) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	v.Status = models.StatusPending

	query := `INSERT INTO videos (id, original_filename, storage_key, status)
		VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		v.ID, v.OriginalFilename, v.StorageKey, v.Status,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v := &models.Video{}
	query := `SELECT id, original_filename, storage_key, duration_seconds, status, error_message, created_at, updated_at
		FROM videos WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.OriginalFilename, &v.StorageKey, &v.DurationSeconds,
		&v.Status, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VideoRepo) List(ctx context.Context) ([]*models.Video, error) {
	query := `SELECT id, original_filename, storage_key, duration_seconds, status, error_message, created_at, updated_at
		FROM videos ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []*models.Video{}
	for rows.Next() {
		v := &models.Video{}
		if err := rows.Scan(
			&v.ID, &v.OriginalFilename, &v.StorageKey, &v.DurationSeconds,
			&v.Status, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VideoStatus) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id,
	)
	return err
}

// MarkFailed records the terminal FAILED state together with the failure
// description in one statement.
func (r *VideoRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		models.StatusFailed, errMsg, id,
	)
	return err
}

func (r *VideoRepo) UpdateDuration(ctx context.Context, id uuid.UUID, seconds int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET duration_seconds = $1, updated_at = NOW() WHERE id = $2",
		seconds, id,
	)
	return err
}

// Delete removes a video together with its screenshots and moments. The
// cascade is explicit and runs in a single transaction so a partial delete
// is never observable.
func (r *VideoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM character_moments WHERE video_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete moments: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM video_screenshots WHERE video_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete screenshots: %w", err)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}
