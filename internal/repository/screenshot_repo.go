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

type ScreenshotRepo struct {
	pool *pgxpool.Pool
}

func NewScreenshotRepo(pool *pgxpool.Pool) *ScreenshotRepo {
	return &ScreenshotRepo{pool: pool}
}

func (r *ScreenshotRepo) Create(ctx context.Context, s *models.Screenshot) error {
	s.ID = uuid.New()
	s.IsProcessed = false

	query := `INSERT INTO video_screenshots (id, video_id, character_name, storage_key, time_stamp, is_processed)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		s.ID, s.VideoID, s.CharacterName, s.StorageKey, s.Timestamp, s.IsProcessed,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert screenshot: %w", err)
	}
	return nil
}

func (r *ScreenshotRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Screenshot, error) {
	s := &models.Screenshot{}
	query := `SELECT id, video_id, character_name, storage_key, time_stamp, is_processed, vector_id, created_at
		FROM video_screenshots WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.VideoID, &s.CharacterName, &s.StorageKey,
		&s.Timestamp, &s.IsProcessed, &s.VectorID, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ScreenshotRepo) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Screenshot, error) {
	query := `SELECT id, video_id, character_name, storage_key, time_stamp, is_processed, vector_id, created_at
		FROM video_screenshots WHERE video_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	screenshots := []*models.Screenshot{}
	for rows.Next() {
		s := &models.Screenshot{}
		if err := rows.Scan(
			&s.ID, &s.VideoID, &s.CharacterName, &s.StorageKey,
			&s.Timestamp, &s.IsProcessed, &s.VectorID, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		screenshots = append(screenshots, s)
	}
	return screenshots, rows.Err()
}
