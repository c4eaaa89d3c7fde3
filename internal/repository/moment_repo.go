package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"momentfinder-backend/internal/models"
)

type MomentRepo struct {
	pool *pgxpool.Pool
}

func NewMomentRepo(pool *pgxpool.Pool) *MomentRepo {
	return &MomentRepo{pool: pool}
}

func (r *MomentRepo) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Moment, error) {
	query := `SELECT id, video_id, screenshot_id, action, start_timestamp, end_timestamp, confidence_score, thumbnail_url, created_at
		FROM character_moments WHERE video_id = $1 ORDER BY start_timestamp ASC`

	rows, err := r.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	moments := []*models.Moment{}
	for rows.Next() {
		m := &models.Moment{}
		if err := rows.Scan(
			&m.ID, &m.VideoID, &m.ScreenshotID, &m.Action,
			&m.StartTimestamp, &m.EndTimestamp, &m.ConfidenceScore,
			&m.ThumbnailURL, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		moments = append(moments, m)
	}
	return moments, rows.Err()
}

func (r *MomentRepo) ListByScreenshot(ctx context.Context, screenshotID uuid.UUID) ([]*models.Moment, error) {
	query := `SELECT id, video_id, screenshot_id, action, start_timestamp, end_timestamp, confidence_score, thumbnail_url, created_at
		FROM character_moments WHERE screenshot_id = $1 ORDER BY start_timestamp ASC`

	rows, err := r.pool.Query(ctx, query, screenshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	moments := []*models.Moment{}
	for rows.Next() {
		m := &models.Moment{}
		if err := rows.Scan(
			&m.ID, &m.VideoID, &m.ScreenshotID, &m.Action,
			&m.StartTimestamp, &m.EndTimestamp, &m.ConfidenceScore,
			&m.ThumbnailURL, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		moments = append(moments, m)
	}
	return moments, rows.Err()
}

// SaveAnalysisResults commits the terminal state of a successful analysis
// job as one atomic unit: every discovered moment, the screenshot's
// is_processed flag, and the video's COMPLETED status. Either all of it
// lands or none of it does.
func (r *MomentRepo) SaveAnalysisResults(ctx context.Context, videoID, screenshotID uuid.UUID, moments []*models.Moment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin results transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range moments {
		m.ID = uuid.New()
		m.VideoID = videoID
		m.ScreenshotID = screenshotID

		err := tx.QueryRow(ctx,
			`INSERT INTO character_moments (id, video_id, screenshot_id, action, start_timestamp, end_timestamp, confidence_score, thumbnail_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`,
			m.ID, m.VideoID, m.ScreenshotID, m.Action,
			m.StartTimestamp, m.EndTimestamp, m.ConfidenceScore, m.ThumbnailURL,
		).Scan(&m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert moment: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE video_screenshots SET is_processed = TRUE WHERE id = $1",
		screenshotID,
	); err != nil {
		return fmt.Errorf("failed to mark screenshot processed: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE videos SET status = $1, updated_at = NOW() WHERE id = $2",
		models.StatusCompleted, videoID,
	); err != nil {
		return fmt.Errorf("failed to mark video completed: %w", err)
	}

	return tx.Commit(ctx)
}
