package models

import (
	"time"

	"github.com/google/uuid"
)

// Moment is one AI-discovered occurrence of a character inside a video.
// Moments are created as a batch by a completed analysis job and are
// immutable afterwards.
type Moment struct {
	ID              uuid.UUID `json:"id"`
	VideoID         uuid.UUID `json:"video_id"`
	ScreenshotID    uuid.UUID `json:"screenshot_id"`
	Action          string    `json:"action"`
	StartTimestamp  float64   `json:"start_timestamp"`
	EndTimestamp    float64   `json:"end_timestamp"`
	ConfidenceScore float64   `json:"confidence_score"`
	ThumbnailURL    *string   `json:"thumbnail_url"`
	CreatedAt       time.Time `json:"created_at"`
}
