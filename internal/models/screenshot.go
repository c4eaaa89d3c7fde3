package models

import (
	"time"

	"github.com/google/uuid"
)

// Screenshot is a user-submitted reference crop of a character taken at a
// moment in a specific video. It is the unit of work for the analysis queue.
type Screenshot struct {
	ID            uuid.UUID `json:"id"`
	VideoID       uuid.UUID `json:"video_id"`
	CharacterName string    `json:"character_name"`
	StorageKey    string    `json:"storage_key"`
	Timestamp     float64   `json:"timestamp"`
	IsProcessed   bool      `json:"is_processed"`
	VectorID      *string   `json:"vector_id"` // reserved for embedding-based search
	CreatedAt     time.Time `json:"created_at"`
}
