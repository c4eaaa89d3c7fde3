package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus is the lifecycle of an uploaded video through the analysis pipeline.
type VideoStatus string

const (
	StatusPending VideoStatus = "PENDING"
	// StatusExtracting is reserved for a future frame-extraction phase.
	StatusExtracting VideoStatus = "EXTRACTING"
	StatusAnalyzing  VideoStatus = "ANALYZING"
	StatusCompleted  VideoStatus = "COMPLETED"
	StatusFailed     VideoStatus = "FAILED"
)

func (s VideoStatus) Valid() bool {
	switch s {
	case StatusPending, StatusExtracting, StatusAnalyzing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined out of s.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the pipeline defines a transition from s to next.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAnalyzing
	case StatusAnalyzing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

type Video struct {
	ID               uuid.UUID   `json:"id"`
	OriginalFilename string      `json:"original_filename"`
	StorageKey       string      `json:"storage_key"`
	DurationSeconds  *int        `json:"duration_seconds"`
	Status           VideoStatus `json:"status"`
	ErrorMessage     *string     `json:"error_message"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
