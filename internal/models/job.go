package models

import (
	"github.com/google/uuid"
)

// AnalysisJob is the queue payload for one character-search run.
// It is serialized to JSON and pushed onto the redis work queue; the worker
// loads everything else it needs from the metadata store.
type AnalysisJob struct {
	ScreenshotID uuid.UUID `json:"screenshot_id"`
}

// JobStatus classifies the outcome of one analysis job run.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobNotFound  JobStatus = "not_found"
	JobFailed    JobStatus = "failed"
)

// JobResult is what an analysis job reports back to the worker loop. The
// HTTP request that enqueued the job has long since completed, so this is
// for logging and metrics only.
type JobResult struct {
	Status      JobStatus `json:"status"`
	MomentCount int       `json:"moment_count"`
	Message     string    `json:"message,omitempty"`
}

// WSMessage is the envelope broadcast to websocket clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// VideoStatusUpdate is published whenever a video changes lifecycle state.
type VideoStatusUpdate struct {
	VideoID      uuid.UUID   `json:"video_id"`
	ScreenshotID uuid.UUID   `json:"screenshot_id,omitempty"`
	Status       VideoStatus `json:"status"`
	MomentCount  int         `json:"moment_count,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
