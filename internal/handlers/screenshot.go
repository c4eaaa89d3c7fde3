package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"momentfinder-backend/internal/metrics"
	"momentfinder-backend/internal/models"
	"momentfinder-backend/internal/repository"
	"momentfinder-backend/internal/storage"
	"momentfinder-backend/internal/worker"
)

const maxScreenshotUploadBytes = 20 << 20 // 20 MiB

type ScreenshotHandler struct {
	screenshotRepo screenshotStore
	videoRepo      videoStore
	momentRepo     momentStore
	store          storage.ObjectStore
	redis          *redis.Client
}

func NewScreenshotHandler(
	screenshotRepo screenshotStore,
	videoRepo videoStore,
	momentRepo momentStore,
	store storage.ObjectStore,
	redisClient *redis.Client,
) *ScreenshotHandler {
	return &ScreenshotHandler{
		screenshotRepo: screenshotRepo,
		videoRepo:      videoRepo,
		momentRepo:     momentRepo,
		store:          store,
		redis:          redisClient,
	}
}

// Upload accepts a character reference crop for a video and enqueues the
// analysis job. The response is an acknowledgement only; the job runs on
// the worker pool after this request has completed.
func (h *ScreenshotHandler) Upload(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseID(w, r)
	if !ok {
		return
	}

	video, err := h.videoRepo.GetByID(r.Context(), videoID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to load video", r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxScreenshotUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A screenshot file is required", r))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "File must be an image", r))
		return
	}

	characterName := strings.TrimSpace(r.FormValue("character_name"))
	if characterName == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "character_name is required", r))
		return
	}

	timestamp, err := strconv.ParseFloat(r.FormValue("timestamp"), 64)
	if err != nil || timestamp < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "timestamp must be a non-negative number of seconds", r))
		return
	}

	prefix := fmt.Sprintf("videos/%s/screenshots/", video.ID)
	key, err := h.store.Upload(r.Context(), file, header.Size, header.Filename, contentType, prefix)
	if err != nil {
		log.Printf("Screenshot upload to storage failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to upload screenshot to storage", r))
		return
	}

	shot := &models.Screenshot{
		VideoID:       video.ID,
		CharacterName: characterName,
		StorageKey:    key,
		Timestamp:     timestamp,
	}
	if err := h.screenshotRepo.Create(r.Context(), shot); err != nil {
		log.Printf("Screenshot record creation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to create screenshot record", r))
		return
	}

	metrics.ScreenshotsSubmitted.Inc()

	// Fire and forget: the caller gets the acknowledgement now and polls
	// video status (or watches the websocket stream) for the outcome.
	payload, _ := json.Marshal(models.AnalysisJob{ScreenshotID: shot.ID})
	if err := h.redis.LPush(r.Context(), worker.QueueCharacterSearch, string(payload)).Err(); err != nil {
		log.Printf("Failed to enqueue analysis job for screenshot %s: %v", shot.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("QUEUE_ERROR", "Failed to enqueue analysis job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":     "success",
		"message":    "Screenshot uploaded, analysis queued",
		"screenshot": shot,
	})
}

func (h *ScreenshotHandler) List(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseID(w, r)
	if !ok {
		return
	}

	screenshots, err := h.screenshotRepo.ListByVideo(r.Context(), videoID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to list screenshots", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"count":       len(screenshots),
		"screenshots": screenshots,
	})
}

// Moments returns the moments one reference screenshot produced, as
// opposed to the video-level listing that merges every screenshot's
// results.
func (h *ScreenshotHandler) Moments(w http.ResponseWriter, r *http.Request) {
	shotID, err := uuid.Parse(chi.URLParam(r, "screenshotID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid screenshot ID", r))
		return
	}

	shot, err := h.screenshotRepo.GetByID(r.Context(), shotID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Screenshot not found", r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to load screenshot", r))
		return
	}

	moments, err := h.momentRepo.ListByScreenshot(r.Context(), shot.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to list moments", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"screenshot_id": shot.ID,
		"count":         len(moments),
		"moments":       moments,
	})
}
