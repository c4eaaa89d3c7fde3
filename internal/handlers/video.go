package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"momentfinder-backend/internal/metrics"
	"momentfinder-backend/internal/models"
	"momentfinder-backend/internal/repository"
	"momentfinder-backend/internal/storage"
)

const maxVideoUploadBytes = 1 << 30 // 1 GiB

// Handlers depend on narrow store interfaces rather than the concrete
// repos so request behavior is testable without postgres or MinIO. The
// repository types satisfy these.

type videoStore interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	List(ctx context.Context) ([]*models.Video, error)
	UpdateDuration(ctx context.Context, id uuid.UUID, seconds int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type screenshotStore interface {
	Create(ctx context.Context, s *models.Screenshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Screenshot, error)
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Screenshot, error)
}

type momentStore interface {
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Moment, error)
	ListByScreenshot(ctx context.Context, screenshotID uuid.UUID) ([]*models.Moment, error)
}

type VideoHandler struct {
	videoRepo      videoStore
	screenshotRepo screenshotStore
	momentRepo     momentStore
	store          storage.ObjectStore
	presignExpiry  time.Duration
}

func NewVideoHandler(
	videoRepo videoStore,
	screenshotRepo screenshotStore,
	momentRepo momentStore,
	store storage.ObjectStore,
	presignExpiry time.Duration,
) *VideoHandler {
	return &VideoHandler{
		videoRepo:      videoRepo,
		screenshotRepo: screenshotRepo,
		momentRepo:     momentRepo,
		store:          store,
		presignExpiry:  presignExpiry,
	}
}

type videoResponse struct {
	*models.Video
	URL string `json:"url"`
}

// Upload accepts a multipart video, stores the bytes, and creates a
// PENDING metadata record. Analysis does not start until a screenshot is
// submitted against the video.
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVideoUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A video file is required", r))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "File must be a video", r))
		return
	}

	// duration_seconds is optional; browsers read it off the <video>
	// element before submitting.
	var duration *int
	if raw := strings.TrimSpace(r.FormValue("duration_seconds")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "duration_seconds must be a non-negative integer", r))
			return
		}
		duration = &seconds
	}

	key, err := h.store.Upload(r.Context(), file, header.Size, header.Filename, contentType, "videos/")
	if err != nil {
		log.Printf("Video upload to storage failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to upload video to storage", r))
		return
	}

	video := &models.Video{
		OriginalFilename: header.Filename,
		StorageKey:       key,
	}
	if err := h.videoRepo.Create(r.Context(), video); err != nil {
		log.Printf("Video record creation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to create video record", r))
		return
	}

	// The record already exists, so a failed duration write is logged and
	// the upload still succeeds.
	if duration != nil {
		if err := h.videoRepo.UpdateDuration(r.Context(), video.ID, *duration); err != nil {
			log.Printf("Failed to record duration for video %s: %v", video.ID, err)
		} else {
			video.DurationSeconds = duration
		}
	}

	metrics.VideosUploaded.Inc()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Video uploaded successfully",
		"video":   video,
	})
}

// List returns every video record newest first, each with a presigned
// playback URL. Status here is the externally visible progress indicator
// clients poll while analysis runs.
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videoRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to list videos", r))
		return
	}

	items := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		items = append(items, videoResponse{
			Video: v,
			URL:   h.store.PresignedURL(r.Context(), v.StorageKey, h.presignExpiry),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  len(items),
		"videos": items,
	})
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	video, err := h.videoRepo.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to load video", r))
		return
	}

	writeJSON(w, http.StatusOK, videoResponse{
		Video: video,
		URL:   h.store.PresignedURL(r.Context(), video.StorageKey, h.presignExpiry),
	})
}

// Delete removes a video and, transactionally, its screenshots and
// moments. Stored objects are removed best effort afterwards; orphaned
// objects are preferable to a metadata delete that can fail halfway.
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	video, err := h.videoRepo.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to load video", r))
		return
	}

	screenshots, err := h.screenshotRepo.ListByVideo(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to load screenshots", r))
		return
	}

	if err := h.videoRepo.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to delete video", r))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := h.store.Remove(ctx, video.StorageKey); err != nil {
			log.Printf("Failed to remove video object %s: %v", video.StorageKey, err)
		}
		for _, s := range screenshots {
			if err := h.store.Remove(ctx, s.StorageKey); err != nil {
				log.Printf("Failed to remove screenshot object %s: %v", s.StorageKey, err)
			}
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Video deleted",
	})
}

func (h *VideoHandler) Moments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	moments, err := h.momentRepo.ListByVideo(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("DATABASE_ERROR", "Failed to list moments", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"count":   len(moments),
		"moments": moments,
	})
}

// StorageList enumerates the bucket directly, recovering original
// filenames from object metadata.
func (h *VideoHandler) StorageList(w http.ResponseWriter, r *http.Request) {
	objects, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("Storage listing failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to retrieve videos from storage", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  len(objects),
		"videos": objects,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return uuid.Nil, false
	}
	return id, true
}
