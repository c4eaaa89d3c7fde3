package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"momentfinder-backend/internal/models"
	"momentfinder-backend/internal/repository"
	"momentfinder-backend/internal/storage"
)

// ─── Fakes ───

type fakeVideoRepo struct {
	created   *models.Video
	durations map[uuid.UUID]int
}

func (f *fakeVideoRepo) Create(_ context.Context, v *models.Video) error {
	v.ID = uuid.New()
	v.Status = models.StatusPending
	f.created = v
	return nil
}

func (f *fakeVideoRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Video, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeVideoRepo) List(_ context.Context) ([]*models.Video, error) { return nil, nil }

func (f *fakeVideoRepo) UpdateDuration(_ context.Context, id uuid.UUID, seconds int) error {
	if f.durations == nil {
		f.durations = map[uuid.UUID]int{}
	}
	f.durations[id] = seconds
	return nil
}

func (f *fakeVideoRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type fakeScreenshotRepo struct {
	shots map[uuid.UUID]*models.Screenshot
}

func (f *fakeScreenshotRepo) Create(_ context.Context, s *models.Screenshot) error {
	s.ID = uuid.New()
	return nil
}

func (f *fakeScreenshotRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Screenshot, error) {
	s, ok := f.shots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeScreenshotRepo) ListByVideo(_ context.Context, _ uuid.UUID) ([]*models.Screenshot, error) {
	return nil, nil
}

type fakeMomentRepo struct {
	byShot map[uuid.UUID][]*models.Moment
}

func (f *fakeMomentRepo) ListByVideo(_ context.Context, _ uuid.UUID) ([]*models.Moment, error) {
	return nil, nil
}

func (f *fakeMomentRepo) ListByScreenshot(_ context.Context, id uuid.UUID) ([]*models.Moment, error) {
	return f.byShot[id], nil
}

type fakeObjectStore struct {
	keys []string
}

func (f *fakeObjectStore) Upload(_ context.Context, _ io.Reader, _ int64, filename, _, prefix string) (string, error) {
	key := prefix + filename
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeObjectStore) PresignedURL(_ context.Context, _ string, _ time.Duration) string {
	return ""
}

func (f *fakeObjectStore) Download(_ context.Context, _, _ string) error { return nil }

func (f *fakeObjectStore) List(_ context.Context) ([]storage.StoredObject, error) { return nil, nil }

func (f *fakeObjectStore) Remove(_ context.Context, _ string) error { return nil }

// ─── Multipart Upload Parsing ───

func buildMultipart(t *testing.T, filename, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if filename != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		io.WriteString(part, "fake-bytes")
	}

	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	return body, writer.FormDataContentType()
}

func TestVideoUpload_RequestParsing(t *testing.T) {
	body, contentType := buildMultipart(t, "clip.mp4", "video/mp4", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)

	file, header, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("failed to parse multipart file: %v", err)
	}
	defer file.Close()

	if header.Filename != "clip.mp4" {
		t.Errorf("expected filename 'clip.mp4', got %q", header.Filename)
	}
	if got := header.Header.Get("Content-Type"); got != "video/mp4" {
		t.Errorf("expected content type 'video/mp4', got %q", got)
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
		t.Error("video content-type check should accept video/mp4")
	}
}

func TestVideoUpload_RejectsNonVideoContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		isVideo     bool
	}{
		{"mp4 accepted", "video/mp4", true},
		{"webm accepted", "video/webm", true},
		{"png rejected", "image/png", false},
		{"pdf rejected", "application/pdf", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := strings.HasPrefix(tc.contentType, "video/"); got != tc.isVideo {
				t.Errorf("content type %q: expected isVideo=%v", tc.contentType, tc.isVideo)
			}
		})
	}
}

func TestScreenshotUpload_RequestParsing(t *testing.T) {
	body, contentType := buildMultipart(t, "thanos.png", "image/png", map[string]string{
		"character_name": "Thanos",
		"timestamp":      "12.3",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/abc/screenshots", body)
	req.Header.Set("Content-Type", contentType)

	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("failed to parse multipart form: %v", err)
	}

	if got := req.FormValue("character_name"); got != "Thanos" {
		t.Errorf("expected character_name 'Thanos', got %q", got)
	}
	if got := req.FormValue("timestamp"); got != "12.3" {
		t.Errorf("expected timestamp '12.3', got %q", got)
	}
}

// ─── Video Duration ───

func TestVideoUpload_RecordsDuration(t *testing.T) {
	repo := &fakeVideoRepo{}
	h := NewVideoHandler(repo, &fakeScreenshotRepo{}, &fakeMomentRepo{}, &fakeObjectStore{}, time.Hour)

	body, contentType := buildMultipart(t, "clip.mp4", "video/mp4", map[string]string{
		"duration_seconds": "95",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	h.Upload(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := repo.durations[repo.created.ID]; got != 95 {
		t.Errorf("expected duration 95 recorded, got %d", got)
	}

	var resp struct {
		Video models.Video `json:"video"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Video.DurationSeconds == nil || *resp.Video.DurationSeconds != 95 {
		t.Errorf("expected response to carry duration 95, got %v", resp.Video.DurationSeconds)
	}
}

func TestVideoUpload_DurationOptional(t *testing.T) {
	repo := &fakeVideoRepo{}
	h := NewVideoHandler(repo, &fakeScreenshotRepo{}, &fakeMomentRepo{}, &fakeObjectStore{}, time.Hour)

	body, contentType := buildMultipart(t, "clip.mp4", "video/mp4", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	h.Upload(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if len(repo.durations) != 0 {
		t.Errorf("expected no duration write when the field is omitted, got %v", repo.durations)
	}
}

func TestVideoUpload_RejectsBadDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"negative", "-5"},
		{"fractional", "12.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeVideoRepo{}
			h := NewVideoHandler(repo, &fakeScreenshotRepo{}, &fakeMomentRepo{}, &fakeObjectStore{}, time.Hour)

			body, contentType := buildMultipart(t, "clip.mp4", "video/mp4", map[string]string{
				"duration_seconds": tc.value,
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			h.Upload(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("duration %q: expected 400, got %d", tc.value, rr.Code)
			}
			if repo.created != nil {
				t.Error("no video record should be created on a validation error")
			}
		})
	}
}

// ─── Per-Screenshot Moments ───

func newScreenshotRouter(h *ScreenshotHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/videos/{id}/screenshots/{screenshotID}/moments", h.Moments)
	return r
}

func TestScreenshotMoments_ListsByScreenshot(t *testing.T) {
	videoID := uuid.New()
	shotID := uuid.New()
	otherShotID := uuid.New()

	shots := &fakeScreenshotRepo{shots: map[uuid.UUID]*models.Screenshot{
		shotID:      {ID: shotID, VideoID: videoID, CharacterName: "Thanos"},
		otherShotID: {ID: otherShotID, VideoID: videoID, CharacterName: "Rick"},
	}}
	momentRepo := &fakeMomentRepo{byShot: map[uuid.UUID][]*models.Moment{
		shotID: {
			{ID: uuid.New(), VideoID: videoID, ScreenshotID: shotID, Action: "snapping fingers", StartTimestamp: 10, EndTimestamp: 12, ConfidenceScore: 0.91},
			{ID: uuid.New(), VideoID: videoID, ScreenshotID: shotID, Action: "walking", StartTimestamp: 30, EndTimestamp: 35.5, ConfidenceScore: 0.75},
		},
		otherShotID: {
			{ID: uuid.New(), VideoID: videoID, ScreenshotID: otherShotID, Action: "portal gun", StartTimestamp: 1, EndTimestamp: 2, ConfidenceScore: 0.6},
		},
	}}
	h := NewScreenshotHandler(shots, &fakeVideoRepo{}, momentRepo, &fakeObjectStore{}, nil)

	url := fmt.Sprintf("/api/v1/videos/%s/screenshots/%s/moments", videoID, shotID)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rr := httptest.NewRecorder()
	newScreenshotRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Count   int              `json:"count"`
		Moments []*models.Moment `json:"moments"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Moments) != 2 {
		t.Fatalf("expected the 2 moments of the requested screenshot, got count=%d len=%d", resp.Count, len(resp.Moments))
	}
	for _, m := range resp.Moments {
		if m.ScreenshotID != shotID {
			t.Errorf("moment %s belongs to screenshot %s, not the requested one", m.ID, m.ScreenshotID)
		}
	}
}

func TestScreenshotMoments_UnknownScreenshot(t *testing.T) {
	h := NewScreenshotHandler(&fakeScreenshotRepo{}, &fakeVideoRepo{}, &fakeMomentRepo{}, &fakeObjectStore{}, nil)

	url := fmt.Sprintf("/api/v1/videos/%s/screenshots/%s/moments", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rr := httptest.NewRecorder()
	newScreenshotRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// ─── Error Envelope ───

func TestErrorResp_IncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp := errorResp("NOT_FOUND", "Video not found", req)

	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("expected code NOT_FOUND, got %q", resp.Error.Code)
	}
	if resp.Error.Message != "Video not found" {
		t.Errorf("expected message preserved, got %q", resp.Error.Message)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("expected request ID propagated, got %q", resp.Error.RequestID)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusAccepted, map[string]interface{}{
		"status":  "success",
		"message": "Screenshot uploaded, analysis queued",
	})

	if rr.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "success" {
		t.Errorf("expected status 'success', got %v", result["status"])
	}
}
