package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"momentfinder-backend/internal/ai"
	"momentfinder-backend/internal/models"
	"momentfinder-backend/internal/repository"
)

// The analyzer depends on narrow store interfaces rather than the concrete
// repos so job behavior is testable without postgres or MinIO.

type videoStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.VideoStatus) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type screenshotStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Screenshot, error)
}

type momentStore interface {
	SaveAnalysisResults(ctx context.Context, videoID, screenshotID uuid.UUID, moments []*models.Moment) error
}

type assetStore interface {
	Download(ctx context.Context, key, localPath string) error
}

// Analyzer runs one character-search job end to end: load records, drive
// the video status machine, fetch assets, invoke the engine, persist the
// results. It is the orchestrator behind the queue.
type Analyzer struct {
	videos      videoStore
	screenshots screenshotStore
	moments     momentStore
	store       assetStore
	engine      ai.Engine

	// notify, when set, receives every status transition the job commits.
	// Used to fan updates out over pub/sub; failures to notify are not
	// failures of the job.
	notify func(models.VideoStatusUpdate)
}

func NewAnalyzer(videos videoStore, screenshots screenshotStore, moments momentStore, store assetStore, engine ai.Engine, notify func(models.VideoStatusUpdate)) *Analyzer {
	return &Analyzer{
		videos:      videos,
		screenshots: screenshots,
		moments:     moments,
		store:       store,
		engine:      engine,
		notify:      notify,
	}
}

// Run executes the analysis job for one screenshot. It never returns an
// error: every outcome is folded into the JobResult, because the request
// that enqueued the job completed long ago and there is nobody to re-raise
// to.
func (a *Analyzer) Run(ctx context.Context, screenshotID uuid.UUID) models.JobResult {
	shot, err := a.screenshots.GetByID(ctx, screenshotID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.JobResult{Status: models.JobNotFound, Message: fmt.Sprintf("screenshot %s not found", screenshotID)}
	}
	if err != nil {
		return models.JobResult{Status: models.JobFailed, Message: fmt.Sprintf("failed to load screenshot %s: %v", screenshotID, err)}
	}

	video, err := a.videos.GetByID(ctx, shot.VideoID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.JobResult{Status: models.JobNotFound, Message: fmt.Sprintf("video %s not found", shot.VideoID)}
	}
	if err != nil {
		return models.JobResult{Status: models.JobFailed, Message: fmt.Sprintf("failed to load video %s: %v", shot.VideoID, err)}
	}

	// Committed before the heavy work starts so observers polling the video
	// list see progress immediately.
	if err := a.videos.UpdateStatus(ctx, video.ID, models.StatusAnalyzing); err != nil {
		return a.fail(ctx, video.ID, shot.ID, fmt.Errorf("failed to mark video analyzing: %w", err))
	}
	a.publish(models.VideoStatusUpdate{VideoID: video.ID, ScreenshotID: shot.ID, Status: models.StatusAnalyzing})

	tmpDir, err := os.MkdirTemp("", "moment-analysis-")
	if err != nil {
		return a.fail(ctx, video.ID, shot.ID, fmt.Errorf("failed to create job workspace: %w", err))
	}
	// Local copies are job-scoped: removed on every exit path.
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.Printf("Failed to clean up job workspace %s: %v", tmpDir, err)
		}
	}()

	videoPath := filepath.Join(tmpDir, "video"+filepath.Ext(video.StorageKey))
	shotPath := filepath.Join(tmpDir, "screenshot"+filepath.Ext(shot.StorageKey))

	if err := a.store.Download(ctx, video.StorageKey, videoPath); err != nil {
		return a.fail(ctx, video.ID, shot.ID, err)
	}
	if err := a.store.Download(ctx, shot.StorageKey, shotPath); err != nil {
		return a.fail(ctx, video.ID, shot.ID, err)
	}

	found, err := a.engine.FindCharacterMoments(ctx, videoPath, shotPath, shot.CharacterName)
	if err != nil {
		return a.fail(ctx, video.ID, shot.ID, err)
	}

	moments := make([]*models.Moment, 0, len(found))
	for _, f := range found {
		// Permissive batch policy: a missing action or score defaults
		// instead of failing the whole job.
		action := f.Action
		if action == "" {
			action = "unknown"
		}
		moments = append(moments, &models.Moment{
			Action:          action,
			StartTimestamp:  f.StartTimestamp,
			EndTimestamp:    f.EndTimestamp,
			ConfidenceScore: f.ConfidenceScore,
		})
	}

	if err := a.moments.SaveAnalysisResults(ctx, video.ID, shot.ID, moments); err != nil {
		return a.fail(ctx, video.ID, shot.ID, err)
	}

	a.publish(models.VideoStatusUpdate{
		VideoID:      video.ID,
		ScreenshotID: shot.ID,
		Status:       models.StatusCompleted,
		MomentCount:  len(moments),
	})

	return models.JobResult{Status: models.JobSucceeded, MomentCount: len(moments)}
}

// fail converges every failure kind onto the same terminal effect: the
// video is marked FAILED with the failure's description. The status update
// itself is best effort; if it cannot be committed the error is only
// logged, leaving the video in ANALYZING. When the ANALYZING commit itself
// failed, this writes FAILED straight from PENDING, outside the
// transitions VideoStatus.CanTransitionTo defines.
func (a *Analyzer) fail(ctx context.Context, videoID, screenshotID uuid.UUID, cause error) models.JobResult {
	log.Printf("Analysis job for screenshot %s failed: %v", screenshotID, cause)

	if err := a.videos.MarkFailed(ctx, videoID, cause.Error()); err != nil {
		log.Printf("Failed to record FAILED status for video %s: %v", videoID, err)
	} else {
		a.publish(models.VideoStatusUpdate{
			VideoID:      videoID,
			ScreenshotID: screenshotID,
			Status:       models.StatusFailed,
			ErrorMessage: cause.Error(),
		})
	}

	return models.JobResult{Status: models.JobFailed, Message: cause.Error()}
}

func (a *Analyzer) publish(update models.VideoStatusUpdate) {
	if a.notify != nil {
		a.notify(update)
	}
}
