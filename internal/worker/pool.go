package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"momentfinder-backend/internal/metrics"
	"momentfinder-backend/internal/models"
)

const (
	// QueueCharacterSearch is the redis list the API pushes analysis jobs
	// onto and the pool pops from.
	QueueCharacterSearch = "queue:character-search"

	// UpdatesChannel carries video status transitions to the websocket hub.
	UpdatesChannel = "video_updates"

	jobLockTTL = 15 * time.Minute
)

// Pool consumes analysis jobs from redis and runs them on a fixed number
// of goroutines. Delivery is at-least-once: a job that is popped but not
// finished (worker crash) is lost unless the producer re-enqueues it, and
// a redelivered screenshot ID re-runs the whole job.
type Pool struct {
	redis       *redis.Client
	analyzer    *Analyzer
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, analyzer *Analyzer, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		analyzer:    analyzer,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d analysis workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with a timeout so the stop channel is rechecked regularly.
		result, err := p.redis.BLPop(ctx, 30*time.Second, QueueCharacterSearch).Result()
		if err != nil {
			continue // timeout or transient error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.AnalysisJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job payload: %v", id, err)
			continue
		}

		// Per-screenshot lock keeps two workers from racing on the same
		// job when a payload is delivered twice.
		lockKey := fmt.Sprintf("job_lock:%s", job.ScreenshotID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", jobLockTTL).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: analyzing screenshot %s", id, job.ScreenshotID)

		res := p.analyzer.Run(ctx, job.ScreenshotID)
		metrics.JobsProcessed.WithLabelValues(string(res.Status)).Inc()

		switch res.Status {
		case models.JobSucceeded:
			metrics.MomentsDiscovered.Add(float64(res.MomentCount))
			log.Printf("Worker %d: screenshot %s completed with %d moments", id, job.ScreenshotID, res.MomentCount)
		case models.JobNotFound:
			log.Printf("Worker %d: dropping job: %s", id, res.Message)
		case models.JobFailed:
			log.Printf("Worker %d: screenshot %s failed: %s", id, job.ScreenshotID, res.Message)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// PublishUpdate broadcasts a status transition on the updates channel so
// connected websocket clients see progress without polling.
func PublishUpdate(ctx context.Context, redisClient *redis.Client, update models.VideoStatusUpdate) {
	data, err := encodeUpdate(update)
	if err != nil {
		log.Printf("Failed to encode status update for video %s: %v", update.VideoID, err)
		return
	}
	redisClient.Publish(ctx, UpdatesChannel, string(data))
}

func encodeUpdate(update models.VideoStatusUpdate) ([]byte, error) {
	return json.Marshal(models.WSMessage{Type: "video_status", Payload: update})
}
