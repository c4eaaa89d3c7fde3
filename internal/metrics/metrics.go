package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentfinder_videos_uploaded_total",
		Help: "Number of videos accepted for analysis.",
	})

	ScreenshotsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentfinder_screenshots_submitted_total",
		Help: "Number of character reference crops submitted.",
	})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentfinder_analysis_jobs_total",
		Help: "Analysis jobs processed by the worker pool, by outcome.",
	}, []string{"status"})

	MomentsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentfinder_moments_discovered_total",
		Help: "Character moments persisted by completed jobs.",
	})
)
