package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"momentfinder-backend/internal/handlers"
	"momentfinder-backend/internal/middleware"
	"momentfinder-backend/internal/websocket"
)

func New(
	videoHandler *handlers.VideoHandler,
	screenshotHandler *handlers.ScreenshotHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Upload rate limiter (20 req/min per IP)
	uploadLimiter := middleware.NewRateLimiter(20, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", videoHandler.List)
			r.Get("/storage", videoHandler.StorageList)

			r.Group(func(r chi.Router) {
				r.Use(uploadLimiter.Middleware)
				r.Post("/upload", videoHandler.Upload)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", videoHandler.Get)
				r.Delete("/", videoHandler.Delete)
				r.Get("/moments", videoHandler.Moments)
				r.Get("/screenshots", screenshotHandler.List)
				r.Get("/screenshots/{screenshotID}/moments", screenshotHandler.Moments)

				r.Group(func(r chi.Router) {
					r.Use(uploadLimiter.Middleware)
					r.Post("/screenshots", screenshotHandler.Upload)
				})
			})
		})

		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
