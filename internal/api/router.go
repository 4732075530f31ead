package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Jeffrey-Xu/kafka/internal/api/middleware"
)

// NewProducerRouter wires the publish endpoints. Publish routes carry
// idempotency protection when a Redis client is available.
func NewProducerRouter(h *ProducerHandlers, redisClient *redis.Client, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/messages", func(r chi.Router) {
			if redisClient != nil {
				r.Use(middleware.Idempotency(redisClient))
			}
			r.Post("/user", h.PublishUserEvent)
			r.Post("/business", h.PublishBusinessEvent)
			r.Post("/system", h.PublishSystemEvent)
			r.Post("/batch", h.PublishBatch)
		})

		r.Get("/stats", h.Stats)
		r.Post("/stats/reset", h.ResetStats)
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

// NewConsumerRouter wires the read-side endpoints.
func NewConsumerRouter(h *ConsumerHandlers, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Post("/stats/reset", h.ResetStats)
		r.Get("/messages/recent", h.RecentMessages)
		r.Get("/messages/count", h.MessageCount)
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
