package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	processingTTL = 10 * time.Second
	completedTTL  = 24 * time.Hour
)

// Idempotency rejects replays of publish requests that carry an
// Idempotency-Key header. Requests without the header pass through.
func Idempotency(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := fmt.Sprintf("idempotency:%s", key)
			ctx := r.Context()

			val, err := redisClient.Get(ctx, idemKey).Result()
			if err == nil {
				w.Header().Set("X-Idempotency-Hit", "true")
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(fmt.Sprintf(`{"error": "request already processed", "state": %s}`, val)))
				return
			} else if err != redis.Nil {
				// Redis unavailable, let the request through rather
				// than failing the publish.
				next.ServeHTTP(w, r)
				return
			}

			// Short TTL on the in-progress marker so a crash cannot
			// lock the key forever.
			acquired, err := redisClient.SetNX(ctx, idemKey, `"PROCESSING"`, processingTTL).Result()
			if err != nil || !acquired {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"error": "concurrent request"}`))
				return
			}

			next.ServeHTTP(w, r)

			redisClient.Set(ctx, idemKey, `"COMPLETED"`, completedTTL)
		})
	}
}
