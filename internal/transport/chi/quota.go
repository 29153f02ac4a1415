package chi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/metrics"
	quotauc "github.com/kailas-cloud/serp/internal/usecase/quota"
)

// QuotaTracker counts requests per API key.
type QuotaTracker interface {
	Allow(ctx context.Context, apiKey string) error
	Remaining(apiKey string) quotauc.Remaining
}

// QuotaMiddleware enforces per-key request quotas. It must run after
// BearerAuthMiddleware. Requests without a key pass through, which only
// happens when authentication is disabled.
func QuotaMiddleware(tracker QuotaTracker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			key, msg := apiKeyFrom(r)
			if msg != "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := tracker.Allow(r.Context(), key); err != nil {
				var exceeded *quotauc.ExceededError
				if errors.As(err, &exceeded) {
					metrics.QuotaRejectedTotal.WithLabelValues(exceeded.Period).Inc()
					retry := math.Ceil(time.Until(exceeded.Reset).Seconds())
					w.Header().Set("Retry-After", strconv.Itoa(max(int(retry), 1)))
				}
				logger.Info("quota exceeded", zap.Error(err))
				writeError(w, http.StatusTooManyRequests, ErrorResponseCodeQuotaExceeded, err.Error())
				return
			}

			if left := tightest(tracker.Remaining(key)); left >= 0 {
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tightest returns the smallest bounded remainder, -1 if all are unlimited.
func tightest(r quotauc.Remaining) int64 {
	left := int64(-1)
	for _, v := range []int64{r.Daily, r.Weekly, r.Monthly} {
		if v >= 0 && (left < 0 || v < left) {
			left = v
		}
	}
	return left
}
