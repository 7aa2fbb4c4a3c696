// Package middleware throttles route classes per client IP.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"studentreg/internal/ratelimit/models"
	dErrors "studentreg/pkg/domain-errors"
	"studentreg/pkg/platform/httputil"
	"studentreg/pkg/platform/middleware/request"
	"studentreg/pkg/requestcontext"
)

// Limiter is a sliding-window counter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (models.Result, error)
}

var rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studentreg_ratelimit_rejections_total",
	Help: "Requests refused by the per-IP rate limiter",
}, []string{"class"})

type Middleware struct {
	limiter  Limiter
	limits   map[models.Class]models.Limit
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithLimit sets the budget for class.
func WithLimit(class models.Class, limit models.Limit) Option {
	return func(m *Middleware) {
		m.limits[class] = limit
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		limits:  map[models.Class]models.Limit{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit admits requests of class while the caller's IP has budget left.
// A nil Middleware, a disabled one, or a class without a limit passes
// everything. Limiter errors fail open.
func (m *Middleware) RateLimit(class models.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.disabled {
			return next
		}
		limit, ok := m.limits[class]
		if !ok || limit.Requests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = "unknown"
			}

			result, err := m.limiter.Allow(ctx, string(class)+":"+ip, limit.Requests, limit.Window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"request_id", request.GetRequestID(ctx),
					"class", class,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				rejections.WithLabelValues(string(class)).Inc()
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", request.GetRequestID(ctx),
					"class", class,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
