// Package middleware limits request rates per caller on the caller routes.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"escrowd/internal/ratelimit/metrics"
	"escrowd/internal/ratelimit/models"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Store admits or rejects one request against a keyed window.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuitBreaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithFallback sets the store used while the primary is failing.
func WithFallback(store Store) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary Store, reads, writes models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: newCircuitBreaker(5, 3),
		limits: map[models.EndpointClass]models.Limit{
			models.ClassRead:  reads,
			models.ClassWrite: writes,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Handler must run after the caller is resolved. Administrators are not
// limited; anonymous requests are keyed by client IP.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		caller := requestcontext.Caller(ctx)
		if caller.Admin {
			next.ServeHTTP(w, r)
			return
		}

		class := classOf(r)
		identity := "ip:" + clientIP(r)
		if !caller.Address.IsNil() {
			identity = caller.Address.String()
		}

		result, degraded, err := m.check(ctx, models.NewCallerKey(identity, class), m.limits[class])
		if err != nil {
			m.metrics.IncDecision(string(class), "error")
			m.logger.ErrorContext(ctx, "rate limit check failed", "error", err, "class", class)
			next.ServeHTTP(w, r)
			return
		}
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		addRateLimitHeaders(w, result)

		if !result.Allowed {
			m.metrics.IncDecision(string(class), "rejected")
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
			return
		}
		m.metrics.IncDecision(string(class), "allowed")
		next.ServeHTTP(w, r)
	})
}

// check consults the primary on every request, so a recovered primary closes
// the breaker. Once the breaker is open, primary errors are answered by the
// fallback.
func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool, error) {
	result, err := m.primary.Allow(ctx, key, limit)
	if err == nil {
		if m.breaker.success() == closed {
			m.metrics.SetDegraded(false)
			m.logger.InfoContext(ctx, "rate limiter recovered")
		}
		return result, false, nil
	}

	useFallback, t := m.breaker.failure()
	if t == opened {
		m.metrics.SetDegraded(true)
		m.logger.WarnContext(ctx, "rate limiter degraded, using in-process fallback", "error", err)
	}
	if !useFallback {
		return nil, false, err
	}
	if m.fallback == nil {
		return nil, true, err
	}
	result, err = m.fallback.Allow(ctx, key, limit)
	return result, true, err
}

func classOf(r *http.Request) models.EndpointClass {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return models.ClassRead
	default:
		return models.ClassWrite
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
