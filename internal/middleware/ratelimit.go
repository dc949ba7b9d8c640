package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/ratelimit"

	"go.uber.org/zap"
)

const msgTooManyRequests = "Too many requests from this IP, please try again later."

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error)
	Reset(ctx context.Context, key string) error
}

// RateLimit allows limit requests per client IP within window. name separates
// the counters of differently configured route groups. A failing limiter lets
// the request through.
func RateLimit(limiter Limiter, name string, limit int, window time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			res, err := limiter.Allow(r.Context(), limiterKey(name, ip), limit, window)
			if err != nil {
				log.Error("HTTP: rate limit check failed",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("limiter", name),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn("HTTP: rate limit exceeded",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("limiter", name),
					zap.String("client_ip", ip),
				)
				respondError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ResetRateLimitOnSuccess clears the client's counter in the name group once
// the wrapped handler answers below 400, so only failed attempts count.
func ResetRateLimitOnSuccess(limiter Limiter, name string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lw, r)

			if lw.status >= http.StatusBadRequest {
				return
			}
			if err := limiter.Reset(r.Context(), limiterKey(name, clientIP(r))); err != nil {
				log.Warn("HTTP: rate limit reset failed",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("limiter", name),
					zap.Error(err),
				)
			}
		})
	}
}

func limiterKey(name, ip string) string {
	return name + ":" + ip
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
