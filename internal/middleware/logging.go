package middleware

import (
	"net/http"
	"time"

	"taskflow/internal/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.status = code
		lw.wroteHeader = true
		lw.ResponseWriter.WriteHeader(code)
	}
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}

	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

func (lw *loggingWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}

func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := GetRequestID(r.Context())

			log.Debug("HTTP_IN: request started",
				logger.HTTPRequestFields(r, zap.String("request_id", requestID))...)

			lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lw, r)

			level := zapcore.InfoLevel
			if lw.status >= 400 && lw.status < 500 {
				level = zapcore.WarnLevel
			} else if lw.status >= 500 {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "HTTP_OUT: request finished",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", lw.status),
				zap.Int("bytes_written", lw.size),
				zap.Duration("ms", time.Since(start)),
			)
		})
	}
}
