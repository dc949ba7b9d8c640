package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006/01/02 15:04:05"

// SlowOperation is the threshold after which store calls are logged as slow.
const SlowOperation = 100 * time.Millisecond

func New(development bool) (*zap.Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)

	return config.Build()
}

func HTTPRequestFields(r *http.Request, fields ...zap.Field) []zap.Field {
	allFields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("client_ip", r.RemoteAddr),
	}
	return append(allFields, fields...)
}

// WarnIfSlow logs op at warn level when it took longer than SlowOperation.
func WarnIfSlow(log *zap.Logger, op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > SlowOperation {
		log.Warn("Repository: slow operation", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
