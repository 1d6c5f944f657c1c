package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
)

// traceLogger adapts the platform logger to pgx's tracelog interface so
// slow or failing statements surface in the structured log stream.
type traceLogger struct {
	log logging.Logger
}

func (t traceLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]logging.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, logging.Any(k, v))
	}

	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		t.log.Debug(msg, fields...)
	case tracelog.LogLevelInfo:
		t.log.Info(msg, fields...)
	case tracelog.LogLevelWarn:
		t.log.Warn(msg, fields...)
	default:
		t.log.Error(msg, fields...)
	}
}
