package logger

import (
	"log/slog"
	"time"
)

// LogDuration logs how long an operation took when the returned func runs:
//
//	defer logger.LogDuration(log, "load documents")()
func LogDuration(l *slog.Logger, operation string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		l.Info("operation finished",
			"operation", operation,
			"duration_ms", elapsed.Milliseconds(),
			"duration", elapsed.String(),
		)
	}
}
