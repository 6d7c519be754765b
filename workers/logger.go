package workers

import (
	"context"

	"sublet_monitor/models"
	"sublet_monitor/storage"
)

// LogFunc is a function that logs to the run_logs table
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger does nothing (default)
var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}

// RecorderLogFunc files worker messages in run history under the source name.
func RecorderLogFunc(rec storage.RunRecorder) LogFunc {
	return func(level models.LogLevel, source, message string) {
		_ = rec.Log(context.Background(), source, level, message)
	}
}
