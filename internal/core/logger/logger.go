package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName tags every entry so aggregated logs from several trackers
// stay attributable.
const serviceName = "flight-tracker"

var globalLogger *zap.Logger

// Init builds the process-wide logger. "production" emits JSON with
// ISO 8601 timestamps for ingestion; anything else emits colored console
// output for local runs. An unparseable level falls back to the profile
// default rather than failing startup.
func Init(environment string, level string) error {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if l, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(l)
	}

	built, err := config.Build()
	if err != nil {
		return err
	}

	globalLogger = tag(built)
	return nil
}

// tag attaches the service field carried by every entry.
func tag(l *zap.Logger) *zap.Logger {
	return l.With(zap.String("service", serviceName))
}

// Get returns the process-wide logger, or a no-op logger before Init so
// early callers never panic.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Sync flushes buffered entries; safe to call before Init.
func Sync() {
	if globalLogger != nil {
		globalLogger.Sync()
	}
}
