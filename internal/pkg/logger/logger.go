package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with compliance-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	EntityIDKey  ContextKey = "entity_id"
	TraceIDKey   ContextKey = "trace_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// Nop returns a logger that discards everything; used in tests.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if entityID, ok := ctx.Value(EntityIDKey).(string); ok && entityID != "" {
		fields = append(fields, zap.String("entity_id", entityID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithEvent returns a logger with event context
func (l *Logger) WithEvent(eventID, entityID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("event_id", eventID),
			zap.String("entity_id", entityID),
		),
		serviceName: l.serviceName,
	}
}

// ScreeningStarted logs the start of a screening operation
func (l *Logger) ScreeningStarted(screeningID, entityID string) {
	l.Info("screening started",
		zap.String("screening_id", screeningID),
		zap.String("entity_id", entityID),
	)
}

// ScreeningCompleted logs the completion of a screening operation
func (l *Logger) ScreeningCompleted(screeningID string, matches int, riskLevel string, durationMs int64) {
	l.Info("screening completed",
		zap.String("screening_id", screeningID),
		zap.Int("matches", matches),
		zap.String("risk_level", riskLevel),
		zap.Int64("duration_ms", durationMs),
	)
}

// SourceFailed logs a list source that could not be queried in time
func (l *Logger) SourceFailed(source string, err error) {
	l.Warn("list source failed",
		zap.String("source", source),
		zap.Error(err),
	)
}

// FailSecure logs a screening that fell back to the assume-sanctioned path
func (l *Logger) FailSecure(screeningID string, failedSources []string) {
	l.Error("all list sources failed, failing secure",
		zap.String("screening_id", screeningID),
		zap.Strings("failed_sources", failedSources),
	)
}

// ViolationDetected logs a fired AML rule
func (l *Logger) ViolationDetected(entityID, ruleType, severity string) {
	l.Warn("rule violation detected",
		zap.String("entity_id", entityID),
		zap.String("rule_type", ruleType),
		zap.String("severity", severity),
	)
}

// VerdictIssued logs the final compliance verdict for an event
func (l *Logger) VerdictIssued(eventID, decision string, riskScore float64, sarRequired bool) {
	l.Info("verdict issued",
		zap.String("event_id", eventID),
		zap.String("decision", decision),
		zap.Float64("risk_score", riskScore),
		zap.Bool("sar_required", sarRequired),
	)
}

// DuplicateEvent logs an event skipped by the idempotency guard
func (l *Logger) DuplicateEvent(key string) {
	l.Debug("duplicate event skipped",
		zap.String("idempotency_key", key),
	)
}

// ListRefreshed logs a completed watchlist refresh
func (l *Logger) ListRefreshed(source string, entries int) {
	l.Info("watchlist refreshed",
		zap.String("source", source),
		zap.Int("entries", entries),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}
