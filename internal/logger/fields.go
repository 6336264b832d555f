package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldTraceID     = "trace_id"
	FieldCandidateID = "candidate_id"
	FieldStage       = "stage"
	FieldDecision    = "decision"
	FieldAuditID     = "audit_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when
// nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// TraceFields identifies the screening a log entry belongs to.
func TraceFields(traceID, candidateID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldTraceID, Value: traceID},
		StringField{Key: FieldCandidateID, Value: candidateID},
	)
}

// WithTrace attaches the trace fields to the logger.
func WithTrace(logger *zap.Logger, traceID, candidateID string) *zap.Logger {
	return WithFields(logger, TraceFields(traceID, candidateID)...)
}

// Stage names the pipeline stage of a log entry.
func Stage(name string) zap.Field {
	return zap.String(FieldStage, name)
}
