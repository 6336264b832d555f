package auditlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/screening"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"

	DefaultFilePath   = "legal_audit_log.json"
	DefaultSQLitePath = "legal_audit_log.db"
)

// Config selects the storage backend.
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// Log assigns audit identities and appends records to a store.
type Log struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New wraps a store.
func New(store Store, log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}

	return &Log{
		store:  store,
		logger: log,
		now:    time.Now,
		newID:  newAuditID,
	}
}

// Open builds the log for the configured backend.
func Open(cfg Config, log *zap.Logger) (*Log, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	path := strings.TrimSpace(cfg.Path)

	switch backend {
	case "", BackendFile:
		if path == "" {
			path = DefaultFilePath
		}
		return New(NewFileStore(path, log), log), nil
	case BackendSQLite:
		if path == "" {
			path = DefaultSQLitePath
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite audit store %s: %w", path, err)
		}
		return New(store, log), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}

// Append records the verdict and returns its audit id.
func (l *Log) Append(ctx context.Context, v *screening.Verdict, req *screening.Request) (string, error) {
	if v == nil {
		return "", fmt.Errorf("verdict is required")
	}

	rec := NewRecord(l.newID(), l.now(), v, req)
	if err := l.store.Append(ctx, rec); err != nil {
		return "", fmt.Errorf("appending audit record: %w", err)
	}

	l.logger.Info("decision logged",
		append(logger.TraceFields(rec.TraceID, rec.CandidateID),
			zap.String(logger.FieldAuditID, rec.AuditID),
			zap.String(logger.FieldDecision, string(rec.FinalVerdict)),
		)...,
	)

	return rec.AuditID, nil
}

// Records returns every record in append order.
func (l *Log) Records(ctx context.Context) ([]Record, error) {
	return l.store.List(ctx)
}

func (l *Log) Close() error {
	return l.store.Close()
}

// newAuditID returns a time ordered identifier.
func newAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return idPrefix + uuid.NewString()
	}
	return idPrefix + id.String()
}
