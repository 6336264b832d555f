package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/screening"
)

// FileStore keeps the trail as a single JSON array. Every append rewrites the
// file through a temporary sibling and a rename, so readers never observe a
// partially written array.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates a store backed by path. The file is created on the
// first append.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileStore{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

func (s *FileStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		var corrupt *screening.StorageCorruption
		if !errors.As(err, &corrupt) {
			return err
		}

		backup, berr := s.preserve()
		if berr != nil {
			return fmt.Errorf("preserving unreadable audit file: %w", berr)
		}

		s.logger.Warn("audit file is unreadable, starting a fresh one",
			zap.String("path", s.path),
			zap.String("backup", backup),
			zap.Error(corrupt.Err),
		)
		records = nil
	}

	records = append(records, rec)

	return s.write(records)
}

func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &screening.StorageCorruption{Path: s.path, Err: err}
	}
	if records == nil {
		records = []Record{}
	}

	return records, nil
}

// preserve moves the unreadable file aside so no evidence is lost.
func (s *FileStore) preserve() (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

func (s *FileStore) write(records []Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
