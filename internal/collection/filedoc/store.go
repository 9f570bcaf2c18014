// Package filedoc keeps the collection document in a local JSON file. The
// token is a hash of the file contents; saves hold an advisory file lock
// while they compare the token and atomically replace the file.
package filedoc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/logging"
)

const lockRetryDelay = 20 * time.Millisecond

// Store implements collection.Backend on a JSON file.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// New returns a store for the document at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("collection file path required")
	}
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewComponentLogger(logger, "file_store"),
	}, nil
}

// NewFromConfig uses store.file_path.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	return New(cfg.Store.FilePath, logger)
}

func (s *Store) Name() string { return "file" }

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads the document. Saves replace the file by rename, so a read never
// observes a partial write.
func (s *Store) Load(context.Context) (collection.Snapshot, error) {
	data, token, err := s.read()
	if err != nil {
		return collection.Snapshot{}, err
	}
	doc, err := collection.DecodeDocument(data)
	if err != nil {
		return collection.Snapshot{}, err
	}
	return collection.Snapshot{Document: doc, Token: token}, nil
}

// Save replaces the file when its current hash still equals token.
func (s *Store) Save(ctx context.Context, doc collection.Document, token, message string) (string, error) {
	data, err := collection.EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return "", fmt.Errorf("create collection directory: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("acquire collection lock: %w", err)
	}
	if !locked {
		return "", errors.New("acquire collection lock: not acquired")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release collection lock",
				logging.String(logging.FieldEventType, "file_lock_release_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the .lock file if no other process is running"),
				logging.String(logging.FieldImpact, "later saves may wait for the lock"))
		}
	}()

	_, current, err := s.read()
	if err != nil {
		return "", err
	}
	if current != token {
		return "", fmt.Errorf("%w: file changed since read", collection.ErrPreconditionFailed)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	next := hashOf(data)
	s.logger.Debug("collection saved", logging.String("message", message), logging.String("path", s.path))
	return next, nil
}

func (s *Store) read() ([]byte, string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read collection file: %w", err)
	}
	return data, hashOf(data), nil
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
