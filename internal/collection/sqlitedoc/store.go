// Package sqlitedoc keeps the collection document in a SQLite database. Each
// save bumps an integer version that serves as the concurrency token, and a
// revision row records the change message.
package sqlitedoc

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

const documentName = "movies"

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store implements collection.Backend on SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// busy_timeout in the DSN applies to every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, logger: logging.NewComponentLogger(logger, "sqlite_store")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens store.sqlite_path.
func OpenFromConfig(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	return Open(cfg.Store.SQLitePath, logger)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Name() string { return "sqlite" }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Load returns the document and its version.
func (s *Store) Load(ctx context.Context) (collection.Snapshot, error) {
	var (
		version int64
		body    string
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT version, body FROM documents WHERE name = ?", documentName,
		).Scan(&version, &body)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return collection.Snapshot{Document: collection.Document{Movies: []collection.MovieRecord{}}}, nil
	}
	if err != nil {
		return collection.Snapshot{}, fmt.Errorf("load document: %w", err)
	}
	doc, err := collection.DecodeDocument([]byte(body))
	if err != nil {
		return collection.Snapshot{}, err
	}
	return collection.Snapshot{Document: doc, Token: strconv.FormatInt(version, 10)}, nil
}

// Save writes doc when the stored version still equals token. An empty token
// only succeeds when no document exists.
func (s *Store) Save(ctx context.Context, doc collection.Document, token, message string) (string, error) {
	body, err := collection.EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	var expected int64
	if token != "" {
		expected, err = strconv.ParseInt(token, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: malformed token %q", collection.ErrPreconditionFailed, token)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	next := expected + 1

	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var res sql.Result
		if token == "" {
			res, err = tx.ExecContext(ctx,
				`INSERT INTO documents (name, version, body, updated_at) VALUES (?, ?, ?, ?)
                 ON CONFLICT(name) DO NOTHING`,
				documentName, next, string(body), now)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE documents SET version = ?, body = ?, updated_at = ?
                 WHERE name = ? AND version = ?`,
				next, string(body), now, documentName, expected)
		}
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return collection.ErrPreconditionFailed
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO revisions (name, version, message, created_at) VALUES (?, ?, ?, ?)",
			documentName, next, nullableString(message), now); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, collection.ErrPreconditionFailed) {
		return "", fmt.Errorf("%w: expected version %q", collection.ErrPreconditionFailed, token)
	}
	if err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}
	s.logger.Debug("collection saved", logging.Int64("version", next), logging.String("message", message))
	return strconv.FormatInt(next, 10), nil
}

// Revision is one recorded change.
type Revision struct {
	Version   int64
	Message   string
	CreatedAt string
}

// Revisions lists recorded changes, newest first.
func (s *Store) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT version, COALESCE(message, ''), created_at FROM revisions WHERE name = ? ORDER BY version DESC LIMIT ?",
		documentName, limit)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.Version, &rev.Message, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
