// Package sqlite provides SQLite persistence for uploaded MRS scans and
// trained classifiers
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ChrisMcGann/brainscan/pkg/core"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Timestamp format for CreatedAt columns (fixed-width RFC 3339 in UTC, so
// text order is time order)
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no row has the requested ID.
var ErrNotFound = errors.New("not found")

// Store handles reading and writing scans and classifiers
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// createTables creates the required database schema
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS BrainScans (
		Id TEXT PRIMARY KEY,
		FileName TEXT NOT NULL,
		FileContents BLOB NOT NULL,
		GroupLabel TEXT NOT NULL,
		CreatedAt TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS Classifiers (
		Id TEXT PRIMARY KEY,
		ClassifierName TEXT NOT NULL,
		ClassifierType TEXT NOT NULL,
		SerializedClassifier BLOB NOT NULL,
		CreatedAt TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_brainscans_label ON BrainScans(GroupLabel);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Path returns the database location the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// NewID generates a random identifier as 32 hex characters.
func NewID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// StoreScan saves a scan. An empty ID is replaced by a generated one and an
// unset CreatedAt by the current time.
func (s *Store) StoreScan(ctx context.Context, scan *core.Scan) error {
	if err := scan.Validate(); err != nil {
		return err
	}

	if scan.ID == "" {
		scan.ID = NewID()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO BrainScans (Id, FileName, FileContents, GroupLabel, CreatedAt)
		VALUES (?, ?, ?, ?, ?)
	`, scan.ID, scan.FileName, scan.Contents, scan.GroupLabel, scan.CreatedAt.UTC().Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	return nil
}

// FetchScan returns the scan with the given ID or ErrNotFound.
func (s *Store) FetchScan(ctx context.Context, id string) (*core.Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT Id, FileName, FileContents, GroupLabel, CreatedAt
		FROM BrainScans WHERE Id = ?
	`, id)

	scan, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scan: %w", err)
	}
	return scan, nil
}

// FetchAllScans returns every stored scan, oldest first.
func (s *Store) FetchAllScans(ctx context.Context) ([]*core.Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT Id, FileName, FileContents, GroupLabel, CreatedAt
		FROM BrainScans ORDER BY CreatedAt, Id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*core.Scan
	for rows.Next() {
		scan, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read scan: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scans: %w", err)
	}

	return scans, nil
}

// StoreClassifier saves a trained classifier.
func (s *Store) StoreClassifier(ctx context.Context, rec *core.ClassifierRecord) error {
	if rec.Name == "" || rec.Type == "" {
		return &core.ValidationError{Field: "Classifier", Message: "name and type are required"}
	}
	if len(rec.Serialized) == 0 {
		return &core.ValidationError{Field: "Classifier", Message: "serialized model is empty"}
	}

	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO Classifiers (Id, ClassifierName, ClassifierType, SerializedClassifier, CreatedAt)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Type, rec.Serialized, rec.CreatedAt.UTC().Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("failed to insert classifier: %w", err)
	}

	return nil
}

// FetchClassifier returns the classifier with the given ID or ErrNotFound.
func (s *Store) FetchClassifier(ctx context.Context, id string) (*core.ClassifierRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT Id, ClassifierName, ClassifierType, SerializedClassifier, CreatedAt
		FROM Classifiers WHERE Id = ?
	`, id)

	rec, err := scanClassifier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("classifier %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch classifier: %w", err)
	}
	return rec, nil
}

// FetchAllClassifiers returns every stored classifier, oldest first.
func (s *Store) FetchAllClassifiers(ctx context.Context) ([]*core.ClassifierRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT Id, ClassifierName, ClassifierType, SerializedClassifier, CreatedAt
		FROM Classifiers ORDER BY CreatedAt, Id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifiers: %w", err)
	}
	defer rows.Close()

	var recs []*core.ClassifierRecord
	for rows.Next() {
		rec, err := scanClassifier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read classifier: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classifiers: %w", err)
	}

	return recs, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*core.Scan, error) {
	var (
		scan    core.Scan
		created string
	)
	if err := row.Scan(&scan.ID, &scan.FileName, &scan.Contents, &scan.GroupLabel, &created); err != nil {
		return nil, err
	}

	t, err := time.Parse(timestampFormat, created)
	if err != nil {
		return nil, fmt.Errorf("invalid creation time %q: %w", created, err)
	}
	scan.CreatedAt = t

	return &scan, nil
}

func scanClassifier(row rowScanner) (*core.ClassifierRecord, error) {
	var (
		rec     core.ClassifierRecord
		created string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Serialized, &created); err != nil {
		return nil, err
	}

	t, err := time.Parse(timestampFormat, created)
	if err != nil {
		return nil, fmt.Errorf("invalid creation time %q: %w", created, err)
	}
	rec.CreatedAt = t

	return &rec, nil
}
