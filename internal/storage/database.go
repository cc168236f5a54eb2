package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

var (
	// ErrNotFound reports a lookup of an id or path that is not stored.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict reports a review update that lost against a
	// concurrent review of the same item. The caller should reload the
	// item and retry; swallowing the conflict would lose an update.
	ErrConflict = errors.New("storage: concurrent review conflict")
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Serialize writers at the driver level; reviews of different items
	// then queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source represents an origin of study text, either a local directory or
// a git repository URL.
type Source struct {
	ID          int64
	Path        string
	Type        string // "local" or "git"
	LastScanned sql.NullTime
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, nil when absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source by ID.
func (db *DB) DeleteSource(id int64) error {
	_, err := db.conn.Exec(`
		DELETE FROM sources
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// Document records one ingested document and its last analysis metrics.
type Document struct {
	Path        string
	ContentHash string
	Readability float64
	Density     float64
	IngestedAt  time.Time
}

// UpsertDocument stores or refreshes the record of an ingested document.
func (db *DB) UpsertDocument(doc Document) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (path, content_hash, readability, density, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			readability = excluded.readability,
			density = excluded.density,
			ingested_at = excluded.ingested_at
	`, doc.Path, doc.ContentHash, doc.Readability, doc.Density, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.Path, err)
	}
	return nil
}

// FindDocumentByPath retrieves an ingested document, nil when absent.
func (db *DB) FindDocumentByPath(path string) (*Document, error) {
	var d Document
	row := db.conn.QueryRow(`
		SELECT path, content_hash, readability, density, ingested_at
		FROM documents WHERE path = ?
	`, path)

	err := row.Scan(&d.Path, &d.ContentHash, &d.Readability, &d.Density, &d.IngestedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find document by path %s: %w", path, err)
	}
	return &d, nil
}
