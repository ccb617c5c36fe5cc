package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/websnap/internal/media"
	"github.com/nao1215/websnap/internal/model"
)

// DBFilename is the name of the history database file.
const DBFilename = "websnap.db"

// Crawl status values.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

var (
	// ErrCrawlNotFound is returned when no crawl matches an ID.
	ErrCrawlNotFound = errors.New("crawl not found")

	// ErrAmbiguousID is returned when an ID prefix matches several crawls.
	ErrAmbiguousID = errors.New("crawl ID prefix is ambiguous")
)

// HistoryDB stores crawl runs and the resources they saved.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// CrawlRecord is one snap run.
type CrawlRecord struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Directory     string    `json:"directory"`
	Seeds         []string  `json:"seeds"`
	Status        string    `json:"status"`
	ResourceCount int       `json:"resource_count"`
	Error         string    `json:"error,omitempty"`
}

// ResourceRecord is one saved resource of a crawl.
type ResourceRecord struct {
	CrawlID     string             `json:"crawl_id"`
	URL         string             `json:"url"`
	Filename    string             `json:"filename"`
	Type        model.ResourceType `json:"type"`
	StatusCode  int                `json:"status_code"`
	ContentType string             `json:"content_type,omitempty"`
	Depth       int                `json:"depth"`
	Size        int                `json:"size"`
	Digest      string             `json:"digest"`
	ExifTags    int                `json:"exif_tags,omitempty"`
	ExifGPS     bool               `json:"exif_gps,omitempty"`
	Camera      string             `json:"camera,omitempty"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// Open opens or creates the history database in dbDir.
// With CreateIfNotExists false, a missing database is an error and nothing
// is created on disk.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFilename)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// when resources are recorded from many goroutines.
	db.SetMaxOpenConns(1)

	if opts.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	hdb := &HistoryDB{db: db, dbPath: dbPath}
	if err := hdb.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		directory TEXT NOT NULL,
		seeds TEXT NOT NULL,
		status TEXT NOT NULL,
		resource_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_started_at ON crawls(started_at);

	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id TEXT NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		filename TEXT NOT NULL,
		type TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL,
		size INTEGER NOT NULL,
		digest TEXT NOT NULL,
		exif_tags INTEGER NOT NULL DEFAULT 0,
		exif_gps INTEGER NOT NULL DEFAULT 0,
		camera TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL,
		UNIQUE(crawl_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_crawl ON resources(crawl_id);
	`

	_, err := h.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the path to the database file.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// StartCrawl records a new running crawl and returns the session that
// records its resources.
func (h *HistoryDB) StartCrawl(ctx context.Context, directory string, seeds []string) (*Session, error) {
	if seeds == nil {
		seeds = []string{}
	}
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal seeds: %w", err)
	}

	id := uuid.NewString()
	query := `
	INSERT INTO crawls (id, started_at, directory, seeds, status)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := h.db.ExecContext(ctx, query, id, now(), directory, string(seedsJSON), StatusRunning); err != nil {
		return nil, fmt.Errorf("failed to insert crawl: %w", err)
	}

	return &Session{db: h, id: id}, nil
}

// ListCrawls returns the most recent crawls first. A limit of zero or less
// returns all of them.
func (h *HistoryDB) ListCrawls(ctx context.Context, limit int) ([]*CrawlRecord, error) {
	query := `
	SELECT id, started_at, COALESCE(finished_at, ''), directory, seeds, status, resource_count, error
	FROM crawls
	ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawls: %w", err)
	}
	defer rows.Close()

	var results []*CrawlRecord
	for rows.Next() {
		rec, err := scanCrawl(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// GetCrawl returns the crawl whose ID is id or starts with id.
func (h *HistoryDB) GetCrawl(ctx context.Context, id string) (*CrawlRecord, error) {
	if id == "" {
		return nil, ErrCrawlNotFound
	}

	query := `
	SELECT id, started_at, COALESCE(finished_at, ''), directory, seeds, status, resource_count, error
	FROM crawls
	WHERE substr(id, 1, length(?)) = ?
	ORDER BY id = ? DESC
	LIMIT 2
	`
	rows, err := h.db.QueryContext(ctx, query, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl: %w", err)
	}
	defer rows.Close()

	var found []*CrawlRecord
	for rows.Next() {
		rec, err := scanCrawl(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrCrawlNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// ListResources returns the resources recorded for a crawl in the order
// they were saved.
func (h *HistoryDB) ListResources(ctx context.Context, crawlID string) ([]*ResourceRecord, error) {
	query := `
	SELECT crawl_id, url, filename, type, status_code, content_type, depth, size,
		digest, exif_tags, exif_gps, camera, recorded_at
	FROM resources
	WHERE crawl_id = ?
	ORDER BY id ASC
	`
	rows, err := h.db.QueryContext(ctx, query, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var results []*ResourceRecord
	for rows.Next() {
		var (
			rec        ResourceRecord
			typ        string
			gps        int
			recordedAt string
		)
		if err := rows.Scan(
			&rec.CrawlID, &rec.URL, &rec.Filename, &typ, &rec.StatusCode, &rec.ContentType,
			&rec.Depth, &rec.Size, &rec.Digest, &rec.ExifTags, &gps, &rec.Camera, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		rec.Type, _ = model.ParseResourceType(typ) //nolint:errcheck // unknown names map to TypeUnknown
		rec.ExifGPS = gps != 0
		rec.RecordedAt = parseTimestamp(recordedAt)
		results = append(results, &rec)
	}
	return results, rows.Err()
}

// DeleteCrawl removes a crawl and its resources.
func (h *HistoryDB) DeleteCrawl(ctx context.Context, id string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE crawl_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete resources: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM crawls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete crawl: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCrawlNotFound, id)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (*CrawlRecord, error) {
	var (
		rec        CrawlRecord
		startedAt  string
		finishedAt string
		seedsJSON  string
	)
	if err := row.Scan(&rec.ID, &startedAt, &finishedAt, &rec.Directory, &seedsJSON,
		&rec.Status, &rec.ResourceCount, &rec.Error); err != nil {
		return nil, fmt.Errorf("failed to scan crawl: %w", err)
	}
	if err := json.Unmarshal([]byte(seedsJSON), &rec.Seeds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seeds: %w", err)
	}
	rec.StartedAt = parseTimestamp(startedAt)
	if finishedAt != "" {
		rec.FinishedAt = parseTimestamp(finishedAt)
	}
	return &rec, nil
}

// Session records the resources of one running crawl. It is safe for
// concurrent use.
type Session struct {
	db *HistoryDB
	id string
}

// ID returns the crawl ID.
func (s *Session) ID() string {
	return s.id
}

// RecordResource stores a saved resource. Recording the same URL twice in
// one crawl keeps the latest values.
func (s *Session) RecordResource(ctx context.Context, r *model.Resource, meta media.Summary) error {
	content := r.Content()
	sum := sha3.Sum256(content)

	gps := 0
	if meta.HasGPS {
		gps = 1
	}

	query := `
	INSERT INTO resources (crawl_id, url, filename, type, status_code, content_type, depth, size,
		digest, exif_tags, exif_gps, camera, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(crawl_id, url) DO UPDATE SET
		filename = excluded.filename,
		type = excluded.type,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		depth = excluded.depth,
		size = excluded.size,
		digest = excluded.digest,
		exif_tags = excluded.exif_tags,
		exif_gps = excluded.exif_gps,
		camera = excluded.camera,
		recorded_at = excluded.recorded_at
	`
	_, err := s.db.db.ExecContext(ctx, query,
		s.id, r.URL(), r.Filename(), r.Type().String(), r.StatusCode(), r.ContentType(), r.Depth(),
		len(content), hex.EncodeToString(sum[:]), meta.Tags, gps, meta.Camera, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record resource %s: %w", r.URL(), err)
	}
	return nil
}

// Finish marks the crawl done, or failed when crawlErr is not nil, and
// stores the number of recorded resources.
func (s *Session) Finish(ctx context.Context, crawlErr error) error {
	status, message := StatusDone, ""
	if crawlErr != nil {
		status, message = StatusFailed, crawlErr.Error()
	}

	query := `
	UPDATE crawls SET
		finished_at = ?,
		status = ?,
		error = ?,
		resource_count = (SELECT COUNT(*) FROM resources WHERE crawl_id = ?)
	WHERE id = ?
	`
	if _, err := s.db.db.ExecContext(ctx, query, now(), status, message, s.id, s.id); err != nil {
		return fmt.Errorf("failed to finish crawl: %w", err)
	}
	return nil
}

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries every format in timestampFormats and returns the
// zero time when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
