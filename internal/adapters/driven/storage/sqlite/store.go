package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
)

// dbFile is the database filename inside the data directory.
const dbFile = "corpus.db"

// timeLayout is a fixed-width RFC3339 layout, so stored times sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite database that provides the corpus and scheduler
// stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.buildboard/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".buildboard", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets listing queries run while the ingester writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CorpusStore returns a CorpusStore backed by this store.
func (s *Store) CorpusStore() driven.CorpusStore {
	return &corpusStore{store: s}
}

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
// Each up migration records its own version in schema_migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Corpus Store ====================

// corpusStore implements driven.CorpusStore.
type corpusStore struct {
	store *Store
}

var _ driven.CorpusStore = (*corpusStore)(nil)

const recordColumns = "id, type, modified, length, userdata"

// SaveRecord stores or replaces a record and advances the revision.
func (c *corpusStore) SaveRecord(ctx context.Context, rec *domain.RawRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidInput
	}

	var userdata any
	if rec.UserData != nil {
		data, err := json.Marshal(rec.UserData)
		if err != nil {
			return fmt.Errorf("marshalling userdata: %w", err)
		}
		userdata = string(data)
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, type, filename, modified, length, userdata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			filename = excluded.filename,
			modified = excluded.modified,
			length = excluded.length,
			userdata = excluded.userdata
	`, rec.ID, rec.Type, filenameOf(rec.ID), formatTime(rec.Modified), rec.Length, userdata)
	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE corpus_revision SET revision = revision + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("advancing revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by ID.
func (c *corpusStore) GetRecord(ctx context.Context, id string) (*domain.RawRecord, error) {
	row := c.store.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByFilename returns the records whose last path segment is filename.
func (c *corpusStore) FindByFilename(ctx context.Context, filename string) ([]domain.RawRecord, error) {
	if filename == "" {
		return []domain.RawRecord{}, nil
	}
	rows, err := c.store.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE filename = ? ORDER BY id", filename)
	if err != nil {
		return nil, fmt.Errorf("querying records by filename: %w", err)
	}
	return collectRecords(rows)
}

// ListRecords returns every record ordered by ID.
func (c *corpusStore) ListRecords(ctx context.Context) ([]domain.RawRecord, error) {
	rows, err := c.store.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	return collectRecords(rows)
}

// Revision returns the number of saves committed so far.
func (c *corpusStore) Revision(ctx context.Context) (uint64, error) {
	var rev int64
	if err := c.store.db.QueryRowContext(ctx, "SELECT revision FROM corpus_revision WHERE id = 1").Scan(&rev); err != nil {
		return 0, fmt.Errorf("reading revision: %w", err)
	}
	return uint64(rev), nil
}

// Count returns the number of stored records.
func (c *corpusStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (c *corpusStore) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.RawRecord, error) {
	var rec domain.RawRecord
	var modified string
	var userdata sql.NullString

	if err := row.Scan(&rec.ID, &rec.Type, &modified, &rec.Length, &userdata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	rec.Modified = parseTime(modified)
	if userdata.Valid && userdata.String != "" {
		if err := json.Unmarshal([]byte(userdata.String), &rec.UserData); err != nil {
			return nil, fmt.Errorf("unmarshalling userdata of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]domain.RawRecord, error) {
	defer rows.Close()

	records := make([]domain.RawRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// filenameOf returns the segment after the last "/", or empty when id
// has no separator.
func filenameOf(id string) string {
	i := strings.LastIndex(id, "/")
	if i < 0 {
		return ""
	}
	return id[i+1:]
}

// formatTime formats t in UTC using timeLayout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses an RFC3339 string, returning zero time if invalid.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable time column.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	return parseTime(s.String)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
