// Package store is the SQLite-backed clipboard history: deduplicated
// entries with their content, full-text search, pinning, and
// age-then-count eviction.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wayclipd/pkg/errors"
	"wayclipd/pkg/logger"
	"wayclipd/pkg/protocol"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_hash TEXT NOT NULL UNIQUE,
		content_type TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		preview TEXT,
		byte_size INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		last_used_at INTEGER NOT NULL,
		use_count INTEGER DEFAULT 1,
		pinned INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS content (
		entry_id INTEGER PRIMARY KEY,
		data BLOB NOT NULL,
		FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_content_hash ON entries(content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_pinned ON entries(pinned)`,
}

// fts and its triggers are applied separately: older SQLite builds may ship
// without FTS5, and a missing virtual table should degrade search, not
// prevent the store from opening at all.
var ftsMigrations = []string{
	`CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
		preview, content='entries', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS entries_fts_insert AFTER INSERT ON entries BEGIN
		INSERT INTO entries_fts(rowid, preview) VALUES (new.id, new.preview);
	END`,
	`CREATE TRIGGER IF NOT EXISTS entries_fts_delete AFTER DELETE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, preview) VALUES('delete', old.id, old.preview);
	END`,
	`CREATE TRIGGER IF NOT EXISTS entries_fts_update AFTER UPDATE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, preview) VALUES('delete', old.id, old.preview);
		INSERT INTO entries_fts(rowid, preview) VALUES (new.id, new.preview);
	END`,
}

// Store wraps the sqlite connection behind a single mutex, mirroring the
// single-writer discipline SQLite itself expects under concurrent access.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	ftsActive bool
}

// Open opens (creating if necessary) the database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.NewWithError(errors.ExitCodeFileOperation, "failed to create database directory", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeDatabase, "failed to open database", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.NewWithError(errors.ExitCodeDatabase, "failed to enable foreign keys", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.NewWithError(errors.ExitCodeDatabase, "failed to run migration", err)
		}
	}

	s.ftsActive = true
	for _, stmt := range ftsMigrations {
		if _, err := s.db.Exec(stmt); err != nil {
			logger.Warn().Err(err).Msg("fts5 unavailable, search falls back to substring match")
			s.ftsActive = false
			break
		}
	}

	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByHash returns the id of the entry with the given content hash, if
// any.
func (s *Store) FindByHash(hash string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow("SELECT id FROM entries WHERE content_hash = ?", hash).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.DatabaseError("failed to query by hash", err)
	}
	return id, true, nil
}

// TouchByHash bumps last_used_at and use_count for the entry with the
// given content hash.
func (s *Store) TouchByHash(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE entries SET last_used_at = ?, use_count = use_count + 1 WHERE content_hash = ?",
		now(), hash,
	)
	if err != nil {
		return errors.DatabaseError("failed to touch entry by hash", err)
	}
	return nil
}

// TouchEntry bumps last_used_at and use_count for the entry with the given
// id.
func (s *Store) TouchEntry(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE entries SET last_used_at = ?, use_count = use_count + 1 WHERE id = ?",
		now(), id,
	)
	if err != nil {
		return errors.DatabaseError("failed to touch entry", err)
	}
	return nil
}

// InsertEntry stores a new entry and its content, returning the assigned id.
func (s *Store) InsertEntry(hash string, contentType protocol.ContentType, mimeType, preview string, content []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	result, err := s.db.Exec(
		`INSERT INTO entries (content_hash, content_type, mime_type, preview, byte_size, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		hash, string(contentType), mimeType, preview, len(content), ts, ts,
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to insert entry", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.DatabaseError("failed to read inserted entry id", err)
	}

	if _, err := s.db.Exec("INSERT INTO content (entry_id, data) VALUES (?, ?)", id, content); err != nil {
		return 0, errors.DatabaseError("failed to insert entry content", err)
	}

	return id, nil
}

// GetHistory returns a page of entries (metadata only) and the total count
// of entries matching search (or all entries, if search is empty).
func (s *Store) GetHistory(limit, offset uint32, search string) ([]protocol.HistoryEntry, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if search != "" && s.ftsActive {
		return s.searchFTS(limit, offset, search)
	}
	if search != "" {
		return s.searchSubstring(limit, offset, search)
	}
	return s.listAll(limit, offset)
}

func (s *Store) listAll(limit, offset uint32) ([]protocol.HistoryEntry, uint64, error) {
	var total int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("failed to count entries", err)
	}

	rows, err := s.db.Query(
		`SELECT id, content_type, mime_type, preview, byte_size, created_at, pinned
		 FROM entries ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to query entries", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, uint64(total), nil
}

func (s *Store) searchFTS(limit, offset uint32, search string) ([]protocol.HistoryEntry, uint64, error) {
	ftsQuery := escapeFTS(search) + "*"

	var total int64
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM entries_fts WHERE entries_fts MATCH ?", ftsQuery,
	).Scan(&total); err != nil {
		// FTS query syntax errors fall back to substring match rather than
		// surfacing raw fts5 syntax errors to clients.
		return s.searchSubstring(limit, offset, search)
	}

	rows, err := s.db.Query(
		`SELECT e.id, e.content_type, e.mime_type, e.preview, e.byte_size, e.created_at, e.pinned
		 FROM entries e INNER JOIN entries_fts fts ON e.id = fts.rowid
		 WHERE entries_fts MATCH ?
		 ORDER BY e.created_at DESC LIMIT ? OFFSET ?`,
		ftsQuery, limit, offset,
	)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to query fts entries", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, uint64(total), nil
}

func (s *Store) searchSubstring(limit, offset uint32, search string) ([]protocol.HistoryEntry, uint64, error) {
	like := "%" + search + "%"

	var total int64
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM entries WHERE preview LIKE ?", like,
	).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("failed to count matching entries", err)
	}

	rows, err := s.db.Query(
		`SELECT id, content_type, mime_type, preview, byte_size, created_at, pinned
		 FROM entries WHERE preview LIKE ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		like, limit, offset,
	)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to query matching entries", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, uint64(total), nil
}

func escapeFTS(s string) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func scanEntries(rows *sql.Rows) ([]protocol.HistoryEntry, error) {
	entries := []protocol.HistoryEntry{}
	for rows.Next() {
		var e protocol.HistoryEntry
		var contentType string
		var pinned int
		if err := rows.Scan(&e.ID, &contentType, &e.MimeType, &e.Preview, &e.ByteSize, &e.CreatedAt, &pinned); err != nil {
			return nil, errors.DatabaseError("failed to scan entry", err)
		}
		e.ContentType = protocol.ContentType(contentType)
		e.Pinned = pinned != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to read entries", err)
	}
	return entries, nil
}

// GetContent returns the MIME type and raw bytes for an entry.
func (s *Store) GetContent(id int64) (mimeType string, data []byte, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT e.mime_type, c.data FROM entries e
		 INNER JOIN content c ON e.id = c.entry_id WHERE e.id = ?`, id,
	)
	if scanErr := row.Scan(&mimeType, &data); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", nil, false, nil
		}
		return "", nil, false, errors.DatabaseError("failed to fetch entry content", scanErr)
	}
	return mimeType, data, true, nil
}

// DeleteEntry removes an entry (its content cascades) and reports whether
// a row was actually deleted.
func (s *Store) DeleteEntry(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return false, errors.DatabaseError("failed to delete entry", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("failed to read delete result", err)
	}
	return n > 0, nil
}

// ClearUnpinned deletes every non-pinned entry.
func (s *Store) ClearUnpinned() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM entries WHERE pinned = 0"); err != nil {
		return errors.DatabaseError("failed to clear history", err)
	}
	return nil
}

// SetPinned updates an entry's pinned flag, reporting whether a row
// matched.
func (s *Store) SetPinned(id int64, pinned bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := 0
	if pinned {
		v = 1
	}
	result, err := s.db.Exec("UPDATE entries SET pinned = ? WHERE id = ?", v, id)
	if err != nil {
		return false, errors.DatabaseError("failed to update pinned state", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("failed to read update result", err)
	}
	return n > 0, nil
}

// CountEntries returns the total number of stored entries.
func (s *Store) CountEntries() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, errors.DatabaseError("failed to count entries", err)
	}
	return uint64(count), nil
}

// DatabaseSizeBytes returns the size of the database file on disk.
func (s *Store) DatabaseSizeBytes() (uint64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, errors.NewWithError(errors.ExitCodeFileOperation, "failed to stat database file", err)
	}
	return uint64(info.Size()), nil
}

// Sweep enforces retention: first it deletes non-pinned entries older than
// maxAgeDays (when nonzero), then it trims any remaining excess of
// non-pinned entries down to maxEntries, oldest-used first.
func (s *Store) Sweep(maxEntries uint32, maxAgeDays uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxAgeDays > 0 {
		cutoff := now() - int64(maxAgeDays)*86400
		// Age is measured from created_at, not last_used_at: an entry that
		// was captured long ago and only recently re-touched (e.g. set back
		// on the clipboard) must still age out on its original capture time.
		if _, err := s.db.Exec(
			"DELETE FROM entries WHERE pinned = 0 AND created_at < ?", cutoff,
		); err != nil {
			return errors.DatabaseError("failed to sweep aged entries", err)
		}
	}

	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries WHERE pinned = 0").Scan(&count); err != nil {
		return errors.DatabaseError("failed to count unpinned entries", err)
	}

	if count <= int64(maxEntries) {
		return nil
	}

	toDelete := count - int64(maxEntries)
	if _, err := s.db.Exec(
		`DELETE FROM entries WHERE id IN (
			SELECT id FROM entries WHERE pinned = 0 ORDER BY last_used_at ASC LIMIT ?
		)`, toDelete,
	); err != nil {
		return errors.DatabaseError("failed to sweep excess entries", err)
	}

	logger.Debug().Int64("deleted", toDelete).Msg("swept old entries")
	return nil
}

func now() int64 {
	return time.Now().Unix()
}
