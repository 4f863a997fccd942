package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"personabrief/internal/core"
)

// Store is the SQLite-backed local state: the skipped-document audit
// trail, generated summaries, user feedback, and the KEV dedup ledger.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "personabrief.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	// Append-only audit trail of gate rejections. No primary key on
	// purpose: the same document may be rejected again on a later run.
	skippedTable := `
	CREATE TABLE IF NOT EXISTS skipped_documents (
		timestamp DATETIME NOT NULL,
		persona TEXT NOT NULL,
		score REAL NOT NULL,
		label TEXT NOT NULL,
		filename TEXT NOT NULL
	);`

	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		document_id TEXT,
		persona TEXT,
		summary_text TEXT,
		chunk_count INTEGER,
		failed_chunks INTEGER,
		score REAL,
		label TEXT,
		model_used TEXT,
		date_generated DATETIME
	);`

	feedbackTable := `
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		summary_id TEXT,
		rating INTEGER,
		comment TEXT,
		date_added DATETIME,
		FOREIGN KEY (summary_id) REFERENCES summaries (id)
	);`

	// Content hashes of KEV entries already ingested, so repeated feed
	// fetches only surface new vulnerabilities.
	kevSeenTable := `
	CREATE TABLE IF NOT EXISTS kev_seen (
		content_hash TEXT PRIMARY KEY,
		cve_id TEXT,
		date_scraped DATETIME
	);`

	tables := []string{skippedTable, summariesTable, feedbackTable, kevSeenTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSkipped appends one rejection to the audit trail.
func (s *Store) RecordSkipped(record core.SkippedRecord) error {
	query := `
	INSERT INTO skipped_documents (timestamp, persona, score, label, filename)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		record.Timestamp,
		record.Persona,
		record.Score,
		record.Label,
		record.Filename,
	)

	return err
}

// ListSkipped returns rejections newest first, up to limit (0 for all).
func (s *Store) ListSkipped(limit int) ([]core.SkippedRecord, error) {
	query := `
	SELECT timestamp, persona, score, label, filename
	FROM skipped_documents
	ORDER BY timestamp DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query skipped documents: %w", err)
	}
	defer rows.Close()

	var records []core.SkippedRecord
	for rows.Next() {
		var record core.SkippedRecord
		if err := rows.Scan(&record.Timestamp, &record.Persona, &record.Score, &record.Label, &record.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan skipped record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// SaveSummary persists a generated executive summary.
func (s *Store) SaveSummary(summary *core.ExecutiveSummary) error {
	query := `
	INSERT OR REPLACE INTO summaries
	(id, document_id, persona, summary_text, chunk_count, failed_chunks, score, label, model_used, date_generated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		summary.ID,
		summary.DocumentID,
		summary.Persona,
		summary.Text,
		summary.ChunkCount,
		summary.FailedChunks,
		summary.Score,
		summary.Label,
		summary.ModelUsed,
		summary.DateGenerated,
	)

	return err
}

// GetSummary retrieves a stored summary by ID, or nil when absent.
func (s *Store) GetSummary(id string) (*core.ExecutiveSummary, error) {
	query := `
	SELECT id, document_id, persona, summary_text, chunk_count, failed_chunks, score, label, model_used, date_generated
	FROM summaries
	WHERE id = ?`

	var summary core.ExecutiveSummary
	err := s.db.QueryRow(query, id).Scan(
		&summary.ID,
		&summary.DocumentID,
		&summary.Persona,
		&summary.Text,
		&summary.ChunkCount,
		&summary.FailedChunks,
		&summary.Score,
		&summary.Label,
		&summary.ModelUsed,
		&summary.DateGenerated,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}

	return &summary, nil
}

// SaveFeedback records a user rating for a summary.
func (s *Store) SaveFeedback(feedback core.Feedback) error {
	if feedback.Rating < 1 || feedback.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5, got %d", core.ErrInvalidInput, feedback.Rating)
	}

	query := `
	INSERT INTO feedback (id, summary_id, rating, comment, date_added)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		feedback.ID,
		feedback.SummaryID,
		feedback.Rating,
		feedback.Comment,
		feedback.DateAdded,
	)

	return err
}

// ListFeedback returns all feedback entries newest first.
func (s *Store) ListFeedback() ([]core.Feedback, error) {
	rows, err := s.db.Query(`
	SELECT id, summary_id, rating, comment, date_added
	FROM feedback
	ORDER BY date_added DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var entries []core.Feedback
	for rows.Next() {
		var entry core.Feedback
		if err := rows.Scan(&entry.ID, &entry.SummaryID, &entry.Rating, &entry.Comment, &entry.DateAdded); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// HasKEVHash reports whether a KEV content hash was already ingested.
func (s *Store) HasKEVHash(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM kev_seen WHERE content_hash = ?", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check kev hash: %w", err)
	}
	return count > 0, nil
}

// MarkKEVHash records a KEV content hash as seen.
func (s *Store) MarkKEVHash(hash, cveID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO kev_seen (content_hash, cve_id, date_scraped) VALUES (?, ?, ?)",
		hash, cveID, time.Now().UTC(),
	)
	return err
}

// Stats summarizes the local database contents.
type Stats struct {
	SkippedCount  int
	SummaryCount  int
	FeedbackCount int
	KEVSeenCount  int
	DatabaseSize  int64
	LastUpdated   time.Time
}

// GetStats returns row counts and file size for the local database.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM skipped_documents": &stats.SkippedCount,
		"SELECT COUNT(*) FROM summaries":         &stats.SummaryCount,
		"SELECT COUNT(*) FROM feedback":          &stats.FeedbackCount,
		"SELECT COUNT(*) FROM kev_seen":          &stats.KEVSeenCount,
	}

	for query, target := range queries {
		err := s.db.QueryRow(query).Scan(target)
		if err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}
