package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Epistemic-Technology/casebrief/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store, creating the parent directory
// if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		kind TEXT NOT NULL,
		page_count INTEGER,
		zotero_id TEXT,
		url TEXT,
		path TEXT,
		memory_log TEXT,
		memory_log_audit TEXT,
		final_summary TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL,
		record_index INTEGER NOT NULL,
		sentence TEXT,
		filename TEXT,
		start_page INTEGER,
		end_page INTEGER,
		page_numbers TEXT,
		PRIMARY KEY (run_id, record_index),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS batches (
		run_id TEXT NOT NULL,
		batch_index INTEGER NOT NULL,
		start_page INTEGER,
		end_page INTEGER,
		summary TEXT,
		page_numbers TEXT,
		chunk_summaries TEXT,
		memory_log_audit TEXT,
		PRIMARY KEY (run_id, batch_index),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save stores a completed run. A run without an ID is given one.
func (s *SQLiteStore) Save(ctx context.Context, run *models.Run) error {
	if run.RunID == "" {
		run.RunID = NewRunID()
	}

	var finalJSON []byte
	if run.Final != nil {
		var err error
		finalJSON, err = json.Marshal(run.Final)
		if err != nil {
			return fmt.Errorf("failed to marshal final summary: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, filename, kind, page_count, zotero_id, url, path, memory_log, memory_log_audit, final_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Filename, string(run.Kind), run.PageCount,
		run.SourceInfo.ZoteroID, run.SourceInfo.URL, run.SourceInfo.Path,
		string(run.MemoryLog), run.MemoryLogAudit, string(finalJSON))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := deleteChildren(ctx, tx, run.RunID); err != nil {
		return err
	}

	for i, rec := range run.Records {
		pagesJSON, err := json.Marshal(rec.PageNumbers)
		if err != nil {
			return fmt.Errorf("failed to marshal page numbers: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (run_id, record_index, sentence, filename, start_page, end_page, page_numbers)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.RunID, i, rec.Sentence, rec.Filename, rec.StartPage, rec.EndPage, string(pagesJSON))
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	for i, b := range run.Batches {
		pagesJSON, err := json.Marshal(b.Summary.PageNumbers)
		if err != nil {
			return fmt.Errorf("failed to marshal batch pages: %w", err)
		}
		chunksJSON, err := json.Marshal(b.ChunkSummaries)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk summaries: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO batches (run_id, batch_index, start_page, end_page, summary, page_numbers, chunk_summaries, memory_log_audit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.RunID, i, b.StartPage, b.EndPage, b.Summary.Content, string(pagesJSON), string(chunksJSON), b.MemoryLogAudit)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRun retrieves a run with its records, memory log and batches
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	run := models.Run{RunID: runID}
	var kind, memoryLog, finalJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT filename, kind, page_count, zotero_id, url, path, memory_log, memory_log_audit, final_summary
		FROM runs
		WHERE id = ?
	`, runID).Scan(&run.Filename, &kind, &run.PageCount,
		&run.SourceInfo.ZoteroID, &run.SourceInfo.URL, &run.SourceInfo.Path,
		&memoryLog, &run.MemoryLogAudit, &finalJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.Kind = models.RunKind(kind)
	run.MemoryLog = models.MemoryLog(memoryLog)

	if finalJSON != "" {
		run.Final = &models.FinalSummary{}
		if err := json.Unmarshal([]byte(finalJSON), run.Final); err != nil {
			return nil, fmt.Errorf("failed to unmarshal final summary: %w", err)
		}
	}

	if run.Records, err = s.GetRecords(ctx, runID); err != nil {
		return nil, err
	}
	if run.Batches, err = s.getBatches(ctx, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRecords retrieves the records of a run in emission order
func (s *SQLiteStore) GetRecords(ctx context.Context, runID string) ([]models.SummaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sentence, filename, start_page, end_page, page_numbers
		FROM records
		WHERE run_id = ?
		ORDER BY record_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.SummaryRecord
	for rows.Next() {
		var rec models.SummaryRecord
		var pagesJSON string
		if err := rows.Scan(&rec.Sentence, &rec.Filename, &rec.StartPage, &rec.EndPage, &pagesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(pagesJSON), &rec.PageNumbers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page numbers: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func (s *SQLiteStore) getBatches(ctx context.Context, runID string) ([]models.BatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_page, end_page, summary, page_numbers, chunk_summaries, memory_log_audit
		FROM batches
		WHERE run_id = ?
		ORDER BY batch_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []models.BatchResult
	for rows.Next() {
		var b models.BatchResult
		var pagesJSON, chunksJSON string
		if err := rows.Scan(&b.StartPage, &b.EndPage, &b.Summary.Content, &pagesJSON, &chunksJSON, &b.MemoryLogAudit); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		if err := json.Unmarshal([]byte(pagesJSON), &b.Summary.PageNumbers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal batch pages: %w", err)
		}
		if err := json.Unmarshal([]byte(chunksJSON), &b.ChunkSummaries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk summaries: %w", err)
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// ListRuns returns every stored run, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]models.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, kind, page_count, created_at, zotero_id, url, path
		FROM runs
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunInfo
	for rows.Next() {
		var info models.RunInfo
		var kind string
		if err := rows.Scan(&info.RunID, &info.Filename, &kind, &info.PageCount, &info.CreatedAt,
			&info.SourceInfo.ZoteroID, &info.SourceInfo.URL, &info.SourceInfo.Path); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.Kind = models.RunKind(kind)
		runs = append(runs, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run and all associated data
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteChildren(ctx, tx, runID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SQLite leaves foreign keys unenforced by default, so child rows are
// removed explicitly.
func deleteChildren(ctx context.Context, tx *sql.Tx, runID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete batches: %w", err)
	}
	return nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
