package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/srt-batch-translator/internal/translator"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) SaveBatchCheckpoint(ctx context.Context, cp BatchCheckpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO batch_checkpoints (doc_key, batch_start, batch_end, status, translated_text, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_key, batch_start, batch_end) DO UPDATE SET
			status=excluded.status,
			translated_text=excluded.translated_text,
			run_id=excluded.run_id,
			updated_at=excluded.updated_at`,
		cp.DocKey,
		cp.BatchStart,
		cp.BatchEnd,
		cp.Status,
		cp.TranslatedText,
		cp.RunID,
		cp.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) LoadBatchCheckpoints(ctx context.Context, docKey string) ([]BatchCheckpoint, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT doc_key, batch_start, batch_end, status, translated_text, run_id, updated_at
		 FROM batch_checkpoints
		 WHERE doc_key = ?
		 ORDER BY batch_start ASC`,
		docKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]BatchCheckpoint, 0)
	for rows.Next() {
		var item BatchCheckpoint
		if err := rows.Scan(&item.DocKey, &item.BatchStart, &item.BatchEnd, &item.Status, &item.TranslatedText, &item.RunID, &item.UpdatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// DeleteBatchCheckpoints drops every checkpoint stored for a document
func (s *SQLiteStore) DeleteBatchCheckpoints(ctx context.Context, docKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM batch_checkpoints WHERE doc_key = ?`, docKey)
	return err
}

func (s *SQLiteStore) StartRun(ctx context.Context, run Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, doc_key, source_path, output_path, target_language, status, batches, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.DocKey,
		run.SourcePath,
		run.OutputPath,
		run.TargetLanguage,
		string(run.Status),
		run.Batches,
		run.StartedAt,
	)
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, degraded []translator.Span, runErr error) error {
	if degraded == nil {
		degraded = []translator.Span{}
	}
	payload, err := json.Marshal(degraded)
	if err != nil {
		return err
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, degraded_json = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status),
		string(payload),
		errMsg,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, doc_key, source_path, output_path, target_language, status, batches, degraded_json, error, started_at, finished_at
		 FROM runs
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Run, 0)
	for rows.Next() {
		var (
			item         Run
			status       string
			degradedJSON string
			finishedAt   sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.DocKey, &item.SourcePath, &item.OutputPath, &item.TargetLanguage,
			&status, &item.Batches, &degradedJSON, &item.Error, &item.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		item.Status = RunStatus(status)
		if finishedAt.Valid {
			item.FinishedAt = finishedAt.Time
		}
		if err := json.Unmarshal([]byte(degradedJSON), &item.Degraded); err != nil {
			return nil, fmt.Errorf("decode degraded spans of run %s: %w", item.ID, err)
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
