// Package persistence stores the job registry in SQLite so jobs survive a
// process restart.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kvasir-lab/doctrans/internal/job"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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
	// Bootstrap schema_migrations table so we can track applied versions.
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
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
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

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*job.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, input_path, output_path, format, source_lang, target_lang,
		        provider, model, tunables_json, status, error, source_hash,
		        chunks_json, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*job.TranslationJob, 0)
	for rows.Next() {
		var item job.TranslationJob
		var status, tunablesJSON, chunksJSON string
		if err := rows.Scan(
			&item.ID,
			&item.InputPath,
			&item.OutputPath,
			&item.Format,
			&item.SourceLang,
			&item.TargetLang,
			&item.Provider,
			&item.Model,
			&tunablesJSON,
			&status,
			&item.Error,
			&item.SourceHash,
			&chunksJSON,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tunablesJSON), &item.Tunables); err != nil {
			return nil, fmt.Errorf("decode tunables for job %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(chunksJSON), &item.Chunks); err != nil {
			return nil, fmt.Errorf("decode chunks for job %s: %w", item.ID, err)
		}
		item.Status = job.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, j *job.TranslationJob) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	tunablesJSON, err := json.Marshal(j.Tunables)
	if err != nil {
		return fmt.Errorf("encode tunables: %w", err)
	}
	chunksJSON, err := json.Marshal(j.Chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, input_path, output_path, format, source_lang, target_lang,
			provider, model, tunables_json, status, error, source_hash,
			chunks_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			input_path=excluded.input_path,
			output_path=excluded.output_path,
			format=excluded.format,
			source_lang=excluded.source_lang,
			target_lang=excluded.target_lang,
			provider=excluded.provider,
			model=excluded.model,
			tunables_json=excluded.tunables_json,
			status=excluded.status,
			error=excluded.error,
			source_hash=excluded.source_hash,
			chunks_json=excluded.chunks_json,
			updated_at=excluded.updated_at`,
		j.ID,
		j.InputPath,
		j.OutputPath,
		j.Format,
		j.SourceLang,
		j.TargetLang,
		j.Provider,
		j.Model,
		string(tunablesJSON),
		string(j.Status),
		j.Error,
		j.SourceHash,
		string(chunksJSON),
		j.CreatedAt,
		j.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}
