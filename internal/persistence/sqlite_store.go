// Package persistence provides the durable cache tier backed by SQLite.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/khiemphamm/translate-json/internal/cache"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore is the durable key-value tier of the translation cache. It
// satisfies cache.DurableStore.
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

// GetEntry returns the entry for key if it has not expired as of now.
func (s *SQLiteStore) GetEntry(ctx context.Context, key string, now time.Time) (cache.Entry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT cache_key, source_text, source_lang, target_lang, translated_text, created_at, expires_at
		 FROM translation_cache
		 WHERE cache_key = ? AND expires_at > ?`,
		key,
		now.UTC(),
	)

	var entry cache.Entry
	if err := row.Scan(
		&entry.Key,
		&entry.SourceText,
		&entry.SourceLanguage,
		&entry.TargetLanguage,
		&entry.TranslatedText,
		&entry.CreatedAt,
		&entry.ExpiresAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return cache.Entry{}, false, nil
		}
		return cache.Entry{}, false, err
	}
	return entry, true, nil
}

func (s *SQLiteStore) PutEntry(ctx context.Context, entry cache.Entry) error {
	if entry.Key == "" {
		return fmt.Errorf("entry key is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO translation_cache (
			cache_key, source_text, source_lang, target_lang, translated_text, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			source_text=excluded.source_text,
			source_lang=excluded.source_lang,
			target_lang=excluded.target_lang,
			translated_text=excluded.translated_text,
			created_at=excluded.created_at,
			expires_at=excluded.expires_at`,
		entry.Key,
		entry.SourceText,
		entry.SourceLanguage,
		entry.TargetLanguage,
		entry.TranslatedText,
		entry.CreatedAt.UTC(),
		entry.ExpiresAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache WHERE cache_key = ?`, key)
	return err
}

// DeleteExpiredEntries removes rows whose expires_at is at or before now and
// reports how many were swept.
func (s *SQLiteStore) DeleteExpiredEntries(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) ClearEntries(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translation_cache`)
	return err
}
