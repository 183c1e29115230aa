package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultSQLitePath is used when the sqlite driver has no path configured.
const DefaultSQLitePath = "ledger.db"

// SQLiteLedger stores entries in a SQLite table.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (and migrates) the database at path. ":memory:" is accepted.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_entries (
		task TEXT PRIMARY KEY,
		repo_name TEXT NOT NULL,
		repo_url TEXT NOT NULL,
		commit_sha TEXT NOT NULL,
		pages_url TEXT NOT NULL,
		last_round INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLedger) Get(ctx context.Context, task string) (Entry, bool, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT task, repo_name, repo_url, commit_sha, pages_url, last_round, updated_at
		FROM ledger_entries WHERE task = ?`, task)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get ledger entry %s: %w", task, err)
	}
	return e, true, nil
}

func (l *SQLiteLedger) Put(ctx context.Context, e Entry) error {
	if e.Task == "" {
		return fmt.Errorf("ledger entry has no task name")
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (task, repo_name, repo_url, commit_sha, pages_url, last_round, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task) DO UPDATE SET
			repo_name = excluded.repo_name,
			repo_url = excluded.repo_url,
			commit_sha = excluded.commit_sha,
			pages_url = excluded.pages_url,
			last_round = excluded.last_round,
			updated_at = excluded.updated_at`,
		e.Task, e.RepoName, e.RepoURL, e.CommitSHA, e.PagesURL, e.LastRound, e.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put ledger entry %s: %w", e.Task, err)
	}
	return nil
}

func (l *SQLiteLedger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT task, repo_name, repo_url, commit_sha, pages_url, last_round, updated_at
		FROM ledger_entries ORDER BY task`)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		updated string
	)
	if err := s.Scan(&e.Task, &e.RepoName, &e.RepoURL, &e.CommitSHA, &e.PagesURL, &e.LastRound, &updated); err != nil {
		return Entry{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		e.UpdatedAt = t
	}
	return e, nil
}
