// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package policy persists support-policy records in SQLite and keeps an
// FTS5 projection of their title and conditions in sync through triggers.
// The serving path opens the store read-only; writes come from the load
// and reindex maintenance commands.
package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/policy-match/pkg/types"
)

// ErrNotFound is returned when a policy id does not exist.
var ErrNotFound = errors.New("policy not found")

// ErrReadOnly is returned by write operations on a read-only store.
var ErrReadOnly = errors.New("store is read-only")

// policyColumns is the canonical select list, qualified with alias p.
const policyColumns = `p.id, p.title, p.region, p.industry, p.period, p.conditions,
	p.url, p.hashtags, p.source, p.notice_id`

// Store manages the policy database.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open opens the policy database at cfg.Path. A writable store creates the
// schema if it does not exist; a read-only store requires it to exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	var dsn string
	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, fmt.Errorf("opening database %s: %w", cfg.Path, err)
		}
		dsn = "file:" + cfg.Path + "?mode=ro&_busy_timeout=5000"
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:       db,
		path:     cfg.Path,
		readOnly: cfg.ReadOnly,
	}

	if cfg.ReadOnly {
		if err := s.checkSchema(); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS policies (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		region TEXT,
		industry TEXT,
		period TEXT,
		conditions TEXT,
		url TEXT,
		hashtags TEXT,
		source TEXT,
		notice_id TEXT
	)`); err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}

	// FTS5 projection with triggers for sync. The delete command needs an
	// external-content table, so the index reads its content from policies.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='policies_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE policies_fts USING fts5(title, conditions, content=policies, content_rowid=id)`,
			`CREATE TRIGGER policies_ai AFTER INSERT ON policies BEGIN
				INSERT INTO policies_fts(rowid, title, conditions) VALUES (new.id, new.title, new.conditions);
			END`,
			`CREATE TRIGGER policies_ad AFTER DELETE ON policies BEGIN
				INSERT INTO policies_fts(policies_fts, rowid, title, conditions) VALUES('delete', old.id, old.title, old.conditions);
			END`,
			`CREATE TRIGGER policies_au AFTER UPDATE ON policies BEGIN
				INSERT INTO policies_fts(policies_fts, rowid, title, conditions) VALUES('delete', old.id, old.title, old.conditions);
				INSERT INTO policies_fts(rowid, title, conditions) VALUES (new.id, new.title, new.conditions);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

func (s *Store) checkSchema() error {
	var n int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('policies','policies_fts')`,
	).Scan(&n); err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("database %s has no policies schema; run load first", s.path)
	}
	return nil
}

// Put inserts p, or replaces the stored record with the same ID. A zero
// ID lets the database assign one. The FTS projection is updated by
// trigger inside the same statement, so the new content is searchable
// once Put returns. Returns the record's ID.
func (s *Store) Put(ctx context.Context, p types.Policy) (int64, error) {
	if s.readOnly {
		return 0, ErrReadOnly
	}
	return putPolicy(ctx, s.db, p)
}

// PutAll writes policies in one transaction. On error nothing is written.
func (s *Store) PutAll(ctx context.Context, policies []types.Policy) ([]int64, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(policies))
	for _, p := range policies {
		id, err := putPolicy(ctx, tx, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing policies: %w", err)
	}
	return ids, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// putPolicy upserts with ON CONFLICT rather than INSERT OR REPLACE: the
// implicit delete of REPLACE does not fire the delete trigger.
func putPolicy(ctx context.Context, db execer, p types.Policy) (int64, error) {
	var id any
	if p.ID != 0 {
		id = p.ID
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO policies (id, title, region, industry, period, conditions, url, hashtags, source, notice_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, region=excluded.region, industry=excluded.industry,
			period=excluded.period, conditions=excluded.conditions, url=excluded.url,
			hashtags=excluded.hashtags, source=excluded.source, notice_id=excluded.notice_id`,
		id, p.Title, p.Region, p.Industry, p.Period, p.Conditions,
		nullable(p.URL), nullable(p.Hashtags), p.Source, nullable(p.NoticeID),
	)
	if err != nil {
		return 0, fmt.Errorf("writing policy %q: %w", p.Title, err)
	}
	if p.ID != 0 {
		return p.ID, nil
	}
	return res.LastInsertId()
}

// Delete removes the policy and its FTS projection.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if s.readOnly {
		return ErrReadOnly
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting policy %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reindex rebuilds the FTS projection from the policies table.
func (s *Store) Reindex(ctx context.Context) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO policies_fts(policies_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("rebuilding FTS index: %w", err)
	}
	return nil
}

// Get returns the policy with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (types.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+`, NULL FROM policies p WHERE p.id = ?`, id)
	if err != nil {
		return types.Policy{}, fmt.Errorf("looking up policy %d: %w", id, err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return types.Policy{}, err
	}
	if len(recs) == 0 {
		return types.Policy{}, ErrNotFound
	}
	return recs[0].Policy, nil
}

// Count returns the number of stored policies.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting policies: %w", err)
	}
	return n, nil
}

// Tables lists the table names in the database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// scanRecords reads rows selected as policyColumns plus one relevance
// column and closes rows.
func scanRecords(rows *sql.Rows) ([]types.Record, error) {
	defer rows.Close()

	var recs []types.Record
	for rows.Next() {
		var (
			r                               types.Record
			region, industry, period, conds sql.NullString
			url, hashtags, source, noticeID sql.NullString
			relevance                       sql.NullFloat64
		)
		if err := rows.Scan(
			&r.ID, &r.Title, &region, &industry, &period, &conds,
			&url, &hashtags, &source, &noticeID, &relevance,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Region = region.String
		r.Industry = industry.String
		r.Period = period.String
		r.Conditions = conds.String
		r.URL = url.String
		r.Hashtags = hashtags.String
		r.Source = source.String
		r.NoticeID = noticeID.String
		if relevance.Valid {
			r.Relevance = types.Float(relevance.Float64)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
