package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

// Store handles all database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if needed) the SQLite database at dbPath and migrates it
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", types.ErrPersistence, dir, err)
	}

	// WAL lets a second orchestrator read while this one writes; busy_timeout serializes writers
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", types.ErrPersistence, dbPath, err)
	}

	s := NewFromDB(db)
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewFromDB wraps an already opened database without migrating it
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		author_handle TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		likes INTEGER NOT NULL DEFAULT 0,
		reshares INTEGER NOT NULL DEFAULT 0,
		replies INTEGER NOT NULL DEFAULT 0,
		views INTEGER,
		verified BOOLEAN NOT NULL DEFAULT 0,
		hashtags TEXT NOT NULL DEFAULT '[]',
		mentions TEXT NOT NULL DEFAULT '[]',
		urls TEXT NOT NULL DEFAULT '[]',
		media_urls TEXT NOT NULL DEFAULT '[]',
		sentiment_score REAL NOT NULL DEFAULT 0,
		sentiment_label TEXT NOT NULL,
		scraped_at INTEGER NOT NULL,
		source TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_author ON records(author_handle);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	CREATE INDEX IF NOT EXISTS idx_records_sentiment ON records(sentiment_label);
	CREATE INDEX IF NOT EXISTS idx_records_scraped_at ON records(scraped_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: migrate: %w", types.ErrPersistence, err)
	}
	return nil
}

const recordColumns = `id, author_handle, author_name, content, created_at,
	likes, reshares, replies, views, verified,
	hashtags, mentions, urls, media_urls,
	sentiment_score, sentiment_label, scraped_at, source`

// Upsert inserts r unless a record with the same ID exists. The existing row is never modified.
// inserted is false for a duplicate.
func (s *Store) Upsert(ctx context.Context, r types.Record) (bool, error) {
	if r.ID == "" {
		return false, fmt.Errorf("%w: empty id", types.ErrMalformedRecord)
	}

	var views sql.NullInt64
	if r.Views != nil {
		views = sql.NullInt64{Int64: int64(*r.Views), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.AuthorHandle, r.AuthorName, r.Content, r.CreatedAt.UTC().UnixNano(),
		r.Likes, r.Reshares, r.Replies, views, r.Verified,
		jsonList(r.Hashtags), jsonList(r.Mentions), jsonList(r.URLs), jsonList(r.MediaURLs),
		r.SentimentScore, string(r.SentimentLabel), r.ScrapedAt.UTC().UnixNano(), string(r.Source))
	if err != nil {
		return false, fmt.Errorf("%w: upsert %s: %w", types.ErrPersistence, r.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: upsert %s: %w", types.ErrPersistence, r.ID, err)
	}
	return n == 1, nil
}

// Query returns records matching f, newest first.
// f.Limit == 0 applies types.DefaultQueryLimit; a negative limit returns everything.
func (s *Store) Query(ctx context.Context, f types.Filter) ([]types.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Author != "" {
		where = append(where, "author_handle = ? COLLATE NOCASE")
		args = append(args, strings.TrimPrefix(f.Author, "@"))
	}
	if f.MinEngagement > 0 {
		where = append(where, "(likes + reshares) >= ?")
		args = append(args, f.MinEngagement)
	}
	if f.Label != "" {
		where = append(where, "sentiment_label = ?")
		args = append(args, string(f.Label))
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC().UnixNano())
	}

	limit := f.Limit
	if limit == 0 {
		limit = types.DefaultQueryLimit
	}
	if limit < 0 {
		limit = -1
	}

	q := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", types.ErrPersistence, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", types.ErrPersistence, err)
	}
	return recs, nil
}

// Exists checks if a record ID is already stored
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM records WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", types.ErrPersistence, id, err)
	}
	return exists, nil
}

func scanRecords(rows *sql.Rows) ([]types.Record, error) {
	recs := []types.Record{}
	for rows.Next() {
		var (
			r                                   types.Record
			createdAt, scrapedAt                int64
			views                               sql.NullInt64
			hashtags, mentions, urls, mediaURLs string
			label, source                       string
		)

		err := rows.Scan(
			&r.ID, &r.AuthorHandle, &r.AuthorName, &r.Content, &createdAt,
			&r.Likes, &r.Reshares, &r.Replies, &views, &r.Verified,
			&hashtags, &mentions, &urls, &mediaURLs,
			&r.SentimentScore, &label, &scrapedAt, &source,
		)
		if err != nil {
			return nil, err
		}

		r.CreatedAt = time.Unix(0, createdAt).UTC()
		r.ScrapedAt = time.Unix(0, scrapedAt).UTC()
		r.SentimentLabel = types.SentimentLabel(label)
		r.Source = types.Provenance(source)
		if views.Valid {
			v := int(views.Int64)
			r.Views = &v
		}
		if r.Hashtags, err = parseList(hashtags); err != nil {
			return nil, err
		}
		if r.Mentions, err = parseList(mentions); err != nil {
			return nil, err
		}
		if r.URLs, err = parseList(urls); err != nil {
			return nil, err
		}
		if r.MediaURLs, err = parseList(mediaURLs); err != nil {
			return nil, err
		}

		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func jsonList(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func parseList(s string) ([]string, error) {
	list := []string{}
	if s == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, fmt.Errorf("decode list %q: %w", s, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
