// Package store persists generated QR codes: the image files themselves and
// an optional SQLite log of past generations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/openclaw/qrgen/qr"
)

// Record is a single logged generation.
type Record struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Data      string `json:"data"`
	Size      int    `json:"size"`
	Width     int    `json:"width"`
	CreatedAt int64  `json:"created_at"`
}

// HistoryStore manages SQLite storage for the generation log.
type HistoryStore struct {
	db *sql.DB
}

const createGenerationsTable = `
CREATE TABLE IF NOT EXISTS generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    url TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL,
    size INTEGER NOT NULL,
    width INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
`

const createFTSTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS generations_fts USING fts5(
    data,
    content='generations',
    content_rowid='id'
);
`

const createFTSTrigger = `
CREATE TRIGGER IF NOT EXISTS generations_ai AFTER INSERT ON generations BEGIN
    INSERT INTO generations_fts(rowid, data) VALUES (new.id, new.data);
END;
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
CREATE INDEX IF NOT EXISTS idx_generations_filename ON generations(filename);
`

// NewHistoryStore opens (or creates) the SQLite database at dbPath, initialises
// the schema (generations table, FTS5 virtual table, sync trigger), and returns
// a ready-to-use HistoryStore.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{
		createGenerationsTable,
		createFTSTable,
		createFTSTrigger,
		createIndexes,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &HistoryStore{db: db}, nil
}

// RecordGeneration appends g to the log. Colliding filenames are logged as
// separate rows; the file on disk holds whichever image was written last.
func (s *HistoryStore) RecordGeneration(ctx context.Context, g *qr.Generation) error {
	const query = `
		INSERT INTO generations (filename, url, data, size, width, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		g.Filename,
		g.URL,
		g.Data,
		g.Size,
		g.Width,
		g.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// Recent returns logged generations, newest first. Use limit and offset for
// pagination.
func (s *HistoryStore) Recent(ctx context.Context, limit, offset int) ([]Record, error) {
	const query = `
		SELECT id, filename, url, data, size, width, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get recent generations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Search performs a full-text search across encoded content using the FTS5
// index. Results are ranked by relevance.
func (s *HistoryStore) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	// Quote the whole query as a phrase so FTS5 operators in user input are
	// treated as text.
	escaped := strings.ReplaceAll(query, `"`, `""`)
	ftsQuery := fmt.Sprintf(`"%s"`, escaped)

	const q = `
		SELECT g.id, g.filename, g.url, g.data, g.size, g.width, g.created_at
		FROM generations g
		JOIN generations_fts fts ON g.id = fts.rowid
		WHERE generations_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, q, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search generations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the underlying database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.Filename, &r.URL, &r.Data,
			&r.Size, &r.Width, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation row: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation rows: %w", err)
	}
	return recs, nil
}
