package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a write-mostly operations journal. The serving path never reads
// it back; losing it costs history, not correctness.
type Store struct {
	db *sql.DB
}

type RequestRecord struct {
	TS         int64  `json:"ts"`
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Remote     string `json:"remote"`
	CreatedAt  string `json:"created_at"`
}

type QuoteRecord struct {
	TS        int64   `json:"ts"`
	Code      string  `json:"code"`
	Market    string  `json:"market"`
	Price     float64 `json:"price"`
	CreatedAt string  `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/gateway.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS request_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			request_id TEXT,
			method TEXT,
			path TEXT,
			status INTEGER,
			duration_ms INTEGER,
			remote TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_request_log_ts ON request_log(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_request_log_path ON request_log(path);`,
		`CREATE TABLE IF NOT EXISTS quote_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			code TEXT,
			market TEXT,
			price REAL,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quote_history_ts ON quote_history(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_quote_history_code ON quote_history(code);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertRequest(r RequestRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO request_log (ts, request_id, method, path, status, duration_ms, remote, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TS, r.RequestID, r.Method, r.Path, r.Status, r.DurationMS, r.Remote, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *Store) InsertQuote(q QuoteRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	if q.CreatedAt == "" {
		q.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO quote_history (ts, code, market, price, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.TS, q.Code, q.Market, q.Price, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (s *Store) QueryQuoteHistory(code string, limit, offset int) ([]QuoteRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(
		`SELECT ts, code, market, price, created_at
		 FROM quote_history WHERE code = ?
		 ORDER BY ts DESC LIMIT ? OFFSET ?`,
		code, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query quote history: %w", err)
	}
	defer rows.Close()

	var out []QuoteRecord
	for rows.Next() {
		var q QuoteRecord
		if err := rows.Scan(&q.TS, &q.Code, &q.Market, &q.Price, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote history: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows quote history: %w", err)
	}
	return out, nil
}
