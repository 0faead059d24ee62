package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements PredictionLog using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_kind_created_at ON predictions(kind, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts a prediction, assigning ID and CreatedAt when unset.
func (s *SQLiteStorage) Record(ctx context.Context, p *Prediction) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	input, output := string(p.Input), string(p.Output)
	if input == "" {
		input = "null"
	}
	if output == "" {
		output = "null"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, kind, input, output, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, string(p.Kind), input, output, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit predictions, newest first. An empty kind matches all.
func (s *SQLiteStorage) Recent(ctx context.Context, kind Kind, limit int) ([]*Prediction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, input, output, created_at
		 FROM predictions WHERE (? = '' OR kind = ?)
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(kind), string(kind), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prediction
	for rows.Next() {
		var p Prediction
		var k, input, output string
		if err := rows.Scan(&p.ID, &k, &input, &output, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Kind = Kind(k)
		p.Input = []byte(input)
		p.Output = []byte(output)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Count returns the number of predictions of kind; an empty kind counts all.
func (s *SQLiteStorage) Count(ctx context.Context, kind Kind) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM predictions WHERE (? = '' OR kind = ?)`,
		string(kind), string(kind),
	).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
