// Package store persists research brief records in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Brief statuses persisted for the record lifecycle.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Brief is one research brief record. Result is nil until the pipeline
// completes; ErrorMessage is empty unless it failed.
type Brief struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	RawURLs      []string        `json:"raw_urls"`
	Result       json.RawMessage `json:"result"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// CreateBrief inserts a new record in processing state and returns it.
func (s *Store) CreateBrief(ctx context.Context, urls []string) (Brief, error) {
	id := uuid.NewString()
	rawURLs, err := json.Marshal(urls)
	if err != nil {
		return Brief{}, err
	}
	var createdAt time.Time
	err = s.DB.QueryRowContext(ctx,
		`INSERT INTO research_briefs (id, raw_urls, status) VALUES ($1,$2,$3) RETURNING created_at`,
		id, rawURLs, StatusProcessing,
	).Scan(&createdAt)
	if err != nil {
		return Brief{}, fmt.Errorf("create brief: %w", err)
	}
	return Brief{ID: id, CreatedAt: createdAt, RawURLs: urls, Status: StatusProcessing}, nil
}

// GetBrief loads one record by id. The second return reports existence.
func (s *Store) GetBrief(ctx context.Context, id string) (Brief, bool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, created_at, raw_urls, result, status, error_message FROM research_briefs WHERE id=$1`, id)
	b, err := scanBrief(row)
	if err == sql.ErrNoRows {
		return Brief{}, false, nil
	}
	if err != nil {
		return Brief{}, false, fmt.Errorf("get brief: %w", err)
	}
	return b, true, nil
}

// ListRecentBriefs returns the newest records, newest first.
func (s *Store) ListRecentBriefs(ctx context.Context, limit int) ([]Brief, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, created_at, raw_urls, result, status, error_message FROM research_briefs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list briefs: %w", err)
	}
	defer rows.Close()

	briefs := []Brief{}
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			return nil, fmt.Errorf("list briefs: %w", err)
		}
		briefs = append(briefs, b)
	}
	return briefs, rows.Err()
}

// CompleteBrief stores the result and marks the record completed.
func (s *Store) CompleteBrief(ctx context.Context, id string, result json.RawMessage) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE research_briefs SET result=$2, status=$3, error_message=NULL WHERE id=$1`,
		id, []byte(result), StatusCompleted)
	if err != nil {
		return fmt.Errorf("complete brief: %w", err)
	}
	return nil
}

// FailBrief marks the record failed with the given message.
func (s *Store) FailBrief(ctx context.Context, id string, message string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE research_briefs SET status=$2, error_message=$3 WHERE id=$1`,
		id, StatusFailed, message)
	if err != nil {
		return fmt.Errorf("fail brief: %w", err)
	}
	return nil
}

// Ping reports whether the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBrief(row rowScanner) (Brief, error) {
	var (
		b       Brief
		rawURLs []byte
		result  []byte
		errMsg  sql.NullString
	)
	if err := row.Scan(&b.ID, &b.CreatedAt, &rawURLs, &result, &b.Status, &errMsg); err != nil {
		return Brief{}, err
	}
	if err := json.Unmarshal(rawURLs, &b.RawURLs); err != nil {
		return Brief{}, fmt.Errorf("decode raw_urls: %w", err)
	}
	if len(result) > 0 {
		b.Result = json.RawMessage(result)
	}
	if errMsg.Valid {
		b.ErrorMessage = errMsg.String
	}
	return b, nil
}
