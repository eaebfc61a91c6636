// Package usage keeps a ledger of AI generations in SQLite.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/storyforge/internal/db"
)

// Outcome values stored per generation.
const (
	OutcomeOK          = "ok"
	OutcomeAuth        = "auth"
	OutcomeRateLimit   = "rate_limit"
	OutcomeTimeout     = "timeout"
	OutcomeMalformed   = "malformed"
	OutcomeUnavailable = "unavailable"
)

// timeLayout sorts lexicographically in time order.
const timeLayout = "2006-01-02 15:04:05.000000"

// Entry is one recorded generation attempt.
type Entry struct {
	ID           string
	CreatedAt    time.Time
	Task         string
	Provider     string
	Model        string
	ProjectID    string
	ChapterID    string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
	Outcome      string
}

// Summary aggregates the ledger.
type Summary struct {
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	ByTask       map[string]int
	ByOutcome    map[string]int
}

// Store provides ledger operations.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Record inserts e. Empty ID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (
			id, created_at, task, provider, model, project_id, chapter_id,
			input_tokens, output_tokens, cost_usd, duration_ms, outcome
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CreatedAt.UTC().Format(timeLayout),
		e.Task,
		e.Provider,
		e.Model,
		e.ProjectID,
		e.ChapterID,
		e.InputTokens,
		e.OutputTokens,
		e.CostUSD,
		e.Duration.Milliseconds(),
		e.Outcome,
	)
	if err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}
	return nil
}

// Summarize aggregates every entry, or only those for projectID when it is
// not empty.
func (s *Store) Summarize(ctx context.Context, projectID string) (*Summary, error) {
	where, args := "", []any{}
	if projectID != "" {
		where = " WHERE project_id = ?"
		args = append(args, projectID)
	}

	sum := &Summary{ByTask: map[string]int{}, ByOutcome: map[string]int{}}
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome != 'ok' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cost_usd), 0)
		FROM generations`+where, args...)
	if err := row.Scan(&sum.Requests, &sum.Failures, &sum.InputTokens, &sum.OutputTokens, &sum.CostUSD); err != nil {
		return nil, fmt.Errorf("summing generations: %w", err)
	}

	if err := s.countBy(ctx, "task", where, args, sum.ByTask); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "outcome", where, args, sum.ByOutcome); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) countBy(ctx context.Context, column, where string, args []any, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM generations"+where+" GROUP BY "+column, args...)
	if err != nil {
		return fmt.Errorf("grouping generations by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning %s group: %w", column, err)
		}
		into[key] = n
	}
	return rows.Err()
}

// Recent returns the newest entries, at most limit of them.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, task, provider, model, project_id, chapter_id,
		       input_tokens, output_tokens, cost_usd, duration_ms, outcome
		FROM generations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
			ms        int64
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.Task, &e.Provider, &e.Model, &e.ProjectID, &e.ChapterID,
			&e.InputTokens, &e.OutputTokens, &e.CostUSD, &ms, &e.Outcome); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
