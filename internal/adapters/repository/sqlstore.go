package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS score_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	grade TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL,
	ts TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_records_user ON score_records(user_id);
CREATE INDEX IF NOT EXISTS idx_score_records_ts ON score_records(ts);

CREATE TABLE IF NOT EXISTS user_xp (
	user_id TEXT PRIMARY KEY,
	total_xp INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS review_states (
	user_id TEXT NOT NULL,
	card_id TEXT NOT NULL,
	interval_days REAL NOT NULL,
	ease_factor REAL NOT NULL,
	repetitions INTEGER NOT NULL,
	due_at TIMESTAMP NOT NULL,
	last_rating TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, card_id)
);

CREATE TABLE IF NOT EXISTS review_counts (
	user_id TEXT PRIMARY KEY,
	reviews INTEGER NOT NULL DEFAULT 0
);
`

// scoreRow mirrors the score_records table for sqlx scanning.
type scoreRow struct {
	UserID  string    `db:"user_id"`
	Subject string    `db:"subject"`
	Grade   string    `db:"grade"`
	Points  int       `db:"points"`
	TS      time.Time `db:"ts"`
}

// reviewRow mirrors the review_states table for sqlx scanning.
type reviewRow struct {
	UserID       string    `db:"user_id"`
	CardID       string    `db:"card_id"`
	IntervalDays float64   `db:"interval_days"`
	EaseFactor   float64   `db:"ease_factor"`
	Repetitions  int       `db:"repetitions"`
	DueAt        time.Time `db:"due_at"`
	LastRating   string    `db:"last_rating"`
}

// SQLStore implements Store on a SQL database through sqlx. The default
// deployment uses sqlite; a single writer connection is enforced since
// sqlite does not support concurrent writers.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore opens the database, applies the schema, and returns the
// store.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrStoreUnavailable, driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("%w: enable foreign keys: %w", ErrStoreUnavailable, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("%w: apply schema: %w", ErrStoreUnavailable, err)
	}
	return &SQLStore{db: db}, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Append implements ScoreStore.
func (s *SQLStore) Append(ctx context.Context, record model.ScoreRecord) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if record.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	}
	if record.Points < 0 {
		return fmt.Errorf("%w: negative points %d", ErrInvalidRecord, record.Points)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO score_records (user_id, subject, grade, points, ts) VALUES (?, ?, ?, ?, ?)`,
		record.UserID, record.Subject, record.Grade, record.Points, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("%w: append score record: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Query implements ScoreStore.
func (s *SQLStore) Query(ctx context.Context, scope model.Scope, since time.Time) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	query := `SELECT user_id, subject, grade, points, ts FROM score_records WHERE 1=1`
	args := make([]any, 0, 2)
	switch scope.Level {
	case model.ScopeSubject:
		query += ` AND subject = ?`
		args = append(args, scope.Value)
	case model.ScopeGrade:
		query += ` AND grade = ?`
		args = append(args, scope.Value)
	}
	if !since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, since)
	}

	var rows []scoreRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: query score records: %w", ErrStoreUnavailable, err)
	}
	return toRecords(rows), nil
}

// QueryUser implements ScoreStore.
func (s *SQLStore) QueryUser(ctx context.Context, userID string) ([]model.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT user_id, subject, grade, points, ts FROM score_records WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query user records: %w", ErrStoreUnavailable, err)
	}
	return toRecords(rows), nil
}

// CountRecords implements ScoreStore.
func (s *SQLStore) CountRecords(ctx context.Context) int {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM score_records`); err != nil {
		return 0
	}
	return n
}

// CountLearners implements ScoreStore.
func (s *SQLStore) CountLearners(ctx context.Context) int {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT user_id) FROM score_records`); err != nil {
		return 0
	}
	return n
}

// Increment implements XPStore with an upsert inside a transaction so the
// read-back total observes this grant exactly once.
func (s *SQLStore) Increment(ctx context.Context, userID string, amount int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin xp increment: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_xp (user_id, total_xp) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET total_xp = total_xp + excluded.total_xp`,
		userID, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: increment xp: %w", ErrStoreUnavailable, err)
	}

	var total int
	if err := tx.GetContext(ctx, &total, `SELECT total_xp FROM user_xp WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("%w: read xp total: %w", ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit xp increment: %w", ErrStoreUnavailable, err)
	}
	return total, nil
}

// Total implements XPStore.
func (s *SQLStore) Total(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `SELECT total_xp FROM user_xp WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read xp total: %w", ErrStoreUnavailable, err)
	}
	return total, nil
}

// Get implements FlashcardStore.
func (s *SQLStore) Get(ctx context.Context, userID, cardID string) (model.ReviewState, error) {
	var row reviewRow
	err := s.db.GetContext(ctx, &row,
		`SELECT user_id, card_id, interval_days, ease_factor, repetitions, due_at, last_rating
		 FROM review_states WHERE user_id = ? AND card_id = ?`, userID, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewReviewState(userID, cardID), nil
	}
	if err != nil {
		return model.ReviewState{}, fmt.Errorf("%w: read review state: %w", ErrStoreUnavailable, err)
	}
	return model.ReviewState{
		UserID:       row.UserID,
		CardID:       row.CardID,
		IntervalDays: row.IntervalDays,
		EaseFactor:   row.EaseFactor,
		Repetitions:  row.Repetitions,
		DueAt:        row.DueAt,
		LastRating:   model.Rating(row.LastRating),
	}, nil
}

// Put implements FlashcardStore.
func (s *SQLStore) Put(ctx context.Context, state model.ReviewState) error {
	if state.UserID == "" || state.CardID == "" {
		return fmt.Errorf("%w: review state missing user or card id", ErrInvalidRecord)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin review put: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_states (user_id, card_id, interval_days, ease_factor, repetitions, due_at, last_rating)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, card_id) DO UPDATE SET
			interval_days = excluded.interval_days,
			ease_factor = excluded.ease_factor,
			repetitions = excluded.repetitions,
			due_at = excluded.due_at,
			last_rating = excluded.last_rating`,
		state.UserID, state.CardID, state.IntervalDays, state.EaseFactor,
		state.Repetitions, state.DueAt, string(state.LastRating),
	)
	if err != nil {
		return fmt.Errorf("%w: write review state: %w", ErrStoreUnavailable, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_counts (user_id, reviews) VALUES (?, 1)
		 ON CONFLICT(user_id) DO UPDATE SET reviews = reviews + 1`,
		state.UserID,
	)
	if err != nil {
		return fmt.Errorf("%w: count review: %w", ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit review put: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// ReviewCount implements FlashcardStore.
func (s *SQLStore) ReviewCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT reviews FROM review_counts WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read review count: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

func toRecords(rows []scoreRow) []model.ScoreRecord {
	out := make([]model.ScoreRecord, len(rows))
	for i, r := range rows {
		out[i] = model.ScoreRecord{
			UserID:    r.UserID,
			Subject:   r.Subject,
			Grade:     r.Grade,
			Points:    r.Points,
			Timestamp: r.TS,
		}
	}
	return out
}
