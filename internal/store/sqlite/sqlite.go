// Package sqlite stores interviews and feedback in an embedded SQLite
// database. Records are kept as JSON bodies next to the columns the
// queries filter and sort on.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/user/intervoice/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS interviews (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	finalized  INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS interviews_user ON interviews (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS interviews_latest ON interviews (finalized, created_at DESC);

CREATE TABLE IF NOT EXISTS feedback (
	id           TEXT PRIMARY KEY,
	interview_id TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	body         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS feedback_pair ON feedback (interview_id, user_id);
`

// Store is a SQLite implementation of types.Store.
type Store struct {
	db *sql.DB
}

var _ types.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every ":memory:" connection is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetInterview(ctx context.Context, id types.InterviewID) (*types.Interview, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM interviews WHERE id = ?`, string(id))
	var iv types.Interview
	if err := scanBody(row, &iv); err != nil {
		return nil, fmt.Errorf("get interview %s: %w", id, err)
	}
	return &iv, nil
}

func (s *Store) PutInterview(ctx context.Context, iv *types.Interview) error {
	if iv.ID == "" {
		iv.ID = types.NewInterviewID()
	}
	body, err := json.Marshal(iv)
	if err != nil {
		return fmt.Errorf("marshal interview: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interviews (id, user_id, finalized, created_at, body) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			finalized = excluded.finalized,
			created_at = excluded.created_at,
			body = excluded.body`,
		string(iv.ID), string(iv.UserID), iv.Finalized, iv.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return fmt.Errorf("put interview %s: %w", iv.ID, err)
	}
	return nil
}

func (s *Store) LatestInterviews(ctx context.Context, excludeUser types.UserID, limit int) ([]*types.Interview, error) {
	if limit <= 0 {
		limit = types.DefaultLatestLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM interviews
		WHERE finalized = 1 AND user_id != ?
		ORDER BY created_at DESC LIMIT ?`, string(excludeUser), limit)
	if err != nil {
		return nil, fmt.Errorf("query latest interviews: %w", err)
	}
	return scanInterviews(rows)
}

func (s *Store) InterviewsByUser(ctx context.Context, userID types.UserID) ([]*types.Interview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM interviews WHERE user_id = ? ORDER BY created_at DESC`, string(userID))
	if err != nil {
		return nil, fmt.Errorf("query interviews by user: %w", err)
	}
	return scanInterviews(rows)
}

func (s *Store) CreateFeedback(ctx context.Context, rec *types.FeedbackRecord) (types.FeedbackID, error) {
	stored := *rec
	stored.ID = types.NewFeedbackID()
	body, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("marshal feedback: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, interview_id, user_id, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		string(stored.ID), string(stored.InterviewID), string(stored.UserID), stored.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return "", fmt.Errorf("insert feedback: %w", err)
	}
	return stored.ID, nil
}

func (s *Store) PutFeedback(ctx context.Context, id types.FeedbackID, rec *types.FeedbackRecord) error {
	stored := *rec
	stored.ID = id
	body, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, interview_id, user_id, created_at, body) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			interview_id = excluded.interview_id,
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			body = excluded.body`,
		string(id), string(stored.InterviewID), string(stored.UserID), stored.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return fmt.Errorf("put feedback %s: %w", id, err)
	}
	return nil
}

func (s *Store) FeedbackByInterview(ctx context.Context, interviewID types.InterviewID, userID types.UserID) (*types.FeedbackRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT body FROM feedback WHERE interview_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, string(interviewID), string(userID))
	var rec types.FeedbackRecord
	if err := scanBody(row, &rec); err != nil {
		return nil, fmt.Errorf("get feedback for %s: %w", interviewID, err)
	}
	return &rec, nil
}

func (s *Store) CountFeedback(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

func scanBody(row *sql.Row, v any) error {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func scanInterviews(rows *sql.Rows) ([]*types.Interview, error) {
	defer rows.Close()
	out := make([]*types.Interview, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		var iv types.Interview
		if err := json.Unmarshal([]byte(body), &iv); err != nil {
			return nil, fmt.Errorf("decode interview: %w", err)
		}
		out = append(out, &iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
