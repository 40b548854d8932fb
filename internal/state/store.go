// internal/state/store.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/user/intervoice/internal/types"
)

// Store is a JSON-file-backed document store. Interviews live in
// interviews.json and feedback in feedback.json under the root directory.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewStore creates a new file-backed Store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) interviewsPath() string { return filepath.Join(s.root, "interviews.json") }

func (s *Store) feedbackPath() string { return filepath.Join(s.root, "feedback.json") }

// loadList reads a JSON array file; a missing file is an empty list.
func loadList[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var items []*T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return items, nil
}

// saveList marshals with indentation and writes atomically.
func saveList[T any](path string, items []*T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func newestFirst(items []*types.Interview) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}

func (s *Store) GetInterview(_ context.Context, id types.InterviewID) (*types.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := loadList[types.Interview](s.interviewsPath())
	if err != nil {
		return nil, err
	}
	for _, iv := range items {
		if iv.ID == id {
			return iv, nil
		}
	}
	return nil, types.ErrNotFound
}

// PutInterview inserts or replaces the interview, allocating an id when
// it has none.
func (s *Store) PutInterview(_ context.Context, interview *types.Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadList[types.Interview](s.interviewsPath())
	if err != nil {
		return err
	}
	if interview.ID == "" {
		interview.ID = types.NewInterviewID()
	}
	replaced := false
	for i, iv := range items {
		if iv.ID == interview.ID {
			items[i] = interview
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, interview)
	}
	return saveList(s.interviewsPath(), items)
}

func (s *Store) LatestInterviews(_ context.Context, excludeUser types.UserID, limit int) ([]*types.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = types.DefaultLatestLimit
	}
	items, err := loadList[types.Interview](s.interviewsPath())
	if err != nil {
		return nil, err
	}
	out := make([]*types.Interview, 0, len(items))
	for _, iv := range items {
		if iv.Finalized && iv.UserID != excludeUser {
			out = append(out, iv)
		}
	}
	newestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) InterviewsByUser(_ context.Context, userID types.UserID) ([]*types.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := loadList[types.Interview](s.interviewsPath())
	if err != nil {
		return nil, err
	}
	out := make([]*types.Interview, 0)
	for _, iv := range items {
		if iv.UserID == userID {
			out = append(out, iv)
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *Store) CreateFeedback(_ context.Context, rec *types.FeedbackRecord) (types.FeedbackID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadList[types.FeedbackRecord](s.feedbackPath())
	if err != nil {
		return "", err
	}
	stored := *rec
	stored.ID = types.NewFeedbackID()
	items = append(items, &stored)
	if err := saveList(s.feedbackPath(), items); err != nil {
		return "", err
	}
	return stored.ID, nil
}

func (s *Store) PutFeedback(_ context.Context, id types.FeedbackID, rec *types.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := loadList[types.FeedbackRecord](s.feedbackPath())
	if err != nil {
		return err
	}
	stored := *rec
	stored.ID = id
	replaced := false
	for i, r := range items {
		if r.ID == id {
			items[i] = &stored
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, &stored)
	}
	return saveList(s.feedbackPath(), items)
}

func (s *Store) FeedbackByInterview(_ context.Context, interviewID types.InterviewID, userID types.UserID) (*types.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := loadList[types.FeedbackRecord](s.feedbackPath())
	if err != nil {
		return nil, err
	}
	var newest *types.FeedbackRecord
	for _, r := range items {
		if r.InterviewID != interviewID || r.UserID != userID {
			continue
		}
		if newest == nil || newerFeedback(r, newest) {
			newest = r
		}
	}
	if newest == nil {
		return nil, types.ErrNotFound
	}
	return newest, nil
}

// newerFeedback orders records of one pair by creation time, then by id.
func newerFeedback(a, b *types.FeedbackRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *Store) CountFeedback(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := loadList[types.FeedbackRecord](s.feedbackPath())
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

// Close is a no-op; every operation opens and closes its own files.
func (s *Store) Close() error { return nil }
