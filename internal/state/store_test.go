// internal/state/store_test.go
package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/intervoice/internal/store/storetest"
	"github.com/user/intervoice/internal/types"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		return NewStore(t.TempDir())
	})
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	id, err := NewStore(dir).CreateFeedback(ctx, &types.FeedbackRecord{InterviewID: "iv", UserID: "u", TotalScore: 5})
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(dir).FeedbackByInterview(ctx, "iv", "u")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id {
		t.Errorf("expected id %s, got %s", id, got.ID)
	}
	if _, err := os.Stat(filepath.Join(dir, "feedback.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestStorePutInterviewAssignsID(t *testing.T) {
	s := NewStore(t.TempDir())
	iv := &types.Interview{UserID: "u"}
	if err := s.PutInterview(context.Background(), iv); err != nil {
		t.Fatal(err)
	}
	if iv.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := s.GetInterview(context.Background(), iv.ID); err != nil {
		t.Fatal(err)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "interviews.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(dir).GetInterview(context.Background(), "x"); err == nil {
		t.Error("expected error for corrupt file")
	}
}
