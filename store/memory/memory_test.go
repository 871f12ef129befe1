package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	moderation "github.com/heibot/moderation"
)

func rec(approved bool, score int) moderation.Record {
	return moderation.Record{
		ContentType: moderation.ContentComment,
		ContentID:   "c-1",
		ParentID:    "p-1",
		Result:      moderation.Result{Approved: approved, SafetyScore: score, Flags: []string{"x"}},
	}
}

func TestStore_Revisions(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.SaveRecord(ctx, rec(true, 92))
	if err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}
	second, err := s.SaveRecord(ctx, rec(false, 10))
	if err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}

	if first.ID == "" || first.ID != second.ID {
		t.Errorf("IDs = %q, %q; want stable non-empty ID", first.ID, second.ID)
	}
	if first.Revision != 1 || second.Revision != 2 {
		t.Errorf("revisions = %d, %d; want 1, 2", first.Revision, second.Revision)
	}

	cur, err := s.GetRecord(ctx, moderation.ContentComment, "c-1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if cur.Approved || cur.SafetyScore != 10 {
		t.Errorf("current = %+v, want latest revision", cur)
	}

	hist, _ := s.ListHistory(ctx, moderation.ContentComment, "c-1", 0)
	if len(hist) != 2 || hist[0].Revision != 2 || hist[1].Revision != 1 {
		t.Errorf("history = %+v", hist)
	}
	hist, _ = s.ListHistory(ctx, moderation.ContentComment, "c-1", 1)
	if len(hist) != 1 || hist[0].Revision != 2 {
		t.Errorf("limited history = %+v", hist)
	}
}

func TestStore_Isolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.SaveRecord(ctx, rec(true, 92))

	got, _ := s.GetRecord(ctx, moderation.ContentComment, "c-1")
	got.Result.Flags[0] = "mutated"

	again, _ := s.GetRecord(ctx, moderation.ContentComment, "c-1")
	if again.Result.Flags[0] != "x" {
		t.Error("stored record was mutated through a returned copy")
	}
}

func TestStore_Errors(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetRecord(ctx, moderation.ContentPost, "nope"); !errors.Is(err, moderation.ErrRecordNotFound) {
		t.Errorf("GetRecord() error = %v, want ErrRecordNotFound", err)
	}
	if _, err := s.SaveRecord(ctx, moderation.Record{}); !moderation.IsValidationError(err) {
		t.Errorf("SaveRecord() error = %v, want ValidationError", err)
	}

	stale := rec(true, 90)
	stale.Revision = 3
	if _, err := s.SaveRecord(ctx, stale); !errors.Is(err, moderation.ErrRevisionConflict) {
		t.Errorf("SaveRecord() error = %v, want ErrRevisionConflict", err)
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.SaveRecord(ctx, rec(true, 80))
		}()
	}
	wg.Wait()

	cur, _ := s.GetRecord(ctx, moderation.ContentComment, "c-1")
	if cur.Revision != 20 {
		t.Errorf("Revision = %d, want 20", cur.Revision)
	}
}
