package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PabloGalante/flashcoach/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/flashcoach/internal/domain"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "flashcoach.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	err = store.CreateTeacher(context.Background(), &domain.Teacher{
		ID:           "t1",
		Name:         "Asha",
		Email:        "asha@school.test",
		PasswordHash: "hash",
		MentorEmail:  "crp@school.test",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTeacher failed: %v", err)
	}
	return store
}

func TestTeacherRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	got, err := store.GetTeacherByEmail(ctx, "ASHA@school.test")
	if err != nil {
		t.Fatalf("GetTeacherByEmail failed: %v", err)
	}
	if got.ID != "t1" || got.MentorEmail != "crp@school.test" || got.LastLogin != nil {
		t.Fatalf("unexpected teacher %+v", got)
	}

	err = store.CreateTeacher(ctx, &domain.Teacher{ID: "t2", Name: "X", Email: "asha@school.test", PasswordHash: "h"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	now := time.Now()
	if err := store.UpdateLastLogin(ctx, "t1", now); err != nil {
		t.Fatalf("UpdateLastLogin failed: %v", err)
	}
	got, _ = store.GetTeacher(ctx, "t1")
	if got.LastLogin == nil || got.LastLogin.UnixMilli() != now.UnixMilli() {
		t.Fatalf("unexpected last login %v", got.LastLogin)
	}

	if _, err := store.GetTeacher(ctx, "ghost"); !errors.Is(err, domain.ErrTeacherNotFound) {
		t.Fatalf("expected ErrTeacherNotFound, got %v", err)
	}
}

func TestIncrementIsCappedAndAtomic(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementFailedFeedback(ctx, "t1", domain.FailedFeedbackCap); err != nil {
				t.Errorf("IncrementFailedFeedback failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetTeacher(ctx, "t1")
	if got.FailedFeedbackCount != 3 {
		t.Fatalf("expected counter 3, got %d", got.FailedFeedbackCount)
	}

	got, err := store.ResetFailedFeedback(ctx, "t1")
	if err != nil || got.FailedFeedbackCount != 0 {
		t.Fatalf("expected reset to 0, got %v, %v", got, err)
	}

	if _, err := store.IncrementFailedFeedback(ctx, "ghost", 3); !errors.Is(err, domain.ErrTeacherNotFound) {
		t.Fatalf("expected ErrTeacherNotFound, got %v", err)
	}
}

func TestHistoryAndFeedback(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	msgs := []*domain.Message{
		{ID: "m1", SessionID: "s1", Sender: domain.RoleUser, Text: "class is noisy", CreatedAt: time.Now()},
		{ID: "m2", SessionID: "s1", Sender: domain.RoleAssistant, Text: "{}", CreatedAt: time.Now()},
		{ID: "m3", SessionID: "s2", Sender: domain.RoleUser, Text: "homework", CreatedAt: time.Now()},
	}
	for _, m := range msgs {
		if err := store.AppendMessage(ctx, "t1", m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	applied, err := store.RecordFeedback(ctx, "t1", "s1", "m2", domain.FeedbackDidNotWork)
	if err != nil || !applied {
		t.Fatalf("expected feedback to apply, got %v, %v", applied, err)
	}
	if applied, _ := store.RecordFeedback(ctx, "t1", "s1", "m2", domain.FeedbackDidNotWork); applied {
		t.Fatalf("expected repeated feedback to be a no-op")
	}
	if applied, _ := store.RecordFeedback(ctx, "t1", "s2", "m2", domain.FeedbackWorked); applied {
		t.Fatalf("expected wrong session to be a no-op")
	}

	history, err := store.GetHistory(ctx, "t1")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 || history[0].ID != "s1" || len(history[0].Messages) != 2 || len(history[1].Messages) != 1 {
		t.Fatalf("unexpected history shape")
	}
	if history[0].Messages[1].FeedbackStatus != domain.FeedbackDidNotWork {
		t.Fatalf("unexpected feedback %q", history[0].Messages[1].FeedbackStatus)
	}
	if history[0].Messages[0].FeedbackStatus != "" {
		t.Fatalf("expected unset feedback on user message")
	}
}

func TestCreateTeacherConstraintErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.CreateTeacher(ctx, &domain.Teacher{ID: "t3", Name: "Y", Email: "Asha@School.test", PasswordHash: "h"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for a case-insensitive clash, got %v", err)
	}

	err = store.CreateTeacher(ctx, &domain.Teacher{ID: "t1", Name: "Z", Email: "other@school.test", PasswordHash: "h"})
	if err == nil || errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected a non-email error for a duplicate id, got %v", err)
	}
}
