package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/PabloGalante/flashcoach/internal/adapters/storage/memory"
	"github.com/PabloGalante/flashcoach/internal/domain"
)

func TestTeacherStoreConcurrentIncrementStaysCapped(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTeacherStore()
	if err := store.CreateTeacher(ctx, &domain.Teacher{ID: "t1", Email: "a@b.c"}); err != nil {
		t.Fatalf("CreateTeacher failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementFailedFeedback(ctx, "t1", domain.FailedFeedbackCap); err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetTeacher(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTeacher failed: %v", err)
	}
	if got.FailedFeedbackCount != domain.FailedFeedbackCap {
		t.Fatalf("expected counter %d, got %d", domain.FailedFeedbackCap, got.FailedFeedbackCount)
	}
}

func TestTeacherStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTeacherStore()
	_ = store.CreateTeacher(ctx, &domain.Teacher{ID: "t1", Email: "a@b.c"})

	err := store.CreateTeacher(ctx, &domain.Teacher{ID: "t2", Email: "A@B.C"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestTeacherStoreMissingTeacher(t *testing.T) {
	store := memory.NewTeacherStore()
	if _, err := store.ResetFailedFeedback(context.Background(), "nope"); !errors.Is(err, domain.ErrTeacherNotFound) {
		t.Fatalf("expected ErrTeacherNotFound, got %v", err)
	}
}
