package counter_test

import (
	"context"
	"testing"

	"github.com/PabloGalante/flashcoach/internal/adapters/storage/memory"
	"github.com/PabloGalante/flashcoach/internal/app/counter"
	"github.com/PabloGalante/flashcoach/internal/domain"
)

func newPolicy(t *testing.T) *counter.Policy {
	t.Helper()

	store := memory.NewTeacherStore()
	if err := store.CreateTeacher(context.Background(), &domain.Teacher{ID: "t1", Email: "t1@school.test"}); err != nil {
		t.Fatalf("CreateTeacher failed: %v", err)
	}
	return counter.NewPolicy(store)
}

func TestIncrementCappedYieldsMinNThree(t *testing.T) {
	for n := 1; n <= 7; n++ {
		p := newPolicy(t)

		var got *domain.Teacher
		var err error
		for i := 0; i < n; i++ {
			got, err = p.IncrementCapped(context.Background(), "t1")
			if err != nil {
				t.Fatalf("IncrementCapped failed: %v", err)
			}
		}

		if want := min(n, 3); got.FailedFeedbackCount != want {
			t.Fatalf("after %d increments expected %d, got %d", n, want, got.FailedFeedbackCount)
		}
	}
}

func TestResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newPolicy(t)

	_, _ = p.IncrementCapped(ctx, "t1")
	_, _ = p.IncrementCapped(ctx, "t1")

	for i := 0; i < 2; i++ {
		got, err := p.Reset(ctx, "t1")
		if err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if got.FailedFeedbackCount != 0 {
			t.Fatalf("expected 0 after reset, got %d", got.FailedFeedbackCount)
		}
	}
}

func TestMissingTeacherIsNoop(t *testing.T) {
	p := newPolicy(t)

	got, err := p.IncrementCapped(context.Background(), "ghost")
	if err != nil || got != nil {
		t.Fatalf("expected nil teacher and nil error, got %v, %v", got, err)
	}

	got, err = p.Reset(context.Background(), "ghost")
	if err != nil || got != nil {
		t.Fatalf("expected nil teacher and nil error, got %v, %v", got, err)
	}
}
