package memory_test

import (
	"context"
	"testing"

	"github.com/PabloGalante/flashcoach/internal/adapters/storage/memory"
	"github.com/PabloGalante/flashcoach/internal/domain"
)

func TestHistoryStoreRecordFeedback(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()

	_ = store.AppendMessage(ctx, "t1", &domain.Message{ID: "m1", SessionID: "s1", Sender: domain.RoleUser, Text: "hi"})
	_ = store.AppendMessage(ctx, "t1", &domain.Message{ID: "m2", SessionID: "s1", Sender: domain.RoleAssistant, Text: "hello"})

	applied, err := store.RecordFeedback(ctx, "t1", "s1", "m2", domain.FeedbackDidNotWork)
	if err != nil || !applied {
		t.Fatalf("expected first feedback to apply, got applied=%v err=%v", applied, err)
	}

	applied, _ = store.RecordFeedback(ctx, "t1", "s1", "m2", domain.FeedbackDidNotWork)
	if applied {
		t.Fatalf("expected repeated feedback to be a no-op")
	}

	applied, _ = store.RecordFeedback(ctx, "t2", "s1", "m2", domain.FeedbackWorked)
	if applied {
		t.Fatalf("expected feedback for another teacher to be a no-op")
	}

	applied, _ = store.RecordFeedback(ctx, "t1", "s1", "m2", domain.FeedbackWorked)
	if !applied {
		t.Fatalf("expected a different value to apply")
	}

	history, _ := store.GetHistory(ctx, "t1")
	if len(history) != 1 || len(history[0].Messages) != 2 {
		t.Fatalf("unexpected history shape: %+v", history)
	}
	if history[0].Messages[1].FeedbackStatus != domain.FeedbackWorked {
		t.Fatalf("expected feedback to be stored, got %q", history[0].Messages[1].FeedbackStatus)
	}
}
