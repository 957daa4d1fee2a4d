package feedback_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/PabloGalante/flashcoach/internal/adapters/storage/memory"
	"github.com/PabloGalante/flashcoach/internal/app/counter"
	"github.com/PabloGalante/flashcoach/internal/app/escalation"
	"github.com/PabloGalante/flashcoach/internal/app/feedback"
	"github.com/PabloGalante/flashcoach/internal/domain"
)

// scriptedNotifier returns the queued errors in order, then nil.
type scriptedNotifier struct {
	configured bool
	errs       []error
	attempts   int
}

func (n *scriptedNotifier) Configured() bool { return n.configured }

func (n *scriptedNotifier) SendEscalation(context.Context, domain.EscalationNotice) error {
	n.attempts++
	if len(n.errs) == 0 {
		return nil
	}
	err := n.errs[0]
	n.errs = n.errs[1:]
	return err
}

type fixture struct {
	svc      *feedback.Service
	teachers *memory.TeacherStore
	history  *memory.HistoryStore
}

func newFixture(t *testing.T, n domain.Notifier) *fixture {
	t.Helper()
	ctx := context.Background()

	teachers := memory.NewTeacherStore()
	history := memory.NewHistoryStore()

	if err := teachers.CreateTeacher(ctx, &domain.Teacher{ID: "t1", Name: "Asha", Email: "asha@school.test"}); err != nil {
		t.Fatalf("CreateTeacher failed: %v", err)
	}
	for i := 1; i <= 6; i++ {
		msg := &domain.Message{
			ID:        domain.MessageID(fmt.Sprintf("m%d", i)),
			SessionID: "s1",
			Sender:    domain.RoleAssistant,
			Text:      "advice",
		}
		if err := history.AppendMessage(ctx, "t1", msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	policy := counter.NewPolicy(teachers)
	trigger := escalation.NewTrigger(teachers, policy, n)

	return &fixture{
		svc:      feedback.NewService(history, policy, trigger),
		teachers: teachers,
		history:  history,
	}
}

func (f *fixture) submit(t *testing.T, msgID string, value domain.FeedbackValue) *feedback.Result {
	t.Helper()

	res, err := f.svc.ProcessFeedback(context.Background(), feedback.Input{
		TeacherID: "t1",
		SessionID: "s1",
		MessageID: domain.MessageID(msgID),
		Feedback:  value,
	})
	if err != nil {
		t.Fatalf("ProcessFeedback failed: %v", err)
	}
	return res
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()

	teacher, err := f.teachers.GetTeacher(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTeacher failed: %v", err)
	}
	return teacher.FailedFeedbackCount
}

func TestThreeNegativesEscalateAndReset(t *testing.T) {
	n := &scriptedNotifier{configured: true}
	f := newFixture(t, n)

	for i, want := range []int{1, 2} {
		res := f.submit(t, fmt.Sprintf("m%d", i+1), domain.FeedbackDidNotWork)
		if res.Escalation.Triggered || res.Escalation.NegativeCount != want {
			t.Fatalf("event %d: unexpected escalation %+v", i+1, res.Escalation)
		}
		if res.Message != "Feedback recorded" {
			t.Fatalf("event %d: unexpected message %q", i+1, res.Message)
		}
	}

	res := f.submit(t, "m3", domain.FeedbackDidNotWork)
	ev := res.Escalation
	if !ev.Triggered || ev.Status != domain.EscalationSent || ev.CountBefore != 3 || ev.CountAfter != 0 {
		t.Fatalf("unexpected escalation %+v", ev)
	}
	if res.Message != "Feedback recorded. Escalation processed." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if got := f.count(t); got != 0 {
		t.Fatalf("expected counter 0, got %d", got)
	}
}

// While the counter sits at the cap after a failed delivery, every new
// negative event attempts the escalation again.
func TestFailedDeliveryRetriesOnNextNegative(t *testing.T) {
	n := &scriptedNotifier{configured: true, errs: []error{errors.New("connection refused")}}
	f := newFixture(t, n)

	f.submit(t, "m1", domain.FeedbackDidNotWork)
	f.submit(t, "m2", domain.FeedbackDidNotWork)

	res := f.submit(t, "m3", domain.FeedbackDidNotWork)
	if res.Escalation.Status != domain.EscalationFailed || res.Escalation.CountAfter != 3 || res.Escalation.Error == "" {
		t.Fatalf("unexpected escalation %+v", res.Escalation)
	}
	if got := f.count(t); got != 3 {
		t.Fatalf("expected counter to stay at 3, got %d", got)
	}

	res = f.submit(t, "m4", domain.FeedbackDidNotWork)
	if !res.Escalation.Triggered || res.Escalation.CountBefore != 3 || res.Escalation.Status != domain.EscalationSent {
		t.Fatalf("expected re-trigger at cap, got %+v", res.Escalation)
	}
	if n.attempts != 2 {
		t.Fatalf("expected 2 delivery attempts, got %d", n.attempts)
	}
	if got := f.count(t); got != 0 {
		t.Fatalf("expected counter 0 after successful retry, got %d", got)
	}
}

func TestRepeatedFeedbackIsNoop(t *testing.T) {
	f := newFixture(t, &scriptedNotifier{configured: true})

	f.submit(t, "m1", domain.FeedbackDidNotWork)
	res := f.submit(t, "m1", domain.FeedbackDidNotWork)

	if res.Escalation.Status != domain.EscalationNoChange || res.Escalation.Triggered {
		t.Fatalf("unexpected escalation %+v", res.Escalation)
	}
	if res.Message != "Feedback already recorded (no change)" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if got := f.count(t); got != 1 {
		t.Fatalf("expected counter untouched at 1, got %d", got)
	}
}

func TestUnknownMessageIsNoop(t *testing.T) {
	f := newFixture(t, &scriptedNotifier{configured: true})
	f.teachers.SetFailedFeedback("t1", 2)

	res := f.submit(t, "does-not-exist", domain.FeedbackWorked)
	if res.Escalation.Status != domain.EscalationNoChange {
		t.Fatalf("unexpected escalation %+v", res.Escalation)
	}
	if got := f.count(t); got != 2 {
		t.Fatalf("expected counter untouched at 2, got %d", got)
	}
}

func TestPositiveFeedbackResetsCounter(t *testing.T) {
	for _, value := range []domain.FeedbackValue{domain.FeedbackWorked, domain.FeedbackPartiallyWorked} {
		f := newFixture(t, &scriptedNotifier{configured: true})
		f.teachers.SetFailedFeedback("t1", 2)

		res := f.submit(t, "m1", value)
		if res.Escalation.Triggered || res.Escalation.Status != "" {
			t.Fatalf("%s: unexpected escalation %+v", value, res.Escalation)
		}
		if res.Message != "Feedback recorded. Count reset." {
			t.Fatalf("%s: unexpected message %q", value, res.Message)
		}
		if got := f.count(t); got != 0 {
			t.Fatalf("%s: expected counter 0, got %d", value, got)
		}
	}
}

func TestUnconfiguredChannelNeverEscalates(t *testing.T) {
	n := &scriptedNotifier{configured: false}
	f := newFixture(t, n)

	var res *feedback.Result
	for i := 1; i <= 5; i++ {
		res = f.submit(t, fmt.Sprintf("m%d", i), domain.FeedbackDidNotWork)
		if res.Escalation.Triggered {
			t.Fatalf("event %d: escalation must not fire without config", i)
		}
	}
	if res.Escalation.Status != domain.EscalationConfigMissing || res.Escalation.NegativeCount != 3 {
		t.Fatalf("unexpected escalation %+v", res.Escalation)
	}
	if n.attempts != 0 {
		t.Fatalf("expected no delivery attempts, got %d", n.attempts)
	}
}
