package escalation

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/flashcoach/internal/app/counter"
	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

// Trigger decides whether a teacher's mentor must be notified and applies
// the reset rules around the notification.
type Trigger struct {
	teachers domain.TeacherStore
	counter  *counter.Policy
	notifier domain.Notifier
}

func NewTrigger(teachers domain.TeacherStore, policy *counter.Policy, notifier domain.Notifier) *Trigger {
	return &Trigger{
		teachers: teachers,
		counter:  policy,
		notifier: notifier,
	}
}

// Evaluate must run right after the counter was incremented for a
// negative feedback event.
//
// The threshold check is an exact match against the cap. Because the
// counter stays at the cap after a failed delivery, every further negative
// event re-attempts the notification until one succeeds.
func (t *Trigger) Evaluate(ctx context.Context, teacherID domain.TeacherID, sessionID domain.SessionID) (domain.EscalationEvent, error) {
	log := observability.LoggerFromContext(ctx).With(
		"teacher_id", teacherID,
		"session_id", sessionID,
	)

	teacher, err := t.teachers.GetTeacher(ctx, teacherID)
	if errors.Is(err, domain.ErrTeacherNotFound) {
		log.Warn("escalation skipped, teacher not found")
		return domain.EscalationEvent{Status: domain.EscalationTeacherNotFound}, nil
	}
	if err != nil {
		return domain.EscalationEvent{}, fmt.Errorf("load teacher: %w", err)
	}

	current := teacher.FailedFeedbackCount

	if t.notifier == nil || !t.notifier.Configured() {
		log.Warn("escalation skipped, email sender or password missing")
		return domain.EscalationEvent{
			Status:        domain.EscalationConfigMissing,
			NegativeCount: current,
		}, nil
	}

	if current != domain.FailedFeedbackCap {
		return domain.EscalationEvent{
			Status:        domain.EscalationCountUpdate,
			NegativeCount: current,
		}, nil
	}

	log.Info("threshold reached, escalating to mentor", "count", current)

	event := domain.EscalationEvent{
		Triggered:   true,
		Type:        domain.EscalationTypeMentorEmail,
		Status:      domain.EscalationSent,
		CountBefore: current,
	}

	notice := domain.EscalationNotice{
		TeacherName:    teacherName(teacher),
		TeacherEmail:   teacher.Email,
		IssueSummary:   issueSummary(sessionID, current),
		RecipientEmail: teacher.MentorEmail,
	}

	if err := t.notifier.SendEscalation(ctx, notice); err != nil {
		kind := ClassifyDeliveryError(err)
		log.Error("escalation failed, counter kept", "error", err, "kind", kind)

		// The counter is left at the cap so the next negative event retries.
		event.Status = domain.EscalationFailed
		event.CountAfter = current
		event.Error = FailureMessage(kind, err)
		return event, nil
	}

	if _, err := t.counter.Reset(ctx, teacherID); err != nil {
		log.Error("escalation sent but counter reset failed",
			"severity", "critical",
			"error", err)
	} else {
		log.Info("escalation sent and counter reset")
	}

	event.CountAfter = 0
	return event, nil
}

func teacherName(t *domain.Teacher) string {
	if t.Name == "" {
		return "Unknown"
	}
	return t.Name
}

func issueSummary(sessionID domain.SessionID, count int) string {
	return fmt.Sprintf("User reported '%s' with %d continuous failures. Session: %s",
		domain.FeedbackDidNotWork, count, sessionID)
}
