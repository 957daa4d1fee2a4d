package feedback

import (
	"context"
	"fmt"

	"github.com/PabloGalante/flashcoach/internal/app/counter"
	"github.com/PabloGalante/flashcoach/internal/app/escalation"
	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

const (
	msgNoChange           = "Feedback already recorded (no change)"
	msgRecorded           = "Feedback recorded"
	msgEscalationHandled  = "Feedback recorded. Escalation processed."
	msgRecordedCountReset = "Feedback recorded. Count reset."
)

// Service is the entry point for teacher feedback on coaching advice.
type Service struct {
	history domain.HistoryStore
	counter *counter.Policy
	trigger *escalation.Trigger
}

func NewService(history domain.HistoryStore, policy *counter.Policy, trigger *escalation.Trigger) *Service {
	return &Service{
		history: history,
		counter: policy,
		trigger: trigger,
	}
}

type Input struct {
	TeacherID domain.TeacherID
	SessionID domain.SessionID
	MessageID domain.MessageID
	Feedback  domain.FeedbackValue
}

type Result struct {
	Message    string                 `json:"message"`
	Escalation domain.EscalationEvent `json:"escalation"`
}

// ProcessFeedback records the feedback on the message and updates the
// teacher's counter.
//
// Recording the feedback and touching the counter are two separate writes.
// A crash between them leaves the message annotated with the counter
// unchanged; that window is accepted.
func (s *Service) ProcessFeedback(ctx context.Context, in Input) (*Result, error) {
	log := observability.LoggerFromContext(ctx).With(
		"teacher_id", in.TeacherID,
		"session_id", in.SessionID,
		"message_id", in.MessageID,
		"feedback", in.Feedback,
	)

	applied, err := s.history.RecordFeedback(ctx, in.TeacherID, in.SessionID, in.MessageID, in.Feedback)
	if err != nil {
		log.Error("failed to record feedback", "error", err)
		return nil, fmt.Errorf("record feedback: %w", err)
	}

	if !applied {
		log.Warn("feedback not applied, no message modified")
		return &Result{
			Message:    msgNoChange,
			Escalation: domain.EscalationEvent{Status: domain.EscalationNoChange},
		}, nil
	}

	if !in.Feedback.Negative() {
		if _, err := s.counter.Reset(ctx, in.TeacherID); err != nil {
			log.Error("failed to reset counter", "error", err)
			return nil, err
		}
		log.Info("feedback recorded, counter reset")
		return &Result{Message: msgRecordedCountReset}, nil
	}

	if _, err := s.counter.IncrementCapped(ctx, in.TeacherID); err != nil {
		log.Error("failed to increment counter", "error", err)
		return nil, err
	}

	event, err := s.trigger.Evaluate(ctx, in.TeacherID, in.SessionID)
	if err != nil {
		log.Error("escalation evaluation failed", "error", err)
		return nil, fmt.Errorf("evaluate escalation: %w", err)
	}

	msg := msgRecorded
	if event.Triggered {
		msg = msgEscalationHandled
	}

	log.Info("negative feedback recorded", "escalation_status", event.Status)
	return &Result{Message: msg, Escalation: event}, nil
}
