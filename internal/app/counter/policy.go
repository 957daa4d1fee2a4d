package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

// Policy owns the consecutive negative feedback counter of each teacher.
// No other component writes the counter.
type Policy struct {
	teachers domain.TeacherStore
}

func NewPolicy(teachers domain.TeacherStore) *Policy {
	return &Policy{teachers: teachers}
}

// IncrementCapped adds one to the counter without going past
// domain.FailedFeedbackCap. It returns a nil teacher and a nil error when
// the teacher does not exist.
func (p *Policy) IncrementCapped(ctx context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	t, err := p.teachers.IncrementFailedFeedback(ctx, id, domain.FailedFeedbackCap)
	if errors.Is(err, domain.ErrTeacherNotFound) {
		observability.LoggerFromContext(ctx).Warn("increment skipped, teacher not found", "teacher_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("increment failed feedback: %w", err)
	}
	return t, nil
}

// Reset sets the counter back to zero. Same absence rule as IncrementCapped.
func (p *Policy) Reset(ctx context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	t, err := p.teachers.ResetFailedFeedback(ctx, id)
	if errors.Is(err, domain.ErrTeacherNotFound) {
		observability.LoggerFromContext(ctx).Warn("reset skipped, teacher not found", "teacher_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reset failed feedback: %w", err)
	}
	return t, nil
}
