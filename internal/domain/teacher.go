package domain

import (
	"errors"
	"time"
)

// FailedFeedbackCap is the highest value the consecutive negative
// feedback counter can reach. Escalation fires when it is reached.
const FailedFeedbackCap = 3

var (
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// Teacher is the account of a teacher using the coach.
type Teacher struct {
	ID           TeacherID
	Name         string
	Email        string
	PasswordHash string

	// Mentor (CRP) receiving escalations for this teacher.
	MentorName  string
	MentorEmail string

	// FailedFeedbackCount is kept in [0, FailedFeedbackCap].
	FailedFeedbackCount int

	CreatedAt time.Time
	LastLogin *time.Time
}
