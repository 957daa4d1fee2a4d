package domain

import "time"

type TeacherID string
type SessionID string
type MessageID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FeedbackValue is what a teacher reports after trying a piece of advice.
type FeedbackValue string

const (
	FeedbackWorked          FeedbackValue = "worked"
	FeedbackPartiallyWorked FeedbackValue = "partially_worked"
	FeedbackDidNotWork      FeedbackValue = "did_not_work" // the only negative value
)

// Valid reports whether f is one of the accepted feedback values.
func (f FeedbackValue) Valid() bool {
	switch f {
	case FeedbackWorked, FeedbackPartiallyWorked, FeedbackDidNotWork:
		return true
	}
	return false
}

// Negative reports whether f counts towards escalation.
func (f FeedbackValue) Negative() bool {
	return f == FeedbackDidNotWork
}

type Timestamp = time.Time
