package domain

import (
	"context"
	"time"
)

// LLMClient defines how the core application interacts with an LLM service.
type LLMClient interface {
	GenerateReply(ctx context.Context, userMessage string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives the LLM minimal context about the conversation.
type ConversationContext struct {
	TeacherID TeacherID
	SessionID SessionID
	Language  string // full language name, e.g. "Hindi"
}

// TeacherStore persists teacher accounts.
//
// IncrementFailedFeedback and ResetFailedFeedback must each be a single
// atomic read-modify-write: two concurrent increments for the same teacher
// must never lose an update or go past the cap. Both return
// ErrTeacherNotFound when the teacher does not exist.
type TeacherStore interface {
	CreateTeacher(ctx context.Context, t *Teacher) error
	GetTeacher(ctx context.Context, id TeacherID) (*Teacher, error)
	GetTeacherByEmail(ctx context.Context, email string) (*Teacher, error)
	UpdateLastLogin(ctx context.Context, id TeacherID, at time.Time) error

	IncrementFailedFeedback(ctx context.Context, id TeacherID, limit int) (*Teacher, error)
	ResetFailedFeedback(ctx context.Context, id TeacherID) (*Teacher, error)
}

// HistoryStore persists the chat history of every teacher.
type HistoryStore interface {
	// AppendMessage adds msg to the session msg.SessionID, creating the
	// session when it does not exist yet.
	AppendMessage(ctx context.Context, teacherID TeacherID, msg *Message) error

	// GetHistory returns every session of a teacher, oldest first.
	GetHistory(ctx context.Context, teacherID TeacherID) ([]*Session, error)

	// RecordFeedback sets the feedback status of one message. It reports
	// false when nothing was modified: no such message, or the message
	// already carries the same value.
	RecordFeedback(ctx context.Context, teacherID TeacherID, sessionID SessionID, messageID MessageID, value FeedbackValue) (bool, error)
}

// EscalationNotice is the content of a mentor notification.
type EscalationNotice struct {
	TeacherName  string
	TeacherEmail string
	IssueSummary string

	// RecipientEmail may be empty; the notifier then uses its default address.
	RecipientEmail string
}

// Notifier delivers escalation notices to mentors.
type Notifier interface {
	// Configured reports whether sender credentials are present.
	Configured() bool
	SendEscalation(ctx context.Context, notice EscalationNotice) error
}
