package domain

// Message is one entry of a coaching session (teacher or assistant).
type Message struct {
	ID        MessageID
	SessionID SessionID
	Sender    Role
	Text      string
	CreatedAt Timestamp

	// FeedbackStatus is empty until the teacher rates the message.
	FeedbackStatus FeedbackValue
}

// Session is the ordered list of messages exchanged in one chat.
// It belongs to exactly one teacher.
type Session struct {
	ID        SessionID
	TeacherID TeacherID
	Messages  []*Message
}
