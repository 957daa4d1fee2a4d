package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/flashcoach/internal/domain"
)

// HistoryStore keeps every teacher's sessions in memory, in the order
// they were started.
type HistoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.TeacherID][]*domain.Session
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		sessions: make(map[domain.TeacherID][]*domain.Session),
	}
}

func (s *HistoryStore) AppendMessage(_ context.Context, teacherID domain.TeacherID, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	if sess := s.findSession(teacherID, msg.SessionID); sess != nil {
		sess.Messages = append(sess.Messages, &m)
		return nil
	}

	s.sessions[teacherID] = append(s.sessions[teacherID], &domain.Session{
		ID:        msg.SessionID,
		TeacherID: teacherID,
		Messages:  []*domain.Message{&m},
	})
	return nil
}

func (s *HistoryStore) GetHistory(_ context.Context, teacherID domain.TeacherID) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.sessions[teacherID]
	out := make([]*domain.Session, 0, len(src))
	for _, sess := range src {
		c := &domain.Session{
			ID:        sess.ID,
			TeacherID: sess.TeacherID,
			Messages:  make([]*domain.Message, 0, len(sess.Messages)),
		}
		for _, m := range sess.Messages {
			mc := *m
			c.Messages = append(c.Messages, &mc)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *HistoryStore) RecordFeedback(
	_ context.Context,
	teacherID domain.TeacherID,
	sessionID domain.SessionID,
	messageID domain.MessageID,
	value domain.FeedbackValue,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findSession(teacherID, sessionID)
	if sess == nil {
		return false, nil
	}

	for _, m := range sess.Messages {
		if m.ID != messageID {
			continue
		}
		if m.FeedbackStatus == value {
			return false, nil
		}
		m.FeedbackStatus = value
		return true, nil
	}
	return false, nil
}

// findSession must be called with s.mu held.
func (s *HistoryStore) findSession(teacherID domain.TeacherID, sessionID domain.SessionID) *domain.Session {
	for _, sess := range s.sessions[teacherID] {
		if sess.ID == sessionID {
			return sess
		}
	}
	return nil
}
