package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/flashcoach/internal/domain"
)

// TeacherStore is an in-memory domain.TeacherStore.
// It is NOT persistent and is only suitable for development / local mode.
type TeacherStore struct {
	mu       sync.RWMutex
	teachers map[domain.TeacherID]*domain.Teacher
}

func NewTeacherStore() *TeacherStore {
	return &TeacherStore{
		teachers: make(map[domain.TeacherID]*domain.Teacher),
	}
}

func (s *TeacherStore) CreateTeacher(_ context.Context, t *domain.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.teachers {
		if strings.EqualFold(existing.Email, t.Email) {
			return domain.ErrEmailTaken
		}
	}

	s.teachers[t.ID] = cloneTeacher(t)
	return nil
}

func (s *TeacherStore) GetTeacher(_ context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teachers[id]
	if !ok {
		return nil, domain.ErrTeacherNotFound
	}
	return cloneTeacher(t), nil
}

func (s *TeacherStore) GetTeacherByEmail(_ context.Context, email string) (*domain.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.teachers {
		if strings.EqualFold(t.Email, email) {
			return cloneTeacher(t), nil
		}
	}
	return nil, domain.ErrTeacherNotFound
}

func (s *TeacherStore) UpdateLastLogin(_ context.Context, id domain.TeacherID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teachers[id]
	if !ok {
		return domain.ErrTeacherNotFound
	}
	t.LastLogin = &at
	return nil
}

// IncrementFailedFeedback runs under the write lock, so concurrent calls
// for the same teacher are serialized.
func (s *TeacherStore) IncrementFailedFeedback(_ context.Context, id domain.TeacherID, limit int) (*domain.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teachers[id]
	if !ok {
		return nil, domain.ErrTeacherNotFound
	}
	t.FailedFeedbackCount = min(t.FailedFeedbackCount+1, limit)
	return cloneTeacher(t), nil
}

func (s *TeacherStore) ResetFailedFeedback(_ context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teachers[id]
	if !ok {
		return nil, domain.ErrTeacherNotFound
	}
	t.FailedFeedbackCount = 0
	return cloneTeacher(t), nil
}

// SetFailedFeedback overwrites the counter. Test and seeding helper only.
func (s *TeacherStore) SetFailedFeedback(id domain.TeacherID, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.teachers[id]; ok {
		t.FailedFeedbackCount = count
	}
}

func cloneTeacher(t *domain.Teacher) *domain.Teacher {
	c := *t
	if t.LastLogin != nil {
		at := *t.LastLogin
		c.LastLogin = &at
	}
	return &c
}
