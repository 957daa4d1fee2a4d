package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/flashcoach/internal/domain"
)

// Store implements domain.TeacherStore and domain.HistoryStore on
// Firestore. Layout:
//
//	teachers/{teacher_id}
//	teachers/{teacher_id}/sessions/{session_id}
//	teachers/{teacher_id}/sessions/{session_id}/messages/{message_id}
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (FLASHCOACH_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) teachersCol() *firestore.CollectionRef {
	return s.client.Collection("teachers")
}

func (s *Store) teacherDoc(id domain.TeacherID) *firestore.DocumentRef {
	return s.teachersCol().Doc(string(id))
}

func (s *Store) sessionsCol(teacherID domain.TeacherID) *firestore.CollectionRef {
	return s.teacherDoc(teacherID).Collection("sessions")
}

func (s *Store) sessionDoc(teacherID domain.TeacherID, sessionID domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol(teacherID).Doc(string(sessionID))
}

func (s *Store) messagesCol(teacherID domain.TeacherID, sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(teacherID, sessionID).Collection("messages")
}

func (s *Store) messageDoc(teacherID domain.TeacherID, sessionID domain.SessionID, msgID domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol(teacherID, sessionID).Doc(string(msgID))
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type teacherDoc struct {
	Name                string     `firestore:"name"`
	Email               string     `firestore:"email"`
	EmailKey            string     `firestore:"email_key"`
	PasswordHash        string     `firestore:"password_hash"`
	MentorName          string     `firestore:"mentor_name"`
	MentorEmail         string     `firestore:"mentor_email"`
	FailedFeedbackCount int        `firestore:"failed_feedback_count"`
	CreatedAt           time.Time  `firestore:"created_at"`
	LastLogin           *time.Time `firestore:"last_login"`
}

type sessionDoc struct {
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	Sender         string    `firestore:"sender"`
	Text           string    `firestore:"text"`
	CreatedAt      time.Time `firestore:"created_at"`
	FeedbackStatus string    `firestore:"feedback_status"`
}

func toTeacher(snap *firestore.DocumentSnapshot) (*domain.Teacher, error) {
	var doc teacherDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode teacherDoc: %w", err)
	}

	return &domain.Teacher{
		ID:                  domain.TeacherID(snap.Ref.ID),
		Name:                doc.Name,
		Email:               doc.Email,
		PasswordHash:        doc.PasswordHash,
		MentorName:          doc.MentorName,
		MentorEmail:         doc.MentorEmail,
		FailedFeedbackCount: doc.FailedFeedbackCount,
		CreatedAt:           doc.CreatedAt,
		LastLogin:           doc.LastLogin,
	}, nil
}

// ─────────────────────────────────────────
// TeacherStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateTeacher(ctx context.Context, t *domain.Teacher) error {
	doc := teacherDoc{
		Name:                t.Name,
		Email:               t.Email,
		EmailKey:            emailKey(t.Email),
		PasswordHash:        t.PasswordHash,
		MentorName:          t.MentorName,
		MentorEmail:         t.MentorEmail,
		FailedFeedbackCount: t.FailedFeedbackCount,
		CreatedAt:           t.CreatedAt,
		LastLogin:           t.LastLogin,
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		q := s.teachersCol().Where("email_key", "==", doc.EmailKey).Limit(1)
		existing, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrEmailTaken
		}
		return tx.Create(s.teacherDoc(t.ID), doc)
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return err
	}
	if err != nil {
		return fmt.Errorf("firestore CreateTeacher: %w", err)
	}
	return nil
}

func (s *Store) GetTeacher(ctx context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	snap, err := s.teacherDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrTeacherNotFound
		}
		return nil, fmt.Errorf("firestore GetTeacher: %w", err)
	}
	return toTeacher(snap)
}

func (s *Store) GetTeacherByEmail(ctx context.Context, email string) (*domain.Teacher, error) {
	iter := s.teachersCol().Where("email_key", "==", emailKey(email)).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, domain.ErrTeacherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore GetTeacherByEmail: %w", err)
	}
	return toTeacher(snap)
}

func (s *Store) UpdateLastLogin(ctx context.Context, id domain.TeacherID, at time.Time) error {
	_, err := s.teacherDoc(id).Update(ctx, []firestore.Update{
		{Path: "last_login", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrTeacherNotFound
		}
		return fmt.Errorf("firestore UpdateLastLogin: %w", err)
	}
	return nil
}

// IncrementFailedFeedback runs in a transaction: Firestore retries it when
// another writer touched the teacher document in between, so no update is
// lost.
func (s *Store) IncrementFailedFeedback(ctx context.Context, id domain.TeacherID, limit int) (*domain.Teacher, error) {
	return s.updateCounter(ctx, id, func(current int) int {
		return min(current+1, limit)
	})
}

func (s *Store) ResetFailedFeedback(ctx context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	return s.updateCounter(ctx, id, func(int) int { return 0 })
}

func (s *Store) updateCounter(ctx context.Context, id domain.TeacherID, next func(current int) int) (*domain.Teacher, error) {
	var out *domain.Teacher

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := s.teacherDoc(id)
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrTeacherNotFound
			}
			return err
		}

		t, err := toTeacher(snap)
		if err != nil {
			return err
		}
		t.FailedFeedbackCount = next(t.FailedFeedbackCount)

		if err := tx.Update(ref, []firestore.Update{
			{Path: "failed_feedback_count", Value: t.FailedFeedbackCount},
		}); err != nil {
			return err
		}

		out = t
		return nil
	})
	if errors.Is(err, domain.ErrTeacherNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("firestore update counter: %w", err)
	}
	return out, nil
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, teacherID domain.TeacherID, msg *domain.Message) error {
	doc := messageDoc{
		Sender:         string(msg.Sender),
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
		FeedbackStatus: string(msg.FeedbackStatus),
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		sessRef := s.sessionDoc(teacherID, msg.SessionID)

		_, err := tx.Get(sessRef)
		switch {
		case isNotFound(err):
			err = tx.Create(sessRef, sessionDoc{CreatedAt: msg.CreatedAt, UpdatedAt: msg.CreatedAt})
		case err == nil:
			err = tx.Update(sessRef, []firestore.Update{{Path: "updated_at", Value: msg.CreatedAt}})
		}
		if err != nil {
			return err
		}

		return tx.Create(s.messageDoc(teacherID, msg.SessionID, msg.ID), doc)
	})
	if err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) GetHistory(ctx context.Context, teacherID domain.TeacherID) ([]*domain.Session, error) {
	iter := s.sessionsCol(teacherID).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetHistory: %w", err)
		}

		sessionID := domain.SessionID(snap.Ref.ID)
		msgs, err := s.sessionMessages(ctx, teacherID, sessionID)
		if err != nil {
			return nil, err
		}

		out = append(out, &domain.Session{
			ID:        sessionID,
			TeacherID: teacherID,
			Messages:  msgs,
		})
	}
	return out, nil
}

func (s *Store) sessionMessages(ctx context.Context, teacherID domain.TeacherID, sessionID domain.SessionID) ([]*domain.Message, error) {
	iter := s.messagesCol(teacherID, sessionID).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore sessionMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:             domain.MessageID(snap.Ref.ID),
			SessionID:      sessionID,
			Sender:         domain.Role(doc.Sender),
			Text:           doc.Text,
			CreatedAt:      doc.CreatedAt,
			FeedbackStatus: domain.FeedbackValue(doc.FeedbackStatus),
		})
	}
	return out, nil
}

// RecordFeedback reports false when the message does not exist or already
// holds value.
func (s *Store) RecordFeedback(
	ctx context.Context,
	teacherID domain.TeacherID,
	sessionID domain.SessionID,
	messageID domain.MessageID,
	value domain.FeedbackValue,
) (bool, error) {
	var modified bool

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		modified = false
		ref := s.messageDoc(teacherID, sessionID, messageID)

		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode messageDoc: %w", err)
		}
		if doc.FeedbackStatus == string(value) {
			return nil
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "feedback_status", Value: string(value)},
		}); err != nil {
			return err
		}
		modified = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("firestore RecordFeedback: %w", err)
	}
	return modified, nil
}
