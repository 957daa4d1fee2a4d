package coaching

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

// Service runs the coaching chat: it stores the teacher's message, asks the
// LLM for advice and stores the answer so it can receive feedback later.
type Service struct {
	llm     domain.LLMClient
	history domain.HistoryStore
	now     func() time.Time
	newID   func() string
}

func NewService(llmClient domain.LLMClient, history domain.HistoryStore) *Service {
	return &Service{
		llm:     llmClient,
		history: history,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

type ChatInput struct {
	TeacherID domain.TeacherID
	Message   string
	SessionID domain.SessionID // empty starts a new session
	Language  string           // short code, e.g. "hi"
}

type ChatOutput struct {
	Response    string
	SessionID   domain.SessionID
	AIMessageID domain.MessageID
}

func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = domain.SessionID(s.newID())
	}

	log := observability.LoggerFromContext(ctx).With(
		"teacher_id", in.TeacherID,
		"session_id", sessionID,
		"language", in.Language,
	)
	log.Info("coaching chat")

	userMsg := &domain.Message{
		ID:        domain.MessageID(s.newID()),
		SessionID: sessionID,
		Sender:    domain.RoleUser,
		Text:      in.Message,
		CreatedAt: s.now(),
	}
	if err := s.history.AppendMessage(ctx, in.TeacherID, userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}

	convCtx := domain.ConversationContext{
		TeacherID: in.TeacherID,
		SessionID: sessionID,
		Language:  LanguageName(in.Language),
	}

	reply, err := s.llm.GenerateReply(ctx, in.Message, convCtx)
	if err != nil {
		// The teacher still gets an answer in the expected shape.
		log.Error("llm generation failed", "error", err)
		reply = fallbackReply(err)
	}

	aiMsg := &domain.Message{
		ID:        domain.MessageID(s.newID()),
		SessionID: sessionID,
		Sender:    domain.RoleAssistant,
		Text:      reply,
		CreatedAt: s.now(),
	}
	if err := s.history.AppendMessage(ctx, in.TeacherID, aiMsg); err != nil {
		log.Error("failed to append assistant message", "error", err)
		return nil, err
	}

	log.Info("coaching chat completed", "ai_message_id", aiMsg.ID)

	return &ChatOutput{
		Response:    reply,
		SessionID:   sessionID,
		AIMessageID: aiMsg.ID,
	}, nil
}

// History returns every session of the teacher. Unknown teachers have an
// empty history.
func (s *Service) History(ctx context.Context, teacherID domain.TeacherID) ([]*domain.Session, error) {
	sessions, err := s.history.GetHistory(ctx, teacherID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to load history", "teacher_id", teacherID, "error", err)
		return nil, err
	}
	return sessions, nil
}

func fallbackReply(cause error) string {
	b, _ := json.Marshal(map[string]any{
		"error": cause.Error(),
		"speech_flow": map[string]any{
			"intro":       "I'm having trouble connecting.",
			"main_advice": []any{},
			"closing":     "Please try again.",
		},
	})
	return string(b)
}
