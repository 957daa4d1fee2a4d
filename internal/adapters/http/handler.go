package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/PabloGalante/flashcoach/internal/app/auth"
	"github.com/PabloGalante/flashcoach/internal/app/coaching"
	"github.com/PabloGalante/flashcoach/internal/app/feedback"
	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

type Server struct {
	auth     *auth.Service
	coaching *coaching.Service
	feedback *feedback.Service
}

type Options struct {
	// RequireAuth makes chat, history and feedback routes demand a bearer
	// token issued to the teacher named in the request.
	RequireAuth bool
}

func NewServer(authSvc *auth.Service, coachingSvc *coaching.Service, feedbackSvc *feedback.Service, opts Options) http.Handler {
	s := &Server{
		auth:     authSvc,
		coaching: coachingSvc,
		feedback: feedbackSvc,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(withRequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealth)
	r.Get("/languages", s.handleLanguages)

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		if opts.RequireAuth {
			r.Use(s.withTeacherToken)
		}
		r.Post("/coaching/advice", s.handleChat)
		r.Get("/history/{teacher_id}", s.handleHistory)
		r.Post("/feedback", s.handleFeedback)
	})

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type signupRequest struct {
	TeacherName string `json:"teacher_name"`
	TeacherMail string `json:"teacher_mail"`
	Password    string `json:"password"`
	CRPName     string `json:"crp_name"`
	CRPMail     string `json:"crp_mail"`
}

type signupResponse struct {
	TeacherID string `json:"teacher_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	TeacherID   string `json:"teacher_id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type chatRequest struct {
	TeacherID string `json:"teacher_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserLang  string `json:"user_lang,omitempty"`
}

type chatResponse struct {
	Response    string `json:"response"`
	SessionID   string `json:"session_id"`
	AIMessageID string `json:"ai_message_id"`
}

type messageResponse struct {
	MessageID      string    `json:"message_id"`
	Sender         string    `json:"sender"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	FeedbackStatus *string   `json:"feedback_status"`
}

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []messageResponse `json:"messages"`
}

type historyResponse struct {
	TeacherID   string            `json:"teacher_id"`
	ChatHistory []sessionResponse `json:"chat_history"`
}

type feedbackRequest struct {
	TeacherID string `json:"teacher_id"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Feedback  string `json:"feedback"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, coaching.Languages())
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.TeacherName == "" || req.TeacherMail == "" || req.Password == "" {
		badRequest(w, "teacher_name, teacher_mail and password are required")
		return
	}

	id, err := s.auth.Signup(r.Context(), auth.SignupInput{
		Name:        req.TeacherName,
		Email:       req.TeacherMail,
		Password:    req.Password,
		MentorName:  req.CRPName,
		MentorEmail: req.CRPMail,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		badRequest(w, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{TeacherID: string(id)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		unauthorized(w)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		TeacherID:   string(out.TeacherID),
		Name:        out.Name,
		AccessToken: out.AccessToken,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.TeacherID == "" {
		badRequest(w, "teacher_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}
	if !s.authorized(w, r, req.TeacherID) {
		return
	}

	out, err := s.coaching.Chat(r.Context(), coaching.ChatInput{
		TeacherID: domain.TeacherID(req.TeacherID),
		Message:   req.Message,
		SessionID: domain.SessionID(req.SessionID),
		Language:  req.UserLang,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:    out.Response,
		SessionID:   string(out.SessionID),
		AIMessageID: string(out.AIMessageID),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	teacherID := chi.URLParam(r, "teacher_id")
	if !s.authorized(w, r, teacherID) {
		return
	}

	sessions, err := s.coaching.History(r.Context(), domain.TeacherID(teacherID))
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		TeacherID:   teacherID,
		ChatHistory: toSessionsResponse(sessions),
	})
}

// handleFeedback answers 200 for every valid request, including no-ops and
// failed escalations: the outcome is in the escalation field.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.TeacherID == "" || req.SessionID == "" || req.MessageID == "" {
		badRequest(w, "teacher_id, session_id and message_id are required")
		return
	}
	value := domain.FeedbackValue(req.Feedback)
	if !value.Valid() {
		badRequest(w, "feedback must be one of worked, partially_worked, did_not_work")
		return
	}
	if !s.authorized(w, r, req.TeacherID) {
		return
	}

	res, err := s.feedback.ProcessFeedback(r.Context(), feedback.Input{
		TeacherID: domain.TeacherID(req.TeacherID),
		SessionID: domain.SessionID(req.SessionID),
		MessageID: domain.MessageID(req.MessageID),
		Feedback:  value,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ─────────────────────────────────────────────
// Conversion Helpers
// ─────────────────────────────────────────────

func toSessionsResponse(sessions []*domain.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		msgs := make([]messageResponse, 0, len(sess.Messages))
		for _, m := range sess.Messages {
			var status *string
			if m.FeedbackStatus != "" {
				v := string(m.FeedbackStatus)
				status = &v
			}
			msgs = append(msgs, messageResponse{
				MessageID:      string(m.ID),
				Sender:         string(m.Sender),
				Message:        m.Text,
				Timestamp:      m.CreatedAt,
				FeedbackStatus: status,
			})
		}
		out = append(out, sessionResponse{SessionID: string(sess.ID), Messages: msgs})
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error": "invalid credentials",
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
