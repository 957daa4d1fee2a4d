package httpadapter

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

type ctxKey string

const ctxKeyTeacherID ctxKey = "teacher_id"

// withRequestLogger puts the chi request id into the context logger and
// logs every request.
func withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := observability.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		observability.LoggerFromContext(ctx).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

// withCORS adds basic CORS headers to allow calls from a web front-end.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withTeacherToken requires a valid bearer token and stores its teacher id
// in the context.
func (s *Server) withTeacherToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			unauthorized(w)
			return
		}

		teacherID, err := s.auth.ParseToken(raw)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyTeacherID, teacherID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorized rejects requests about another teacher than the token owner.
// Without a token in the context (auth disabled) everything is allowed.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request, teacherID string) bool {
	owner, ok := r.Context().Value(ctxKeyTeacherID).(domain.TeacherID)
	if !ok || string(owner) == teacherID {
		return true
	}
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	return false
}
