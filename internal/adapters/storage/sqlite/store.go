package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/PabloGalante/flashcoach/internal/domain"
)

// Store implements domain.TeacherStore and domain.HistoryStore on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and creates, if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time avoids SQLITE_BUSY under concurrent counter updates.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS teachers (
		teacher_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		mentor_name TEXT NOT NULL DEFAULT '',
		mentor_email TEXT NOT NULL DEFAULT '',
		failed_feedback_count INTEGER,
		created_at INTEGER NOT NULL,
		last_login INTEGER
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		teacher_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		message_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		feedback_status TEXT,
		UNIQUE (teacher_id, session_id, message_id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_teacher ON messages(teacher_id, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// TeacherStore implementation
// ─────────────────────────────────────────

const teacherColumns = `teacher_id, name, email, password_hash, mentor_name, mentor_email,
	COALESCE(failed_feedback_count, 0), created_at, last_login`

func (s *Store) CreateTeacher(ctx context.Context, t *domain.Teacher) error {
	query := `
	INSERT INTO teachers (teacher_id, name, email, password_hash, mentor_name, mentor_email,
		failed_feedback_count, created_at, last_login)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		string(t.ID), t.Name, t.Email, t.PasswordHash, t.MentorName, t.MentorEmail,
		t.FailedFeedbackCount, t.CreatedAt.UnixMilli(), nullableMillis(t.LastLogin),
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	return nil
}

func (s *Store) GetTeacher(ctx context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE teacher_id = ?`, string(id))
	return scanTeacher(row)
}

func (s *Store) GetTeacherByEmail(ctx context.Context, email string) (*domain.Teacher, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE email = ?`, email)
	return scanTeacher(row)
}

func (s *Store) UpdateLastLogin(ctx context.Context, id domain.TeacherID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE teachers SET last_login = ? WHERE teacher_id = ?`,
		at.UnixMilli(), string(id))
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTeacherNotFound
	}
	return nil
}

// IncrementFailedFeedback is one UPDATE statement, so SQLite applies the
// read-modify-write atomically.
func (s *Store) IncrementFailedFeedback(ctx context.Context, id domain.TeacherID, limit int) (*domain.Teacher, error) {
	query := `
	UPDATE teachers
	SET failed_feedback_count = MIN(COALESCE(failed_feedback_count, 0) + 1, ?)
	WHERE teacher_id = ?
	RETURNING ` + teacherColumns

	return scanTeacher(s.db.QueryRowContext(ctx, query, limit, string(id)))
}

func (s *Store) ResetFailedFeedback(ctx context.Context, id domain.TeacherID) (*domain.Teacher, error) {
	query := `UPDATE teachers SET failed_feedback_count = 0 WHERE teacher_id = ? RETURNING ` + teacherColumns
	return scanTeacher(s.db.QueryRowContext(ctx, query, string(id)))
}

func scanTeacher(row *sql.Row) (*domain.Teacher, error) {
	var (
		t         domain.Teacher
		id        string
		createdAt int64
		lastLogin sql.NullInt64
	)

	err := row.Scan(&id, &t.Name, &t.Email, &t.PasswordHash, &t.MentorName, &t.MentorEmail,
		&t.FailedFeedbackCount, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTeacherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan teacher row: %w", err)
	}

	t.ID = domain.TeacherID(id)
	t.CreatedAt = time.UnixMilli(createdAt)
	if lastLogin.Valid {
		at := time.UnixMilli(lastLogin.Int64)
		t.LastLogin = &at
	}
	return &t, nil
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, teacherID domain.TeacherID, msg *domain.Message) error {
	query := `
	INSERT INTO messages (teacher_id, session_id, message_id, sender, text, created_at, feedback_status)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	var feedback any
	if msg.FeedbackStatus != "" {
		feedback = string(msg.FeedbackStatus)
	}

	_, err := s.db.ExecContext(ctx, query,
		string(teacherID), string(msg.SessionID), string(msg.ID),
		string(msg.Sender), msg.Text, msg.CreatedAt.UnixMilli(), feedback,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) GetHistory(ctx context.Context, teacherID domain.TeacherID) ([]*domain.Session, error) {
	query := `
	SELECT session_id, message_id, sender, text, created_at, feedback_status
	FROM messages WHERE teacher_id = ? ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, string(teacherID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var (
		out     []*domain.Session
		indexOf = make(map[domain.SessionID]int)
	)
	for rows.Next() {
		var (
			sessionID, messageID, sender, text string
			createdAt                          int64
			feedback                           sql.NullString
		)
		if err := rows.Scan(&sessionID, &messageID, &sender, &text, &createdAt, &feedback); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		sid := domain.SessionID(sessionID)
		i, ok := indexOf[sid]
		if !ok {
			i = len(out)
			indexOf[sid] = i
			out = append(out, &domain.Session{ID: sid, TeacherID: teacherID})
		}

		out[i].Messages = append(out[i].Messages, &domain.Message{
			ID:             domain.MessageID(messageID),
			SessionID:      sid,
			Sender:         domain.Role(sender),
			Text:           text,
			CreatedAt:      time.UnixMilli(createdAt),
			FeedbackStatus: domain.FeedbackValue(feedback.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// RecordFeedback only counts a row as modified when the value changes.
func (s *Store) RecordFeedback(
	ctx context.Context,
	teacherID domain.TeacherID,
	sessionID domain.SessionID,
	messageID domain.MessageID,
	value domain.FeedbackValue,
) (bool, error) {
	query := `
	UPDATE messages SET feedback_status = ?
	WHERE teacher_id = ? AND session_id = ? AND message_id = ?
	AND (feedback_status IS NULL OR feedback_status <> ?)`

	result, err := s.db.ExecContext(ctx, query,
		string(value), string(teacherID), string(sessionID), string(messageID), string(value))
	if err != nil {
		return false, fmt.Errorf("update feedback_status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
