package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

const tokenIssuer = "flashcoach"

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// Service handles teacher signup and login.
type Service struct {
	teachers  domain.TeacherStore
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewService(teachers domain.TeacherStore, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		teachers:  teachers,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type SignupInput struct {
	Name        string
	Email       string
	Password    string
	MentorName  string
	MentorEmail string
}

type LoginOutput struct {
	TeacherID   domain.TeacherID
	Name        string
	AccessToken string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (domain.TeacherID, error) {
	email := strings.TrimSpace(in.Email)
	log := observability.LoggerFromContext(ctx).With("email", email)

	if err := validateSignup(in); err != nil {
		log.Warn("signup rejected", "error", err)
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	t := &domain.Teacher{
		ID:           domain.TeacherID(uuid.NewString()),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		MentorName:   strings.TrimSpace(in.MentorName),
		MentorEmail:  strings.TrimSpace(in.MentorEmail),
		CreatedAt:    s.now(),
	}

	if err := s.teachers.CreateTeacher(ctx, t); err != nil {
		if !errors.Is(err, domain.ErrEmailTaken) {
			log.Error("failed to create teacher", "error", err)
		}
		return "", err
	}

	log.Info("teacher signed up", "teacher_id", t.ID)
	return t.ID, nil
}

func validateSignup(in SignupInput) error {
	if len(in.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	if strings.ContainsAny(in.Name, "\r\n") || strings.ContainsAny(in.MentorName, "\r\n") {
		return fmt.Errorf("%w: names must be a single line", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return fmt.Errorf("%w: teacher email is not a valid address", domain.ErrInvalidInput)
	}
	if mentor := strings.TrimSpace(in.MentorEmail); mentor != "" {
		if _, err := mail.ParseAddress(mentor); err != nil {
			return fmt.Errorf("%w: mentor email is not a valid address", domain.ErrInvalidInput)
		}
	}
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	log := observability.LoggerFromContext(ctx)

	t, err := s.teachers.GetTeacherByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrTeacherNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)); err != nil {
		log.Warn("login rejected", "teacher_id", t.ID)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.teachers.UpdateLastLogin(ctx, t.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	token, err := s.issueToken(t.ID, now)
	if err != nil {
		return nil, err
	}

	log.Info("teacher logged in", "teacher_id", t.ID)
	return &LoginOutput{
		TeacherID:   t.ID,
		Name:        t.Name,
		AccessToken: token,
	}, nil
}

// ParseToken validates an access token and returns the teacher it was
// issued to.
func (s *Service) ParseToken(raw string) (domain.TeacherID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	return domain.TeacherID(claims.Subject), nil
}

func (s *Service) issueToken(id domain.TeacherID, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   string(id),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}
