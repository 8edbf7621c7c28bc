// Package service holds the use cases behind the HTTP surface.
// AuthService handles registration, login, logout and JWT access
// tokens. Every successful sign-in opens a session context.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

var authTracer = otel.Tracer("service/auth")

const (
	bcryptCost        = 12
	minPasswordLength = 6
)

// AuthService orchestrates authentication flows.
type AuthService struct {
	users      port.UserStore
	sessions   *session.Manager
	jwtSecret  []byte
	accessTTL  time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users port.UserStore, sessions *session.Manager, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     logger,
	}
}

// WithBcryptCost lowers the hash cost, for tests.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// WithClock overrides time.Now for token timestamps, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// ============================================================
// Register: POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "Nome é obrigatório"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.ErrValidation{Field: "email", Message: "E-mail inválido"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("Senha deve ter ao menos %d caracteres", minPasswordLength)}
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "e-mail já cadastrado"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{ID: uuid.NewString(), Name: name, Email: email}
	if err := s.users.Insert(ctx, domain.StoredUser{User: user, PasswordHash: string(hash), CreatedAt: s.now()}); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.signIn(ctx, user)
}

// ============================================================
// Login: POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	stored, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if stored == nil {
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}
	span.SetAttributes(attribute.String("user.id", stored.ID))

	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", stored.ID))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	s.logger.Info("user logged in", zap.String("user_id", stored.ID))
	return s.signIn(ctx, stored.User)
}

func (s *AuthService) signIn(ctx context.Context, user domain.User) (*domain.LoginResponse, error) {
	if _, err := s.sessions.Open(ctx, user); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	token, err := s.signAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		User:        user,
	}, nil
}

// ============================================================
// Logout: POST /v1/auth/logout
// ============================================================

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.sessions.Close(ctx, userID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.logger.Info("user logged out", zap.String("user_id", userID))
	return nil
}

// ============================================================
// Me: GET /v1/auth/me
// ============================================================

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	c, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u := c.User
	return &u, nil
}
