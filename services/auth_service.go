package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/permissions"
	"milorg-admin/repositories"
)

// AuthService authenticates credentials and resolves session tokens.
type AuthService interface {
	Login(ctx context.Context, input *LoginInput) (*LoginResult, error)
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *auth.Identity
}

type authService struct {
	users    repositories.UserRepository
	tokens   *auth.Tokens
	resolver *permissions.Resolver
	logger   *zap.Logger
}

var (
	_ AuthService   = (*authService)(nil)
	_ auth.Verifier = (*authService)(nil)
)

func NewAuthService(users repositories.UserRepository, tokens *auth.Tokens, resolver *permissions.Resolver, logger *zap.Logger) AuthService {
	return &authService{users: users, tokens: tokens, resolver: resolver, logger: logger}
}

// Login checks the credentials and mints a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, dbError(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		s.logger.Info("Login rejected", zap.Uint("user_id", user.ID))
		return nil, apperr.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.System("could not issue session token", err)
	}

	identity, err := s.identity(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", zap.Uint("user_id", user.ID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: identity}, nil
}

// Verify resolves a token to a live identity. A user that no longer exists or
// was soft-deleted invalidates the token immediately.
func (s *authService) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return s.identity(ctx, userID)
}

func (s *authService) identity(ctx context.Context, userID uint) (*auth.Identity, error) {
	user, err := s.users.FindIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTokenInvalid.WithMessage("user no longer exists")
		}
		return nil, dbError(err, "user")
	}
	return identityFromUser(user, s.resolver), nil
}
