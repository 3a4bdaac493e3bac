//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"viztalk/auth"
	"viztalk/domain"
	"viztalk/errors"
	"viztalk/repositories"
	"viztalk/runtime"

	"github.com/samber/lo"
)

// avatarPalette is the set of colors a new account can be assigned. Other
// participants render the username in this color.
var avatarPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#008080", "#9a6324", "#800000", "#808000",
}

type IAuthService interface {
	Register(ctx context.Context, email, username, password string) (Token, error)
	Login(email, password string) (Token, error)
}

type AuthService struct {
	log          *slog.Logger
	users        repositories.IUserRepository
	tokens       *auth.TokenManager
	orchestrator *runtime.Orchestrator
}

type Token string

func NewAuthService(log *slog.Logger, users repositories.IUserRepository,
	tokens *auth.TokenManager, orchestrator *runtime.Orchestrator) IAuthService {
	return &AuthService{
		log:          log,
		users:        users,
		tokens:       tokens,
		orchestrator: orchestrator,
	}
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
	}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", err
	}

	// Hash in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(email, username, hashedPassword)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if the email is taken
	}

	// Publish the directory entry so open sessions learn the new name
	// without a restart.
	profile := domain.Profile{
		ID:          userID,
		Username:    username,
		AvatarColor: lo.Sample(avatarPalette),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.orchestrator.SaveProfile(ctx, profile); err != nil {
		s.log.Error("Failed to publish profile for new account", "user_id", userID, "error", err)
		return "", err
	}

	token, err := s.tokens.Generate(userID, username)
	if err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration.
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	return Token(token), nil
}
