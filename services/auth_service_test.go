package services_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"viztalk/auth"
	"viztalk/domain"
	"viztalk/errors"
	"viztalk/mocks"
	"viztalk/repositories"
	"viztalk/runtime"
	"viztalk/services"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestAuthService(t *testing.T, users repositories.IUserRepository,
	profiles repositories.IProfileRepository) (services.IAuthService, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("unit-test-secret-key", 24*time.Hour)
	orchestrator := runtime.NewOrchestrator(slog.Default(), nil, runtime.NewRegistry(),
		nil, nil, profiles, nil, nil, 16, 16, time.Second, time.Minute)
	return services.NewAuthService(slog.Default(), users, tokens, orchestrator), tokens
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		mockUsers := mocks.NewMockIUserRepository(ctrl)
		mockProfiles := mocks.NewMockIProfileRepository(ctrl)
		svc, tokens := newTestAuthService(t, mockUsers, mockProfiles)

		email := "alice@example.com"
		username := "alice"
		password := "ComplexPass123"
		expectedUserID := "user-uuid"

		// The repository must receive a hash, never the plain password.
		mockUsers.EXPECT().
			CreateUser(email, username, gomock.Not(password)).
			Return(expectedUserID, nil).
			Times(1)
		mockProfiles.EXPECT().
			Upsert(gomock.AssignableToTypeOf(domain.Profile{})).
			DoAndReturn(func(p domain.Profile) error {
				req.Equal(expectedUserID, p.ID)
				req.Equal(username, p.Username)
				req.NotEmpty(p.AvatarColor)
				return nil
			}).
			Times(1)

		token, err := svc.Register(context.Background(), email, username, password)

		req.NoError(err)
		req.NotEmpty(token)

		claims, err := tokens.Verify(string(token))
		req.NoError(err)
		req.Equal(expectedUserID, claims.UserID)
		req.Equal(username, claims.Username)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		mockUsers := mocks.NewMockIUserRepository(ctrl)
		mockProfiles := mocks.NewMockIProfileRepository(ctrl)
		svc, _ := newTestAuthService(t, mockUsers, mockProfiles)

		// Repository should NEVER be called
		mockUsers.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		token, err := svc.Register(context.Background(), "bob@example.com", "bob", "weakpassword")

		req.Error(err)
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		mockUsers := mocks.NewMockIUserRepository(ctrl)
		mockProfiles := mocks.NewMockIProfileRepository(ctrl)
		svc, _ := newTestAuthService(t, mockUsers, mockProfiles)

		mockUsers.EXPECT().
			CreateUser("duplicate@example.com", "dup", gomock.Any()).
			Return("", errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register(context.Background(), "duplicate@example.com", "dup", "ComplexPass123")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		mockUsers := mocks.NewMockIUserRepository(ctrl)
		svc, tokens := newTestAuthService(t, mockUsers, mocks.NewMockIProfileRepository(ctrl))

		email := "carol@example.com"
		password := "Secret123456"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Email:        email,
			Username:     "carol",
			PasswordHash: hashedPassword,
		}

		mockUsers.EXPECT().
			GetUserByEmail(email).
			Return(storedUser, nil).
			Times(1)

		token, err := svc.Login(email, password)

		req.NoError(err)
		req.NotEmpty(token)

		claims, err := tokens.Verify(string(token))
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
	})

	t.Run("should return invalid credentials when password does not match", func(t *testing.T) {
		req := require.New(t)
		mockUsers := mocks.NewMockIUserRepository(ctrl)
		svc, _ := newTestAuthService(t, mockUsers, mocks.NewMockIProfileRepository(ctrl))

		hashedPassword, err := auth.HashPassword("CorrectPassword123")
		req.NoError(err)

		mockUsers.EXPECT().
			GetUserByEmail("carol@example.com").
			Return(repositories.User{Email: "carol@example.com", PasswordHash: hashedPassword}, nil).
			Times(1)

		_, err = svc.Login("carol@example.com", "WrongPassword123")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		req := require.New(t)
		mockUsers := mocks.NewMockIUserRepository(ctrl)
		svc, _ := newTestAuthService(t, mockUsers, mocks.NewMockIProfileRepository(ctrl))

		mockUsers.EXPECT().
			GetUserByEmail("unknown@example.com").
			Return(repositories.User{}, errors.ErrInvalidCredentials).
			Times(1)

		_, err := svc.Login("unknown@example.com", "anyPassword123")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
