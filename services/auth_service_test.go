package services

import (
	"testing"
	"time"

	"forum-lab/auth"
	"forum-lab/domain"
	"forum-lab/errors"
	"forum-lab/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTokenManager())

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice"
		email := "alice@example.com"
		password := "ComplexPass123!"
		created := domain.User{ID: uuid.New(), Username: username, Email: email, Roles: []string{"user"}}

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(username, email, gomock.Not(password)).
			Return(created, nil).
			Times(1)

		user, token, err := svc.Register(username, email, password)

		req.NoError(err)
		req.Equal(created.ID, user.ID)
		req.NotEmpty(token)
	})

	t.Run("should fail when the form does not validate", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, token, err := svc.Register("al", "alice@example.com", "ComplexPass123!")
		req.ErrorIs(err, errors.ErrInvalidRegistration)
		req.Empty(token)

		_, _, err = svc.Register("alice", "not-an-email", "ComplexPass123!")
		req.ErrorIs(err, errors.ErrInvalidRegistration)

		_, _, err = svc.Register("alice", "alice@example.com", "short")
		req.ErrorIs(err, errors.ErrInvalidRegistration)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("duplicate", "duplicate@example.com", gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, _, err := svc.Register("duplicate", "duplicate@example.com", "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := newTokenManager()
	svc := NewAuthService(mockRepo, tokens)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		password := "Secret123456!"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		stored := domain.User{
			ID:           uuid.New(),
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: hashedPassword,
			Roles:        []string{"user"},
		}

		mockRepo.EXPECT().
			FindByUsername("alice").
			Return(stored, nil).
			Times(1)

		user, token, err := svc.Login("alice", password)

		req.NoError(err)
		req.Equal(stored.ID, user.ID)
		req.NotEmpty(token)

		claims, err := tokens.Validate(string(token))
		req.NoError(err)
		req.Equal(stored.ID.String(), claims.UserID)
		req.Equal("alice", claims.Username)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		req := require.New(t)

		hashedPassword, err := auth.HashPassword("CorrectPassword123!")
		req.NoError(err)
		stored := domain.User{
			ID:           uuid.New(),
			Username:     "alice",
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			FindByUsername("alice").
			Return(stored, nil).
			Times(1)

		_, _, err = svc.Login("alice", "WrongPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			FindByUsername("nobody").
			Return(domain.User{}, errors.ErrUserNotFound).
			Times(1)

		_, _, err := svc.Login("nobody", "anyPassword")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
