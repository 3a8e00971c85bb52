//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"forum-lab/auth"
	"forum-lab/domain"
	"forum-lab/errors"
	"forum-lab/repositories"
)

type IAuthService interface {
	Register(username, email, password string) (domain.User, Token, error)
	Login(username, password string) (domain.User, Token, error)
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register validates the form, hashes the password and creates the account.
// Hashing happens here so the repository never sees a plain password.
func (s *AuthService) Register(username, email, password string) (domain.User, Token, error) {
	req := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, "", err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}

	user, err := s.users.CreateUser(username, email, hashed)
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, Token(token), nil
}

// Login verifies the credentials and issues a session token. Lookup and
// password failures collapse into the same error so usernames cannot be
// enumerated.
func (s *AuthService) Login(username, password string) (domain.User, Token, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, Token(token), nil
}
