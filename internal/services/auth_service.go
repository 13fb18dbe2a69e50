package services

import (
	"errors"
	"strings"

	"dbsite/internal/models"
	"dbsite/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService struct {
	users *repository.UserRepository
}

func NewAuthService(users *repository.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Authenticate checks the password of username.
func (s *AuthService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Viewer resolves a session user id. Unknown ids yield Anonymous.
func (s *AuthService) Viewer(userID uint) (Viewer, error) {
	if userID == 0 {
		return Anonymous, nil
	}
	user, err := s.users.FindByID(userID)
	if errors.Is(err, ErrNotFound) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, err
	}
	return Viewer{Authenticated: true, UserID: user.ID, Username: user.Username}, nil
}

// CreateAdmin creates a user or resets the password of an existing one.
func (s *AuthService) CreateAdmin(username, password string) (*models.User, error) {
	v := &ValidationError{}
	username = strings.TrimSpace(username)
	if username == "" {
		v.add("username", "This field is required.")
	}
	if len(password) < minPasswordLength {
		v.add("password", "Password must be at least 8 characters.")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Upsert(user); err != nil {
		return nil, err
	}
	return s.users.FindByUsername(username)
}
