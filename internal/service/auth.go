package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/recipelens/backend/internal/middleware"
	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// AuthService manages accounts and session tokens. Users live in the
// key-value store; state transitions go through the shared SessionState.
type AuthService struct {
	users     UserStore
	session   *SessionState
	jwtSecret string
}

// NewAuthService creates an AuthService instance.
func NewAuthService(users UserStore, session *SessionState, jwtSecret string) *AuthService {
	return &AuthService{
		users:     users,
		session:   session,
		jwtSecret: jwtSecret,
	}
}

// Register creates an account and returns a session token.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", fmt.Errorf("email and password are required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return "", ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hashed),
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", err
	}
	s.session.SetAuthenticated(user.ID, user.Email)
	return token, nil
}

// Login verifies credentials and returns a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", err
	}
	s.session.SetAuthenticated(user.ID, user.Email)
	return token, nil
}

// Logout clears the session state. Tokens themselves expire on their own.
func (s *AuthService) Logout() {
	s.session.Clear()
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks a session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	if userID == "" {
		return nil, errors.New("token missing user id")
	}

	return &middleware.TokenClaims{UserID: userID, Email: email}, nil
}
