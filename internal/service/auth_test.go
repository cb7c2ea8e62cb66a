package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/store"
)

type memUserStore struct {
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (m *memUserStore) SaveUser(ctx context.Context, user *models.User) error {
	m.users[user.Email] = user
	return nil
}

func (m *memUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func newTestAuthService() (*AuthService, *SessionState) {
	session := NewSessionState()
	return NewAuthService(newMemUserStore(), session, "test-secret"), session
}

func TestRegisterAndLogin(t *testing.T) {
	svc, session := newTestAuthService()

	token, err := svc.Register(context.Background(), "Cook@Example.com", "hunter2pass", "Cook")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, session.Current().Authenticated)

	// Email is normalized, so login with different case works.
	token, err = svc.Login(context.Background(), "cook@example.com", "hunter2pass")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cook@example.com", claims.Email)
	assert.NotEmpty(t, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "cook@example.com", "hunter2pass", "Cook")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "cook@example.com", "otherpassword", "Imposter")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "cook@example.com", "hunter2pass", "Cook")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "cook@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := newTestAuthService()
	other := NewAuthService(newMemUserStore(), NewSessionState(), "other-secret")

	token, err := svc.Register(context.Background(), "cook@example.com", "hunter2pass", "Cook")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestLogoutClearsSession(t *testing.T) {
	svc, session := newTestAuthService()

	_, err := svc.Register(context.Background(), "cook@example.com", "hunter2pass", "Cook")
	require.NoError(t, err)
	require.True(t, session.Current().Authenticated)

	svc.Logout()
	assert.False(t, session.Current().Authenticated)
}

func TestPasswordsAreHashed(t *testing.T) {
	users := newMemUserStore()
	svc := NewAuthService(users, NewSessionState(), "test-secret")

	_, err := svc.Register(context.Background(), "cook@example.com", "hunter2pass", "Cook")
	require.NoError(t, err)

	stored := users.users["cook@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter2pass", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}
