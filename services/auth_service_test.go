package services

import (
	"testing"
	"time"

	"ohtalk/auth"
	"ohtalk/domain"
	"ohtalk/errors"
	"ohtalk/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, auth.NewTokenIssuer("secret", time.Hour))

	t.Run("should register with a hashed password", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			CreateUser("alice", gomock.Not("pw"), "Alice").
			Return(domain.UserID(1), nil).
			Times(1)

		userID, err := svc.Register("alice", "pw", "Alice")

		req.NoError(err)
		req.Equal(domain.UserID(1), userID)
	})

	t.Run("should fail before hashing when a field is missing", func(t *testing.T) {
		req := require.New(t)
		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register("alice", "pw", "")

		req.ErrorIs(err, errors.ErrInvalidData)
	})

	t.Run("should fail when the username is taken", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			CreateUser("bob", gomock.Any(), "Bob").
			Return(domain.UserID(0), errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("bob", "pw", "Bob")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	svc := NewAuthService(mockRepo, tokens)
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	alice := domain.User{ID: 7, Username: "alice", Nickname: "Alice", PasswordHash: hash}

	t.Run("should login with correct credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByUsername("alice").Return(alice, nil).Times(1)

		creds, err := svc.Login("alice", "pw")

		req.NoError(err)
		req.Equal(alice, creds.User)
		claims, err := tokens.ValidateToken(creds.Token)
		req.NoError(err)
		req.Equal(alice.ID, claims.UserID)
	})

	t.Run("should fail with a wrong password", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByUsername("alice").Return(alice, nil).Times(1)

		_, err := svc.Login("alice", "wrong")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should not reveal unknown usernames", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err := svc.Login("ghost", "pw")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should surface storage failures", func(t *testing.T) {
		req := require.New(t)
		boom := errors.New("disk on fire")
		mockRepo.EXPECT().GetUserByUsername("alice").Return(domain.User{}, boom).Times(1)

		_, err := svc.Login("alice", "pw")

		req.ErrorIs(err, boom)
	})
}

func TestAuthService_Resume(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	svc := NewAuthService(mockRepo, tokens)
	alice := domain.User{ID: 7, Username: "alice", Nickname: "Alice"}

	t.Run("should resume with a valid token", func(t *testing.T) {
		req := require.New(t)
		token, err := tokens.GenerateToken(alice.ID)
		req.NoError(err)
		mockRepo.EXPECT().GetUserByID(alice.ID).Return(alice, nil).Times(1)

		creds, err := svc.Resume(token)

		req.NoError(err)
		req.Equal(alice, creds.User)
		req.NotEmpty(creds.Token)
	})

	t.Run("should reject a garbage token without touching storage", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByID(gomock.Any()).Times(0)

		_, err := svc.Resume("not-a-token")

		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should reject a token of a deleted account", func(t *testing.T) {
		req := require.New(t)
		token, err := tokens.GenerateToken(99)
		req.NoError(err)
		mockRepo.EXPECT().GetUserByID(domain.UserID(99)).Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err = svc.Resume(token)

		req.ErrorIs(err, errors.ErrInvalidToken)
	})
}
