package services

import (
	"fmt"

	"ohtalk/auth"
	"ohtalk/contract"
	"ohtalk/domain"
	"ohtalk/errors"
)

type IAuthService interface {
	Register(username, password, nickname string) (domain.UserID, error)
	Login(username, password string) (Credentials, error)
	Resume(token string) (Credentials, error)
}

// Credentials is what a successful login hands back to the client.
type Credentials struct {
	User  domain.User
	Token string
}

type AuthService struct {
	userRepository contract.IUserRepository
	tokens         auth.TokenIssuer
}

func NewAuthService(repo contract.IUserRepository, tokens auth.TokenIssuer) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(username, password, nickname string) (domain.UserID, error) {
	// Rules are checked before any expensive cryptographic operation.
	err := auth.ValidateRegister(auth.RegisterRequest{
		Username: username,
		Password: password,
		Nickname: nickname,
	})
	if err != nil {
		return 0, err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hashing failed: %w", err)
	}

	// Propagates ErrUserAlreadyExists when the username is taken
	return s.userRepository.CreateUser(username, hashedPassword, nickname)
}

func (s *AuthService) Login(username, password string) (Credentials, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if errors.Is(err, errors.ErrUserNotFound) {
		// Same answer as a wrong password to prevent user enumeration
		return Credentials{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return Credentials{}, err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Credentials{}, errors.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Resume trades a token from an earlier login for a fresh one.
func (s *AuthService) Resume(token string) (Credentials, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return Credentials{}, err
	}
	user, err := s.userRepository.GetUserByID(claims.UserID)
	if errors.Is(err, errors.ErrUserNotFound) {
		return Credentials{}, errors.ErrInvalidToken
	}
	if err != nil {
		return Credentials{}, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user domain.User) (Credentials, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{User: user, Token: token}, nil
}
