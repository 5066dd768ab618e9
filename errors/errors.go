package errors

import (
	"errors"
	"fmt"
)

// Protocol and session errors
var (
	ErrNotAuthenticated     = fmt.Errorf("not authenticated")
	ErrAlreadyAuthenticated = fmt.Errorf("session already authenticated as another user")
	ErrInvalidData          = fmt.Errorf("invalid data")
	ErrMissingType          = fmt.Errorf("missing type")
	ErrMissingData          = fmt.Errorf("missing data")
	ErrUnknownRequest       = fmt.Errorf("unknown request type")
	ErrSessionClosed        = fmt.Errorf("session closed")
	ErrFrameTooLarge        = fmt.Errorf("frame too large")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)

// Account errors
var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
)

// Friendship errors
var (
	ErrSelfFriendship   = fmt.Errorf("cannot befriend yourself")
	ErrAlreadyFriends   = fmt.Errorf("already friends")
	ErrNotFriends       = fmt.Errorf("not friends")
	ErrAlreadyRequested = fmt.Errorf("friend request already pending")
	ErrRequestNotFound  = fmt.Errorf("friend request not found")
)

// Room errors
var (
	ErrRoomNotFound  = fmt.Errorf("room not found")
	ErrNotRoomMember = fmt.Errorf("not a room member")
)

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// As is [errors.As].
func As(err error, target any) bool { return errors.As(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }
