// Package domain contains core concepts of the chat system.
// This file defines User entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type UserID int64

// User is an account as seen by the core.
// PasswordHash is an encoded argon2id hash, never a plain password.
type User struct {
	ID           UserID
	Username     string
	Nickname     string
	PasswordHash string
	ProfileImage string
	CreatedAt    time.Time
}

// Valid reports whether the id has been allocated by the store.
func (id UserID) Valid() bool {
	return id > 0
}
