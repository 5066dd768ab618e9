// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once appended.
package domain

import "time"

type MessageID int64

// Message represents an immutable chat line posted in a room.
type Message struct {
	ID             MessageID
	RoomID         RoomID
	SenderID       UserID
	SenderNickname string
	Content        string
	At             time.Time
}
