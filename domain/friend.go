package domain

type RequestID int64

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
)

// Friend is one entry of a user's friend list.
type Friend struct {
	UserID   UserID
	Username string
	Nickname string
}

// FriendRequest links a sender to a recipient until the recipient accepts.
type FriendRequest struct {
	ID           RequestID
	FromUserID   UserID
	ToUserID     UserID
	Status       RequestStatus
	FromUsername string
	FromNickname string
}
