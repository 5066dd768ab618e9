//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package contract

import "ohtalk/domain"

// IUserRepository persists accounts. Usernames are unique.
type IUserRepository interface {
	CreateUser(username, hashedPassword, nickname string) (domain.UserID, error)
	GetUserByID(id domain.UserID) (domain.User, error)
	GetUserByUsername(username string) (domain.User, error)
}

// IFriendRepository persists friendships (stored in both directions) and
// friend requests.
type IFriendRepository interface {
	ListFriends(userID domain.UserID) ([]domain.Friend, error)
	AddFriend(userID, friendID domain.UserID) error
	RemoveFriend(userID, friendID domain.UserID) error
	AreFriends(userID, friendID domain.UserID) (bool, error)
	CreateRequest(fromUserID, toUserID domain.UserID) (domain.FriendRequest, error)
	GetRequest(requestID domain.RequestID) (domain.FriendRequest, error)
	ListPendingRequests(toUserID domain.UserID) ([]domain.FriendRequest, error)
	// AcceptRequest fails with ErrRequestNotFound unless the request is
	// pending and addressed to accepterID.
	AcceptRequest(requestID domain.RequestID, accepterID domain.UserID) (domain.FriendRequest, error)
}

// IRoomRepository persists rooms and their membership.
type IRoomRepository interface {
	CreateRoom(name, kind string) (domain.Room, error)
	DeleteRoom(roomID domain.RoomID) error
	AddMember(roomID domain.RoomID, userID domain.UserID) error
	// RemoveMember returns the members left in the room. The room itself is
	// deleted once nobody is left.
	RemoveMember(roomID domain.RoomID, userID domain.UserID) ([]domain.UserID, error)
	ListMembers(roomID domain.RoomID) ([]domain.Member, error)
	GetRoom(roomID domain.RoomID) (domain.Room, error)
	ListRoomsForUser(userID domain.UserID) ([]domain.Room, error)
}

// IMessageRepository persists room history.
type IMessageRepository interface {
	AppendMessage(message domain.Message) (domain.Message, error)
	// ListRecent returns at most limit messages, newest first.
	ListRecent(roomID domain.RoomID, limit int) ([]domain.Message, error)
}

// Store bundles the persistence port handed to the dispatcher.
type Store struct {
	Users    IUserRepository
	Friends  IFriendRepository
	Rooms    IRoomRepository
	Messages IMessageRepository
}
