package protocol

import (
	"ohtalk/domain"

	"github.com/samber/lo"
)

// Inbound payloads. Presence rules live in the validate tags, the
// dispatcher checks them once before the operation runs.

type EmptyRequest struct{}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Nickname string `json:"nickname" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResumeRequest struct {
	Token string `json:"token" validate:"required"`
}

type AddFriendRequest struct {
	FriendUsername string `json:"friend_username" validate:"required"`
}

type RemoveFriendRequest struct {
	FriendID int64 `json:"friend_id" validate:"required,gt=0"`
}

type SendFriendRequestRequest struct {
	ToUsername string `json:"to_username" validate:"required"`
}

type AcceptFriendRequestRequest struct {
	RequestID int64 `json:"request_id" validate:"required,gt=0"`
}

type CreateChatRoomRequest struct {
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Participants []int64 `json:"participants" validate:"required,dive,gt=0"`
}

type LeaveChatRoomRequest struct {
	RoomID int64 `json:"room_id" validate:"required,gt=0"`
}

type SendMessageRequest struct {
	RoomID  int64  `json:"room_id" validate:"required,gt=0"`
	Message string `json:"message" validate:"required,max=4096"`
}

type LoadMessagesRequest struct {
	RoomID int64 `json:"room_id" validate:"required,gt=0"`
}

type GetProfileRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type GetOnlineStatusRequest struct {
	FriendIDs []int64 `json:"friend_ids" validate:"required"`
}

// Outbound payloads

type UserInfo struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profile_image"`
}

type RegisterResponse struct {
	UserID int64 `json:"user_id"`
}

type LoginResponse struct {
	UserID   int64    `json:"user_id"`
	UserInfo UserInfo `json:"user_info"`
	Token    string   `json:"token"`
}

type FriendEntry struct {
	FriendID int64  `json:"friend_id"`
	Nickname string `json:"nickname"`
	Username string `json:"username"`
}

type FriendListPayload struct {
	Friends []FriendEntry `json:"friends"`
}

type RequestEntry struct {
	RequestID    int64  `json:"request_id"`
	FromUserID   int64  `json:"from_user_id"`
	FromNickname string `json:"from_nickname"`
	FromUsername string `json:"from_username"`
}

type RequestListPayload struct {
	Requests []RequestEntry `json:"requests"`
}

type MemberEntry struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

type RoomEntry struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Participants []MemberEntry `json:"participants"`
}

type RoomListPayload struct {
	Rooms []RoomEntry `json:"rooms"`
}

type CreateRoomResponse struct {
	RoomID int64 `json:"room_id"`
}

type SendMessageResponse struct {
	MessageID int64 `json:"message_id"`
}

type MessageEntry struct {
	ID             int64  `json:"id"`
	RoomID         int64  `json:"room_id"`
	SenderID       int64  `json:"sender_id"`
	SenderNickname string `json:"sender_nickname"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
}

type MessageListPayload struct {
	Messages []MessageEntry `json:"messages"`
}

type ProfilePayload struct {
	Profile UserInfo `json:"profile"`
}

type OnlineStatus struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}

type OnlineStatusPayload struct {
	StatusList []OnlineStatus `json:"status_list"`
}

func ToUserInfo(u domain.User) UserInfo {
	return UserInfo{
		ID:           int64(u.ID),
		Username:     u.Username,
		Nickname:     u.Nickname,
		ProfileImage: u.ProfileImage,
	}
}

func ToFriendList(friends []domain.Friend) FriendListPayload {
	return FriendListPayload{Friends: lo.Map(friends, func(f domain.Friend, _ int) FriendEntry {
		return FriendEntry{FriendID: int64(f.UserID), Nickname: f.Nickname, Username: f.Username}
	})}
}

func ToRequestList(requests []domain.FriendRequest) RequestListPayload {
	return RequestListPayload{Requests: lo.Map(requests, func(r domain.FriendRequest, _ int) RequestEntry {
		return RequestEntry{
			RequestID:    int64(r.ID),
			FromUserID:   int64(r.FromUserID),
			FromNickname: r.FromNickname,
			FromUsername: r.FromUsername,
		}
	})}
}

func ToRoomEntry(room domain.Room) RoomEntry {
	return RoomEntry{
		ID:   int64(room.ID),
		Name: room.Name,
		Type: room.Kind,
		Participants: lo.Map(room.Members, func(m domain.Member, _ int) MemberEntry {
			return MemberEntry{UserID: int64(m.UserID), Nickname: m.Nickname}
		}),
	}
}

func ToRoomList(rooms []domain.Room) RoomListPayload {
	return RoomListPayload{Rooms: lo.Map(rooms, func(r domain.Room, _ int) RoomEntry {
		return ToRoomEntry(r)
	})}
}

func ToMessageEntry(m domain.Message) MessageEntry {
	return MessageEntry{
		ID:             int64(m.ID),
		RoomID:         int64(m.RoomID),
		SenderID:       int64(m.SenderID),
		SenderNickname: m.SenderNickname,
		Message:        m.Content,
		Timestamp:      m.At.UnixMilli(),
	}
}

func ToMessageList(messages []domain.Message) MessageListPayload {
	return MessageListPayload{Messages: lo.Map(messages, func(m domain.Message, _ int) MessageEntry {
		return ToMessageEntry(m)
	})}
}
