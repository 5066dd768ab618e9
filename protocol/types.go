package protocol

// Request types
const (
	TypeRegister            = "register"
	TypeLogin               = "login"
	TypeResume              = "resume"
	TypeGetFriendList       = "get_friend_list"
	TypeAddFriend           = "add_friend"
	TypeRemoveFriend        = "remove_friend"
	TypeSendFriendRequest   = "send_friend_request"
	TypeGetFriendRequests   = "get_friend_requests"
	TypeAcceptFriendRequest = "accept_friend_request"
	TypeGetChatRooms        = "get_chat_rooms"
	TypeCreateChatRoom      = "create_chat_room"
	TypeLeaveChatRoom       = "leave_chat_room"
	TypeSendMessage         = "send_message"
	TypeLoadMessages        = "load_messages"
	TypeGetProfile          = "get_profile"
	TypeGetOnlineStatus     = "get_online_status"
)

// Pushed event types
const (
	EventFriendRequestListUpdated = "friend_request_list_updated"
	EventFriendListUpdated        = "friend_list_updated"
	EventChatRoomsUpdated         = "chat_rooms_updated"
	EventNewMessage               = "new_message"
)

// Failure reasons sent to clients
const (
	ReasonNotAuthenticated     = "Not authenticated"
	ReasonInvalidData          = "Invalid data"
	ReasonUnknownRequest       = "Unknown request type"
	ReasonServerErrorPrefix    = "Server error:"
	ReasonDatabase             = "Database error"
	ReasonUsernameExists       = "Username already exists"
	ReasonInvalidCredentials   = "Invalid username or password"
	ReasonInvalidToken         = "Invalid or expired token"
	ReasonAlreadyAuthenticated = "Already authenticated"
	ReasonUserNotFound         = "User not found"
	ReasonSelfFriendship       = "Cannot befriend yourself"
	ReasonAlreadyFriends       = "Already friends"
	ReasonNotFriends           = "Not friends"
	ReasonAlreadyRequested     = "Already requested"
	ReasonRequestNotFound      = "Request not found"
	ReasonRoomNotFound         = "Room not found"
	ReasonNotRoomMember        = "Not a room member"
)
