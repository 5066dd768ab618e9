package domain

type RoomID int64

// Room is a chat channel. Membership is owned by the store and is never
// cached by the core, Members is only filled on reads.
type Room struct {
	ID      RoomID
	Name    string
	Kind    string
	Members []Member
}

// Member is a room participant with its display name resolved.
type Member struct {
	UserID   UserID
	Nickname string
}

// HasMember reports whether userID is part of the room.
func (r Room) HasMember(userID UserID) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the ids of every member, in store order.
func (r Room) MemberIDs() []UserID {
	ids := make([]UserID, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
