package repositories

import (
	"fmt"
	"strconv"

	"ohtalk/domain"
)

// Every id inside a key is zero padded to 19 digits so that lexicographic
// key order matches numeric order.
const idWidth = 19

const (
	userSeqKey    = "seq:user"
	roomSeqKey    = "seq:room"
	requestSeqKey = "seq:freq"
	messageSeqKey = "seq:msg"
)

func userKey(id domain.UserID) []byte {
	return fmt.Appendf(nil, "user:%019d", id)
}

func usernameKey(username string) []byte {
	return []byte("username:" + username)
}

func friendPrefix(userID domain.UserID) []byte {
	return fmt.Appendf(nil, "friend:%019d:", userID)
}

func friendKey(userID, friendID domain.UserID) []byte {
	return fmt.Appendf(friendPrefix(userID), "%019d", friendID)
}

func requestKey(id domain.RequestID) []byte {
	return fmt.Appendf(nil, "freq:%019d", id)
}

// inboxPrefix indexes the pending requests addressed to a user.
func inboxPrefix(toUserID domain.UserID) []byte {
	return fmt.Appendf(nil, "freqto:%019d:", toUserID)
}

func inboxKey(toUserID domain.UserID, id domain.RequestID) []byte {
	return fmt.Appendf(inboxPrefix(toUserID), "%019d", id)
}

func roomKey(id domain.RoomID) []byte {
	return fmt.Appendf(nil, "room:%019d", id)
}

func memberPrefix(roomID domain.RoomID) []byte {
	return fmt.Appendf(nil, "member:%019d:", roomID)
}

func memberKey(roomID domain.RoomID, userID domain.UserID) []byte {
	return fmt.Appendf(memberPrefix(roomID), "%019d", userID)
}

// userRoomPrefix is the reverse membership index used to list a user's rooms.
func userRoomPrefix(userID domain.UserID) []byte {
	return fmt.Appendf(nil, "umember:%019d:", userID)
}

func userRoomKey(userID domain.UserID, roomID domain.RoomID) []byte {
	return fmt.Appendf(userRoomPrefix(userID), "%019d", roomID)
}

func messagePrefix(roomID domain.RoomID) []byte {
	return fmt.Appendf(nil, "msg:%019d:", roomID)
}

func messageKey(roomID domain.RoomID, id domain.MessageID) []byte {
	return fmt.Appendf(messagePrefix(roomID), "%019d", id)
}

// idSuffix parses the padded id that ends a key built with one of the
// prefixes above.
func idSuffix(key, prefix []byte) (int64, error) {
	if len(key) != len(prefix)+idWidth {
		return 0, fmt.Errorf("malformed key %q", key)
	}
	return strconv.ParseInt(string(key[len(prefix):]), 10, 64)
}
