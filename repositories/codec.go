package repositories

import (
	"fmt"
	"time"

	"ohtalk/domain"

	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored as protobuf wire messages. Field numbers are part of
// the on-disk format and must never be reused.

const (
	tagUserID           protowire.Number = 1
	tagUserUsername     protowire.Number = 2
	tagUserNickname     protowire.Number = 3
	tagUserPasswordHash protowire.Number = 4
	tagUserProfileImage protowire.Number = 5
	tagUserCreatedAt    protowire.Number = 6
)

const (
	tagRequestID     protowire.Number = 1
	tagRequestFrom   protowire.Number = 2
	tagRequestTo     protowire.Number = 3
	tagRequestStatus protowire.Number = 4
)

const (
	tagRoomID   protowire.Number = 1
	tagRoomName protowire.Number = 2
	tagRoomKind protowire.Number = 3
)

const (
	tagMessageID             protowire.Number = 1
	tagMessageRoom           protowire.Number = 2
	tagMessageSender         protowire.Number = 3
	tagMessageSenderNickname protowire.Number = 4
	tagMessageContent        protowire.Number = 5
	tagMessageAt             protowire.Number = 6
)

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// field is one decoded wire field, either a varint or a length-delimited value.
type field struct {
	varint int64
	bytes  string
}

// decodeFields walks a record and hands every known field to set.
// Unknown fields are skipped so that older binaries can read newer records.
func decodeFields(b []byte, set func(num protowire.Number, f field)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			set(num, field{varint: int64(v)})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			set(num, field{bytes: v})
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func encodeUser(u domain.User) []byte {
	var b []byte
	b = appendVarint(b, tagUserID, int64(u.ID))
	b = appendString(b, tagUserUsername, u.Username)
	b = appendString(b, tagUserNickname, u.Nickname)
	b = appendString(b, tagUserPasswordHash, u.PasswordHash)
	b = appendString(b, tagUserProfileImage, u.ProfileImage)
	return appendVarint(b, tagUserCreatedAt, u.CreatedAt.UnixMilli())
}

func decodeUser(b []byte) (domain.User, error) {
	var u domain.User
	err := decodeFields(b, func(num protowire.Number, f field) {
		switch num {
		case tagUserID:
			u.ID = domain.UserID(f.varint)
		case tagUserUsername:
			u.Username = f.bytes
		case tagUserNickname:
			u.Nickname = f.bytes
		case tagUserPasswordHash:
			u.PasswordHash = f.bytes
		case tagUserProfileImage:
			u.ProfileImage = f.bytes
		case tagUserCreatedAt:
			u.CreatedAt = time.UnixMilli(f.varint).UTC()
		}
	})
	return u, err
}

func encodeRequest(r domain.FriendRequest) []byte {
	var b []byte
	b = appendVarint(b, tagRequestID, int64(r.ID))
	b = appendVarint(b, tagRequestFrom, int64(r.FromUserID))
	b = appendVarint(b, tagRequestTo, int64(r.ToUserID))
	return appendString(b, tagRequestStatus, string(r.Status))
}

func decodeRequest(b []byte) (domain.FriendRequest, error) {
	var r domain.FriendRequest
	err := decodeFields(b, func(num protowire.Number, f field) {
		switch num {
		case tagRequestID:
			r.ID = domain.RequestID(f.varint)
		case tagRequestFrom:
			r.FromUserID = domain.UserID(f.varint)
		case tagRequestTo:
			r.ToUserID = domain.UserID(f.varint)
		case tagRequestStatus:
			r.Status = domain.RequestStatus(f.bytes)
		}
	})
	return r, err
}

func encodeRoom(r domain.Room) []byte {
	var b []byte
	b = appendVarint(b, tagRoomID, int64(r.ID))
	b = appendString(b, tagRoomName, r.Name)
	return appendString(b, tagRoomKind, r.Kind)
}

func decodeRoom(b []byte) (domain.Room, error) {
	var r domain.Room
	err := decodeFields(b, func(num protowire.Number, f field) {
		switch num {
		case tagRoomID:
			r.ID = domain.RoomID(f.varint)
		case tagRoomName:
			r.Name = f.bytes
		case tagRoomKind:
			r.Kind = f.bytes
		}
	})
	return r, err
}

func encodeMessage(m domain.Message) []byte {
	var b []byte
	b = appendVarint(b, tagMessageID, int64(m.ID))
	b = appendVarint(b, tagMessageRoom, int64(m.RoomID))
	b = appendVarint(b, tagMessageSender, int64(m.SenderID))
	b = appendString(b, tagMessageSenderNickname, m.SenderNickname)
	b = appendString(b, tagMessageContent, m.Content)
	return appendVarint(b, tagMessageAt, m.At.UnixNano())
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := decodeFields(b, func(num protowire.Number, f field) {
		switch num {
		case tagMessageID:
			m.ID = domain.MessageID(f.varint)
		case tagMessageRoom:
			m.RoomID = domain.RoomID(f.varint)
		case tagMessageSender:
			m.SenderID = domain.UserID(f.varint)
		case tagMessageSenderNickname:
			m.SenderNickname = f.bytes
		case tagMessageContent:
			m.Content = f.bytes
		case tagMessageAt:
			m.At = time.Unix(0, f.varint).UTC()
		}
	})
	return m, err
}
