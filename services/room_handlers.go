package services

import (
	"context"
	"slices"

	"ohtalk/domain"
	"ohtalk/errors"
	"ohtalk/protocol"

	"github.com/samber/lo"
)

func (d *Dispatcher) getChatRooms(_ context.Context, userID domain.UserID, _ protocol.EmptyRequest) (any, error) {
	rooms, err := d.store.Rooms.ListRoomsForUser(userID)
	if err != nil {
		return nil, err
	}
	return protocol.ToRoomList(rooms), nil
}

// createChatRoom adds the creator and every participant one call at a
// time. Unknown participants are skipped, a storage failure midway leaves
// the room with the members added so far.
func (d *Dispatcher) createChatRoom(_ context.Context, userID domain.UserID, p protocol.CreateChatRoomRequest) (any, error) {
	room, err := d.store.Rooms.CreateRoom(p.Name, p.Type)
	if err != nil {
		return nil, err
	}
	participants := lo.Uniq(append([]domain.UserID{userID}, lo.Map(p.Participants, func(id int64, _ int) domain.UserID {
		return domain.UserID(id)
	})...))

	added := make([]domain.UserID, 0, len(participants))
	for _, participant := range participants {
		err = d.store.Rooms.AddMember(room.ID, participant)
		if errors.Is(err, errors.ErrUserNotFound) {
			d.log.Debug("Skipping unknown participant", "room_id", room.ID, "user_id", participant)
			continue
		}
		if err != nil {
			d.pushRooms(added...)
			return nil, err
		}
		added = append(added, participant)
	}
	d.pushRooms(added...)
	return protocol.CreateRoomResponse{RoomID: int64(room.ID)}, nil
}

func (d *Dispatcher) leaveChatRoom(_ context.Context, userID domain.UserID, p protocol.LeaveChatRoomRequest) (any, error) {
	remaining, err := d.store.Rooms.RemoveMember(domain.RoomID(p.RoomID), userID)
	if errors.Is(err, errors.ErrNotRoomMember) {
		return nil, errors.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	d.pushRooms(append([]domain.UserID{userID}, remaining...)...)
	return nil, nil
}

func (d *Dispatcher) sendMessage(_ context.Context, userID domain.UserID, p protocol.SendMessageRequest) (any, error) {
	roomID := domain.RoomID(p.RoomID)
	members, sender, err := d.members(roomID, userID)
	if err != nil {
		return nil, err
	}
	content := p.Message
	if d.moderator != nil {
		content, _ = d.moderator.Censor(content)
	}

	message, err := d.store.Messages.AppendMessage(domain.Message{
		RoomID:         roomID,
		SenderID:       userID,
		SenderNickname: sender.Nickname,
		Content:        content,
	})
	if err != nil {
		return nil, err
	}
	d.registry.DeliverMany(
		lo.Map(members, func(m domain.Member, _ int) domain.UserID { return m.UserID }),
		protocol.Event(protocol.EventNewMessage, protocol.ToMessageEntry(message)),
	)
	return protocol.SendMessageResponse{MessageID: int64(message.ID)}, nil
}

// loadMessages returns the most recent history, oldest first.
func (d *Dispatcher) loadMessages(_ context.Context, userID domain.UserID, p protocol.LoadMessagesRequest) (any, error) {
	roomID := domain.RoomID(p.RoomID)
	if _, _, err := d.members(roomID, userID); err != nil {
		return nil, err
	}
	messages, err := d.store.Messages.ListRecent(roomID, d.historyLimit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return protocol.ToMessageList(messages), nil
}

// members reads the current membership and returns it along with the
// caller's own entry. Callers outside the room get ErrNotRoomMember.
func (d *Dispatcher) members(roomID domain.RoomID, userID domain.UserID) ([]domain.Member, domain.Member, error) {
	members, err := d.store.Rooms.ListMembers(roomID)
	if err != nil {
		return nil, domain.Member{}, err
	}
	self, ok := lo.Find(members, func(m domain.Member) bool { return m.UserID == userID })
	if !ok {
		return nil, domain.Member{}, errors.ErrNotRoomMember
	}
	return members, self, nil
}

// pushRooms sends each online user their own refreshed room list.
func (d *Dispatcher) pushRooms(userIDs ...domain.UserID) {
	for _, userID := range lo.Uniq(userIDs) {
		if !d.registry.IsOnline(userID) {
			continue
		}
		rooms, err := d.store.Rooms.ListRoomsForUser(userID)
		if err != nil {
			d.log.Warn("Skipping room list push", "user_id", userID, "error", err)
			continue
		}
		d.registry.Deliver(userID, protocol.Event(protocol.EventChatRoomsUpdated, protocol.ToRoomList(rooms)))
	}
}
