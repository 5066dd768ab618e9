package repositories

import (
	"fmt"

	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/dgraph-io/badger/v4"
)

// RoomRepository keeps each membership twice, under member:<room>:<user>
// and umember:<user>:<room>, so both directions can be listed with a
// prefix scan.
type RoomRepository struct {
	db  *badger.DB
	ids *badger.Sequence
}

func NewRoomRepository(db *badger.DB, ids *badger.Sequence) *RoomRepository {
	return &RoomRepository{db: db, ids: ids}
}

func (r *RoomRepository) CreateRoom(name, kind string) (domain.Room, error) {
	id, err := nextID(r.ids)
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{ID: domain.RoomID(id), Name: name, Kind: kind}
	err = update(r.db, func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), encodeRoom(room))
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// DeleteRoom removes the room, its membership and its history.
func (r *RoomRepository) DeleteRoom(roomID domain.RoomID) error {
	err := update(r.db, func(txn *badger.Txn) error {
		if _, err := get(txn, roomKey(roomID), errors.ErrRoomNotFound); err != nil {
			return err
		}
		members, err := scanIDs(txn, memberPrefix(roomID))
		if err != nil {
			return err
		}
		for _, id := range members {
			if err = unlink(txn, roomID, domain.UserID(id)); err != nil {
				return err
			}
		}
		return txn.Delete(roomKey(roomID))
	})
	if err != nil {
		return err
	}
	return r.purgeHistory(roomID)
}

func (r *RoomRepository) AddMember(roomID domain.RoomID, userID domain.UserID) error {
	return update(r.db, func(txn *badger.Txn) error {
		if _, err := get(txn, roomKey(roomID), errors.ErrRoomNotFound); err != nil {
			return err
		}
		if _, err := loadUser(txn, userID); err != nil {
			return err
		}
		if err := txn.Set(memberKey(roomID, userID), nil); err != nil {
			return err
		}
		return txn.Set(userRoomKey(userID, roomID), nil)
	})
}

func (r *RoomRepository) RemoveMember(roomID domain.RoomID, userID domain.UserID) ([]domain.UserID, error) {
	var remaining []domain.UserID
	err := update(r.db, func(txn *badger.Txn) error {
		remaining = nil
		if _, err := get(txn, roomKey(roomID), errors.ErrRoomNotFound); err != nil {
			return err
		}
		member, err := exists(txn, memberKey(roomID, userID))
		if err != nil {
			return err
		}
		if !member {
			return errors.ErrNotRoomMember
		}
		if err = unlink(txn, roomID, userID); err != nil {
			return err
		}
		ids, err := scanIDs(txn, memberPrefix(roomID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			if domain.UserID(id) != userID {
				remaining = append(remaining, domain.UserID(id))
			}
		}
		if len(remaining) == 0 {
			return txn.Delete(roomKey(roomID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		if err = r.purgeHistory(roomID); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}

func (r *RoomRepository) ListMembers(roomID domain.RoomID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.View(func(txn *badger.Txn) error {
		if _, err := get(txn, roomKey(roomID), errors.ErrRoomNotFound); err != nil {
			return err
		}
		var err error
		members, err = loadMembers(txn, roomID)
		return err
	})
	return members, err
}

func (r *RoomRepository) GetRoom(roomID domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = loadRoom(txn, roomID)
		return err
	})
	return room, err
}

func (r *RoomRepository) ListRoomsForUser(userID domain.UserID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		ids, err := scanIDs(txn, userRoomPrefix(userID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			room, err := loadRoom(txn, domain.RoomID(id))
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	return rooms, err
}

func (r *RoomRepository) purgeHistory(roomID domain.RoomID) error {
	if err := purge(r.db, messagePrefix(roomID)); err != nil {
		return fmt.Errorf("purge history of room %d: %w", roomID, err)
	}
	return nil
}

func unlink(txn *badger.Txn, roomID domain.RoomID, userID domain.UserID) error {
	if err := txn.Delete(memberKey(roomID, userID)); err != nil {
		return err
	}
	return txn.Delete(userRoomKey(userID, roomID))
}

func loadRoom(txn *badger.Txn, roomID domain.RoomID) (domain.Room, error) {
	val, err := get(txn, roomKey(roomID), errors.ErrRoomNotFound)
	if err != nil {
		return domain.Room{}, err
	}
	room, err := decodeRoom(val)
	if err != nil {
		return domain.Room{}, err
	}
	room.Members, err = loadMembers(txn, roomID)
	return room, err
}

// loadMembers resolves nicknames from the account records. A member whose
// account vanished keeps an empty nickname.
func loadMembers(txn *badger.Txn, roomID domain.RoomID) ([]domain.Member, error) {
	ids, err := scanIDs(txn, memberPrefix(roomID))
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		user, err := loadUser(txn, domain.UserID(id))
		if err != nil && !errors.Is(err, errors.ErrUserNotFound) {
			return nil, err
		}
		members = append(members, domain.Member{UserID: domain.UserID(id), Nickname: user.Nickname})
	}
	return members, nil
}
