package repositories

import (
	"strings"
	"time"

	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/dgraph-io/badger/v4"
)

type MessageRepository struct {
	db  *badger.DB
	ids *badger.Sequence
}

func NewMessageRepository(db *badger.DB, ids *badger.Sequence) *MessageRepository {
	return &MessageRepository{db: db, ids: ids}
}

// AppendMessage persists a message under "msg:{room_id}:{id_padded}".
// Ids grow monotonically, so key order within a room is insertion order.
func (m *MessageRepository) AppendMessage(message domain.Message) (domain.Message, error) {
	id, err := nextID(m.ids)
	if err != nil {
		return domain.Message{}, err
	}
	message.ID = domain.MessageID(id)
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}
	err = update(m.db, func(txn *badger.Txn) error {
		if _, err := get(txn, roomKey(message.RoomID), errors.ErrRoomNotFound); err != nil {
			return err
		}
		return txn.Set(messageKey(message.RoomID, message.ID), encodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListRecent walks the room backwards from its newest key and stops once
// limit messages were collected.
func (m *MessageRepository) ListRecent(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, max(limit, 0))
	if limit <= 0 {
		return messages, nil
	}
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Past every padded id of the room, the reverse seek lands on the newest one.
		seekKey := append(append([]byte{}, prefix...), strings.Repeat("9", idWidth)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				message, err := decodeMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
