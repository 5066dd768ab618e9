package repositories

import (
	"fmt"

	"ohtalk/contract"
	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	sequenceBandwidth  = 100
	maxConflictRetries = 5
)

// Store is the BadgerDB implementation of the persistence port. Close
// releases the id sequences but leaves the database open.
type Store struct {
	contract.Store
	sequences []*badger.Sequence
}

func NewStore(db *badger.DB) (*Store, error) {
	s := &Store{}
	next := func(key string) (*badger.Sequence, error) {
		seq, err := db.GetSequence([]byte(key), sequenceBandwidth)
		if err != nil {
			return nil, fmt.Errorf("open sequence %s: %w", key, err)
		}
		s.sequences = append(s.sequences, seq)
		return seq, nil
	}
	users, err := next(userSeqKey)
	if err != nil {
		return nil, err
	}
	rooms, err := next(roomSeqKey)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	requests, err := next(requestSeqKey)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	messages, err := next(messageSeqKey)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Store = contract.Store{
		Users:    NewUserRepository(db, users),
		Friends:  NewFriendRepository(db, requests),
		Rooms:    NewRoomRepository(db, rooms),
		Messages: NewMessageRepository(db, messages),
	}
	return s, nil
}

func (s *Store) Close() error {
	var first error
	for _, seq := range s.sequences {
		if err := seq.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// nextID hands out strictly positive ids; a fresh badger sequence starts at 0.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return int64(n) + 1, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction touched the same keys.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt == maxConflictRetries {
			return err
		}
	}
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// get loads a value and translates a missing key into notFound.
func get(txn *badger.Txn, key []byte, notFound error) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func encodeID(id int64) []byte {
	return protowire.AppendVarint(nil, uint64(id))
}

func decodeID(b []byte) (int64, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return int64(v), nil
}

// scanIDs collects the ids suffixing every key under prefix, in key order.
func scanIDs(txn *badger.Txn, prefix []byte) ([]int64, error) {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	var ids []int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := idSuffix(it.Item().Key(), prefix)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// purge deletes every key under prefix outside of a transaction, for
// ranges that may not fit in a single one.
func purge(db *badger.DB, prefix []byte) error {
	var keys [][]byte
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}
	wb := db.NewWriteBatch()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

func loadUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	val, err := get(txn, userKey(id), errors.ErrUserNotFound)
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(val)
}
