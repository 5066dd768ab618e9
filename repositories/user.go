package repositories

import (
	"time"

	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/dgraph-io/badger/v4"
)

type UserRepository struct {
	db  *badger.DB
	ids *badger.Sequence
}

func NewUserRepository(db *badger.DB, ids *badger.Sequence) *UserRepository {
	return &UserRepository{db: db, ids: ids}
}

// CreateUser persists a new account and returns its id.
// The username index and the record are written in the same transaction,
// so two concurrent registrations of one username cannot both succeed.
func (u *UserRepository) CreateUser(username, hashedPassword, nickname string) (domain.UserID, error) {
	id, err := nextID(u.ids)
	if err != nil {
		return 0, err
	}
	user := domain.User{
		ID:           domain.UserID(id),
		Username:     username,
		Nickname:     nickname,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	err = update(u.db, func(txn *badger.Txn) error {
		taken, err := exists(txn, usernameKey(username))
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrUserAlreadyExists
		}
		if err = txn.Set(usernameKey(username), encodeID(id)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), encodeUser(user))
	})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (u *UserRepository) GetUserByID(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		val, err := get(txn, usernameKey(username), errors.ErrUserNotFound)
		if err != nil {
			return err
		}
		id, err := decodeID(val)
		if err != nil {
			return err
		}
		user, err = loadUser(txn, domain.UserID(id))
		return err
	})
	return user, err
}
