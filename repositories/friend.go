package repositories

import (
	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/dgraph-io/badger/v4"
)

// FriendRepository stores friendships as two directed keys
// (friend:<a>:<b> and friend:<b>:<a>) and friend requests as records
// indexed by recipient while pending.
type FriendRepository struct {
	db  *badger.DB
	ids *badger.Sequence
}

func NewFriendRepository(db *badger.DB, ids *badger.Sequence) *FriendRepository {
	return &FriendRepository{db: db, ids: ids}
}

func (f *FriendRepository) ListFriends(userID domain.UserID) ([]domain.Friend, error) {
	var friends []domain.Friend
	err := f.db.View(func(txn *badger.Txn) error {
		ids, err := scanIDs(txn, friendPrefix(userID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			user, err := loadUser(txn, domain.UserID(id))
			if err != nil {
				return err
			}
			friends = append(friends, domain.Friend{
				UserID:   user.ID,
				Username: user.Username,
				Nickname: user.Nickname,
			})
		}
		return nil
	})
	return friends, err
}

// AddFriend creates a mutual friendship without going through a request.
func (f *FriendRepository) AddFriend(userID, friendID domain.UserID) error {
	if userID == friendID {
		return errors.ErrSelfFriendship
	}
	return update(f.db, func(txn *badger.Txn) error {
		for _, id := range []domain.UserID{userID, friendID} {
			if _, err := loadUser(txn, id); err != nil {
				return err
			}
		}
		already, err := exists(txn, friendKey(userID, friendID))
		if err != nil {
			return err
		}
		if already {
			return errors.ErrAlreadyFriends
		}
		return befriend(txn, userID, friendID)
	})
}

func (f *FriendRepository) RemoveFriend(userID, friendID domain.UserID) error {
	return update(f.db, func(txn *badger.Txn) error {
		ok, err := exists(txn, friendKey(userID, friendID))
		if err != nil {
			return err
		}
		if !ok {
			return errors.ErrNotFriends
		}
		if err = txn.Delete(friendKey(userID, friendID)); err != nil {
			return err
		}
		return txn.Delete(friendKey(friendID, userID))
	})
}

func (f *FriendRepository) AreFriends(userID, friendID domain.UserID) (bool, error) {
	var ok bool
	err := f.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = exists(txn, friendKey(userID, friendID))
		return err
	})
	return ok, err
}

// CreateRequest records a pending request. A second pending request for
// the same pair in the same direction is rejected.
func (f *FriendRepository) CreateRequest(fromUserID, toUserID domain.UserID) (domain.FriendRequest, error) {
	if fromUserID == toUserID {
		return domain.FriendRequest{}, errors.ErrSelfFriendship
	}
	id, err := nextID(f.ids)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	request := domain.FriendRequest{
		ID:         domain.RequestID(id),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     domain.RequestPending,
	}
	err = update(f.db, func(txn *badger.Txn) error {
		if _, err := loadUser(txn, toUserID); err != nil {
			return err
		}
		from, err := loadUser(txn, fromUserID)
		if err != nil {
			return err
		}
		request.FromUsername, request.FromNickname = from.Username, from.Nickname

		already, err := exists(txn, friendKey(fromUserID, toUserID))
		if err != nil {
			return err
		}
		if already {
			return errors.ErrAlreadyFriends
		}
		pending, err := pendingFor(txn, toUserID)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if p.FromUserID == fromUserID {
				return errors.ErrAlreadyRequested
			}
		}
		if err = txn.Set(requestKey(request.ID), encodeRequest(request)); err != nil {
			return err
		}
		return txn.Set(inboxKey(toUserID, request.ID), nil)
	})
	if err != nil {
		return domain.FriendRequest{}, err
	}
	return request, nil
}

func (f *FriendRepository) GetRequest(requestID domain.RequestID) (domain.FriendRequest, error) {
	var request domain.FriendRequest
	err := f.db.View(func(txn *badger.Txn) error {
		var err error
		request, err = loadRequest(txn, requestID)
		return err
	})
	return request, err
}

// ListPendingRequests returns the pending requests addressed to toUserID,
// oldest first.
func (f *FriendRepository) ListPendingRequests(toUserID domain.UserID) ([]domain.FriendRequest, error) {
	var requests []domain.FriendRequest
	err := f.db.View(func(txn *badger.Txn) error {
		var err error
		requests, err = pendingFor(txn, toUserID)
		return err
	})
	return requests, err
}

func (f *FriendRepository) AcceptRequest(requestID domain.RequestID, accepterID domain.UserID) (domain.FriendRequest, error) {
	var request domain.FriendRequest
	err := update(f.db, func(txn *badger.Txn) error {
		var err error
		request, err = loadRequest(txn, requestID)
		if err != nil {
			return err
		}
		if request.Status != domain.RequestPending || request.ToUserID != accepterID {
			return errors.ErrRequestNotFound
		}
		request.Status = domain.RequestAccepted
		if err = txn.Set(requestKey(request.ID), encodeRequest(request)); err != nil {
			return err
		}
		if err = txn.Delete(inboxKey(request.ToUserID, request.ID)); err != nil {
			return err
		}
		return befriend(txn, request.FromUserID, request.ToUserID)
	})
	if err != nil {
		return domain.FriendRequest{}, err
	}
	return request, nil
}

func befriend(txn *badger.Txn, a, b domain.UserID) error {
	if err := txn.Set(friendKey(a, b), nil); err != nil {
		return err
	}
	return txn.Set(friendKey(b, a), nil)
}

// loadRequest reads a request and fills in the sender's names.
func loadRequest(txn *badger.Txn, id domain.RequestID) (domain.FriendRequest, error) {
	val, err := get(txn, requestKey(id), errors.ErrRequestNotFound)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	request, err := decodeRequest(val)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	from, err := loadUser(txn, request.FromUserID)
	if err != nil && !errors.Is(err, errors.ErrUserNotFound) {
		return domain.FriendRequest{}, err
	}
	request.FromUsername, request.FromNickname = from.Username, from.Nickname
	return request, nil
}

func pendingFor(txn *badger.Txn, toUserID domain.UserID) ([]domain.FriendRequest, error) {
	ids, err := scanIDs(txn, inboxPrefix(toUserID))
	if err != nil {
		return nil, err
	}
	requests := make([]domain.FriendRequest, 0, len(ids))
	for _, id := range ids {
		request, err := loadRequest(txn, domain.RequestID(id))
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}
