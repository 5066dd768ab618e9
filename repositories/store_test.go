package repositories

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ohtalk/domain"
	"ohtalk/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	store, err := NewStore(db)
	req.NoError(err)
	t.Cleanup(func() {
		_ = store.Close()
		_ = db.Close()
	})
	return store
}

func createUsers(t *testing.T, store *Store, usernames ...string) []domain.UserID {
	t.Helper()
	ids := make([]domain.UserID, 0, len(usernames))
	for _, username := range usernames {
		id, err := store.Users.CreateUser(username, "hash", "Nick "+username)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestUser_Create_And_Get(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	// Given a registered user
	id, err := store.Users.CreateUser("alice", "hash", "Alice")
	req.NoError(err)
	req.True(id.Valid())

	// When fetching it both ways
	byName, err := store.Users.GetUserByUsername("alice")
	req.NoError(err)
	byID, err := store.Users.GetUserByID(id)
	req.NoError(err)

	// Then both lookups return the same record
	req.Equal(byName, byID)
	req.Equal("alice", byID.Username)
	req.Equal("Alice", byID.Nickname)
	req.Equal("hash", byID.PasswordHash)
	req.False(byID.CreatedAt.IsZero())
}

func TestUser_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.Users.CreateUser("alice", "hash", "Alice")
	req.NoError(err)

	_, err = store.Users.CreateUser("alice", "other", "Other")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUser_Concurrent_Registration_Single_Winner(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Users.CreateUser("bob", "hash", "Bob"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	req.Equal(1, created)
}

func TestUser_Not_Found(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.Users.GetUserByUsername("nobody")
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = store.Users.GetUserByID(42)
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestFriend_Request_Accept_Flow(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice", "bob")
	alice, bob := ids[0], ids[1]

	// Given alice asked bob
	request, err := store.Friends.CreateRequest(alice, bob)
	req.NoError(err)
	req.Equal(domain.RequestPending, request.Status)
	req.Equal("alice", request.FromUsername)

	pending, err := store.Friends.ListPendingRequests(bob)
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal(request.ID, pending[0].ID)

	// When bob accepts
	accepted, err := store.Friends.AcceptRequest(request.ID, bob)
	req.NoError(err)
	req.Equal(domain.RequestAccepted, accepted.Status)

	// Then they are friends both ways and nothing is pending anymore
	ok, err := store.Friends.AreFriends(alice, bob)
	req.NoError(err)
	req.True(ok)
	ok, err = store.Friends.AreFriends(bob, alice)
	req.NoError(err)
	req.True(ok)

	friends, err := store.Friends.ListFriends(alice)
	req.NoError(err)
	req.Equal([]domain.Friend{{UserID: bob, Username: "bob", Nickname: "Nick bob"}}, friends)

	pending, err = store.Friends.ListPendingRequests(bob)
	req.NoError(err)
	req.Empty(pending)

	_, err = store.Friends.AcceptRequest(request.ID, bob)
	req.ErrorIs(err, errors.ErrRequestNotFound)
}

func TestFriend_Accept_By_Non_Recipient(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice", "bob", "carol")

	request, err := store.Friends.CreateRequest(ids[0], ids[1])
	req.NoError(err)

	_, err = store.Friends.AcceptRequest(request.ID, ids[2])
	req.ErrorIs(err, errors.ErrRequestNotFound)

	ok, err := store.Friends.AreFriends(ids[0], ids[1])
	req.NoError(err)
	req.False(ok)
	stored, err := store.Friends.GetRequest(request.ID)
	req.NoError(err)
	req.Equal(domain.RequestPending, stored.Status)
}

func TestFriend_Request_Rejections(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice", "bob", "carol")
	alice, bob, carol := ids[0], ids[1], ids[2]

	_, err := store.Friends.CreateRequest(alice, alice)
	req.ErrorIs(err, errors.ErrSelfFriendship)

	_, err = store.Friends.CreateRequest(alice, 999)
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = store.Friends.CreateRequest(alice, bob)
	req.NoError(err)
	_, err = store.Friends.CreateRequest(alice, bob)
	req.ErrorIs(err, errors.ErrAlreadyRequested)

	req.NoError(store.Friends.AddFriend(alice, carol))
	_, err = store.Friends.CreateRequest(alice, carol)
	req.ErrorIs(err, errors.ErrAlreadyFriends)

	_, err = store.Friends.GetRequest(12345)
	req.ErrorIs(err, errors.ErrRequestNotFound)
}

func TestFriend_Add_And_Remove(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice", "bob")
	alice, bob := ids[0], ids[1]

	req.ErrorIs(store.Friends.AddFriend(alice, alice), errors.ErrSelfFriendship)
	req.ErrorIs(store.Friends.AddFriend(alice, 999), errors.ErrUserNotFound)
	req.NoError(store.Friends.AddFriend(alice, bob))
	req.ErrorIs(store.Friends.AddFriend(bob, alice), errors.ErrAlreadyFriends)

	req.NoError(store.Friends.RemoveFriend(bob, alice))

	friends, err := store.Friends.ListFriends(alice)
	req.NoError(err)
	req.Empty(friends)
	req.ErrorIs(store.Friends.RemoveFriend(alice, bob), errors.ErrNotFriends)
}

func TestRoom_Membership(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice", "bob")
	alice, bob := ids[0], ids[1]

	// Given a room with two members
	room, err := store.Rooms.CreateRoom("general", "group")
	req.NoError(err)
	req.NoError(store.Rooms.AddMember(room.ID, alice))
	req.NoError(store.Rooms.AddMember(room.ID, bob))
	req.NoError(store.Rooms.AddMember(room.ID, bob))

	// Then both see it with resolved nicknames
	fetched, err := store.Rooms.GetRoom(room.ID)
	req.NoError(err)
	req.Equal("general", fetched.Name)
	req.Equal("group", fetched.Kind)
	req.Equal([]domain.Member{
		{UserID: alice, Nickname: "Nick alice"},
		{UserID: bob, Nickname: "Nick bob"},
	}, fetched.Members)

	rooms, err := store.Rooms.ListRoomsForUser(bob)
	req.NoError(err)
	req.Len(rooms, 1)
	req.Equal(room.ID, rooms[0].ID)

	req.ErrorIs(store.Rooms.AddMember(room.ID, 999), errors.ErrUserNotFound)
	req.ErrorIs(store.Rooms.AddMember(999, alice), errors.ErrRoomNotFound)
}

func TestRoom_Deleted_When_Last_Member_Leaves(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice", "bob")
	alice, bob := ids[0], ids[1]

	room, err := store.Rooms.CreateRoom("pair", "private")
	req.NoError(err)
	req.NoError(store.Rooms.AddMember(room.ID, alice))
	req.NoError(store.Rooms.AddMember(room.ID, bob))
	_, err = store.Messages.AppendMessage(domain.Message{RoomID: room.ID, SenderID: alice, Content: "hi"})
	req.NoError(err)

	// When alice leaves, bob remains
	remaining, err := store.Rooms.RemoveMember(room.ID, alice)
	req.NoError(err)
	req.Equal([]domain.UserID{bob}, remaining)

	_, err = store.Rooms.RemoveMember(room.ID, alice)
	req.ErrorIs(err, errors.ErrNotRoomMember)

	// When bob leaves too, the room and its history are gone
	remaining, err = store.Rooms.RemoveMember(room.ID, bob)
	req.NoError(err)
	req.Empty(remaining)

	_, err = store.Rooms.GetRoom(room.ID)
	req.ErrorIs(err, errors.ErrRoomNotFound)
	for _, id := range ids {
		rooms, err := store.Rooms.ListRoomsForUser(id)
		req.NoError(err)
		req.Empty(rooms)
	}
	history, err := store.Messages.ListRecent(room.ID, 10)
	req.NoError(err)
	req.Empty(history)
}

func TestRoom_Delete(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice")

	room, err := store.Rooms.CreateRoom("solo", "group")
	req.NoError(err)
	req.NoError(store.Rooms.AddMember(room.ID, ids[0]))

	req.NoError(store.Rooms.DeleteRoom(room.ID))

	_, err = store.Rooms.ListMembers(room.ID)
	req.ErrorIs(err, errors.ErrRoomNotFound)
	rooms, err := store.Rooms.ListRoomsForUser(ids[0])
	req.NoError(err)
	req.Empty(rooms)
	req.ErrorIs(store.Rooms.DeleteRoom(room.ID), errors.ErrRoomNotFound)
}

func TestMessage_ListRecent_Newest_First_And_Limit(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice")

	room, err := store.Rooms.CreateRoom("general", "group")
	req.NoError(err)
	at := time.Now().UTC()
	for i := range 5 {
		stored, err := store.Messages.AppendMessage(domain.Message{
			RoomID:         room.ID,
			SenderID:       ids[0],
			SenderNickname: "Alice",
			Content:        fmt.Sprintf("message %d", i),
			At:             at.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
		req.True(stored.ID > 0)
	}

	recent, err := store.Messages.ListRecent(room.ID, 3)
	req.NoError(err)
	req.Len(recent, 3)
	req.Equal("message 4", recent[0].Content)
	req.Equal("message 2", recent[2].Content)
	req.Equal("Alice", recent[0].SenderNickname)
	req.Equal(at.Add(4*time.Second).UnixMilli(), recent[0].At.UnixMilli())

	all, err := store.Messages.ListRecent(room.ID, 50)
	req.NoError(err)
	req.Len(all, 5)

	none, err := store.Messages.ListRecent(room.ID, 0)
	req.NoError(err)
	req.Empty(none)
}

func TestMessage_Rooms_Do_Not_Leak(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ids := createUsers(t, store, "alice")

	first, err := store.Rooms.CreateRoom("first", "group")
	req.NoError(err)
	second, err := store.Rooms.CreateRoom("second", "group")
	req.NoError(err)
	_, err = store.Messages.AppendMessage(domain.Message{RoomID: first.ID, SenderID: ids[0], Content: "one"})
	req.NoError(err)
	_, err = store.Messages.AppendMessage(domain.Message{RoomID: second.ID, SenderID: ids[0], Content: "two"})
	req.NoError(err)

	recent, err := store.Messages.ListRecent(first.ID, 10)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal("one", recent[0].Content)

	_, err = store.Messages.AppendMessage(domain.Message{RoomID: 999, SenderID: ids[0], Content: "lost"})
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestDescribe_Stored_Records(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	store, err := NewStore(db)
	req.NoError(err)
	defer store.Close()
	userID, err := store.Users.CreateUser("alice", "hash", "Alice")
	req.NoError(err)
	room, err := store.Rooms.CreateRoom("general", "group")
	req.NoError(err)
	req.NoError(store.Rooms.AddMember(room.ID, userID))
	_, err = store.Messages.AppendMessage(domain.Message{RoomID: room.ID, SenderID: userID, SenderNickname: "Alice", Content: "hi"})
	req.NoError(err)

	// When every key is described
	records := map[string]Record{}
	req.NoError(db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record := Describe(it.Item().KeyCopy(nil), val)
			records[record.Kind] = record
		}
		return nil
	}))

	// Then each namespace decodes to something readable
	req.Equal("alice (Alice)", records["user"].Detail)
	req.Equal("1", records["user"].ID)
	req.Equal("alice", records["username"].ID)
	req.Equal("-> user 1", records["username"].Detail)
	req.Equal("general [group]", records["room"].Detail)
	req.Equal("index", records["member"].Detail)
	req.Equal("Alice: hi", records["msg"].Detail)
	req.False(records["msg"].At.IsZero())
}

func TestDescribe_Undecodable_Value(t *testing.T) {
	req := require.New(t)

	record := Describe([]byte("room:0000000000000000007"), []byte{0xff})

	req.Equal("room", record.Kind)
	req.Equal("7", record.ID)
	req.Contains(record.Detail, "undecodable")
}
