package main

import (
	"bytes"
	"context"
	"testing"

	"ohtalk/domain"
	"ohtalk/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) string {
	t.Helper()
	req := require.New(t)
	dir := t.TempDir()
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	store, err := repositories.NewStore(db)
	req.NoError(err)

	alice, err := store.Users.CreateUser("alice", "hash", "Alice")
	req.NoError(err)
	bob, err := store.Users.CreateUser("bob", "hash", "Bob")
	req.NoError(err)
	_, err = store.Friends.CreateRequest(alice, bob)
	req.NoError(err)
	room, err := store.Rooms.CreateRoom("general", "group")
	req.NoError(err)
	req.NoError(store.Rooms.AddMember(room.ID, alice))
	_, err = store.Messages.AppendMessage(domain.Message{RoomID: room.ID, SenderID: alice, SenderNickname: "Alice", Content: "hello there"})
	req.NoError(err)

	req.NoError(store.Close())
	req.NoError(db.Close())
	return dir
}

func TestInspect_All_Namespaces(t *testing.T) {
	req := require.New(t)
	dir := seed(t)
	var out bytes.Buffer

	err := run(context.Background(), []string{"--db", dir, "--colours=false"}, &out)

	req.NoError(err)
	page := out.String()
	req.Contains(page, "====== user (2) ======")
	req.Contains(page, "====== freq (1) ======")
	req.Contains(page, "====== freqto (1) ======")
	req.Contains(page, "alice (Alice)")
	req.Contains(page, "Alice: hello there")
	req.Contains(page, "1 -> 2 pending")
}

func TestInspect_Prefix_And_Limit(t *testing.T) {
	req := require.New(t)
	dir := seed(t)
	var out bytes.Buffer

	err := run(context.Background(), []string{"-d", dir, "-p", "user:", "-n", "1", "--colours=false"}, &out)

	req.NoError(err)
	page := out.String()
	req.Contains(page, "alice (Alice)")
	req.NotContains(page, "bob (Bob)")
	req.Contains(page, "raise --limit")
	req.NotContains(page, "general")
}

func TestInspect_Missing_DB(t *testing.T) {
	t.Setenv("BADGER_FILEPATH", "")
	var out bytes.Buffer

	err := run(context.Background(), nil, &out)

	require.Error(t, err)
}
