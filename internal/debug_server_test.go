package internal

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"ohtalk/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDebugServer_Lists_Prefix(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	store, err := repositories.NewStore(db)
	req.NoError(err)
	defer store.Close()

	// Given two users and a room
	_, err = store.Users.CreateUser("alice", "hash", "Alice")
	req.NoError(err)
	_, err = store.Users.CreateUser("bob", "hash", "Bob")
	req.NoError(err)
	_, err = store.Rooms.CreateRoom("general", "group")
	req.NoError(err)

	stats := func() map[string]any { return map[string]any{"online": 2} }
	server := httptest.NewServer(NewDebugServer(db, 0, nil, stats, logs.GetLoggerFromLevel(slog.LevelDebug)).Handler())
	defer server.Close()

	// When the user namespace is requested
	resp, err := http.Get(server.URL + "/inspect?prefix=user:")
	req.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)

	// Then only users are listed, decoded
	req.Equal(http.StatusOK, resp.StatusCode)
	page := string(body)
	req.Contains(page, "alice (Alice)")
	req.Contains(page, "bob (Bob)")
	req.NotContains(page, "general [group]")
	req.Contains(page, "online")
}

func TestDefaultMapper_Unknown_Key(t *testing.T) {
	req := require.New(t)

	row := DefaultMapper([]byte("other:thing"), []byte("abc"))

	req.Equal("other", row.Kind)
	req.Equal("--:--:--", row.Timestamp)
	req.Equal("Size: 3 bytes", row.Detail)
}
