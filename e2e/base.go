// Package e2e drives a real ohtalk server over TCP, the way a chat client
// would.
package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"ohtalk/auth"
	"ohtalk/client"
	"ohtalk/moderation"
	"ohtalk/protocol"
	"ohtalk/repositories"
	"ohtalk/runtime"
	"ohtalk/services"
	"ohtalk/transport"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

const stepTimeout = 10 * time.Second

type BaseSuite struct {
	suite.Suite
	Config Config
	log    *slog.Logger
	stop   context.CancelFunc
	done   chan struct{}
	db     *badger.DB
	store  *repositories.Store
}

// SetupSuite loads the environment configuration and, unless OHTALK_ADDR
// points elsewhere, boots a server on a random local port.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.log = logs.GetLoggerFromString(s.Config.LogLevel)
	if s.Config.Addr != "" {
		return
	}

	s.db, err = badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.store, err = repositories.NewStore(s.db)
	s.Require().NoError(err)

	moderator, err := moderation.NewModerator([]string{"badger"}, '*', s.log)
	s.Require().NoError(err)
	registry := runtime.NewRegistry()
	authService := services.NewAuthService(s.store.Users, auth.NewTokenIssuer("e2e-secret", time.Hour))
	dispatcher := services.NewDispatcher(s.store.Store, registry, authService, s.log, services.WithModerator(moderator))
	listener := transport.NewListener("127.0.0.1:0", dispatcher, registry, s.log)
	s.Require().NoError(listener.Listen())
	s.Config.Addr = listener.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	s.stop, s.done = cancel, make(chan struct{})
	go func() {
		defer close(s.done)
		_ = listener.Run(ctx)
	}()
}

func (s *BaseSuite) TearDownSuite() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
	_ = s.store.Close()
	_ = s.db.Close()
}

// Step prints a header then runs fn with a bounded context.
func (s *BaseSuite) Step(name string, fn func(ctx context.Context)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()
	fn(ctx)
}

// Connect opens a client closed at the end of the test.
func (s *BaseSuite) Connect(t *testing.T) *client.Client {
	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()
	c, err := client.Dial(ctx, s.Config.Addr, s.log)
	s.Require().NoError(err, "Failed to connect to ohtalk at "+s.Config.Addr)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// Username makes names unique so the suite can run against a shared server.
func Username(base string) string {
	return base + "_" + uuid.NewString()[:8]
}

// Do sends a request that must succeed and decodes its data into out.
func (s *BaseSuite) Do(ctx context.Context, c *client.Client, requestType string, data, out any) {
	reply, err := c.Request(ctx, requestType, data)
	s.Require().NoError(err)
	s.Require().True(reply.OK(), "%s failed: %s", requestType, reply.Reason())
	if out != nil {
		s.Require().NoError(reply.Decode(out))
	}
}

// SignIn registers a fresh account and logs c in with it.
func (s *BaseSuite) SignIn(ctx context.Context, c *client.Client, base string) (int64, string) {
	username := Username(base)
	s.Do(ctx, c, protocol.TypeRegister, protocol.RegisterRequest{Username: username, Password: "pw", Nickname: base}, nil)
	var login protocol.LoginResponse
	s.Do(ctx, c, protocol.TypeLogin, protocol.LoginRequest{Username: username, Password: "pw"}, &login)
	return login.UserID, username
}
