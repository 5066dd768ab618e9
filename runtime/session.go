package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"ohtalk/contract"
	"ohtalk/domain"
	"ohtalk/errors"
	"ohtalk/protocol"

	"github.com/google/uuid"
)

type State int

const (
	StateOpen State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type SessionOption func(*Session)

// WithIdleTimeout drops the connection when no frame arrives within d.
// Zero disables the deadline.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.idleTimeout = d }
}

// Session is the server side of one client connection. Writes are
// serialized, reads happen on the goroutine running ReceiveLoop.
type Session struct {
	id          string
	conn        contract.Conn
	registry    contract.IRegistry
	log         *slog.Logger
	idleTimeout time.Duration

	writeMu sync.Mutex

	mu     sync.RWMutex // guards state and userID
	state  State
	userID domain.UserID

	closeOnce sync.Once
	closeErr  error
}

func NewSession(conn contract.Conn, registry contract.IRegistry, log *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.NewString(),
		conn:     conn,
		registry: registry,
		state:    StateOpen,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = log.With("session_id", s.id, "remote", conn.RemoteAddr())
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) UserID() (domain.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.state == StateAuthenticated
}

// Authenticate binds the session to userID and makes it reachable through
// the registry. Binding again to the same user only refreshes the registry.
func (s *Session) Authenticate(userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateClosed:
		return errors.ErrSessionClosed
	case s.state == StateAuthenticated && s.userID != userID:
		return errors.ErrAlreadyAuthenticated
	}
	s.userID = userID
	s.state = StateAuthenticated
	s.registry.Register(userID, s)
	s.log.Info("Session authenticated", "user_id", userID)
	return nil
}

// Send writes one envelope as one frame. Failures are logged and close the
// connection, they are never returned to the caller.
func (s *Session) Send(env protocol.Envelope) {
	if s.State() == StateClosed {
		s.log.Debug("Dropping envelope for closed session", "type", env.Type)
		return
	}
	frame, err := protocol.Encode(env)
	if err != nil {
		s.log.Error("Failed to encode envelope", "type", env.Type, "error", err)
		return
	}

	s.writeMu.Lock()
	err = s.conn.WriteFrame(frame)
	s.writeMu.Unlock()

	if err != nil {
		s.log.Warn("Failed to write envelope", "type", env.Type, "error", err)
		_ = s.Close()
	}
}

// ReceiveLoop reads frames until the connection ends or ctx is cancelled.
// Each frame gets its response before the next one is read. On return the
// session is closed and its presence revoked.
// A clean disconnect or a cancellation returns nil.
func (s *Session) ReceiveLoop(ctx context.Context, handler contract.Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()
	defer func() { _ = s.Close() }()

	for {
		if s.idleTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
				return fmt.Errorf("set read deadline: %w", err)
			}
		}
		frame, err := s.conn.ReadFrame()
		if err != nil {
			return s.readFailure(ctx, err)
		}
		s.Send(handler.Handle(ctx, s, frame))
	}
}

func (s *Session) readFailure(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case ctx.Err() != nil:
		s.log.Debug("Session stopped", "reason", ctx.Err())
		return nil
	case errors.Is(err, io.EOF):
		s.log.Info("Client disconnected")
		return nil
	case s.State() == StateClosed:
		s.log.Debug("Session closed locally")
		return nil
	case errors.As(err, &netErr) && netErr.Timeout():
		s.log.Info("Client idle for too long", "timeout", s.idleTimeout)
	default:
		s.log.Warn("Connection failed", "error", err)
	}
	return fmt.Errorf("session %s: %w", s.id, err)
}

// Close is idempotent. It closes the connection and, if the session was
// authenticated, removes it from the registry unless a newer session
// already replaced it.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasAuthenticated := s.state == StateAuthenticated
		s.state = StateClosed
		if wasAuthenticated && s.registry.UnregisterSink(s.userID, s) {
			s.log.Info("Presence revoked", "user_id", s.userID)
		}
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
