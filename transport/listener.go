package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"ohtalk/contract"
	"ohtalk/errors"
	"ohtalk/runtime"
)

type Option func(*Listener)

// WithIdleTimeout is handed to every session, it also bounds how long a
// new connection may stay silent before its protocol is known.
func WithIdleTimeout(d time.Duration) Option {
	return func(l *Listener) { l.idleTimeout = d }
}

// Listener accepts connections and runs one session per connection on its
// own goroutine.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

type Listener struct {
	address     string
	handler     contract.Handler
	registry    contract.IRegistry
	log         *slog.Logger
	idleTimeout time.Duration

	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

func NewListener(address string, handler contract.Handler, registry contract.IRegistry, log *slog.Logger, opts ...Option) *Listener {
	l := &Listener{
		address:  address,
		handler:  handler,
		registry: registry,
		log:      log,
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen binds the address. Run calls it when needed, callers that want
// bind errors before serving call it first.
func (l *Listener) Listen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", l.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}
	l.listener = listener
	l.log.Info("Listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address, empty before Listen.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

// Run accepts connections until ctx is cancelled, then stops every open
// connection and waits for their goroutines.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, l.Stop)
	defer stop()

	var delay time.Duration
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.isStopping() || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				return nil
			}
			delay = acceptBackoff(delay)
			l.log.Warn("Failed to accept connection", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		if !l.track(conn) {
			_ = conn.Close()
			continue
		}
		l.wg.Add(1)
		go l.serve(ctx, conn)
	}
}

// acceptBackoff doubles the wait after each consecutive Accept failure,
// from minAcceptDelay up to maxAcceptDelay.
func acceptBackoff(previous time.Duration) time.Duration {
	if previous == 0 {
		return minAcceptDelay
	}
	return min(2*previous, maxAcceptDelay)
}

// Stop closes the listening socket and every open connection. It does not
// wait, Run returns once all connection goroutines are done.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopping {
		return
	}
	l.stopping = true
	if l.listener != nil {
		_ = l.listener.Close()
	}
	for conn := range l.conns {
		_ = conn.Close()
	}
}

func (l *Listener) serve(ctx context.Context, raw net.Conn) {
	defer l.wg.Done()
	defer l.untrack(raw)

	if l.idleTimeout > 0 {
		_ = raw.SetReadDeadline(time.Now().Add(l.idleTimeout))
	}
	conn, err := frame(raw)
	if err != nil {
		l.log.Debug("Dropping connection before first frame", "remote", raw.RemoteAddr().String(), "error", err)
		_ = raw.Close()
		return
	}
	_ = raw.SetReadDeadline(time.Time{})

	session := runtime.NewSession(conn, l.registry, l.log, runtime.WithIdleTimeout(l.idleTimeout))
	l.log.Debug("Session opened", "session_id", session.ID(), "remote", conn.RemoteAddr())
	if err = session.ReceiveLoop(ctx, l.handler); err != nil {
		l.log.Debug("Session ended", "session_id", session.ID(), "error", err)
	}
}

func (l *Listener) isStopping() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopping
}

func (l *Listener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopping {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, conn)
}
