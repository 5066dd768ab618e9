package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"ohtalk/contract"
	"ohtalk/errors"
	"ohtalk/protocol"
	"ohtalk/runtime"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, peer contract.Peer, frame []byte) protocol.Envelope

func (f handlerFunc) Handle(ctx context.Context, peer contract.Peer, frame []byte) protocol.Envelope {
	return f(ctx, peer, frame)
}

// loginHandler authenticates every peer as user 1 and echoes the frame.
func loginHandler() contract.Handler {
	return handlerFunc(func(_ context.Context, peer contract.Peer, frame []byte) protocol.Envelope {
		if err := peer.Authenticate(1); err != nil {
			return protocol.Fail("echo", err.Error())
		}
		return protocol.OK("echo", map[string]string{"frame": string(frame)})
	})
}

func startListener(t *testing.T, registry contract.IRegistry, opts ...Option) (*Listener, context.CancelFunc, <-chan error) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener := NewListener("127.0.0.1:0", loginHandler(), registry, log, opts...)
	require.NoError(t, listener.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()
	t.Cleanup(cancel)
	return listener, cancel, done
}

func TestLineConn_Framing(t *testing.T) {
	req := require.New(t)
	server, client := net.Pipe()
	defer client.Close()
	conn := NewLineConn(server, nil)

	go func() {
		_, _ = client.Write([]byte("{\"a\":1}\r\n{\"b\":2}\n{\"c\":3}"))
		_ = client.Close()
	}()

	for _, want := range []string{`{"a":1}`, `{"b":2}`, `{"c":3}`} {
		frame, err := conn.ReadFrame()
		req.NoError(err)
		req.Equal(want, string(frame))
	}
	_, err := conn.ReadFrame()
	req.ErrorIs(err, io.EOF)
}

func TestLineConn_Rejects_Oversized_Frame(t *testing.T) {
	req := require.New(t)
	server, client := net.Pipe()
	defer client.Close()
	conn := NewLineConn(server, nil)

	go func() {
		_, _ = client.Write([]byte(strings.Repeat("x", MaxFrameSize+1)))
	}()

	_, err := conn.ReadFrame()
	req.ErrorIs(err, errors.ErrFrameTooLarge)
}

func TestLineConn_Write_Appends_Newline(t *testing.T) {
	req := require.New(t)
	server, client := net.Pipe()
	defer client.Close()
	conn := NewLineConn(server, nil)

	go func() { _ = conn.WriteFrame([]byte(`{"type":"x"}`)) }()

	line, err := bufio.NewReader(client).ReadString('\n')
	req.NoError(err)
	req.Equal("{\"type\":\"x\"}\n", line)
}

func TestListener_Serves_TCP_Lines(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	listener, _, _ := startListener(t, registry)

	client, err := net.Dial("tcp", listener.Addr())
	req.NoError(err)
	defer client.Close()

	_, err = client.Write([]byte(`{"type":"ping","data":{}}` + "\n"))
	req.NoError(err)
	line, err := bufio.NewReader(client).ReadString('\n')
	req.NoError(err)
	req.Contains(line, `"type":"echo"`)
	req.Contains(line, `"status":"ok"`)
	req.True(registry.IsOnline(1))
}

func TestListener_Serves_WebSocket_On_Same_Port(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	listener, _, _ := startListener(t, registry)

	conn, _, _, err := ws.Dial(context.Background(), "ws://"+listener.Addr()+"/")
	req.NoError(err)
	defer conn.Close()

	req.NoError(wsutil.WriteClientText(conn, []byte(`{"type":"ping","data":{}}`)))
	data, op, err := wsutil.ReadServerData(conn)
	req.NoError(err)
	req.Equal(ws.OpText, op)
	req.Contains(string(data), `"status":"ok"`)
}

func TestListener_Disconnect_Revokes_Presence(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	listener, _, _ := startListener(t, registry)

	client, err := net.Dial("tcp", listener.Addr())
	req.NoError(err)
	_, err = client.Write([]byte(`{"type":"ping","data":{}}` + "\n"))
	req.NoError(err)
	_, err = bufio.NewReader(client).ReadString('\n')
	req.NoError(err)
	req.Equal(1, registry.Count())

	req.NoError(client.Close())

	req.Eventually(func() bool { return registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListener_Idle_Timeout_Drops_Connection(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	listener, _, _ := startListener(t, registry, WithIdleTimeout(100*time.Millisecond))

	client, err := net.Dial("tcp", listener.Addr())
	req.NoError(err)
	defer client.Close()
	reader := bufio.NewReader(client)
	_, err = client.Write([]byte(`{"type":"ping","data":{}}` + "\n"))
	req.NoError(err)
	_, err = reader.ReadString('\n')
	req.NoError(err)

	// Then the silent client is dropped and its presence revoked
	req.NoError(client.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, err = reader.ReadString('\n')
	req.ErrorIs(err, io.EOF)
	req.Eventually(func() bool { return registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListener_Stop_Closes_Sessions(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	listener, cancel, done := startListener(t, registry)

	client, err := net.Dial("tcp", listener.Addr())
	req.NoError(err)
	defer client.Close()
	_, err = client.Write([]byte(`{"type":"ping","data":{}}` + "\n"))
	req.NoError(err)
	reader := bufio.NewReader(client)
	_, err = reader.ReadString('\n')
	req.NoError(err)

	// When the server context is cancelled
	cancel()

	// Then Run returns and the client sees the connection end
	select {
	case err = <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.FailNow("listener did not stop")
	}
	_, err = reader.ReadString('\n')
	req.Error(err)
	req.Zero(registry.Count())
}

// failingListener fails every Accept until closed, like a process out of
// file descriptors.
type failingListener struct {
	accepts atomic.Int32
	closed  chan struct{}
}

func (f *failingListener) Accept() (net.Conn, error) {
	f.accepts.Add(1)
	select {
	case <-f.closed:
		return nil, net.ErrClosed
	default:
		return nil, syscall.EMFILE
	}
}

func (f *failingListener) Close() error   { close(f.closed); return nil }
func (f *failingListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func TestListener_Backs_Off_On_Accept_Errors(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	failing := &failingListener{closed: make(chan struct{})}
	listener := NewListener("127.0.0.1:0", loginHandler(), runtime.NewRegistry(), log)
	listener.listener = failing

	// When Accept keeps failing for a while
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := listener.Run(ctx)

	// Then the loop waited between attempts and stopped cleanly
	req.NoError(err)
	req.Less(failing.accepts.Load(), int32(20))
}

func TestAcceptBackoff_Is_Capped(t *testing.T) {
	req := require.New(t)
	delay := acceptBackoff(0)
	req.Equal(minAcceptDelay, delay)
	for range 20 {
		delay = acceptBackoff(delay)
	}
	req.Equal(maxAcceptDelay, delay)
}
