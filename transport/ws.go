package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"ohtalk/errors"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const closeFrameTimeout = time.Second

// WSConn carries one envelope per WebSocket message using gobwas/ws.
// Control frames (ping, close) are answered while reading.
type WSConn struct {
	conn    net.Conn
	reader  *wsutil.Reader
	writeMu sync.Mutex
}

// Upgrade performs the server handshake on a connection whose first bytes
// were peeked into reader.
func Upgrade(conn net.Conn, reader *bufio.Reader) (*WSConn, error) {
	rw := struct {
		io.Reader
		io.Writer
	}{reader, conn}
	if _, err := (ws.Upgrader{}).Upgrade(rw); err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return NewWSConn(conn, reader), nil
}

// NewWSConn wraps an already upgraded connection. Frames are read from
// source, which is conn itself unless bytes were buffered before.
func NewWSConn(conn net.Conn, source io.Reader) *WSConn {
	c := &WSConn{conn: conn}
	c.reader = &wsutil.Reader{
		Source:         source,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		MaxFrameSize:   MaxFrameSize,
		OnIntermediate: c.handleControl,
	}
	return c
}

func (c *WSConn) handleControl(h ws.Header, r io.Reader) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.ControlFrameHandler(c.conn, ws.StateServerSide)(h, r)
}

// ReadFrame returns the payload of the next data message. A close frame
// from the client is acknowledged and reported as io.EOF.
func (c *WSConn) ReadFrame() ([]byte, error) {
	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err = c.handleControl(hdr, c.reader); err != nil {
				var closed wsutil.ClosedError
				if errors.As(err, &closed) {
					return nil, io.EOF
				}
				return nil, err
			}
			continue
		}
		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			if err = c.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		return io.ReadAll(c.reader)
	}
}

func (c *WSConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerText(c.conn, data)
}

func (c *WSConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close sends a close frame when no write is in progress, then closes the
// connection.
func (c *WSConn) Close() error {
	if c.writeMu.TryLock() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(closeFrameTimeout))
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, body)
		c.writeMu.Unlock()
	}
	return c.conn.Close()
}

func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
