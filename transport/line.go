// Package transport accepts client connections and frames them for the
// session layer: newline terminated JSON on raw TCP, text frames once a
// connection upgrades to WebSocket. Both share a single port.
package transport

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"time"

	"ohtalk/errors"
)

// MaxFrameSize bounds a single inbound frame on either transport.
const MaxFrameSize = 1 << 20

// LineConn frames a TCP stream as one JSON document per line.
type LineConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

// NewLineConn wraps conn. The reader may already hold bytes peeked during
// protocol detection, nil starts a fresh one.
func NewLineConn(conn net.Conn, reader *bufio.Reader) *LineConn {
	if reader == nil {
		reader = bufio.NewReader(conn)
	}
	return &LineConn{conn: conn, reader: reader}
}

// ReadFrame returns the next line without its terminator. A final line
// cut short by EOF is still returned, EOF comes with the following call.
func (c *LineConn) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		chunk, err := c.reader.ReadSlice('\n')
		frame = append(frame, chunk...)
		if len(frame) > MaxFrameSize {
			return nil, errors.ErrFrameTooLarge
		}
		switch {
		case err == nil:
			return bytes.TrimRight(frame, "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(frame) > 0:
			return frame, nil
		default:
			return nil, err
		}
	}
}

func (c *LineConn) WriteFrame(data []byte) error {
	line := make([]byte, 0, len(data)+1)
	line = append(append(line, data...), '\n')
	_, err := c.conn.Write(line)
	return err
}

func (c *LineConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *LineConn) Close() error {
	return c.conn.Close()
}

func (c *LineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
