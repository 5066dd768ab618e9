package transport

import (
	"bufio"
	"bytes"
	"net"

	"ohtalk/contract"
)

var httpGet = []byte("GET ")

// isWebSocket reports whether the connection opens with an HTTP GET, the
// first line of a WebSocket handshake. JSON clients start with '{', so a
// single byte decides in the common case.
func isWebSocket(reader *bufio.Reader) (bool, error) {
	first, err := reader.Peek(1)
	if err != nil {
		return false, err
	}
	if first[0] != httpGet[0] {
		return false, nil
	}
	head, err := reader.Peek(len(httpGet))
	if err != nil {
		return false, err
	}
	return bytes.Equal(head, httpGet), nil
}

// frame picks the framing for a freshly accepted connection.
func frame(conn net.Conn) (contract.Conn, error) {
	reader := bufio.NewReader(conn)
	upgrade, err := isWebSocket(reader)
	if err != nil {
		return nil, err
	}
	if upgrade {
		return Upgrade(conn, reader)
	}
	return NewLineConn(conn, reader), nil
}
