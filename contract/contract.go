//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"ohtalk/domain"
	"ohtalk/protocol"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for supervision logs, avoiding the need for manual naming.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives envelopes pushed to a connected user.
// Send never fails loudly, delivery is best effort.
type EventSink interface {
	Send(env protocol.Envelope)
}

type IRegistry interface {
	Register(userID domain.UserID, sink EventSink)
	Unregister(userID domain.UserID)
	UnregisterSink(userID domain.UserID, sink EventSink) bool
	IsOnline(userID domain.UserID) bool
	Deliver(userID domain.UserID, env protocol.Envelope)
	DeliverMany(userIDs []domain.UserID, env protocol.Envelope)
	Count() int
}

// Peer is the dispatcher's view of the connection a request came from.
type Peer interface {
	EventSink
	ID() string
	UserID() (domain.UserID, bool)
	Authenticate(userID domain.UserID) error
}

// Handler turns one inbound frame into exactly one response.
type Handler interface {
	Handle(ctx context.Context, peer Peer, frame []byte) protocol.Envelope
}

// Conn is one framed client connection, raw TCP lines or WebSocket text
// frames. ReadFrame returns io.EOF once the peer is gone.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}
