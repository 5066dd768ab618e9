package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ohtalk/contract"
	"ohtalk/domain"
	"ohtalk/errors"
	"ohtalk/protocol"

	"github.com/go-playground/validator/v10"
)

const DefaultHistoryLimit = 50

var validate = validator.New(validator.WithRequiredStructEnabled())

// censor masks forbidden words in message text.
type censor interface {
	Censor(text string) (string, bool)
}

// route decodes the raw data of one request type and runs its operation.
type route func(ctx context.Context, peer contract.Peer, data json.RawMessage) (any, error)

// malformed wraps a payload that is valid JSON but does not fit the
// request schema. Its message is sent back to the client.
type malformed struct{ cause error }

func (m malformed) Error() string { return m.cause.Error() }
func (m malformed) Unwrap() error { return m.cause }

type DispatcherOption func(*Dispatcher)

// WithHistoryLimit caps how many messages load_messages returns.
func WithHistoryLimit(limit int) DispatcherOption {
	return func(d *Dispatcher) { d.historyLimit = limit }
}

func WithModerator(c censor) DispatcherOption {
	return func(d *Dispatcher) { d.moderator = c }
}

// Dispatcher routes each inbound frame to its operation and turns the
// outcome into exactly one response envelope. Pushes to other users go
// through the registry as side effects of the operation.
type Dispatcher struct {
	store        contract.Store
	registry     contract.IRegistry
	auth         IAuthService
	moderator    censor
	historyLimit int
	log          *slog.Logger
	routes       map[string]route
}

func NewDispatcher(store contract.Store, registry contract.IRegistry, auth IAuthService, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:        store,
		registry:     registry,
		auth:         auth,
		historyLimit: DefaultHistoryLimit,
		log:          log,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.routes = map[string]route{
		protocol.TypeRegister:            public(d.register),
		protocol.TypeLogin:               public(d.login),
		protocol.TypeResume:              public(d.resume),
		protocol.TypeGetFriendList:       protected(d.getFriendList),
		protocol.TypeAddFriend:           protected(d.addFriend),
		protocol.TypeRemoveFriend:        protected(d.removeFriend),
		protocol.TypeSendFriendRequest:   protected(d.sendFriendRequest),
		protocol.TypeGetFriendRequests:   protected(d.getFriendRequests),
		protocol.TypeAcceptFriendRequest: protected(d.acceptFriendRequest),
		protocol.TypeGetChatRooms:        protected(d.getChatRooms),
		protocol.TypeCreateChatRoom:      protected(d.createChatRoom),
		protocol.TypeLeaveChatRoom:       protected(d.leaveChatRoom),
		protocol.TypeSendMessage:         protected(d.sendMessage),
		protocol.TypeLoadMessages:        protected(d.loadMessages),
		protocol.TypeGetProfile:          protected(d.getProfile),
		protocol.TypeGetOnlineStatus:     protected(d.getOnlineStatus),
	}
	return d
}

// Handle never fails: every error becomes a fail envelope carrying a reason.
func (d *Dispatcher) Handle(ctx context.Context, peer contract.Peer, frame []byte) protocol.Envelope {
	request, err := protocol.Decode(frame)
	if err != nil && !errors.Is(err, errors.ErrMissingData) {
		d.log.Debug("Malformed frame", "session_id", peer.ID(), "error", err)
		return protocol.Fail(request.Type, protocol.ReasonServerErrorPrefix+err.Error())
	}

	handle, ok := d.routes[request.Type]
	if !ok {
		d.log.Debug("Unknown request type", "session_id", peer.ID(), "type", request.Type)
		return protocol.Fail(request.Type, protocol.ReasonUnknownRequest)
	}

	payload, err := handle(ctx, peer, request.Data)
	if err != nil {
		reason := reasonFor(err)
		attrs := []any{"session_id", peer.ID(), "type", request.Type, "error", err}
		if userID, ok := peer.UserID(); ok {
			attrs = append(attrs, "user_id", userID)
		}
		if reason == protocol.ReasonDatabase {
			d.log.Error("Request failed", attrs...)
		} else {
			d.log.Debug("Request rejected", append(attrs, "reason", reason)...)
		}
		return protocol.Fail(request.Type, reason)
	}
	return protocol.OK(request.Type, payload)
}

// public routes an operation open to unauthenticated sessions.
func public[T any](h func(ctx context.Context, peer contract.Peer, payload T) (any, error)) route {
	return func(ctx context.Context, peer contract.Peer, data json.RawMessage) (any, error) {
		payload, err := decode[T](data)
		if err != nil {
			return nil, err
		}
		return h(ctx, peer, payload)
	}
}

// protected routes an operation that needs an authenticated session. The
// check happens before the payload is even looked at.
func protected[T any](h func(ctx context.Context, userID domain.UserID, payload T) (any, error)) route {
	return func(ctx context.Context, peer contract.Peer, data json.RawMessage) (any, error) {
		userID, ok := peer.UserID()
		if !ok {
			return nil, errors.ErrNotAuthenticated
		}
		payload, err := decode[T](data)
		if err != nil {
			return nil, err
		}
		return h(ctx, userID, payload)
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var payload T
	if len(data) == 0 {
		return payload, errors.ErrInvalidData
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, malformed{cause: err}
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("%w: %v", errors.ErrInvalidData, err)
	}
	return payload, nil
}

var reasons = []struct {
	err    error
	reason string
}{
	{errors.ErrNotAuthenticated, protocol.ReasonNotAuthenticated},
	{errors.ErrInvalidData, protocol.ReasonInvalidData},
	{errors.ErrUserAlreadyExists, protocol.ReasonUsernameExists},
	{errors.ErrInvalidCredentials, protocol.ReasonInvalidCredentials},
	{errors.ErrInvalidToken, protocol.ReasonInvalidToken},
	{errors.ErrAlreadyAuthenticated, protocol.ReasonAlreadyAuthenticated},
	{errors.ErrUserNotFound, protocol.ReasonUserNotFound},
	{errors.ErrSelfFriendship, protocol.ReasonSelfFriendship},
	{errors.ErrAlreadyFriends, protocol.ReasonAlreadyFriends},
	{errors.ErrNotFriends, protocol.ReasonNotFriends},
	{errors.ErrAlreadyRequested, protocol.ReasonAlreadyRequested},
	{errors.ErrRequestNotFound, protocol.ReasonRequestNotFound},
	{errors.ErrRoomNotFound, protocol.ReasonRoomNotFound},
	{errors.ErrNotRoomMember, protocol.ReasonNotRoomMember},
}

// reasonFor maps an operation error to the reason shown to the client.
// Anything unrecognised is a persistence failure.
func reasonFor(err error) string {
	var m malformed
	if errors.As(err, &m) {
		return protocol.ReasonServerErrorPrefix + m.Error()
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return protocol.ReasonDatabase
}
