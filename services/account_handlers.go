package services

import (
	"context"

	"ohtalk/contract"
	"ohtalk/domain"
	"ohtalk/protocol"

	"github.com/samber/lo"
)

func (d *Dispatcher) register(_ context.Context, _ contract.Peer, p protocol.RegisterRequest) (any, error) {
	userID, err := d.auth.Register(p.Username, p.Password, p.Nickname)
	if err != nil {
		return nil, err
	}
	return protocol.RegisterResponse{UserID: int64(userID)}, nil
}

func (d *Dispatcher) login(_ context.Context, peer contract.Peer, p protocol.LoginRequest) (any, error) {
	creds, err := d.auth.Login(p.Username, p.Password)
	if err != nil {
		return nil, err
	}
	return d.authenticate(peer, creds)
}

func (d *Dispatcher) resume(_ context.Context, peer contract.Peer, p protocol.ResumeRequest) (any, error) {
	creds, err := d.auth.Resume(p.Token)
	if err != nil {
		return nil, err
	}
	return d.authenticate(peer, creds)
}

// authenticate binds the session, which also makes the user reachable
// through the registry. A previous session of the same user stays open but
// no longer receives pushes.
func (d *Dispatcher) authenticate(peer contract.Peer, creds Credentials) (any, error) {
	if err := peer.Authenticate(creds.User.ID); err != nil {
		return nil, err
	}
	d.log.Info("User logged in", "session_id", peer.ID(), "user_id", creds.User.ID)
	return protocol.LoginResponse{
		UserID:   int64(creds.User.ID),
		UserInfo: protocol.ToUserInfo(creds.User),
		Token:    creds.Token,
	}, nil
}

func (d *Dispatcher) getProfile(_ context.Context, _ domain.UserID, p protocol.GetProfileRequest) (any, error) {
	user, err := d.store.Users.GetUserByID(domain.UserID(p.UserID))
	if err != nil {
		return nil, err
	}
	return protocol.ProfilePayload{Profile: protocol.ToUserInfo(user)}, nil
}

func (d *Dispatcher) getOnlineStatus(_ context.Context, _ domain.UserID, p protocol.GetOnlineStatusRequest) (any, error) {
	return protocol.OnlineStatusPayload{
		StatusList: lo.Map(p.FriendIDs, func(id int64, _ int) protocol.OnlineStatus {
			return protocol.OnlineStatus{UserID: id, Online: d.registry.IsOnline(domain.UserID(id))}
		}),
	}, nil
}
