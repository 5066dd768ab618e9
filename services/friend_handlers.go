package services

import (
	"context"

	"ohtalk/domain"
	"ohtalk/protocol"
)

func (d *Dispatcher) getFriendList(_ context.Context, userID domain.UserID, _ protocol.EmptyRequest) (any, error) {
	friends, err := d.store.Friends.ListFriends(userID)
	if err != nil {
		return nil, err
	}
	return protocol.ToFriendList(friends), nil
}

func (d *Dispatcher) addFriend(_ context.Context, userID domain.UserID, p protocol.AddFriendRequest) (any, error) {
	friend, err := d.store.Users.GetUserByUsername(p.FriendUsername)
	if err != nil {
		return nil, err
	}
	if err = d.store.Friends.AddFriend(userID, friend.ID); err != nil {
		return nil, err
	}
	d.pushFriendLists(userID, friend.ID)
	return nil, nil
}

func (d *Dispatcher) removeFriend(_ context.Context, userID domain.UserID, p protocol.RemoveFriendRequest) (any, error) {
	friendID := domain.UserID(p.FriendID)
	if err := d.store.Friends.RemoveFriend(userID, friendID); err != nil {
		return nil, err
	}
	d.pushFriendLists(userID, friendID)
	return nil, nil
}

func (d *Dispatcher) sendFriendRequest(_ context.Context, userID domain.UserID, p protocol.SendFriendRequestRequest) (any, error) {
	target, err := d.store.Users.GetUserByUsername(p.ToUsername)
	if err != nil {
		return nil, err
	}
	if _, err = d.store.Friends.CreateRequest(userID, target.ID); err != nil {
		return nil, err
	}
	d.pushFriendRequests(target.ID)
	return nil, nil
}

func (d *Dispatcher) getFriendRequests(_ context.Context, userID domain.UserID, _ protocol.EmptyRequest) (any, error) {
	requests, err := d.store.Friends.ListPendingRequests(userID)
	if err != nil {
		return nil, err
	}
	return protocol.ToRequestList(requests), nil
}

// acceptFriendRequest only succeeds for the recipient of a pending request.
func (d *Dispatcher) acceptFriendRequest(_ context.Context, userID domain.UserID, p protocol.AcceptFriendRequestRequest) (any, error) {
	request, err := d.store.Friends.AcceptRequest(domain.RequestID(p.RequestID), userID)
	if err != nil {
		return nil, err
	}
	d.pushFriendLists(request.FromUserID, request.ToUserID)
	return nil, nil
}

// pushFriendLists sends each online user their own refreshed friend list.
func (d *Dispatcher) pushFriendLists(userIDs ...domain.UserID) {
	for _, userID := range userIDs {
		if !d.registry.IsOnline(userID) {
			continue
		}
		friends, err := d.store.Friends.ListFriends(userID)
		if err != nil {
			d.log.Warn("Skipping friend list push", "user_id", userID, "error", err)
			continue
		}
		d.registry.Deliver(userID, protocol.Event(protocol.EventFriendListUpdated, protocol.ToFriendList(friends)))
	}
}

func (d *Dispatcher) pushFriendRequests(userID domain.UserID) {
	if !d.registry.IsOnline(userID) {
		return
	}
	requests, err := d.store.Friends.ListPendingRequests(userID)
	if err != nil {
		d.log.Warn("Skipping friend request push", "user_id", userID, "error", err)
		return
	}
	d.registry.Deliver(userID, protocol.Event(protocol.EventFriendRequestListUpdated, protocol.ToRequestList(requests)))
}
