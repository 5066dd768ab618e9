package e2e

import (
	"context"
	"testing"
	"time"

	"ohtalk/protocol"

	"github.com/stretchr/testify/suite"
)

type chatSuite struct {
	BaseSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &chatSuite{})
}

func (s *chatSuite) TestFriendsRoomAndMessages() {
	alice := s.Connect(s.T())
	bob := s.Connect(s.T())
	var aliceID, bobID int64
	var bobName string

	s.Run("Step 0: Register and log in", func() {
		s.Step("Two fresh accounts", func(ctx context.Context) {
			aliceID, _ = s.SignIn(ctx, alice, "alice")
			bobID, bobName = s.SignIn(ctx, bob, "bob")
		})
	})

	s.Run("Step 1: Friend request and acceptance", func() {
		s.Step("Alice asks, Bob accepts", func(ctx context.Context) {
			s.Do(ctx, alice, protocol.TypeSendFriendRequest, protocol.SendFriendRequestRequest{ToUsername: bobName}, nil)

			pushed, err := bob.WaitEvent(ctx, protocol.EventFriendRequestListUpdated)
			s.Require().NoError(err)
			var requests protocol.RequestListPayload
			s.Require().NoError(pushed.Decode(&requests))
			s.Require().Len(requests.Requests, 1)
			s.Require().Equal(aliceID, requests.Requests[0].FromUserID)

			s.Do(ctx, bob, protocol.TypeAcceptFriendRequest,
				protocol.AcceptFriendRequestRequest{RequestID: requests.Requests[0].RequestID}, nil)

			pushed, err = alice.WaitEvent(ctx, protocol.EventFriendListUpdated)
			s.Require().NoError(err)
			var friends protocol.FriendListPayload
			s.Require().NoError(pushed.Decode(&friends))
			s.Require().Len(friends.Friends, 1)
			s.Require().Equal(bobID, friends.Friends[0].FriendID)
		})
	})

	var roomID int64
	s.Run("Step 2: Room creation and messages", func() {
		s.Step("Alice opens a room and speaks", func(ctx context.Context) {
			var created protocol.CreateRoomResponse
			s.Do(ctx, alice, protocol.TypeCreateChatRoom,
				protocol.CreateChatRoomRequest{Name: "pair", Type: "private", Participants: []int64{bobID}}, &created)
			roomID = created.RoomID

			_, err := bob.WaitEvent(ctx, protocol.EventChatRoomsUpdated)
			s.Require().NoError(err)

			s.Do(ctx, alice, protocol.TypeSendMessage, protocol.SendMessageRequest{RoomID: roomID, Message: "hello b4dger"}, nil)

			pushed, err := bob.WaitEvent(ctx, protocol.EventNewMessage)
			s.Require().NoError(err)
			var entry protocol.MessageEntry
			s.Require().NoError(pushed.Decode(&entry))
			s.Require().Equal("hello ******", entry.Message)
			s.Require().Equal(aliceID, entry.SenderID)
		})

		s.Step("Bob reads the history", func(ctx context.Context) {
			var history protocol.MessageListPayload
			s.Do(ctx, bob, protocol.TypeLoadMessages, protocol.LoadMessagesRequest{RoomID: roomID}, &history)
			s.Require().Len(history.Messages, 1)
			s.Require().Equal("hello ******", history.Messages[0].Message)
		})
	})

	s.Run("Step 3: Presence follows the connection", func() {
		s.Step("Bob hangs up", func(ctx context.Context) {
			var status protocol.OnlineStatusPayload
			s.Do(ctx, alice, protocol.TypeGetOnlineStatus, protocol.GetOnlineStatusRequest{FriendIDs: []int64{bobID}}, &status)
			s.Require().True(status.StatusList[0].Online)

			s.Require().NoError(bob.Close())
			s.Require().Eventually(func() bool {
				reply, err := alice.Request(ctx, protocol.TypeGetOnlineStatus, protocol.GetOnlineStatusRequest{FriendIDs: []int64{bobID}})
				if err != nil || reply.Decode(&status) != nil {
					return false
				}
				return !status.StatusList[0].Online
			}, stepTimeout/2, 20*time.Millisecond)
		})
	})
}

func (s *chatSuite) TestUnauthenticatedRequestsAreRefused() {
	c := s.Connect(s.T())

	s.Step("Protected request on a fresh connection", func(ctx context.Context) {
		reply, err := c.Request(ctx, protocol.TypeGetChatRooms, map[string]any{})
		s.Require().NoError(err)
		s.Require().False(reply.OK())
		s.Require().Equal(protocol.ReasonNotAuthenticated, reply.Reason())
	})
}
