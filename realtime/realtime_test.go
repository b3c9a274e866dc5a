package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev := <-s.C:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversToGroupMembersOnly(t *testing.T) {
	hub := NewHub()
	alice := hub.Subscribe(4)
	bob := hub.Subscribe(4)
	hub.Join(alice, UserGroup(1))
	hub.Join(alice, ConversationGroup(9))
	hub.Join(bob, ConversationGroup(9))

	require.NoError(t, hub.Publish(context.Background(), UserGroup(1), Event{Action: ActionNotification}))
	require.NoError(t, hub.Publish(context.Background(), ConversationGroup(9), Event{Action: ActionNewMessage}))

	assert.Equal(t, ActionNotification, receive(t, alice).Action)
	assert.Equal(t, ActionNewMessage, receive(t, alice).Action)
	assert.Equal(t, ActionNewMessage, receive(t, bob).Action)
	assert.Empty(t, bob.C)
}

func TestHubCloseLeavesAllGroups(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe(1)
	hub.Join(s, "user_1")
	hub.Join(s, "conversation_2")
	assert.True(t, hub.Member(s, "conversation_2"))

	hub.Close(s)
	hub.Close(s)

	assert.False(t, hub.Member(s, "conversation_2"))
	assert.Zero(t, hub.Deliver("user_1", Event{Action: ActionTyping}))
	assert.False(t, s.Send(Event{Action: ActionError}))
	_, open := <-s.C
	assert.False(t, open)
}

func TestHubDropsWhenInboxFull(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe(1)
	hub.Join(s, "g")

	assert.Equal(t, 1, hub.Deliver("g", Event{Action: "first"}))
	assert.Equal(t, 0, hub.Deliver("g", Event{Action: "second"}))
	assert.Equal(t, "first", receive(t, s).Action)
}

func TestGroupNames(t *testing.T) {
	assert.Equal(t, "user_5", UserGroup(5))
	assert.Equal(t, "conversation_12", ConversationGroup(12))
}

func TestRedisBrokerRelaysBetweenHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Two hubs stand in for two API instances.
	local, remote := NewHub(), NewHub()
	localBroker := NewRedisBroker(client, "test:realtime")
	remoteBroker := NewRedisBroker(client, "test:realtime")
	local.SetBroker(localBroker)
	remote.SetBroker(remoteBroker)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = localBroker.Run(ctx, local) }()
	go func() { _ = remoteBroker.Run(ctx, remote) }()
	for _, b := range []*RedisBroker{localBroker, remoteBroker} {
		select {
		case <-b.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("broker never subscribed")
		}
	}

	listener := remote.Subscribe(4)
	remote.Join(listener, ConversationGroup(3))

	typing := true
	require.NoError(t, local.Publish(ctx, ConversationGroup(3), Event{Action: ActionTyping, UserID: 8, IsTyping: &typing}))

	ev := receive(t, listener)
	assert.Equal(t, ActionTyping, ev.Action)
	assert.Equal(t, uint(8), ev.UserID)
	require.NotNil(t, ev.IsTyping)
	assert.True(t, *ev.IsTyping)
}
