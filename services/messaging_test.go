package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/realtime"
	"github.com/meinhoongagan/carenest/testutil"
)

func nextEvent(t *testing.T, s *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case ev := <-s.C:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return realtime.Event{}
}

func TestGetOrCreateConversationReusesPair(t *testing.T) {
	conn := testutil.NewDB(t)
	a := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)

	c1, created, err := GetOrCreateConversation(conn, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, c1.Participants, 2)

	c2, created, err := GetOrCreateConversation(conn, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c1.ID, c2.ID)

	_, _, err = GetOrCreateConversation(conn, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestConcurrentConversationCreationConverges(t *testing.T) {
	conn := testutil.NewDB(t)
	a := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)

	var wg sync.WaitGroup
	ids := make(chan uint, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a.ID, b.ID
			if i%2 == 1 {
				x, y = y, x
			}
			c, _, err := GetOrCreateConversation(conn, x, y)
			assert.NoError(t, err)
			if c != nil {
				ids <- c.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[uint]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)

	var n int64
	require.NoError(t, conn.Model(&models.Conversation{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestArchivedConversationFreesThePair(t *testing.T) {
	conn := testutil.NewDB(t)
	a := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)

	c1, _, err := GetOrCreateConversation(conn, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, ArchiveConversation(conn, c1.ID, a.ID))

	c2, created, err := GetOrCreateConversation(conn, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, c1.ID, c2.ID)

	list, err := ListConversations(conn, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c2.ID, list[0].ID)
}

func TestSendMessageFansOut(t *testing.T) {
	conn := testutil.NewDB(t)
	sender := testutil.CreateUser(t, conn, "alice@example.com", models.RoleClient)
	recipient := testutil.CreateUser(t, conn, "bob@example.com", models.RoleCaregiver)
	conv, _, err := GetOrCreateConversation(conn, sender.ID, recipient.ID)
	require.NoError(t, err)

	room := realtime.Default.Subscribe(4)
	defer realtime.Default.Close(room)
	realtime.Default.Join(room, realtime.ConversationGroup(conv.ID))
	inbox := realtime.Default.Subscribe(4)
	defer realtime.Default.Close(inbox)
	realtime.Default.Join(inbox, realtime.UserGroup(recipient.ID))

	content := strings.Repeat("x", 60)
	msg, err := SendMessage(conn, sender.ID, SendMessageInput{ConversationID: conv.ID, Content: content})
	require.NoError(t, err)

	ev := nextEvent(t, room)
	assert.Equal(t, realtime.ActionNewMessage, ev.Action)
	require.NotNil(t, ev.Message)
	assert.Equal(t, msg.ID, ev.Message.ID)
	assert.Equal(t, sender.Email, ev.Message.SenderEmail)

	ev = nextEvent(t, inbox)
	assert.Equal(t, realtime.ActionNotification, ev.Action)
	assert.Equal(t, conv.ID, ev.ConversationID)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "New message from alice Test", ev.Notification.Title)
	assert.Equal(t, "alice Test: "+strings.Repeat("x", 50)+"...", ev.Notification.Message)
	assert.Equal(t, models.RefConversation(conv.ID), ev.Notification.Related)
}

func TestSendMessageByRecipientCreatesConversation(t *testing.T) {
	conn := testutil.NewDB(t)
	sender := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	recipient := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)

	msg, err := SendMessage(conn, sender.ID, SendMessageInput{RecipientID: recipient.ID, Content: "hello"})
	require.NoError(t, err)
	assert.NotZero(t, msg.ConversationID)

	again, err := SendMessage(conn, recipient.ID, SendMessageInput{RecipientID: sender.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationID, again.ConversationID)
}

func TestSendMessageRules(t *testing.T) {
	conn := testutil.NewDB(t)
	a := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)
	outsider := testutil.CreateUser(t, conn, "c@example.com", models.RoleClient)
	conv, _, err := GetOrCreateConversation(conn, a.ID, b.ID)
	require.NoError(t, err)

	_, err = SendMessage(conn, outsider.ID, SendMessageInput{ConversationID: conv.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = SendMessage(conn, a.ID, SendMessageInput{ConversationID: conv.ID, Content: "   "})
	assert.Error(t, err)

	_, err = SendMessage(conn, a.ID, SendMessageInput{ConversationID: conv.ID, Content: strings.Repeat("y", models.MaxMessageLength+1)})
	assert.Error(t, err)

	_, err = SendMessage(conn, a.ID, SendMessageInput{Content: "hi"})
	assert.Error(t, err)
}

func TestMarkConversationReadOnlyTouchesCounterpartMessages(t *testing.T) {
	conn := testutil.NewDB(t)
	a := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)
	conv, _, err := GetOrCreateConversation(conn, a.ID, b.ID)
	require.NoError(t, err)

	for _, from := range []uint{a.ID, b.ID, b.ID} {
		_, err := SendMessage(conn, from, SendMessageInput{ConversationID: conv.ID, Content: "msg"})
		require.NoError(t, err)
	}

	unread, err := UnreadMessageCount(conn, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	n, err := MarkConversationRead(conn, conv.ID, a.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var mine models.Message
	require.NoError(t, conn.Where("sender_id = ?", a.ID).First(&mine).Error)
	assert.False(t, mine.IsRead)

	unread, err = UnreadMessageCount(conn, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	list, err := ListConversations(conn, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].UnreadCount)
	assert.Equal(t, a.ID, list[0].OtherUser.ID)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, b.ID, list[0].LastMessage.SenderID)
}

func TestListMessagesMarksRead(t *testing.T) {
	conn := testutil.NewDB(t)
	a := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, conn, "b@example.com", models.RoleCaregiver)
	msg, err := SendMessage(conn, b.ID, SendMessageInput{RecipientID: a.ID, Content: "Are you free on Monday?"})
	require.NoError(t, err)

	msgs, err := ListMessages(conn, msg.ConversationID, a.ID, testNow)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	unread, err := UnreadMessageCount(conn, a.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	found, err := SearchMessages(conn, a.ID, "monday")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	outsider := testutil.CreateUser(t, conn, "c@example.com", models.RoleClient)
	found, err = SearchMessages(conn, outsider.ID, "monday")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestOnlineStatus(t *testing.T) {
	conn := testutil.NewDB(t)
	u := testutil.CreateUser(t, conn, "a@example.com", models.RoleClient)

	status, err := OnlineStatus(conn, u.ID)
	require.NoError(t, err)
	assert.False(t, status.IsOnline)

	require.NoError(t, SetOnline(conn, u.ID, true, testNow))
	status, err = OnlineStatus(conn, u.ID)
	require.NoError(t, err)
	assert.True(t, status.IsOnline)

	require.NoError(t, SetOnline(conn, u.ID, false, testNow.Add(time.Minute)))
	status, err = OnlineStatus(conn, u.ID)
	require.NoError(t, err)
	assert.False(t, status.IsOnline)
}
