package socket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/meinhoongagan/carenest/realtime"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/validation"
)

// frame is one inbound socket message.
type frame struct {
	Action         string `json:"action"`
	ConversationID uint   `json:"conversation_id"`
	RecipientID    uint   `json:"recipient_id"`
	Content        string `json:"content"`
	BookingID      *uint  `json:"booking_id"`
	IsTyping       bool   `json:"is_typing"`
}

type client struct {
	id     string
	userID uint
	ws     *websocket.Conn
	sub    *realtime.Subscription
	server *Server
	log    *zap.Logger
}

// readPump dispatches inbound frames until the peer goes away.
func (c *client) readPump() {
	defer c.server.hub.Close(c.sub)

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("chat socket read failed", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.reply(realtime.Event{Action: realtime.ActionError, Error: "Invalid JSON"})
			continue
		}
		c.handle(f)
	}
}

// writePump is the only writer on ws.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				c.log.Debug("chat socket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handle(f frame) {
	switch f.Action {
	case realtime.ActionSendMessage:
		c.sendMessage(f)
	case realtime.ActionJoinConversation:
		c.joinConversation(f.ConversationID)
	case realtime.ActionTyping:
		c.typing(f)
	case realtime.ActionMarkRead:
		if _, err := services.MarkConversationRead(c.server.conn, f.ConversationID, c.userID, time.Now().UTC()); err != nil {
			c.fail(err)
		}
	default:
		c.reply(realtime.Event{Action: realtime.ActionError, Error: "Unknown action"})
	}
}

func (c *client) sendMessage(f frame) {
	msg, err := services.SendMessage(c.server.conn, c.userID, services.SendMessageInput{
		ConversationID: f.ConversationID,
		RecipientID:    f.RecipientID,
		Content:        f.Content,
		BookingID:      f.BookingID,
	})
	if err != nil {
		c.fail(err)
		return
	}

	// A sender outside the conversation group missed the broadcast.
	group := realtime.ConversationGroup(msg.ConversationID)
	if !c.server.hub.Member(c.sub, group) {
		c.server.hub.Join(c.sub, group)
		c.reply(realtime.Event{Action: realtime.ActionNewMessage, Message: realtime.PayloadFor(msg)})
	}
}

func (c *client) joinConversation(conversationID uint) {
	if _, err := services.ConversationForParticipant(c.server.conn, conversationID, c.userID); err != nil {
		c.fail(err)
		return
	}
	c.server.hub.Join(c.sub, realtime.ConversationGroup(conversationID))
	c.reply(realtime.Event{Action: realtime.ActionJoined, ConversationID: conversationID})
}

func (c *client) typing(f frame) {
	if _, err := services.ConversationForParticipant(c.server.conn, f.ConversationID, c.userID); err != nil {
		c.fail(err)
		return
	}
	typing := f.IsTyping
	ev := realtime.Event{
		Action:         realtime.ActionTyping,
		ConversationID: f.ConversationID,
		UserID:         c.userID,
		IsTyping:       &typing,
	}
	if err := c.server.hub.Publish(context.Background(), realtime.ConversationGroup(f.ConversationID), ev); err != nil {
		c.log.Warn("typing publish failed", zap.Error(err))
	}
}

func (c *client) reply(ev realtime.Event) {
	if !c.sub.Send(ev) {
		c.log.Debug("dropping reply", zap.String("action", ev.Action))
	}
}

// fail reports err to the peer; unexpected errors are logged and masked.
func (c *client) fail(err error) {
	var svcErr *services.Error
	var fields validation.Violations
	msg := "Internal error"
	switch {
	case errors.As(err, &svcErr), errors.As(err, &fields):
		msg = err.Error()
	default:
		c.log.Error("chat action failed", zap.Error(err))
	}
	c.reply(realtime.Event{Action: realtime.ActionError, Error: msg})
}
