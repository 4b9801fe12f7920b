package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dart-scoring-server/darts"
	"dart-scoring-server/game"
	"dart-scoring-server/lobby"
	"dart-scoring-server/matcherrors"
	"dart-scoring-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	maxDeviceKeyLength = 64
)

// Client is a middleman between the websocket connection and a session.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Owner   string
	Session *game.Session
}

// ReadPump pumps messages from the websocket connection to the session.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "owner", c.Owner, "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	if envelope.Type == "hello" {
		c.handleHello(envelope.Raw)
		return
	}
	if c.Session == nil {
		c.sendError("Send hello first.")
		return
	}

	switch envelope.Type {
	case "start_match":
		c.handleStartMatch(envelope.Raw)
	case "add_dart":
		c.handleAddDart(envelope.Raw)
	case "remove_dart":
		var msg RemoveDartMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid remove_dart message.")
			return
		}
		c.do(game.Action{Type: game.ActionRemoveDart, Index: msg.Index})
	case "replace_dart":
		c.handleReplaceDart(envelope.Raw)
	case "clear_darts":
		c.do(game.Action{Type: game.ActionClearDarts})
	case "submit_turn":
		c.do(game.Action{Type: game.ActionSubmitTurn})
	case "reset":
		c.do(game.Action{Type: game.ActionReset})
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleHello(raw json.RawMessage) {
	if c.Session != nil {
		c.sendError("Already connected.")
		return
	}
	var msg HelloMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid hello message.")
		return
	}

	var deviceKey string
	switch {
	case msg.Token != "" && c.Hub.Auth != nil:
		owner, err := c.Hub.Auth.Owner(msg.Token)
		if err != nil {
			slog.Debug("hello rejected", "tag", "ws", "error", err)
			c.sendError("Invalid or expired token.")
			return
		}
		c.Owner = owner
	default:
		deviceKey = strings.TrimSpace(msg.DeviceKey)
		if deviceKey == "" {
			deviceKey = uuid.NewString()
		}
		if len(deviceKey) > maxDeviceKeyLength {
			c.sendError("Device key is too long.")
			return
		}
		c.Owner = "device:" + deviceKey
	}

	welcome := WelcomeMsg{Type: "welcome", Owner: c.Owner, DeviceKey: deviceKey, Variants: c.Hub.Catalog.Groups()}
	data, _ := json.Marshal(welcome)
	wsutil.SafeSend(c.Send, data)

	c.Session = c.Hub.Lobby.Attach(context.Background(), c.Owner, c.Send)
	if c.Session == nil {
		c.sendError("Session closed.")
	}
}

func (c *Client) handleStartMatch(raw json.RawMessage) {
	var msg StartMatchMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid start_match message.")
		return
	}
	m, err := c.Hub.Lobby.NewMatch(lobby.StartRequest{
		Players:  msg.Players,
		OptionID: msg.OptionID,
		Variant:  msg.Variant,
		Settings: msg.Settings,
	})
	if err != nil {
		c.sendError(errorText(err))
		return
	}
	c.do(game.Action{Type: game.ActionStartMatch, Match: m})
}

func (c *Client) handleAddDart(raw json.RawMessage) {
	var msg AddDartMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid add_dart message.")
		return
	}
	t, err := darts.Parse(msg.Region)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.do(game.Action{Type: game.ActionAddDart, Throw: t})
}

func (c *Client) handleReplaceDart(raw json.RawMessage) {
	var msg ReplaceDartMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid replace_dart message.")
		return
	}
	t, err := darts.Parse(msg.Region)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.do(game.Action{Type: game.ActionReplaceDart, Index: msg.Index, Throw: t})
}

// do forwards an action to the session with this client as the reply channel.
func (c *Client) do(a game.Action) {
	a.Send = c.Send
	if !c.Session.Do(a) {
		c.sendError("Session closed.")
	}
}

func (c *Client) sendError(message string) {
	msg := game.ErrorMsg{Type: "error", Message: message}
	data, _ := json.Marshal(msg)
	wsutil.SafeSend(c.Send, data)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, matcherrors.ErrUnknownVariant), errors.Is(err, matcherrors.ErrInvalidPlayers):
		return err.Error()
	default:
		return "Could not start the match."
	}
}
