package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"dart-scoring-server/config"
	"dart-scoring-server/game"
	"dart-scoring-server/lobby"
	"dart-scoring-server/variant"
)

// LobbyInterface defines what the Hub needs from the lobby.
type LobbyInterface interface {
	Attach(ctx context.Context, owner string, send chan []byte) *game.Session
	NewMatch(req lobby.StartRequest) (*game.Match, error)
}

// TokenValidator maps a bearer token to an owner key.
type TokenValidator interface {
	Owner(token string) (string, error)
}

// Hub maintains the set of active clients.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Lobby      LobbyInterface
	Auth       TokenValidator // nil: device keys only
	Catalog    *variant.Catalog
	Config     *config.Config

	upgrader websocket.Upgrader
}

// NewHub creates a new Hub. auth may be nil.
func NewHub(cfg *config.Config, lb LobbyInterface, catalog *variant.Catalog, auth TokenValidator) *Hub {
	h := &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Lobby:      lb,
		Auth:       auth,
		Catalog:    catalog,
		Config:     cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.Config.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.Config.AllowedOrigins, origin)
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Debug("client connected", "tag", "ws", "clients", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				// The session lingers for the idle grace; the owner can reconnect to it.
				if client.Session != nil {
					client.Session.Do(game.Action{Type: game.ActionDetach, Send: client.Send})
				}
				close(client.Send)
				slog.Debug("client disconnected", "tag", "ws", "owner", client.Owner, "clients", len(h.Clients))
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "error", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
