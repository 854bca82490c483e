package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
)

type userMessage struct {
	userID int64
	data   []byte
}

// Hub maintains the set of active clients, grouped by the user they
// authenticated as. All map access happens on the Run goroutine.
type Hub struct {
	// Registered clients, keyed by user ID.
	clients map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	notify     chan userMessage

	// Closed when Run returns.
	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan userMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop and blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for userID, set := range h.clients {
				for client := range set {
					client.close()
				}
				delete(h.clients, userID)
			}
			return
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			log.Info().Int64("user_id", client.UserID).Int("user_clients", len(h.clients[client.UserID])).Msg("Client connected")
		case client := <-h.unregister:
			if h.remove(client) {
				log.Info().Int64("user_id", client.UserID).Msg("Client disconnected")
			}
		case msg := <-h.notify:
			for client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer; drop it rather than block every other user.
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return false
	}
	delete(set, client)
	client.close()
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	return true
}

// Register adds a client to the hub. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and stops its write pump.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyUser sends an action to every live connection of userID. No other
// user's connections receive it.
func (h *Hub) NotifyUser(userID int64, action string, payload interface{}) {
	msg := userMessage{userID: userID, data: NewMessage(action, payload)}
	select {
	case h.notify <- msg:
	case <-h.done:
	}
}
