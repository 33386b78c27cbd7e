package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/adi27online/meruglobalconnect/logger"
)

// Hub tracks live connections per user and fans events out to them. When a
// relay is attached, events are also published so that other instances can
// deliver them to their own connections.
type Hub struct {
	clients   map[string]*Client
	userConns map[string]map[*Client]bool
	register  chan *Client
	done      chan struct{}
	relay     *Relay
	mu        sync.RWMutex
}

// Message is the envelope of every frame sent to a client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type ClientMessage struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		userConns: make(map[string]map[*Client]bool),
		register:  make(chan *Client),
		done:      make(chan struct{}),
	}
}

// AttachRelay makes Notify publish to other instances as well.
func (h *Hub) AttachRelay(r *Relay) {
	h.relay = r
}

// Run serves registrations until ctx is done, then closes every remaining
// connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.userConns[client.UserID] == nil {
				h.userConns[client.UserID] = make(map[*Client]bool)
			}
			h.userConns[client.UserID][client] = true
			h.mu.Unlock()

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.userConns = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// add hands client to Run. It reports false once the hub has stopped.
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// remove forgets client and closes its send channel. It is safe to call more
// than once.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if conns := h.userConns[client.UserID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userConns, client.UserID)
		}
	}
	close(client.Send)
}

// Notify delivers event to every connection of userIDs, here and, through
// the relay, on other instances.
func (h *Hub) Notify(userIDs []string, event string, data any) {
	frame, err := json.Marshal(&Message{Event: event, Data: data})
	if err != nil {
		logger.Error().Err(err).Str("event", event).Msg("encode websocket event")
		return
	}
	h.deliver(userIDs, frame)

	if h.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.relay.Publish(ctx, userIDs, frame); err != nil {
			logger.Warn().Err(err).Str("event", event).Msg("relay publish failed")
		}
	}
}

// deliver writes frame to local connections only. A connection whose buffer
// is full is dropped.
func (h *Hub) deliver(userIDs []string, frame []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, userID := range userIDs {
		for client := range h.userConns[userID] {
			select {
			case client.Send <- frame:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.remove(client)
	}
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// Connections counts open connections on this instance.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
