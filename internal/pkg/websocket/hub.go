package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a server-to-client push
type Event struct {
	// Type of event, e.g. "notification"
	Type string `json:"type"`

	// User the event is addressed to
	UserID string `json:"userId"`

	Data interface{} `json:"data,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Hub maintains the connected clients of every user and pushes events to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[string]map[*Client]bool

	// Events waiting to be delivered
	push chan *Event

	register   chan *Client
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Guards clients for readers outside Run
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		push:       make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for userID, clients := range h.clients {
			for client := range clients {
				close(client.send)
			}
			delete(h.clients, userID)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.push:
			h.deliver(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info().
		Str("userID", client.userID).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info().
		Str("userID", client.userID).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client unregistered")
}

func (h *Hub) deliver(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", event.UserID).Msg("Failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[event.UserID]
	if !ok {
		h.logger.Debug().Str("userID", event.UserID).Msg("No connected clients for event")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Slow or dead client
			h.removeLocked(client)
		}
	}
}

// Push queues event for delivery. It never blocks; events are dropped when
// the queue is full or the hub has stopped.
func (h *Hub) Push(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case <-h.done:
	case h.push <- event:
	default:
		h.logger.Warn().Str("userID", event.UserID).Str("type", event.Type).Msg("Push queue full, event dropped")
	}
}

// ClientsCount returns the number of connected clients of a user
func (h *Hub) ClientsCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
