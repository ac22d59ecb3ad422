package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ErrTooManyConnections is returned by Register when the user is at the connection cap
var ErrTooManyConnections = errors.New("too many connections for user")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	UserID() int32
	Send(data []byte) error
	Close() error
}

// Hub tracks live connections per user. It is safe for concurrent use.
type Hub struct {
	users      map[int32]map[string]ClientInterface
	maxPerUser int
	logger     zerolog.Logger
	mu         sync.RWMutex
}

// NewHub creates a new Hub. maxPerUser <= 0 means no cap.
func NewHub(logger zerolog.Logger, maxPerUser int) *Hub {
	return &Hub{
		users:      make(map[int32]map[string]ClientInterface),
		maxPerUser: maxPerUser,
		logger:     logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a client under its user
func (h *Hub) Register(client ClientInterface) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.UserID()
	clients := h.users[userID]
	if clients == nil {
		clients = make(map[string]ClientInterface)
		h.users[userID] = clients
	}
	if h.maxPerUser > 0 && len(clients) >= h.maxPerUser {
		return ErrTooManyConnections
	}
	clients[client.ID()] = client

	h.logger.Debug().
		Int32("user_id", userID).
		Str("client_id", client.ID()).
		Int("connections", len(clients)).
		Msg("WebSocket client registered")
	return nil
}

// AtCapacity reports whether the user already holds the maximum number of connections
func (h *Hub) AtCapacity(userID int32) bool {
	if h.maxPerUser <= 0 {
		return false
	}
	return h.ClientCount(userID) >= h.maxPerUser
}

// Unregister removes a client. Unknown clients are ignored.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.UserID()
	clients, ok := h.users[userID]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}
	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.users, userID)
	}

	h.logger.Debug().
		Int32("user_id", userID).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to every connection of the user
func (h *Hub) Broadcast(userID int32, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		h.logger.Error().
			Err(err).
			Int32("user_id", userID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	targets := make([]ClientInterface, 0, len(h.users[userID]))
	for _, client := range h.users[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	// Send never blocks: a full buffer counts as a failed send
	for _, client := range targets {
		if err := client.Send(data); err != nil {
			h.logger.Warn().
				Err(err).
				Int32("user_id", userID).
				Str("client_id", client.ID()).
				Msg("Failed to send to client")
		}
	}

	h.logger.Debug().
		Int32("user_id", userID).
		Str("event_type", event.Type).
		Int("client_count", len(targets)).
		Msg("Broadcast event")
}

// ClientCount returns the number of connections of a user
func (h *Hub) ClientCount(userID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// TotalClientCount returns the number of connections across all users
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.users {
		total += len(clients)
	}
	return total
}

// CloseAll closes and forgets every connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	users := h.users
	h.users = make(map[int32]map[string]ClientInterface)
	h.mu.Unlock()

	for _, clients := range users {
		for _, client := range clients {
			_ = client.Close()
		}
	}
}
