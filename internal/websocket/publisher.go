package websocket

// EventPublisher defines the interface for publishing events to a user's clients
type EventPublisher interface {
	// Publish sends an event to everything subscribed for the user
	Publish(userID int32, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the user's connections
func (h *Hub) Publish(userID int32, event Event) {
	h.Broadcast(userID, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(userID int32, event Event) {}

// MultiPublisher fans every event out to several publishers
type MultiPublisher []EventPublisher

// Publish forwards the event to each publisher in order
func (m MultiPublisher) Publish(userID int32, event Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(userID, event)
		}
	}
}
