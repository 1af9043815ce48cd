package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is the wire shape delivered to subscribed clients.
type Event struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Payload any    `json:"payload"`
}

// Hub fans room events out to the websocket clients watching each room.
// It implements the room service's Broadcaster: Notify never blocks and
// never fails the calling game operation; slow clients just drop
// messages.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

func (h *Hub) Subscribe(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, exists := h.rooms[roomID]
	if !exists {
		clients = make(map[*Client]bool)
		h.rooms[roomID] = clients
	}
	clients[c] = true
}

func (h *Hub) Unsubscribe(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.rooms[roomID]; exists {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SubscriberCount reports how many connections watch a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Notify delivers an event to every subscriber of the room.
func (h *Hub) Notify(roomID, event string, payload any) {
	data, err := json.Marshal(Event{Type: event, RoomID: roomID, Payload: payload})
	if err != nil {
		log.Printf("[WS] Failed to encode %s event for room %s: %v", event, roomID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[roomID] {
		select {
		case c.send <- data:
		default:
			// Client's send buffer full, drop the message
		}
	}
}
