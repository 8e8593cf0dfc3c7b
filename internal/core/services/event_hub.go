package services

import (
	"log"
	"sync"
	"time"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// ClanEvent is pushed to subscribed stream clients
type ClanEvent struct {
	Event string                 `json:"event"`
	Clan  string                 `json:"clan"`
	Data  map[string]interface{} `json:"data,omitempty"`
	At    time.Time              `json:"at"`
}

// EventClient is one connected event stream.
// An empty ClanKey receives events of every clan.
type EventClient struct {
	ID      string
	ActorID uuid.UUID
	ClanKey string
	Channel chan ClanEvent
}

// EventHub fans clan events out to connected clients
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*EventClient
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*EventClient),
	}
}

// Register adds a client
func (h *EventHub) Register(client *EventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("📡 Event client registered: %s (actor=%s, clan=%q) | total=%d",
		client.ID, client.ActorID, client.ClanKey, len(h.clients))
}

// Unregister removes a client and closes its channel
func (h *EventHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("📡 Event client unregistered: %s | total=%d", clientID, len(h.clients))
	}
}

// Publish sends event to every client watching its clan. Full channels are skipped.
func (h *EventHub) Publish(event ClanEvent) int {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	key := domain.NormalizeName(event.Clan)

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.ClanKey != "" && client.ClanKey != key {
			continue
		}
		select {
		case client.Channel <- event:
			sent++
		default:
			log.Printf("⚠️ Event channel full for client %s, skipping", client.ID)
		}
	}
	return sent
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
