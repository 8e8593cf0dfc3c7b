package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/4rubka/ClanMaster/internal/core/domain"
	"github.com/4rubka/ClanMaster/internal/core/services"
	"github.com/4rubka/ClanMaster/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// HeartbeatInterval is how often idle streams get a comment line
const HeartbeatInterval = 30 * time.Second

// EventsHandler streams clan events over SSE
type EventsHandler struct {
	clanService *services.ClanService
	hub         *services.EventHub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(clanService *services.ClanService, hub *services.EventHub) *EventsHandler {
	return &EventsHandler{
		clanService: clanService,
		hub:         hub,
	}
}

// ============================================================
// GET /api/v1/me/events (own clan)
// ============================================================
func (h *EventsHandler) ClanStream(c *fiber.Ctx) error {
	actorID, ok := currentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	name, ok := h.clanService.ClanName(actorID)
	if !ok {
		return clanError(c, domain.ErrNotInClan)
	}
	return h.stream(c, actorID, domain.NormalizeName(name))
}

// ============================================================
// GET /api/v1/admin/events (every clan)
// ============================================================
func (h *EventsHandler) AllStream(c *fiber.Ctx) error {
	actorID, _ := currentActor(c)
	return h.stream(c, actorID, "")
}

func (h *EventsHandler) stream(c *fiber.Ctx, actorID uuid.UUID, clanKey string) error {
	clientID := fmt.Sprintf("ev-%s-%d", actorID, time.Now().UnixNano())

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	var writer fasthttp.StreamWriter = func(w *bufio.Writer) {
		client := &services.EventClient{
			ID:      clientID,
			ActorID: actorID,
			ClanKey: clanKey,
			Channel: make(chan services.ClanEvent, 50),
		}

		h.hub.Register(client)
		defer h.hub.Unregister(clientID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q,\"clan\":%q}\n\n", clientID, clanKey)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(HeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				if err := writeSSEEvent(w, event); err != nil {
					log.Printf("⚠️ Dropping event %s for %s: %v", event.Event, clientID, err)
					continue
				}
				if err := w.Flush(); err != nil {
					log.Printf("📡 Event client disconnected: %s", clientID)
					return
				}

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Printf("📡 Event client disconnected: %s", clientID)
					return
				}
			}
		}
	}
	c.Context().SetBodyStreamWriter(writer)

	return nil
}

// writeSSEEvent writes one event frame with a JSON payload
func writeSSEEvent(w *bufio.Writer, event services.ClanEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, payload)
	return err
}
