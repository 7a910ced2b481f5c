package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/pkg/metrics"
)

// Hub maintains the set of connected feed clients and fans news events out
// to them. It holds no authoritative data; a restart only drops live sockets.
type Hub struct {
	// Connected clients; only the Run goroutine mutates this map
	clients map[*Client]struct{}

	broadcast  chan *NewsEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Guards count for readers outside Run
	mu    sync.RWMutex
	count int

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *NewsEvent, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger,
	}
}

// Run owns the client registry until ctx is cancelled, then closes every
// client connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.removeClient(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount()
			h.logger.Info().
				Int64("userID", client.userID).
				Str("department", client.department).
				Msg("Feed client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.removeClient(client)
				h.logger.Info().Int64("userID", client.userID).Msg("Feed client unregistered")
			}

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

func (h *Hub) deliver(event *NewsEvent) {
	h.metrics.IncNewsEvent(event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal news event")
		return
	}

	delivered := 0
	for client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.send <- data:
			delivered++
		default:
			// slow consumer; drop it rather than stall the feed
			h.removeClient(client)
			h.logger.Warn().Int64("userID", client.userID).Msg("Dropped slow feed client")
		}
	}

	h.logger.Debug().
		Str("type", event.Type).
		Int64("postID", event.PostID).
		Int("clientCount", delivered).
		Msg("News event broadcast")
}

// Publish queues event for delivery. It never blocks the caller; when the
// queue is full the event is dropped.
func (h *Hub) Publish(event *NewsEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("type", event.Type).Int64("postID", event.PostID).Msg("News event queue full, event dropped")
	}
}

// ClientCount returns the number of connected feed clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
