package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/cache"
)

// Redis channel shared by all app instances for listing updates
const propertyChannel = "property_events"

const (
	EventPublished    = "property.published"
	EventPriceChanged = "property.price_changed"
	EventReserved     = "property.reserved"
	EventSold         = "property.sold"
	EventRemoved      = "property.removed"
)

// Event is one listing update pushed to connected browsers.
type Event struct {
	Kind       string    `json:"kind"`
	UUID       string    `json:"uuid"`
	ShareLink  string    `json:"share_link"`
	Title      string    `json:"title"`
	City       string    `json:"city"`
	PriceCents int64     `json:"price_cents"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Hub fans listing events out to connected WebSocket clients. Events are
// published through Redis pub/sub so every app instance sees them, and each
// instance broadcasts to its own local connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	redis   *redis.Client
}

var hub *Hub

// SetupHub initializes the global hub and starts the Redis subscriber.
func SetupHub() {
	hub = NewHub(cache.GetClient())
	go hub.Run(context.Background())
}

// GetHub returns the global hub instance
func GetHub() *Hub {
	if hub == nil {
		SetupHub()
	}
	return hub
}

// NewHub creates a hub. A nil Redis client degrades to instance-local
// broadcasting, which is what the tests use.
func NewHub(client *redis.Client) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		redis:   client,
	}
}

// Run subscribes to the Redis channel and forwards messages to the local
// clients until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	if h.redis == nil {
		return
	}

	sub := h.redis.Subscribe(ctx, propertyChannel)
	defer sub.Close()

	log.Infof("[Realtime] Subscribed to %s", propertyChannel)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcastLocal([]byte(msg.Payload))
		}
	}
}

// Register adds a connection to the local broadcast set.
func (h *Hub) Register(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a connection. Safe to call for unknown connections.
func (h *Hub) Unregister(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ClientCount returns the number of locally connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends an event to all instances. Publishing is fire-and-forget
// for callers: a Redis failure falls back to the local clients so the
// current instance still updates.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("[Realtime] Failed to encode event: %v", err)
		return
	}

	if h.redis != nil {
		if err := h.redis.Publish(ctx, propertyChannel, data).Err(); err == nil {
			return
		} else {
			log.Warnf("[Realtime] Redis publish failed, broadcasting locally: %v", err)
		}
	}
	h.broadcastLocal(data)
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			// Dead connection, drop it
			h.Unregister(c)
			_ = c.Close()
		}
	}
}
