package hub

import (
	"fmt"
	"log"
	"sync"

	"homepage/pkg/envelope"
	"homepage/pkg/metrics"

	"github.com/gofiber/contrib/websocket"
)

const ActionUserCount = "userCount"

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type clientConn struct {
	conn Conn
	mu   sync.Mutex
}

func (cc *clientConn) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[HUB] send error: %v", err)
	}
}

func (cc *clientConn) sendEnvelope(env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		return
	}
	cc.send(data)
}

// Hub tracks the live-feed sockets of this instance.
type Hub struct {
	service string
	mu      sync.RWMutex
	clients map[*clientConn]struct{}
}

func New(service string) *Hub {
	return &Hub{
		service: service,
		clients: make(map[*clientConn]struct{}),
	}
}

// Serve registers conn and blocks in its read loop until the peer goes away.
func (h *Hub) Serve(c Conn) {
	cc := &clientConn{conn: c}

	h.mu.Lock()
	h.clients[cc] = struct{}{}
	h.mu.Unlock()
	metrics.HubConnect()

	log.Printf("[HUB] Client connected total=%d", h.ClientCount())
	h.broadcastCount()

	defer func() {
		h.mu.Lock()
		delete(h.clients, cc)
		h.mu.Unlock()
		c.Close()
		metrics.HubDisconnect()
		log.Printf("[HUB] Client disconnected total=%d", h.ClientCount())
		h.broadcastCount()
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		env, err := envelope.Unmarshal(raw)
		if err != nil {
			cc.sendEnvelope(envelope.NewError(h.service, 400, "Invalid JSON."))
			continue
		}

		switch env.Action {
		case "ping":
			cc.sendEnvelope(envelope.New("pong", h.service))
		default:
			cc.sendEnvelope(envelope.NewError(h.service, 404, fmt.Sprintf("unknown action: %s", env.Action)))
		}
	}
}

// Broadcast sends an event to ALL connected clients
func (h *Hub) Broadcast(action string, data interface{}) {
	env, err := envelope.NewEvent(action, h.service, data)
	if err != nil {
		log.Printf("[HUB] broadcast %s: %v", action, err)
		return
	}
	h.BroadcastEnvelope(env)
}

func (h *Hub) BroadcastEnvelope(env envelope.Envelope) {
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cc := range h.clients {
		cc.send(raw)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastCount() {
	h.Broadcast(ActionUserCount, map[string]int{"count": h.ClientCount()})
}
