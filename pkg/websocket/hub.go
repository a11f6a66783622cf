package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub tracks the connected clients of every shell session.
type Hub struct {
	sessionClients map[string]map[*Client]struct{}
	register       chan *Client
	unregister     chan *Client
	done           chan struct{}
	stop           sync.Once
	onClosed       func(sessionID string)
	mu             sync.RWMutex
	logger         *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessionClients: make(map[string]map[*Client]struct{}),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		logger:         logger.Named("websocket"),
	}
}

// OnSessionClosed sets fn to be called when the last connection of a session
// goes away. It must be set before Run.
func (h *Hub) OnSessionClosed(fn func(sessionID string)) {
	h.onClosed = fn
}

// Register adds client to its session. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client. After the hub has stopped it does nothing.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Run serves registrations until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			clients, ok := h.sessionClients[client.SessionID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.sessionClients[client.SessionID] = clients
			}
			clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("session", client.SessionID))
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	if !h.drop(client) {
		return
	}
	h.logger.Debug("session disconnected", zap.String("session", client.SessionID))
	if h.onClosed != nil {
		h.onClosed(client.SessionID)
	}
}

// drop removes client and reports whether it was the last of its session.
func (h *Hub) drop(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessionClients[client.SessionID]
	if !ok {
		return false
	}
	if _, ok := clients[client]; !ok {
		return false
	}
	delete(clients, client)
	close(client.Send)
	h.logger.Debug("client unregistered", zap.String("session", client.SessionID))
	if len(clients) > 0 {
		return false
	}
	delete(h.sessionClients, client.SessionID)
	return true
}

// Connected reports whether sessionID has at least one open connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessionClients[sessionID]) > 0
}

// SendToSession pushes one message to every connection of sessionID. Slow
// clients whose buffer is full miss the message.
func (h *Hub) SendToSession(sessionID string, messageType string, payload interface{}) error {
	envelope := Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("websocket message encoding failed", zap.String("type", messageType), zap.Error(err))
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessionClients[sessionID] {
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("websocket buffer full, message dropped",
				zap.String("session", sessionID), zap.String("type", messageType))
		}
	}
	return nil
}
