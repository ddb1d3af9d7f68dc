package ws

import (
	"encoding/json"
	"sync"
)

// Client is one WebSocket subscription to a payment's status.
type Client struct {
	ExternalID string
	UserID     string
	Send       chan []byte
	hub        *Hub
	mu         sync.Mutex
	closed     bool
}

func NewClient(externalID, userID string) *Client {
	return &Client{ExternalID: externalID, UserID: userID, Send: make(chan []byte, 16)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// Hub fans payment status updates out to the clients watching each external id.
type Hub struct {
	mu        sync.RWMutex
	byPayment map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byPayment: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byPayment[c.ExternalID] == nil {
		h.byPayment[c.ExternalID] = make(map[*Client]struct{})
	}
	h.byPayment[c.ExternalID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byPayment[c.ExternalID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byPayment, c.ExternalID)
		}
	}
}

// BroadcastToPayment sends payload to every subscriber of externalID. Slow
// subscribers miss messages rather than block the caller.
func (h *Hub) BroadcastToPayment(externalID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	m := h.byPayment[externalID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.trySend(data)
	}
}

func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (h *Hub) ClientCount(externalID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byPayment[externalID])
}
