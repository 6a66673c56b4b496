// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "fluencr-service/internal/domain/websocket"

	"go.uber.org/zap"
)

type Hub struct {
	// Registered clients by account ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	done   chan struct{}
	logger *zap.Logger
}

type BroadcastMessage struct {
	AccountIDs []string
	Channel    wstypes.ChannelType
	Message    *wstypes.WSMessage
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Register hands a connected client to the hub. It returns false once the
// hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyAccount queues a state change for every connection of accountID.
// It never blocks the caller; when the queue is full the event is dropped
// and clients resync on their next read.
func (h *Hub) NotifyAccount(accountID string, eventType wstypes.EventType, data interface{}) {
	msg := &BroadcastMessage{
		AccountIDs: []string{accountID},
		Channel:    wstypes.ChannelFor(eventType),
		Message:    wstypes.NewMessage(eventType, data),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, event dropped",
			zap.String("account_id", accountID),
			zap.String("type", string(eventType)),
		)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.accountID] == nil {
		h.clients[client.accountID] = make(map[*Client]bool)
	}
	h.clients[client.accountID][client] = true

	h.logger.Info("websocket client connected",
		zap.String("account_id", client.accountID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"account_id": client.accountID,
		"roles":      client.roles,
		"channels":   client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.accountID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.accountID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("account_id", client.accountID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.AccountIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	for _, accountID := range msg.AccountIDs {
		for client := range h.clients[accountID] {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}
}

func (h *Hub) ConnectedClients(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for accountID, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, accountID)
	}
}
