// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing      EventType = "ping"
	EventTypePong      EventType = "pong"
	EventTypeConnected EventType = "connected"
	EventTypeError     EventType = "error"

	// State change events (server -> client)
	EventTypeEntitlementUpdated  EventType = "entitlement:updated"
	EventTypeQuotaUpdated        EventType = "quota:updated"
	EventTypeRelationshipUpdated EventType = "relationship:updated"
	EventTypeRelationshipRemoved EventType = "relationship:removed"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelEntitlement   ChannelType = "entitlement"
	ChannelQuota         ChannelType = "quota"
	ChannelRelationships ChannelType = "relationships"
)

// DefaultChannels are subscribed on connect.
var DefaultChannels = []ChannelType{ChannelEntitlement, ChannelQuota, ChannelRelationships}

// ChannelFor maps a server event onto the channel it is delivered on.
func ChannelFor(t EventType) ChannelType {
	switch t {
	case EventTypeEntitlementUpdated:
		return ChannelEntitlement
	case EventTypeQuotaUpdated:
		return ChannelQuota
	case EventTypeRelationshipUpdated, EventTypeRelationshipRemoved:
		return ChannelRelationships
	}
	return ""
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RelationshipRemovedData is pushed when a contact stops being tracked.
type RelationshipRemovedData struct {
	ContactID string `json:"contact_id"`
}

// Notifier pushes a state change to every live connection of an account.
type Notifier interface {
	NotifyAccount(accountID string, eventType EventType, data interface{})
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyAccount(string, EventType, interface{}) {}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
