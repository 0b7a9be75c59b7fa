package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/raaihank/passforge/internal/forge"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeGeneration is sent after passwords were produced
	EventTypeGeneration = EventType(forge.EventGeneration)
	// EventTypeStrengthAnalysis is sent after a password was scored
	EventTypeStrengthAnalysis = EventType(forge.EventStrengthAnalysis)
	// EventTypePolicyAnalysis is sent after policy text was analyzed
	EventTypePolicyAnalysis = EventType(forge.EventPolicyAnalysis)
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string      `json:"status"`
	Uptime           string      `json:"uptime"`
	Totals           forge.Stats `json:"totals"`
	ConnectedClients int         `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	Message  string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	// subscribed is nil until the client narrows its event types
	subscribed map[EventType]bool
}

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	MaxConnections  int
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
	AllowedOrigins  []string
	StatusInterval  time.Duration
	Username        string
	Password        string
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	DroppedEvents      int64     `json:"dropped_events"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastDisconnectTime time.Time `json:"last_disconnect_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
}
