// Package events contains the WebSocket message contracts pushed to
// dashboard clients.
package events

import (
	"time"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeDashboardSnapshot carries the full derived dashboard after
	// any state transition.
	MessageTypeDashboardSnapshot MessageType = "dashboard:snapshot"

	// MessageTypeSessionClosed tells clients their session was removed.
	MessageTypeSessionClosed MessageType = "session:closed"

	// Connection messages
	MessageTypeConnect   MessageType = "connect"
	MessageTypeHeartbeat MessageType = "heartbeat"
	MessageTypeError     MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// DashboardSnapshotMessage is the payload of MessageTypeDashboardSnapshot.
type DashboardSnapshotMessage struct {
	BaseMessage
	Data domain.Snapshot `json:"data"`
}

// ConnectData is the payload of MessageTypeConnect.
type ConnectData struct {
	ClientID  string `json:"client_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ErrorData is the payload of MessageTypeError.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// ClientMessage is what a dashboard client may send. Only heartbeats are
// understood.
type ClientMessage struct {
	Type MessageType `json:"type"`
}
