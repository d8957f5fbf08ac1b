package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davallejo/telco-churn-dashboard/internal/config"
	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/events"
)

// publishBuffer bounds snapshots waiting for the hub loop.
const publishBuffer = 256

type sessionMessage struct {
	sessionID string
	data      []byte
}

type clientMessage struct {
	client *Client
	data   []byte
}

// Hub fans dashboard snapshots out to the WebSocket clients subscribed to
// each session. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients, and the same clients grouped by session
	clients  map[*Client]bool
	sessions map[string]map[*Client]bool

	publish    chan sessionMessage
	direct     chan clientMessage
	closing    chan string
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	cfg     config.WebSocketConfig
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	stats   *Stats

	// Control
	quit        chan struct{}
	done        chan struct{}
	running     bool
	stopped     bool
	metricsTick time.Duration
}

// NewHub creates a new Hub. It does nothing until Start is called.
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		sessions:    make(map[string]map[*Client]bool),
		publish:     make(chan sessionMessage, publishBuffer),
		direct:      make(chan clientMessage, publishBuffer),
		closing:     make(chan string, publishBuffer),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "websocket.hub")),
		metrics:     metrics,
		stats:       NewStats(),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		metricsTick: 30 * time.Second,
	}
}

// Start starts the hub's goroutines
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub shut down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.publish:
			h.deliver(msg)

		case msg := <-h.direct:
			h.mu.RLock()
			registered := h.clients[msg.client]
			h.mu.RUnlock()
			if registered {
				h.trySend(msg.client, msg.data)
			}

		case sessionID := <-h.closing:
			h.closeSession(sessionID)
		}
	}
}

// Stop closes every client and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.stopped = true
		h.mu.Unlock()
		return
	}
	h.running = false
	h.stopped = true
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// Register adds a client. It reports false when the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// PublishSnapshot queues snap for every client watching sessionID.
// Sessions without subscribers are skipped.
func (h *Hub) PublishSnapshot(ctx context.Context, sessionID string, snap domain.Snapshot) {
	if h.SessionClientCount(sessionID) == 0 {
		return
	}

	data, err := h.snapshotMessage(ctx, sessionID, snap)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal snapshot",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.publish <- sessionMessage{sessionID: sessionID, data: data}:
	case <-h.quit:
	}
}

// SendSnapshot queues snap for a single client, typically right after it
// connects.
func (h *Hub) SendSnapshot(ctx context.Context, client *Client, snap domain.Snapshot) {
	data, err := h.snapshotMessage(ctx, client.sessionID, snap)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal snapshot",
			slog.String("client_id", client.id),
			slog.String("error", err.Error()))
		return
	}
	h.sendDirect(client, data)
}

// CloseSession tells the session's clients it is gone and disconnects them.
func (h *Hub) CloseSession(sessionID string) {
	select {
	case h.closing <- sessionID:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients watching sessionID.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]interface{} {
	snap := h.stats.Snapshot()
	h.mu.RLock()
	snap["sessions_watched"] = len(h.sessions)
	h.mu.RUnlock()
	return snap
}

func (h *Hub) sendDirect(client *Client, data []byte) {
	select {
	case h.direct <- clientMessage{client: client, data: data}:
	case <-h.quit:
	}
}

func (h *Hub) snapshotMessage(ctx context.Context, sessionID string, snap domain.Snapshot) ([]byte, error) {
	return json.Marshal(events.DashboardSnapshotMessage{
		BaseMessage: newBase(ctx, events.MessageTypeDashboardSnapshot, sessionID),
		Data:        snap,
	})
}

func newBase(ctx context.Context, msgType events.MessageType, sessionID string) events.BaseMessage {
	return events.BaseMessage{
		ID:        uuid.New().String(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
		SessionID: sessionID,
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	watchers, ok := h.sessions[client.sessionID]
	if !ok {
		watchers = make(map[*Client]bool)
		h.sessions[client.sessionID] = watchers
	}
	watchers[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.stats.RecordConnection()
	h.metrics.RecordWebSocketChange(ctx, 1)

	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	data, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: newBase(ctx, events.MessageTypeConnect, client.sessionID),
		Data: events.ConnectData{
			ClientID:  client.id,
			SessionID: client.sessionID,
			Status:    "connected",
		},
	})
	if err == nil {
		h.trySend(client, data)
	}
}

// removeClient drops client from both indexes and closes its send
// channel. It is a no-op for clients already removed.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if watchers := h.sessions[client.sessionID]; watchers != nil {
		delete(watchers, client)
		if len(watchers) == 0 {
			delete(h.sessions, client.sessionID)
		}
	}
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	duration := time.Since(client.connectedAt)
	h.stats.RecordDisconnection(duration)
	h.metrics.RecordWebSocketChange(ctx, -1)

	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", duration))
}

// trySend queues data without blocking. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (h *Hub) trySend(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		return true
	default:
		h.stats.RecordSlowClient()
		h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
			slog.String("client_id", client.id))
		h.removeClient(client)
		return false
	}
}

func (h *Hub) deliver(msg sessionMessage) {
	h.mu.RLock()
	watchers := make([]*Client, 0, len(h.sessions[msg.sessionID]))
	for client := range h.sessions[msg.sessionID] {
		watchers = append(watchers, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range watchers {
		if h.trySend(client, msg.data) {
			delivered++
		}
	}

	h.logger.Debug("snapshot delivered",
		slog.String("session_id", msg.sessionID),
		slog.Int("clients", len(watchers)),
		slog.Int("delivered", delivered),
		slog.Int("message_size", len(msg.data)))
}

func (h *Hub) closeSession(sessionID string) {
	h.mu.RLock()
	watchers := make([]*Client, 0, len(h.sessions[sessionID]))
	for client := range h.sessions[sessionID] {
		watchers = append(watchers, client)
	}
	h.mu.RUnlock()
	if len(watchers) == 0 {
		return
	}

	data, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: newBase(context.Background(), events.MessageTypeSessionClosed, sessionID),
	})
	for _, client := range watchers {
		if err == nil && !h.trySend(client, data) {
			continue
		}
		h.removeClient(client)
	}

	h.logger.Info("session subscribers closed",
		slog.String("session_id", sessionID),
		slog.Int("clients", len(watchers)))
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		all = append(all, client)
	}
	h.mu.RUnlock()

	for _, client := range all {
		h.removeClient(client)
	}
}

// reportMetrics periodically logs hub counters
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(h.metricsTick)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			h.logger.Info("websocket hub metrics",
				slog.Int("active_clients", h.ClientCount()),
				slog.Int("publish_queue", len(h.publish)),
				slog.Any("stats", h.stats.Snapshot()),
			)
		}
	}
}
