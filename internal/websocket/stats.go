package websocket

import (
	"sync"
	"time"
)

// Stats tracks in-process hub counters for the periodic hub log line and
// the liveness endpoint. Exported metrics go through BusinessMetrics.
type Stats struct {
	mu sync.Mutex

	totalConnections  int64
	activeConnections int64
	maxConcurrent     int64
	avgConnectionTime time.Duration
	connectionTimes   []time.Duration

	messagesSent     int64
	bytesSent        int64
	messagesReceived int64
	bytesReceived    int64
	droppedMessages  int64
	slowClients      int64

	startedAt time.Time
}

// NewStats creates zeroed counters.
func NewStats() *Stats {
	return &Stats{
		connectionTimes: make([]time.Duration, 0, 100),
		startedAt:       time.Now(),
	}
}

// RecordConnection records a new connection
func (s *Stats) RecordConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalConnections++
	s.activeConnections++
	if s.activeConnections > s.maxConcurrent {
		s.maxConcurrent = s.activeConnections
	}
}

// RecordDisconnection records a disconnection and keeps a moving average
// over the last 100 connection durations.
func (s *Stats) RecordDisconnection(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeConnections--

	s.connectionTimes = append(s.connectionTimes, duration)
	if len(s.connectionTimes) > 100 {
		s.connectionTimes = s.connectionTimes[1:]
	}
	var total time.Duration
	for _, d := range s.connectionTimes {
		total += d
	}
	s.avgConnectionTime = total / time.Duration(len(s.connectionTimes))
}

// RecordSent records a message handed to the peer.
func (s *Stats) RecordSent(size int) {
	s.mu.Lock()
	s.messagesSent++
	s.bytesSent += int64(size)
	s.mu.Unlock()
}

// RecordReceived records a message read from the peer.
func (s *Stats) RecordReceived(size int) {
	s.mu.Lock()
	s.messagesReceived++
	s.bytesReceived += int64(size)
	s.mu.Unlock()
}

// RecordSlowClient records a client dropped because its send buffer was full.
func (s *Stats) RecordSlowClient() {
	s.mu.Lock()
	s.slowClients++
	s.droppedMessages++
	s.mu.Unlock()
}

// Snapshot returns the counters as a JSON-friendly map.
func (s *Stats) Snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"connections": map[string]interface{}{
			"total":           s.totalConnections,
			"active":          s.activeConnections,
			"max_concurrent":  s.maxConcurrent,
			"avg_duration_ms": s.avgConnectionTime.Milliseconds(),
			"slow_dropped":    s.slowClients,
		},
		"messages": map[string]interface{}{
			"sent":           s.messagesSent,
			"bytes_sent":     s.bytesSent,
			"received":       s.messagesReceived,
			"bytes_received": s.bytesReceived,
			"dropped":        s.droppedMessages,
		},
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	}
}
