// Package monitor exposes a read-only websocket feed of a Session's
// stats (queue depth, saturation-mode state, throughput) so an operator
// dashboard can watch the send pipeline behave live, the same shape as
// an RTMP server's own push-to-subscriber websocket endpoint.
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StatsSource is anything a Hub can poll for a stats snapshot.
// rtmpcast.MonitorSource adapts a Session to it, so the monitor package
// never has to import the root package.
type StatsSource interface {
	Stats() StatsSnapshot
}

// StatsSnapshot mirrors rtmpcast.Stats's JSON-relevant fields.
type StatsSnapshot struct {
	State           string `json:"state"`
	BytesSent       uint64 `json:"bytes_sent"`
	BytesReceived   uint64 `json:"bytes_received"`
	QueuedBytes     int    `json:"queued_bytes"`
	InSaturation    bool   `json:"in_saturation"`
	AppConnected    bool   `json:"app_connected"`
	PublishStreamID uint32 `json:"publish_stream_id"`
}

// Hub upgrades incoming HTTP requests to websocket connections and
// pushes a StatsSource snapshot to every connected client at a fixed
// interval.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger
	source   StatsSource
	interval time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub returns a Hub pushing source's stats every interval.
func NewHub(source StatsSource, interval time.Duration) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   log.New(log.Writer(), "monitor: ", log.LstdFlags),
		source:   source,
		interval: interval,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it for pushes until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Read and discard inbound frames until the client disconnects;
	// this is a push-only feed, clients send nothing meaningful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run pushes a snapshot to every connected client every interval, until
// stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *Hub) broadcast() {
	snapshot := h.source.Stats()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Printf("marshal stats snapshot: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Printf("push to client failed, dropping: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
