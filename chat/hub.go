package chat

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/logging"
)

const (
	// writeWait bounds a single write to a listener
	writeWait = 10 * time.Second
	// sendQueue is how many events a listener may fall behind before it is dropped
	sendQueue = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type listener struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts to plain websocket listeners. Every listener has its own
// queue and writer goroutine, so Publish never waits on the network.
type Hub struct {
	mu      sync.Mutex
	clients map[*listener]struct{}
	log     *zap.SugaredLogger
}

// NewHub returns an empty Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*listener]struct{}),
		log:     logging.New("hub"),
	}
}

// ServeHTTP upgrades the request and keeps the listener registered until it
// goes away. Listeners only receive; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	l := &listener{conn: conn, send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	h.clients[l] = struct{}{}
	h.mu.Unlock()

	go h.write(l)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.drop(l)
			return
		}
	}
}

// write drains the listener's queue onto its connection. It owns the
// connection's write side and closes the connection when it stops.
func (h *Hub) write(l *listener) {
	defer l.conn.Close()
	for msg := range l.send {
		l.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := l.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warnw("dropping websocket listener", "error", err)
			h.drop(l)
			return
		}
	}
	l.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
}

// Len returns the number of connected listeners
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues {"event": topic, "data": payload} for every listener.
// Listeners whose queue is full are disconnected instead of waited on.
func (h *Hub) Publish(topic string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event": topic,
		"data":  payload,
	})
	if err != nil {
		h.log.Errorw("failed to encode websocket event", "topic", topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for l := range h.clients {
		select {
		case l.send <- msg:
		default:
			h.log.Warnw("dropping slow websocket listener", "topic", topic)
			delete(h.clients, l)
			close(l.send)
		}
	}
}

// drop unregisters l once. Closing the queue stops its writer.
func (h *Hub) drop(l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[l]; ok {
		delete(h.clients, l)
		close(l.send)
	}
}
