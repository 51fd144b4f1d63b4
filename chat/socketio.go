package chat

import (
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"go.uber.org/zap"
)

// SocketIORelay broadcasts to every client connected over Socket.IO
type SocketIORelay struct {
	server *socketio.Server
}

// NewSocketIORelay builds the Socket.IO server. Call Serve before mounting
// Handler.
func NewSocketIORelay() *SocketIORelay {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			polling.Default,
			websocket.Default,
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		zap.S().Debugw("socket.io client connected", "id", s.ID())
		return nil
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		zap.S().Warnw("socket.io error", "error", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		zap.S().Debugw("socket.io client disconnected", "id", s.ID(), "reason", reason)
	})

	return &SocketIORelay{server: server}
}

// Serve runs the Socket.IO event loop in the background
func (r *SocketIORelay) Serve() {
	go func() {
		if err := r.server.Serve(); err != nil {
			zap.S().Errorw("socket.io server stopped", "error", err)
		}
	}()
}

// Handler serves the Socket.IO transport endpoints
func (r *SocketIORelay) Handler() http.Handler {
	return r.server
}

// Publish emits topic to every connected client
func (r *SocketIORelay) Publish(topic string, payload interface{}) {
	if !r.server.BroadcastToNamespace("/", topic, payload) {
		zap.S().Debugw("socket.io broadcast had no namespace", "topic", topic)
	}
}

// Close shuts the server down
func (r *SocketIORelay) Close() error {
	return r.server.Close()
}
