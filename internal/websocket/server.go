package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// Server upgrades translation session connections and runs one session per
// connection against the shared room registry.
type Server struct {
	registry       *room.Registry
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         *logger.Logger
}

// NewServer creates a new translation session server. maxMessageSize caps the
// size of a single inbound frame in bytes; zero or negative means 64 KB.
func NewServer(registry *room.Registry, maxMessageSize int64, log *logger.Logger) *Server {
	if maxMessageSize <= 0 {
		maxMessageSize = 64 * 1024
	}
	return &Server{
		registry:       registry,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("ws-session"),
	}
}

// HandleConnection upgrades an HTTP request and runs the translation session
// loop on it until the client disconnects.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Handling new WebSocket connection request",
		String("remote_addr", r.RemoteAddr),
		String("user_agent", r.UserAgent()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			Error(err),
			String("remote_addr", r.RemoteAddr))
		return
	}

	conn.SetReadLimit(s.maxMessageSize)

	client := newClient(conn, s.logger)
	go client.writePump()

	sess := &session{
		client:   client,
		registry: s.registry,
		logger:   s.logger.With(String("remote_addr", r.RemoteAddr)),
	}
	sess.run()
}
