package websocket

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// session is the per-connection control loop for one translation session.
// It owns the reading side of the connection; every exit path runs the
// registry disconnect so the room never retains a dead participant.
type session struct {
	client   *Client
	registry *room.Registry
	roomID   string
	userID   string
	logger   *logger.Logger
}

func (s *session) run() {
	defer s.client.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in session handler", logger.Any("panic", r))
			if s.roomID != "" {
				s.registry.Disconnect(s.roomID, s.userID)
			}
			s.client.CloseWithCode(websocket.CloseInternalServerErr, "internal error")
		}
	}()

	s.client.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.client.conn.SetPongHandler(func(string) error {
		s.client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The first envelope must be a valid join_room; anything else is a
	// protocol violation and the connection is closed without joining.
	_, data, err := s.client.conn.ReadMessage()
	if err != nil {
		return
	}

	env, err := room.ParseEnvelope(data)
	if err != nil || env.Type != room.TypeJoinRoom || env.RoomID == "" || env.UserID == "" {
		s.logger.Warn("Rejecting connection: first message is not a valid join_room")
		s.client.CloseWithCode(websocket.ClosePolicyViolation,
			"first message must be join_room with roomId and userId")
		return
	}

	s.roomID = env.RoomID
	s.userID = env.UserID
	s.logger = s.logger.With(String("room_id", s.roomID), String("user_id", s.userID))

	s.registry.Connect(s.roomID, s.userID, env.Settings, s.client)
	defer s.registry.Disconnect(s.roomID, s.userID)

	for {
		_, data, err := s.client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket read error", Error(err))
			}
			return
		}

		env, err := room.ParseEnvelope(data)
		if err != nil {
			if errors.Is(err, room.ErrMissingType) {
				// Valid JSON without a type tag is ignored like any
				// unrecognized message, not answered with an error.
				s.logger.Debug("Ignoring envelope without type")
				continue
			}
			// Malformed input gets an error envelope; the session stays open.
			s.logger.Debug("Received malformed envelope", Error(err))
			s.client.Send(room.NewError("Invalid JSON"))
			continue
		}

		s.dispatch(env)
	}
}

// dispatch routes one envelope by its type tag. Unknown types are logged and
// ignored rather than surfaced as errors.
func (s *session) dispatch(env *room.Envelope) {
	switch env.Type {
	case room.TypeTranslation:
		s.registry.HandleTranslation(s.roomID, s.userID, env.TranslationPayload())

	case room.TypeUpdateSettings:
		s.registry.HandleSettingsUpdate(s.roomID, s.userID, env.Settings)

	case room.TypePing:
		// Pong goes straight back to this connection, never through the room.
		s.client.Send(room.NewPong())

	case room.TypeJoinRoom:
		// Already joined; treat a repeat like any other unhandled type.
		s.logger.Debug("Ignoring join_room after session is active")

	default:
		s.logger.Debug("Ignoring unknown message type", String("type", env.Type))
	}
}
