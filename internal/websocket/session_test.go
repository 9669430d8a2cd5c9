package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

func newTestWSServer(t *testing.T) (*httptest.Server, *room.Registry) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	registry := room.NewRegistry(log)
	srv := NewServer(registry, 0, log)
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleConnection))
	t.Cleanup(ts.Close)
	return ts, registry
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *room.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	var env room.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("failed to decode %q: %v", data, err)
	}
	return &env
}

// readEnvelopeOfType skips frames until one of the wanted type arrives
func readEnvelopeOfType(t *testing.T, conn *websocket.Conn, msgType string) *room.Envelope {
	t.Helper()
	for i := 0; i < 10; i++ {
		env := readEnvelope(t, conn)
		if env.Type == msgType {
			return env
		}
	}
	t.Fatalf("never received %s", msgType)
	return nil
}

func join(t *testing.T, conn *websocket.Conn, roomID, userID string, settings room.Settings) {
	t.Helper()
	sendJSON(t, conn, map[string]any{
		"type":     "join_room",
		"roomId":   roomID,
		"userId":   userID,
		"settings": settings,
	})
	env := readEnvelopeOfType(t, conn, room.TypeRoomInfo)
	if env.RoomID != roomID {
		t.Fatalf("room_info for wrong room: %+v", env)
	}
}

func TestFirstMessageMustBeJoinRoom(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dial(t, ts)

	sendJSON(t, conn, map[string]any{"type": "translation", "original": "hi"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected close code 1008, got %d", closeErr.Code)
	}
}

func TestJoinWithoutIdentifiersIsRejected(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dial(t, ts)

	sendJSON(t, conn, map[string]any{"type": "join_room", "roomId": "r1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if closeErr, ok := err.(*websocket.CloseError); !ok || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected close code 1008, got %v", err)
	}
}

func TestRoomFanOut(t *testing.T) {
	ts, registry := newTestWSServer(t)

	alice := dial(t, ts)
	join(t, alice, "r1", "alice", room.Settings{"lang": "en"})

	bob := dial(t, ts)
	join(t, bob, "r1", "bob", nil)

	// Alice learns of bob's arrival
	joined := readEnvelopeOfType(t, alice, room.TypeUserJoined)
	if joined.UserID != "bob" {
		t.Fatalf("unexpected user_joined: %+v", joined)
	}

	// Alice's caption reaches bob, stamped with her identity
	sendJSON(t, alice, map[string]any{
		"type":           "translation",
		"original":       "hello",
		"translated":     "hola",
		"sourceLanguage": "en",
		"targetLanguage": "es",
	})
	caption := readEnvelopeOfType(t, bob, room.TypeTranslation)
	if caption.UserID != "alice" || caption.Translated != "hola" {
		t.Fatalf("unexpected translation: %+v", caption)
	}
	if caption.Timestamp == "" {
		t.Fatalf("translation missing server timestamp")
	}

	// Bob leaving is announced to alice and the registry forgets him
	bob.Close()
	left := readEnvelopeOfType(t, alice, room.TypeUserLeft)
	if left.UserID != "bob" {
		t.Fatalf("unexpected user_left: %+v", left)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.GetStats().ParticipantCount == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("registry still tracking bob: %+v", registry.GetStats())
}

func TestPingPong(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dial(t, ts)
	join(t, conn, "r1", "alice", nil)

	sendJSON(t, conn, map[string]any{"type": "ping"})
	if env := readEnvelopeOfType(t, conn, room.TypePong); env.Type != room.TypePong {
		t.Fatalf("expected pong, got %+v", env)
	}
}

func TestMalformedJSONKeepsSessionOpen(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dial(t, ts)
	join(t, conn, "r1", "alice", nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	errEnv := readEnvelopeOfType(t, conn, room.TypeError)
	if errEnv.Message == "" {
		t.Fatalf("error envelope missing message: %+v", errEnv)
	}

	// The session is still usable afterwards
	sendJSON(t, conn, map[string]any{"type": "ping"})
	readEnvelopeOfType(t, conn, room.TypePong)
}

func TestEnvelopeWithoutTypeIsIgnored(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dial(t, ts)
	join(t, conn, "r1", "alice", nil)

	// Valid JSON without a type tag is treated like an unknown message,
	// not answered with an error envelope
	sendJSON(t, conn, map[string]any{"roomId": "r1"})

	sendJSON(t, conn, map[string]any{"type": "ping"})
	env := readEnvelope(t, conn)
	if env.Type == room.TypeError {
		t.Fatalf("typeless envelope should not produce an error: %+v", env)
	}
	if env.Type != room.TypePong {
		t.Fatalf("expected pong, got %+v", env)
	}
}

func TestUnknownTypeIsIgnored(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dial(t, ts)
	join(t, conn, "r1", "alice", nil)

	sendJSON(t, conn, map[string]any{"type": "no_such_type"})

	// The connection survives and still answers pings
	sendJSON(t, conn, map[string]any{"type": "ping"})
	readEnvelopeOfType(t, conn, room.TypePong)
}
