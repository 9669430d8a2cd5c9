package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func TestToWebSocketBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://api.deepgram.com", "wss://api.deepgram.com"},
		{"http://localhost:8080", "ws://localhost:8080"},
		{"wss://api.deepgram.com/", "wss://api.deepgram.com"},
		{"ws://proxy.internal", "ws://proxy.internal"},
	}
	for _, c := range cases {
		if got := toWebSocketBase(c.in); got != c.want {
			t.Fatalf("toWebSocketBase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestConnectLiveRequiresAPIKey(t *testing.T) {
	client := NewClient("", "", newTestLogger(t))
	if _, err := client.ConnectLive(context.Background(), LiveConfig{}); err == nil {
		t.Fatalf("expected error without API key")
	}
}

// fakeDeepgramServer records the upgrade request, echoes one event per binary
// frame, and closes when it sees the empty end-of-audio frame.
func fakeDeepgramServer(t *testing.T) (*httptest.Server, chan *http.Request) {
	t.Helper()
	requests := make(chan *http.Request, 1)
	upgrader := websocket.Upgrader{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			if len(data) == 0 {
				// End-of-audio terminator
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
			event := map[string]any{
				"type": "Results",
				"channel": map[string]any{
					"alternatives": []map[string]any{{"transcript": string(data)}},
				},
				"is_final": true,
			}
			payload, _ := json.Marshal(event)
			conn.WriteMessage(websocket.TextMessage, payload)
		}
	}))
	t.Cleanup(ts.Close)
	return ts, requests
}

func TestConnectLiveRoundTrip(t *testing.T) {
	ts, requests := fakeDeepgramServer(t)
	client := NewClient("test-key", ts.URL, newTestLogger(t))

	conn, err := client.ConnectLive(context.Background(), LiveConfig{
		Model:          "nova-2",
		Language:       "es",
		Encoding:       "linear16",
		SampleRate:     44100,
		InterimResults: true,
		Punctuate:      true,
		SmartFormat:    true,
		Diarize:        true,
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	// The session configuration travels as query parameters and the key as a
	// Token authorization header
	req := <-requests
	if !strings.HasPrefix(req.URL.Path, "/v1/listen") {
		t.Fatalf("unexpected path: %s", req.URL.Path)
	}
	q := req.URL.Query()
	for param, want := range map[string]string{
		"model":           "nova-2",
		"language":        "es",
		"encoding":        "linear16",
		"sample_rate":     "44100",
		"interim_results": "true",
		"punctuate":       "true",
		"smart_format":    "true",
		"diarize":         "true",
	} {
		if q.Get(param) != want {
			t.Fatalf("query param %s = %q, want %q", param, q.Get(param), want)
		}
	}
	if req.Header.Get("Authorization") != "Token test-key" {
		t.Fatalf("unexpected authorization header: %q", req.Header.Get("Authorization"))
	}

	// Audio goes up, events come back
	if err := conn.SendAudio([]byte("hello")); err != nil {
		t.Fatalf("failed to send audio: %v", err)
	}
	event, err := conn.Receive()
	if err != nil {
		t.Fatalf("failed to receive: %v", err)
	}
	if event.Transcript() != "hello" || !event.IsFinal {
		t.Fatalf("unexpected event: %+v", event)
	}
	if len(event.Raw) == 0 {
		t.Fatalf("raw payload not preserved")
	}

	// The terminator ends the stream
	if err := conn.CloseStream(); err != nil {
		t.Fatalf("failed to close stream: %v", err)
	}
	if _, err := conn.Receive(); err == nil {
		t.Fatalf("expected closed connection after terminator")
	}
}

func TestLiveConnSendAfterClose(t *testing.T) {
	ts, _ := fakeDeepgramServer(t)
	client := NewClient("test-key", ts.URL, newTestLogger(t))

	conn, err := client.ConnectLive(context.Background(), LiveConfig{Model: "nova-2", Language: "en", Encoding: "linear16", SampleRate: 16000})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	conn.Close()
	if err := conn.SendAudio([]byte("late")); err == nil {
		t.Fatalf("expected error sending on closed connection")
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("repeat close should be a no-op: %v", err)
	}
}
