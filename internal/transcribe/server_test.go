package transcribe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/internal/storage/sqlite"
	"github.com/goutham-m7/VerbaFlow/internal/translation"
)

func newLiveTestServer(t *testing.T, apiKey string) (*httptest.Server, *sqlite.TranscriptStorage) {
	t.Helper()
	log := newTestLogger(t)

	upstream, _ := fakeDeepgramServer(t)
	deepgram := NewClient(apiKey, upstream.URL, log)

	database, err := sqlite.NewDatabase(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	storage := sqlite.NewTranscriptStorage(database.GetDB(), log)

	srv := NewServer(deepgram, translation.NewMockService(log), storage, LiveConfig{
		Model:      "nova-2",
		Language:   "en",
		Encoding:   "linear16",
		SampleRate: 44100,
	}, log)

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleLiveTranscribe))
	t.Cleanup(ts.Close)
	return ts, storage
}

func dialLive(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLiveTranscribeSession(t *testing.T) {
	ts, storage := newLiveTestServer(t, "test-key")
	conn := dialLive(t, ts, "?language=es&room_id=room-1&user_id=alice")

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("hola por favor")); err != nil {
		t.Fatalf("failed to send audio: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}

	var result LiveResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode result %q: %v", data, err)
	}
	if result.DetectedLanguage == nil || *result.DetectedLanguage != "es" {
		t.Fatalf("unexpected detection: %+v", result)
	}
	if result.DetectionConfidence == nil {
		t.Fatalf("missing detection confidence: %+v", result)
	}

	var event LiveEvent
	if err := json.Unmarshal(result.Result, &event); err != nil {
		t.Fatalf("result payload not an event: %v", err)
	}
	if event.Transcript() != "hola por favor" {
		t.Fatalf("unexpected transcript: %q", event.Transcript())
	}

	// Final segments are persisted with the session's room correlation
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		records, err := storage.GetTranscriptsByRoom("room-1", 10, 0)
		if err != nil {
			t.Fatalf("failed to query transcripts: %v", err)
		}
		if len(records) == 1 {
			if records[0].Content != "hola por favor" || records[0].UserID != "alice" {
				t.Fatalf("unexpected stored record: %+v", records[0])
			}
			if records[0].DetectedLanguage != "es" {
				t.Fatalf("detection not persisted: %+v", records[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("transcript never persisted")
}

func TestLiveTranscribeWithoutAPIKey(t *testing.T) {
	ts, _ := newLiveTestServer(t, "")
	conn := dialLive(t, ts, "?language=en")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %v", err)
	}
	if closeErr.Code != websocket.CloseInternalServerErr {
		t.Fatalf("expected close code 1011, got %d", closeErr.Code)
	}
	if closeErr.Text == "" {
		t.Fatalf("close frame missing reason")
	}
}
