package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/internal/storage/sqlite"
	"github.com/goutham-m7/VerbaFlow/internal/translation"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Server terminates live transcription WebSocket sessions. Each connection
// gets its own upstream recognition connection and relay; nothing is shared
// between sessions except the collaborators.
type Server struct {
	deepgram    *Client
	detector    translation.Detector
	transcripts *sqlite.TranscriptStorage
	defaults    LiveConfig
	upgrader    websocket.Upgrader
	logger      *logger.Logger
}

// NewServer creates a live transcription server. transcripts may be nil to
// disable persistence of finalized segments.
func NewServer(deepgram *Client, detector translation.Detector, transcripts *sqlite.TranscriptStorage, defaults LiveConfig, log *logger.Logger) *Server {
	return &Server{
		deepgram:    deepgram,
		detector:    detector,
		transcripts: transcripts,
		defaults:    defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("live-transcribe"),
	}
}

// HandleLiveTranscribe upgrades the request and bridges the client's audio
// stream to the upstream recognition service until either side disconnects.
func (s *Server) HandleLiveTranscribe(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}
	roomID := r.URL.Query().Get("room_id")
	userID := r.URL.Query().Get("user_id")
	sessionID := uuid.New().String()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade live transcription connection",
			Error(err),
			String("remote_addr", r.RemoteAddr))
		return
	}

	sessionLogger := s.logger.With(
		String("session_id", sessionID),
		String("language", language))
	sessionLogger.Info("Live transcription session started",
		String("remote_addr", r.RemoteAddr),
		String("room_id", roomID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cfg := s.defaults
	cfg.Language = language

	upstream, err := s.deepgram.ConnectLive(ctx, cfg)
	if err != nil {
		sessionLogger.Error("Failed to establish upstream recognition connection", Error(err))
		closeWithError(conn, err.Error())
		conn.Close()
		return
	}

	audio := make(chan []byte, 16)
	go func() {
		defer close(audio)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			select {
			case audio <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	sink := &wsSink{
		conn:        conn,
		transcripts: s.transcripts,
		sessionID:   sessionID,
		roomID:      roomID,
		userID:      userID,
		language:    language,
		logger:      sessionLogger,
	}

	relay := NewRelay(upstream, s.detector, sessionLogger)
	if err := relay.Run(ctx, audio, sink); err != nil {
		sessionLogger.Error("Live transcription session failed", Error(err))
		closeWithError(conn, "Transcription service error: "+err.Error())
	}

	conn.Close()
	sessionLogger.Info("Live transcription session ended")
}

// closeWithError sends a 1011 close frame with a reason before the connection
// is torn down. Close reasons are capped at 123 bytes by the protocol.
func closeWithError(conn *websocket.Conn, reason string) {
	if len(reason) > 123 {
		reason = reason[:120] + "..."
	}
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
}

// wsSink delivers relay results to the client connection and persists
// finalized segments.
type wsSink struct {
	conn        *websocket.Conn
	mu          sync.Mutex
	transcripts *sqlite.TranscriptStorage
	sessionID   string
	roomID      string
	userID      string
	language    string
	logger      *logger.Logger
}

// SendResult writes one result frame to the client
func (ws *wsSink) SendResult(event *LiveEvent, result *LiveResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	err = ws.conn.WriteMessage(websocket.TextMessage, data)
	ws.mu.Unlock()
	if err != nil {
		return err
	}

	ws.persist(event, result)
	return nil
}

func (ws *wsSink) persist(event *LiveEvent, result *LiveResult) {
	if ws.transcripts == nil || !event.IsFinal {
		return
	}
	transcript := event.Transcript()
	if strings.TrimSpace(transcript) == "" {
		return
	}

	record := &sqlite.TranscriptRecord{
		SessionID: ws.sessionID,
		RoomID:    ws.roomID,
		UserID:    ws.userID,
		CreatedAt: time.Now().UTC(),
		Content:   transcript,
		Language:  ws.language,
	}
	if len(event.Channel.Alternatives) > 0 {
		record.Confidence = event.Channel.Alternatives[0].Confidence
	}
	if result.DetectedLanguage != nil {
		record.DetectedLanguage = *result.DetectedLanguage
	}
	if result.DetectionConfidence != nil {
		record.DetectionConfidence = *result.DetectionConfidence
	}

	if _, err := ws.transcripts.StoreTranscript(record); err != nil {
		ws.logger.Error("Failed to store transcript segment", Error(err))
	}
}
