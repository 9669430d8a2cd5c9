package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/goutham-m7/VerbaFlow/internal/config"
	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/internal/storage/sqlite"
	"github.com/goutham-m7/VerbaFlow/internal/transcribe"
	"github.com/goutham-m7/VerbaFlow/internal/translation"
	"github.com/goutham-m7/VerbaFlow/internal/websocket"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	registry           *room.Registry
	wsServer           *websocket.Server
	transcribeServer   *transcribe.Server
	translationService translation.Service
	transcriptStorage  *sqlite.TranscriptStorage
	config             *config.Config
	logger             *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(registry *room.Registry, wsServer *websocket.Server, transcribeServer *transcribe.Server, translationService translation.Service, transcriptStorage *sqlite.TranscriptStorage, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		registry:           registry,
		wsServer:           wsServer,
		transcribeServer:   transcribeServer,
		translationService: translationService,
		transcriptStorage:  transcriptStorage,
		config:             cfg,
		logger:             log.Named("api-handler"),
	}
}

// HandleWebSocket handles translation session WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("WebSocket connection request received")

	h.wsServer.HandleConnection(w, r)
}

// HandleLiveTranscribe handles live transcription WebSocket connections
func (h *Handler) HandleLiveTranscribe(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Live transcription connection request received")

	h.transcribeServer.HandleLiveTranscribe(w, r)
}

// GetHealth returns service health
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// GetRoomStats returns room and participant counts
func (h *Handler) GetRoomStats(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.GetStats()

	response := map[string]any{
		"timestamp":         time.Now().UTC(),
		"room_count":        stats.RoomCount,
		"participant_count": stats.ParticipantCount,
		"rooms":             stats.Rooms,
	}

	WriteJSON(w, http.StatusOK, response)
}

// translateRequest is the POST body for the translation endpoint
type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Translate translates a piece of text
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" || req.TargetLanguage == "" {
		http.Error(w, "Missing text or target_language", http.StatusBadRequest)
		return
	}

	result, err := h.translationService.Translate(r.Context(), req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		h.logger.Error("Translation failed", logger.Error(err))
		http.Error(w, "Translation failed", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// detectRequest is the POST body for the language detection endpoint
type detectRequest struct {
	Text string `json:"text"`
}

// DetectLanguage identifies the language of a piece of text
func (h *Handler) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "Missing text", http.StatusBadRequest)
		return
	}

	detection, err := h.translationService.DetectLanguage(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("Language detection failed", logger.Error(err))
		http.Error(w, "Language detection failed", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"detected_language": detection.Language,
		"confidence":        detection.Confidence,
		"reliable":          detection.IsReliable(),
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetSupportedLanguages returns the supported language list
func (h *Handler) GetSupportedLanguages(w http.ResponseWriter, r *http.Request) {
	languages := translation.SupportedLanguages()

	response := map[string]any{
		"count":     len(languages),
		"languages": languages,
	}

	WriteJSON(w, http.StatusOK, response)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// parsePaginationParams parses limit/offset query parameters with defaults
func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
