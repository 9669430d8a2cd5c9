package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// GetAllTranscripts returns all stored transcripts with pagination
func (h *Handler) GetAllTranscripts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	transcripts, err := h.transcriptStorage.GetTranscripts(limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcripts", logger.Error(err))
		http.Error(w, "Failed to retrieve transcripts", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"timestamp":   time.Now().UTC(),
		"count":       len(transcripts),
		"transcripts": transcripts,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetTranscriptsByRoom returns transcripts for a specific room
func (h *Handler) GetTranscriptsByRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "Missing room ID", http.StatusBadRequest)
		return
	}

	limit, offset := parsePaginationParams(r)

	transcripts, err := h.transcriptStorage.GetTranscriptsByRoom(roomID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcripts by room", logger.Error(err))
		http.Error(w, "Failed to retrieve transcripts", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"timestamp":   time.Now().UTC(),
		"room_id":     roomID,
		"count":       len(transcripts),
		"transcripts": transcripts,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetTranscriptsBySession returns transcripts for a specific live session
func (h *Handler) GetTranscriptsBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		http.Error(w, "Missing session ID", http.StatusBadRequest)
		return
	}

	limit, offset := parsePaginationParams(r)

	transcripts, err := h.transcriptStorage.GetTranscriptsBySession(sessionID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcripts by session", logger.Error(err))
		http.Error(w, "Failed to retrieve transcripts", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"timestamp":   time.Now().UTC(),
		"session_id":  sessionID,
		"count":       len(transcripts),
		"transcripts": transcripts,
	}

	WriteJSON(w, http.StatusOK, response)
}
