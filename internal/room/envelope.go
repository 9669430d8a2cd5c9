package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMissingType reports a syntactically valid frame that carries no type
// tag. Callers treat it like an unknown message type, not like bad JSON.
var ErrMissingType = errors.New("envelope missing type field")

// Envelope type tags for every message exchanged over a translation session.
const (
	// Client-originated
	TypeJoinRoom       = "join_room"
	TypeTranslation    = "translation"
	TypeUpdateSettings = "update_settings"
	TypePing           = "ping"

	// Server-originated
	TypeUserJoined      = "user_joined"
	TypeUserLeft        = "user_left"
	TypeRoomInfo        = "room_info"
	TypeSettingsUpdated = "settings_updated"
	TypePong            = "pong"
	TypeError           = "error"
)

// Settings is a participant's opaque settings document (language preferences etc.)
type Settings map[string]any

// ParticipantInfo describes one participant in a room_info snapshot
type ParticipantInfo struct {
	UserID   string   `json:"userId"`
	Settings Settings `json:"settings"`
}

// TranslationPayload carries one translated caption
type TranslationPayload struct {
	Original       string `json:"original"`
	Translated     string `json:"translated"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	ShowOriginal   bool   `json:"showOriginal"`
}

// Envelope is the tagged message exchanged over a translation session
// connection. The Type tag selects which payload fields are meaningful;
// unused fields are omitted on the wire.
type Envelope struct {
	Type           string            `json:"type"`
	RoomID         string            `json:"roomId,omitempty"`
	UserID         string            `json:"userId,omitempty"`
	Settings       Settings          `json:"settings,omitempty"`
	Original       string            `json:"original,omitempty"`
	Translated     string            `json:"translated,omitempty"`
	SourceLanguage string            `json:"sourceLanguage,omitempty"`
	TargetLanguage string            `json:"targetLanguage,omitempty"`
	ShowOriginal   *bool             `json:"showOriginal,omitempty"`
	Participants   []ParticipantInfo `json:"participants,omitempty"`
	Timestamp      string            `json:"timestamp,omitempty"`
	Message        string            `json:"message,omitempty"`
}

// ParseEnvelope decodes a raw frame into an envelope. A decode failure is a
// protocol error on the sender's part, not a server fault.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}
	return &env, nil
}

// TranslationPayload extracts the caption fields from a client translation envelope
func (e *Envelope) TranslationPayload() TranslationPayload {
	p := TranslationPayload{
		Original:       e.Original,
		Translated:     e.Translated,
		SourceLanguage: e.SourceLanguage,
		TargetLanguage: e.TargetLanguage,
	}
	if e.ShowOriginal != nil {
		p.ShowOriginal = *e.ShowOriginal
	}
	return p
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewUserJoined announces a new participant to the rest of the room
func NewUserJoined(userID string, settings Settings) *Envelope {
	return &Envelope{
		Type:      TypeUserJoined,
		UserID:    userID,
		Settings:  settings,
		Timestamp: timestamp(),
	}
}

// NewUserLeft announces a departed participant to the rest of the room
func NewUserLeft(userID string) *Envelope {
	return &Envelope{
		Type:      TypeUserLeft,
		UserID:    userID,
		Timestamp: timestamp(),
	}
}

// NewRoomInfo builds the membership snapshot sent to a newly joined connection
func NewRoomInfo(roomID string, participants []ParticipantInfo) *Envelope {
	return &Envelope{
		Type:         TypeRoomInfo,
		RoomID:       roomID,
		Participants: participants,
		Timestamp:    timestamp(),
	}
}

// NewTranslation wraps a sender's caption with their identity and a server timestamp
func NewTranslation(userID string, payload TranslationPayload) *Envelope {
	showOriginal := payload.ShowOriginal
	return &Envelope{
		Type:           TypeTranslation,
		UserID:         userID,
		Original:       payload.Original,
		Translated:     payload.Translated,
		SourceLanguage: payload.SourceLanguage,
		TargetLanguage: payload.TargetLanguage,
		ShowOriginal:   &showOriginal,
		Timestamp:      timestamp(),
	}
}

// NewSettingsUpdated carries only the partial settings update, not the merged document
func NewSettingsUpdated(userID string, partial Settings) *Envelope {
	return &Envelope{
		Type:      TypeSettingsUpdated,
		UserID:    userID,
		Settings:  partial,
		Timestamp: timestamp(),
	}
}

// NewPong replies to a client ping
func NewPong() *Envelope {
	return &Envelope{Type: TypePong}
}

// NewError reports a protocol error back to the offending sender
func NewError(message string) *Envelope {
	return &Envelope{Type: TypeError, Message: message}
}
