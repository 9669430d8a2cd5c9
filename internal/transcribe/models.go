package transcribe

import "encoding/json"

// Word is one recognized word with timing from the upstream service
type Word struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int    `json:"speaker,omitempty"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
}

// Alternative is one recognition hypothesis
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Channel carries the recognition hypotheses for one audio channel
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

// Metadata is the upstream event metadata we care about
type Metadata struct {
	RequestID  string  `json:"request_id,omitempty"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// LiveEvent is one recognition event from the upstream streaming service.
// Raw preserves the event exactly as received so it can be forwarded to the
// client without re-encoding losses.
type LiveEvent struct {
	Type        string    `json:"type,omitempty"`
	Channel     *Channel  `json:"channel,omitempty"`
	IsFinal     bool      `json:"is_final,omitempty"`
	SpeechFinal bool      `json:"speech_final,omitempty"`
	Start       float64   `json:"start,omitempty"`
	Duration    float64   `json:"duration,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Transcript returns the primary alternative's transcript, or "" when the
// event carries none (interim silence markers and control events).
func (e *LiveEvent) Transcript() string {
	if e.Channel == nil || len(e.Channel.Alternatives) == 0 {
		return ""
	}
	return e.Channel.Alternatives[0].Transcript
}

// LiveResult is the frame sent back to the client for each forwarded event.
// The detection fields stay null when the detection collaborator failed or
// was skipped for a blank transcript.
type LiveResult struct {
	Result              json.RawMessage `json:"result"`
	DetectedLanguage    *string         `json:"detected_language"`
	DetectionConfidence *float64        `json:"detection_confidence"`
}
