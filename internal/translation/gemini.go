package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// GeminiService implements language detection and text translation on top of
// the Gemini generateContent API.
type GeminiService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewGeminiService creates a Gemini-backed translation service
func NewGeminiService(ctx context.Context, cfg Config, log *logger.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiService{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log.Named("gemini-translation"),
	}, nil
}

// DetectLanguage identifies the language of the given text
func (s *GeminiService) DetectLanguage(ctx context.Context, text string) (*Detection, error) {
	prompt := fmt.Sprintf(
		"Identify the language of the following text. Respond with JSON only, "+
			`in the form {"language":"<ISO 639-1 code>","confidence":<0.0-1.0>}.`+
			"\n\nText: %s", text)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}
	if parsed.Language == "" {
		return nil, fmt.Errorf("detection response missing language: %s", raw)
	}

	return &Detection{
		Language:   strings.ToLower(parsed.Language),
		Confidence: parsed.Confidence,
	}, nil
}

// Translate translates text into the target language
func (s *GeminiService) Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error) {
	source := sourceLang
	if source == "" {
		source = "the source language (detect it)"
	}
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Respond with JSON only, "+
			`in the form {"translated_text":"...","source_language":"<ISO 639-1 code>","confidence":<0.0-1.0>}.`+
			"\n\nText: %s", source, targetLang, text)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TranslatedText string  `json:"translated_text"`
		SourceLanguage string  `json:"source_language"`
		Confidence     float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse translation response: %w", err)
	}

	result := &Result{
		TranslatedText: parsed.TranslatedText,
		SourceLanguage: strings.ToLower(parsed.SourceLanguage),
		TargetLanguage: targetLang,
		Confidence:     parsed.Confidence,
	}
	if result.SourceLanguage == "" {
		result.SourceLanguage = sourceLang
	}
	return result, nil
}

func (s *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}

	// Guard against fenced or prefixed output despite the JSON MIME type.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "", fmt.Errorf("gemini response does not contain JSON: %s", text)
	}
	return text[start : end+1], nil
}
