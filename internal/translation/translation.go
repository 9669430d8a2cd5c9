// Package translation provides the language-detection and text-translation
// collaborators. A Gemini-backed implementation is used when an API key is
// configured; otherwise a deterministic mock keeps the server functional for
// local development.
package translation

import (
	"context"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Detection is the result of identifying the language of a piece of text
type Detection struct {
	Language   string  `json:"detected_language"`
	Confidence float64 `json:"confidence"`
}

// IsReliable reports whether the detection confidence clears the reliability
// threshold used across the API surface.
func (d Detection) IsReliable() bool {
	return d.Confidence > 0.8
}

// Result is a completed text translation
type Result struct {
	TranslatedText string  `json:"translated_text"`
	SourceLanguage string  `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	Confidence     float64 `json:"confidence"`
}

// Detector identifies the language of a piece of text
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (*Detection, error)
}

// Translator translates text between languages. An empty sourceLang asks the
// service to infer it.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error)
}

// Service combines both collaborator roles
type Service interface {
	Detector
	Translator
}

// Config contains translation service settings
type Config struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// NewService picks the Gemini-backed implementation when an API key is
// configured and the mock otherwise.
func NewService(ctx context.Context, cfg Config, log *logger.Logger) (Service, error) {
	if cfg.APIKey == "" {
		log.Warn("No translation API key configured, using mock translation service")
		return NewMockService(log), nil
	}
	return NewGeminiService(ctx, cfg, log)
}

// Language describes one supported language
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages returns the languages the recognition and translation
// path supports end to end.
func SupportedLanguages() []Language {
	return []Language{
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Spanish"},
		{Code: "fr", Name: "French"},
		{Code: "de", Name: "German"},
		{Code: "it", Name: "Italian"},
		{Code: "pt", Name: "Portuguese"},
		{Code: "nl", Name: "Dutch"},
		{Code: "ru", Name: "Russian"},
		{Code: "zh", Name: "Chinese"},
		{Code: "ja", Name: "Japanese"},
		{Code: "ko", Name: "Korean"},
		{Code: "hi", Name: "Hindi"},
		{Code: "ar", Name: "Arabic"},
		{Code: "sv", Name: "Swedish"},
		{Code: "no", Name: "Norwegian"},
		{Code: "da", Name: "Danish"},
		{Code: "fi", Name: "Finnish"},
		{Code: "pl", Name: "Polish"},
		{Code: "tr", Name: "Turkish"},
		{Code: "he", Name: "Hebrew"},
		{Code: "th", Name: "Thai"},
		{Code: "vi", Name: "Vietnamese"},
		{Code: "id", Name: "Indonesian"},
		{Code: "ms", Name: "Malay"},
		{Code: "fa", Name: "Persian"},
	}
}
