package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// MockService is a deterministic, offline stand-in for the real translation
// collaborator. Detection scores a few keyword sets; translation substitutes
// known phrases and tags everything else with the target language code.
type MockService struct {
	logger *logger.Logger
}

// NewMockService creates the offline translation service
func NewMockService(log *logger.Logger) *MockService {
	return &MockService{logger: log.Named("mock-translation")}
}

var detectionKeywords = map[string][]string{
	"es": {"hola", "gracias", "por favor", "buenos días", "adiós", "cómo", "estás", "amigo", "familia", "trabajo", "mucho", "pequeño"},
	"fr": {"bonjour", "merci", "s'il vous plaît", "au revoir", "comment", "allez-vous", "ami", "maison", "très", "beaucoup", "nouveau"},
	"de": {"hallo", "danke", "bitte", "guten", "morgen", "wiedersehen", "freund", "arbeit", "wasser", "sehr", "schön"},
	"it": {"ciao", "grazie", "per favore", "buongiorno", "arrivederci", "come", "stai", "amico", "lavoro", "molto", "bello"},
}

var mockPhrases = map[string]map[string]string{
	"es": {"hello": "hola", "how are you": "cómo estás", "good morning": "buenos días", "thank you": "gracias", "goodbye": "adiós"},
	"fr": {"hello": "bonjour", "how are you": "comment allez-vous", "good morning": "bonjour", "thank you": "merci", "goodbye": "au revoir"},
	"de": {"hello": "hallo", "how are you": "wie geht es dir", "good morning": "guten morgen", "thank you": "danke", "goodbye": "auf wiedersehen"},
	"it": {"hello": "ciao", "how are you": "come stai", "good morning": "buongiorno", "thank you": "grazie", "goodbye": "arrivederci"},
}

// DetectLanguage scores the text against per-language keyword sets
func (s *MockService) DetectLanguage(_ context.Context, text string) (*Detection, error) {
	lower := strings.ToLower(text)
	for lang, words := range detectionKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return &Detection{Language: lang, Confidence: 0.85}, nil
			}
		}
	}
	return &Detection{Language: "en", Confidence: 0.7}, nil
}

// Translate substitutes known phrases; anything unknown is passed through
// tagged with the target language code.
func (s *MockService) Translate(_ context.Context, text, sourceLang, targetLang string) (*Result, error) {
	source := sourceLang
	if source == "" {
		source = "en"
	}

	translated := text
	confidence := 0.95
	if phrases, ok := mockPhrases[targetLang]; ok {
		lower := strings.ToLower(text)
		replaced := false
		for original, t := range phrases {
			if strings.Contains(lower, original) {
				translated = strings.ReplaceAll(lower, original, t)
				replaced = true
			}
		}
		if !replaced {
			translated = fmt.Sprintf("[%s] %s", strings.ToUpper(targetLang), text)
			confidence = 0.7
		}
	} else {
		translated = fmt.Sprintf("[%s] %s", strings.ToUpper(targetLang), text)
		confidence = 0.5
	}

	return &Result{
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: targetLang,
		Confidence:     confidence,
	}, nil
}
