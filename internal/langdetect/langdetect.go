// Package langdetect tags transcripts with an ISO 639-1 language code when
// the STT session ran without a language hint.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// languages covers the dictation targets offered in settings.
var languages = []lingua.Language{
	lingua.English,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Arabic,
	lingua.Hindi,
	lingua.Thai,
	lingua.Vietnamese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Turkish,
	lingua.Polish,
	lingua.Ukrainian,
	lingua.Indonesian,
	lingua.Malay,
}

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

// Detect returns the lowercase ISO 639-1 code of text, or "" when the
// language cannot be determined reliably.
func Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// Building the detector loads language models; defer it to first use.
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithLowAccuracyMode().
			Build()
	})

	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// Resolve returns the configured language unless it is empty or "multi",
// in which case the language is detected from text.
func Resolve(configured, text string) string {
	if configured != "" && configured != "multi" {
		return configured
	}
	return Detect(text)
}
