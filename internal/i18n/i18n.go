package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Language represents a supported language
type Language string

const (
	// Japanese language
	LanguageJapanese Language = "ja"
	// English language
	LanguageEnglish Language = "en"
)

//go:embed locales/*.json
var locales embed.FS

// Translator manages translations for the application
type Translator struct {
	currentLanguage Language
	translations    map[Language]map[string]string
	mu              sync.RWMutex
}

// NewTranslator creates an empty translator
func NewTranslator(language Language) *Translator {
	return &Translator{
		currentLanguage: language,
		translations:    make(map[Language]map[string]string),
	}
}

// New creates a translator loaded with the bundled translations
func New(language Language) (*Translator, error) {
	t := NewTranslator(language)
	for _, lang := range GetSupportedLanguages() {
		data, err := locales.ReadFile("locales/" + string(lang) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read bundled %s translations: %w", lang, err)
		}
		if err := t.LoadTranslations(lang, data); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadTranslations loads translations from JSON data
func (t *Translator) LoadTranslations(language Language, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var translations map[string]string
	if err := json.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to unmarshal translations: %w", err)
	}

	t.translations[language] = translations
	return nil
}

// SetLanguage sets the current language. Unsupported values are ignored.
func (t *Translator) SetLanguage(language Language) {
	if !ValidateLanguage(string(language)) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentLanguage = language
}

// GetLanguage returns the current language
func (t *Translator) GetLanguage() Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentLanguage
}

// Translate translates a key in the current language
func (t *Translator) Translate(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if translations, ok := t.translations[t.currentLanguage]; ok {
		if text, ok := translations[key]; ok {
			return text
		}
	}

	// Fallback to English if translation not found
	if t.currentLanguage != LanguageEnglish {
		if translations, ok := t.translations[LanguageEnglish]; ok {
			if text, ok := translations[key]; ok {
				return text
			}
		}
	}

	// Return key itself if no translation found
	return key
}

// TranslateWithFormat translates a key and substitutes {name} placeholders
func (t *Translator) TranslateWithFormat(key string, params map[string]string) string {
	text := t.Translate(key)

	for param, value := range params {
		text = strings.ReplaceAll(text, "{"+param+"}", value)
	}

	return text
}

// GetAllTranslations returns all translations for the current language
func (t *Translator) GetAllTranslations() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]string)
	if translations, ok := t.translations[t.currentLanguage]; ok {
		for k, v := range translations {
			result[k] = v
		}
	}
	return result
}

// HasTranslation checks if a translation key exists
func (t *Translator) HasTranslation(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if translations, ok := t.translations[t.currentLanguage]; ok {
		_, ok := translations[key]
		return ok
	}

	return false
}

// ValidateLanguage validates that a language is supported
func ValidateLanguage(language string) bool {
	return language == string(LanguageJapanese) || language == string(LanguageEnglish)
}

// DetectSystemLanguage reads the POSIX locale variables and returns
// Japanese for ja_* locales, English otherwise
func DetectSystemLanguage() Language {
	return languageFromLocale(firstNonEmpty(os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")))
}

func languageFromLocale(locale string) Language {
	if strings.HasPrefix(strings.ToLower(locale), "ja") {
		return LanguageJapanese
	}
	return LanguageEnglish
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSupportedLanguages returns a list of supported languages
func GetSupportedLanguages() []Language {
	return []Language{LanguageJapanese, LanguageEnglish}
}
