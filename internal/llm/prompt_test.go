package llm

import (
	"strings"
	"testing"
)

func TestBuildSystemPromptContents(t *testing.T) {
	tests := []struct {
		name       string
		appType    AppType
		dict       []string
		translate  bool
		target     string
		selected   bool
		contains   []string
		notContain []string
	}{
		{
			name:       "general without translation",
			appType:    AppGeneral,
			contains:   []string{"voice-to-text assistant"},
			notContain: []string{"AFTER cleaning"},
		},
		{
			name:       "translation disabled",
			appType:    AppGeneral,
			target:     "ja",
			notContain: []string{"translate the entire result into Japanese", "AFTER cleaning"},
		},
		{
			name:      "translation enabled",
			appType:   AppGeneral,
			translate: true,
			target:    "ja",
			contains:  []string{"translate the entire result into Japanese"},
		},
		{
			name:       "empty target",
			appType:    AppGeneral,
			translate:  true,
			notContain: []string{"AFTER cleaning"},
		},
		{
			name:       "whitespace target",
			appType:    AppGeneral,
			translate:  true,
			target:     "   ",
			notContain: []string{"AFTER cleaning"},
		},
		{
			name:      "unknown language passthrough",
			appType:   AppGeneral,
			translate: true,
			target:    "sv",
			contains:  []string{"translate the entire result into sv"},
		},
		{
			name:     "email",
			appType:  AppEmail,
			contains: []string{"formal tone"},
		},
		{
			name:     "dictionary",
			appType:  AppGeneral,
			dict:     []string{"OpenTypeless", "Tauri"},
			contains: []string{`"OpenTypeless"`, `"Tauri"`, "custom terms"},
		},
		{
			name:      "dictionary and translation",
			appType:   AppChat,
			dict:      []string{"API"},
			translate: true,
			target:    "zh",
			contains:  []string{"casual and concise", `"API"`, "translate the entire result into Chinese"},
		},
		{
			name:     "structure rules",
			appType:  AppGeneral,
			contains: []string{"LISTS", "numbered list", "own line", "COMMANDS", "翻译成英语", "CODE", "PARAGRAPHS", "blank line"},
		},
		{
			name:     "examples",
			appType:  AppGeneral,
			contains: []string{"Examples:", "首先我们需要买牛奶", "1. 买牛奶", "我觉得这个方案还不错"},
		},
		{
			name:     "multilingual and punctuation",
			appType:  AppGeneral,
			contains: []string{"mixed languages", "PUNCTUATION", "most important rule"},
		},
		{
			name:     "selected text mode",
			appType:  AppGeneral,
			selected: true,
			contains: []string{"SELECTED TEXT MODE", "fix typos"},
		},
		{
			name:       "no selected text mode",
			appType:    AppGeneral,
			notContain: []string{"SELECTED TEXT MODE"},
		},
		{
			name:     "chat avoids markdown",
			appType:  AppChat,
			contains: []string{"No over-formatting", "instead of Markdown"},
		},
		{
			name:     "document uses markdown",
			appType:  AppDocument,
			contains: []string{"Markdown headings"},
		},
		{
			name:     "code",
			appType:  AppCode,
			contains: []string{"Code editor", "technically precise"},
		},
		{
			name:       "translation wording without selection",
			appType:    AppGeneral,
			translate:  true,
			target:     "zh",
			contains:   []string{"AFTER cleaning the text"},
			notContain: []string{"applying the user's instruction"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildSystemPrompt(tt.appType, tt.dict, tt.translate, tt.target, tt.selected)
			for _, s := range tt.contains {
				if !strings.Contains(prompt, s) {
					t.Errorf("Expected prompt to contain %q", s)
				}
			}
			for _, s := range tt.notContain {
				if strings.Contains(prompt, s) {
					t.Errorf("Expected prompt not to contain %q", s)
				}
			}
		})
	}
}

func TestBuildSystemPromptAllLanguages(t *testing.T) {
	cases := map[string]string{
		"en": "English", "zh": "Chinese", "ja": "Japanese", "ko": "Korean",
		"fr": "French", "de": "German", "es": "Spanish", "pt": "Portuguese",
		"ru": "Russian", "ar": "Arabic", "hi": "Hindi", "th": "Thai",
		"vi": "Vietnamese", "it": "Italian", "nl": "Dutch", "tr": "Turkish",
		"pl": "Polish", "uk": "Ukrainian", "id": "Indonesian", "ms": "Malay",
	}
	if len(LanguageNames) != len(cases) {
		t.Errorf("Expected %d language names, got %d", len(cases), len(LanguageNames))
	}

	for code, name := range cases {
		prompt := BuildSystemPrompt(AppGeneral, nil, true, code, false)
		if !strings.Contains(prompt, "translate the entire result into "+name) {
			t.Errorf("Expected prompt to contain %q for code %q", name, code)
		}
	}
}

func TestBuildSystemPromptOrdering(t *testing.T) {
	prompt := BuildSystemPrompt(AppEmail, []string{"Kubernetes"}, true, "en", true)

	order := []string{
		"voice-to-text assistant",
		"Context: Email",
		`"Kubernetes"`,
		"SELECTED TEXT MODE",
		"AFTER applying the user's instruction to the selected text",
	}
	last := -1
	for _, s := range order {
		pos := strings.Index(prompt, s)
		if pos < 0 {
			t.Fatalf("Expected prompt to contain %q", s)
		}
		if pos <= last {
			t.Errorf("Expected %q after previous section", s)
		}
		last = pos
	}
	if !strings.HasSuffix(prompt, "into English. Output ONLY the translated text.") {
		t.Errorf("Expected translation instruction last")
	}
}

func TestBuildSystemPromptGeneralHasNoAddon(t *testing.T) {
	prompt := BuildSystemPrompt(AppGeneral, nil, false, "", false)
	if prompt != basePrompt {
		t.Error("Expected general prompt to equal the base prompt")
	}
	if strings.Contains(prompt, "Context:") {
		t.Error("Expected no context addon")
	}
}
