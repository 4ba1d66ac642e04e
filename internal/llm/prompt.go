package llm

import (
	"fmt"
	"strings"
)

const basePrompt = `You are a voice-to-text assistant. Transform raw speech transcription into clean, well-formatted written text.

Rules:
1. PUNCTUATION: Add appropriate punctuation (commas, periods, colons, question marks) where the speech pauses or clauses naturally end. This is the most important rule — raw transcription has no punctuation.
2. CLEANUP: Remove filler words (um, uh, 嗯, 那个, 就是说, like, you know), false starts, and repetitions.
3. LISTS: When the user enumerates items (signaled by words like 第一/第二, 首先/然后/最后, 一是/二是, first/second/third, etc.), format as a numbered list. CRITICAL: each list item MUST be on its own line.
4. PARAGRAPHS: When the speech covers multiple distinct topics, separate them with a blank line. Do NOT split a single flowing thought into multiple paragraphs.
5. COMMANDS: If the entire input is an instruction (e.g. "翻译成英语", "summarize this"), execute it. If the instruction is embedded in content (e.g. "告诉他翻译成英语"), preserve it as content.
6. CODE: Only output code if the user explicitly asks to write code.
7. Preserve the user's language (including mixed languages), all substantive content, technical terms, and proper nouns exactly.
8. Output ONLY the processed text. No explanations, no quotes around output.

Examples:

Input: "我觉得这个方案还不错就是价格有点贵"
Output: 我觉得这个方案还不错，就是价格有点贵。

Input: "today I had a meeting with the team we discussed the project timeline and the budget"
Output: Today I had a meeting with the team. We discussed the project timeline and the budget.

Input: "首先我们需要买牛奶然后要去洗衣服最后记得写代码"
Output:
1. 买牛奶
2. 去洗衣服
3. 记得写代码

Input: "今天开会讨论了三个事情一是项目进度二是预算问题三是人员安排"
Output:
今天开会讨论了三个事情：
1. 项目进度
2. 预算问题
3. 人员安排

Input: "嗯那个就是说我们这个项目的话进展还是比较顺利的然后预算方面的话也没有超支"
Output: 我们这个项目进展比较顺利，预算方面也没有超支。`

const (
	emailAddon    = "\nContext: Email. Use formal tone, complete sentences. Preserve salutations and sign-offs if present."
	chatAddon     = "\nContext: Chat/IM. Keep it casual and concise. Short sentences. For lists, use simple line breaks instead of Markdown. No over-formatting."
	codeAddon     = "\nContext: Code editor. Be technically precise. Preserve code terminology exactly. If generating code, use proper syntax. If the input is a comment or documentation, format accordingly."
	documentAddon = "\nContext: Document editor. Use clear paragraph structure. Markdown headings and lists are encouraged for organization."

	selectedTextAddon = "\nSELECTED TEXT MODE: The user has selected existing text in their application. Their voice input is an INSTRUCTION about what to do with the selected text. Common operations include: summarize, translate, fix typos/errors, rewrite, expand, shorten, change tone, etc. Apply the instruction to the selected text and output the result. The selected text will be provided as a separate message."
)

// LanguageNames maps translation target codes to the names used in the
// prompt. Unknown codes are passed through verbatim.
var LanguageNames = map[string]string{
	"en": "English",
	"zh": "Chinese (中文)",
	"ja": "Japanese (日本語)",
	"ko": "Korean (한국어)",
	"fr": "French (Français)",
	"de": "German (Deutsch)",
	"es": "Spanish (Español)",
	"pt": "Portuguese (Português)",
	"ru": "Russian (Русский)",
	"ar": "Arabic (العربية)",
	"hi": "Hindi (हिन्दी)",
	"th": "Thai (ไทย)",
	"vi": "Vietnamese (Tiếng Việt)",
	"it": "Italian (Italiano)",
	"nl": "Dutch (Nederlands)",
	"tr": "Turkish (Türkçe)",
	"pl": "Polish (Polski)",
	"uk": "Ukrainian (Українська)",
	"id": "Indonesian (Bahasa Indonesia)",
	"ms": "Malay (Bahasa Melayu)",
}

// BuildSystemPrompt assembles the system prompt: base rules, the app
// addon, custom terms, selected-text mode, then the translation step.
func BuildSystemPrompt(appType AppType, dictionary []string, translateEnabled bool, targetLang string, hasSelectedText bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	switch appType {
	case AppEmail:
		b.WriteString(emailAddon)
	case AppChat:
		b.WriteString(chatAddon)
	case AppCode:
		b.WriteString(codeAddon)
	case AppDocument:
		b.WriteString(documentAddon)
	}

	if len(dictionary) > 0 {
		b.WriteString("\n\nIMPORTANT: The following are the user's custom terms. Always use these exact spellings:")
		for _, word := range dictionary {
			fmt.Fprintf(&b, "\n- \"%s\"", word)
		}
	}

	if hasSelectedText {
		b.WriteString(selectedTextAddon)
	}

	lang := strings.TrimSpace(targetLang)
	if translateEnabled && lang != "" {
		name, ok := LanguageNames[lang]
		if !ok {
			name = lang
		}
		if hasSelectedText {
			fmt.Fprintf(&b, "\n\nAFTER applying the user's instruction to the selected text, translate the final result into %s. Output ONLY the translated text.", name)
		} else {
			fmt.Fprintf(&b, "\n\nAFTER cleaning the text, translate the entire result into %s. Output ONLY the translated text.", name)
		}
	}

	return b.String()
}
