package synth

import (
	"strings"

	"golang.org/x/text/language"
)

// Voice is one selectable voice of the engine.
type Voice struct {
	ID       string // e.g. "af_bella"
	Name     string // e.g. "Bella"
	Language string // BCP 47 tag, e.g. "en-US"
}

// Voice ID prefixes encode language and gender: "af_" is an American
// English female voice, "bm_" a British English male voice, and so on.
var voicePrefixLanguages = map[string]string{
	"af": "en-US",
	"am": "en-US",
	"bf": "en-GB",
	"bm": "en-GB",
	"ff": "fr-FR",
	"fm": "fr-FR",
	"ef": "es",
	"em": "es",
	"zf": "cmn",
	"zm": "cmn",
	"if": "it",
	"im": "it",
	"pf": "pt-BR",
	"pm": "pt-BR",
	"jf": "ja",
	"jm": "ja",
}

// LanguageForVoice maps a voice ID to its language tag. Unknown prefixes
// default to American English.
func LanguageForVoice(voiceID string) string {
	prefix, _, ok := strings.Cut(voiceID, "_")
	if !ok {
		return "en-US"
	}
	tag, ok := voicePrefixLanguages[strings.ToLower(prefix)]
	if !ok {
		return "en-US"
	}
	return tag
}

// VoiceName derives a display name from a voice ID ("af_bella" → "Bella").
func VoiceName(voiceID string) string {
	_, name, ok := strings.Cut(voiceID, "_")
	if !ok || name == "" {
		return voiceID
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// LanguageLabel returns a human-readable label for a language tag, for
// voice listings.
func LanguageLabel(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	switch parsed {
	case language.AmericanEnglish:
		return "English (US)"
	case language.BritishEnglish:
		return "English (UK)"
	}
	base, _ := parsed.Base()
	switch base.String() {
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	case "cmn", "zh":
		return "Chinese (Mandarin)"
	case "it":
		return "Italian"
	case "pt":
		return "Portuguese (Brazil)"
	case "ja":
		return "Japanese"
	default:
		return "Other"
	}
}
