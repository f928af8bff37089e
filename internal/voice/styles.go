package voice

import "slices"

// DefaultStyle is always offered and selected when nothing else applies.
const DefaultStyle = "general"

var styleTable = map[string][]string{
	"zh-CN": {
		"general", "chat", "customerservice", "newscast", "assistant",
		"lyrical", "angry", "calm", "cheerful", "disgruntled", "fearful",
		"gentle", "sad", "serious", "affectionate", "embarrassed", "friendly",
	},
	"en-US": {
		"general", "chat", "customerservice", "newscast", "assistant",
		"narration-professional", "newscast-casual", "angry", "cheerful",
		"excited", "friendly", "hopeful", "sad", "shouting", "terrified",
		"unfriendly", "whispering",
	},
}

// StylesFor returns the styles offered for locale with general first.
func StylesFor(locale string) []string {
	styles, ok := styleTable[locale]
	if !ok {
		return []string{DefaultStyle}
	}
	return slices.Clone(styles)
}

// ResolveStyle returns the style to select after voice selected is chosen.
// The persisted style survives only if it was saved with the same voice and
// is offered for it.
func ResolveStyle(saved, savedVoice, selected string, styles []string) string {
	if saved != "" && savedVoice == selected && slices.Contains(styles, saved) {
		return saved
	}
	return DefaultStyle
}
