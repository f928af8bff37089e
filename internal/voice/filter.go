package voice

import "github.com/sahilm/fuzzy"

type voiceSource []Voice

func (s voiceSource) String(i int) string { return s[i].ID() + " " + OptionLabel(s[i]) }
func (s voiceSource) Len() int            { return len(s) }

// Filter returns the voices matching query, best match first. An empty
// query returns voices unchanged.
func Filter(voices []Voice, query string) []Voice {
	if query == "" {
		return voices
	}
	matches := fuzzy.FindFrom(query, voiceSource(voices))
	out := make([]Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}
