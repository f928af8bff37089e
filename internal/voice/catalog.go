// Package voice organizes a provider's voice catalog for display: grouping
// by locale or language, picking the voice to select after a reload, the
// speaking styles a voice supports, and fuzzy filtering.
package voice

import (
	"sort"
	"strings"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultPreferred is the locale family listed first.
const DefaultPreferred = "zh-"

// Voice is re-exported for callers that only deal with catalogs.
type Voice = ttypes.Voice

// KeyFunc picks the grouping key of a voice.
type KeyFunc func(Voice) string

// ByLocale groups voices by their full locale ("en-US").
func ByLocale(v Voice) string { return v.Locale }

// ByLanguage groups voices by language only ("en").
func ByLanguage(v Voice) string { return v.Language() }

// Group is one labeled block of voices.
type Group struct {
	Key       string
	Label     string
	Preferred bool
	Voices    []Voice
}

// GroupVoices buckets voices with key. Groups whose key starts with the
// preferred prefix (or equals it without the trailing dash) come first; the
// rest are sorted alphabetically by key. Voices inside a group are sorted by
// label, then id.
func GroupVoices(voices []Voice, preferred string, key KeyFunc) []Group {
	if key == nil {
		key = ByLocale
	}

	index := make(map[string]int)
	var groups []Group
	for _, v := range voices {
		k := key(v)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{
				Key:       k,
				Label:     GroupLabel(k),
				Preferred: isPreferred(k, preferred),
			})
		}
		groups[i].Voices = append(groups[i].Voices, v)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Preferred != groups[j].Preferred {
			return groups[i].Preferred
		}
		return groups[i].Key < groups[j].Key
	})
	for _, g := range groups {
		sort.SliceStable(g.Voices, func(i, j int) bool {
			a, b := g.Voices[i], g.Voices[j]
			if a.Label() != b.Label() {
				return a.Label() < b.Label()
			}
			return a.ID() < b.ID()
		})
	}
	return groups
}

func isPreferred(key, preferred string) bool {
	if preferred == "" {
		return false
	}
	return strings.HasPrefix(key, preferred) || key == strings.TrimSuffix(preferred, "-")
}

// GroupLabel renders "Chinese (zh-CN)" for a locale or "English (EN)" for a
// bare language code. Unknown tags fall back to the key itself.
func GroupLabel(key string) string {
	tag, err := language.Parse(key)
	if err != nil {
		return key
	}
	base, _ := tag.Base()
	name := display.English.Languages().Name(base)
	if name == "" {
		return key
	}
	if !strings.Contains(key, "-") {
		return name + " (" + strings.ToUpper(key) + ")"
	}
	return name + " (" + key + ")"
}

// OptionLabel is the text shown for a single voice entry.
func OptionLabel(v Voice) string {
	if v.LocalName != "" {
		return v.LocalName + " (" + v.Gender + ")"
	}
	return v.Label() + " (" + v.Locale + ", " + v.Gender + ")"
}

// Flatten returns the voices of groups in display order.
func Flatten(groups []Group) []Voice {
	var out []Voice
	for _, g := range groups {
		out = append(out, g.Voices...)
	}
	return out
}

// Find returns the voice with id.
func Find(voices []Voice, id string) (Voice, bool) {
	for _, v := range voices {
		if v.ID() == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Source tells where a restored selection came from.
type Source int

const (
	SourceNone Source = iota
	SourcePending
	SourcePersisted
	SourceDefault
)

// Selection is the outcome of Restore.
type Selection struct {
	ID     string
	Source Source

	// Missing holds a requested voice that is not in the catalog.
	Missing string
}

// Restore decides which voice to select after a catalog load: the pending
// preset voice, then the persisted voice, then the first voice of the
// first (preferred) group. Requested ids absent from the catalog are
// reported in Missing.
func Restore(groups []Group, pending, persisted string) Selection {
	all := Flatten(groups)
	var sel Selection

	if pending != "" {
		if _, ok := Find(all, pending); ok {
			return Selection{ID: pending, Source: SourcePending}
		}
		sel.Missing = pending
	}
	if persisted != "" {
		if _, ok := Find(all, persisted); ok {
			sel.ID, sel.Source = persisted, SourcePersisted
			return sel
		}
		if sel.Missing == "" {
			sel.Missing = persisted
		}
	}
	if len(all) > 0 {
		sel.ID, sel.Source = all[0].ID(), SourceDefault
	}
	return sel
}
