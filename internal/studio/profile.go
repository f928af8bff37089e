// Package studio holds the per-page controller of the TTS studio. It owns
// the control values of one provider page and coordinates the settings
// store, the voice catalog, the synthesis client, presets and playback.
// Rendering happens behind the View interface.
package studio

import (
	"slices"

	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/settings"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/internal/voice"
)

// Output formats.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// Range is an inclusive slider range.
type Range struct {
	Min, Max int
}

// Clamp limits v to the range.
func (r Range) Clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

// DefaultRegions are offered by the azure region selector.
var DefaultRegions = []string{
	"eastus", "eastus2", "westus", "westus2", "westus3", "centralus",
	"canadacentral", "brazilsouth", "northeurope", "westeurope", "uksouth",
	"francecentral", "germanywestcentral", "swedencentral", "switzerlandnorth",
	"eastasia", "southeastasia", "japaneast", "koreacentral", "centralindia",
	"australiaeast",
}

// Profile describes what differs between the provider pages.
type Profile struct {
	Kind       ttypes.ProviderKind
	StorageKey string

	// Preferred is the locale family listed first, e.g. "zh-".
	Preferred string
	GroupBy   voice.KeyFunc

	Rate, Pitch, Volume Range
	Formats             []string

	// Styles enables the speaking style selector.
	Styles bool

	Regions       []string
	DefaultRegion string

	// CollapseOthers hides non-preferred groups until toggled.
	CollapseOthers bool
}

// ProfileFor returns the page profile of kind.
func ProfileFor(kind ttypes.ProviderKind) Profile {
	if kind == ttypes.ProviderAzure {
		return Profile{
			Kind:          ttypes.ProviderAzure,
			StorageKey:    settings.AzureKey,
			Preferred:     voice.DefaultPreferred,
			GroupBy:       voice.ByLocale,
			Rate:          Range{-100, 200},
			Pitch:         Range{-100, 100},
			Volume:        Range{-100, 100},
			Formats:       []string{FormatMP3},
			Styles:        true,
			Regions:       slices.Clone(DefaultRegions),
			DefaultRegion: provider.DefaultRegion,
		}
	}
	return Profile{
		Kind:           ttypes.ProviderEdge,
		StorageKey:     settings.EdgeKey,
		Preferred:      voice.DefaultPreferred,
		GroupBy:        voice.ByLanguage,
		Rate:           Range{-100, 200},
		Pitch:          Range{-50, 50},
		Volume:         Range{-100, 100},
		Formats:        []string{FormatMP3, FormatWAV},
		CollapseOthers: true,
	}
}

// HasRegion reports whether the page selects an azure region.
func (p Profile) HasRegion() bool {
	return len(p.Regions) > 0
}

// DefaultFormat is the first offered format.
func (p Profile) DefaultFormat() string {
	if len(p.Formats) == 0 {
		return FormatMP3
	}
	return p.Formats[0]
}
