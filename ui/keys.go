package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Edit      key.Binding
	Generate  key.Binding
	Play      key.Binding
	SeekBack  key.Binding
	SeekFwd   key.Binding
	Speed     key.Binding
	Voices    key.Binding
	Others    key.Binding
	Reload    key.Binding
	Style     key.Binding
	Region    key.Binding
	APIKey    key.Binding
	RateDown  key.Binding
	RateUp    key.Binding
	PitchDown key.Binding
	PitchUp   key.Binding
	VolDown   key.Binding
	VolUp     key.Binding
	Format    key.Binding
	Presets   key.Binding
	Download  key.Binding
	Copy      key.Binding
	Clear     key.Binding
	Reset     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Edit:      key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i", "edit text")),
		Generate:  key.NewBinding(key.WithKeys("g", "ctrl+g"), key.WithHelp("g", "generate")),
		Play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		SeekBack:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "back")),
		SeekFwd:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "forward")),
		Speed:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "speed")),
		Voices:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "voice")),
		Others:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "other languages")),
		Reload:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "load voices")),
		Style:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "style")),
		Region:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "region")),
		APIKey:    key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "api key")),
		RateDown:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r/R", "rate")),
		RateUp:    key.NewBinding(key.WithKeys("R")),
		PitchDown: key.NewBinding(key.WithKeys("p"), key.WithHelp("p/P", "pitch")),
		PitchUp:   key.NewBinding(key.WithKeys("P")),
		VolDown:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u/U", "volume")),
		VolUp:     key.NewBinding(key.WithKeys("U")),
		Format:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "format")),
		Presets:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "presets")),
		Download:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		Clear:     key.NewBinding(key.WithKeys("c", "ctrl+l"), key.WithHelp("c", "clear text")),
		Reset:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Generate, k.Play, k.Voices, k.Presets, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Edit, k.Generate, k.Clear, k.Reset},
		{k.Play, k.SeekBack, k.SeekFwd, k.Speed, k.Download, k.Copy},
		{k.Voices, k.Others, k.Reload, k.Style, k.Region, k.APIKey},
		{k.RateDown, k.PitchDown, k.VolDown, k.Format, k.Presets},
		{k.Help, k.Quit},
	}
}
