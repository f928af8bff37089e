package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/ttstudio/internal/audio"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/internal/voice"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

// Rows below the body: transport, short help, status bar.
const footerHeight = 3

const labelWidth = 8

func (m model) View() string {
	if m.width == 0 {
		return ""
	}

	var body string
	switch m.focus {
	case focusHelp:
		body = m.pager.View()
	case focusVoices:
		body = m.voices.view(m.width, m.snap.selected)
	case focusStyles:
		body = m.styles.view(m.width, m.snap.style)
	case focusRegions:
		body = m.regions.view(m.width, m.snap.controls.Region)
	case focusPresets:
		body = m.presetsView()
	case focusPresetName:
		body = m.presetsView() + "\n\n" + m.presetName.View()
	default:
		body = m.controlsView() + "\n" + m.textView()
	}

	bodyHeight := max(0, m.height-footerHeight)
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.transportView())
	b.WriteString("\n")
	b.WriteString(m.helpBar())
	b.WriteString("\n")
	m.statusBarView(&b)
	return b.String()
}

func field(label, value string) string {
	pad := max(0, labelWidth-runewidth.StringWidth(label))
	return labelStyle(label+strings.Repeat(" ", pad)) + " " + value
}

func (m model) controlsView() string {
	s := m.snap
	c := s.controls
	p := m.profile

	var lines []string
	header := headerStyle(providerName(p.Kind))
	if s.busy[studio.OpVoices] {
		header += " " + m.spinner.View() + dimStyle(" loading voices")
	}
	lines = append(lines, header)

	if p.Kind == ttypes.ProviderAzure {
		key := dimStyle("not set (k)")
		if c.APIKey != "" {
			key = valueStyle(strings.Repeat("•", min(12, len(c.APIKey))))
		}
		lines = append(lines, field("API key", key))
		if m.focus == focusAPIKey {
			lines = append(lines, "  "+m.apiKey.View())
		}
		lines = append(lines, field("Region", valueStyle(c.Region)))
	}

	lines = append(lines, field("Voice", m.voiceLabel()))
	if p.Styles {
		style := valueStyle(c.Style)
		if !s.stylesOn {
			style = dimStyle(c.Style)
		}
		lines = append(lines, field("Style", style))
	}

	sliders := []string{
		slider("Rate", c.Rate, p.Rate, "%"),
		slider("Pitch", c.Pitch, p.Pitch, pitchUnit(p.Kind)),
		slider("Volume", c.Volume, p.Volume, "%"),
	}
	lines = append(lines, strings.Join(sliders, "   "))

	if len(p.Formats) > 1 {
		lines = append(lines, field("Format", valueStyle(c.Format)+dimStyle(" (f)")))
	}
	return strings.Join(lines, "\n")
}

func (m model) voiceLabel() string {
	s := m.snap
	switch s.voiceState {
	case studio.VoiceLoading:
		return dimStyle("loading...")
	case studio.VoiceError:
		return levelStyle(studio.LevelError)(s.voiceMsg)
	}
	if s.selected == "" {
		return dimStyle("none (v)")
	}
	if v, ok := voice.Find(voice.Flatten(s.groups), s.selected); ok {
		return valueStyle(voice.OptionLabel(v)) + dimStyle(" "+v.ID())
	}
	return valueStyle(s.selected)
}

func slider(label string, v int, r studio.Range, unit string) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return labelStyle(label) + " " + valueStyle(fmt.Sprintf("%s%d%s", sign, v, unit)) +
		dimStyle(fmt.Sprintf(" [%d,%d]", r.Min, r.Max))
}

func pitchUnit(kind ttypes.ProviderKind) string {
	if kind == ttypes.ProviderEdge {
		return "Hz"
	}
	return "%"
}

func providerName(kind ttypes.ProviderKind) string {
	if kind == ttypes.ProviderAzure {
		return "Azure Speech"
	}
	return "Edge TTS"
}

func (m model) textView() string {
	s := m.snap
	panel := panelStyle
	if m.focus == focusText {
		panel = focusedPanelStyle
	}
	w := max(10, m.width-2)

	counter := fmt.Sprintf("%d characters", s.count)
	if s.limit > 0 {
		counter = fmt.Sprintf("%d / %d", s.count, s.limit)
	}
	counter = levelStyle(s.countLevel)(counter)

	gen := dimStyle("g to generate")
	if s.busy[studio.OpSynthesize] {
		gen = m.spinner.View() + " generating"
	}
	if studio.IsSSML(s.controls.Text) && m.profile.Kind == ttypes.ProviderAzure {
		gen = dimStyle("SSML  ") + gen
	}

	pad := max(1, w-4-ansi.PrintableRuneWidth(counter)-ansi.PrintableRuneWidth(gen))
	return panel.Width(w).Render(m.text.View()) + "\n " + counter + strings.Repeat(" ", pad) + gen
}

func (m model) presetsView() string {
	s := m.snap
	if !s.presetsOn && len(s.presets) == 0 {
		return m.presets.view(m.width, "") + "\n" + dimStyle("  Presets unavailable")
	}
	hint := dimStyle("  enter apply · n save current · D delete · r refresh")
	if s.busy[studio.OpPresets] {
		hint = "  " + m.spinner.View() + dimStyle(" working")
	}
	return m.presets.view(m.width, "") + "\n\n" + hint
}

// transportPrefix is everything left of the progress bar.
func (m model) transportPrefix() string {
	icon := "▶"
	if m.snap.playing {
		icon = "⏸"
	}
	return " " + icon + " "
}

func (m model) transportView() string {
	s := m.snap
	prefix := m.transportPrefix()
	if !s.downloadOn {
		return prefix + dimStyle("no audio yet")
	}

	var speeds []string
	for i, rate := range audio.SpeedSteps {
		label := fmt.Sprintf("%gx", rate)
		if i == s.activeSpeed {
			speeds = append(speeds, activeStyle(label))
		} else {
			speeds = append(speeds, speedStyle(label))
		}
	}

	line := prefix +
		m.progress.ViewAs(s.percent/100) +
		" " + s.elapsed + " / " + s.total + " " +
		strings.Join(speeds, "")
	if s.download != "" {
		line += " " + dimStyle(s.download)
	}
	return truncate.StringWithTail(line, uint(max(0, m.width)), ellipsis) //nolint:gosec
}

// seekFromMouse maps a click on the progress bar to a seek.
func (m model) seekFromMouse(msg tea.MouseMsg) (float64, float64, float64, bool) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return 0, 0, 0, false
	}
	if !m.snap.downloadOn || msg.Y != m.height-footerHeight {
		return 0, 0, 0, false
	}
	left := float64(ansi.PrintableRuneWidth(m.transportPrefix()))
	width := float64(m.progress.Width)
	x := float64(msg.X)
	if x < left || x >= left+width {
		return 0, 0, 0, false
	}
	return x, left, width, true
}
