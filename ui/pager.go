package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
)

const (
	statusBarHeight = 1
	maxHelpWidth    = 100
)

type helpRenderedMsg string

// pagerModel shows the rendered help document.
type pagerModel struct {
	viewport viewport.Model
	style    string
}

func newPagerModel(style string) pagerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0
	return pagerModel{viewport: vp, style: style}
}

func (m *pagerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = max(0, h)
}

func (m pagerModel) update(msg tea.Msg) (pagerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "home", "g":
			m.viewport.GotoTop()
			return m, nil
		case "end", "G":
			m.viewport.GotoBottom()
			return m, nil
		case "d":
			m.viewport.HalfViewDown()
			return m, nil
		case "u":
			m.viewport.HalfViewUp()
			return m, nil
		}
	case helpRenderedMsg:
		m.viewport.SetContent(string(msg))
		m.viewport.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	return m.viewport.View()
}

// render builds the help document off the UI goroutine.
func (m pagerModel) render(width int) tea.Cmd {
	style := m.style
	return func() tea.Msg {
		out, err := glamourRender(helpMarkdown, style, width)
		if err != nil {
			log.Error("error rendering with Glamour", "error", err)
			return helpRenderedMsg(helpMarkdown)
		}
		return helpRenderedMsg(out)
	}
}

func glamourRender(markdown, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamourStyle(style),
		glamour.WithWordWrap(max(0, min(maxHelpWidth, width-2))),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return out, nil
}

// glamourStyle maps a style name or path to a renderer option. "auto"
// follows the terminal background.
func glamourStyle(style string) glamour.TermRendererOption {
	switch style {
	case "", "auto":
		if termenv.HasDarkBackground() {
			return glamour.WithStandardStyle("dark")
		}
		return glamour.WithStandardStyle("light")
	case "dark", "light", "notty", "pink", "dracula", "tokyo-night", "ascii":
		return glamour.WithStandardStyle(style)
	}
	return glamour.WithStylePath(style)
}

const helpMarkdown = `# ttstudio

Write text, pick a voice and generate speech.

## Text

| Key | Action |
| --- | --- |
| i / enter | edit the text |
| esc | leave the editor |
| ctrl+g | generate while editing |
| c | clear the text |
| x | reset every control except the API key and region |

## Voice

| Key | Action |
| --- | --- |
| v | choose a voice, type to filter |
| tab | show or hide other languages in the voice list |
| o | show or hide other languages |
| L | reload voices |
| s | speaking style (Azure) |
| e | region (Azure) |
| k | API key (Azure) |
| r / R | rate down / up |
| p / P | pitch down / up |
| u / U | volume down / up |
| f | cycle the output format |

## Playback

| Key | Action |
| --- | --- |
| g | generate speech |
| space | play or pause |
| ← / → | seek back / forward |
| 1 to 6 | playback speed 0.5x to 2x |
| d | download the current audio |
| y | copy the audio URL |

## Presets

| Key | Action |
| --- | --- |
| m | open presets |
| enter | apply the preset |
| n | save the current voice as a preset |
| D | delete the preset |
| r | refresh the list |

Press **?** or **esc** to close this help.
`

// statusBarView writes the bottom line: logo, note, then the help hint.
func (m model) statusBarView(b *strings.Builder) {
	logo := logoView()

	var note string
	style := statusBarNoteStyle
	if m.hasStatus {
		note = m.status.title
		if m.status.msg != "" {
			note += ": " + m.status.msg
		}
		switch m.status.level {
		case studio.LevelError:
			style = statusBarErrorStyle
		case studio.LevelWarning:
			style = statusBarWarnStyle
		default:
			style = statusBarMessageStyle
		}
	} else {
		note = m.snap.voiceMsg
		if m.snap.playErr != "" {
			note = "Playback: " + m.snap.playErr
		}
	}

	helpNote := statusBarHelpStyle(" ? Help ")
	if m.focus == focusHelp {
		helpNote = statusBarHelpStyle(" esc Close ")
	}

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = style(note)

	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s", logo, note, emptySpace, helpNote)
}

// helpBar is the short key list shown under the controls.
func (m model) helpBar() string {
	s := indent(m.help.View(m.keys), 1)
	if m.width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = l + strings.Repeat(" ", max(0, m.width-ansi.PrintableRuneWidth(l)))
	}
	return helpViewStyle(strings.Join(lines, "\n"))
}

// watchFile blocks until the text file changes on disk.
func (m model) watchFile() tea.Msg {
	path, err := filepath.Abs(m.cfg.TextFile)
	if err != nil {
		path = m.cfg.TextFile
	}
	dir := filepath.Dir(path)

	if err := m.watcher.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return nil
	}
	log.Debug("fsnotify watching dir", "dir", dir)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return reloadMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
