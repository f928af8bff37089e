// Package ui provides the terminal studio for ttstudio.
package ui

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/audio"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
)

const (
	statusMessageTimeout = 4 * time.Second
	ellipsis             = "…"
	sliderStep           = 5
)

// NewProgram returns the studio program and the controller behind it. The
// caller closes the controller once the program has exited.
func NewProgram(cfg Config, deps studio.Deps) (*tea.Program, *studio.Controller) {
	log.Debug("Starting studio", "provider", cfg.Provider, "mouse", cfg.EnableMouse)

	b := newBridge()
	ctrl := studio.New(b, deps)
	m := newModel(cfg, ctrl, b)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(m, opts...), ctrl
}

// focus is the control receiving keys.
type focus int

const (
	focusControls focus = iota
	focusText
	focusVoices
	focusStyles
	focusRegions
	focusPresets
	focusAPIKey
	focusPresetName
	focusHelp
)

func (f focus) String() string {
	return [...]string{
		"controls", "text", "voices", "styles", "regions",
		"presets", "api key", "preset name", "help",
	}[f]
}

type (
	tickMsg          struct{}
	statusTimeoutMsg int
	textFileMsg      struct {
		text string
		err  error
	}
	reloadMsg struct{}
)

type model struct {
	cfg     Config
	ctrl    *studio.Controller
	view    *bridge
	profile studio.Profile
	keys    keyMap

	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int
	focus  focus
	snap   snapshot

	text       textarea.Model
	apiKey     textinput.Model
	presetName textinput.Model
	voices     picker
	styles     picker
	regions    picker
	presets    picker
	spinner    spinner.Model
	progress   progress.Model
	help       help.Model
	pager      pagerModel

	status    notice
	hasStatus bool
	statusSeq int

	watcher *fsnotify.Watcher
}

func newModel(cfg Config, ctrl *studio.Controller, b *bridge) model {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 250 * time.Millisecond
	}
	if cfg.SeekStep <= 0 {
		cfg.SeekStep = 5
	}

	// Settings are local and cheap; load them before the first frame so the
	// text box starts with the saved text.
	ctrl.LoadSettings()

	ta := textarea.New()
	ta.Placeholder = "Type or paste the text to synthesize..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetValue(ctrl.Controls().Text)
	ta.Blur()

	apiKey := textinput.New()
	apiKey.Prompt = "API key: "
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'
	apiKey.Placeholder = "Ocp-Apim-Subscription-Key"

	name := textinput.New()
	name.Prompt = "Preset name: "
	name.CharLimit = 64

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(fuchsia)))

	ctx, cancel := context.WithCancel(context.Background())
	m := model{
		cfg:        cfg,
		ctrl:       ctrl,
		view:       b,
		profile:    ctrl.Profile(),
		keys:       newKeyMap(),
		ctx:        ctx,
		cancel:     cancel,
		text:       ta,
		apiKey:     apiKey,
		presetName: name,
		voices:     newPicker("Voices", true),
		styles:     newPicker("Speaking style", false),
		regions:    newPicker("Region", false),
		presets:    newPicker("Presets", false),
		spinner:    sp,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:       help.New(),
		pager:      newPagerModel(cfg.GlamourStyle),
		snap:       b.snapshot(),
	}

	if cfg.TextFile != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Error("error creating fsnotify watcher", "error", err)
		} else {
			m.watcher = w
		}
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.view.wait(),
		m.spinner.Tick,
		m.tick(),
		m.run(func(ctx context.Context) { m.ctrl.Start(ctx) }),
	}
	if m.cfg.TextFile != "" {
		cmds = append(cmds, readTextFile(m.cfg.TextFile))
		if m.watcher != nil {
			cmds = append(cmds, m.watchFile)
		}
	}
	return tea.Batch(cmds...)
}

// run executes a blocking controller call off the UI goroutine.
func (m model) run(fn func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return nil
	}
}

func (m model) tick() tea.Cmd {
	ctrl := m.ctrl
	return tea.Tick(m.cfg.TickInterval, func(time.Time) tea.Msg {
		ctrl.UpdateProgress()
		return tickMsg{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.setSize()
		if m.focus == focusHelp {
			return m, m.pager.render(m.width)
		}
		return m, nil

	case viewChangedMsg:
		m.snap = m.view.snapshot()
		m.refreshPickers()
		cmds = append(cmds, m.view.wait())
		if n := m.view.takeNotices(); len(n) > 0 {
			cmds = append(cmds, m.showStatus(n[len(n)-1]))
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		return m, m.tick()

	case statusTimeoutMsg:
		if int(msg) == m.statusSeq {
			m.hasStatus = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case textFileMsg:
		if msg.err != nil {
			log.Error("unable to read text file", "file", m.cfg.TextFile, "error", msg.err)
			return m, m.showStatus(notice{studio.LevelError, "Text file not loaded", msg.err.Error()})
		}
		m.text.SetValue(msg.text)
		m.ctrl.SetText(msg.text)
		return m, nil

	case reloadMsg:
		return m, tea.Batch(readTextFile(m.cfg.TextFile), m.watchFile)

	case tea.MouseMsg:
		if m.focus == focusHelp {
			var cmd tea.Cmd
			m.pager, cmd = m.pager.update(msg)
			return m, cmd
		}
		if x, left, width, ok := m.seekFromMouse(msg); ok {
			ctrl := m.ctrl
			return m, m.run(func(context.Context) { ctrl.Seek(x, left, width) })
		}
		return m, nil

	case helpRenderedMsg:
		var cmd tea.Cmd
		m.pager, cmd = m.pager.update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		return m.handleKey(msg)
	}

	// Cursor blinks and other component messages go to whatever has focus.
	var cmd tea.Cmd
	switch m.focus {
	case focusText:
		m.text, cmd = m.text.Update(msg)
	case focusAPIKey:
		m.apiKey, cmd = m.apiKey.Update(msg)
	case focusPresetName:
		m.presetName, cmd = m.presetName.Update(msg)
	case focusVoices:
		m.voices.filter, cmd = m.voices.filter.Update(msg)
	case focusHelp:
		m.pager, cmd = m.pager.update(msg)
	}
	return m, cmd
}

func (m *model) quit() tea.Cmd {
	m.cancel()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	return tea.Quit
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusText:
		return m.updateText(msg)
	case focusVoices, focusStyles, focusRegions, focusPresets:
		return m.updatePicker(msg)
	case focusAPIKey:
		return m.updateAPIKey(msg)
	case focusPresetName:
		return m.updatePresetName(msg)
	case focusHelp:
		if msg.String() == "esc" || key.Matches(msg, m.keys.Help) || msg.String() == "q" {
			m.focus = focusControls
			return m, nil
		}
		var cmd tea.Cmd
		m.pager, cmd = m.pager.update(msg)
		return m, cmd
	}
	return m.updateControls(msg)
}

func (m model) updateControls(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	ctrl := m.ctrl
	ctl := m.ctrl.Controls()

	switch {
	case key.Matches(msg, k.Quit):
		return m, m.quit()

	case key.Matches(msg, k.Edit):
		m.focus = focusText
		return m, m.text.Focus()

	case key.Matches(msg, k.Generate):
		return m, m.run(ctrl.Generate)

	case key.Matches(msg, k.Play):
		return m, m.run(func(context.Context) { ctrl.TogglePlay() })

	case key.Matches(msg, k.SeekBack):
		step := m.cfg.SeekStep
		return m, m.run(func(context.Context) { ctrl.SeekBy(-step) })

	case key.Matches(msg, k.SeekFwd):
		step := m.cfg.SeekStep
		return m, m.run(func(context.Context) { ctrl.SeekBy(step) })

	case key.Matches(msg, k.Speed):
		i := int(msg.String()[0] - '1')
		if i >= 0 && i < len(audio.SpeedSteps) {
			rate := audio.SpeedSteps[i]
			return m, m.run(func(context.Context) { ctrl.SetPlaybackSpeed(rate) })
		}

	case key.Matches(msg, k.Voices):
		m.voices.filter.SetValue("")
		m.refreshPickers()
		m.focus = focusVoices
		return m, m.voices.filter.Focus()

	case key.Matches(msg, k.Others):
		ctrl.ToggleOtherLanguages()

	case key.Matches(msg, k.Reload):
		return m, m.run(ctrl.LoadVoices)

	case key.Matches(msg, k.Style):
		if m.profile.Styles && m.snap.stylesOn {
			m.focus = focusStyles
		}

	case key.Matches(msg, k.Region):
		if m.profile.HasRegion() {
			m.regions.setItems(stringItems(m.profile.Regions), ctl.Region)
			m.focus = focusRegions
		}

	case key.Matches(msg, k.APIKey):
		if m.profile.Kind == ttypes.ProviderAzure {
			m.apiKey.SetValue(ctl.APIKey)
			m.focus = focusAPIKey
			return m, m.apiKey.Focus()
		}

	case key.Matches(msg, k.RateDown):
		ctrl.SetRate(ctl.Rate - sliderStep)
	case key.Matches(msg, k.RateUp):
		ctrl.SetRate(ctl.Rate + sliderStep)
	case key.Matches(msg, k.PitchDown):
		ctrl.SetPitch(ctl.Pitch - sliderStep)
	case key.Matches(msg, k.PitchUp):
		ctrl.SetPitch(ctl.Pitch + sliderStep)
	case key.Matches(msg, k.VolDown):
		ctrl.SetVolume(ctl.Volume - sliderStep)
	case key.Matches(msg, k.VolUp):
		ctrl.SetVolume(ctl.Volume + sliderStep)

	case key.Matches(msg, k.Format):
		formats := m.profile.Formats
		if len(formats) > 1 {
			i := slices.Index(formats, ctl.Format)
			_ = ctrl.SetFormat(formats[(i+1)%len(formats)])
		}

	case key.Matches(msg, k.Presets):
		m.focus = focusPresets
		return m, m.run(ctrl.RefreshPresets)

	case key.Matches(msg, k.Download):
		dir := m.downloadDir()
		return m, m.run(func(ctx context.Context) { _, _ = ctrl.Download(ctx, dir) })

	case key.Matches(msg, k.Copy):
		url := ctrl.AudioURL()
		if url == "" {
			return m, m.showStatus(notice{studio.LevelWarning, "Nothing to copy", "Generate some audio first."})
		}
		if err := clipboard.WriteAll(url); err != nil {
			return m, m.showStatus(notice{studio.LevelError, "Copy failed", err.Error()})
		}
		return m, m.showStatus(notice{studio.LevelSuccess, "Copied", url})

	case key.Matches(msg, k.Clear):
		m.text.Reset()
		ctrl.ClearText()

	case key.Matches(msg, k.Reset):
		m.text.Reset()
		ctrl.Reset()

	case key.Matches(msg, k.Help):
		m.focus = focusHelp
		return m, m.pager.render(m.width)
	}

	return m, nil
}

func (m model) updateText(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.text.Blur()
		m.focus = focusControls
		return m, nil
	case "ctrl+g":
		return m, m.run(m.ctrl.Generate)
	}

	before := m.text.Value()
	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	if after := m.text.Value(); after != before {
		m.ctrl.SetText(after)
	}
	return m, cmd
}

func (m *model) activePicker() *picker {
	switch m.focus {
	case focusStyles:
		return &m.styles
	case focusRegions:
		return &m.regions
	case focusPresets:
		return &m.presets
	default:
		return &m.voices
	}
}

func (m model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.activePicker()

	switch msg.String() {
	case "esc":
		p.filter.Blur()
		m.focus = focusControls
		return m, nil
	case "up", "ctrl+p":
		p.move(-1)
		return m, nil
	case "down", "ctrl+n":
		p.move(1)
		return m, nil
	case "pgup":
		p.move(-p.height)
		return m, nil
	case "pgdown":
		p.move(p.height)
		return m, nil
	case "enter":
		return m.choose()
	}

	if m.focus == focusPresets {
		return m.updatePresetKeys(msg)
	}
	if m.focus == focusVoices {
		if msg.String() == "tab" {
			m.ctrl.ToggleOtherLanguages()
			return m, nil
		}
		before := p.filter.Value()
		var cmd tea.Cmd
		p.filter, cmd = p.filter.Update(msg)
		if p.filter.Value() != before {
			m.refreshPickers()
		}
		return m, cmd
	}
	switch msg.String() {
	case "k":
		p.move(-1)
	case "j":
		p.move(1)
	}
	return m, nil
}

func (m model) updatePresetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	switch msg.String() {
	case "k":
		m.presets.move(-1)
	case "j":
		m.presets.move(1)
	case "n":
		m.presetName.SetValue("")
		m.focus = focusPresetName
		return m, m.presetName.Focus()
	case "D", "delete":
		if it, ok := m.presets.current(); ok {
			name := it.id
			return m, m.run(func(ctx context.Context) { _ = ctrl.DeletePreset(ctx, name) })
		}
	case "r":
		return m, m.run(ctrl.RefreshPresets)
	}
	return m, nil
}

func (m model) choose() (tea.Model, tea.Cmd) {
	focused := m.focus
	p := m.activePicker()
	p.filter.Blur()
	m.focus = focusControls

	it, ok := p.current()
	if !ok {
		return m, nil
	}

	ctrl := m.ctrl
	var err error
	switch focused {
	case focusVoices:
		err = ctrl.SelectVoice(it.id)
	case focusStyles:
		err = ctrl.SelectStyle(it.id)
	case focusRegions:
		err = ctrl.SetRegion(it.id)
	case focusPresets:
		name := it.id
		return m, m.run(func(ctx context.Context) { _ = ctrl.LoadPreset(ctx, name) })
	}
	if err != nil {
		return m, m.showStatus(notice{studio.LevelWarning, "Not applied", ttypes.MessageOf(err)})
	}
	return m, nil
}

func (m model) updateAPIKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.apiKey.Blur()
		m.focus = focusControls
		return m, nil
	case "enter":
		m.apiKey.Blur()
		m.focus = focusControls
		m.ctrl.SetAPIKey(m.apiKey.Value())
		if strings.TrimSpace(m.apiKey.Value()) == "" {
			return m, nil
		}
		return m, m.run(m.ctrl.LoadVoices)
	}
	var cmd tea.Cmd
	m.apiKey, cmd = m.apiKey.Update(msg)
	return m, cmd
}

func (m model) updatePresetName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.presetName.Blur()
		m.focus = focusPresets
		return m, nil
	case "enter":
		m.presetName.Blur()
		m.focus = focusPresets
		name := m.presetName.Value()
		ctrl := m.ctrl
		return m, m.run(func(ctx context.Context) { _ = ctrl.SavePreset(ctx, name) })
	}
	var cmd tea.Cmd
	m.presetName, cmd = m.presetName.Update(msg)
	return m, cmd
}

// refreshPickers rebuilds the lists from the latest snapshot.
func (m *model) refreshPickers() {
	s := m.snap
	m.voices.setItems(voiceItems(s.groups, s.hidden, m.voices.query()), s.selected)
	m.styles.setItems(stringItems(s.styles), s.style)

	items := make([]pickItem, len(s.presets))
	for i, p := range s.presets {
		label := p.Name + "  " + dimStyle(p.Voice)
		if p.Style != "" {
			label += dimStyle(" · " + p.Style)
		}
		items[i] = pickItem{id: p.Name, label: label}
	}
	cur := ""
	if it, ok := m.presets.current(); ok {
		cur = it.id
	}
	m.presets.setItems(items, cur)
}

func (m *model) showStatus(n notice) tea.Cmd {
	log.Debug("Notice", "level", n.level, "title", n.title, "message", n.msg)
	m.status = n
	m.hasStatus = true
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg(seq)
	})
}

func (m *model) setSize() {
	w := max(20, m.width-4)
	m.text.SetWidth(w)
	m.text.SetHeight(max(3, m.height-16))
	m.apiKey.Width = w - len(m.apiKey.Prompt)
	m.presetName.Width = w - len(m.presetName.Prompt)
	m.progress.Width = max(10, m.width-48)
	m.help.Width = m.width

	listHeight := max(3, m.height-12)
	for _, p := range []*picker{&m.voices, &m.styles, &m.regions, &m.presets} {
		p.height = listHeight
		p.scroll()
	}
	m.pager.setSize(m.width, m.height-statusBarHeight)
}

func (m model) downloadDir() string {
	dir := m.cfg.DownloadDir
	if dir == "" {
		dir = "."
	}
	if expanded, err := homedir.Expand(dir); err == nil {
		dir = expanded
	}
	return dir
}

func readTextFile(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return textFileMsg{err: fmt.Errorf("unable to read %s: %w", path, err)}
		}
		return textFileMsg{text: string(data)}
	}
}
