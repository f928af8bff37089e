package ui

import (
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/ttstudio/internal/preset"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/voice"
)

type notice struct {
	level studio.Level
	title string
	msg   string
}

// snapshot is everything the controller has rendered so far.
type snapshot struct {
	controls studio.Controls

	groups   []voice.Group
	selected string
	hidden   int
	voicesOn bool

	styles   []string
	style    string
	stylesOn bool

	voiceState studio.VoiceState
	voiceMsg   string

	busy map[studio.Op]bool

	count      int
	limit      int
	countLevel studio.Level

	presets   []preset.Summary
	presetsOn bool

	playing     bool
	percent     float64
	elapsed     string
	total       string
	activeSpeed int
	download    string
	downloadOn  bool
	playErr     string
}

// bridge is the studio.View of the TUI. The controller writes into it from
// any goroutine; the Bubble Tea model reads a copy after each change signal.
type bridge struct {
	mu      sync.Mutex
	s       snapshot
	notices []notice

	changed chan struct{}
}

type viewChangedMsg struct{}

func newBridge() *bridge {
	return &bridge{
		s: snapshot{
			busy:        make(map[studio.Op]bool),
			elapsed:     "00:00",
			total:       "00:00",
			activeSpeed: -1,
		},
		changed: make(chan struct{}, 1),
	}
}

// wait blocks until the controller renders something.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		<-b.changed
		return viewChangedMsg{}
	}
}

func (b *bridge) snapshot() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.s
	s.busy = make(map[studio.Op]bool, len(b.s.busy))
	for k, v := range b.s.busy {
		s.busy[k] = v
	}
	s.groups = slices.Clone(b.s.groups)
	s.styles = slices.Clone(b.s.styles)
	s.presets = slices.Clone(b.s.presets)
	return s
}

func (b *bridge) takeNotices() []notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.notices
	b.notices = nil
	return n
}

func (b *bridge) set(fn func(*snapshot)) {
	b.mu.Lock()
	fn(&b.s)
	b.mu.Unlock()

	select {
	case b.changed <- struct{}{}:
	default:
	}
}

func (b *bridge) SetControls(c studio.Controls) {
	b.set(func(s *snapshot) { s.controls = c })
}

func (b *bridge) RenderVoices(groups []voice.Group, selected string, hidden int, enabled bool) {
	b.set(func(s *snapshot) {
		s.groups, s.selected, s.hidden, s.voicesOn = groups, selected, hidden, enabled
	})
}

func (b *bridge) RenderStyles(styles []string, selected string, enabled bool) {
	b.set(func(s *snapshot) { s.styles, s.style, s.stylesOn = styles, selected, enabled })
}

func (b *bridge) SetVoiceStatus(state studio.VoiceState, msg string) {
	b.set(func(s *snapshot) { s.voiceState, s.voiceMsg = state, msg })
}

func (b *bridge) SetBusy(op studio.Op, busy bool) {
	b.set(func(s *snapshot) { s.busy[op] = busy })
}

func (b *bridge) Notify(level studio.Level, title, msg string) {
	b.mu.Lock()
	b.notices = append(b.notices, notice{level, title, msg})
	b.mu.Unlock()
	b.set(func(*snapshot) {})
}

func (b *bridge) SetCharCount(n, limit int, level studio.Level) {
	b.set(func(s *snapshot) { s.count, s.limit, s.countLevel = n, limit, level })
}

func (b *bridge) RenderPresets(presets []preset.Summary, enabled bool) {
	b.set(func(s *snapshot) { s.presets, s.presetsOn = presets, enabled })
}

func (b *bridge) SetPlaying(playing bool) {
	b.set(func(s *snapshot) {
		s.playing = playing
		if playing {
			s.playErr = ""
		}
	})
}

func (b *bridge) SetProgress(percent float64) {
	b.set(func(s *snapshot) { s.percent = percent })
}

func (b *bridge) SetTimes(elapsed, total string) {
	b.set(func(s *snapshot) { s.elapsed, s.total = elapsed, total })
}

func (b *bridge) SetActiveSpeed(index int) {
	b.set(func(s *snapshot) { s.activeSpeed = index })
}

func (b *bridge) SetDownload(enabled bool, filename string) {
	b.set(func(s *snapshot) { s.downloadOn, s.download = enabled, filename })
}

func (b *bridge) ShowPlaybackError(err error) {
	b.set(func(s *snapshot) { s.playErr = err.Error() })
}
