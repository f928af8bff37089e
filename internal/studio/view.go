package studio

import (
	"github.com/dgnsrekt/ttstudio/internal/audio"
	"github.com/dgnsrekt/ttstudio/internal/preset"
	"github.com/dgnsrekt/ttstudio/internal/voice"
)

// Level grades a notification or counter state.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Op names a busy-able operation.
type Op int

const (
	OpVoices Op = iota
	OpSynthesize
	OpPresets
)

func (o Op) String() string {
	switch o {
	case OpVoices:
		return "voices"
	case OpSynthesize:
		return "synthesize"
	case OpPresets:
		return "presets"
	default:
		return "unknown"
	}
}

// VoiceState is the state of the voice list indicator.
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceLoading
	VoiceReady
	VoiceError
)

// Controls are the editable values of a page.
type Controls struct {
	APIKey string
	Region string

	Voice  string
	Style  string
	Rate   int
	Pitch  int
	Volume int
	Format string
	Text   string
}

// View renders a studio page. Implementations must not call back into the
// controller from these methods.
type View interface {
	audio.TransportView

	SetControls(c Controls)

	// RenderVoices shows groups with selected marked. hidden counts the
	// voices in collapsed groups.
	RenderVoices(groups []voice.Group, selected string, hidden int, enabled bool)
	RenderStyles(styles []string, selected string, enabled bool)
	SetVoiceStatus(state VoiceState, msg string)

	SetBusy(op Op, busy bool)
	Notify(level Level, title, msg string)

	// SetCharCount shows n of limit characters; limit 0 means unlimited.
	SetCharCount(n, limit int, level Level)

	RenderPresets(presets []preset.Summary, enabled bool)
}
