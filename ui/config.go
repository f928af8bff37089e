package ui

import (
	"time"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// Config contains TUI-specific configuration.
type Config struct {
	Provider ttypes.ProviderKind

	GlamourStyle string `env:"GLAMOUR_STYLE"`
	EnableMouse  bool

	// DownloadDir receives downloaded clips.
	DownloadDir string `env:"TTSTUDIO_DOWNLOAD_DIR" envDefault:"."`

	// TextFile, when set, is loaded into the text box and reloaded on change.
	TextFile string

	// TickInterval paces progress updates while playing.
	TickInterval time.Duration `env:"TTSTUDIO_TICK" envDefault:"250ms"`

	// SeekStep is how far left/right jump, in seconds.
	SeekStep float64 `env:"TTSTUDIO_SEEK_STEP" envDefault:"5"`
}
