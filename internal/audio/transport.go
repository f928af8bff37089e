package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dustin/go-humanize"
)

// DefaultSpeed is the playback multiplier selected by default.
const DefaultSpeed = 1.0

// SpeedSteps are the speeds offered by the speed selector.
var SpeedSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// Media is a playable source with a position, duration and rate, modeled on
// a media element. Duration is NaN until the clip has been decoded.
type Media interface {
	Load(src string) error
	Play() error
	Pause()
	Paused() bool
	CurrentTime() float64
	SetCurrentTime(sec float64)
	Duration() float64
	PlaybackRate() float64
	SetPlaybackRate(rate float64)
}

// Notifier is a Media that reports state changes the transport cannot see
// by polling, such as a clip ending.
type Notifier interface {
	OnStateChange(fn func())
}

// TransportView renders the playback controls.
type TransportView interface {
	SetPlaying(playing bool)
	SetProgress(percent float64)
	SetTimes(elapsed, total string)
	// SetActiveSpeed marks SpeedSteps[index] active; -1 clears the mark.
	SetActiveSpeed(index int)
	SetDownload(enabled bool, filename string)
	ShowPlaybackError(err error)
}

// Transport is the playback controller. Every method is a no-op when it
// has no media.
type Transport struct {
	media   Media
	view    TransportView
	fetcher Fetcher

	url      string
	filename string
}

// NewTransport creates a transport. media and fetcher may be nil.
func NewTransport(media Media, view TransportView, fetcher Fetcher) *Transport {
	return &Transport{media: media, view: view, fetcher: fetcher}
}

// Media returns the controlled media.
func (t *Transport) Media() Media { return t.media }

// URL returns the loaded clip URL.
func (t *Transport) URL() string { return t.url }

// Filename returns the download name of the loaded clip.
func (t *Transport) Filename() string { return t.filename }

// LoadAudio replaces the source and arms the download control.
// Reachability is not checked here; a bad URL surfaces when playing.
func (t *Transport) LoadAudio(url, filename string) {
	if t.media == nil {
		return
	}
	if filename == "" {
		filename = "speech.mp3"
	}
	if err := t.media.Load(url); err != nil {
		t.view.ShowPlaybackError(err)
		return
	}
	t.url, t.filename = url, filename
	t.view.SetPlaying(false)
	t.view.SetDownload(true, filename)
	t.UpdateProgress()
}

// TogglePlay plays when paused and pauses when playing.
func (t *Transport) TogglePlay() {
	if t.media == nil {
		return
	}
	if !t.media.Paused() {
		t.media.Pause()
		t.view.SetPlaying(false)
		return
	}
	if err := t.media.Play(); err != nil {
		log.Warn("Playback failed", "url", t.url, "error", err)
		t.view.ShowPlaybackError(err)
		t.view.SetPlaying(false)
		return
	}
	t.view.SetPlaying(true)
}

// SetPlaybackSpeed applies rate and marks the speed step equal to it.
func (t *Transport) SetPlaybackSpeed(rate float64) {
	if t.media != nil {
		t.media.SetPlaybackRate(rate)
	}
	active := -1
	for i, s := range SpeedSteps {
		if s == rate {
			active = i
			break
		}
	}
	t.view.SetActiveSpeed(active)
}

// PlaybackRate returns the applied multiplier, 1 without media.
func (t *Transport) PlaybackRate() float64 {
	if t.media == nil {
		return DefaultSpeed
	}
	if r := t.media.PlaybackRate(); r > 0 {
		return r
	}
	return DefaultSpeed
}

// UpdateProgress renders position and duration. It is called on every
// time update, so it also picks up a clip that played to the end.
func (t *Transport) UpdateProgress() {
	if t.media == nil {
		return
	}
	t.view.SetPlaying(!t.media.Paused())
	cur, dur := t.media.CurrentTime(), t.media.Duration()
	t.view.SetProgress(Percent(cur, dur))
	t.view.SetTimes(FormatTime(cur), FormatTime(dur))
}

// Seek moves to the position under a click at x on a bar starting at left
// and width wide. The ratio is not clamped.
func (t *Transport) Seek(x, left, width float64) {
	t.SeekFraction((x - left) / width)
}

// SeekFraction moves to ratio times the duration.
func (t *Transport) SeekFraction(ratio float64) {
	if t.media == nil {
		return
	}
	dur := t.media.Duration()
	if math.IsNaN(dur) {
		dur = 0
	}
	target := ratio * dur
	if math.IsNaN(target) {
		return
	}
	t.media.SetCurrentTime(target)
	t.UpdateProgress()
}

// SeekBy moves relative to the current position.
func (t *Transport) SeekBy(delta float64) {
	if t.media == nil {
		return
	}
	t.media.SetCurrentTime(t.media.CurrentTime() + delta)
	t.UpdateProgress()
}

// Download saves the loaded clip as dir/filename and returns the path.
func (t *Transport) Download(ctx context.Context, dir string) (string, error) {
	if t.url == "" {
		return "", ttypes.ErrNoMedia
	}
	if t.fetcher == nil {
		return "", fmt.Errorf("audio: downloads are not available")
	}

	clip, err := t.fetcher.Fetch(ctx, t.url)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(t.filename))
	if err := os.WriteFile(path, clip.Data, 0o644); err != nil {
		return "", fmt.Errorf("audio: %w", err)
	}

	log.Info("Clip downloaded", "path", path, "size", humanize.Bytes(uint64(len(clip.Data))))
	return path, nil
}

// Percent returns cur/dur as a percentage, 0 for an unknown or zero duration.
func Percent(cur, dur float64) float64 {
	if dur == 0 || math.IsNaN(dur) || math.IsNaN(cur) {
		return 0
	}
	return cur / dur * 100
}

// FormatTime renders seconds as MM:SS. Minutes are not wrapped into hours;
// non-finite and negative values render as 00:00.
func FormatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return "00:00"
	}
	s := int64(sec)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
