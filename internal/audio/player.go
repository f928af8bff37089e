package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/ebitengine/oto/v3"
)

// The oto context can only be created once per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func otoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   outputRate,
			ChannelCount: outputChannels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("audio: open output device: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Player is a Media that fetches, decodes and plays clips on the default
// output device. Loading is asynchronous: Duration stays NaN and a Play
// request is held until the clip is decoded.
type Player struct {
	fetcher Fetcher

	mu       sync.Mutex
	gen      int
	src      string
	cancel   context.CancelFunc
	ready    chan struct{}
	stream   *pcmStream
	loadErr  error
	player   *oto.Player
	paused   bool
	rate     float64
	volume   float64
	seekTo   float64
	onUpdate func()
}

// NewPlayer creates a player that loads sources through fetcher.
func NewPlayer(fetcher Fetcher) *Player {
	return &Player{fetcher: fetcher, paused: true, rate: DefaultSpeed, volume: 1}
}

// OnStateChange registers fn to be called when decoding finishes or
// playback reaches the end. fn runs on a background goroutine.
func (p *Player) OnStateChange(fn func()) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// Load replaces the source, resets the position and starts decoding in
// the background.
func (p *Player) Load(src string) error {
	if src == "" {
		return ttypes.ErrNoMedia
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if p.cancel != nil {
		p.cancel()
	}

	p.gen++
	p.src = src
	p.stream = nil
	p.loadErr = nil
	p.paused = true
	p.seekTo = 0
	p.ready = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.prepare(ctx, p.gen, src, p.ready)
	return nil
}

func (p *Player) prepare(ctx context.Context, gen int, src string, ready chan struct{}) {
	defer close(ready)

	var pcm *PCM
	clip, err := p.fetcher.Fetch(ctx, src)
	if err == nil {
		pcm, err = Decode(clip)
	}
	if err == nil && pcm.SampleRate <= 0 {
		err = errors.New("audio: clip has no sample rate")
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	if err != nil {
		log.Warn("Unable to load audio", "src", src, "error", err)
		p.loadErr = err
		p.paused = true
	} else {
		p.stream = newPCMStream(pcm, p.rate, func() { p.ended(gen) })
		p.stream.Seek(p.seekTo)
		log.Debug("Audio decoded", "src", src, "seconds", pcm.Duration(), "rate", pcm.SampleRate)
		if !p.paused {
			if err := p.startLocked(); err != nil {
				p.loadErr = err
				p.paused = true
			}
		}
	}
	notify := p.onUpdate
	p.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Ready is closed once the current source is decoded or failed.
func (p *Player) Ready() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.ready
}

// Err returns the load or playback error of the current source.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

// Play starts or resumes playback. Before decoding finishes the request is
// remembered and honored once the clip is ready.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == "" {
		return ttypes.ErrNoMedia
	}
	if p.loadErr != nil {
		return p.loadErr
	}
	p.paused = false
	if p.stream == nil {
		return nil
	}
	if p.stream.Ended() {
		p.stream.Seek(0)
	}
	if err := p.startLocked(); err != nil {
		p.paused = true
		return err
	}
	return nil
}

func (p *Player) startLocked() error {
	if p.player == nil {
		ctx, err := otoContext()
		if err != nil {
			return err
		}
		p.player = ctx.NewPlayer(p.stream)
		p.player.SetVolume(p.volume)
	}
	p.player.Play()
	return nil
}

// Pause halts playback, keeping the position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paused = true
	if p.player != nil {
		p.player.Pause()
	}
}

// Paused reports whether playback is halted.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// CurrentTime returns the position in seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return p.seekTo
	}
	return p.stream.Time()
}

// SetCurrentTime moves the position. Values outside the clip are clamped.
func (p *Player) SetCurrentTime(sec float64) {
	if math.IsNaN(sec) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		p.seekTo = math.Max(sec, 0)
		return
	}
	p.stream.Seek(sec)
}

// Duration returns the clip length in seconds, NaN until decoded.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return math.NaN()
	}
	return p.stream.pcm.Duration()
}

// PlaybackRate returns the speed multiplier.
func (p *Player) PlaybackRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetPlaybackRate changes the speed multiplier. Non-positive rates are ignored.
func (p *Player) SetPlaybackRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.rate = rate
	if p.stream != nil {
		p.stream.SetRate(rate)
	}
}

// SetVolume sets the output volume between 0 and 1.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = math.Min(math.Max(volume, 0), 1)
	if p.player != nil {
		p.player.SetVolume(p.volume)
	}
}

// Close stops playback and abandons any pending load.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	p.stopLocked()
	p.stream = nil
	p.src = ""
	return nil
}

func (p *Player) stopLocked() {
	if p.player == nil {
		return
	}
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		log.Debug("Closing output player", "error", err)
	}
	p.player = nil
}

func (p *Player) ended(gen int) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.paused = true
	if p.player != nil {
		p.player.Pause()
	}
	notify := p.onUpdate
	p.mu.Unlock()

	// Off the output goroutine; fn may call back into the player.
	if notify != nil {
		go notify()
	}
}
