package audio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// blockingFetcher serves one clip once release is closed.
type blockingFetcher struct {
	clip    Clip
	err     error
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ string) (Clip, error) {
	select {
	case <-f.release:
		return f.clip, f.err
	case <-ctx.Done():
		return Clip{}, ctx.Err()
	}
}

func waitReady(t *testing.T, p *Player) {
	t.Helper()
	select {
	case <-p.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("player never became ready")
	}
}

func TestPlayerLoadDecodesInBackground(t *testing.T) {
	f := &blockingFetcher{
		clip:    Clip{Data: buildWAV(make([]int16, 48000), 1, 24000), Format: FormatWAV},
		release: make(chan struct{}),
	}
	p := NewPlayer(f)

	notified := make(chan struct{}, 1)
	p.OnStateChange(func() { notified <- struct{}{} })

	if err := p.Load("http://x/a.wav"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !math.IsNaN(p.Duration()) {
		t.Error("duration should be unknown before decoding")
	}

	// Seeks before decoding are kept.
	p.SetCurrentTime(0.5)

	close(f.release)
	waitReady(t, p)
	<-notified

	if p.Duration() != 2 {
		t.Errorf("Duration() = %v, want 2", p.Duration())
	}
	if p.CurrentTime() != 0.5 {
		t.Errorf("CurrentTime() = %v, want 0.5", p.CurrentTime())
	}
	if !p.Paused() {
		t.Error("player should stay paused after load")
	}

	p.SetCurrentTime(100)
	if p.CurrentTime() != 2 {
		t.Errorf("seek past end should clamp, got %v", p.CurrentTime())
	}
}

func TestPlayerLoadFailure(t *testing.T) {
	f := &blockingFetcher{err: errors.New("404"), release: make(chan struct{})}
	close(f.release)

	p := NewPlayer(f)
	_ = p.Load("http://x/missing.mp3")
	waitReady(t, p)

	if p.Err() == nil {
		t.Fatal("expected load error")
	}
	if err := p.Play(); err == nil {
		t.Error("Play should report the load error")
	}
	if !p.Paused() {
		t.Error("player should be paused after a failed load")
	}
}

// routeFetcher blocks on "slow" sources until canceled and serves clip otherwise.
type routeFetcher struct {
	clip Clip
}

func (f routeFetcher) Fetch(ctx context.Context, src string) (Clip, error) {
	if src == "slow" {
		<-ctx.Done()
		return Clip{}, ctx.Err()
	}
	return f.clip, nil
}

func TestPlayerReloadDropsStaleDecode(t *testing.T) {
	p := NewPlayer(routeFetcher{clip: Clip{Data: buildWAV(make([]int16, 24000), 1, 24000), Format: FormatWAV}})

	_ = p.Load("slow")
	first := p.Ready()

	// The second load cancels the first fetch.
	_ = p.Load("fast")
	<-first
	waitReady(t, p)

	if p.Err() != nil || p.Duration() != 1 {
		t.Errorf("second clip not active: err=%v dur=%v", p.Err(), p.Duration())
	}
}

func TestPlayerRateAndEmptySource(t *testing.T) {
	p := NewPlayer(&blockingFetcher{release: make(chan struct{})})

	if err := p.Play(); !errors.Is(err, ttypes.ErrNoMedia) {
		t.Errorf("Play without source = %v, want ErrNoMedia", err)
	}
	if err := p.Load(""); !errors.Is(err, ttypes.ErrNoMedia) {
		t.Errorf("Load(\"\") = %v, want ErrNoMedia", err)
	}

	p.SetPlaybackRate(1.5)
	p.SetPlaybackRate(0)
	p.SetPlaybackRate(-1)
	if p.PlaybackRate() != 1.5 {
		t.Errorf("PlaybackRate() = %v, want 1.5", p.PlaybackRate())
	}
	_ = p.Close()
}
