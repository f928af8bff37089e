package audio

import (
	"encoding/binary"
	"sync"
)

// Output format of the audio device.
const (
	outputRate     = 44100
	outputChannels = 2
	bytesPerFrame  = outputChannels * 2
)

// pcmStream resamples a clip to the device rate on the fly. The playback
// rate scales the step through the source, so speed changes shift pitch.
type pcmStream struct {
	mu    sync.Mutex
	pcm   *PCM
	pos   float64 // source frames
	rate  float64
	ended bool
	onEnd func()
}

func newPCMStream(pcm *PCM, rate float64, onEnd func()) *pcmStream {
	if rate <= 0 {
		rate = DefaultSpeed
	}
	return &pcmStream{pcm: pcm, rate: rate, onEnd: onEnd}
}

// Read fills p with device frames. Past the end it writes silence and
// reports the end once.
func (s *pcmStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / bytesPerFrame * bytesPerFrame
	frames := s.pcm.Frames()
	step := float64(s.pcm.SampleRate) / outputRate * s.rate

	for i := 0; i < n; i += bytesPerFrame {
		var l, r int16
		if s.pos < float64(frames) {
			idx := int(s.pos)
			frac := s.pos - float64(idx)
			next := idx + 1
			if next >= frames {
				next = idx
			}
			l = lerp(s.pcm.Samples[2*idx], s.pcm.Samples[2*next], frac)
			r = lerp(s.pcm.Samples[2*idx+1], s.pcm.Samples[2*next+1], frac)
			s.pos += step
		} else if !s.ended {
			s.ended = true
			if s.onEnd != nil {
				go s.onEnd()
			}
		}
		binary.LittleEndian.PutUint16(p[i:], uint16(l))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(r))
	}
	return n, nil
}

func lerp(a, b int16, frac float64) int16 {
	return int16(float64(a)*(1-frac) + float64(b)*frac)
}

// Time returns the position in seconds.
func (s *pcmStream) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.pos
	if end := float64(s.pcm.Frames()); pos > end {
		pos = end
	}
	return pos / float64(s.pcm.SampleRate)
}

// Seek moves to sec, clamped to the clip.
func (s *pcmStream) Seek(sec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := sec * float64(s.pcm.SampleRate)
	if pos < 0 {
		pos = 0
	}
	if end := float64(s.pcm.Frames()); pos > end {
		pos = end
	}
	s.pos = pos
	s.ended = false
}

// SetRate changes the playback multiplier.
func (s *pcmStream) SetRate(rate float64) {
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
}

// Ended reports whether the end has been reached.
func (s *pcmStream) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
