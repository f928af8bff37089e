package audio

import (
	"errors"
	"math"
	"sync"
)

// MockMedia is an in-memory Media for tests and headless runs. It never
// produces sound; position only changes through SetCurrentTime or Advance.
type MockMedia struct {
	mu sync.Mutex

	src      string
	paused   bool
	current  float64
	duration float64
	rate     float64

	// PlayErr, when set, is returned by Play.
	PlayErr error
	// LoadDuration is the duration reported after Load; NaN simulates
	// missing metadata.
	LoadDuration float64

	loads, plays, pauses int
	onUpdate             func()
}

// NewMockMedia creates a paused mock with nothing loaded.
func NewMockMedia() *MockMedia {
	return &MockMedia{paused: true, duration: math.NaN(), rate: 1, LoadDuration: math.NaN()}
}

func (m *MockMedia) Load(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if src == "" {
		return errors.New("empty source")
	}
	m.src = src
	m.paused = true
	m.current = 0
	m.duration = m.LoadDuration
	m.loads++
	return nil
}

func (m *MockMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plays++
	if m.PlayErr != nil {
		return m.PlayErr
	}
	m.paused = false
	return nil
}

func (m *MockMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	m.paused = true
}

func (m *MockMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MockMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetCurrentTime stores sec as given, without clamping.
func (m *MockMedia) SetCurrentTime(sec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = sec
}

func (m *MockMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// SetDuration simulates metadata arriving.
func (m *MockMedia) SetDuration(sec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = sec
}

func (m *MockMedia) PlaybackRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *MockMedia) SetPlaybackRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

// Advance moves the position forward as if sec of audio played.
func (m *MockMedia) Advance(sec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current += sec * m.rate
}

// Source returns the loaded source.
func (m *MockMedia) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// Counts returns how often Load, Play and Pause were called.
func (m *MockMedia) Counts() (loads, plays, pauses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads, m.plays, m.pauses
}

// OnStateChange registers fn to be called by Finish.
func (m *MockMedia) OnStateChange(fn func()) {
	m.mu.Lock()
	m.onUpdate = fn
	m.mu.Unlock()
}

// Finish plays to the end and pauses, like a clip running out.
func (m *MockMedia) Finish() {
	m.mu.Lock()
	if !math.IsNaN(m.duration) {
		m.current = m.duration
	}
	m.paused = true
	notify := m.onUpdate
	m.mu.Unlock()

	if notify != nil {
		notify()
	}
}
