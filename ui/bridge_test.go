package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/voice"
)

// TestBridgeSignalsChanges tests that a render wakes the waiting command.
func TestBridgeSignalsChanges(t *testing.T) {
	b := newBridge()
	done := make(chan any, 1)
	go func() { done <- b.wait()() }()

	b.SetBusy(studio.OpVoices, true)

	select {
	case msg := <-done:
		if _, ok := msg.(viewChangedMsg); !ok {
			t.Fatalf("expected viewChangedMsg, got %T", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after a change")
	}
	if !b.snapshot().busy[studio.OpVoices] {
		t.Error("expected voices to be busy")
	}
}

// TestBridgeCoalescesSignals tests that many renders never block the caller.
func TestBridgeCoalescesSignals(t *testing.T) {
	b := newBridge()
	for i := 0; i < 100; i++ {
		b.SetProgress(float64(i))
	}
	if got := b.snapshot().percent; got != 99 {
		t.Errorf("expected last progress 99, got %v", got)
	}
	if len(b.changed) != 1 {
		t.Errorf("expected one pending signal, got %d", len(b.changed))
	}
}

// TestBridgeSnapshotIsolation tests that a snapshot does not alias the
// bridge state.
func TestBridgeSnapshotIsolation(t *testing.T) {
	b := newBridge()
	b.RenderVoices([]voice.Group{{Key: "en", Label: "English"}}, "", 0, true)
	b.SetBusy(studio.OpSynthesize, true)

	s := b.snapshot()
	s.groups[0].Label = "changed"
	s.busy[studio.OpSynthesize] = false

	again := b.snapshot()
	if again.groups[0].Label != "English" {
		t.Error("snapshot groups alias the bridge")
	}
	if !again.busy[studio.OpSynthesize] {
		t.Error("snapshot busy map aliases the bridge")
	}
}

// TestBridgeNotices tests notice queueing.
func TestBridgeNotices(t *testing.T) {
	b := newBridge()
	b.Notify(studio.LevelInfo, "one", "")
	b.Notify(studio.LevelError, "two", "failed")

	n := b.takeNotices()
	if len(n) != 2 || n[1].title != "two" || n[1].level != studio.LevelError {
		t.Fatalf("unexpected notices %+v", n)
	}
	if len(b.takeNotices()) != 0 {
		t.Error("expected notices to be drained")
	}
}

// TestBridgePlaybackError tests that a new play clears the last error.
func TestBridgePlaybackError(t *testing.T) {
	b := newBridge()
	b.ShowPlaybackError(errors.New("no device"))
	if b.snapshot().playErr != "no device" {
		t.Fatal("expected playback error to be shown")
	}
	b.SetPlaying(true)
	if s := b.snapshot(); s.playErr != "" || !s.playing {
		t.Errorf("expected playing without error, got %+v", s)
	}
}
