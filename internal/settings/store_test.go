package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestRoundTrip tests that every saved field comes back after load.
func TestRoundTrip(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(AzureKey, backend, 10*time.Millisecond)

	want := Record{
		APIKey:       "secret",
		Region:       "westeurope",
		Voice:        "zh-CN-XiaoxiaoNeural",
		Style:        "cheerful",
		Rate:         Int(25),
		Pitch:        Int(-10),
		Volume:       Int(0),
		Format:       "wav",
		Text:         "你好, world",
		PlaybackRate: 1.5,
	}
	if err := store.SaveNow(want); err != nil {
		t.Fatalf("SaveNow() error = %v", err)
	}

	got, err := NewStore(AzureKey, backend, 0).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.APIKey != want.APIKey || got.Region != want.Region || got.Voice != want.Voice ||
		got.Style != want.Style || got.Format != want.Format || got.Text != want.Text ||
		got.PlaybackRate != want.PlaybackRate {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if IntOr(got.Rate, 99) != 25 || IntOr(got.Pitch, 99) != -10 || IntOr(got.Volume, 99) != 0 {
		t.Errorf("slider fields not restored: rate=%v pitch=%v volume=%v", got.Rate, got.Pitch, got.Volume)
	}
}

// TestLoadMissing tests that an absent record loads as empty without error.
func TestLoadMissing(t *testing.T) {
	store := NewStore(EdgeKey, NewMemoryBackend(), 0)

	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !rec.IsEmpty() {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

// TestLoadMalformed tests that a corrupt record degrades to defaults with a storage error.
func TestLoadMalformed(t *testing.T) {
	backend := NewMemoryBackend()
	_ = backend.Write(EdgeKey, []byte("{not json"))

	rec, err := NewStore(EdgeKey, backend, 0).Load()
	if err == nil {
		t.Fatal("expected error for malformed record")
	}
	if ttypes.CodeOf(err) != ttypes.ErrorCodeStorage {
		t.Errorf("expected STORAGE code, got %q", ttypes.CodeOf(err))
	}
	if !rec.IsEmpty() {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

// TestLoadNull tests that a stored JSON null is treated as empty.
func TestLoadNull(t *testing.T) {
	backend := NewMemoryBackend()
	_ = backend.Write(EdgeKey, []byte("null"))

	rec, err := NewStore(EdgeKey, backend, 0).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !rec.IsEmpty() {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

// TestLoadStringSliders tests records written by the web pages, where the
// sliders are strings.
func TestLoadStringSliders(t *testing.T) {
	backend := NewMemoryBackend()
	_ = backend.Write(EdgeKey, []byte(`{"voice":"zh-CN-XiaoxiaoNeural","rate":"25","volume":"-10","pitch":"0","playbackRate":1.5}`))

	rec, err := NewStore(EdgeKey, backend, 0).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if IntOr(rec.Rate, 99) != 25 || IntOr(rec.Volume, 99) != -10 || IntOr(rec.Pitch, 99) != 0 {
		t.Errorf("sliders = %v/%v/%v, want 25/-10/0", IntOr(rec.Rate, 99), IntOr(rec.Volume, 99), IntOr(rec.Pitch, 99))
	}
	if rec.Voice != "zh-CN-XiaoxiaoNeural" || rec.PlaybackRate != 1.5 {
		t.Errorf("unexpected record %+v", rec)
	}
}

// TestSaveDebounced tests that a burst of saves produces a single write of the last record.
func TestSaveDebounced(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(EdgeKey, backend, 30*time.Millisecond)

	for i := 0; i < 10; i++ {
		store.Save(Record{Rate: Int(i)})
	}
	if backend.Writes() != 0 {
		t.Fatalf("expected no write during burst, got %d", backend.Writes())
	}

	waitFor(t, func() bool { return backend.Writes() > 0 })
	time.Sleep(60 * time.Millisecond)

	if backend.Writes() != 1 {
		t.Errorf("expected exactly 1 write, got %d", backend.Writes())
	}
	rec, _ := store.Load()
	if IntOr(rec.Rate, -1) != 9 {
		t.Errorf("expected last record to win, got rate %v", rec.Rate)
	}
}

// TestFlush tests that Flush writes the pending record immediately.
func TestFlush(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(EdgeKey, backend, time.Hour)

	store.Save(Record{Voice: "en-US-AriaNeural"})
	if !store.Pending() {
		t.Fatal("expected pending save")
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if store.Pending() {
		t.Error("expected nothing pending after flush")
	}
	if backend.Writes() != 1 {
		t.Errorf("expected 1 write, got %d", backend.Writes())
	}

	// Flushing with nothing pending must not write again.
	_ = store.Flush()
	if backend.Writes() != 1 {
		t.Errorf("expected still 1 write, got %d", backend.Writes())
	}
}

type failingBackend struct{}

func (failingBackend) Read(string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (failingBackend) Write(string, []byte) error  { return errors.New("disk on fire") }

// TestWriteFailure tests that write failures are reported, not fatal.
func TestWriteFailure(t *testing.T) {
	store := NewStore(EdgeKey, failingBackend{}, 5*time.Millisecond)

	errs := make(chan error, 1)
	store.OnError = func(err error) { errs <- err }
	store.Save(Record{Text: "hello"})

	select {
	case err := <-errs:
		if ttypes.CodeOf(err) != ttypes.ErrorCodeStorage {
			t.Errorf("expected STORAGE code, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was not called")
	}

	if _, err := store.Load(); err == nil {
		t.Error("expected load error from failing backend")
	}
}

// TestFileBackend tests writing and reading records on disk.
func TestFileBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	backend := FileBackend{Dir: dir}

	if _, err := backend.Read(EdgeKey); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	store := NewStore(EdgeKey, backend, 0)
	if err := store.SaveNow(Record{Voice: "en-GB-SoniaNeural", Format: "mp3"}); err != nil {
		t.Fatalf("SaveNow() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, EdgeKey+".json")); err != nil {
		t.Fatalf("expected settings file: %v", err)
	}

	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.Voice != "en-GB-SoniaNeural" || rec.Format != "mp3" {
		t.Errorf("unexpected record %+v", rec)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the settings file, found %d entries", len(entries))
	}
}
