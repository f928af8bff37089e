package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	gap "github.com/muesli/go-app-paths"
)

// DefaultSaveDelay is the quiet period before a debounced save is written.
const DefaultSaveDelay = 500 * time.Millisecond

// Backend is durable key-value storage for encoded records.
// Read returns an error wrapping fs.ErrNotExist when the key is absent.
type Backend interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// Store round-trips one page's Record through a Backend.
type Store struct {
	key     string
	backend Backend

	mu      sync.Mutex
	pending Record
	lastErr error

	debouncer *Debouncer

	// OnError is called when a debounced write fails.
	OnError func(error)
}

// NewStore creates a store for key. delay <= 0 uses DefaultSaveDelay.
func NewStore(key string, backend Backend, delay time.Duration) *Store {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	s := &Store{
		key:     key,
		backend: backend,
	}
	s.debouncer = NewDebouncer(delay, s.writePending)
	return s
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// Load reads the stored record. A missing record yields the empty record and
// no error; a malformed one yields the empty record and a storage error the
// caller may surface as a warning.
func (s *Store) Load() (Record, error) {
	data, err := s.backend.Read(s.key)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		log.Warn("Could not read settings", "key", s.key, "error", err)
		return Record{}, ttypes.NewError(ttypes.ErrorCodeStorage, "unable to load settings", err)
	}

	rec, err := Unmarshal(data)
	if err != nil {
		log.Warn("Ignoring malformed settings", "key", s.key, "error", err)
		return Record{}, ttypes.NewError(ttypes.ErrorCodeStorage, "unable to load settings", err)
	}

	log.Debug("Settings loaded", "key", s.key)
	return rec, nil
}

// Save schedules rec to be written once edits have been quiet for the save
// delay. Only the latest record of a burst is written.
func (s *Store) Save(rec Record) {
	s.mu.Lock()
	s.pending = rec.Clone()
	s.mu.Unlock()

	s.debouncer.Trigger()
}

// SaveNow writes rec immediately, replacing anything pending.
func (s *Store) SaveNow(rec Record) error {
	s.mu.Lock()
	s.pending = rec.Clone()
	s.mu.Unlock()

	s.debouncer.Cancel()
	return s.write(rec)
}

// Flush writes the pending record, if any, and returns the last write error.
func (s *Store) Flush() error {
	s.debouncer.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Pending reports whether a debounced write has not happened yet.
func (s *Store) Pending() bool {
	return s.debouncer.Pending()
}

// Close flushes the pending write and stops accepting saves.
func (s *Store) Close() error {
	err := s.Flush()
	s.debouncer.Stop()
	return err
}

func (s *Store) writePending() {
	s.mu.Lock()
	rec := s.pending
	s.mu.Unlock()

	if err := s.write(rec); err != nil && s.OnError != nil {
		s.OnError(err)
	}
}

func (s *Store) write(rec Record) error {
	data, err := rec.Marshal()
	if err == nil {
		err = s.backend.Write(s.key, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Error("Could not save settings", "key", s.key, "error", err)
		s.lastErr = ttypes.NewError(ttypes.ErrorCodeStorage, "unable to save settings", err)
		return s.lastErr
	}
	s.lastErr = nil
	return nil
}

// FileBackend stores each key as <Dir>/<key>.json.
type FileBackend struct {
	Dir string
}

// DefaultDir returns the per-user data directory for settings.
func DefaultDir() (string, error) {
	scope := gap.NewScope(gap.User, "ttstudio")
	dir, err := scope.DataPath("settings")
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	return dir, nil
}

// Read implements Backend.
func (b FileBackend) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		return nil, fmt.Errorf("unable to read settings file: %w", err)
	}
	return data, nil
}

// Write implements Backend. The file is replaced atomically.
func (b FileBackend) Write(key string, data []byte) error {
	if err := os.MkdirAll(b.Dir, 0o700); err != nil {
		return fmt.Errorf("unable to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create settings file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		return fmt.Errorf("unable to replace settings file: %w", err)
	}
	return nil
}

func (b FileBackend) path(key string) string {
	return filepath.Join(b.Dir, key+".json")
}

// MemoryBackend keeps records in memory. Useful for tests and --no-save runs.
type MemoryBackend struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Read implements Backend.
func (b *MemoryBackend) Read(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.data[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

// Write implements Backend.
func (b *MemoryBackend) Write(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[key] = append([]byte(nil), data...)
	b.writes++
	return nil
}

// Writes returns how many times Write has been called.
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
