package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"golang.org/x/sync/errgroup"
)

// FetchFunc retrieves a clip that is not cached yet.
type FetchFunc func(ctx context.Context, key string) ([]byte, error)

// Manager layers the memory cache over the disk cache. Disk hits are
// promoted to memory; writes go to both tiers.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache // nil when no disk path is configured
	ttl    time.Duration

	mu     sync.Mutex
	hits   map[Level]int64
	misses int64

	// in-flight fetches per key
	flight   map[string]*call
	flightMu sync.Mutex

	stop chan struct{}
	wg   sync.WaitGroup
}

type call struct {
	done chan struct{}
	data []byte
	err  error
}

// DefaultDiskPath returns the per-user audio cache directory.
func DefaultDiskPath() (string, error) {
	scope := gap.NewScope(gap.User, "ttstudio")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}

// NewManager creates a two-tier cache from cfg.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		ttl:    cfg.TTL,
		hits:   make(map[Level]int64),
		flight: make(map[string]*call),
		stop:   make(chan struct{}),
	}

	if cfg.DiskPath != "" {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
	}

	if m.ttl > 0 {
		m.prune()
		m.wg.Add(1)
		go m.cleanupLoop(time.Hour)
	}
	return m, nil
}

// Get looks the clip up in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.hit(LevelMemory)
		return data, true
	}
	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			m.hit(LevelDisk)
			_ = m.memory.Put(key, data)
			return data, true
		}
	}

	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
	return nil, false
}

// Put stores the clip in both tiers. A clip too large for one tier is
// still kept by the other.
func (m *Manager) Put(key string, data []byte) error {
	memErr := m.memory.Put(key, data)
	if memErr != nil && !errors.Is(memErr, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", memErr)
	}
	if m.disk == nil {
		return memErr
	}

	diskErr := m.disk.Put(key, data)
	if diskErr != nil && !errors.Is(diskErr, ErrItemTooLarge) {
		return fmt.Errorf("disk cache: %w", diskErr)
	}
	if memErr != nil && diskErr != nil {
		return ErrItemTooLarge
	}
	return nil
}

// Fetch returns the cached clip for key or calls fetch and caches its
// result. Concurrent fetches of the same key share one call.
func (m *Manager) Fetch(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if data, ok := m.Get(key); ok {
		return data, nil
	}

	m.flightMu.Lock()
	if c, ok := m.flight[key]; ok {
		m.flightMu.Unlock()
		select {
		case <-c.done:
			return c.data, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	m.flight[key] = c
	m.flightMu.Unlock()

	c.data, c.err = fetch(ctx, key)
	if c.err == nil {
		if err := m.Put(key, c.data); err != nil {
			log.Debug("Clip not cached", "key", key, "error", err)
		}
	}

	m.flightMu.Lock()
	delete(m.flight, key)
	m.flightMu.Unlock()
	close(c.done)

	return c.data, c.err
}

// Warm fetches every key not yet cached, at most limit at a time. The first
// failure cancels the remaining fetches.
func (m *Manager) Warm(ctx context.Context, keys []string, limit int, fetch FetchFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, key := range keys {
		g.Go(func() error {
			_, err := m.Fetch(ctx, key, fetch)
			return err
		})
	}
	return g.Wait()
}

// Delete removes key from both tiers.
func (m *Manager) Delete(key string) error {
	_ = m.memory.Delete(key)
	if m.disk != nil {
		return m.disk.Delete(key)
	}
	return nil
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	_ = m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// ManagerStats aggregates both tiers.
type ManagerStats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Memory     Stats
	Disk       Stats
}

// Stats returns a snapshot across tiers.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := ManagerStats{
		MemoryHits: m.hits[LevelMemory],
		DiskHits:   m.hits[LevelDisk],
		Misses:     m.misses,
	}
	m.mu.Unlock()

	s.Memory = m.memory.Stats()
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	return s
}

// Close stops the cleanup loop and saves the disk index.
func (m *Manager) Close() error {
	close(m.stop)
	m.wg.Wait()
	if m.disk != nil {
		if err := m.disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}

func (m *Manager) hit(l Level) {
	m.mu.Lock()
	m.hits[l]++
	m.mu.Unlock()
}

func (m *Manager) cleanupLoop(every time.Duration) {
	defer m.wg.Done()

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.prune()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) prune() {
	n := m.memory.Prune(m.ttl)
	if m.disk != nil {
		n += m.disk.RemoveOlderThan(time.Now().Add(-m.ttl))
	}
	if n > 0 {
		log.Debug("Pruned expired clips", "count", n)
	}
}
