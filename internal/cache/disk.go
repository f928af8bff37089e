package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const indexFile = "index.json"

// clips smaller than this are stored raw
const minCompressSize = 1024

// DiskCache persists clips as individual files with a JSON index.
// Large clips are zstd-compressed when that actually saves space.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	RawSize    int64     `json:"rawSize"`
	Stored     time.Time `json:"stored"`
	LastAccess time.Time `json:"lastAccess"`
	Compressed bool      `json:"compressed"`
}

// NewDiskCache opens (or creates) a disk cache in dir. level <= 0 disables
// compression.
func NewDiskCache(dir string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if level > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	if err := dc.loadIndex(); err != nil {
		log.Warn("Discarding audio cache index", "dir", dir, "error", err)
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}
	return dc, nil
}

// Get reads and, if needed, decompresses the clip for key. Entries whose
// file vanished or fails to decode are dropped.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		if dc.decoder == nil {
			err = errors.New("compressed entry without decoder")
		} else {
			data, err = dc.decoder.DecodeAll(data, nil)
		}
	}
	if err != nil {
		log.Debug("Dropping unreadable cache entry", "key", key, "error", err)
		dc.drop(key)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes the clip for key, evicting least recently used clips first.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data, compressed := value, false
	if dc.encoder != nil && len(value) > minCompressSize {
		if packed := dc.encoder.EncodeAll(value, nil); len(packed) < len(value) {
			data, compressed = packed, true
		}
	}

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	if _, ok := dc.index[key]; ok {
		dc.drop(key)
	}
	dc.evictFor(n)

	name := hashKey(key) + ".clip"
	if err := writeAtomic(filepath.Join(dc.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		File:       name,
		Size:       n,
		RawSize:    int64(len(value)),
		Stored:     now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += n
	return nil
}

// Delete removes key if present.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.drop(key)
	return nil
}

// Clear removes every clip and rewrites an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		dc.drop(key)
	}
	return dc.saveIndex()
}

// Contains reports whether key is indexed.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Size returns the bytes used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns a snapshot of the counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.finish(dc.size, len(dc.index))
	return s
}

// RemoveOlderThan drops clips stored before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, e := range dc.index {
		if e.Stored.Before(cutoff) {
			dc.drop(key)
			removed++
		}
	}
	return removed
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	if dc.decoder != nil {
		dc.decoder.Close()
	}
	return dc.saveIndex()
}

// evictFor frees space until n more bytes fit. Lock must be held.
func (dc *DiskCache) evictFor(n int64) {
	if dc.size+n <= dc.capacity {
		return
	}

	keys := make([]string, 0, len(dc.index))
	for k := range dc.index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return dc.index[keys[i]].LastAccess.Before(dc.index[keys[j]].LastAccess)
	})

	for _, k := range keys {
		if dc.size+n <= dc.capacity {
			return
		}
		dc.drop(k)
		dc.stats.Evictions++
	}
}

// drop removes an entry and its file. Lock must be held.
func (dc *DiskCache) drop(key string) {
	e, ok := dc.index[key]
	if !ok {
		return
	}
	_ = os.Remove(filepath.Join(dc.dir, e.File))
	dc.size -= e.Size
	delete(dc.index, key)
}

func (dc *DiskCache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &dc.index)
}

func (dc *DiskCache) saveIndex() error {
	data, err := json.Marshal(dc.index)
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	return writeAtomic(filepath.Join(dc.dir, indexFile), data)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
