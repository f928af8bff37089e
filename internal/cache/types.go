package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when a clip exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheMiss is returned when a clip is not cached
	ErrCacheMiss = errors.New("cache miss")
)

// Level identifies the cache tier a clip was served from.
type Level int

const (
	// LevelMemory is the in-process LRU.
	LevelMemory Level = iota

	// LevelDisk is the persistent compressed store.
	LevelDisk
)

// String returns the tier name.
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
}

func (s *Stats) finish(size int64, items int) {
	s.Size = size
	s.ItemCount = int64(items)
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}

// Config configures a Manager.
type Config struct {
	MemoryCapacity   int64  // bytes
	DiskCapacity     int64  // bytes
	DiskPath         string // directory for cache files; empty disables L2
	CompressionLevel int    // zstd level, 0 disables compression
	TTL              time.Duration
}

// DefaultConfig returns the default cache sizes.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   32 * 1024 * 1024,
		DiskCapacity:     256 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
	}
}

// Cache is implemented by each tier.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Contains(key string) bool
	Size() int64
	Stats() Stats
}

// hashKey turns a URL into a stable file-system friendly name.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
