// Package cache keeps downloaded audio clips close at hand. Clips are keyed
// by their source URL and live in an in-memory LRU (L1) backed by a
// zstd-compressed disk store (L2) that survives restarts.
package cache
