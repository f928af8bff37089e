package preset

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// MemoryStore is an in-process Store with the backend's semantics.
type MemoryStore struct {
	mu      sync.Mutex
	presets map[string]Preset
}

// NewMemoryStore creates a store holding presets.
func NewMemoryStore(presets ...Preset) *MemoryStore {
	s := &MemoryStore{presets: make(map[string]Preset)}
	for _, p := range presets {
		s.presets[p.Name] = p
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, Summary{Name: p.Name, Voice: p.Voice, Style: p.Style})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, name string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.presets[strings.TrimSpace(name)]
	if !ok {
		return Preset{}, ttypes.NewError(ttypes.ErrorCodeNotFound, "preset does not exist", ttypes.ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) Save(_ context.Context, p Preset) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return emptyName()
	}
	s.mu.Lock()
	s.presets[p.Name] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if _, ok := s.presets[name]; !ok {
		return ttypes.NewError(ttypes.ErrorCodeNotFound, "preset does not exist", ttypes.ErrNotFound)
	}
	delete(s.presets, name)
	return nil
}
