package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/audio"
	"github.com/dgnsrekt/ttstudio/internal/cache"
	"github.com/dgnsrekt/ttstudio/internal/preset"
	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/settings"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/spf13/viper"
)

// app holds the collaborators shared by the commands of one provider.
type app struct {
	kind    ttypes.ProviderKind
	client  *provider.HTTPClient
	presets *preset.Client
	cache   *cache.Manager
	fetcher *audio.HTTPFetcher
	player  *audio.Player
	deps    studio.Deps
}

func providerBase(kind ttypes.ProviderKind) string {
	if baseURL != "" {
		return baseURL
	}
	if b := viper.GetString(string(kind) + ".base"); b != "" {
		return b
	}
	return viper.GetString("base")
}

func cacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = viper.GetInt64("cache.memory_mb") << 20
	cfg.DiskCapacity = viper.GetInt64("cache.disk_mb") << 20
	cfg.CompressionLevel = viper.GetInt("cache.compression")
	cfg.TTL = viper.GetDuration("cache.ttl")

	if dir := viper.GetString("cache.dir"); dir != "" {
		cfg.DiskPath = expandPath(dir)
	} else if dir, err := cache.DefaultDiskPath(); err == nil {
		cfg.DiskPath = dir
	} else {
		log.Warn("Audio disk cache disabled", "error", err)
	}
	return cfg
}

// profileFor applies the config file overrides to the built-in profile.
func profileFor(kind ttypes.ProviderKind) studio.Profile {
	p := studio.ProfileFor(kind)
	if v := viper.GetString("preferred"); v != "" {
		p.Preferred = v
	}
	if kind == ttypes.ProviderAzure {
		if regions := viper.GetStringSlice("azure.regions"); len(regions) > 0 {
			p.Regions = regions
			p.DefaultRegion = regions[0]
		}
		if r := viper.GetString("azure.region"); r != "" {
			p.DefaultRegion = r
		}
	}
	return p
}

func newApp(kind ttypes.ProviderKind) (*app, error) {
	base := providerBase(kind)
	client, err := provider.New(kind, base)
	if err != nil {
		return nil, err
	}

	mgr, err := cache.NewManager(cacheConfig())
	if err != nil {
		log.Warn("Falling back to the memory cache", "error", err)
		cfg := cacheConfig()
		cfg.DiskPath = ""
		if mgr, err = cache.NewManager(cfg); err != nil {
			return nil, fmt.Errorf("unable to create audio cache: %w", err)
		}
	}

	profile := profileFor(kind)

	var backend settings.Backend
	if noSave {
		backend = settings.NewMemoryBackend()
	} else {
		dir, err := settings.DefaultDir()
		if err != nil {
			return nil, err
		}
		backend = settings.FileBackend{Dir: dir}
	}

	fetcher := audio.NewHTTPFetcher(nil, mgr)
	player := audio.NewPlayer(fetcher)
	presets := preset.NewClient(client.Base(), nil)

	log.Debug("Provider ready", "provider", kind, "base", client.Base(), "save", !noSave)
	return &app{
		kind:    kind,
		client:  client,
		presets: presets,
		cache:   mgr,
		fetcher: fetcher,
		player:  player,
		deps: studio.Deps{
			Profile:  profile,
			Client:   client,
			Settings: settings.NewStore(profile.StorageKey, backend, 0),
			Presets:  presets,
			Media:    player,
			Fetcher:  fetcher,
		},
	}, nil
}

// apiKey returns the azure key from the config file or environment.
func (a *app) apiKey() string {
	if a.kind != ttypes.ProviderAzure {
		return ""
	}
	return strings.TrimSpace(viper.GetString("azure.key"))
}

// savedRecord reads the persisted controls of a provider page. Missing or
// unreadable settings yield the empty record.
func savedRecord(kind ttypes.ProviderKind) settings.Record {
	dir, err := settings.DefaultDir()
	if err != nil {
		return settings.Record{}
	}
	store := settings.NewStore(studio.ProfileFor(kind).StorageKey, settings.FileBackend{Dir: dir}, 0)
	defer func() { _ = store.Close() }()
	rec, err := store.Load()
	if err != nil {
		log.Debug("Ignoring saved settings", "provider", kind, "error", err)
	}
	return rec
}

// azureKey looks up the key in the config, then the environment, then the
// saved azure page.
func azureKey() string {
	if k := strings.TrimSpace(viper.GetString("azure.key")); k != "" {
		return k
	}
	return strings.TrimSpace(savedRecord(ttypes.ProviderAzure).APIKey)
}

func (a *app) close() {
	if err := a.player.Close(); err != nil {
		log.Debug("Closing player", "error", err)
	}
	if err := a.cache.Close(); err != nil {
		log.Debug("Closing cache", "error", err)
	}
}
