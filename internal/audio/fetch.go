package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/cache"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dustin/go-humanize"
)

// Audio formats the backend produces.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// maxClipSize bounds a single download.
const maxClipSize = 64 << 20

// Clip is a fetched audio file.
type Clip struct {
	Data   []byte
	Format string
}

// Fetcher retrieves clips by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Clip, error)
}

// HTTPFetcher downloads clips from the backend, through an optional cache.
type HTTPFetcher struct {
	client *http.Client
	cache  *cache.Manager
}

// NewHTTPFetcher creates a fetcher. cache may be nil.
func NewHTTPFetcher(client *http.Client, c *cache.Manager) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &HTTPFetcher{client: client, cache: c}
}

// Fetch returns the clip at url. The response must be audio/mpeg or
// audio/wav.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Clip, error) {
	var (
		data []byte
		err  error
	)
	if f.cache != nil {
		data, err = f.cache.Fetch(ctx, url, f.download)
	} else {
		data, err = f.download(ctx, url)
	}
	if err != nil {
		return Clip{}, err
	}
	return Clip{Data: data, Format: DetectFormat(data, url)}, nil
}

// Prefetch downloads every url not yet cached, at most limit at a time, so
// later Fetch calls are served from the cache. Without a cache it does
// nothing.
func (f *HTTPFetcher) Prefetch(ctx context.Context, urls []string, limit int) error {
	if f.cache == nil || len(urls) == 0 {
		return nil
	}
	return f.cache.Warm(ctx, urls, limit, f.download)
}

func (f *HTTPFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: create request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ttypes.NewError(ttypes.ErrorCodeCanceled, "download canceled", err)
		}
		return nil, ttypes.NewError(ttypes.ErrorCodeTransport, "unable to fetch audio: "+err.Error(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ttypes.NewError(ttypes.ErrorCodeNotFound, "audio file not found", ttypes.ErrNotFound).
			WithContext("url", url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, ttypes.NewError(ttypes.ErrorCodeTransport, fmt.Sprintf("unable to fetch audio (%d)", resp.StatusCode), nil).
			WithContext("url", url)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !IsAudioType(mediaType) {
		return nil, ttypes.NewError(ttypes.ErrorCodeContractViolation, fmt.Sprintf("unexpected audio content type %q", mediaType), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return nil, ttypes.NewError(ttypes.ErrorCodeTransport, "unable to read audio: "+err.Error(), err)
	}
	if len(data) > maxClipSize {
		return nil, ttypes.NewError(ttypes.ErrorCodeContractViolation, "audio file too large", nil)
	}

	log.Debug("Audio fetched", "url", url, "size", humanize.Bytes(uint64(len(data))), "took", time.Since(start))
	return data, nil
}

// IsAudioType reports whether a media type is one the backend serves.
func IsAudioType(mediaType string) bool {
	switch mediaType {
	case "audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/wave":
		return true
	}
	return false
}

// DetectFormat identifies a clip by its magic bytes, then by the URL
// extension. Unknown data is assumed to be MP3.
func DetectFormat(data []byte, url string) string {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return FormatWAV
	}
	if len(data) >= 3 && (bytes.Equal(data[0:3], []byte("ID3")) || (data[0] == 0xFF && data[1]&0xE0 == 0xE0)) {
		return FormatMP3
	}
	if path.Ext(url) == ".wav" {
		return FormatWAV
	}
	return FormatMP3
}
