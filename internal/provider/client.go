// Package provider talks to the studio backend's synthesis endpoints. One
// Client serves one provider base URL, e.g. http://127.0.0.1:5000/api/edge.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// MaxEdgeTextLength is the longest text the edge backend accepts, in characters.
	MaxEdgeTextLength = 50000

	// KeyHeader carries the azure credential.
	KeyHeader = "Ocp-Apim-Subscription-Key"

	// RequestIDHeader tags every request for backend log correlation.
	RequestIDHeader = "X-Request-ID"

	// DefaultRegion is used when an azure request names none.
	DefaultRegion = "eastus"

	// backend limits per minute
	voicesPerMinute     = 10
	synthesizePerMinute = 5

	maxBody = 1 << 20
)

// Default base URLs of a locally running backend.
const (
	DefaultEdgeBase  = "http://127.0.0.1:5000/api/edge"
	DefaultAzureBase = "http://127.0.0.1:5000/api/azure"
)

// DefaultBase returns the default base URL for kind.
func DefaultBase(kind ttypes.ProviderKind) string {
	if kind == ttypes.ProviderAzure {
		return DefaultAzureBase
	}
	return DefaultEdgeBase
}

// VoiceQuery parameterizes a voice list request. Region and APIKey are
// only sent to the azure backend.
type VoiceQuery struct {
	Region string
	APIKey string
}

// Client is a synthesis backend.
type Client interface {
	Kind() ttypes.ProviderKind
	RequiresKey() bool
	MaxTextLength() int

	Validate(req ttypes.SynthesisRequest) error
	ListVoices(ctx context.Context, q VoiceQuery) ([]ttypes.Voice, error)
	Synthesize(ctx context.Context, req ttypes.SynthesisRequest) (ttypes.SynthesisResult, error)
	ResolveURL(ref string) string
}

// HTTPClient is the Client for both backend flavors.
type HTTPClient struct {
	kind ttypes.ProviderKind
	base *url.URL

	httpClient   *http.Client
	voiceLimit   *rate.Limiter
	synthLimit   *rate.Limiter
	newRequestID func() string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPClient) { p.httpClient = c }
}

// WithoutRateLimit disables client side throttling.
func WithoutRateLimit() Option {
	return func(p *HTTPClient) {
		p.voiceLimit = rate.NewLimiter(rate.Inf, 1)
		p.synthLimit = rate.NewLimiter(rate.Inf, 1)
	}
}

// WithRequestID overrides the request id generator.
func WithRequestID(fn func() string) Option {
	return func(p *HTTPClient) { p.newRequestID = fn }
}

// New creates a client for kind at base. An empty base uses DefaultBase.
func New(kind ttypes.ProviderKind, base string, opts ...Option) (*HTTPClient, error) {
	if kind != ttypes.ProviderEdge && kind != ttypes.ProviderAzure {
		return nil, fmt.Errorf("provider: unknown provider %q", kind)
	}
	if base == "" {
		base = DefaultBase(kind)
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("provider: invalid base URL %q", base)
	}

	c := &HTTPClient{
		kind:         kind,
		base:         u,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		voiceLimit:   rate.NewLimiter(rate.Every(time.Minute/voicesPerMinute), voicesPerMinute),
		synthLimit:   rate.NewLimiter(rate.Every(time.Minute/synthesizePerMinute), synthesizePerMinute),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Kind returns the provider kind.
func (c *HTTPClient) Kind() ttypes.ProviderKind { return c.kind }

// RequiresKey reports whether requests need an API key.
func (c *HTTPClient) RequiresKey() bool { return c.kind == ttypes.ProviderAzure }

// MaxTextLength returns the enforced text limit, or 0 when there is none.
func (c *HTTPClient) MaxTextLength() int {
	if c.kind == ttypes.ProviderEdge {
		return MaxEdgeTextLength
	}
	return 0
}

// Base returns the base URL.
func (c *HTTPClient) Base() string { return c.base.String() }

// Validate checks req without contacting the backend.
func (c *HTTPClient) Validate(req ttypes.SynthesisRequest) error {
	if c.RequiresKey() && strings.TrimSpace(req.APIKey) == "" {
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, ttypes.ErrMissingKey.Error(), ttypes.ErrMissingKey)
	}
	if req.Voice == "" {
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, ttypes.ErrMissingVoice.Error(), ttypes.ErrMissingVoice)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ttypes.NewError(ttypes.ErrorCodeInvalidInput, ttypes.ErrEmptyText.Error(), ttypes.ErrEmptyText)
	}
	if limit := c.MaxTextLength(); limit > 0 {
		if n := utf8.RuneCountInString(text); n > limit {
			return ttypes.NewError(ttypes.ErrorCodeTextTooLong,
				fmt.Sprintf("text is %d characters, the maximum is %d", n, limit), ttypes.ErrTextTooLong).
				WithContext("length", n).
				WithContext("max", limit)
		}
	}
	return nil
}

type edgeVoices struct {
	Chinese []ttypes.Voice `json:"chinese_voices"`
	Other   []ttypes.Voice `json:"other_voices"`
}

// ListVoices fetches the catalog. The edge backend answers with
// {chinese_voices, other_voices}; azure with a flat array.
func (c *HTTPClient) ListVoices(ctx context.Context, q VoiceQuery) ([]ttypes.Voice, error) {
	if c.RequiresKey() && strings.TrimSpace(q.APIKey) == "" {
		return nil, ttypes.NewError(ttypes.ErrorCodeInvalidInput, ttypes.ErrMissingKey.Error(), ttypes.ErrMissingKey)
	}

	endpoint := c.endpoint("voices")
	if c.kind == ttypes.ProviderAzure {
		region := q.Region
		if region == "" {
			region = DefaultRegion
		}
		endpoint += "?" + url.Values{"region": {region}}.Encode()
	}

	if err := c.voiceLimit.Wait(ctx); err != nil {
		return nil, canceled(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: create voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req, q.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transport(ctx, "unable to load voices", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, StatusError(resp, "unable to load voices")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*maxBody))
	if err != nil {
		return nil, transport(ctx, "unable to load voices", err)
	}

	var voices []ttypes.Voice
	if c.kind == ttypes.ProviderEdge {
		var shaped *edgeVoices
		if err := json.Unmarshal(body, &shaped); err != nil || shaped == nil || shaped.Chinese == nil {
			return nil, contract("voice list has an unexpected shape", err)
		}
		voices = append(shaped.Chinese, shaped.Other...)
	} else if err := json.Unmarshal(body, &voices); err != nil || voices == nil {
		return nil, contract("voice list has an unexpected shape", err)
	}

	log.Debug("Voices loaded", "provider", c.kind, "count", len(voices))
	return voices, nil
}

// Synthesize validates req and posts it to {base}/synthesize. A success
// response must be JSON and carry a non-empty audioUrl.
func (c *HTTPClient) Synthesize(ctx context.Context, r ttypes.SynthesisRequest) (ttypes.SynthesisResult, error) {
	if err := c.Validate(r); err != nil {
		return ttypes.SynthesisResult{}, err
	}

	r.Text = strings.TrimSpace(r.Text)
	if c.kind == ttypes.ProviderAzure {
		r.Format = ""
		if r.Region == "" {
			r.Region = DefaultRegion
		}
	} else {
		r.Style, r.Region = "", ""
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return ttypes.SynthesisResult{}, fmt.Errorf("provider: encode request: %w", err)
	}

	if err := c.synthLimit.Wait(ctx); err != nil {
		return ttypes.SynthesisResult{}, canceled(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("synthesize"), bytes.NewReader(payload))
	if err != nil {
		return ttypes.SynthesisResult{}, fmt.Errorf("provider: create synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.decorate(req, r.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ttypes.SynthesisResult{}, transport(ctx, "synthesis failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ttypes.SynthesisResult{}, StatusError(resp, "synthesis failed")
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return ttypes.SynthesisResult{}, contract(fmt.Sprintf("unexpected content type %q", ct), nil)
	}

	var result ttypes.SynthesisResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&result); err != nil {
		return ttypes.SynthesisResult{}, contract("malformed synthesis response", err)
	}
	if result.AudioURL == "" {
		return ttypes.SynthesisResult{}, contract(ttypes.ErrMissingAudioURL.Error(), ttypes.ErrMissingAudioURL)
	}
	if result.Format == "" {
		result.Format = r.Format
	}
	if result.Format == "" {
		result.Format = "mp3"
	}

	log.Info("Synthesized", "provider", c.kind, "voice", r.Voice, "chars", utf8.RuneCountInString(r.Text), "took", time.Since(start))
	return result, nil
}

// ResolveURL turns a backend relative audio URL into an absolute one.
func (c *HTTPClient) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

func (c *HTTPClient) endpoint(name string) string {
	return c.base.String() + "/" + name
}

func (c *HTTPClient) decorate(req *http.Request, key string) {
	req.Header.Set(RequestIDHeader, c.newRequestID())
	if c.RequiresKey() && key != "" {
		req.Header.Set(KeyHeader, key)
	}
}

func canceled(err error) error {
	return ttypes.NewError(ttypes.ErrorCodeCanceled, "request canceled", err)
}

func transport(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return canceled(err)
	}
	return ttypes.NewError(ttypes.ErrorCodeTransport, msg+": "+err.Error(), err)
}

func contract(msg string, err error) error {
	return ttypes.NewError(ttypes.ErrorCodeContractViolation, msg, err)
}
