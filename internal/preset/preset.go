// Package preset manages named parameter bundles stored by the backend at
// {base}/presets, and moves them in and out of YAML files.
package preset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/google/uuid"
)

// Preset is re-exported for callers that only manage presets.
type Preset = ttypes.Preset

// Summary is one row of the preset list.
type Summary struct {
	Name  string `json:"name"`
	Voice string `json:"voice"`
	Style string `json:"style,omitempty"`
}

// ErrEmptyName is returned before any request when a preset has no name.
var ErrEmptyName = errors.New("preset name cannot be empty")

// Store is the preset storage a studio page talks to.
type Store interface {
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, name string) (Preset, error)
	Save(ctx context.Context, p Preset) error
	Delete(ctx context.Context, name string) error
}

// Client is the HTTP Store.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a preset client for a provider base URL such as
// http://127.0.0.1:5000/api/azure.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(base, "/") + "/presets",
		httpClient: httpClient,
	}
}

// List returns every preset sorted by name.
func (c *Client) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	if err := c.do(ctx, http.MethodGet, nil, nil, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the named preset. A missing preset yields an error wrapping
// ttypes.ErrNotFound.
func (c *Client) Get(ctx context.Context, name string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, emptyName()
	}

	var p Preset
	if err := c.do(ctx, http.MethodGet, url.Values{"name": {name}}, nil, &p); err != nil {
		return Preset{}, err
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// Save creates or replaces a preset.
func (c *Client) Save(ctx context.Context, p Preset) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return emptyName()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("preset: encode: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, nil, body, nil); err != nil {
		return err
	}
	log.Info("Preset saved", "name", p.Name, "voice", p.Voice)
	return nil
}

// Delete removes the named preset.
func (c *Client) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return emptyName()
	}
	if err := c.do(ctx, http.MethodDelete, url.Values{"name": {name}}, nil, nil); err != nil {
		return err
	}
	log.Info("Preset deleted", "name", name)
	return nil
}

func (c *Client) do(ctx context.Context, method string, query url.Values, body []byte, out any) error {
	target := c.endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("preset: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(provider.RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ttypes.NewError(ttypes.ErrorCodeCanceled, "request canceled", err)
		}
		return ttypes.NewError(ttypes.ErrorCodeTransport, "preset request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return provider.StatusError(resp, "preset request failed")
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ttypes.NewError(ttypes.ErrorCodeContractViolation, "malformed preset response", err)
	}
	return nil
}

func emptyName() error {
	return ttypes.NewError(ttypes.ErrorCodeInvalidInput, ErrEmptyName.Error(), ErrEmptyName)
}
