package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

func mustNew(t *testing.T, kind ttypes.ProviderKind, base string) *HTTPClient {
	t.Helper()
	c, err := New(kind, base, WithoutRateLimit(), WithRequestID(func() string { return "req-1" }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func validEdge() ttypes.SynthesisRequest {
	return ttypes.SynthesisRequest{Text: "hello", Voice: "en-US-AriaNeural", Format: "mp3"}
}

func TestNew(t *testing.T) {
	if _, err := New("polly", ""); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(ttypes.ProviderEdge, "not a url"); err == nil {
		t.Error("expected error for invalid base")
	}

	c, err := New(ttypes.ProviderAzure, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Base() != DefaultAzureBase {
		t.Errorf("Base() = %q, want %q", c.Base(), DefaultAzureBase)
	}
	if !c.RequiresKey() || c.MaxTextLength() != 0 {
		t.Error("azure should require a key and have no client side limit")
	}
}

func TestValidate(t *testing.T) {
	edge := mustNew(t, ttypes.ProviderEdge, "")
	azure := mustNew(t, ttypes.ProviderAzure, "")

	tests := []struct {
		name   string
		client *HTTPClient
		mutate func(*ttypes.SynthesisRequest)
		code   ttypes.ErrorCode
		cause  error
	}{
		{"valid edge", edge, func(*ttypes.SynthesisRequest) {}, "", nil},
		{"missing voice", edge, func(r *ttypes.SynthesisRequest) { r.Voice = "" }, ttypes.ErrorCodeInvalidInput, ttypes.ErrMissingVoice},
		{"blank text", edge, func(r *ttypes.SynthesisRequest) { r.Text = "  \n\t" }, ttypes.ErrorCodeInvalidInput, ttypes.ErrEmptyText},
		{"exact limit", edge, func(r *ttypes.SynthesisRequest) { r.Text = strings.Repeat("字", MaxEdgeTextLength) }, "", nil},
		{"over limit", edge, func(r *ttypes.SynthesisRequest) { r.Text = strings.Repeat("字", MaxEdgeTextLength+1) }, ttypes.ErrorCodeTextTooLong, ttypes.ErrTextTooLong},
		{"azure missing key", azure, func(*ttypes.SynthesisRequest) {}, ttypes.ErrorCodeInvalidInput, ttypes.ErrMissingKey},
		{"azure long text", azure, func(r *ttypes.SynthesisRequest) {
			r.APIKey = "k"
			r.Text = strings.Repeat("a", MaxEdgeTextLength+1)
		}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validEdge()
			tt.mutate(&req)
			err := tt.client.Validate(req)
			if ttypes.CodeOf(err) != tt.code {
				t.Fatalf("Validate() = %v, want code %q", err, tt.code)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("Validate() = %v, want cause %v", err, tt.cause)
			}
		})
	}
}

func TestSynthesizeValidationSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	c := mustNew(t, ttypes.ProviderEdge, srv.URL+"/api/edge")
	req := validEdge()
	req.Text = ""
	if _, err := c.Synthesize(context.Background(), req); err == nil {
		t.Fatal("expected validation error")
	}
	if calls != 0 {
		t.Errorf("backend called %d times", calls)
	}
}

func TestSynthesize(t *testing.T) {
	var got map[string]any
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/azure/synthesize" {
			http.NotFound(w, r)
			return
		}
		header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"audioUrl":"/api/audio/abc.mp3"}`)
	}))
	defer srv.Close()

	c := mustNew(t, ttypes.ProviderAzure, srv.URL+"/api/azure")
	res, err := c.Synthesize(context.Background(), ttypes.SynthesisRequest{
		Text: "  你好  ", Voice: "zh-CN-XiaoxiaoNeural", Style: "cheerful",
		Rate: 10, Pitch: -5, Volume: 0, Format: "wav", APIKey: "secret",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if res.AudioURL != "/api/audio/abc.mp3" || res.Format != "mp3" {
		t.Errorf("result = %+v", res)
	}
	if header.Get(KeyHeader) != "secret" || header.Get(RequestIDHeader) != "req-1" {
		t.Errorf("headers = %v", header)
	}
	if got["text"] != "你好" || got["style"] != "cheerful" || got["region"] != DefaultRegion {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["format"]; ok {
		t.Error("azure payload must not carry a format")
	}
	if _, ok := got["APIKey"]; ok {
		t.Error("key leaked into the body")
	}
	if got["volume"] != float64(0) {
		t.Errorf("zero volume must still be sent, got %v", got["volume"])
	}

	if abs := c.ResolveURL(res.AudioURL); abs != srv.URL+"/api/audio/abc.mp3" {
		t.Errorf("ResolveURL() = %q", abs)
	}
}

func TestSynthesizeContractViolations(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"html body", "text/html", "<html>ok</html>"},
		{"missing url", "application/json", `{"format":"mp3"}`},
		{"empty url", "application/json", `{"audioUrl":""}`},
		{"malformed json", "application/json", `{"audioUrl":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := mustNew(t, ttypes.ProviderEdge, srv.URL)
			_, err := c.Synthesize(context.Background(), validEdge())
			if ttypes.CodeOf(err) != ttypes.ErrorCodeContractViolation {
				t.Errorf("Synthesize() = %v, want contract violation", err)
			}
		})
	}
}

func TestSynthesizeErrorMessages(t *testing.T) {
	long := strings.Repeat("x", 300)
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        string
	}{
		{"json string", 413, "application/json", `{"error":"text too long"}`, "synthesis failed (413): text too long"},
		{"json object", 400, "application/json", `{"error":{"message":"bad voice"}}`, "synthesis failed (400): bad voice"},
		{"json without error", 500, "application/json", `{"detail":"boom"}`, `synthesis failed (500): {"detail":"boom"}`},
		{"plain text", 502, "text/plain", long, "synthesis failed (502): " + long[:200]},
		{"empty body", 503, "text/plain", "", "synthesis failed (503): Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := mustNew(t, ttypes.ProviderEdge, srv.URL)
			_, err := c.Synthesize(context.Background(), validEdge())
			if ttypes.CodeOf(err) != ttypes.ErrorCodeTransport {
				t.Fatalf("code = %q, want TRANSPORT", ttypes.CodeOf(err))
			}
			if msg := ttypes.MessageOf(err); msg != tt.want {
				t.Errorf("message = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestListVoicesEdge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/edge/voices" || r.URL.RawQuery != "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"chinese_voices":[{"ShortName":"zh-CN-XiaoxiaoNeural","Locale":"zh-CN","Gender":"Female"}],
			"other_voices":[{"ShortName":"en-US-AriaNeural","Locale":"en-US","Gender":"Female"}]}`)
	}))
	defer srv.Close()

	c := mustNew(t, ttypes.ProviderEdge, srv.URL+"/api/edge")
	voices, err := c.ListVoices(context.Background(), VoiceQuery{})
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 || voices[0].ShortName != "zh-CN-XiaoxiaoNeural" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestListVoicesAzure(t *testing.T) {
	var query, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query, key = r.URL.Query().Get("region"), r.Header.Get(KeyHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"ShortName":"en-US-JennyNeural","LocalName":"Jenny","Locale":"en-US","Gender":"Female","StyleList":["chat"]}]`)
	}))
	defer srv.Close()

	c := mustNew(t, ttypes.ProviderAzure, srv.URL+"/api/azure")

	if _, err := c.ListVoices(context.Background(), VoiceQuery{}); !errors.Is(err, ttypes.ErrMissingKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}

	voices, err := c.ListVoices(context.Background(), VoiceQuery{APIKey: "k"})
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if query != DefaultRegion || key != "k" {
		t.Errorf("region=%q key=%q", query, key)
	}
	if len(voices) != 1 || voices[0].Label() != "Jenny" || voices[0].StyleList[0] != "chat" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestListVoicesBadShape(t *testing.T) {
	tests := map[string]string{
		"edge array":   `[]`,
		"edge missing": `{"other_voices":[]}`,
		"edge null":    `null`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := mustNew(t, ttypes.ProviderEdge, srv.URL).ListVoices(context.Background(), VoiceQuery{})
			if ttypes.CodeOf(err) != ttypes.ErrorCodeContractViolation {
				t.Errorf("ListVoices() = %v, want contract violation", err)
			}
		})
	}
}

func TestSynthesizeCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := mustNew(t, ttypes.ProviderEdge, srv.URL).Synthesize(ctx, validEdge())
	if ttypes.CodeOf(err) != ttypes.ErrorCodeCanceled {
		t.Errorf("Synthesize() = %v, want CANCELED", err)
	}
}

func TestSynthesizeCanceledBeforeSend(t *testing.T) {
	c, _ := New(ttypes.ProviderEdge, "http://127.0.0.1:1")
	c.synthLimit.SetBurst(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Synthesize(ctx, validEdge())
	if ttypes.CodeOf(err) != ttypes.ErrorCodeCanceled {
		t.Errorf("Synthesize() = %v, want CANCELED", err)
	}
}
