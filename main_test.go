package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttstudio/internal/cache"
	"github.com/dgnsrekt/ttstudio/internal/provider"
	"github.com/dgnsrekt/ttstudio/internal/settings"
	"github.com/dgnsrekt/ttstudio/internal/studio"
	"github.com/dgnsrekt/ttstudio/internal/ttypes"
	"github.com/dgnsrekt/ttstudio/internal/voice"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// isolate points the settings, cache and download locations at a
// temporary home.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	viper.Set("cache.dir", filepath.Join(home, "clips"))
	t.Cleanup(func() {
		viper.Set("cache.dir", "")
		viper.Set("download_dir", "")
		viper.Set("azure.key", "")
	})
	return home
}

func saveRecord(t *testing.T, kind ttypes.ProviderKind, rec settings.Record) {
	t.Helper()
	dir, err := settings.DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir: %v", err)
	}
	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := (settings.FileBackend{Dir: dir}).Write(studio.ProfileFor(kind).StorageKey, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

// sayCommand returns a fresh command carrying the say flags, parsed from args.
func sayCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "say", RunE: runSay}
	addSayFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	cmd.SetContext(context.Background())
	return cmd
}

type sayBackend struct {
	srv *httptest.Server

	mu      sync.Mutex
	payload map[string]any
	voices  int
}

func newSayBackend(t *testing.T) *sayBackend {
	t.Helper()
	b := &sayBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/edge/voices":
			b.mu.Lock()
			b.voices++
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{
				"chinese_voices":[{"ShortName":"zh-CN-XiaoxiaoNeural","Locale":"zh-CN","Gender":"Female"}],
				"other_voices":[{"ShortName":"en-US-AriaNeural","Locale":"en-US","Gender":"Female"}]}`)
		case "/api/edge/synthesize":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			b.mu.Lock()
			b.payload = body
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"audioUrl":"/api/audio/clip.mp3","format":"mp3"}`)
		case "/api/audio/clip.mp3":
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *sayBackend) app(t *testing.T, kind ttypes.ProviderKind) *app {
	t.Helper()
	client, err := provider.New(kind, b.srv.URL+"/api/"+string(kind), provider.WithoutRateLimit())
	if err != nil {
		t.Fatalf("provider.New: %v", err)
	}
	return &app{kind: kind, client: client, deps: studio.Deps{Profile: studio.ProfileFor(kind)}}
}

func TestSayRequestEdge(t *testing.T) {
	tests := []struct {
		name  string
		saved *settings.Record
		args  []string
		want  ttypes.SynthesisRequest
		lists bool
	}{
		{
			name:  "nothing saved picks the first preferred voice",
			want:  ttypes.SynthesisRequest{Text: "hi", Voice: "zh-CN-XiaoxiaoNeural", Format: "mp3"},
			lists: true,
		},
		{
			name:  "saved controls fill unset flags",
			saved: &settings.Record{Voice: "en-US-AriaNeural", Rate: settings.Int(50), Pitch: settings.Int(10), Format: "wav"},
			args:  []string{"--rate", "20"},
			want:  ttypes.SynthesisRequest{Text: "hi", Voice: "en-US-AriaNeural", Rate: 20, Pitch: 10, Format: "wav"},
		},
		{
			name:  "flags win and are clamped",
			saved: &settings.Record{Voice: "en-US-AriaNeural", Rate: settings.Int(50), Format: "wav"},
			args:  []string{"--voice", "zh-CN-YunxiNeural", "--format", "mp3", "--pitch", "500", "--rate", "0"},
			want:  ttypes.SynthesisRequest{Text: "hi", Voice: "zh-CN-YunxiNeural", Pitch: 50, Format: "mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.saved != nil {
				saveRecord(t, ttypes.ProviderEdge, *tt.saved)
			}
			be := newSayBackend(t)
			cmd := sayCommand(t, tt.args...)

			got, err := sayRequest(context.Background(), cmd, be.app(t, ttypes.ProviderEdge), "hi")
			if err != nil {
				t.Fatalf("sayRequest: %v", err)
			}
			if got != tt.want {
				t.Errorf("sayRequest() = %+v, want %+v", got, tt.want)
			}
			be.mu.Lock()
			listed := be.voices > 0
			be.mu.Unlock()
			if listed != tt.lists {
				t.Errorf("voices listed = %v, want %v", listed, tt.lists)
			}
		})
	}
}

func TestSayRequestAzureStyle(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"saved style with saved voice", nil, "chat"},
		{"other voice resets the style", []string{"--voice", "en-US-AriaNeural"}, voice.DefaultStyle},
		{"style flag wins", []string{"--style", "cheerful"}, "cheerful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			viper.Set("azure.key", "k")
			saveRecord(t, ttypes.ProviderAzure, settings.Record{Voice: "en-US-JennyNeural", Style: "chat", Region: "westeurope"})
			be := newSayBackend(t)

			got, err := sayRequest(context.Background(), sayCommand(t, tt.args...), be.app(t, ttypes.ProviderAzure), "hi")
			if err != nil {
				t.Fatalf("sayRequest: %v", err)
			}
			if got.Style != tt.want {
				t.Errorf("Style = %q, want %q", got.Style, tt.want)
			}
			if got.APIKey != "k" || got.Region != "westeurope" || got.Format != "" {
				t.Errorf("unexpected azure request %+v", got)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	downloads := t.TempDir()
	const name = "edge_v_1.mp3"

	tests := []struct {
		name        string
		out         string
		downloadDir string
		want        string
	}{
		{"existing directory", dir, "", filepath.Join(dir, name)},
		{"trailing separator", filepath.Join(dir, "new") + string(os.PathSeparator), "", filepath.Join(dir, "new", name)},
		{"file path", filepath.Join(dir, "hello.mp3"), "", filepath.Join(dir, "hello.mp3")},
		{"download dir", "", downloads, filepath.Join(downloads, name)},
		{"working directory", "", "", name},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set("download_dir", tt.downloadDir)
			if got := outputPath(tt.out, name); got != tt.want {
				t.Errorf("outputPath(%q) = %q, want %q", tt.out, got, tt.want)
			}
		})
	}
}

// TestRunSay tests a whole say run: synthesis, download into --out and the
// character count logged for multi-byte text.
func TestRunSay(t *testing.T) {
	isolate(t)
	be := newSayBackend(t)
	baseURL = be.srv.URL + "/api/edge"
	t.Cleanup(func() { baseURL = "" })

	var logs bytes.Buffer
	log.SetOutput(&logs)
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.SetOutput(io.Discard)
		log.SetLevel(log.InfoLevel)
	})

	out := t.TempDir()
	cmd := sayCommand(t, "--out", out, "--rate", "20")
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	if err := runSay(cmd, []string{"你好"}); err != nil {
		t.Fatalf("runSay: %v", err)
	}

	be.mu.Lock()
	payload := be.payload
	be.mu.Unlock()
	if payload["text"] != "你好" || payload["rate"] != float64(20) || payload["voice"] != "zh-CN-XiaoxiaoNeural" {
		t.Errorf("unexpected payload %v", payload)
	}

	files, _ := filepath.Glob(filepath.Join(out, "edge_zh-CN-XiaoxiaoNeural_*.mp3"))
	if len(files) != 1 {
		t.Fatalf("expected one clip in %s, got %v", out, files)
	}
	if !strings.Contains(stdout.String(), files[0]) {
		t.Errorf("stdout %q does not name %s", stdout.String(), files[0])
	}
	var line string
	for _, l := range strings.Split(logs.String(), "\n") {
		if strings.Contains(l, "Synthesizing") {
			line = l
		}
	}
	if !strings.Contains(line, "chars=2") {
		t.Errorf("expected a rune count of 2, got %q in:\n%s", line, logs.String())
	}
}

func TestRetry(t *testing.T) {
	transportErr := ttypes.NewError(ttypes.ErrorCodeTransport, "down", nil)
	invalid := ttypes.NewError(ttypes.ErrorCodeInvalidInput, "no voice", ttypes.ErrMissingVoice)

	tests := []struct {
		name      string
		retries   int
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"success", 2, []error{nil}, 1, false},
		{"recovers", 2, []error{transportErr, nil}, 2, false},
		{"gives up", 2, []error{transportErr, transportErr, transportErr, nil}, 3, true},
		{"not retryable", 2, []error{invalid, nil}, 1, true},
		{"plain error", 2, []error{io.ErrUnexpectedEOF, nil}, 1, true},
		{"no retries", 0, []error{transportErr, nil}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retry(context.Background(), tt.retries, 0, func(context.Context) error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, 5, 0, func(context.Context) error {
		calls++
		cancel()
		return ttypes.NewError(ttypes.ErrorCodeCanceled, "canceled", context.Canceled)
	})
	if calls != 1 || err == nil {
		t.Errorf("calls = %d, err = %v; want 1 call and an error", calls, err)
	}
}

func TestProviderArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    ttypes.ProviderKind
		wantErr bool
	}{
		{"config default", nil, ttypes.ProviderEdge, false},
		{"argument", []string{"azure"}, ttypes.ProviderAzure, false},
		{"case and space", []string{" AZURE "}, ttypes.ProviderAzure, false},
		{"unknown", []string{"polly"}, ttypes.ProviderNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := providerArg(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("providerArg(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("providerArg(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCacheKeys(t *testing.T) {
	be := newSayBackend(t)
	a := be.app(t, ttypes.ProviderEdge)

	got := a.cacheKeys([]string{"/api/audio/a.mp3", "https://cdn.example.com/b.wav"})
	want := []string{be.srv.URL + "/api/audio/a.mp3", "https://cdn.example.com/b.wav"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cacheKeys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteCacheStats(t *testing.T) {
	var buf bytes.Buffer
	err := writeCacheStats(&buf, cache.ManagerStats{
		MemoryHits: 3,
		Misses:     1,
		Memory:     cache.Stats{Capacity: 1 << 20, Size: 2048, ItemCount: 2},
	})
	if err != nil {
		t.Fatalf("writeCacheStats: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got:\n%s", buf.String())
	}
	if f := strings.Fields(lines[1]); len(f) < 5 || f[0] != "memory" || f[1] != "2" || f[len(f)-1] != "3" {
		t.Errorf("memory row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "disk") || !strings.Contains(lines[2], "-") {
		t.Errorf("disk row = %q, want a placeholder", lines[2])
	}
	if f := strings.Fields(lines[3]); len(f) != 2 || f[1] != "1" {
		t.Errorf("misses row = %q", lines[3])
	}
}
