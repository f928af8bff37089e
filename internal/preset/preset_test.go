package preset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// backend mimics the preset endpoint of the studio server.
type backend struct {
	mu       sync.Mutex
	presets  map[string]Preset
	requests int
}

func newBackend(t *testing.T, presets ...Preset) (*backend, *Client) {
	t.Helper()
	b := &backend{presets: make(map[string]Preset)}
	for _, p := range presets {
		b.presets[p.Name] = p
	}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, NewClient(srv.URL+"/api/azure/", srv.Client())
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path != "/api/azure/presets" {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no route"})
		return
	}

	name := r.URL.Query().Get("name")
	switch r.Method {
	case http.MethodGet:
		if name == "" {
			// Deliberately unsorted.
			list := []Summary{}
			for _, p := range b.presets {
				list = append([]Summary{{Name: p.Name, Voice: p.Voice, Style: p.Style}}, list...)
			}
			_ = json.NewEncoder(w).Encode(list)
			return
		}
		p, ok := b.presets[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "preset does not exist"})
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	case http.MethodPost:
		var p Preset
		_ = json.NewDecoder(r.Body).Decode(&p)
		b.presets[p.Name] = p
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "name": p.Name})
	case http.MethodDelete:
		if _, ok := b.presets[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "preset does not exist"})
			return
		}
		delete(b.presets, name)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}
}

var (
	calm  = Preset{Name: "calm", Voice: "zh-CN-XiaoxiaoNeural", Style: "calm", Rate: -10}
	alert = Preset{Name: "alert", Voice: "en-US-JennyNeural", Style: "shouting", Rate: 20, Pitch: 5, Volume: 10}
)

func TestClientList(t *testing.T) {
	_, c := newBackend(t, calm, alert)

	list, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alert" || list[1].Name != "calm" {
		t.Errorf("List() = %+v, want sorted by name", list)
	}
}

func TestClientGet(t *testing.T) {
	_, c := newBackend(t, alert)

	got, err := c.Get(context.Background(), " alert ")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != alert {
		t.Errorf("Get() = %+v, want %+v", got, alert)
	}

	_, err = c.Get(context.Background(), "missing")
	if !errors.Is(err, ttypes.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
	if msg := ttypes.MessageOf(err); !strings.Contains(msg, "preset does not exist") {
		t.Errorf("message %q lacks backend detail", msg)
	}
}

// TestClientGetStringSliders tests presets saved by the web pages, which
// store slider values as strings.
func TestClientGetStringSliders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"calm","voice":"zh-CN-XiaoxiaoNeural","rate":"10","volume":"0","pitch":"-5"}`))
	}))
	t.Cleanup(srv.Close)

	got, err := NewClient(srv.URL+"/api/edge", srv.Client()).Get(context.Background(), "calm")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Preset{Name: "calm", Voice: "zh-CN-XiaoxiaoNeural", Rate: 10, Volume: 0, Pitch: -5}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestClientSaveDelete(t *testing.T) {
	b, c := newBackend(t)
	ctx := context.Background()

	if err := c.Save(ctx, calm); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b.presets["calm"] != calm {
		t.Errorf("stored %+v", b.presets["calm"])
	}

	if err := c.Delete(ctx, "calm"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(b.presets) != 0 {
		t.Error("preset not deleted")
	}
	if err := c.Delete(ctx, "calm"); !errors.Is(err, ttypes.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestClientEmptyNameSkipsNetwork(t *testing.T) {
	b, c := newBackend(t)
	ctx := context.Background()

	errs := []error{
		c.Save(ctx, Preset{Name: "   ", Voice: "v"}),
		c.Delete(ctx, ""),
		func() error { _, err := c.Get(ctx, ""); return err }(),
	}
	for i, err := range errs {
		if !errors.Is(err, ErrEmptyName) || ttypes.CodeOf(err) != ttypes.ErrorCodeInvalidInput {
			t.Errorf("call %d = %v, want empty name validation error", i, err)
		}
	}
	if b.requests != 0 {
		t.Errorf("backend saw %d requests", b.requests)
	}
}

func TestExportImport(t *testing.T) {
	_, src := newBackend(t, calm, alert)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := Export(ctx, src, "azure", &buf)
	if err != nil || n != 2 {
		t.Fatalf("Export = %d, %v", n, err)
	}
	if !strings.Contains(buf.String(), "provider: azure") || !strings.Contains(buf.String(), "style: shouting") {
		t.Errorf("unexpected yaml:\n%s", buf.String())
	}

	dst := NewMemoryStore()
	n, err = Import(ctx, dst, &buf)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	got, err := dst.Get(ctx, "alert")
	if err != nil || got != alert {
		t.Errorf("imported %+v, %v", got, err)
	}
}

func TestImportSkipsUnnamed(t *testing.T) {
	doc := "provider: edge\npresets:\n  - voice: en-US-AriaNeural\n  - name: ok\n    voice: en-US-AriaNeural\n"
	dst := NewMemoryStore()

	n, err := Import(context.Background(), dst, strings.NewReader(doc))
	if err != nil || n != 1 {
		t.Fatalf("Import = %d, %v", n, err)
	}
}

func TestExportImportFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "presets.yml")

	if _, err := ExportFile(ctx, NewMemoryStore(calm), "edge", path); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	dst := NewMemoryStore()
	if n, err := ImportFile(ctx, dst, path); err != nil || n != 1 {
		t.Fatalf("ImportFile = %d, %v", n, err)
	}
	if _, err := ImportFile(ctx, dst, filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}
